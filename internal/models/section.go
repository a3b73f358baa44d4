// Package models defines the domain types for IATF documents.
package models

// Section is a delimited, optionally nested, named span of CONTENT.
// Start and End are 1-indexed absolute line numbers of the opening and
// closing delimiter lines in the current document.
type Section struct {
	ID        string
	Title     string
	Level     int
	Start     int
	End       int
	Summary   string
	Created   string // calendar date, YYYY-MM-DD
	Modified  string // calendar date, YYYY-MM-DD
	Hash      string // 7-hex truncated SHA-256 over BodyLines
	WordCount int
	BodyLines []string // content excluding delimiters and header annotations
}

// Reference is one occurrence of an inline {@target} marker.
// Container is the innermost enclosing section id, or empty when the
// reference sits outside every section.
type Reference struct {
	Target    string
	Line      int
	Container string
}

// IndexEntry is one parsed entry of an existing INDEX block.
type IndexEntry struct {
	ID    string
	Title string
	Start int
	End   int
}

// IndexMeta is the per-section metadata recorded by a previous rebuild,
// recovered from the INDEX block before it is overwritten.
type IndexMeta struct {
	Hash     string
	Created  string
	Modified string
}

// WatchEntry records one watched path in the shared registry.
type WatchEntry struct {
	Started      string  `json:"started"`
	LastModified float64 `json:"last_modified"`
	PID          int     `json:"pid,omitempty"`
}
