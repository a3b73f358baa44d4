// Package document implements the IATF core: parsing the delimited section
// structure out of raw text, validating it, and regenerating the derived
// INDEX block with byte-accurate line ranges.
package document

import (
	"bytes"
	"regexp"
	"strings"
)

// Structural markers of the IATF format.
const (
	FormatDeclaration = ":::IATF"
	IndexMarker       = "===INDEX==="
	ContentMarker     = "===CONTENT==="
)

var (
	openRe  = regexp.MustCompile(`^\{#([a-zA-Z][a-zA-Z0-9_-]*)\}`)
	closeRe = regexp.MustCompile(`^\{/([a-zA-Z][a-zA-Z0-9_-]*)\}`)
	refRe   = regexp.MustCompile(`\{@([a-zA-Z][a-zA-Z0-9_-]*)\}`)
)

// Document is one IATF file held fully in memory. Lines are LF-normalized;
// EOL records the line ending to restore on write.
type Document struct {
	Lines []string
	EOL   string

	// IndexMark and ContentMark are 0-based indices of the first
	// ===INDEX=== and ===CONTENT=== marker lines, or -1 when absent.
	IndexMark   int
	ContentMark int
}

// Parse splits raw text into lines and locates the INDEX/CONTENT markers.
// It never fails: structural problems are reported by the validation
// functions operating on the returned Document.
func Parse(raw []byte) *Document {
	lines, eol := SplitLines(raw)
	d := &Document{Lines: lines, EOL: eol, IndexMark: -1, ContentMark: -1}
	for i, line := range lines {
		switch strings.TrimSpace(line) {
		case IndexMarker:
			if d.IndexMark == -1 {
				d.IndexMark = i
			}
		case ContentMarker:
			if d.ContentMark == -1 {
				d.ContentMark = i
			}
		}
		if d.IndexMark != -1 && d.ContentMark != -1 {
			break
		}
	}
	return d
}

// SplitLines normalizes CRLF/CR to LF and splits, returning the lines and
// the preferred EOL ("\r\n" when the input contained any CRLF sequence).
// Hashing and line numbering are stable across platforms this way, and
// files authored on Windows keep their line endings on rewrite.
func SplitLines(raw []byte) ([]string, string) {
	eol := "\n"
	if bytes.Contains(raw, []byte("\r\n")) {
		eol = "\r\n"
	}
	text := strings.ReplaceAll(string(raw), "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(text, "\n"), eol
}

// Join renders lines back to a byte slice using the document's preferred EOL.
func (d *Document) Join(lines []string) []byte {
	text := strings.Join(lines, "\n")
	if d.EOL == "\r\n" {
		text = strings.ReplaceAll(text, "\n", "\r\n")
	}
	return []byte(text)
}

// HasIndex reports whether an ===INDEX=== marker was found.
func (d *Document) HasIndex() bool { return d.IndexMark != -1 }

// HasContent reports whether a ===CONTENT=== marker was found.
func (d *Document) HasContent() bool { return d.ContentMark != -1 }

// ContentStart returns the 0-based index of the first CONTENT line
// (the line after the marker), or -1 when the marker is absent.
func (d *Document) ContentStart() int {
	if d.ContentMark == -1 {
		return -1
	}
	return d.ContentMark + 1
}

// ContentText returns the CONTENT region joined by LF, the input to the
// whole-document content hash.
func (d *Document) ContentText() string {
	start := d.ContentStart()
	if start == -1 || start > len(d.Lines) {
		return ""
	}
	return strings.Join(d.Lines[start:], "\n")
}

// isFenceLine reports whether line toggles a fenced code block. Only lines
// that are exactly a triple-backtick fence marker count.
func isFenceLine(line string) bool {
	return strings.TrimSpace(line) == "```"
}

// MatchOpenTag returns the section id when line is an opening delimiter.
func MatchOpenTag(line string) (string, bool) {
	if m := openRe.FindStringSubmatch(line); m != nil {
		return m[1], true
	}
	return "", false
}

// MatchCloseTag returns the section id when line is a closing delimiter.
func MatchCloseTag(line string) (string, bool) {
	if m := closeRe.FindStringSubmatch(line); m != nil {
		return m[1], true
	}
	return "", false
}
