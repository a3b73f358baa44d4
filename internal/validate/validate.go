// Package validate implements the read-only battery of structural and
// semantic checks over one parsed IATF document. It never mutates the file;
// a result with only warnings still counts as valid.
package validate

import (
	"fmt"
	"strings"

	"github.com/winds-ai/iatf/internal/checksum"
	"github.com/winds-ai/iatf/internal/document"
)

// Result collects the outcome of every check. Passed lines preserve the
// order in which the checks ran so the CLI can stream them as progress.
type Result struct {
	Passed   []string
	Errors   []string
	Warnings []string
}

// Valid reports whether the document passed with no errors. Warnings alone
// do not invalidate a document; a stale INDEX is repairable via rebuild.
func (r *Result) Valid() bool { return len(r.Errors) == 0 }

func (r *Result) pass(msg string) { r.Passed = append(r.Passed, msg) }
func (r *Result) fail(msg string) { r.Errors = append(r.Errors, msg) }
func (r *Result) warn(msg string) { r.Warnings = append(r.Warnings, msg) }

// Check runs the full battery against d.
func Check(d *document.Document) *Result {
	r := &Result{}

	// Format declaration.
	if len(d.Lines) == 0 || strings.TrimSpace(d.Lines[0]) != document.FormatDeclaration {
		r.fail(fmt.Sprintf("Missing format declaration (%s)", document.FormatDeclaration))
	} else {
		r.pass("Format declaration found")
	}

	// Marker count and order.
	var indexPos, contentPos []int
	for i, line := range d.Lines {
		switch strings.TrimSpace(line) {
		case document.IndexMarker:
			indexPos = append(indexPos, i)
		case document.ContentMarker:
			contentPos = append(contentPos, i)
		}
	}
	hasIndex := len(indexPos) > 0
	hasContent := len(contentPos) > 0

	if hasIndex {
		r.pass("INDEX section found")
	} else {
		r.warn("No INDEX section (Run 'iatf rebuild' to create)")
	}
	if hasContent {
		r.pass("CONTENT section found")
	} else {
		r.fail("Missing CONTENT section")
	}
	if len(indexPos) > 1 {
		r.fail("Multiple INDEX sections found")
	}
	if len(contentPos) > 1 {
		r.fail("Multiple CONTENT sections found")
	}
	if hasIndex && hasContent && indexPos[0] > contentPos[0] {
		r.fail("INDEX section appears after CONTENT")
	}

	if hasContent {
		if err := d.ValidateNesting(); err != nil {
			r.fail(fmt.Sprintf("Invalid section nesting: %v", err))
		}
	}

	if hasIndex {
		checkContentHash(d, r)
	}

	// Per-id nesting report: every mismatched close and every still-open
	// id. Without a CONTENT region the check never runs, so no pass line.
	invalidNesting := false
	if hasContent {
		unmatched, open := d.OpenSectionIDs()
		invalidNesting = len(unmatched) > 0 || len(open) > 0
		for _, id := range unmatched {
			r.fail(fmt.Sprintf("Closing tag without matching opening: %s", id))
		}
		for _, id := range open {
			r.fail(fmt.Sprintf("Unclosed section: %s", id))
		}
		if !invalidNesting {
			r.pass("All sections properly closed")
		}
	}

	if !invalidNesting && hasContent {
		checkOutsideContent(d, r)
	}

	sections := d.ParseSections()

	if !invalidNesting && hasIndex && hasContent {
		checkIndexCrossReference(d, r)
	}
	if !invalidNesting {
		for _, s := range sections {
			if s.Level > 2 {
				r.fail(fmt.Sprintf("Section nesting exceeds 2 levels: %s", s.ID))
			}
		}
	}

	for _, id := range document.DuplicateIDs(sections) {
		r.fail(fmt.Sprintf("Duplicate section ID: %s", id))
	}
	if len(sections) > 0 {
		unique := make(map[string]struct{}, len(sections))
		for _, s := range sections {
			unique[s.ID] = struct{}{}
		}
		r.pass(fmt.Sprintf("Found %d section(s) with unique IDs", len(unique)))
	} else {
		r.warn("No sections found in CONTENT")
	}

	if !invalidNesting && hasContent {
		refErrors := document.ValidateReferences(d.References(), sections)
		if len(refErrors) == 0 {
			r.pass("All references valid")
		} else {
			r.Errors = append(r.Errors, refErrors...)
		}
	}

	return r
}

// checkContentHash verifies the INDEX's recorded whole-document hash
// against a fresh recomputation. Mismatch or absence is only a warning:
// a stale INDEX is repaired by rebuild, it does not invalidate the file.
func checkContentHash(d *document.Document, r *Result) {
	if !d.HasContentHashComment() {
		r.warn("INDEX missing Content-Hash (Run 'iatf rebuild' to add)")
		return
	}
	algo, digest, ok := d.RecordedContentHash()
	if !ok {
		r.warn("Invalid Content-Hash format in INDEX")
		return
	}
	if algo != "sha256" {
		r.warn(fmt.Sprintf("Unsupported Content-Hash algorithm: %s", algo))
		return
	}
	actual := checksum.Sum([]byte(d.ContentText()))
	matches := actual == digest
	if len(digest) == checksum.ShortLen {
		matches = strings.HasPrefix(actual, digest)
	}
	if !matches {
		r.warn("INDEX Content-Hash does not match CONTENT (index may be stale)")
	}
}

// checkOutsideContent reports the first non-blank CONTENT line that lies
// outside every open section.
func checkOutsideContent(d *document.Document, r *Result) {
	var open []string
	for i := d.ContentStart(); i < len(d.Lines); i++ {
		line := d.Lines[i]
		if id, ok := document.MatchOpenTag(line); ok {
			open = append(open, id)
			continue
		}
		if id, ok := document.MatchCloseTag(line); ok {
			if len(open) > 0 && open[len(open)-1] == id {
				open = open[:len(open)-1]
			}
			continue
		}
		if len(open) == 0 && strings.TrimSpace(line) != "" {
			r.fail(fmt.Sprintf("Content outside section block at line %d", i+1))
			return
		}
	}
}

// checkIndexCrossReference verifies the bidirectional contract between the
// INDEX's published line ranges and the live CONTENT parse.
func checkIndexCrossReference(d *document.Document, r *Result) {
	entries := d.IndexEntries()
	indexRanges := make(map[string][2]int)
	for _, e := range entries {
		if _, exists := indexRanges[e.ID]; exists {
			r.fail(fmt.Sprintf("Duplicate INDEX section ID: %s", e.ID))
			continue
		}
		if e.Start < 1 || e.End < e.Start || e.End > len(d.Lines) {
			r.fail(fmt.Sprintf("Invalid line range for INDEX section: %s", e.ID))
		}
		indexRanges[e.ID] = [2]int{e.Start, e.End}
	}

	contentRanges := make(map[string][2]int)
	var order []string
	for _, s := range d.ParseSections() {
		if _, exists := contentRanges[s.ID]; !exists {
			order = append(order, s.ID)
		}
		contentRanges[s.ID] = [2]int{s.Start, s.End}
	}

	seenMissing := make(map[string]struct{})
	for _, e := range entries {
		if _, exists := contentRanges[e.ID]; !exists {
			if _, dup := seenMissing[e.ID]; dup {
				continue
			}
			seenMissing[e.ID] = struct{}{}
			r.fail(fmt.Sprintf("INDEX references missing CONTENT section: %s", e.ID))
		}
	}
	for _, id := range order {
		if _, exists := indexRanges[id]; !exists {
			r.fail(fmt.Sprintf("CONTENT section missing from INDEX: %s", id))
		}
	}
	for _, id := range order {
		if want, exists := indexRanges[id]; exists && want != contentRanges[id] {
			r.fail(fmt.Sprintf("INDEX line range mismatch for section: %s", id))
		}
	}
}
