package document

import (
	"fmt"
	"strings"
	"time"

	"github.com/winds-ai/iatf/internal/apperr"
	"github.com/winds-ai/iatf/internal/checksum"
	"github.com/winds-ai/iatf/internal/models"
)

// StructuralError aggregates the itemized structural problems that abort a
// rebuild before any write is attempted.
type StructuralError struct {
	Problems []string
}

func (e *StructuralError) Error() string {
	if len(e.Problems) == 1 {
		return e.Problems[0]
	}
	return fmt.Sprintf("%d structural error(s) found", len(e.Problems))
}

// RenderIndex turns sections plus the whole-document content hash into
// INDEX lines, marker included, one blank line after each entry.
func RenderIndex(sections []models.Section, contentHash string, generated time.Time) []string {
	out := []string{
		IndexMarker,
		"<!-- AUTO-GENERATED - DO NOT EDIT MANUALLY -->",
		fmt.Sprintf("<!-- Generated: %s -->", generated.UTC().Format(time.RFC3339)),
		fmt.Sprintf("<!-- Content-Hash: sha256:%s -->", contentHash),
		"",
	}

	for _, s := range sections {
		out = append(out, fmt.Sprintf("%s %s {#%s | lines:%d-%d | words:%d}",
			strings.Repeat("#", s.Level), s.Title, s.ID, s.Start, s.End, s.WordCount))

		if s.Summary != "" {
			out = append(out, "> "+s.Summary)
		}

		if s.Created != "" || s.Modified != "" {
			var stamps []string
			if s.Created != "" {
				stamps = append(stamps, "Created: "+s.Created)
			}
			if s.Modified != "" {
				stamps = append(stamps, "Modified: "+s.Modified)
			}
			out = append(out, "  "+strings.Join(stamps, " | "))
		}

		if s.Hash != "" {
			out = append(out, "  Hash: "+s.Hash)
		}

		out = append(out, "")
	}

	return out
}

// Rebuild regenerates the INDEX block and returns the document's full
// replacement text. It refuses (returning an error and no text) when
// nesting is invalid, ids are duplicated, nesting exceeds two levels, or
// reference validation fails. Nothing is ever half-written.
//
// The INDEX's own length shifts the CONTENT region, which shifts the line
// ranges the INDEX publishes. The renderer resolves this with one bounded
// fixed-point pass: render, measure the line delta against the previous
// prefix, shift every section uniformly, render again. A second pass always
// converges because the CONTENT layout is independent of the INDEX size and
// re-rendering with different line numbers never changes the line count.
func (d *Document) Rebuild(now time.Time) ([]byte, error) {
	if !d.HasContent() {
		return nil, fmt.Errorf("no %s section found", ContentMarker)
	}

	if err := d.ValidateNesting(); err != nil {
		return nil, fmt.Errorf("invalid section nesting: %w", err)
	}

	sections := d.ParseSections()
	if len(sections) == 0 {
		return nil, apperr.ErrNoSections
	}

	var problems []string
	for _, id := range DuplicateIDs(sections) {
		problems = append(problems, fmt.Sprintf("Duplicate section ID: %s", id))
	}
	for _, s := range sections {
		if s.Level > 2 {
			problems = append(problems, fmt.Sprintf("Section nesting exceeds 2 levels: %s", s.ID))
		}
	}
	problems = append(problems, ValidateReferences(d.References(), sections)...)
	if len(problems) > 0 {
		return nil, &StructuralError{Problems: problems}
	}

	ApplyStaleness(sections, d.IndexMetadata(), now.Format("2006-01-02"))

	headerEnd := d.indexInsertionPoint()
	if headerEnd == -1 {
		return nil, fmt.Errorf("invalid iatf file format")
	}

	contentHash := checksum.Sum([]byte(d.ContentText()))

	pre := trimTrailingBlank(d.Lines[:headerEnd])

	rendered := RenderIndex(sections, contentHash, now)
	// Prefix = header + one blank + INDEX block + one separating blank.
	newPrefixLen := len(pre) + 1 + len(rendered) + 1
	if delta := newPrefixLen - d.ContentMark; delta != 0 {
		for i := range sections {
			sections[i].Start += delta
			sections[i].End += delta
		}
		rendered = RenderIndex(sections, contentHash, now)
	}

	out := make([]string, 0, newPrefixLen+len(d.Lines)-d.ContentMark)
	out = append(out, pre...)
	out = append(out, "")
	out = append(out, rendered...)
	out = append(out, "")
	out = append(out, d.Lines[d.ContentMark:]...)

	return d.Join(out), nil
}

// indexInsertionPoint returns the line index where the INDEX block begins:
// the existing marker, or the line after the format declaration and its
// contiguous @metadata lines when the document has never been indexed.
// Returns -1 when neither anchor exists.
func (d *Document) indexInsertionPoint() int {
	if d.IndexMark != -1 {
		return d.IndexMark
	}
	for i, line := range d.Lines {
		if strings.TrimSpace(line) != FormatDeclaration {
			continue
		}
		end := i + 1
		for end < len(d.Lines) && strings.HasPrefix(d.Lines[end], "@") {
			end++
		}
		return end
	}
	return -1
}

func trimTrailingBlank(lines []string) []string {
	out := append([]string(nil), lines...)
	for len(out) > 0 && strings.TrimSpace(out[len(out)-1]) == "" {
		out = out[:len(out)-1]
	}
	return out
}
