package document

import (
	"fmt"
	"strings"

	"github.com/winds-ai/iatf/internal/apperr"
	"github.com/winds-ai/iatf/internal/models"
)

// ReadSection returns the lines start..end inclusive for the section with
// the given id, the literal contract the INDEX publishes to navigators.
// The returned slice begins and ends with the section's delimiters.
func (d *Document) ReadSection(id string) ([]string, error) {
	if !d.HasIndex() {
		return nil, fmt.Errorf("no %s section found", IndexMarker)
	}
	if !d.HasContent() {
		return nil, fmt.Errorf("no %s section found", ContentMarker)
	}

	s := SectionByID(d.ParseSections(), id)
	if s == nil {
		return nil, fmt.Errorf("%w: %s", apperr.ErrSectionNotFound, id)
	}
	return d.Lines[s.Start-1 : s.End], nil
}

// ResolveTitle maps a human title to a section id using the INDEX-declared
// titles: first a case-insensitive exact match in document order, then the
// first case-insensitive substring match.
func (d *Document) ResolveTitle(title string) (string, error) {
	entries := d.IndexEntries()

	for _, e := range entries {
		if strings.EqualFold(e.Title, title) {
			return e.ID, nil
		}
	}
	lower := strings.ToLower(title)
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.Title), lower) {
			return e.ID, nil
		}
	}
	return "", fmt.Errorf("no section found with title matching: %s", title)
}

// IndexText returns the INDEX block's lines, markers excluded.
func (d *Document) IndexText() ([]string, error) {
	if d.IndexMark == -1 || d.ContentMark == -1 {
		return nil, fmt.Errorf("%w: INDEX not generated", apperr.ErrInvalidFormat)
	}
	return d.Lines[d.IndexMark+1 : d.ContentMark], nil
}

// GraphLines renders the reference graph, one line per section in document
// order: a bare id, or "id -> a, b" (outgoing) / "id <- a, b" (incoming).
// The incoming rendering is the exact transpose of the outgoing one.
func GraphLines(sections []models.Section, refs []models.Reference, showIncoming bool) []string {
	outgoing, incoming := Adjacency(refs)

	edges := outgoing
	arrow := "->"
	if showIncoming {
		edges = incoming
		arrow = "<-"
	}

	out := make([]string, 0, len(sections))
	for _, s := range sections {
		if peers := edges[s.ID]; len(peers) > 0 {
			out = append(out, fmt.Sprintf("%s %s %s", s.ID, arrow, strings.Join(peers, ", ")))
		} else {
			out = append(out, s.ID)
		}
	}
	return out
}
