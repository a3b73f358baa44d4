package document

import (
	"strings"

	"github.com/winds-ai/iatf/internal/models"
)

// Header annotation markers recognized immediately after an opening tag.
const (
	annSummary  = "@summary:"
	annCreated  = "@created:"
	annModified = "@modified:"
)

// headerState tracks the per-section annotation sub-state while the
// section's opening lines are being consumed.
type headerState struct {
	active       bool // still in header mode
	continuation bool // an indented line continues the @summary value
	seenSummary  bool
	seenCreated  bool
	seenModified bool
	titleSet     bool // first heading already captured
}

// ParseSections walks the CONTENT region with an explicit open-section
// stack and returns sections in document (pre-order) order. Nesting must
// already have been validated; mismatched closing tags are skipped here.
//
// Directly after its opening tag a section is in header mode: annotation
// lines (@summary:, @created:, @modified:, each recognized once) and
// indented continuations of a @summary value are accumulated as metadata.
// The first line that is neither permanently ends header mode; a later
// @-prefixed line is ordinary body text. The first heading-style line in
// body mode overrides the title (which defaults to the id).
func (d *Document) ParseSections() []models.Section {
	start := d.ContentStart()
	if start == -1 {
		return nil
	}

	var sections []models.Section
	var stack []int // indices into sections
	var headers []headerState

	top := func() *models.Section { return &sections[stack[len(stack)-1]] }

	for i := start; i < len(d.Lines); i++ {
		line := d.Lines[i]

		if m := openRe.FindStringSubmatch(line); m != nil {
			sections = append(sections, models.Section{
				ID:    m[1],
				Title: m[1],
				Start: i + 1, // 1-indexed
				Level: len(stack) + 1,
			})
			stack = append(stack, len(sections)-1)
			headers = append(headers, headerState{active: true})
			continue
		}

		if len(stack) > 0 && headers[len(headers)-1].active {
			h := &headers[len(headers)-1]
			switch {
			case strings.HasPrefix(line, annSummary):
				if !h.seenSummary {
					top().Summary = strings.TrimSpace(line[len(annSummary):])
					h.seenSummary = true
					h.continuation = true
				}
				continue
			case strings.HasPrefix(line, annCreated):
				// Dates live in the INDEX; the annotation is consumed
				// but its value is ignored (staleness engine owns it).
				h.seenCreated = true
				h.continuation = false
				continue
			case strings.HasPrefix(line, annModified):
				h.seenModified = true
				h.continuation = false
				continue
			case strings.HasPrefix(line, "@"):
				// Unknown annotation, still a header line.
				continue
			case h.continuation && (strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")):
				top().Summary = top().Summary + " " + strings.TrimSpace(line)
				continue
			}
			h.active = false
			h.continuation = false
		}

		if m := closeRe.FindStringSubmatch(line); m != nil {
			if len(stack) > 0 && top().ID == m[1] {
				top().End = i + 1 // 1-indexed
				stack = stack[:len(stack)-1]
				headers = headers[:len(headers)-1]
			}
			continue
		}

		if len(stack) > 0 {
			h := &headers[len(headers)-1]
			if strings.HasPrefix(line, "#") && !h.titleSet {
				top().Title = strings.TrimSpace(strings.TrimLeft(line, "#"))
				h.titleSet = true
			}
			top().BodyLines = append(top().BodyLines, line)
		}
	}

	return sections
}

// DuplicateIDs returns each section id that appears more than once, in
// first-duplicate order.
func DuplicateIDs(sections []models.Section) []string {
	seen := make(map[string]int, len(sections))
	var dups []string
	for _, s := range sections {
		seen[s.ID]++
		if seen[s.ID] == 2 {
			dups = append(dups, s.ID)
		}
	}
	return dups
}

// SectionByID returns the first section with the given id, or nil.
func SectionByID(sections []models.Section, id string) *models.Section {
	for i := range sections {
		if sections[i].ID == id {
			return &sections[i]
		}
	}
	return nil
}
