package document

import (
	"fmt"
	"sort"

	"github.com/winds-ai/iatf/internal/models"
)

// References scans the CONTENT region for inline {@target} markers outside
// fenced code blocks, attributing each to its innermost enclosing section.
// The same open-section stack discipline as the nesting scan applies; a
// mismatched closing tag clears the stack so later references are not
// attributed to a section that never closed properly.
func (d *Document) References() []models.Reference {
	start := d.ContentStart()
	if start == -1 {
		return nil
	}

	var refs []models.Reference
	var open []string
	inFence := false

	for i := start; i < len(d.Lines); i++ {
		line := d.Lines[i]

		if inFence {
			if isFenceLine(line) {
				inFence = false
			}
			continue
		}
		if isFenceLine(line) {
			inFence = true
			continue
		}

		if m := openRe.FindStringSubmatch(line); m != nil {
			open = append(open, m[1])
			continue
		}
		if m := closeRe.FindStringSubmatch(line); m != nil {
			if len(open) > 0 && open[len(open)-1] == m[1] {
				open = open[:len(open)-1]
			} else {
				open = open[:0]
			}
			continue
		}

		for _, m := range refRe.FindAllStringSubmatch(line, -1) {
			container := ""
			if len(open) > 0 {
				container = open[len(open)-1]
			}
			refs = append(refs, models.Reference{
				Target:    m[1],
				Line:      i + 1,
				Container: container,
			})
		}
	}

	return refs
}

// ValidateReferences checks every reference against the parsed section
// list: the target must exist, and a section must not reference itself.
// References outside any section are recorded but exempt from the
// self-reference check. Errors are ordered by line, then target.
func ValidateReferences(refs []models.Reference, sections []models.Section) []string {
	valid := make(map[string]bool, len(sections))
	for _, s := range sections {
		valid[s.ID] = true
	}

	ordered := make([]models.Reference, len(refs))
	copy(ordered, refs)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Line != ordered[j].Line {
			return ordered[i].Line < ordered[j].Line
		}
		if ordered[i].Target != ordered[j].Target {
			return ordered[i].Target < ordered[j].Target
		}
		return ordered[i].Container < ordered[j].Container
	})

	var errs []string
	for _, r := range ordered {
		switch {
		case !valid[r.Target]:
			errs = append(errs, fmt.Sprintf("Reference {@%s} at line %d: target section does not exist", r.Target, r.Line))
		case r.Target == r.Container:
			errs = append(errs, fmt.Sprintf("Reference {@%s} at line %d: self-reference not allowed", r.Target, r.Line))
		}
	}
	return errs
}

// Adjacency builds the outgoing and incoming reference maps from the raw
// reference list. Values are sorted and deduplicated; one map is the
// transpose of the other. References with no containing section appear in
// neither map.
func Adjacency(refs []models.Reference) (outgoing, incoming map[string][]string) {
	outgoing = make(map[string][]string)
	incoming = make(map[string][]string)
	for _, r := range refs {
		if r.Container == "" {
			continue
		}
		outgoing[r.Container] = appendUnique(outgoing[r.Container], r.Target)
		incoming[r.Target] = appendUnique(incoming[r.Target], r.Container)
	}
	for id := range outgoing {
		sort.Strings(outgoing[id])
	}
	for id := range incoming {
		sort.Strings(incoming[id])
	}
	return outgoing, incoming
}

func appendUnique(list []string, v string) []string {
	for _, item := range list {
		if item == v {
			return list
		}
	}
	return append(list, v)
}
