package document

import "fmt"

// ValidateNesting proves or disproves well-formed section nesting in the
// CONTENT region with a single stack scan, without parsing section bodies.
// It returns the first violation found, or nil. Every downstream operation
// (section parse, rebuild, read, graph) must refuse to proceed past a
// failure here.
func (d *Document) ValidateNesting() error {
	start := d.ContentStart()
	if start == -1 {
		return fmt.Errorf("no %s section found", ContentMarker)
	}

	var open []string
	for _, line := range d.Lines[start:] {
		if m := openRe.FindStringSubmatch(line); m != nil {
			open = append(open, m[1])
		} else if m := closeRe.FindStringSubmatch(line); m != nil {
			id := m[1]
			if len(open) > 0 && open[len(open)-1] == id {
				open = open[:len(open)-1]
			} else {
				return fmt.Errorf("closing tag without matching opening: %s", id)
			}
		}
	}

	if len(open) > 0 {
		return fmt.Errorf("unclosed section: %s", open[len(open)-1])
	}
	return nil
}

// OpenSectionIDs returns the ids left open at end of CONTENT, innermost
// last. Used by the validator to report every unclosed section, where
// ValidateNesting stops at the first.
func (d *Document) OpenSectionIDs() (unmatched []string, open []string) {
	start := d.ContentStart()
	if start == -1 {
		return nil, nil
	}
	for _, line := range d.Lines[start:] {
		if m := openRe.FindStringSubmatch(line); m != nil {
			open = append(open, m[1])
		} else if m := closeRe.FindStringSubmatch(line); m != nil {
			id := m[1]
			if len(open) > 0 && open[len(open)-1] == id {
				open = open[:len(open)-1]
			} else {
				unmatched = append(unmatched, id)
			}
		}
	}
	return unmatched, open
}
