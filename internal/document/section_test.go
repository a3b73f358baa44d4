package document

import (
	"strings"
	"testing"
)

func TestParseSections_Sample(t *testing.T) {
	d := Parse([]byte(sampleDoc))
	sections := d.ParseSections()
	if len(sections) != 2 {
		t.Fatalf("len(sections) = %d, want 2", len(sections))
	}

	intro := sections[0]
	if intro.ID != "intro" || intro.Title != "Introduction" {
		t.Errorf("intro = %q/%q", intro.ID, intro.Title)
	}
	if intro.Start != 6 || intro.End != 11 {
		t.Errorf("intro range = %d-%d, want 6-11", intro.Start, intro.End)
	}
	if intro.Summary != "Opening words." {
		t.Errorf("summary = %q", intro.Summary)
	}
	if intro.Level != 1 {
		t.Errorf("level = %d, want 1", intro.Level)
	}

	usage := sections[1]
	if usage.ID != "usage" || usage.Start != 13 || usage.End != 17 {
		t.Errorf("usage = %q %d-%d", usage.ID, usage.Start, usage.End)
	}
}

func TestParseSections_TitleDefaultsToID(t *testing.T) {
	d := Parse([]byte("===CONTENT===\n{#plain}\nno heading here\n{/plain}\n"))
	sections := d.ParseSections()
	if len(sections) != 1 || sections[0].Title != "plain" {
		t.Errorf("sections = %+v", sections)
	}
}

func TestParseSections_FirstHeadingWins(t *testing.T) {
	d := Parse([]byte("===CONTENT===\n{#a}\n# First\n## Second\n{/a}\n"))
	sections := d.ParseSections()
	if sections[0].Title != "First" {
		t.Errorf("title = %q, want First", sections[0].Title)
	}
}

func TestParseSections_SummaryContinuation(t *testing.T) {
	raw := strings.Join([]string{
		"===CONTENT===",
		"{#a}",
		"@summary: First part",
		"  and the rest.",
		"# A",
		"body",
		"{/a}",
	}, "\n")
	d := Parse([]byte(raw))
	sections := d.ParseSections()
	if sections[0].Summary != "First part and the rest." {
		t.Errorf("summary = %q", sections[0].Summary)
	}
}

func TestParseSections_HeaderEndsOnBody(t *testing.T) {
	// A later @-line is ordinary body text, not an annotation.
	raw := strings.Join([]string{
		"===CONTENT===",
		"{#a}",
		"# A",
		"@summary: too late",
		"{/a}",
	}, "\n")
	d := Parse([]byte(raw))
	sections := d.ParseSections()
	if sections[0].Summary != "" {
		t.Errorf("summary = %q, want empty", sections[0].Summary)
	}
	found := false
	for _, l := range sections[0].BodyLines {
		if l == "@summary: too late" {
			found = true
		}
	}
	if !found {
		t.Errorf("late annotation missing from body: %v", sections[0].BodyLines)
	}
}

func TestParseSections_Nested(t *testing.T) {
	raw := strings.Join([]string{
		"===CONTENT===",
		"{#parent}",
		"# Parent",
		"{#child}",
		"# Child",
		"child body",
		"{/child}",
		"{/parent}",
	}, "\n")
	d := Parse([]byte(raw))
	sections := d.ParseSections()
	if len(sections) != 2 {
		t.Fatalf("len(sections) = %d, want 2", len(sections))
	}
	if sections[0].Level != 1 || sections[1].Level != 2 {
		t.Errorf("levels = %d, %d", sections[0].Level, sections[1].Level)
	}
	// Child body lines belong to the child only.
	for _, l := range sections[0].BodyLines {
		if l == "child body" {
			t.Error("child body attributed to parent")
		}
	}
}

func TestDuplicateIDs(t *testing.T) {
	d := Parse([]byte("===CONTENT===\n{#a}\n{/a}\n{#a}\n{/a}\n{#b}\n{/b}\n"))
	dups := DuplicateIDs(d.ParseSections())
	if len(dups) != 1 || dups[0] != "a" {
		t.Errorf("dups = %v", dups)
	}
}

func TestSectionByID(t *testing.T) {
	sections := Parse([]byte(sampleDoc)).ParseSections()
	if s := SectionByID(sections, "usage"); s == nil || s.ID != "usage" {
		t.Errorf("SectionByID(usage) = %+v", s)
	}
	if s := SectionByID(sections, "missing"); s != nil {
		t.Errorf("expected nil, got %+v", s)
	}
}
