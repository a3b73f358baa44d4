package document

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/winds-ai/iatf/internal/apperr"
)

var (
	day1 = time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	day2 = time.Date(2026, 1, 10, 10, 0, 0, 0, time.UTC)
)

func unifiedDiff(a, b string) string {
	out, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(a),
		B:        difflib.SplitLines(b),
		FromFile: "first",
		ToFile:   "second",
		Context:  3,
	})
	return out
}

func TestRebuild_InsertsAccurateIndex(t *testing.T) {
	out, err := Parse([]byte(sampleDoc)).Rebuild(day1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	d := Parse(out)
	if !d.HasIndex() {
		t.Fatal("no INDEX marker in output")
	}

	// The published line ranges must match a fresh parse of the output.
	entries := d.IndexEntries()
	sections := d.ParseSections()
	if len(entries) != len(sections) {
		t.Fatalf("entries = %d, sections = %d", len(entries), len(sections))
	}
	for i, e := range entries {
		s := sections[i]
		if e.ID != s.ID || e.Start != s.Start || e.End != s.End {
			t.Errorf("entry %s ranges %d-%d, parsed %d-%d", e.ID, e.Start, e.End, s.Start, s.End)
		}
	}

	// Reading by the published range yields the delimited section.
	lines, err := d.ReadSection("intro")
	if err != nil {
		t.Fatalf("ReadSection: %v", err)
	}
	if lines[0] != "{#intro}" || lines[len(lines)-1] != "{/intro}" {
		t.Errorf("section bounds = %q .. %q", lines[0], lines[len(lines)-1])
	}

	// The recorded content hash covers the rewritten document's CONTENT.
	algo, digest, ok := d.RecordedContentHash()
	if !ok || algo != "sha256" || len(digest) != 64 {
		t.Errorf("content hash = %q %q %v", algo, digest, ok)
	}
}

func TestRebuild_Idempotent(t *testing.T) {
	first, err := Parse([]byte(sampleDoc)).Rebuild(day1)
	if err != nil {
		t.Fatalf("first rebuild: %v", err)
	}
	second, err := Parse(first).Rebuild(day1)
	if err != nil {
		t.Fatalf("second rebuild: %v", err)
	}
	if string(first) != string(second) {
		t.Errorf("second rebuild changed the document:\n%s", unifiedDiff(string(first), string(second)))
	}
}

func TestRebuild_UnchangedBodyKeepsDates(t *testing.T) {
	first, err := Parse([]byte(sampleDoc)).Rebuild(day1)
	if err != nil {
		t.Fatalf("first rebuild: %v", err)
	}
	second, err := Parse(first).Rebuild(day2)
	if err != nil {
		t.Fatalf("second rebuild: %v", err)
	}

	meta := Parse(second).IndexMetadata()
	for _, id := range []string{"intro", "usage"} {
		if meta[id].Created != "2026-01-05" || meta[id].Modified != "2026-01-05" {
			t.Errorf("%s dates = %+v, want both 2026-01-05", id, meta[id])
		}
	}
}

func TestRebuild_ChangedBodyTouchesOnlyThatSection(t *testing.T) {
	first, err := Parse([]byte(sampleDoc)).Rebuild(day1)
	if err != nil {
		t.Fatalf("first rebuild: %v", err)
	}

	edited := strings.Replace(string(first), "Run the tool.", "Run the tool, then read on.", 1)
	second, err := Parse([]byte(edited)).Rebuild(day2)
	if err != nil {
		t.Fatalf("second rebuild: %v", err)
	}

	meta := Parse(second).IndexMetadata()
	if meta["usage"].Modified != "2026-01-10" {
		t.Errorf("usage modified = %q, want 2026-01-10", meta["usage"].Modified)
	}
	if meta["usage"].Created != "2026-01-05" {
		t.Errorf("usage created = %q, want 2026-01-05", meta["usage"].Created)
	}
	if meta["intro"].Modified != "2026-01-05" {
		t.Errorf("intro modified = %q, untouched section must keep its date", meta["intro"].Modified)
	}
}

func TestRebuild_PreservesCRLF(t *testing.T) {
	crlf := strings.ReplaceAll(sampleDoc, "\n", "\r\n")
	out, err := Parse([]byte(crlf)).Rebuild(day1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(out), "\r\n") {
		t.Error("CRLF endings were not preserved")
	}
	if strings.Contains(strings.ReplaceAll(string(out), "\r\n", ""), "\n") {
		t.Error("output mixes line endings")
	}
}

func TestRebuild_NoContentMarker(t *testing.T) {
	_, err := Parse([]byte(":::IATF\njust text\n")).Rebuild(day1)
	if err == nil || !strings.Contains(err.Error(), ContentMarker) {
		t.Errorf("err = %v", err)
	}
}

func TestRebuild_NoSections(t *testing.T) {
	_, err := Parse([]byte(":::IATF\n===CONTENT===\n\n")).Rebuild(day1)
	if !errors.Is(err, apperr.ErrNoSections) {
		t.Errorf("err = %v, want ErrNoSections", err)
	}
	if err == nil || !strings.Contains(err.Error(), "no sections found") {
		t.Errorf("err = %v", err)
	}
}

func TestRebuild_DuplicateID(t *testing.T) {
	raw := ":::IATF\n===CONTENT===\n{#a}\n{/a}\n{#a}\n{/a}\n"
	_, err := Parse([]byte(raw)).Rebuild(day1)
	var se *StructuralError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want StructuralError", err)
	}
	if len(se.Problems) != 1 || se.Problems[0] != "Duplicate section ID: a" {
		t.Errorf("problems = %v", se.Problems)
	}
}

func TestRebuild_TooDeep(t *testing.T) {
	raw := ":::IATF\n===CONTENT===\n{#a}\n{#b}\n{#c}\n{/c}\n{/b}\n{/a}\n"
	_, err := Parse([]byte(raw)).Rebuild(day1)
	var se *StructuralError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want StructuralError", err)
	}
	if len(se.Problems) != 1 || !strings.Contains(se.Problems[0], "exceeds 2 levels: c") {
		t.Errorf("problems = %v", se.Problems)
	}
}

func TestRebuild_BadReferenceAborts(t *testing.T) {
	raw := ":::IATF\n===CONTENT===\n{#a}\nsee {@ghost}\n{/a}\n"
	_, err := Parse([]byte(raw)).Rebuild(day1)
	var se *StructuralError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want StructuralError", err)
	}
	if !strings.Contains(se.Problems[0], "target section does not exist") {
		t.Errorf("problems = %v", se.Problems)
	}
}

func TestRebuild_InvalidNesting(t *testing.T) {
	raw := ":::IATF\n===CONTENT===\n{#a}\ntext\n"
	_, err := Parse([]byte(raw)).Rebuild(day1)
	if err == nil || !strings.Contains(err.Error(), "invalid section nesting") {
		t.Errorf("err = %v", err)
	}
}

func TestRenderIndex_EntryShape(t *testing.T) {
	sections := Parse([]byte(sampleDoc)).ParseSections()
	ApplyStaleness(sections, nil, "2026-01-05")
	lines := RenderIndex(sections, strings.Repeat("0", 64), day1)

	if lines[0] != IndexMarker {
		t.Errorf("lines[0] = %q", lines[0])
	}
	wantHead := "# Introduction {#intro | lines:6-11 | words:4}"
	found := false
	for _, l := range lines {
		if l == wantHead {
			found = true
		}
	}
	if !found {
		t.Errorf("entry head %q missing from:\n%s", wantHead, strings.Join(lines, "\n"))
	}
}
