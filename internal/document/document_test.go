package document

import (
	"strings"
	"testing"
)

const sampleDoc = `:::IATF
@version: 1.0

===CONTENT===

{#intro}
@summary: Opening words.
# Introduction

Hello {@usage}.
{/intro}

{#usage}
# Usage

Run the tool.
{/usage}`

func TestParse_Markers(t *testing.T) {
	d := Parse([]byte(sampleDoc))
	if d.IndexMark != -1 {
		t.Errorf("IndexMark = %d, want -1", d.IndexMark)
	}
	if d.ContentMark != 3 {
		t.Errorf("ContentMark = %d, want 3", d.ContentMark)
	}
	if d.EOL != "\n" {
		t.Errorf("EOL = %q, want \\n", d.EOL)
	}
}

func TestParse_FirstMarkerWins(t *testing.T) {
	raw := "===INDEX===\na\n===INDEX===\n===CONTENT===\n"
	d := Parse([]byte(raw))
	if d.IndexMark != 0 {
		t.Errorf("IndexMark = %d, want 0", d.IndexMark)
	}
	if d.ContentMark != 3 {
		t.Errorf("ContentMark = %d, want 3", d.ContentMark)
	}
}

func TestSplitLines_CRLF(t *testing.T) {
	lines, eol := SplitLines([]byte("a\r\nb\r\nc"))
	if eol != "\r\n" {
		t.Errorf("eol = %q, want \\r\\n", eol)
	}
	if len(lines) != 3 || lines[1] != "b" {
		t.Errorf("lines = %v", lines)
	}
}

func TestJoin_RestoresCRLF(t *testing.T) {
	raw := []byte("a\r\nb\r\nc")
	d := Parse(raw)
	if got := string(d.Join(d.Lines)); got != "a\r\nb\r\nc" {
		t.Errorf("Join = %q", got)
	}
}

func TestContentText(t *testing.T) {
	d := Parse([]byte("x\n===CONTENT===\na\nb"))
	if got := d.ContentText(); got != "a\nb" {
		t.Errorf("ContentText = %q", got)
	}

	d = Parse([]byte("no markers here"))
	if got := d.ContentText(); got != "" {
		t.Errorf("ContentText without marker = %q", got)
	}
}

func TestMatchTags(t *testing.T) {
	if id, ok := MatchOpenTag("{#alpha-1}"); !ok || id != "alpha-1" {
		t.Errorf("MatchOpenTag = %q, %v", id, ok)
	}
	if _, ok := MatchOpenTag("{#1bad}"); ok {
		t.Error("id starting with a digit should not match")
	}
	if _, ok := MatchOpenTag("  {#indented}"); ok {
		t.Error("indented tag should not match")
	}
	if id, ok := MatchCloseTag("{/alpha-1}"); !ok || id != "alpha-1" {
		t.Errorf("MatchCloseTag = %q, %v", id, ok)
	}
}

func TestValidateNesting_Valid(t *testing.T) {
	d := Parse([]byte(sampleDoc))
	if err := d.ValidateNesting(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateNesting_Unclosed(t *testing.T) {
	d := Parse([]byte("===CONTENT===\n{#a}\ntext\n"))
	err := d.ValidateNesting()
	if err == nil || !strings.Contains(err.Error(), "unclosed section: a") {
		t.Errorf("err = %v", err)
	}
}

func TestValidateNesting_MismatchedClose(t *testing.T) {
	d := Parse([]byte("===CONTENT===\n{#a}\n{/b}\n{/a}\n"))
	err := d.ValidateNesting()
	if err == nil || !strings.Contains(err.Error(), "closing tag without matching opening: b") {
		t.Errorf("err = %v", err)
	}
}

func TestValidateNesting_NoContent(t *testing.T) {
	d := Parse([]byte(":::IATF\njust text\n"))
	if err := d.ValidateNesting(); err == nil {
		t.Error("expected error for missing CONTENT marker")
	}
}

func TestOpenSectionIDs(t *testing.T) {
	d := Parse([]byte("===CONTENT===\n{#a}\n{#b}\n{/c}\n"))
	unmatched, open := d.OpenSectionIDs()
	if len(unmatched) != 1 || unmatched[0] != "c" {
		t.Errorf("unmatched = %v", unmatched)
	}
	if len(open) != 2 || open[0] != "a" || open[1] != "b" {
		t.Errorf("open = %v", open)
	}
}
