package document

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/winds-ai/iatf/internal/models"
)

var (
	// indexHeadRe matches the start of an INDEX entry line up to the id,
	// enough to attribute the following metadata lines.
	indexHeadRe = regexp.MustCompile(`^#{1,6}\s+.*\{#([a-zA-Z][a-zA-Z0-9_-]*)\s*\|`)

	// indexEntryRe captures title, id, and line range of a full entry.
	indexEntryRe = regexp.MustCompile(`^#{1,6}\s+(.+?)\s*\{#([a-zA-Z][a-zA-Z0-9_-]*)\s*\|\s*lines:(\d+)-(\d+)[^}]*\}$`)

	// contentHashRe matches the whole-document hash comment.
	contentHashRe = regexp.MustCompile(`^<!-- Content-Hash:\s*([a-z0-9]+):([a-f0-9]+)\s*-->$`)
)

// indexRegion returns the lines strictly between the INDEX and CONTENT
// markers, or nil when either marker is absent or out of order.
func (d *Document) indexRegion() []string {
	if d.IndexMark == -1 || d.ContentMark == -1 || d.IndexMark >= d.ContentMark {
		return nil
	}
	return d.Lines[d.IndexMark+1 : d.ContentMark]
}

// IndexMetadata recovers per-section hash/created/modified values from the
// existing INDEX block, keyed by section id. This is the staleness engine's
// view of the previous rebuild; it must run before the INDEX is replaced.
func (d *Document) IndexMetadata() map[string]models.IndexMeta {
	meta := make(map[string]models.IndexMeta)
	currentID := ""

	for _, line := range d.indexRegion() {
		stripped := strings.TrimSpace(line)
		if stripped == "" {
			currentID = ""
			continue
		}

		if m := indexHeadRe.FindStringSubmatch(stripped); m != nil {
			currentID = m[1]
			if _, ok := meta[currentID]; !ok {
				meta[currentID] = models.IndexMeta{}
			}
			continue
		}
		if currentID == "" {
			continue
		}

		if strings.HasPrefix(stripped, "Hash:") {
			entry := meta[currentID]
			entry.Hash = strings.TrimSpace(strings.TrimPrefix(stripped, "Hash:"))
			meta[currentID] = entry
			continue
		}

		if strings.HasPrefix(stripped, "Created:") || strings.HasPrefix(stripped, "Modified:") {
			entry := meta[currentID]
			for _, part := range strings.Split(stripped, "|") {
				part = strings.TrimSpace(part)
				if v, ok := strings.CutPrefix(part, "Created:"); ok {
					entry.Created = strings.TrimSpace(v)
				}
				if v, ok := strings.CutPrefix(part, "Modified:"); ok {
					entry.Modified = strings.TrimSpace(v)
				}
			}
			meta[currentID] = entry
		}
	}

	return meta
}

// IndexEntries parses the line-range entries the INDEX publishes, in
// document order. Used by title lookup and by the INDEX/CONTENT
// cross-check.
func (d *Document) IndexEntries() []models.IndexEntry {
	var entries []models.IndexEntry
	for _, line := range d.indexRegion() {
		m := indexEntryRe.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		start, _ := strconv.Atoi(m[3])
		end, _ := strconv.Atoi(m[4])
		entries = append(entries, models.IndexEntry{
			Title: m[1],
			ID:    m[2],
			Start: start,
			End:   end,
		})
	}
	return entries
}

// RecordedContentHash returns the algorithm and digest from the INDEX's
// Content-Hash comment. ok is false when no well-formed comment exists.
func (d *Document) RecordedContentHash() (algo, digest string, ok bool) {
	for _, line := range d.indexRegion() {
		if !strings.HasPrefix(line, "<!-- Content-Hash:") {
			continue
		}
		if m := contentHashRe.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			return m[1], m[2], true
		}
		return "", "", false
	}
	return "", "", false
}

// HasContentHashComment reports whether any Content-Hash comment line is
// present, well-formed or not.
func (d *Document) HasContentHashComment() bool {
	for _, line := range d.indexRegion() {
		if strings.HasPrefix(line, "<!-- Content-Hash:") {
			return true
		}
	}
	return false
}
