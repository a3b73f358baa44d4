package document

import (
	"strings"

	"github.com/winds-ai/iatf/internal/checksum"
	"github.com/winds-ai/iatf/internal/models"
)

// BodyHash computes the truncated SHA-256 digest over a section's body
// lines joined by newline.
func BodyHash(bodyLines []string) string {
	return checksum.Short([]byte(strings.Join(bodyLines, "\n")))
}

// WordCount counts whitespace-separated tokens across body lines.
func WordCount(bodyLines []string) int {
	return len(strings.Fields(strings.Join(bodyLines, " ")))
}

// ApplyStaleness fills in hash, word count, and created/modified dates for
// every section, diffing the fresh body hash against the metadata recorded
// by the previous rebuild. The rules realize "touch only on real content
// change": a rebuild that edits no body lines must leave every date
// byte-identical.
//
//   - no prior hash: created = today; modified = prior value if recorded,
//     else today.
//   - prior hash equals the new hash: both dates carried forward.
//   - prior hash differs: created carried forward (today if never set),
//     modified = today.
func ApplyStaleness(sections []models.Section, prior map[string]models.IndexMeta, today string) {
	for i := range sections {
		s := &sections[i]
		newHash := BodyHash(s.BodyLines)
		meta := prior[s.ID]

		s.WordCount = WordCount(s.BodyLines)

		if meta.Created != "" {
			s.Created = meta.Created
		} else {
			s.Created = today
		}

		switch {
		case meta.Hash != "" && meta.Hash != newHash:
			s.Modified = today
		case meta.Hash != "":
			s.Modified = meta.Modified
		case meta.Modified != "":
			s.Modified = meta.Modified
		default:
			s.Modified = today
		}

		s.Hash = newHash
	}
}
