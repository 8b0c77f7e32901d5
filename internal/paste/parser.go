package paste

import (
	"strings"

	"github.com/mzhang055/twirl/internal/model"
)

// userLabels are the speaker labels that map to the user role; every other
// recognized label is the assistant.
var userLabels = map[string]bool{
	"user":  true,
	"you":   true,
	"human": true,
}

// Parse segments labeled text into turns. A line starting with a recognized
// speaker label opens a turn; following unlabeled lines are appended to it,
// joined with single spaces. Text before the first label, including any
// transfer header, is dropped. Short turns are kept as-is here; length
// filtering belongs to live extraction, not to text the user chose to paste.
func Parse(text string) []model.Turn {
	var turns []model.Turn
	var role model.Role
	var parts []string
	open := false

	flush := func() {
		if !open {
			return
		}
		body := strings.TrimSpace(strings.Join(parts, " "))
		if body != "" {
			turns = append(turns, model.Turn{Role: role, Text: body})
		}
		parts = parts[:0]
		open = false
	}

	for _, line := range strings.Split(text, "\n") {
		loc := labelLine.FindStringSubmatchIndex(line)
		if loc != nil {
			flush()
			label := strings.ToLower(line[loc[2]:loc[3]])
			if userLabels[label] {
				role = model.RoleUser
			} else {
				role = model.RoleAI
			}
			parts = append(parts, strings.TrimSpace(line[loc[1]:]))
			open = true
			continue
		}
		if open {
			if trimmed := strings.TrimSpace(line); trimmed != "" {
				parts = append(parts, trimmed)
			}
		}
	}
	flush()
	return turns
}
