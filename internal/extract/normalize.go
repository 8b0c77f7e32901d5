package extract

import (
	"strings"

	"github.com/mzhang055/twirl/internal/platform"
)

// minTurnLength is the noise floor: normalized text must be strictly longer
// than this to count as a turn.
const minTurnLength = 10

// Normalize strips the platform's known UI noise strings, collapses all runs
// of whitespace to single spaces, and trims.
func Normalize(p *platform.Profile, text string) string {
	for _, noise := range p.NoiseStrings {
		text = strings.ReplaceAll(text, noise, "")
	}
	return strings.Join(strings.Fields(text), " ")
}
