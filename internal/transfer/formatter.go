// Package transfer turns a stored conversation back into prompt text and
// places it into a target platform's input surface.
package transfer

import (
	"strings"

	"github.com/mzhang055/twirl/internal/model"
)

const (
	// DefaultMaxLength caps formatted output so it fits the target input.
	DefaultMaxLength = 10000
	// DefaultMaxTurns caps how many turns are included, oldest first.
	DefaultMaxTurns = 50
	// TruncationMarker ends any output that had to be cut.
	TruncationMarker = "[Truncated due to length]"
)

// footers asks the target model to pick the conversation up, phrased per
// platform.
var footers = map[model.Platform]string{
	model.PlatformChatGPT:    "\n\n---\n\nPlease continue this conversation where we left off.",
	model.PlatformClaude:     "\n\n---\n\nPlease continue this conversation based on the context above.",
	model.PlatformPerplexity: "\n\n---\n\nPlease continue this conversation and provide additional insights.",
	model.PlatformGemini:     "\n\n---\n\nPlease continue this conversation with your perspective.",
}

const defaultFooter = "\n\n---\n\nPlease continue this conversation."

// Formatter renders conversation records as injectable prompt text.
type Formatter struct {
	MaxLength int
	MaxTurns  int
}

// NewFormatter returns a formatter with the default bounds.
func NewFormatter() *Formatter {
	return &Formatter{MaxLength: DefaultMaxLength, MaxTurns: DefaultMaxTurns}
}

// Format renders the record as header, labeled turns and a target-specific
// footer. Angle brackets are stripped from turn text before it is re-injected
// into a foreign page. Output never exceeds MaxLength; cut output ends with
// the truncation marker.
func (f *Formatter) Format(rec *model.ConversationRecord, target model.Platform) string {
	source := strings.TrimSpace(sanitize(rec.Source))
	if source == "" {
		source = "Previous conversation"
	}
	header := "Context from " + source + ":\n\n"

	turns := rec.Turns
	if f.MaxTurns > 0 && len(turns) > f.MaxTurns {
		turns = turns[:f.MaxTurns]
	}
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		text := strings.TrimSpace(sanitize(t.Text))
		if text == "" {
			continue
		}
		lines = append(lines, t.Role.Label()+": "+text)
	}

	footer, ok := footers[target]
	if !ok {
		footer = defaultFooter
	}

	out := header + strings.Join(lines, "\n\n") + footer
	return truncate(out, f.MaxLength)
}

// Format renders a record with the default bounds.
func Format(rec *model.ConversationRecord, target model.Platform) string {
	return NewFormatter().Format(rec, target)
}

var bracketStripper = strings.NewReplacer("<", "", ">", "")

func sanitize(s string) string {
	return bracketStripper.Replace(s)
}

// StripBrackets removes angle brackets from a label so it cannot carry markup
// into the target page.
func StripBrackets(s string) string {
	return sanitize(s)
}

// truncate cuts on rune boundaries so a multibyte character is never split,
// leaving room for the marker inside the limit.
func truncate(s string, maxLength int) string {
	if maxLength <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxLength {
		return s
	}
	suffix := "\n\n" + TruncationMarker
	keep := maxLength - len([]rune(suffix))
	if keep < 0 {
		keep = 0
	}
	return string(runes[:keep]) + suffix
}
