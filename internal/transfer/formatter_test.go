package transfer

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mzhang055/twirl/internal/model"
	"github.com/mzhang055/twirl/internal/paste"
)

func sampleRecord() *model.ConversationRecord {
	return &model.ConversationRecord{
		ID:       "chatgpt_c_abc_1700000000000",
		Platform: model.PlatformChatGPT,
		Source:   "ChatGPT",
		Turns: []model.Turn{
			{Role: model.RoleUser, Text: "Explain channels in Go"},
			{Role: model.RoleAI, Text: "Channels are typed conduits for communication between goroutines."},
			{Role: model.RoleUser, Text: "What about buffered ones?"},
		},
		TurnCount: 3,
		CreatedAt: time.Unix(1700000000, 0).UTC(),
	}
}

func TestFormatShape(t *testing.T) {
	out := Format(sampleRecord(), model.PlatformClaude)

	assert.True(t, strings.HasPrefix(out, "Context from ChatGPT:\n\n"))
	assert.Contains(t, out, "User: Explain channels in Go")
	assert.Contains(t, out, "AI: Channels are typed conduits")
	assert.True(t, strings.HasSuffix(out, "Please continue this conversation based on the context above."))
}

func TestFormatFooterPerTarget(t *testing.T) {
	rec := sampleRecord()
	assert.True(t, strings.HasSuffix(Format(rec, model.PlatformChatGPT), "where we left off."))
	assert.True(t, strings.HasSuffix(Format(rec, model.PlatformPerplexity), "provide additional insights."))
	assert.True(t, strings.HasSuffix(Format(rec, model.PlatformGemini), "with your perspective."))
	assert.True(t, strings.HasSuffix(Format(rec, model.PlatformPoe), "Please continue this conversation."))
}

func TestFormatDefaultSource(t *testing.T) {
	rec := sampleRecord()
	rec.Source = ""
	out := Format(rec, model.PlatformClaude)
	assert.True(t, strings.HasPrefix(out, "Context from Previous conversation:\n\n"))
}

func TestFormatStripsAngleBrackets(t *testing.T) {
	rec := sampleRecord()
	rec.Turns = []model.Turn{
		{Role: model.RoleUser, Text: "look at this <script>alert(1)</script> tag"},
	}
	out := Format(rec, model.PlatformClaude)
	assert.NotContains(t, out, "<")
	assert.NotContains(t, out, ">")
	assert.Contains(t, out, "scriptalert(1)/script")
}

func TestFormatSanitizesSource(t *testing.T) {
	rec := sampleRecord()
	rec.Source = "<img src=x onerror=alert(1)>ChatGPT"
	out := Format(rec, model.PlatformClaude)

	assert.True(t, strings.HasPrefix(out, "Context from img src=x onerror=alert(1)ChatGPT:\n\n"))
	assert.NotContains(t, out, "<")
	assert.NotContains(t, out, ">")

	// A source that is nothing but markup falls back to the default label.
	rec.Source = "<>"
	out = Format(rec, model.PlatformClaude)
	assert.True(t, strings.HasPrefix(out, "Context from Previous conversation:\n\n"))
}

func TestStripBrackets(t *testing.T) {
	assert.Equal(t, "img src=x", StripBrackets("<img src=x>"))
	assert.Equal(t, "plain", StripBrackets("plain"))
}

func TestFormatSkipsEmptyTurns(t *testing.T) {
	rec := sampleRecord()
	rec.Turns = []model.Turn{
		{Role: model.RoleUser, Text: "   "},
		{Role: model.RoleAI, Text: "only real content"},
	}
	out := Format(rec, model.PlatformClaude)
	assert.NotContains(t, out, "User:")
	assert.Contains(t, out, "AI: only real content")
}

func TestFormatCapsTurnCount(t *testing.T) {
	rec := sampleRecord()
	rec.Turns = nil
	for i := 0; i < DefaultMaxTurns+10; i++ {
		rec.Turns = append(rec.Turns, model.Turn{Role: model.RoleUser, Text: "turn body text"})
	}
	out := Format(rec, model.PlatformClaude)
	assert.Equal(t, DefaultMaxTurns, strings.Count(out, "User: turn body text"))
}

func TestFormatNeverExceedsMaxLength(t *testing.T) {
	rec := sampleRecord()
	rec.Turns = []model.Turn{
		{Role: model.RoleAI, Text: strings.Repeat("long answer ", 2000)},
	}
	out := Format(rec, model.PlatformClaude)

	assert.LessOrEqual(t, len([]rune(out)), DefaultMaxLength)
	assert.True(t, strings.HasSuffix(out, "\n\n"+TruncationMarker))
}

func TestFormatCustomMaxLength(t *testing.T) {
	f := &Formatter{MaxLength: 200, MaxTurns: DefaultMaxTurns}
	out := f.Format(sampleRecord(), model.PlatformClaude)

	assert.LessOrEqual(t, len([]rune(out)), 200)
	assert.True(t, strings.HasSuffix(out, TruncationMarker))
}

func TestTruncateRuneSafe(t *testing.T) {
	s := strings.Repeat("héllo wörld ", 100)
	out := truncate(s, 50)
	require.True(t, len([]rune(out)) <= 50)
	assert.True(t, strings.HasSuffix(out, TruncationMarker))
	// Valid UTF-8 throughout, no split multibyte character.
	assert.Equal(t, out, string([]rune(out)))
}

func TestRoundTripThroughPasteParser(t *testing.T) {
	rec := sampleRecord()
	out := Format(rec, model.PlatformClaude)

	// Strip the footer the way a user trimming the prompt would; the header
	// is unlabeled and dropped by the parser on its own.
	body := strings.TrimSuffix(out, footers[model.PlatformClaude])

	turns := paste.Parse(body)
	require.Len(t, turns, len(rec.Turns))
	for i, turn := range turns {
		assert.Equal(t, rec.Turns[i].Role, turn.Role, "turn %d", i)
		assert.Equal(t, rec.Turns[i].Text, turn.Text, "turn %d", i)
	}
}
