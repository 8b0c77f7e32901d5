package paste

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mzhang055/twirl/internal/model"
)

func TestParseLabeledConversation(t *testing.T) {
	turns := Parse("User: Hi\nAI: Hello! As an AI I can help.\nUser: Thanks")
	require.Len(t, turns, 3)
	assert.Equal(t, model.Turn{Role: model.RoleUser, Text: "Hi"}, turns[0])
	assert.Equal(t, model.Turn{Role: model.RoleAI, Text: "Hello! As an AI I can help."}, turns[1])
	assert.Equal(t, model.Turn{Role: model.RoleUser, Text: "Thanks"}, turns[2])
}

func TestParseKeepsShortTurns(t *testing.T) {
	// Length filtering applies to live extraction only; pasted text keeps
	// every labeled turn, however short.
	turns := Parse("User: Hi\nAI: Ok")
	require.Len(t, turns, 2)
	assert.Equal(t, "Hi", turns[0].Text)
	assert.Equal(t, "Ok", turns[1].Text)
}

func TestParseContinuationLinesJoined(t *testing.T) {
	text := "Human: first line\nsecond line\n\nAssistant: reply line one\nreply line two"
	turns := Parse(text)
	require.Len(t, turns, 2)
	assert.Equal(t, model.RoleUser, turns[0].Role)
	assert.Equal(t, "first line second line", turns[0].Text)
	assert.Equal(t, model.RoleAI, turns[1].Role)
	assert.Equal(t, "reply line one reply line two", turns[1].Text)
}

func TestParseLabelMapping(t *testing.T) {
	cases := map[string]model.Role{
		"user":      model.RoleUser,
		"You":       model.RoleUser,
		"HUMAN":     model.RoleUser,
		"ai":        model.RoleAI,
		"Assistant": model.RoleAI,
		"Claude":    model.RoleAI,
		"ChatGPT":   model.RoleAI,
		"Gemini":    model.RoleAI,
		"bot":       model.RoleAI,
		"model":     model.RoleAI,
	}
	for label, want := range cases {
		turns := Parse(label + ": something worth keeping here")
		require.Len(t, turns, 1, "label %q", label)
		assert.Equal(t, want, turns[0].Role, "label %q", label)
	}
}

func TestParseDropsPreambleBeforeFirstLabel(t *testing.T) {
	text := "Context from ChatGPT:\n\nUser: question\nAI: answer"
	turns := Parse(text)
	require.Len(t, turns, 2)
	assert.Equal(t, "question", turns[0].Text)
}

func TestParseUnlabeledTextYieldsNothing(t *testing.T) {
	assert.Empty(t, Parse("just some prose\nwith no speakers at all"))
	assert.Empty(t, Parse(""))
}

func TestParseEmptyLabeledLineSkipped(t *testing.T) {
	// A label with no body and no continuation produces no turn.
	turns := Parse("User:\nAI: real answer")
	require.Len(t, turns, 1)
	assert.Equal(t, model.RoleAI, turns[0].Role)
}
