package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mzhang055/twirl/internal/model"
)

func TestDetectKnownHosts(t *testing.T) {
	cases := map[string]model.Platform{
		"chatgpt.com":       model.PlatformChatGPT,
		"chat.openai.com":   model.PlatformChatGPT,
		"claude.ai":         model.PlatformClaude,
		"gemini.google.com": model.PlatformGemini,
		"bard.google.com":   model.PlatformGemini,
		"perplexity.ai":     model.PlatformPerplexity,
		"poe.com":           model.PlatformPoe,
		"character.ai":      model.PlatformCharacter,
	}
	for host, want := range cases {
		p := Detect(host)
		require.NotNil(t, p, host)
		assert.Equal(t, want, p.ID, host)
	}
}

func TestDetectSubdomains(t *testing.T) {
	assert.Equal(t, model.PlatformChatGPT, Detect("www.chatgpt.com").ID)
	assert.Equal(t, model.PlatformPerplexity, Detect("www.perplexity.ai").ID)
	assert.Equal(t, model.PlatformClaude, Detect("CLAUDE.AI").ID)

	// Suffix matching is on dot boundaries, not substrings.
	assert.Equal(t, model.PlatformUnknown, Detect("notchatgpt.com").ID)
}

func TestDetectUnknownHostFallsBackToGeneric(t *testing.T) {
	p := Detect("example.com")
	require.NotNil(t, p)
	assert.Equal(t, model.PlatformUnknown, p.ID)
	assert.Same(t, Generic(), p)
}

func TestByID(t *testing.T) {
	assert.Equal(t, model.PlatformClaude, ByID(model.PlatformClaude).ID)
	assert.Same(t, Generic(), ByID(model.Platform("nope")))
	assert.Same(t, Generic(), ByID(model.PlatformUnknown))
}

func TestAllExcludesGeneric(t *testing.T) {
	for _, p := range All() {
		assert.NotEqual(t, model.PlatformUnknown, p.ID)
	}
	assert.Len(t, All(), 6)
}

func TestProfilesAreComplete(t *testing.T) {
	check := func(t *testing.T, p *Profile) {
		t.Helper()
		assert.NotEmpty(t, p.DisplayName)
		assert.NotEmpty(t, p.MessageTiers)
		assert.NotEmpty(t, p.TextSelectors)
		assert.NotEmpty(t, p.ContainerSelectors)
		assert.Positive(t, p.RetryDelay)
	}
	for _, p := range All() {
		check(t, p)
		assert.NotEmpty(t, p.Hosts, string(p.ID))
	}
	check(t, Generic())
}
