package platform

import (
	"strings"
	"time"

	"github.com/mzhang055/twirl/internal/model"
)

// universalTextSelectors cover the common markup of platforms that have no
// dedicated text-extraction markup of their own.
var universalTextSelectors = []string{
	".whitespace-pre-wrap",
	".markdown",
	".prose",
	"p",
	".text-base",
	".message-content",
}

var chatGPT = &Profile{
	ID:          model.PlatformChatGPT,
	DisplayName: "ChatGPT",
	Hosts:       []string{"chat.openai.com", "chatgpt.com", "openai.com"},
	MessageTiers: []Tier{
		{Patterns: []string{
			`[data-testid="conversation-turn"]`,
			".group.w-full",
			".flex.flex-col.items-start.gap-4.whitespace-pre-wrap",
			".text-base",
			".prose",
		}},
		{Min: 3, Patterns: []string{
			"[data-message-author-role]",
			".whitespace-pre-wrap",
			`div[class*="group"]`,
			`div[class*="flex"]`,
		}},
	},
	TextSelectors: []string{
		".whitespace-pre-wrap",
		".markdown",
		".prose",
		"p",
		".text-base",
	},
	ContainerSelectors: []string{
		"main",
		`[role="presentation"]`,
		"body",
	},
	RoleRules: []RoleRule{
		{Kind: AttrEquals, Attr: "data-message-author-role", Value: "user", Role: model.RoleUser},
		{Kind: AttrEquals, Attr: "data-message-author-role", Value: "assistant", Role: model.RoleAI},
		{Kind: HasDescendant, Selector: `[data-testid="user-message"]`, Role: model.RoleUser},
		{Kind: HasDescendant, Selector: ".bg-gray-50", Role: model.RoleUser},
		{Kind: SelfOrAncestorMatches, Selector: `[data-message-author-role="user"]`, Role: model.RoleUser},
		{Kind: HasDescendant, Selector: `[data-testid="bot-message"]`, Role: model.RoleAI},
		{Kind: HasDescendant, Selector: ".gizmo-bot-avatar", Role: model.RoleAI},
		{Kind: SelfOrAncestorMatches, Selector: `[data-message-author-role="assistant"]`, Role: model.RoleAI},
		{Kind: ClassContains, Value: "user", Role: model.RoleUser},
		{Kind: HasDescendant, Selector: ".justify-end", Role: model.RoleUser},
		{Kind: HasDescendant, Selector: ".ml-auto", Role: model.RoleUser},
	},
	NoiseStrings: []string{"Copy code"},
	RetryDelay:   3 * time.Second,
}

var claude = &Profile{
	ID:          model.PlatformClaude,
	DisplayName: "Claude",
	Hosts:       []string{"claude.ai"},
	MessageTiers: []Tier{
		{Patterns: []string{
			`[data-testid="conversation"] > div > div`,
			".font-claude-message",
			`[role="article"]`,
			".prose.dark:prose-invert",
			`div[class*="font-user-message"]`,
			`div[class*="font-claude-message"]`,
		}},
		{Min: 3, Patterns: []string{
			`main div[class*="flex"][class*="flex-col"]`,
			`div[class*="whitespace-pre-wrap"]`,
			`div[class*="prose"]`,
		}},
	},
	TextSelectors: []string{
		".prose",
		".whitespace-pre-wrap",
		"p",
		`div[class*="text-"]`,
		".font-claude-message",
		".font-user-message",
	},
	ContainerSelectors: []string{
		`[data-testid="conversation"]`,
		"main",
		`div[class*="conversation"]`,
		"body",
	},
	RoleRules: []RoleRule{
		{Kind: ClassContains, Value: "font-user-message", Role: model.RoleUser},
		{Kind: ClassContains, Value: "user-message", Role: model.RoleUser},
		{Kind: SelfOrAncestorMatches, Selector: `[data-is-author="true"]`, Role: model.RoleUser},
		{Kind: ClassContains, Value: "font-claude-message", Role: model.RoleAI},
		{Kind: ClassContains, Value: "claude-message", Role: model.RoleAI},
		{Kind: TextContains, Value: "Claude", Role: model.RoleAI},
		{Kind: SelfOrAncestorMatches, Selector: `[data-is-author="false"]`, Role: model.RoleAI},
		{Kind: ClassContainsAll, Values: []string{"bg-", "slate"}, Role: model.RoleUser},
		{Kind: ClassContainsAll, Values: []string{"bg-", "gray"}, Role: model.RoleUser},
	},
	NoiseStrings: []string{"Copy code"},
	RetryDelay:   2 * time.Second,
}

var gemini = &Profile{
	ID:          model.PlatformGemini,
	DisplayName: "Gemini",
	Hosts:       []string{"gemini.google.com", "bard.google.com"},
	MessageTiers: []Tier{
		{Patterns: []string{
			`[data-test-id="message"]`,
			`[data-test-id="user-message"]`,
			`[data-test-id="model-message"]`,
			".message-content",
			".conversation-turn",
			".user-turn",
			".model-turn",
			"model-response",
			".response-container",
		}},
		{Min: 3, Patterns: []string{
			`div[class*="conversation"]`,
			`div[class*="message"]`,
			`div[class*="turn"]`,
			".ql-editor",
			"div[jsaction]",
			`main div[class*="flex"]`,
		}},
	},
	TextSelectors: []string{
		".ql-editor",
		".message-content",
		`div[class*="text-"]`,
		"p",
		"span",
		".markdown-body",
	},
	ContainerSelectors: []string{
		"main",
		`[data-test-id="conversation"]`,
		`div[class*="conversation"]`,
		"div[jscontroller]",
		"body",
	},
	RoleRules: []RoleRule{
		{Kind: AttrContains, Attr: "data-test-id", Value: "user-message", Role: model.RoleUser},
		{Kind: ClassContains, Value: "user-turn", Role: model.RoleUser},
		{Kind: ClassContains, Value: "user-message", Role: model.RoleUser},
		{Kind: SelfOrAncestorMatches, Selector: `[data-test-id="user-message"]`, Role: model.RoleUser},
		{Kind: SelfOrAncestorMatches, Selector: ".user-turn", Role: model.RoleUser},
		{Kind: AttrContains, Attr: "data-test-id", Value: "model-message", Role: model.RoleAI},
		{Kind: ClassContains, Value: "model-turn", Role: model.RoleAI},
		{Kind: ClassContains, Value: "model-response", Role: model.RoleAI},
		{Kind: TextContains, Value: "Gemini", Role: model.RoleAI},
		{Kind: SelfOrAncestorMatches, Selector: `[data-test-id="model-message"]`, Role: model.RoleAI},
		{Kind: SelfOrAncestorMatches, Selector: ".model-turn", Role: model.RoleAI},
		{Kind: ClassContains, Value: "bg-blue", Role: model.RoleUser},
		{Kind: ClassContains, Value: "user", Role: model.RoleUser},
	},
	NoiseStrings: []string{"Copy code", "View other drafts"},
	RetryDelay:   3 * time.Second,
}

var perplexity = &Profile{
	ID:          model.PlatformPerplexity,
	DisplayName: "Perplexity",
	Hosts:       []string{"perplexity.ai"},
	MessageTiers: []Tier{
		{Patterns: []string{
			".prose",
			`[data-testid="message"]`,
			".message",
			".whitespace-pre-wrap",
		}},
	},
	TextSelectors: universalTextSelectors,
	ContainerSelectors: []string{
		"main",
		".conversation",
		"body",
	},
	RoleRules: []RoleRule{
		{Kind: SelfOrAncestorMatches, Selector: ".bg-blue-50", Role: model.RoleUser},
		{Kind: SelfOrAncestorMatches, Selector: `[data-testid="user-message"]`, Role: model.RoleUser},
		{Kind: ClassContains, Value: "user", Role: model.RoleUser},
	},
	NoiseStrings: []string{"Copy code"},
	RetryDelay:   3 * time.Second,
}

var poe = &Profile{
	ID:          model.PlatformPoe,
	DisplayName: "Poe",
	Hosts:       []string{"poe.com"},
	MessageTiers: []Tier{
		{Patterns: []string{
			`[class*="Message_messageRow"]`,
			".Message_botMessageBubble",
			".Message_humanMessageBubble",
			".break-words",
		}},
	},
	TextSelectors: universalTextSelectors,
	ContainerSelectors: []string{
		"main",
		"body",
	},
	RoleRules: []RoleRule{
		{Kind: ClassContains, Value: "Message_humanMessageBubble", Role: model.RoleUser},
		{Kind: SelfOrAncestorMatches, Selector: ".Message_humanMessageBubble", Role: model.RoleUser},
		{Kind: ClassContains, Value: "Message_botMessageBubble", Role: model.RoleAI},
	},
	NoiseStrings: []string{"Copy code"},
	RetryDelay:   3 * time.Second,
}

var characterAI = &Profile{
	ID:          model.PlatformCharacter,
	DisplayName: "Character.AI",
	Hosts:       []string{"character.ai"},
	MessageTiers: []Tier{
		{Patterns: []string{
			`[data-testid="message"]`,
			".msg",
			".message",
		}},
	},
	TextSelectors: universalTextSelectors,
	ContainerSelectors: []string{
		"main",
		"body",
	},
	RoleRules: []RoleRule{
		{Kind: ClassContains, Value: "user-msg", Role: model.RoleUser},
		{Kind: SelfOrAncestorMatches, Selector: ".user-msg", Role: model.RoleUser},
	},
	NoiseStrings: []string{"Copy code"},
	RetryDelay:   3 * time.Second,
}

// generic covers platforms without a dedicated profile. Its only tier demands
// several matches, since its patterns are loose enough to hit stray elements.
var generic = &Profile{
	ID:          model.PlatformUnknown,
	DisplayName: "Unknown Platform",
	MessageTiers: []Tier{
		{Min: 3, Patterns: []string{
			".message",
			".chat-message",
			".conversation-turn",
			".prose",
			`[role="article"]`,
			".whitespace-pre-wrap",
		}},
	},
	TextSelectors: universalTextSelectors,
	ContainerSelectors: []string{
		"main",
		`[data-testid="conversation"]`,
		".conversation",
		".chat-container",
		".messages-container",
		"body",
	},
	RoleRules: []RoleRule{
		{Kind: ClassContains, Value: "user", Role: model.RoleUser},
		{Kind: ClassContains, Value: "human", Role: model.RoleUser},
		{Kind: ClassContains, Value: "bot", Role: model.RoleAI},
		{Kind: ClassContains, Value: "assistant", Role: model.RoleAI},
	},
	NoiseStrings: []string{"Copy code"},
	RetryDelay:   3 * time.Second,
}

var registry = []*Profile{chatGPT, claude, gemini, perplexity, poe, characterAI}

// ByID returns the profile for a platform id, or the generic profile when the
// platform is unknown.
func ByID(id model.Platform) *Profile {
	for _, p := range registry {
		if p.ID == id {
			return p
		}
	}
	return generic
}

// Detect maps a page hostname onto a profile, falling back to the generic
// profile for hosts nobody recognizes.
func Detect(host string) *Profile {
	host = strings.ToLower(host)
	for _, p := range registry {
		for _, h := range p.Hosts {
			if host == h || strings.HasSuffix(host, "."+h) {
				return p
			}
		}
	}
	return generic
}

// Generic exposes the fallback profile for callers that need it directly.
func Generic() *Profile { return generic }

// All returns the registered platform profiles, generic excluded.
func All() []*Profile { return registry }
