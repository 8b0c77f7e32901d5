package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mzhang055/twirl/internal/dom"
	"github.com/mzhang055/twirl/internal/model"
	"github.com/mzhang055/twirl/internal/platform"
)

func profileWithRules(rules ...platform.RoleRule) *platform.Profile {
	return &platform.Profile{ID: model.PlatformChatGPT, RoleRules: rules}
}

func TestClassifyRoleAttrEquals(t *testing.T) {
	p := platform.ByID(model.PlatformChatGPT)
	n := linked(&dom.Node{Tag: "div", Attrs: map[string]string{"data-message-author-role": "user"}})

	// Explicit attribute beats positional alternation at any ordinal.
	assert.Equal(t, model.RoleUser, ClassifyRole(p, n, 1))

	n = linked(&dom.Node{Tag: "div", Attrs: map[string]string{"data-message-author-role": "assistant"}})
	assert.Equal(t, model.RoleAI, ClassifyRole(p, n, 0))
}

func TestClassifyRoleAttrContains(t *testing.T) {
	p := profileWithRules(platform.RoleRule{
		Kind: platform.AttrContains, Attr: "data-test-id", Value: "user-message", Role: model.RoleUser,
	})
	n := linked(&dom.Node{Tag: "div", Attrs: map[string]string{"data-test-id": "chat-user-message-3"}})
	assert.Equal(t, model.RoleUser, ClassifyRole(p, n, 1))

	// Absent attribute never matches a contains rule.
	n = linked(&dom.Node{Tag: "div"})
	assert.Equal(t, model.RoleAI, ClassifyRole(p, n, 1))
}

func TestClassifyRoleClassContains(t *testing.T) {
	p := profileWithRules(platform.RoleRule{
		Kind: platform.ClassContains, Value: "font-user-message", Role: model.RoleUser,
	})
	n := linked(&dom.Node{Tag: "div", Attrs: map[string]string{"class": "mb-2 font-user-message"}})
	assert.Equal(t, model.RoleUser, ClassifyRole(p, n, 1))
}

func TestClassifyRoleClassContainsAll(t *testing.T) {
	p := profileWithRules(platform.RoleRule{
		Kind: platform.ClassContainsAll, Values: []string{"bg-", "slate"}, Role: model.RoleUser,
	})

	n := linked(&dom.Node{Tag: "div", Attrs: map[string]string{"class": "rounded bg-slate-100"}})
	assert.Equal(t, model.RoleUser, ClassifyRole(p, n, 1))

	// One fragment present, the other missing.
	n = linked(&dom.Node{Tag: "div", Attrs: map[string]string{"class": "rounded bg-white"}})
	assert.Equal(t, model.RoleAI, ClassifyRole(p, n, 1))
}

func TestClassifyRoleHasDescendant(t *testing.T) {
	p := profileWithRules(platform.RoleRule{
		Kind: platform.HasDescendant, Selector: ".justify-end", Role: model.RoleUser,
	})

	n := linked(&dom.Node{Tag: "div", Children: []*dom.Node{
		{Tag: "div", Attrs: map[string]string{"class": "flex justify-end"}},
	}})
	assert.Equal(t, model.RoleUser, ClassifyRole(p, n, 1))

	// The element itself matching the selector does not count as a descendant.
	n = linked(&dom.Node{Tag: "div", Attrs: map[string]string{"class": "justify-end"}})
	assert.Equal(t, model.RoleAI, ClassifyRole(p, n, 1))
}

func TestClassifyRoleSelfOrAncestorMatches(t *testing.T) {
	p := profileWithRules(platform.RoleRule{
		Kind: platform.SelfOrAncestorMatches, Selector: `[data-is-author="true"]`, Role: model.RoleUser,
	})

	root := linked(&dom.Node{Tag: "div", Attrs: map[string]string{"data-is-author": "true"}, Children: []*dom.Node{
		{Tag: "div", Attrs: map[string]string{"class": "inner"}},
	}})
	inner := root.Children[0]
	assert.Equal(t, model.RoleUser, ClassifyRole(p, inner, 1))
	assert.Equal(t, model.RoleUser, ClassifyRole(p, root, 1))
}

func TestClassifyRoleTextContains(t *testing.T) {
	p := profileWithRules(platform.RoleRule{
		Kind: platform.TextContains, Value: "Gemini", Role: model.RoleAI,
	})
	n := linked(&dom.Node{Tag: "div", Children: []*dom.Node{
		{Tag: "p", Text: "Gemini can make mistakes"},
	}})
	assert.Equal(t, model.RoleAI, ClassifyRole(p, n, 0))
}

func TestClassifyRoleFirstRuleWins(t *testing.T) {
	p := profileWithRules(
		platform.RoleRule{Kind: platform.ClassContains, Value: "msg", Role: model.RoleAI},
		platform.RoleRule{Kind: platform.ClassContains, Value: "msg-user", Role: model.RoleUser},
	)
	n := linked(&dom.Node{Tag: "div", Attrs: map[string]string{"class": "msg-user"}})
	assert.Equal(t, model.RoleAI, ClassifyRole(p, n, 1))
}

func TestClassifyRoleAlternationFallback(t *testing.T) {
	p := profileWithRules()
	n := linked(&dom.Node{Tag: "div"})

	assert.Equal(t, model.RoleUser, ClassifyRole(p, n, 0))
	assert.Equal(t, model.RoleAI, ClassifyRole(p, n, 1))
	assert.Equal(t, model.RoleUser, ClassifyRole(p, n, 2))
	assert.Equal(t, model.RoleAI, ClassifyRole(p, n, 3))
}
