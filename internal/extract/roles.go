package extract

import (
	"strings"

	"github.com/mzhang055/twirl/internal/dom"
	"github.com/mzhang055/twirl/internal/model"
	"github.com/mzhang055/twirl/internal/platform"
)

// ClassifyRole assigns a speaker role to a candidate message element. The
// profile's rules run in order of decreasing reliability: explicit role
// attributes, then class and descendant markers, then visual convention.
// When nothing matches, positional alternation decides — even ordinal is the
// user, odd the model. Alternation can desynchronize when an intermediate
// turn is dropped by the length filter; it stays the last resort for exactly
// that reason.
func ClassifyRole(p *platform.Profile, n *dom.Node, ordinal int) model.Role {
	for _, rule := range p.RoleRules {
		if ruleMatches(rule, n) {
			return rule.Role
		}
	}
	if ordinal%2 == 0 {
		return model.RoleUser
	}
	return model.RoleAI
}

func ruleMatches(rule platform.RoleRule, n *dom.Node) bool {
	switch rule.Kind {
	case platform.AttrEquals:
		return n.Attr(rule.Attr) == rule.Value
	case platform.AttrContains:
		v := n.Attr(rule.Attr)
		return v != "" && strings.Contains(v, rule.Value)
	case platform.ClassContains:
		return strings.Contains(n.Attr("class"), rule.Value)
	case platform.ClassContainsAll:
		class := n.Attr("class")
		for _, v := range rule.Values {
			if !strings.Contains(class, v) {
				return false
			}
		}
		return len(rule.Values) > 0
	case platform.HasDescendant:
		found, err := dom.Query(n, rule.Selector)
		return err == nil && found != nil && found != n
	case platform.SelfOrAncestorMatches:
		return dom.Closest(n, rule.Selector) != nil
	case platform.TextContains:
		return strings.Contains(n.TextContent(), rule.Value)
	}
	return false
}
