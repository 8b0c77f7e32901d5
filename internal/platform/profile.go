// Package platform holds the per-platform extraction profiles.
//
// Each front end differs only in selector lists and role rules, so a platform
// is data, not code: one generic engine consumes these tables, and supporting
// a new front end means adding an entry to the registry.
package platform

import (
	"time"

	"github.com/mzhang055/twirl/internal/model"
)

// Tier is an ordered fallback group of query patterns. Min is the smallest
// match count a pattern must produce to win the tier; fallback tiers set it
// above one so that a noisy generic pattern only wins when it looks like a
// real conversation.
type Tier struct {
	Patterns []string
	Min      int
}

// RoleRuleKind selects how a role rule inspects a candidate element.
type RoleRuleKind int

const (
	// AttrEquals matches an exact attribute value on the element itself.
	AttrEquals RoleRuleKind = iota
	// AttrContains matches a substring of an attribute value.
	AttrContains
	// ClassContains matches a substring of the raw class attribute.
	ClassContains
	// ClassContainsAll requires every listed substring in the class attribute.
	ClassContainsAll
	// HasDescendant matches when a selector finds anything inside the element.
	HasDescendant
	// SelfOrAncestorMatches matches the element or any ancestor against a
	// selector.
	SelfOrAncestorMatches
	// TextContains matches a substring of the element's subtree text.
	TextContains
)

// RoleRule assigns a role when its probe matches. Rules are evaluated in
// order of decreasing reliability; the positional-alternation fallback is
// built into the classifier, not expressed as a rule.
type RoleRule struct {
	Kind     RoleRuleKind
	Attr     string
	Value    string
	Values   []string
	Selector string
	Role     model.Role
}

// Profile is everything the engine needs to know about one front end.
type Profile struct {
	ID          model.Platform
	DisplayName string
	Hosts       []string

	// MessageTiers locate the message elements; TextSelectors pull clean
	// text out of a located element, falling back to the element's own text.
	MessageTiers  []Tier
	TextSelectors []string

	// ContainerSelectors locate the conversation area watched for mutations.
	ContainerSelectors []string

	RoleRules    []RoleRule
	NoiseStrings []string
	RetryDelay   time.Duration
}
