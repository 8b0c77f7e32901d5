// Package extract turns a document snapshot into an ordered sequence of
// role-tagged conversation turns, with retry and reentrancy handling for
// documents that render late.
package extract

import (
	"github.com/mzhang055/twirl/internal/dom"
	"github.com/mzhang055/twirl/internal/platform"
)

// Resolve evaluates selector tiers in order. Within a tier, the first pattern
// whose match count reaches the tier's minimum wins and the search stops
// entirely; later tiers are not consulted. Patterns the selector engine
// cannot compile count as zero matches, so a markup change on one platform
// degrades to the next fallback instead of failing the pass.
func Resolve(root *dom.Node, tiers []platform.Tier) []*dom.Node {
	if root == nil {
		return nil
	}
	for _, tier := range tiers {
		min := tier.Min
		if min < 1 {
			min = 1
		}
		for _, pattern := range tier.Patterns {
			nodes, err := dom.QueryAll(root, pattern)
			if err != nil {
				continue
			}
			if len(nodes) >= min {
				return nodes
			}
		}
	}
	return nil
}
