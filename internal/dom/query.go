package dom

import (
	"fmt"
	"strings"
)

// The selector engine supports the subset of CSS selector syntax the platform
// profiles actually use: tag names, classes, ids, attribute presence,
// attribute equality, attribute substring ([attr*="v"]), and descendant/child
// combinators. Compile rejects anything else; callers that implement fallback
// chains treat a compile error as a zero-match pattern.

type attrOp int

const (
	attrExists attrOp = iota
	attrEquals
	attrContains
)

type attrMatch struct {
	name  string
	op    attrOp
	value string
}

// compound is one simple selector: tag.class#id[attr=...].
type compound struct {
	tag     string
	id      string
	classes []string
	attrs   []attrMatch
}

// Selector is a compiled selector chain. parts[i] relates to parts[i+1]
// through combinators[i]: ' ' for descendant, '>' for child.
type Selector struct {
	parts       []compound
	combinators []byte
}

// Compile parses a selector. Unsupported syntax yields an error, never a
// panic; fallback tiers rely on that.
func Compile(selector string) (*Selector, error) {
	tokens, err := tokenize(selector)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("empty selector %q", selector)
	}

	s := &Selector{}
	expectPart := true
	for _, tok := range tokens {
		if tok == ">" {
			if expectPart || len(s.parts) == 0 {
				return nil, fmt.Errorf("misplaced combinator in %q", selector)
			}
			s.combinators[len(s.combinators)-1] = '>'
			expectPart = true
			continue
		}
		part, err := parseCompound(tok)
		if err != nil {
			return nil, err
		}
		s.parts = append(s.parts, part)
		s.combinators = append(s.combinators, ' ')
		expectPart = false
	}
	if expectPart {
		return nil, fmt.Errorf("dangling combinator in %q", selector)
	}
	// The trailing combinator slot is unused.
	s.combinators = s.combinators[:len(s.parts)-1]
	return s, nil
}

// tokenize splits on whitespace and '>' outside of brackets and quotes.
func tokenize(selector string) ([]string, error) {
	var tokens []string
	var cur strings.Builder
	inBracket := false
	var quote byte

	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}

	for i := 0; i < len(selector); i++ {
		ch := selector[i]
		switch {
		case quote != 0:
			cur.WriteByte(ch)
			if ch == quote {
				quote = 0
			}
		case ch == '"' || ch == '\'':
			quote = ch
			cur.WriteByte(ch)
		case ch == '[':
			if inBracket {
				return nil, fmt.Errorf("nested '[' in %q", selector)
			}
			inBracket = true
			cur.WriteByte(ch)
		case ch == ']':
			inBracket = false
			cur.WriteByte(ch)
		case !inBracket && (ch == ' ' || ch == '\t'):
			flush()
		case !inBracket && ch == '>':
			flush()
			tokens = append(tokens, ">")
		default:
			cur.WriteByte(ch)
		}
	}
	if quote != 0 || inBracket {
		return nil, fmt.Errorf("unterminated selector %q", selector)
	}
	flush()
	return tokens, nil
}

func parseCompound(tok string) (compound, error) {
	var c compound
	i := 0
	readIdent := func() string {
		start := i
		for i < len(tok) && isIdentChar(tok[i]) {
			i++
		}
		return tok[start:i]
	}

	if i < len(tok) && isIdentChar(tok[i]) {
		c.tag = strings.ToLower(readIdent())
	}
	for i < len(tok) {
		switch tok[i] {
		case '.':
			i++
			name := readIdent()
			if name == "" {
				return c, fmt.Errorf("empty class in %q", tok)
			}
			c.classes = append(c.classes, name)
		case '#':
			i++
			name := readIdent()
			if name == "" {
				return c, fmt.Errorf("empty id in %q", tok)
			}
			c.id = name
		case '[':
			end := strings.IndexByte(tok[i:], ']')
			if end < 0 {
				return c, fmt.Errorf("unterminated attribute in %q", tok)
			}
			am, err := parseAttr(tok[i+1 : i+end])
			if err != nil {
				return c, err
			}
			c.attrs = append(c.attrs, am)
			i += end + 1
		default:
			return c, fmt.Errorf("unsupported selector syntax at %q", tok[i:])
		}
	}
	if c.tag == "" && c.id == "" && len(c.classes) == 0 && len(c.attrs) == 0 {
		return c, fmt.Errorf("empty compound in %q", tok)
	}
	return c, nil
}

func parseAttr(body string) (attrMatch, error) {
	var am attrMatch
	if idx := strings.Index(body, "*="); idx >= 0 {
		am.name = body[:idx]
		am.op = attrContains
		am.value = unquote(body[idx+2:])
	} else if idx := strings.IndexByte(body, '='); idx >= 0 {
		am.name = body[:idx]
		am.op = attrEquals
		am.value = unquote(body[idx+1:])
	} else {
		am.name = body
		am.op = attrExists
	}
	am.name = strings.TrimSpace(am.name)
	if am.name == "" {
		return am, fmt.Errorf("empty attribute name in [%s]", body)
	}
	return am, nil
}

func unquote(v string) string {
	v = strings.TrimSpace(v)
	if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') && v[len(v)-1] == v[0] {
		return v[1 : len(v)-1]
	}
	return v
}

// isIdentChar accepts the characters that appear in platform markup
// identifiers, including Tailwind-style ':' and '-' class names.
func isIdentChar(ch byte) bool {
	return ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' ||
		ch >= '0' && ch <= '9' || ch == '-' || ch == '_' || ch == ':'
}

func (c *compound) match(n *Node) bool {
	if c.tag != "" && n.Tag != c.tag {
		return false
	}
	if c.id != "" && n.Attr("id") != c.id {
		return false
	}
	for _, class := range c.classes {
		if !n.HasClass(class) {
			return false
		}
	}
	for _, am := range c.attrs {
		switch am.op {
		case attrExists:
			if !n.HasAttr(am.name) {
				return false
			}
		case attrEquals:
			if n.Attr(am.name) != am.value {
				return false
			}
		case attrContains:
			if !strings.Contains(n.Attr(am.name), am.value) {
				return false
			}
		}
	}
	return true
}

// Matches reports whether the node satisfies the selector, walking ancestors
// for any leading parts of the chain.
func (s *Selector) Matches(n *Node) bool {
	last := len(s.parts) - 1
	if !s.parts[last].match(n) {
		return false
	}
	return matchAncestors(s, last-1, n.Parent(), s.comb(last-1))
}

func (s *Selector) comb(i int) byte {
	if i < 0 || i >= len(s.combinators) {
		return ' '
	}
	return s.combinators[i]
}

func matchAncestors(s *Selector, part int, n *Node, comb byte) bool {
	if part < 0 {
		return true
	}
	for n != nil {
		if s.parts[part].match(n) &&
			matchAncestors(s, part-1, n.Parent(), s.comb(part-1)) {
			return true
		}
		if comb == '>' {
			return false
		}
		n = n.Parent()
	}
	return false
}

// MatchAll returns every node in the subtree (root included) matching the
// selector, in document order.
func (s *Selector) MatchAll(root *Node) []*Node {
	var out []*Node
	root.Walk(func(n *Node) {
		if s.Matches(n) {
			out = append(out, n)
		}
	})
	return out
}

// QueryAll compiles and runs a selector against the subtree.
func QueryAll(root *Node, selector string) ([]*Node, error) {
	s, err := Compile(selector)
	if err != nil {
		return nil, err
	}
	return s.MatchAll(root), nil
}

// Query returns the first match in document order, or nil.
func Query(root *Node, selector string) (*Node, error) {
	s, err := Compile(selector)
	if err != nil {
		return nil, err
	}
	var found *Node
	root.Walk(func(n *Node) {
		if found == nil && s.Matches(n) {
			found = n
		}
	})
	return found, nil
}

// Closest walks from the node through its ancestors and returns the first
// that matches, or nil. Invalid selectors match nothing.
func Closest(n *Node, selector string) *Node {
	s, err := Compile(selector)
	if err != nil {
		return nil
	}
	for cur := n; cur != nil; cur = cur.Parent() {
		if s.Matches(cur) {
			return cur
		}
	}
	return nil
}
