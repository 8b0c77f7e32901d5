// Package paste decides whether arbitrary pasted text looks like a two-party
// conversation and segments it into role-tagged turns.
package paste

import (
	"regexp"
	"strings"
)

const (
	// minConversationalLen is the floor below which text is never treated as
	// a conversation, whatever its shape.
	minConversationalLen = 50
	// InputLengthThreshold gates the heuristic on incremental input events so
	// typing does not trigger a prompt on every keystroke. Direct paste
	// events are checked at any length.
	InputLengthThreshold = 200
)

// rolePairPatterns are the conversation shapes the detector recognizes. At
// least one must match somewhere in the text. The last pattern matches this
// engine's own transfer header so re-pasted exports are recognized.
var rolePairPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)\buser\s*:.*\b(ai|assistant|bot)\s*:`),
	regexp.MustCompile(`(?is)\bhuman\s*:.*\bassistant\s*:`),
	regexp.MustCompile(`(?is)\byou\s*:.*\b(claude|chatgpt|gemini)\s*:`),
	regexp.MustCompile(`(?im)^context from .+:\s*$`),
}

// labelLine recognizes a line that opens a new turn. Capture group 1 is the
// speaker label.
var labelLine = regexp.MustCompile(`(?i)^\s*(user|you|human|ai|assistant|claude|chatgpt|gemini|bot|model)\s*:\s*`)

// aiPhrases are assistant-speak markers used as a secondary signal when the
// text has fewer than two labeled lines.
var aiPhrases = []string{
	"as an ai",
	"i'm an ai",
	"i am an ai",
	"language model",
	"i'd be happy to help",
	"i can help you with",
	"is there anything else",
}

// IsConversational reports whether text plausibly contains a two-party
// conversation. It requires the minimum length, a role-pair shape, and either
// two labeled lines or assistant phrasing.
func IsConversational(text string) bool {
	if len(text) < minConversationalLen {
		return false
	}

	var pairMatch bool
	for _, p := range rolePairPatterns {
		if p.MatchString(text) {
			pairMatch = true
			break
		}
	}
	if !pairMatch {
		return false
	}

	labeled := 0
	for _, line := range strings.Split(text, "\n") {
		if labelLine.MatchString(line) {
			labeled++
			if labeled >= 2 {
				return true
			}
		}
	}

	lower := strings.ToLower(text)
	for _, phrase := range aiPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
