package model

import (
	"net/url"
	"regexp"
	"strconv"
	"time"
)

// Platform identifies a supported conversational front end.
type Platform string

const (
	PlatformChatGPT    Platform = "chatgpt"
	PlatformClaude     Platform = "claude"
	PlatformGemini     Platform = "gemini"
	PlatformPerplexity Platform = "perplexity"
	PlatformPoe        Platform = "poe"
	PlatformCharacter  Platform = "character"
	PlatformPasted     Platform = "pasted"
	PlatformUnknown    Platform = "unknown"
)

// titleMaxLen is the truncation point for derived conversation titles.
const titleMaxLen = 50

var idSanitizer = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// ConversationRecord is a persisted, titled collection of turns tied to a
// platform/session. Records are immutable once written; a later extraction of
// the same page produces a fresh record with a new creation instant.
type ConversationRecord struct {
	ID        string    `json:"id"`
	Platform  Platform  `json:"platform"`
	Source    string    `json:"source"`
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	Turns     []Turn    `json:"turns"`
	TurnCount int       `json:"turn_count"`
	CreatedAt time.Time `json:"created_at"`
}

// NewRecord builds a conversation record, deriving its id from the platform,
// the page path and the creation instant, and its title from the first user
// turn.
func NewRecord(platform Platform, source, pageURL string, turns []Turn, now time.Time) *ConversationRecord {
	return &ConversationRecord{
		ID:        RecordID(platform, pageURL, now),
		Platform:  platform,
		Source:    source,
		URL:       pageURL,
		Title:     deriveTitle(source, turns, now),
		Turns:     turns,
		TurnCount: len(turns),
		CreatedAt: now,
	}
}

// RecordID derives a store key from the id-generation inputs: platform, page
// path and creation instant. Everything outside [a-zA-Z0-9_] is flattened so
// the id is safe as a key in any backend.
func RecordID(platform Platform, pageURL string, now time.Time) string {
	path := pageURL
	if u, err := url.Parse(pageURL); err == nil {
		path = u.Path
	}
	raw := string(platform) + "_" + path + "_" + strconv.FormatInt(now.UnixMilli(), 10)
	return idSanitizer.ReplaceAllString(raw, "_")
}

func deriveTitle(source string, turns []Turn, now time.Time) string {
	for _, t := range turns {
		if t.Role != RoleUser {
			continue
		}
		title := []rune(t.Text)
		if len(title) > titleMaxLen {
			return string(title[:titleMaxLen]) + "..."
		}
		return string(title)
	}
	if source == "" {
		source = "Unknown"
	}
	return source + " Chat - " + now.Format("1/2/2006")
}
