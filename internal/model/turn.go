// Package model defines data structures for the conversation transfer engine.
package model

// Role identifies the speaker of a conversation turn.
type Role string

const (
	RoleUser Role = "user"
	RoleAI   Role = "ai"
)

// Label returns the display form of the role as it appears in formatted
// conversations ("User: ..." / "AI: ...").
func (r Role) Label() string {
	if r == RoleUser {
		return "User"
	}
	return "AI"
}

// Turn is one role-tagged message extracted from or parsed into a conversation.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}
