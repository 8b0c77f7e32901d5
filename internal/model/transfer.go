package model

import "time"

// TransferTTL is how long a transfer slot stays readable after creation.
const TransferTTL = 30 * time.Second

// TransferSlot is a short-lived, single-read handoff of formatted conversation
// text between two surfaces. It is consumed by the first read, whether or not
// that read falls inside the validity window.
type TransferSlot struct {
	Text           string    `json:"text"`
	TargetPlatform Platform  `json:"target_platform"`
	Source         string    `json:"source"`
	CreatedAt      time.Time `json:"created_at"`
}

// Expired reports whether the slot's validity window has passed.
func (s *TransferSlot) Expired(now time.Time) bool {
	return now.Sub(s.CreatedAt) > TransferTTL
}
