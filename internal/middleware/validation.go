package middleware

import (
	"errors"
	"regexp"
	"unicode/utf8"

	"github.com/mzhang055/twirl/internal/model"
)

var chatIDPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// ValidatePasteText validates text submitted to the paste endpoint.
func ValidatePasteText(text string) error {
	if len(text) == 0 {
		return errors.New("text cannot be empty")
	}
	if len(text) > 100000 { // ~100KB limit
		return errors.New("text exceeds maximum length")
	}
	if !utf8.ValidString(text) {
		return errors.New("text must be valid UTF-8")
	}
	return nil
}

// ValidateChatID validates a conversation record ID. Record ids are built
// from a sanitized alphabet, so anything outside it was never issued.
func ValidateChatID(id string) error {
	if id == "" {
		return errors.New("chat ID cannot be empty")
	}
	if len(id) > 256 {
		return errors.New("chat ID exceeds maximum length")
	}
	if !chatIDPattern.MatchString(id) {
		return errors.New("invalid chat ID format")
	}
	return nil
}

// ValidatePlatform validates a target platform name.
func ValidatePlatform(p string) error {
	switch model.Platform(p) {
	case model.PlatformChatGPT, model.PlatformClaude, model.PlatformGemini,
		model.PlatformPerplexity, model.PlatformPoe, model.PlatformCharacter:
		return nil
	}
	return errors.New("unsupported platform")
}

// ValidatePageURL validates a session page URL.
func ValidatePageURL(u string) error {
	if u == "" {
		return errors.New("url cannot be empty")
	}
	if len(u) > 2048 {
		return errors.New("url exceeds maximum length")
	}
	return nil
}
