package ai

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

var (
	ErrMissingAPIKey   = errors.New("GEMINI_API_KEY is not set")
	ErrMalformedAPIKey = errors.New("GEMINI_API_KEY is malformed")
)

const minAPIKeyLength = 20

var placeholderKeys = []string{"your_key", "your-key", "your_api_key", "your-api-key", "changeme", "replace_me", "xxxx", "<"}

// ValidateAPIKey rejects keys that are empty, padded, placeholder text, or
// too short to be a real Gemini key.
func ValidateAPIKey(key string) error {
	if key == "" {
		return ErrMissingAPIKey
	}
	if strings.IndexFunc(key, unicode.IsSpace) >= 0 {
		return fmt.Errorf("%w: contains whitespace", ErrMalformedAPIKey)
	}
	lower := strings.ToLower(key)
	for _, p := range placeholderKeys {
		if strings.Contains(lower, p) {
			return fmt.Errorf("%w: looks like a placeholder value", ErrMalformedAPIKey)
		}
	}
	if len(key) < minAPIKeyLength {
		return fmt.Errorf("%w: expected at least %d characters, got %d", ErrMalformedAPIKey, minAPIKeyLength, len(key))
	}
	return nil
}

// MaskAPIKey shows only the ends of a key, for setup checks and logs.
func MaskAPIKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
