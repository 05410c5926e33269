// Package idgen mints opaque session identifiers backed by nanoid.
package idgen

import (
	"fmt"
	"strings"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// SessionPrefix marks identifiers handed out as browser session ids.
const SessionPrefix = "sess_"

// Alphabet is URL and cookie safe.
const Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// SessionLength is the number of random characters in a session id. 24
// characters from a 62-symbol alphabet is ~142 bits.
const SessionLength = 24

// NewSessionID returns a fresh session id.
func NewSessionID() (string, error) {
	id, err := nanoid.Generate(Alphabet, SessionLength)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return SessionPrefix + id, nil
}

// ValidSessionID reports whether s has the shape of an id from NewSessionID.
// Cookies failing this check are treated as absent.
func ValidSessionID(s string) bool {
	rest, ok := strings.CutPrefix(s, SessionPrefix)
	if !ok || len(rest) != SessionLength {
		return false
	}
	for _, c := range rest {
		if !strings.ContainsRune(Alphabet, c) {
			return false
		}
	}
	return true
}
