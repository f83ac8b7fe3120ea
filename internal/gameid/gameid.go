// Package gameid generates sortable identifiers that tag every log line and
// results file of one game.
package gameid

import (
	"encoding/base32"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
)

// Crockford's base32, as used by TypeID.
const alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

var encoding = base32.NewEncoding(alphabet).WithPadding(base32.NoPadding)

// Generate returns a new 26-character id built from a UUIDv7, so ids sort by
// creation time.
func Generate() string {
	id, err := uuid.NewV7()
	if err != nil {
		panic("failed to generate game id: " + err.Error())
	}
	return encode(id)
}

// GenerateFrom builds an id using r for the random bits. Tests pass a
// deterministic reader.
func GenerateFrom(r io.Reader) (string, error) {
	id, err := uuid.NewV7FromReader(r)
	if err != nil {
		return "", fmt.Errorf("failed to generate game id: %w", err)
	}
	return encode(id), nil
}

func encode(id uuid.UUID) string {
	return encoding.EncodeToString(id[:])
}

// Validate checks that id is 26 lowercase Crockford base32 characters.
func Validate(id string) error {
	if len(id) != 26 {
		return fmt.Errorf("game ID must be exactly 26 characters, got %d", len(id))
	}
	if id[0] > '7' {
		return fmt.Errorf("game ID first character must be 0-7, got %c", id[0])
	}
	for i, char := range id {
		if !strings.ContainsRune(alphabet, char) {
			return fmt.Errorf("invalid character %c at position %d", char, i)
		}
	}
	return nil
}
