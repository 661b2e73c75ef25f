// Package idgen generates short, URL-safe sync-run identifiers backed by
// nanoid. The run ID stamps log lines and export object keys so separate runs
// can be told apart downstream.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// Alphabet defines the character set used for the random portion of the ID.
const Alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// Length is the number of random characters generated (excluding the prefix).
const Length = 10

// RunID returns a new unique sync-run identifier, e.g. "run-x7k2m9qp4a".
func RunID() (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return "run-" + id, nil
}
