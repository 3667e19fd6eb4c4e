// Package idgen provides short, URL-safe unique ID generation backed by nanoid.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// Alphabet defines the character set used for the random portion of an ID.
var Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length is the number of random characters generated (excluding the prefix).
var Length = 14

// tokenLength is the random length of API tokens, which face untrusted
// clients and carry more entropy than row IDs.
const tokenLength = 32

// NewEventID returns a new event row ID.
func NewEventID() (string, error) {
	return generate("ev-", Length)
}

// NewPersonID returns a new person row ID.
func NewPersonID() (string, error) {
	return generate("ps-", Length)
}

// NewAPIToken returns a new team API token.
func NewAPIToken() (string, error) {
	return generate("phc_", tokenLength)
}

func generate(prefix string, length int) (string, error) {
	id, err := nanoid.Generate(Alphabet, length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + id, nil
}
