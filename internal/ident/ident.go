// Package ident generates the opaque identifiers used for file IDs and identity keys.
//
// Every identifier carries 128 bits from crypto/rand, rendered in the canonical
// 8-4-4-4-12 hex form. No version or variant bits are set, so the value is not an
// RFC 4122 UUID even though it looks like one. Collisions are treated as
// negligible and are never re-checked against existing records.
package ident

import (
	"crypto/rand"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// Generator produces identifiers. Tests may swap Reader for a deterministic source.
type Generator struct {
	Reader io.Reader
}

// Default reads from crypto/rand.
var Default = Generator{Reader: rand.Reader}

// New returns a fresh identifier from the Default generator.
func New() (string, error) {
	return Default.New()
}

// New returns a fresh identifier.
func (g Generator) New() (string, error) {
	var raw uuid.UUID
	if _, err := io.ReadFull(g.Reader, raw[:]); err != nil {
		return "", fmt.Errorf("read random identifier: %w", err)
	}
	return raw.String(), nil
}

// Valid reports whether s has the canonical identifier shape.
func Valid(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}
