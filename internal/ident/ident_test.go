package ident

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProducesDistinctCanonicalIdentifiers(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id, err := New()
		require.NoError(t, err)
		require.True(t, Valid(id), "identifier %q has unexpected shape", id)
		_, dup := seen[id]
		require.False(t, dup, "duplicate identifier %q", id)
		seen[id] = struct{}{}
	}
}

func TestGeneratorUsesAllRandomBytes(t *testing.T) {
	g := Generator{Reader: bytes.NewReader(bytes.Repeat([]byte{0xff}, 16))}

	id, err := g.New()
	require.NoError(t, err)
	assert.Equal(t, "ffffffff-ffff-ffff-ffff-ffffffffffff", id)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func TestGeneratorPropagatesReadFailure(t *testing.T) {
	_, err := Generator{Reader: failingReader{}}.New()
	require.Error(t, err)
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("0f8fad5b-d9cb-469f-a165-70867728950e"))
	assert.False(t, Valid(""))
	assert.False(t, Valid("../etc/passwd"))
	assert.False(t, Valid("0f8fad5bd9cb469fa16570867728950e"))
}
