package apikey

import (
	"bytes"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerator_Generate(t *testing.T) {
	g := New()

	key, err := g.Generate()
	assert.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, Prefix))

	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(key, Prefix))
	assert.NoError(t, err)
	assert.Len(t, raw, EntropyBytes)
}

func TestGenerator_GenerateUnique(t *testing.T) {
	g := New()
	seen := make(map[string]struct{}, 1000)

	for i := 0; i < 1000; i++ {
		key, err := g.Generate()
		assert.NoError(t, err)
		_, dup := seen[key]
		assert.False(t, dup, "duplicate key %s", key)
		seen[key] = struct{}{}
	}
}

func TestGenerator_DeterministicSource(t *testing.T) {
	g := &Generator{random: bytes.NewReader(make([]byte, EntropyBytes))}

	key, err := g.Generate()
	assert.NoError(t, err)
	assert.Equal(t, Prefix+strings.Repeat("A", 43), key)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func TestGenerator_RandomSourceError(t *testing.T) {
	g := &Generator{random: failingReader{}}

	key, err := g.Generate()
	assert.Error(t, err)
	assert.Empty(t, key)
}
