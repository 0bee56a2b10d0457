// Package apikey issues opaque API keys bound to accounts.
package apikey

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
)

// Prefix marks every issued key so it is recognizable in configs and logs.
const Prefix = "sk_"

// EntropyBytes is the number of random bytes behind each key.
const EntropyBytes = 32

// Generator issues API keys from a random source.
type Generator struct {
	random io.Reader
}

// New creates a Generator reading from crypto/rand.
func New() *Generator {
	return &Generator{random: rand.Reader}
}

// Generate returns a new key: Prefix followed by EntropyBytes of random data,
// URL-safe base64 encoded without padding.
func (g *Generator) Generate() (string, error) {
	buf := make([]byte, EntropyBytes)
	if _, err := io.ReadFull(g.random, buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return Prefix + base64.RawURLEncoding.EncodeToString(buf), nil
}
