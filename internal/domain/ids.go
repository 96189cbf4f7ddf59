package domain

import (
	"crypto/rand"
	"fmt"
)

// idAlphabet has 32 symbols so a random byte maps onto it without bias.
const idAlphabet = "0123456789abcdefghjkmnpqrstvwxyz"

// IDLength keeps shareable game URLs short.
const IDLength = 6

// NewID returns a random short identifier for games and users.
func NewID() (string, error) {
	buf := make([]byte, IDLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	for i, b := range buf {
		buf[i] = idAlphabet[int(b)%len(idAlphabet)]
	}
	return string(buf), nil
}
