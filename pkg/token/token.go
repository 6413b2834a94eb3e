// Package token centralises random credential generation.
//
// Two flavours are provided: full-entropy machine tokens (hex, 256 bits) for
// QR check-in credentials, and shorter human-readable codes whose alphabet
// excludes easily confused characters (0/O, 1/I/L).
package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// qrTokenBytes yields 64 hex characters, matching the credential length the
// mobile clients already expect.
const qrTokenBytes = 32

// humanAlphabet deliberately omits 0, O, 1, I and L.
const humanAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

// NewQRToken returns a cryptographically random opaque token for class
// check-in. The token is single-use per class: issuing a new one replaces any
// previously stored value.
func NewQRToken() (string, error) {
	buf := make([]byte, qrTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate qr token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// NewHumanCode returns a random code of length n drawn from a confusable-free
// alphabet, suitable for codes people read aloud or type.
func NewHumanCode(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("code length must be positive")
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = humanAlphabet[int(b)%len(humanAlphabet)]
	}
	return string(out), nil
}
