// Package refcode generates referral codes.
package refcode

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// Length is the fixed referral code length.
const Length = 8

// alphabet omits 0/O/1/I so a code read over the phone is unambiguous.
const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// New returns a random referral code.
func New() (string, error) {
	buf := make([]byte, Length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("refcode: %w", err)
	}
	for i := range buf {
		buf[i] = alphabet[int(buf[i])%len(alphabet)]
	}
	return string(buf), nil
}

// Valid reports whether code has the right length and alphabet.
func Valid(code string) bool {
	if len(code) != Length {
		return false
	}
	for _, r := range code {
		if !strings.ContainsRune(alphabet, r) {
			return false
		}
	}
	return true
}
