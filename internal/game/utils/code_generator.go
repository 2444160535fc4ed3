package utils

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
)

const (
	// CodeLength is the length of generated room codes
	CodeLength = 6

	// CodeCharset defines the characters used in room codes
	// Excluding similar-looking characters like 0, O, 1, I, etc.
	CodeCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	maxCodeAttempts = 32
)

// ErrCodeSpaceExhausted is returned when no free room code was found
var ErrCodeSpaceExhausted = errors.New("no free room code found")

// GenerateRoomCode creates a random code players can type to find a session
func GenerateRoomCode() (string, error) {
	charsetLength := big.NewInt(int64(len(CodeCharset)))
	var code strings.Builder
	code.Grow(CodeLength)

	for i := 0; i < CodeLength; i++ {
		idx, err := rand.Int(rand.Reader, charsetLength)
		if err != nil {
			return "", err
		}
		code.WriteByte(CodeCharset[idx.Int64()])
	}

	return code.String(), nil
}

// GenerateUniqueRoomCode draws codes until taken reports one as free
func GenerateUniqueRoomCode(taken func(code string) bool) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := GenerateRoomCode()
		if err != nil {
			return "", err
		}
		if taken == nil || !taken(code) {
			return code, nil
		}
	}
	return "", ErrCodeSpaceExhausted
}

// NormalizeRoomCode upper-cases and trims user input
func NormalizeRoomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsValidRoomCode checks if a room code is valid
func IsValidRoomCode(code string) bool {
	if len(code) != CodeLength {
		return false
	}

	for _, char := range code {
		if !strings.ContainsRune(CodeCharset, char) {
			return false
		}
	}

	return true
}
