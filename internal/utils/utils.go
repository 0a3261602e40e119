package utils

import (
	"crypto/rand"
	"math/big"

	"github.com/google/uuid"

	"github.com/AlrightyTighty/baddle-backend/internal"
)

const roomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// GenerateID returns a new random player id.
func GenerateID() string {
	return uuid.NewString()
}

// GenerateRoomCode returns RoomCodeLength random upper-case letters.
func GenerateRoomCode() string {
	code := make([]byte, internal.RoomCodeLength)
	limit := big.NewInt(int64(len(roomCodeAlphabet)))
	for i := range code {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			panic(err)
		}
		code[i] = roomCodeAlphabet[n.Int64()]
	}
	return string(code)
}

// IsRoomCode reports whether code has the shape of a room code.
func IsRoomCode(code string) bool {
	if len(code) != internal.RoomCodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < 'A' || code[i] > 'Z' {
			return false
		}
	}
	return true
}
