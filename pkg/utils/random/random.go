package random

import (
	"crypto/rand"
	"math/big"
)

const roomAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const RoomIDLength = 6

// RoomID returns an upper-case alphanumeric room code.
func RoomID() string {
	return Code(RoomIDLength)
}

func Code(length int) string {
	return pickFromSet(roomAlphabet, length)
}

func pickFromSet(set string, length int) string {
	if length <= 0 {
		return ""
	}
	max := big.NewInt(int64(len(set)))
	out := make([]byte, length)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			out[i] = set[0]
			continue
		}
		out[i] = set[n.Int64()]
	}
	return string(out)
}
