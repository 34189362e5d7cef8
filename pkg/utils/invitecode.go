package utils

import (
	"crypto/rand"
	"fmt"
)

// inviteCodeAlphabet is the human-enterable charset for invite and pairing
// codes. 36^6 combinations for the 6-character codes.
const inviteCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// InviteCodeLength is the fixed length of invite and pairing codes.
const InviteCodeLength = 6

// GenerateInviteCode returns a 6-character code drawn uniformly from [A-Z0-9].
func GenerateInviteCode() (string, error) {
	return generateCode(InviteCodeLength)
}

func generateCode(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	// 36 does not divide 256 evenly, so redraw any byte that lands in the
	// biased tail.
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		b := buf[i]
		for b >= 252 { // 252 = 36 * 7, largest multiple of 36 below 256
			extra := make([]byte, 1)
			if _, err := rand.Read(extra); err != nil {
				return "", fmt.Errorf("failed to read random bytes: %w", err)
			}
			b = extra[0]
		}
		out[i] = inviteCodeAlphabet[int(b)%len(inviteCodeAlphabet)]
	}
	return string(out), nil
}
