package release

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// ChecksumLen is the length of a hex-encoded SHA-256 digest.
const ChecksumLen = 64

// NormalizeChecksum lowercases s and checks it is a hex SHA-256 digest.
func NormalizeChecksum(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != ChecksumLen {
		return "", fmt.Errorf("sha256 must be %d hex characters, got %d", ChecksumLen, len(s))
	}
	if _, err := hex.DecodeString(s); err != nil {
		return "", fmt.Errorf("sha256 is not hex: %w", err)
	}
	return s, nil
}
