// Package identity derives the grouping key used to spot repeat senders.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"intake_server/core/domain"
)

// Normalize lower-cases and trims an email address.
func Normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Hash returns the lowercase hex SHA-256 of the normalized email.
func Hash(email string) domain.SenderIdentity {
	sum := sha256.Sum256([]byte(Normalize(email)))
	return domain.SenderIdentity(hex.EncodeToString(sum[:]))
}
