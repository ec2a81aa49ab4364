package auth

import (
	"crypto/rand"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/cases"
)

const invitationTokenBytes = 32

// BcryptHasher implements Hasher with bcrypt.
type BcryptHasher struct {
	Cost int
}

// Hash returns the bcrypt digest of plain.
func (h BcryptHasher) Hash(plain string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Verify reports whether plain matches digest.
func (BcryptHasher) Verify(plain, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain)) == nil
}

// NewInvitationToken returns 256 bits of randomness, hex encoded.
func NewInvitationToken() (string, error) {
	buf := make([]byte, invitationTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

var emailFolder = cases.Fold()

// NormalizeEmail trims and case-folds an address so invitations match regardless of casing.
func NormalizeEmail(raw string) string {
	return emailFolder.String(strings.TrimSpace(raw))
}
