package security

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

const (
	// 20 bytes = 40 hex chars, 160 bits of entropy
	TokenBytes = 20

	VerificationTokenTTL = 24 * time.Hour
	ResetTokenTTL        = time.Hour
)

// TokenIssuer hands out single-use opaque tokens. It knows nothing about the
// user a token belongs to; the caller stores the association.
type TokenIssuer struct {
	now func() time.Time
}

func NewTokenIssuer(now func() time.Time) *TokenIssuer {
	if now == nil {
		now = time.Now
	}
	return &TokenIssuer{now: now}
}

func (i *TokenIssuer) NewVerificationToken() (string, time.Time, error) {
	return i.issue(VerificationTokenTTL)
}

func (i *TokenIssuer) NewResetToken() (string, time.Time, error) {
	return i.issue(ResetTokenTTL)
}

func (i *TokenIssuer) issue(ttl time.Duration) (string, time.Time, error) {
	token, err := RandomToken(TokenBytes)
	if err != nil {
		return "", time.Time{}, err
	}

	return token, i.now().UTC().Add(ttl), nil
}

// RandomToken returns n bytes from crypto/rand, hex encoded.
func RandomToken(n int) (string, error) {
	b := make([]byte, n)

	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}
