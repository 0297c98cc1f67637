package helpers

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// OpaqueIssuer mints random session tokens that are only meaningful server-side.
type OpaqueIssuer struct {
	TTL time.Duration
}

func NewOpaqueIssuer(ttl time.Duration) *OpaqueIssuer { return &OpaqueIssuer{TTL: ttl} }

func (i *OpaqueIssuer) Issue(_, _ int64, now time.Time) (string, int64, error) {
	tok, err := RandomHex(16)
	if err != nil {
		return "", 0, err
	}
	return tok, now.Add(i.TTL).Unix(), nil
}

// RandomHex returns n random bytes hex-encoded (2n characters).
func RandomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
