package helpers

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JWTManager signs and verifies self-contained session claims.
type JWTManager struct {
	Secret []byte
	TTL    time.Duration
	Now    func() time.Time
}

func NewJWTManager(secret string, ttl time.Duration) *JWTManager {
	return &JWTManager{Secret: []byte(secret), TTL: ttl, Now: time.Now}
}

type Claims struct {
	UserID    int64 `json:"uid"`
	ProductID int64 `json:"pid"`
	jwt.RegisteredClaims
}

// Issue signs {uid, pid, exp}. A random jti keeps tokens unique within the same second.
func (m *JWTManager) Issue(userID, productID int64, now time.Time) (string, int64, error) {
	exp := now.Add(m.TTL)
	claims := &Claims{
		UserID:    userID,
		ProductID: productID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := t.SignedString(m.Secret)
	if err != nil {
		return "", 0, err
	}
	return s, exp.Unix(), nil
}

// Parse verifies signature and expiry. Unsigned and expired tokens are rejected.
func (m *JWTManager) Parse(tokenStr string) (*Claims, error) {
	now := m.Now
	if now == nil {
		now = time.Now
	}
	claims := &Claims{}
	tkn, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.Secret, nil
	}, jwt.WithExpirationRequired(), jwt.WithTimeFunc(now))
	if err != nil {
		return nil, err
	}
	if !tkn.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
