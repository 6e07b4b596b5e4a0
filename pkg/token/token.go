package token

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidSecret = errors.New("token secret is empty")

// Claims identify a session. Role is informational only: callers must
// re-read the user's current role before authorising.
type Claims struct {
	UserID uint   `json:"uid"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Issue signs a new HS256 session token valid for ttl.
func Issue(secret []byte, userID uint, role string, ttl time.Duration) (string, *Claims, error) {
	if len(secret) == 0 {
		return "", nil, ErrInvalidSecret
	}

	now := time.Now().UTC()
	claims := &Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

func Parse(secret []byte, tokenStr string) (*Claims, error) {
	if len(secret) == 0 {
		return nil, ErrInvalidSecret
	}

	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !tok.Valid {
		return nil, jwt.ErrTokenSignatureInvalid
	}
	if claims.ID == "" || claims.UserID == 0 {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// Remaining is how long the token stays valid from now; zero once expired.
func (c *Claims) Remaining() time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	d := time.Until(c.ExpiresAt.Time)
	if d < 0 {
		return 0
	}
	return d
}
