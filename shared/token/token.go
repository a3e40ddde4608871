// Package token issues and verifies the bearer tokens returned by the login
// flows. Keys are always passed in; nothing here reads the environment.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid or expired token")

type Claims struct {
	UserID      uint     `json:"userId"`
	Authorities []string `json:"authorities,omitempty"`
	jwt.RegisteredClaims
}

// Issue signs an HS512 token for subject carrying userID and the user's
// authorities, valid for ttl.
func Issue(subject string, userID uint, authorities []string, key []byte, ttl time.Duration) (string, error) {
	return issueAt(subject, userID, authorities, key, ttl, time.Now())
}

func issueAt(subject string, userID uint, authorities []string, key []byte, ttl time.Duration, now time.Time) (string, error) {
	if len(key) == 0 {
		return "", errors.New("signing key is empty")
	}
	claims := Claims{
		UserID:      userID,
		Authorities: authorities,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies signature, algorithm and expiry.
func Parse(tokenString string, key []byte) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
