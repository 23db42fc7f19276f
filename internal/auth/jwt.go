// Package auth validates the opaque credential carried by a session's first
// inbound frame (spec.md §4.9, §1 "Out of scope": issuance itself lives
// outside this core). It never issues tokens, hashes passwords, or stores
// users — only verifies and decodes the principal claims the core needs.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("auth: invalid or expired token")

// Claims is the principal derived from a validated credential (spec.md
// §4.9: "derive principal_id", §1: "opaque principal_id and is_admin flag").
type Claims struct {
	jwt.RegisteredClaims
	PrincipalID string `json:"principal_id"`
	IsAdmin     bool   `json:"is_admin"`
}

// JWTService validates bearer credentials into Claims.
type JWTService struct {
	secret []byte
}

func NewJWTService(secret string) *JWTService {
	return &JWTService{secret: []byte(secret)}
}

// ValidateToken parses and verifies tokenString, returning the embedded
// principal claims.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// IssueToken is provided only to support tests that need a credential to
// validate; real issuance is an external collaborator (spec.md §1).
func (s *JWTService) IssueToken(principalID string, isAdmin bool, ttl time.Duration) (string, error) {
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		PrincipalID: principalID,
		IsAdmin:     isAdmin,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}
