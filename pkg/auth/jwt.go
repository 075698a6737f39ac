package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token kinds carried in the "type" claim. Access tokens carry no type
// claim at all.
const TokenTypeRefresh = "refresh"

// Claims represents JWT claims
type Claims struct {
	Type string `json:"type,omitempty"`
	jwt.RegisteredClaims
}

// Signer issues and verifies signed bearer tokens. The signing secret is
// fixed for the process lifetime.
type Signer struct {
	secret     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewSigner creates a token signer
func NewSigner(secret string, accessTTL, refreshTTL time.Duration) *Signer {
	return &Signer{secret: secret, accessTTL: accessTTL, refreshTTL: refreshTTL}
}

// IssueAccess generates a short-lived access token for the subject
func (s *Signer) IssueAccess(subjectID string) (string, error) {
	return s.sign(subjectID, "", s.accessTTL)
}

// IssueRefresh generates a refresh token for the subject
func (s *Signer) IssueRefresh(subjectID string) (string, error) {
	return s.sign(subjectID, TokenTypeRefresh, s.refreshTTL)
}

func (s *Signer) sign(subjectID, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Type: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secret))
}

// Verify validates a token's signature and expiry and returns its claims
func (s *Signer) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.secret), nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}
