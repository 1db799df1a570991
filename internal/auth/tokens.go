// Package auth issues and verifies the session tokens the HTTP layer uses to
// identify the calling mentor. Tokens are short-lived HS256 JWTs; the subject
// is the account id and an admin claim gates the approval endpoints.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"qtportal/internal/errors"
	"qtportal/pkg/contracts/domain"
)

// Session identifies an authenticated caller.
type Session struct {
	AccountID string
	IsAdmin   bool
}

// Claims is the JWT payload for portal sessions.
type Claims struct {
	Admin bool `json:"adm"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies session tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService creates a token service. An empty secret gets a random
// per-process one, which invalidates sessions on restart; deployments should
// configure a stable secret.
func NewTokenService(secret string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			panic(fmt.Sprintf("auth: crypto/rand failed: %v", err))
		}
	}
	return &TokenService{secret: key, ttl: ttl, now: time.Now}
}

// Issue signs a session token for the account.
func (s *TokenService) Issue(account domain.Account) (string, error) {
	now := s.now()
	claims := Claims{
		Admin: account.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", errors.Internal("failed to sign session token", err)
	}
	return signed, nil
}

// Verify parses and validates a session token.
func (s *TokenService) Verify(tokenString string) (Session, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return Session{}, errors.E(errors.KindInvalidCredentials, "invalid or expired session token")
	}
	return Session{AccountID: claims.Subject, IsAdmin: claims.Admin}, nil
}

// GenerateSecret returns a random base64 secret suitable for the
// PORTAL_AUTH_JWT_SECRET setting.
func GenerateSecret() string {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		panic(fmt.Sprintf("auth: crypto/rand failed: %v", err))
	}
	return base64.StdEncoding.EncodeToString(key)
}
