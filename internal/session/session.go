// Package session resolves inbound requests to a user identity. Tokens
// are signed JWTs carried in the session cookie or a bearer header;
// credential handling lives outside this service.
package session

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const CookieName = "session"

var (
	ErrNoSession      = errors.New("no session")
	ErrInvalidSession = errors.New("invalid session")
)

type Service struct {
	secretKey []byte
	expiresIn time.Duration
}

func NewService(secret string, expiresIn time.Duration) *Service {
	if expiresIn <= 0 {
		expiresIn = 7 * 24 * time.Hour
	}
	return &Service{
		secretKey: []byte(secret),
		expiresIn: expiresIn,
	}
}

// Issue signs a session token for the user.
func (s *Service) Issue(userID string) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", errors.New("empty user id")
	}
	claims := jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(s.expiresIn).Unix(),
		"iat": time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secretKey)
}

// Resolve extracts and verifies the session token from the request,
// returning the user id it was issued for.
func (s *Service) Resolve(r *http.Request) (string, error) {
	tokenStr := ""
	if cookie, err := r.Cookie(CookieName); err == nil {
		tokenStr = cookie.Value
	}
	if tokenStr == "" {
		auth := r.Header.Get("Authorization")
		if strings.HasPrefix(auth, "Bearer ") {
			tokenStr = strings.TrimPrefix(auth, "Bearer ")
		}
	}
	if tokenStr == "" {
		return "", ErrNoSession
	}
	return s.Parse(tokenStr)
}

// Parse verifies a raw token string and returns the user id.
func (s *Service) Parse(tokenStr string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secretKey, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", ErrInvalidSession
	}
	userID, ok := claims["sub"].(string)
	if !ok || userID == "" {
		return "", ErrInvalidSession
	}
	return userID, nil
}
