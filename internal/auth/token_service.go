package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// SessionTokenExpiry is the duration for which session tokens are valid.
// Tokens expire purely by elapsed time; there is no revocation.
const SessionTokenExpiry = 30 * 24 * time.Hour

// ErrInvalidToken is returned when a session token fails validation.
var ErrInvalidToken = errors.New("invalid token")

// SessionClaims is the claim set carried by a session token. UserID is the
// verified identity's id, copied in at issuance time.
type SessionClaims struct {
	UserID string `json:"uid"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	jwt.RegisteredClaims
}

// SessionUser is the identity surfaced to clients inside a session object.
type SessionUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Session is the externally visible session object.
type Session struct {
	User SessionUser `json:"user"`
}

// Session projects the claim set into the external session object. The id is
// always present and string-typed, regardless of how the claims were decoded.
func (c *SessionClaims) Session() Session {
	return Session{
		User: SessionUser{
			ID:    c.UserID,
			Email: c.Email,
			Name:  c.Name,
		},
	}
}

// TokenService mints and validates signed session tokens.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a token service with the given signing secret.
func NewTokenService(secret string) *TokenService {
	return &TokenService{
		secret: []byte(secret),
	}
}

// IssueSession mints a session token for a freshly verified identity. The
// caller must only invoke this after the credential check succeeded.
func (s *TokenService) IssueSession(userID, email, name string) (string, error) {
	now := time.Now()
	claims := &SessionClaims{
		UserID: userID,
		Email:  email,
		Name:   name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(SessionTokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ParseSession validates a session token and returns its claims. Expired or
// tampered tokens fail here; the library enforces exp/nbf.
func (s *TokenService) ParseSession(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
