// Package auth provides password hashing, JWT access tokens and the gin
// middleware that authenticates API requests.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/models"
)

const issuer = "trade-journal"

var (
	ErrInvalidToken = fmt.Errorf("invalid token: %w", apperrors.ErrUnauthorized)
	ErrTokenExpired = fmt.Errorf("token expired: %w", apperrors.ErrUnauthorized)
)

// UserClaims is the user identity carried in an access token.
type UserClaims struct {
	UserID string          `json:"uid"`
	Email  string          `json:"email"`
	Plan   models.PlanTier `json:"plan"`
}

// Claims represents the JWT claims.
type Claims struct {
	UserClaims
	jwt.RegisteredClaims
}

// Token is an issued access token.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"` // seconds
}

// JWTManager issues and validates HS256 access tokens.
type JWTManager struct {
	secret   []byte
	duration time.Duration
	now      func() time.Time
}

// NewJWTManager creates a new JWT manager.
func NewJWTManager(secret string, duration time.Duration) *JWTManager {
	if duration <= 0 {
		duration = 24 * time.Hour
	}
	return &JWTManager{
		secret:   []byte(secret),
		duration: duration,
		now:      time.Now,
	}
}

// Issue creates a signed access token for a user.
func (m *JWTManager) Issue(user *models.User) (*Token, error) {
	now := m.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserClaims: UserClaims{
			UserID: user.ID,
			Email:  user.Email,
			Plan:   user.Plan,
		},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.duration)),
			Issuer:    issuer,
		},
	})

	signed, err := token.SignedString(m.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &Token{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   int64(m.duration.Seconds()),
	}, nil
}

// Validate parses an access token and returns its user claims.
func (m *JWTManager) Validate(tokenString string) (*UserClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(m.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return &claims.UserClaims, nil
}
