package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/dom/institutional-site/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

const resetTokenBytes = 32

var (
	// ErrMissingSecret means the signing secret was never configured.
	ErrMissingSecret = errors.New("jwt signing secret is not configured")
	// ErrInvalidToken covers malformed, badly signed and expired tokens alike.
	ErrInvalidToken = errors.New("invalid token")
)

// Claims is the payload of a session token.
type Claims struct {
	UserID   int64           `json:"userId"`
	Username string          `json:"username"`
	Role     domain.UserRole `json:"typeUser"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies session tokens and generates reset tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

type TokenOption func(*TokenService)

// WithClock overrides the time source used for iat/exp and validation.
func WithClock(now func() time.Time) TokenOption {
	return func(t *TokenService) {
		t.now = now
	}
}

// NewTokenService fails fast when secret is empty.
func NewTokenService(secret string, ttl time.Duration, opts ...TokenOption) (*TokenService, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be positive, got %s", ttl)
	}
	t := &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// IssueSessionToken signs a token for the user that expires after the configured ttl.
func (t *TokenService) IssueSessionToken(userID int64, username string, role domain.UserRole) (string, error) {
	if len(t.secret) == 0 {
		return "", ErrMissingSecret
	}
	now := t.now()
	claims := Claims{
		UserID:   userID,
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// VerifySessionToken returns the claims of a valid token, ErrInvalidToken for
// anything the caller must treat as "no token", or ErrMissingSecret.
func (t *TokenService) VerifySessionToken(tokenString string) (*Claims, error) {
	if len(t.secret) == 0 {
		return nil, ErrMissingSecret
	}
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.UserID <= 0 || !claims.Role.IsValid() {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// IssueResetToken returns 256 random bits as lowercase hex.
func (t *TokenService) IssueResetToken() (string, error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// IsResetTokenExpired reports whether a token with the given expiry is no longer usable at now.
func IsResetTokenExpired(expiry, now time.Time) bool {
	return !now.Before(expiry)
}
