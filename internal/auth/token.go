package auth

import (
	"errors"
	"fmt"
	"time"

	"auth_backend/internal/common"
	"auth_backend/internal/config"

	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"
	guuid "github.com/google/uuid"
)

type Claims struct {
	UserID uuid.UUID `json:"user_id"`
	jwt.RegisteredClaims
}

// TokenError reports why a refresh token failed verification.
type TokenError struct {
	Err error
}

func (e *TokenError) Error() string {
	return e.Err.Error()
}

func (e *TokenError) Unwrap() error {
	return e.Err
}

// TokenManager signs access and refresh tokens with two distinct secrets.
type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewTokenManager(cfg config.JWT) *TokenManager {
	return &TokenManager{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		now:           time.Now,
	}
}

func (m *TokenManager) GenerateAccessToken(userID uuid.UUID) (string, error) {
	const op = "auth.GenerateAccessToken"

	if len(m.accessSecret) == 0 {
		return "", fmt.Errorf("%s: %w: access token secret is not set", op, common.ErrConfiguration)
	}

	token, err := m.sign(userID, m.accessSecret, m.accessTTL)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return token, nil
}

func (m *TokenManager) GenerateRefreshToken(userID uuid.UUID) (string, error) {
	const op = "auth.GenerateRefreshToken"

	if len(m.refreshSecret) == 0 {
		return "", fmt.Errorf("%s: %w: refresh token secret is not set", op, common.ErrConfiguration)
	}

	token, err := m.sign(userID, m.refreshSecret, m.refreshTTL)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return token, nil
}

// ParseRefreshToken checks signature and expiry of a refresh token and returns
// the user id it was issued for.
func (m *TokenManager) ParseRefreshToken(tokenStr string) (uuid.UUID, error) {
	const op = "auth.ParseRefreshToken"

	if len(m.refreshSecret) == 0 {
		return uuid.Nil, fmt.Errorf("%s: %w: refresh token secret is not set", op, common.ErrConfiguration)
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return m.refreshSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, &TokenError{Err: err})
	}

	if !token.Valid {
		return uuid.Nil, fmt.Errorf("%s: %w", op, &TokenError{Err: common.ErrInvalidToken})
	}

	if claims.UserID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, &TokenError{Err: errors.New("token has no user id")})
	}

	return claims.UserID, nil
}

func (m *TokenManager) sign(userID uuid.UUID, secret []byte, ttl time.Duration) (string, error) {
	now := m.now()

	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			// jti keeps two tokens minted within the same second distinct
			ID:        guuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}
