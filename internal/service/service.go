package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"auth_backend/internal/auth"
	"auth_backend/internal/common"
	"auth_backend/internal/models"
	"auth_backend/internal/storage"

	"github.com/gofrs/uuid"
)

type Service interface {
	Register(ctx context.Context, email, password string) error
	Login(ctx context.Context, email, password string) (models.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error)
}

// TokenIssuer is implemented by *auth.TokenManager.
type TokenIssuer interface {
	GenerateAccessToken(userID uuid.UUID) (string, error)
	GenerateRefreshToken(userID uuid.UUID) (string, error)
	ParseRefreshToken(token string) (uuid.UUID, error)
}

type service struct {
	storage storage.Storage
	tokens  TokenIssuer
	log     *slog.Logger
}

func NewService(st storage.Storage, tokens TokenIssuer, lgr *slog.Logger) *service {
	return &service{
		storage: st,
		tokens:  tokens,
		log:     lgr,
	}
}

func (s *service) Register(ctx context.Context, email, password string) error {
	const op = "service.Register"

	if email == "" || password == "" {
		return fmt.Errorf("%s: %w", op, common.ErrValidation)
	}

	_, err := s.storage.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		return fmt.Errorf("%s: %w", op, common.ErrDuplicateUser)
	case !errors.Is(err, storage.ErrUserNotFound):
		return fmt.Errorf("%s: %w", op, err)
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	id, err := s.storage.CreateUser(ctx, email, passwordHash)
	if err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			return fmt.Errorf("%s: %w", op, common.ErrDuplicateUser)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("user registered", slog.String("op", op), slog.String("user_id", id.String()))

	return nil
}

func (s *service) Login(ctx context.Context, email, password string) (models.TokenPair, error) {
	const op = "service.Login"

	if email == "" || password == "" {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, common.ErrValidation)
	}

	user, err := s.storage.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return models.TokenPair{}, fmt.Errorf("%s: %w", op, common.ErrNotFound)
		}
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	if ok := auth.CheckPasswordHash(user.PasswordHash, password); !ok {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, common.ErrInvalidCredentials)
	}

	pair, err := s.issuePair(user.ID)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.storage.SetRefreshToken(ctx, user.ID, pair.RefreshToken); err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	return pair, nil
}

// Refresh exchanges the user's current refresh token for a new pair. The
// presented token stops being valid once the new one is stored.
func (s *service) Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error) {
	const op = "service.Refresh"

	if refreshToken == "" {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, common.ErrMissingToken)
	}

	user, err := s.storage.GetUserByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return models.TokenPair{}, fmt.Errorf("%s: %w", op, common.ErrInvalidToken)
		}
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	userID, err := s.tokens.ParseRefreshToken(refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrConfiguration) {
			return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
		}
		return models.TokenPair{}, fmt.Errorf("%s: %w: %w", op, common.ErrInvalidToken, err)
	}
	if userID != user.ID {
		return models.TokenPair{}, fmt.Errorf("%s: %w: token issued for another user", op, common.ErrInvalidToken)
	}

	pair, err := s.issuePair(user.ID)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.storage.RotateRefreshToken(ctx, user.ID, refreshToken, pair.RefreshToken); err != nil {
		if errors.Is(err, storage.ErrTokenMismatch) {
			s.log.Warn("refresh token reused concurrently", slog.String("op", op), slog.String("user_id", user.ID.String()))
			return models.TokenPair{}, fmt.Errorf("%s: %w", op, common.ErrInvalidToken)
		}
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	return pair, nil
}

func (s *service) issuePair(userID uuid.UUID) (models.TokenPair, error) {
	access, err := s.tokens.GenerateAccessToken(userID)
	if err != nil {
		return models.TokenPair{}, err
	}

	refresh, err := s.tokens.GenerateRefreshToken(userID)
	if err != nil {
		return models.TokenPair{}, err
	}

	return models.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
