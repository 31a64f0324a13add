// Package otp verifies phone numbers with one-time codes. Codes are issued,
// delivered and checked by an external verification provider; nothing is
// stored locally.
package otp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"auth_backend/internal/common"
	"auth_backend/internal/config"
	"auth_backend/internal/models"
)

const (
	ChannelSMS     = "sms"
	StatusApproved = "approved"
)

// Provider is the external verification service.
type Provider interface {
	// CreateVerification starts a challenge for phone and delivers the code.
	CreateVerification(ctx context.Context, phone, channel string) (models.Verification, error)
	// CheckVerification checks code against the outstanding challenge and
	// returns the provider's status for it.
	CheckVerification(ctx context.Context, phone, code string) (string, error)
}

type Service struct {
	cfg      config.Twilio
	provider Provider
	log      *slog.Logger
}

func NewService(cfg config.Twilio, provider Provider, lgr *slog.Logger) *Service {
	return &Service{
		cfg:      cfg,
		provider: provider,
		log:      lgr,
	}
}

func (s *Service) SendOTP(ctx context.Context, phone string) (models.Verification, error) {
	const op = "otp.SendOTP"

	if !s.cfg.Complete() {
		return models.Verification{}, fmt.Errorf("%s: %w: verification provider credentials are not set", op, common.ErrConfiguration)
	}

	if phone == "" {
		return models.Verification{}, fmt.Errorf("%s: %w: phone is required", op, common.ErrValidation)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	v, err := s.provider.CreateVerification(ctx, phone, ChannelSMS)
	if err != nil {
		return models.Verification{}, fmt.Errorf("%s: %w: %w", op, common.ErrProvider, err)
	}

	s.log.Info("otp sent", slog.String("op", op), slog.String("sid", v.SID), slog.String("status", v.Status))

	return v, nil
}

func (s *Service) VerifyOTP(ctx context.Context, phone, code string) error {
	const op = "otp.VerifyOTP"

	if !s.cfg.Complete() {
		return fmt.Errorf("%s: %w: verification provider credentials are not set", op, common.ErrConfiguration)
	}

	if phone == "" || code == "" {
		return fmt.Errorf("%s: %w: phone and code are required", op, common.ErrValidation)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	status, err := s.provider.CheckVerification(ctx, phone, code)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, common.ErrProvider, err)
	}

	if status != StatusApproved {
		s.log.Info("otp rejected", slog.String("op", op), slog.String("status", status))
		return fmt.Errorf("%s: %w", op, common.ErrVerificationFailed)
	}

	return nil
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.Timeout)
}

// ProviderMessage extracts the provider's own message from an ErrProvider
// chain. Transport failures and timeouts get the generic provider message.
func ProviderMessage(err error) string {
	var pe *ProviderError
	if errors.As(err, &pe) && pe.Message != "" {
		return pe.Message
	}
	return common.ErrProvider.Error()
}

// ProviderError carries the message reported by the verification provider.
type ProviderError struct {
	Status  int
	Code    int
	Message string
}

func (e *ProviderError) Error() string {
	return e.Message
}
