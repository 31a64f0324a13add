package otp

import (
	"context"
	"errors"

	"auth_backend/internal/config"
	"auth_backend/internal/models"

	twilio "github.com/twilio/twilio-go"
	"github.com/twilio/twilio-go/client"
	verify "github.com/twilio/twilio-go/rest/verify/v2"
)

// verifyAPI is the subset of the Twilio Verify v2 client used here.
type verifyAPI interface {
	CreateVerification(ServiceSid string, params *verify.CreateVerificationParams) (*verify.VerifyV2Verification, error)
	CreateVerificationCheck(ServiceSid string, params *verify.CreateVerificationCheckParams) (*verify.VerifyV2VerificationCheck, error)
}

// TwilioProvider implements Provider with Twilio Verify.
type TwilioProvider struct {
	api        verifyAPI
	serviceSID string
}

func NewTwilioProvider(cfg config.Twilio) *TwilioProvider {
	c := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})

	return &TwilioProvider{
		api:        c.VerifyV2,
		serviceSID: cfg.VerifyServiceSID,
	}
}

func (p *TwilioProvider) CreateVerification(ctx context.Context, phone, channel string) (models.Verification, error) {
	params := &verify.CreateVerificationParams{}
	params.SetTo(phone)
	params.SetChannel(channel)

	resp, err := call(ctx, func() (*verify.VerifyV2Verification, error) {
		return p.api.CreateVerification(p.serviceSID, params)
	})
	if err != nil {
		return models.Verification{}, providerError(err)
	}

	return models.Verification{
		SID:       deref(resp.Sid),
		To:        deref(resp.To),
		Channel:   deref(resp.Channel),
		Status:    deref(resp.Status),
		Valid:     resp.Valid != nil && *resp.Valid,
		CreatedAt: resp.DateCreated,
	}, nil
}

func (p *TwilioProvider) CheckVerification(ctx context.Context, phone, code string) (string, error) {
	params := &verify.CreateVerificationCheckParams{}
	params.SetTo(phone)
	params.SetCode(code)

	resp, err := call(ctx, func() (*verify.VerifyV2VerificationCheck, error) {
		return p.api.CreateVerificationCheck(p.serviceSID, params)
	})
	if err != nil {
		return "", providerError(err)
	}

	return deref(resp.Status), nil
}

// call runs fn and gives up when ctx is done. The Twilio client takes no
// context, so an abandoned request finishes in the background.
func call[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}

	ch := make(chan result, 1)
	go func() {
		v, err := fn()
		ch <- result{v: v, err: err}
	}()

	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case r := <-ch:
		return r.v, r.err
	}
}

func providerError(err error) error {
	var restErr *client.TwilioRestError
	if errors.As(err, &restErr) {
		return &ProviderError{Status: restErr.Status, Code: restErr.Code, Message: restErr.Message}
	}
	return err
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
