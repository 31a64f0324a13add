package models

import (
	"time"

	"github.com/gofrs/uuid"
)

type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // bcrypt hash
	RefreshToken string    `json:"-"` // empty until first login
	CreatedAt    time.Time `json:"created_at"`
}

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Verification is the part of the provider's verification object that is
// handed back to the client after an OTP has been sent.
type Verification struct {
	SID       string     `json:"sid"`
	To        string     `json:"to"`
	Channel   string     `json:"channel"`
	Status    string     `json:"status"`
	Valid     bool       `json:"valid"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}
