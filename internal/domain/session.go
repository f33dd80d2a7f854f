package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrDeviceNotFound  = errors.New("device not found")
	ErrTokenInvalid    = errors.New("token is invalid or expired")
)

type UserProfile struct {
	ID      int64  `json:"id" validate:"required"`
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Mobile  string `json:"mobile,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Zip     string `json:"zip,omitempty"`
	Country string `json:"country,omitempty"`
	IsB2B   bool   `json:"is_b2b,omitempty"`
}

// Session is what a successful credential exchange yields.
type Session struct {
	Token string       `json:"token" validate:"required"`
	User  *UserProfile `json:"user" validate:"required"`
}

// Device is a browser or webview talking to the shell.
type Device struct {
	ID        string
	CreatedAt time.Time
	LastSeen  time.Time
}

// ErrValidation marks input rejected before it reached the customer API.
var ErrValidation = errors.New("validation failed")

// ValidationError carries per-field messages, keyed by JSON field name.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %d field(s)", ErrValidation, len(e.Fields))
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
