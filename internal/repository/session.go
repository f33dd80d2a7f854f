package repository

import (
	"context"
	"time"

	"github.com/ErlanBelekov/sultan-shell/internal/domain"
)

// SessionStore is the durable client storage of one device. Each logical
// key gets its own typed accessor; nothing outside the store deals in raw
// key strings.
type SessionStore interface {
	// Session returns the stored token and profile. Missing values come
	// back as "" and nil with no error.
	Session(ctx context.Context) (token string, user *domain.UserProfile, err error)
	SaveSession(ctx context.Context, s domain.Session) error
	// SaveProfile replaces the stored profile and keeps the token.
	SaveProfile(ctx context.Context, user *domain.UserProfile) error
	ClearSession(ctx context.Context) error

	Onboarded(ctx context.Context) (bool, error)
	SetOnboarded(ctx context.Context) error

	// Selection returns the value stored under key, ok=false when absent.
	Selection(ctx context.Context, key domain.SelectionKey) (value string, ok bool, err error)
	SetSelection(ctx context.Context, key domain.SelectionKey, value string) error
	ClearSelection(ctx context.Context, key domain.SelectionKey) error
}

// DeviceStore hands out per-device SessionStores and tracks device activity.
type DeviceStore interface {
	// Open returns the store for deviceID, registering the device if new.
	Open(ctx context.Context, deviceID string) (SessionStore, error)
	Touch(ctx context.Context, deviceID string) error
	Get(ctx context.Context, deviceID string) (*domain.Device, error)

	// PurgeSelections drops transient selections written before cutoff.
	PurgeSelections(ctx context.Context, cutoff time.Time, limit int) (int, error)
	// PurgeDevices deletes devices (and their storage) idle since cutoff.
	PurgeDevices(ctx context.Context, cutoff time.Time, limit int) (int, error)
	Ping(ctx context.Context) error
}
