package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ErlanBelekov/sultan-shell/internal/domain"
	"github.com/ErlanBelekov/sultan-shell/internal/repository"
)

type entry struct {
	value     string
	updatedAt time.Time
}

type device struct {
	createdAt time.Time
	lastSeen  time.Time
	values    map[string]entry
}

// DeviceStore keeps device storage in process memory. Used for ENV=local
// without a database and in tests.
type DeviceStore struct {
	mu      sync.Mutex
	devices map[string]*device
	now     func() time.Time
}

func NewDeviceStore() *DeviceStore {
	return &DeviceStore{devices: make(map[string]*device), now: time.Now}
}

// WithClock replaces the time source. Tests only.
func (s *DeviceStore) WithClock(now func() time.Time) *DeviceStore {
	s.now = now
	return s
}

func (s *DeviceStore) Open(_ context.Context, deviceID string) (repository.SessionStore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.devices[deviceID]; !ok {
		now := s.now()
		s.devices[deviceID] = &device{createdAt: now, lastSeen: now, values: make(map[string]entry)}
	}
	return &SessionStore{parent: s, deviceID: deviceID}, nil
}

func (s *DeviceStore) Touch(_ context.Context, deviceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.devices[deviceID]
	if !ok {
		return domain.ErrDeviceNotFound
	}
	d.lastSeen = s.now()
	return nil
}

func (s *DeviceStore) Get(_ context.Context, deviceID string) (*domain.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.devices[deviceID]
	if !ok {
		return nil, domain.ErrDeviceNotFound
	}
	return &domain.Device{ID: deviceID, CreatedAt: d.createdAt, LastSeen: d.lastSeen}, nil
}

func (s *DeviceStore) PurgeSelections(_ context.Context, cutoff time.Time, limit int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	purged := 0
	for _, d := range s.devices {
		for _, key := range domain.SelectionKeys {
			e, ok := d.values[string(key)]
			if !ok || !e.updatedAt.Before(cutoff) {
				continue
			}
			if purged >= limit {
				return purged, nil
			}
			delete(d.values, string(key))
			purged++
		}
	}
	return purged, nil
}

func (s *DeviceStore) PurgeDevices(_ context.Context, cutoff time.Time, limit int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	purged := 0
	for id, d := range s.devices {
		if purged >= limit {
			break
		}
		if d.lastSeen.Before(cutoff) {
			delete(s.devices, id)
			purged++
		}
	}
	return purged, nil
}

func (s *DeviceStore) Ping(context.Context) error { return nil }

func (s *DeviceStore) get(deviceID, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.devices[deviceID]
	if !ok {
		return "", false, domain.ErrDeviceNotFound
	}
	e, ok := d.values[key]
	return e.value, ok, nil
}

func (s *DeviceStore) set(deviceID string, kv map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.devices[deviceID]
	if !ok {
		return domain.ErrDeviceNotFound
	}
	now := s.now()
	for k, v := range kv {
		d.values[k] = entry{value: v, updatedAt: now}
	}
	return nil
}

func (s *DeviceStore) del(deviceID string, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.devices[deviceID]
	if !ok {
		return domain.ErrDeviceNotFound
	}
	for _, k := range keys {
		delete(d.values, k)
	}
	return nil
}

// SessionStore is one device's view of a DeviceStore.
type SessionStore struct {
	parent   *DeviceStore
	deviceID string
}

func (s *SessionStore) Session(_ context.Context) (string, *domain.UserProfile, error) {
	token, _, err := s.parent.get(s.deviceID, domain.StorageKeyToken)
	if err != nil {
		return "", nil, err
	}
	raw, ok, err := s.parent.get(s.deviceID, domain.StorageKeyUser)
	if err != nil || !ok {
		return token, nil, err
	}
	var user domain.UserProfile
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return token, nil, fmt.Errorf("decode stored user: %w", err)
	}
	return token, &user, nil
}

func (s *SessionStore) SaveSession(_ context.Context, sess domain.Session) error {
	raw, err := json.Marshal(sess.User)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	return s.parent.set(s.deviceID, map[string]string{
		domain.StorageKeyToken: sess.Token,
		domain.StorageKeyUser:  string(raw),
	})
}

func (s *SessionStore) SaveProfile(_ context.Context, user *domain.UserProfile) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	return s.parent.set(s.deviceID, map[string]string{domain.StorageKeyUser: string(raw)})
}

func (s *SessionStore) ClearSession(_ context.Context) error {
	return s.parent.del(s.deviceID, domain.StorageKeyToken, domain.StorageKeyUser)
}

func (s *SessionStore) Onboarded(_ context.Context) (bool, error) {
	v, ok, err := s.parent.get(s.deviceID, domain.StorageKeyOnboarded)
	return ok && v == "1", err
}

func (s *SessionStore) SetOnboarded(_ context.Context) error {
	return s.parent.set(s.deviceID, map[string]string{domain.StorageKeyOnboarded: "1"})
}

func (s *SessionStore) Selection(_ context.Context, key domain.SelectionKey) (string, bool, error) {
	if !key.Valid() {
		return "", false, fmt.Errorf("unknown selection key %q", key)
	}
	return s.parent.get(s.deviceID, string(key))
}

func (s *SessionStore) SetSelection(_ context.Context, key domain.SelectionKey, value string) error {
	if !key.Valid() {
		return fmt.Errorf("unknown selection key %q", key)
	}
	return s.parent.set(s.deviceID, map[string]string{string(key): value})
}

func (s *SessionStore) ClearSelection(_ context.Context, key domain.SelectionKey) error {
	return s.parent.del(s.deviceID, string(key))
}
