package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ErlanBelekov/sultan-shell/internal/domain"
	"github.com/ErlanBelekov/sultan-shell/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type DeviceStore struct {
	pool *pgxpool.Pool
}

func NewDeviceStore(pool *pgxpool.Pool) *DeviceStore {
	return &DeviceStore{pool: pool}
}

func (r *DeviceStore) Open(ctx context.Context, deviceID string) (repository.SessionStore, error) {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO devices (id) VALUES ($1)
		ON CONFLICT (id) DO UPDATE SET last_seen = NOW()`,
		deviceID,
	)
	if err != nil {
		return nil, fmt.Errorf("open device: %w", err)
	}
	return &SessionStore{pool: r.pool, deviceID: deviceID}, nil
}

func (r *DeviceStore) Touch(ctx context.Context, deviceID string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE devices SET last_seen = NOW() WHERE id = $1`, deviceID)
	if err != nil {
		return fmt.Errorf("touch device: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDeviceNotFound
	}
	return nil
}

func (r *DeviceStore) Get(ctx context.Context, deviceID string) (*domain.Device, error) {
	var d domain.Device
	err := r.pool.QueryRow(ctx,
		`SELECT id, created_at, last_seen FROM devices WHERE id = $1`, deviceID,
	).Scan(&d.ID, &d.CreatedAt, &d.LastSeen)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDeviceNotFound
		}
		return nil, fmt.Errorf("get device: %w", err)
	}
	return &d, nil
}

// PurgeSelections deletes navigation selections untouched since cutoff.
// Session and onboarding keys are never purged here.
func (r *DeviceStore) PurgeSelections(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	keys := make([]string, 0, len(domain.SelectionKeys))
	for _, k := range domain.SelectionKeys {
		keys = append(keys, string(k))
	}
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM device_storage
		WHERE (device_id, key) IN (
			SELECT device_id, key FROM device_storage
			WHERE  key = ANY($1)
			  AND  updated_at < $2
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)`, keys, cutoff, limit)
	if err != nil {
		return 0, fmt.Errorf("purge selections: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// PurgeDevices deletes devices not seen since cutoff, with their storage.
func (r *DeviceStore) PurgeDevices(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM devices
		WHERE id IN (
			SELECT id FROM devices
			WHERE  last_seen < $1
			ORDER BY last_seen ASC
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)`, cutoff, limit)
	if err != nil {
		return 0, fmt.Errorf("purge devices: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *DeviceStore) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// SessionStore is one device's rows in device_storage.
type SessionStore struct {
	pool     *pgxpool.Pool
	deviceID string
}

func (s *SessionStore) get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM device_storage WHERE device_id = $1 AND key = $2`,
		s.deviceID, key,
	).Scan(&v)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read %s: %w", key, err)
	}
	return v, true, nil
}

func (s *SessionStore) set(ctx context.Context, kv map[string]string) error {
	batch := &pgx.Batch{}
	for k, v := range kv {
		batch.Queue(`
			INSERT INTO device_storage (device_id, key, value, updated_at)
			VALUES ($1, $2, $3, NOW())
			ON CONFLICT (device_id, key)
			DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
			s.deviceID, k, v)
	}
	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("write storage: %w", err)
	}
	return nil
}

func (s *SessionStore) del(ctx context.Context, keys ...string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM device_storage WHERE device_id = $1 AND key = ANY($2)`,
		s.deviceID, keys,
	)
	if err != nil {
		return fmt.Errorf("delete storage: %w", err)
	}
	return nil
}

func (s *SessionStore) Session(ctx context.Context) (string, *domain.UserProfile, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT key, value FROM device_storage WHERE device_id = $1 AND key = ANY($2)`,
		s.deviceID, []string{domain.StorageKeyToken, domain.StorageKeyUser},
	)
	if err != nil {
		return "", nil, fmt.Errorf("read session: %w", err)
	}
	defer rows.Close()

	var token, rawUser string
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return "", nil, fmt.Errorf("scan session: %w", err)
		}
		switch k {
		case domain.StorageKeyToken:
			token = v
		case domain.StorageKeyUser:
			rawUser = v
		}
	}
	if err := rows.Err(); err != nil {
		return "", nil, fmt.Errorf("read session: %w", err)
	}
	if rawUser == "" {
		return token, nil, nil
	}
	var user domain.UserProfile
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
		return token, nil, fmt.Errorf("decode stored user: %w", err)
	}
	return token, &user, nil
}

func (s *SessionStore) SaveSession(ctx context.Context, sess domain.Session) error {
	raw, err := json.Marshal(sess.User)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	return s.set(ctx, map[string]string{
		domain.StorageKeyToken: sess.Token,
		domain.StorageKeyUser:  string(raw),
	})
}

func (s *SessionStore) SaveProfile(ctx context.Context, user *domain.UserProfile) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	return s.set(ctx, map[string]string{domain.StorageKeyUser: string(raw)})
}

func (s *SessionStore) ClearSession(ctx context.Context) error {
	return s.del(ctx, domain.StorageKeyToken, domain.StorageKeyUser)
}

func (s *SessionStore) Onboarded(ctx context.Context) (bool, error) {
	v, ok, err := s.get(ctx, domain.StorageKeyOnboarded)
	return ok && v == "1", err
}

func (s *SessionStore) SetOnboarded(ctx context.Context) error {
	return s.set(ctx, map[string]string{domain.StorageKeyOnboarded: "1"})
}

func (s *SessionStore) Selection(ctx context.Context, key domain.SelectionKey) (string, bool, error) {
	if !key.Valid() {
		return "", false, fmt.Errorf("unknown selection key %q", key)
	}
	return s.get(ctx, string(key))
}

func (s *SessionStore) SetSelection(ctx context.Context, key domain.SelectionKey, value string) error {
	if !key.Valid() {
		return fmt.Errorf("unknown selection key %q", key)
	}
	return s.set(ctx, map[string]string{string(key): value})
}

func (s *SessionStore) ClearSelection(ctx context.Context, key domain.SelectionKey) error {
	return s.del(ctx, string(key))
}
