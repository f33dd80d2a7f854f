// Package shell hosts one navigation controller per device and turns
// controller state into snapshots for renderers.
package shell

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ErlanBelekov/sultan-shell/internal/device"
	"github.com/ErlanBelekov/sultan-shell/internal/domain"
	"github.com/ErlanBelekov/sultan-shell/internal/metrics"
	"github.com/ErlanBelekov/sultan-shell/internal/navigation"
	"github.com/ErlanBelekov/sultan-shell/internal/repository"
	"github.com/ErlanBelekov/sultan-shell/internal/screen"
	"golang.org/x/sync/singleflight"
)

// ErrStaleResponse is returned for a screen load whose screen was replaced
// while it ran. Its result was discarded.
var ErrStaleResponse = errors.New("stale response")

type Loader interface {
	Load(ctx context.Context, req screen.Request) (screen.Result, error)
}

// Device is the in-memory half of a device: its controller and the
// context screen loads for the current view run under.
type Device struct {
	mu       sync.Mutex
	id       string
	store    repository.SessionStore
	history  *navigation.Stack
	ctrl     *navigation.Controller
	viewCtx  context.Context
	cancel   context.CancelFunc
	gen      uint64
	lastSeen time.Time
	// evicted is set once the device has left the registry; holders of a
	// stale pointer must look it up again.
	evicted  bool
}

type Registry struct {
	mu        sync.Mutex
	devices   map[string]*Device
	restoring singleflight.Group

	store   repository.DeviceStore
	loaders Loader
	apiFor  func(token string) screen.API
	bus     *Bus
	logger  *slog.Logger
	now     func() time.Time
}

func NewRegistry(store repository.DeviceStore, loaders Loader, apiFor func(token string) screen.API, bus *Bus, logger *slog.Logger) *Registry {
	return &Registry{
		devices: make(map[string]*Device),
		store:   store,
		loaders: loaders,
		apiFor:  apiFor,
		bus:     bus,
		logger:  logger.With("component", "shell"),
		now:     time.Now,
	}
}

// device returns the live device for id, restoring it from storage when
// it is not in memory. Storage is never touched under r.mu.
func (r *Registry) device(ctx context.Context, id string) (*Device, error) {
	r.mu.Lock()
	d, ok := r.devices[id]
	r.mu.Unlock()
	if ok {
		if err := r.store.Touch(ctx, id); err != nil && !errors.Is(err, domain.ErrDeviceNotFound) {
			r.logger.WarnContext(ctx, "touch device", "error", err)
		}
		return d, nil
	}

	v, err, _ := r.restoring.Do(id, func() (any, error) {
		return r.restore(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Device), nil
}

func (r *Registry) restore(ctx context.Context, id string) (*Device, error) {
	store, err := r.store.Open(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("open device storage: %w", err)
	}
	history := navigation.NewStack()
	ctrl := navigation.NewController(store, history, r.logger)
	if err := ctrl.Boot(ctx); err != nil {
		return nil, fmt.Errorf("boot device: %w", err)
	}
	viewCtx, cancel := context.WithCancel(context.Background())
	d := &Device{
		id:       id,
		store:    store,
		history:  history,
		ctrl:     ctrl,
		viewCtx:  viewCtx,
		cancel:   cancel,
		gen:      ctrl.State().Generation,
		lastSeen: r.now(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if live, ok := r.devices[id]; ok {
		cancel()
		return live, nil
	}
	r.devices[id] = d
	metrics.DevicesLive.Set(float64(len(r.devices)))
	r.logger.DebugContext(ctx, "device restored")
	return d, nil
}

// acquire returns the live device for id with d.mu held.
func (r *Registry) acquire(ctx context.Context, id string) (*Device, error) {
	for {
		d, err := r.device(ctx, id)
		if err != nil {
			return nil, err
		}
		d.mu.Lock()
		if !d.evicted {
			return d, nil
		}
		d.mu.Unlock()
	}
}

// commit records a finished transition. A new screen cancels every load
// still running for the old one. Callers hold d.mu.
func (r *Registry) commit(d *Device) Snapshot {
	st := d.ctrl.State()
	if st.Generation != d.gen {
		d.cancel()
		d.viewCtx, d.cancel = context.WithCancel(context.Background())
		d.gen = st.Generation
	}
	d.lastSeen = r.now()
	return buildSnapshot(d.id, st, d.history.Drain())
}

// Do runs fn against the device's controller and returns the resulting
// snapshot. Transitions of one device are totally ordered. fn must not
// call the customer API.
func (r *Registry) Do(ctx context.Context, id string, fn func(ctx context.Context, c *navigation.Controller) error) (Snapshot, error) {
	d, err := r.acquire(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}
	fnErr := fn(ctx, d.ctrl)
	snap := r.commit(d)
	d.mu.Unlock()

	r.bus.Publish(snap)
	return snap, fnErr
}

func (r *Registry) Snapshot(ctx context.Context, id string) (Snapshot, error) {
	return r.Do(ctx, id, func(context.Context, *navigation.Controller) error { return nil })
}

// Session is what an action needs to call the customer API on behalf of
// the device: its token and its storage.
type Session struct {
	Token    string
	Store    repository.SessionStore
	LoggedIn bool
}

func (r *Registry) Session(ctx context.Context, id string) (Session, error) {
	d, err := r.acquire(ctx, id)
	if err != nil {
		return Session{}, err
	}
	defer d.mu.Unlock()
	return Session{Token: d.ctrl.Token(), Store: d.store, LoggedIn: d.ctrl.State().IsLoggedIn()}, nil
}

// Load assembles the data for the device's current screen. The load runs
// without holding the device; if the screen changes meanwhile the result
// is dropped and ErrStaleResponse returned.
func (r *Registry) Load(ctx context.Context, id string, page int) (screen.Result, Snapshot, error) {
	d, err := r.acquire(ctx, id)
	if err != nil {
		return screen.Result{}, Snapshot{}, err
	}
	st := d.ctrl.State()
	token := d.ctrl.Token()
	viewCtx := d.viewCtx
	d.mu.Unlock()

	if !st.IsLoggedIn() {
		snap, err := r.Snapshot(ctx, id)
		return screen.Result{View: st.Screen()}, snap, err
	}

	loadCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(viewCtx, cancel)
	defer stop()

	res, loadErr := r.loaders.Load(loadCtx, screen.Request{
		View:   st.CurrentView,
		Params: st.Params,
		Store:  d.store,
		API:    r.apiFor(token),
		Page:   page,
	})

	d.mu.Lock()
	if d.evicted {
		d.mu.Unlock()
		return screen.Result{}, Snapshot{}, ErrStaleResponse
	}
	if errors.Is(loadErr, domain.ErrUnauthenticated) {
		snap := r.commit(d)
		d.mu.Unlock()
		return screen.Result{}, snap, loadErr
	}
	if d.ctrl.State().Generation != st.Generation {
		d.mu.Unlock()
		metrics.StaleResponsesTotal.WithLabelValues(string(st.CurrentView)).Inc()
		r.logger.DebugContext(ctx, "stale load dropped", "view", string(st.CurrentView))
		return screen.Result{}, Snapshot{}, ErrStaleResponse
	}
	if loadErr != nil {
		d.mu.Unlock()
		return screen.Result{}, Snapshot{}, loadErr
	}

	if res.Profile != nil {
		if err := d.ctrl.UpdateProfile(ctx, res.Profile); err != nil {
			r.logger.WarnContext(ctx, "refresh stored profile", "error", err)
		}
	}
	redirected := false
	if res.Redirect != "" {
		if err := d.ctrl.NavigateTo(ctx, res.Redirect, navigation.Params{}); err != nil {
			r.logger.WarnContext(ctx, "redirect failed", "redirect", string(res.Redirect), "error", err)
		} else {
			redirected = true
		}
	}
	snap := r.commit(d)
	d.mu.Unlock()

	if redirected {
		r.bus.Publish(snap)
	}
	return res, snap, nil
}

// Expire ends the session of the device named in ctx if token is still
// the one it holds. It is the customer API's unauthenticated hook.
func (r *Registry) Expire(ctx context.Context, token string) {
	id := device.FromContext(ctx)
	if id == "" {
		return
	}
	r.mu.Lock()
	d, ok := r.devices[id]
	r.mu.Unlock()
	if !ok {
		return
	}

	d.mu.Lock()
	if d.evicted || !d.ctrl.State().IsLoggedIn() {
		d.mu.Unlock()
		return
	}
	if d.ctrl.Token() != token {
		d.mu.Unlock()
		r.logger.DebugContext(ctx, "401 for a replaced token ignored")
		return
	}
	if err := d.ctrl.SessionExpired(ctx); err != nil {
		r.logger.WarnContext(ctx, "session expiry", "error", err)
	}
	snap := r.commit(d)
	d.mu.Unlock()

	metrics.SessionsExpiredTotal.Inc()
	r.bus.Publish(snap)
}

// Evict drops devices idle for longer than idle. Their storage stays; the
// next request restores them.
func (r *Registry) Evict(idle time.Duration) int {
	cutoff := r.now().Add(-idle)
	r.mu.Lock()
	defer r.mu.Unlock()
	evicted := 0
	for id, d := range r.devices {
		d.mu.Lock()
		stale := d.lastSeen.Before(cutoff)
		if stale {
			d.evicted = true
			d.cancel()
		}
		d.mu.Unlock()
		if stale {
			delete(r.devices, id)
			evicted++
		}
	}
	metrics.DevicesLive.Set(float64(len(r.devices)))
	return evicted
}

// Start evicts idle devices every interval until ctx is cancelled.
func (r *Registry) Start(ctx context.Context, interval, idle time.Duration) {
	r.logger.Info("evictor started", "interval", interval, "idle", idle)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("evictor stopped")
			return
		case <-ticker.C:
			if n := r.Evict(idle); n > 0 {
				r.logger.Info("evicted idle devices", "count", n)
			}
		}
	}
}

// Live is the number of devices held in memory.
func (r *Registry) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.devices)
}
