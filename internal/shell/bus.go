package shell

import (
	"log/slog"
	"sync"
)

// Bus fans snapshots out to the live connections of each device.
type Bus struct {
	mu     sync.Mutex
	subs   map[string]map[chan Snapshot]struct{}
	logger *slog.Logger
	depth  int
}

func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		subs:   make(map[string]map[chan Snapshot]struct{}),
		logger: logger.With("component", "bus"),
		depth:  16,
	}
}

// Subscribe registers a listener for deviceID. The returned cancel func
// unregisters it and closes the channel.
func (b *Bus) Subscribe(deviceID string) (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, b.depth)
	b.mu.Lock()
	devSubs := b.subs[deviceID]
	if devSubs == nil {
		devSubs = make(map[chan Snapshot]struct{})
		b.subs[deviceID] = devSubs
	}
	devSubs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			if subs := b.subs[deviceID]; subs != nil {
				delete(subs, ch)
				if len(subs) == 0 {
					delete(b.subs, deviceID)
				}
			}
			close(ch)
			b.mu.Unlock()
		})
	}
}

// Publish never blocks; a listener that has fallen behind misses frames.
func (b *Bus) Publish(s Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	dropped := 0
	for sub := range b.subs[s.DeviceID] {
		select {
		case sub <- s:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		b.logger.Debug("snapshots dropped", "device_id", s.DeviceID, "count", dropped)
	}
}
