package device

import (
	"sort"
	"sync"
	"time"
)

// Record is one device's cached state.
type Record struct {
	ID        string    `json:"id"`
	On        bool      `json:"on"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Cache holds the current state of every known device.
// Safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewCache creates a cache seeded with the known device set, all off.
func NewCache(deviceIDs []string) *Cache {
	records := make(map[string]Record, len(deviceIDs))
	now := time.Now()
	for _, id := range deviceIDs {
		records[id] = Record{ID: id, On: false, UpdatedAt: now}
	}
	return &Cache{records: records}
}

// Get returns a device's record and whether the device is known.
func (c *Cache) Get(deviceID string) (Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.records[deviceID]
	return rec, ok
}

// Known reports whether deviceID is part of the configured set.
func (c *Cache) Known(deviceID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.records[deviceID]
	return ok
}

// All returns every record, sorted by device ID for stable output.
func (c *Cache) All() []Record {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Record, 0, len(c.records))
	for _, rec := range c.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// States returns the on/off map keyed by device ID, the shape pushed to
// realtime subscribers.
func (c *Cache) States() map[string]bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]bool, len(c.records))
	for id, rec := range c.records {
		out[id] = rec.On
	}
	return out
}

// Upsert records a device state observation. Unknown devices are rejected
// so a mistyped topic cannot grow the device set. Returns whether the
// observation changed the cached state.
func (c *Cache) Upsert(deviceID string, on bool, at time.Time) (changed, known bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.records[deviceID]
	if !ok {
		return false, false
	}

	changed = rec.On != on
	rec.On = on
	rec.UpdatedAt = at
	c.records[deviceID] = rec
	return changed, true
}
