package gtfs

import (
	"sync"
	"time"

	"transittracker.app/internal/geo"
	"transittracker.app/internal/models"
)

// Bundle is the part of a GTFS static bundle the stop search needs.
// The parsed feed is not kept in memory.
type Bundle struct {
	Stops    []models.Stop
	LoadedAt time.Time

	// BoundingBox covers every stop with a location; nil when none has one.
	BoundingBox *geo.BoundingBox

	// EarliestServiceEnd and LatestServiceEnd bound the calendar end dates
	// of the bundle's services. Both are zero when it has no calendar.
	EarliestServiceEnd time.Time
	LatestServiceEnd   time.Time
}

// StaticStore is a thread-safe holder for the current Bundle. A refresh
// replaces the whole bundle while searches keep reading the previous one.
type StaticStore struct {
	mu   sync.RWMutex
	data *Bundle
}

// NewStaticStore returns an empty StaticStore.
func NewStaticStore() *StaticStore {
	return &StaticStore{}
}

// Set replaces the stored bundle.
func (s *StaticStore) Set(newData *Bundle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = newData
}

// Get returns the stored bundle, or false when none has been loaded yet.
func (s *StaticStore) Get() (*Bundle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data, s.data != nil
}
