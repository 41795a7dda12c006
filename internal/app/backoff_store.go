package app

import (
	"math/rand/v2"
	"sync"
	"time"
)

const (
	BASE_BACKOFF   = 5 * time.Second
	MAX_BACKOFF    = 2 * time.Minute
	BACKOFF_FACTOR = 2.0
	JITTER_FACTOR  = 0.5
)

type backoffData struct {
	BackoffDelay time.Duration
	NextRetryAt  time.Time
}

// BackoffStore tracks, per provider, how long the board should stop calling
// upstream after the client's own retries were exhausted. Each consecutive
// failure doubles the cooldown up to MAX_BACKOFF.
type BackoffStore struct {
	mu       sync.RWMutex
	backoffs map[string]backoffData
	now      func() time.Time
}

func NewBackoffStore() *BackoffStore {
	return &BackoffStore{
		backoffs: make(map[string]backoffData),
		now:      time.Now,
	}
}

// NextRetryAt returns when provider may be called again, if it is cooling down.
func (s *BackoffStore) NextRetryAt(provider string) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if backoff, exists := s.backoffs[provider]; exists {
		return backoff.NextRetryAt.UTC(), true
	}
	return time.Time{}, false
}

// Blocked reports how long provider is still cooling down.
func (s *BackoffStore) Blocked(provider string) (time.Duration, bool) {
	next, ok := s.NextRetryAt(provider)
	if !ok {
		return 0, false
	}
	wait := next.Sub(s.now())
	if wait <= 0 {
		return 0, false
	}
	return wait, true
}

func (s *BackoffStore) UpdateBackoff(provider string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if backoff, exists := s.backoffs[provider]; exists {
		backoff.BackoffDelay = calculateNewBackoffDelay(backoff.BackoffDelay)
		backoff.NextRetryAt = s.calculateNextRetryAt(backoff.BackoffDelay)
		s.backoffs[provider] = backoff
	} else {
		s.backoffs[provider] = backoffData{
			BackoffDelay: BASE_BACKOFF,
			NextRetryAt:  s.calculateNextRetryAt(BASE_BACKOFF),
		}
	}
}

func (s *BackoffStore) ResetBackoff(provider string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.backoffs, provider)
}

func (s *BackoffStore) calculateNextRetryAt(backoff time.Duration) time.Time {
	jitter := time.Duration(rand.Float64() * float64(backoff) * JITTER_FACTOR)
	backoff += jitter
	if backoff > MAX_BACKOFF {
		backoff = MAX_BACKOFF
	}
	return s.now().Add(backoff).UTC()
}

func calculateNewBackoffDelay(backoffDelay time.Duration) time.Duration {
	backoffDelay *= BACKOFF_FACTOR
	if backoffDelay >= MAX_BACKOFF {
		backoffDelay = MAX_BACKOFF
	}
	return backoffDelay
}
