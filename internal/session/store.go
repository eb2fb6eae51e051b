// Package session keeps clinic sessions alive between requests and
// serialises access to each one.
package session

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/EcliqseX/vetsim/internal/clinic"
	"github.com/EcliqseX/vetsim/internal/domain"
)

// ErrNotFound is returned when a session id is unknown or has expired.
var ErrNotFound = domain.ErrNotFound

// Store persists session state between calls.
type Store interface {
	// Load returns the state for id or ErrNotFound.
	Load(ctx context.Context, id string) (*clinic.SessionState, error)
	// Save writes state under state.ID, refreshing its expiry.
	Save(ctx context.Context, state *clinic.SessionState) error
	// Delete removes id. Deleting an unknown id is not an error.
	Delete(ctx context.Context, id string) error
	// Len reports how many sessions are held.
	Len(ctx context.Context) (int, error)
	// Close releases resources.
	Close() error
}

// MemoryStore keeps sessions in process, evicting the least recently used
// once full and dropping any session idle for longer than the TTL.
type MemoryStore struct {
	cache *expirable.LRU[string, *clinic.SessionState]
}

// NewMemoryStore creates a store bounded to size sessions.
func NewMemoryStore(size int, ttl time.Duration, onEvict func(id string)) *MemoryStore {
	var cb expirable.EvictCallback[string, *clinic.SessionState]
	if onEvict != nil {
		cb = func(id string, _ *clinic.SessionState) { onEvict(id) }
	}
	return &MemoryStore{cache: expirable.NewLRU(size, cb, ttl)}
}

func (m *MemoryStore) Load(_ context.Context, id string) (*clinic.SessionState, error) {
	state, ok := m.cache.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return state, nil
}

func (m *MemoryStore) Save(_ context.Context, state *clinic.SessionState) error {
	m.cache.Add(state.ID, state)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.cache.Remove(id)
	return nil
}

func (m *MemoryStore) Len(context.Context) (int, error) {
	return m.cache.Len(), nil
}

func (m *MemoryStore) Close() error {
	m.cache.Purge()
	return nil
}
