package session

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/EcliqseX/vetsim/internal/clinic"
)

const lockStripes = 64

// Registry creates sessions and runs engine operations against them one at
// a time per session id. Operations on different sessions run concurrently.
type Registry struct {
	engine *clinic.Engine
	store  Store
	log    *logrus.Logger
	locks  [lockStripes]sync.Mutex
}

// NewRegistry binds an engine to a session store.
func NewRegistry(engine *clinic.Engine, store Store, logger *logrus.Logger) *Registry {
	return &Registry{engine: engine, store: store, log: logger}
}

// Engine returns the engine sessions are played with.
func (r *Registry) Engine() *clinic.Engine {
	return r.engine
}

func (r *Registry) lock(id string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(id))
	return &r.locks[h.Sum32()%lockStripes]
}

// Create opens a new session and stores it.
func (r *Registry) Create(ctx context.Context) (*clinic.SessionState, error) {
	state := r.engine.InitSession()
	if err := r.store.Save(ctx, state); err != nil {
		return nil, fmt.Errorf("failed to store new session: %w", err)
	}
	return state, nil
}

// Do runs fn on the session under its lock and saves the state afterwards.
// The state is saved even when fn fails, since a rejected action still
// writes to the activity log.
func (r *Registry) Do(ctx context.Context, id string, fn func(*clinic.SessionState) error) error {
	mu := r.lock(id)
	mu.Lock()
	defer mu.Unlock()

	state, err := r.store.Load(ctx, id)
	if err != nil {
		return err
	}

	fnErr := fn(state)
	if err := r.store.Save(ctx, state); err != nil {
		r.log.WithError(err).WithField("session_id", id).Error("Failed to save session")
		return errors.Join(fnErr, fmt.Errorf("failed to save session: %w", err))
	}
	return fnErr
}

// View runs fn on the session under its lock without saving.
func (r *Registry) View(ctx context.Context, id string, fn func(*clinic.SessionState) error) error {
	mu := r.lock(id)
	mu.Lock()
	defer mu.Unlock()

	state, err := r.store.Load(ctx, id)
	if err != nil {
		return err
	}
	return fn(state)
}

// Delete ends a session.
func (r *Registry) Delete(ctx context.Context, id string) error {
	mu := r.lock(id)
	mu.Lock()
	defer mu.Unlock()

	if _, err := r.store.Load(ctx, id); err != nil {
		return err
	}
	return r.store.Delete(ctx, id)
}

// Len reports the number of live sessions.
func (r *Registry) Len(ctx context.Context) (int, error) {
	return r.store.Len(ctx)
}

// Close releases the store.
func (r *Registry) Close() error {
	return r.store.Close()
}
