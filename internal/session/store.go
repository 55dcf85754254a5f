package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/cardiopredict-server/internal/domain"
)

// Default store settings
const (
	DefaultTTL        = 30 * time.Minute
	DefaultMaxEntries = 10000
)

// Store persists workspaces. Get returns domain.ErrNotFound for unknown or expired IDs.
type Store interface {
	Get(ctx context.Context, id string) (*Workspace, error)
	Save(ctx context.Context, w *Workspace) error
	Delete(ctx context.Context, id string) error
}

// MemoryStore keeps workspaces in an expiring LRU cache. Values are stored encoded so that
// callers never share a workspace with the cache.
type MemoryStore struct {
	cache *expirable.LRU[string, []byte]

	mu      sync.RWMutex
	onEvict []func(id string)
}

// NewMemoryStore creates a store holding at most size workspaces, each expiring ttl after its
// last save.
func NewMemoryStore(size int, ttl time.Duration) *MemoryStore {
	if size <= 0 {
		size = DefaultMaxEntries
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &MemoryStore{}
	s.cache = expirable.NewLRU[string, []byte](size, func(id string, _ []byte) {
		s.mu.RLock()
		defer s.mu.RUnlock()
		for _, fn := range s.onEvict {
			fn(id)
		}
	}, ttl)
	return s
}

// OnEvict registers fn to run whenever a workspace leaves the store, whether deleted, expired
// or pushed out by newer ones. fn must not call back into the store.
func (s *MemoryStore) OnEvict(fn func(id string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEvict = append(s.onEvict, fn)
}

// Get returns a copy of the workspace stored under id.
func (s *MemoryStore) Get(ctx context.Context, id string) (*Workspace, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, ok := s.cache.Get(id)
	if !ok {
		return nil, fmt.Errorf("workspace %s: %w", id, domain.ErrNotFound)
	}
	return decode(data)
}

// Save stores a copy of w and restarts its expiry.
func (s *MemoryStore) Save(ctx context.Context, w *Workspace) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := encode(w)
	if err != nil {
		return err
	}
	s.cache.Add(w.ID, data)
	return nil
}

// Delete removes the workspace stored under id. Unknown IDs are ignored.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.cache.Remove(id)
	return nil
}

// Len returns the number of live workspaces.
func (s *MemoryStore) Len() int {
	return s.cache.Len()
}

func encode(w *Workspace) ([]byte, error) {
	if w == nil || w.ID == "" {
		return nil, fmt.Errorf("workspace without id")
	}
	data, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal workspace: %w", err)
	}
	return data, nil
}

func decode(data []byte) (*Workspace, error) {
	var w Workspace
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("failed to unmarshal workspace: %w", err)
	}
	return &w, nil
}
