package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/cardiopredict-server/internal/domain"
)

// Manager creates workspaces and applies changes to them one at a time.
type Manager struct {
	store Store
	log   *logrus.Logger
	now   func() time.Time

	mu       sync.Mutex
	onDelete []func(id string)
}

// NewManager creates a manager over store.
func NewManager(store Store, logger *logrus.Logger) *Manager {
	return &Manager{
		store: store,
		log:   logger,
		now:   time.Now,
	}
}

// Create starts a new workspace with a random ID.
func (m *Manager) Create(ctx context.Context) (*Workspace, error) {
	w := New(uuid.NewString(), m.now().UTC())
	if err := m.store.Save(ctx, w); err != nil {
		return nil, fmt.Errorf("failed to save workspace: %w", err)
	}

	m.log.WithField("workspace_id", w.ID).Debug("Workspace created")
	return w, nil
}

// Get returns the workspace with the given ID. Malformed IDs are reported as not found.
func (m *Manager) Get(ctx context.Context, id string) (*Workspace, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("workspace %q: %w", id, domain.ErrNotFound)
	}
	return m.store.Get(ctx, id)
}

// Update loads the workspace, applies fn and saves the result. Nothing is saved when fn fails.
func (m *Manager) Update(ctx context.Context, id string, fn func(*Workspace) error) (*Workspace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(w); err != nil {
		return nil, err
	}

	w.UpdatedAt = m.now().UTC()
	if err := m.store.Save(ctx, w); err != nil {
		return nil, fmt.Errorf("failed to save workspace: %w", err)
	}
	return w, nil
}

// OnDelete registers fn to run after a workspace is deleted.
func (m *Manager) OnDelete(fn func(id string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onDelete = append(m.onDelete, fn)
}

// Delete discards the workspace.
func (m *Manager) Delete(ctx context.Context, id string) error {
	if err := m.store.Delete(ctx, id); err != nil {
		return err
	}

	m.mu.Lock()
	hooks := m.onDelete
	m.mu.Unlock()
	for _, fn := range hooks {
		fn(id)
	}

	m.log.WithField("workspace_id", id).Debug("Workspace deleted")
	return nil
}
