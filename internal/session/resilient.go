package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/cardiopredict-server/internal/domain"
)

// ResilientStore puts a circuit breaker in front of a remote store and keeps a local memory
// copy of every saved workspace. Reads are served locally first, so changes saved while the
// remote store was down are not shadowed by its older copy once it recovers.
type ResilientStore struct {
	primary  Store
	fallback *MemoryStore
	breaker  *gobreaker.CircuitBreaker
	log      *logrus.Logger
}

// NewResilientStore wraps primary with a breaker configured from cfg.
func NewResilientStore(primary Store, fallback *MemoryStore, cfg domain.CircuitBreakerConfig, logger *logrus.Logger) *ResilientStore {
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	maxRequests := cfg.MaxRequests
	if maxRequests == 0 {
		maxRequests = 1
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "SessionStore",
		MaxRequests: maxRequests,
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, domain.ErrNotFound)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker changed state")
		},
	})

	return &ResilientStore{
		primary:  primary,
		fallback: fallback,
		breaker:  breaker,
		log:      logger,
	}
}

// Get reads the local copy, which every save updates, and asks the remote store only on a
// local miss. A remote hit is copied back into the local store.
func (s *ResilientStore) Get(ctx context.Context, id string) (*Workspace, error) {
	w, err := s.fallback.Get(ctx, id)
	if err == nil || !errors.Is(err, domain.ErrNotFound) {
		return w, err
	}

	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.primary.Get(ctx, id)
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		s.degraded("get", err)
		return nil, fmt.Errorf("workspace %s: %w", id, domain.ErrNotFound)
	}

	w = result.(*Workspace)
	if err := s.fallback.Save(ctx, w); err != nil {
		s.log.WithError(err).WithField("workspace_id", id).Warn("Failed to cache workspace locally")
	}
	return w, nil
}

// Save writes locally, then to the remote store unless the breaker is open.
func (s *ResilientStore) Save(ctx context.Context, w *Workspace) error {
	if err := s.fallback.Save(ctx, w); err != nil {
		return err
	}
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.primary.Save(ctx, w)
	})
	if err != nil {
		s.degraded("save", err)
	}
	return nil
}

// Delete removes the workspace from both stores.
func (s *ResilientStore) Delete(ctx context.Context, id string) error {
	if err := s.fallback.Delete(ctx, id); err != nil {
		return err
	}
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.primary.Delete(ctx, id)
	})
	if err != nil {
		s.degraded("delete", err)
	}
	return nil
}

// State returns the breaker state.
func (s *ResilientStore) State() gobreaker.State {
	return s.breaker.State()
}

func (s *ResilientStore) degraded(op string, err error) {
	s.log.WithFields(logrus.Fields{
		"operation": op,
		"state":     s.breaker.State().String(),
	}).WithError(err).Warn("Session store degraded to memory")
}
