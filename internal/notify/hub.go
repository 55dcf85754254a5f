// Package notify delivers user-facing notifications to the workspaces that caused them.
package notify

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cardiopredict-server/internal/domain"
)

const (
	subscriberBuffer = 16
	maxPending       = 8

	// DefaultPendingTTL matches the default workspace lifetime.
	DefaultPendingTTL = 30 * time.Minute
)

// Hub fans notifications out to the subscribers of a workspace. Notifications published while a
// workspace has no subscriber are kept (up to a small limit) and handed to the next one. Queues
// nobody collects are discarded once pendingTTL has passed since their last notification.
type Hub struct {
	mu         sync.Mutex
	subs       map[string]map[uint64]chan domain.Notification
	pending    map[string][]domain.Notification
	pendingAt  map[string]time.Time
	pendingTTL time.Duration
	lastSweep  time.Time
	nextID     uint64
	closed     bool
	timers     map[*time.Timer]struct{}

	now func() time.Time
	log *logrus.Logger
}

// HubOption is a functional option for Hub.
type HubOption func(*Hub)

// WithPendingTTL sets how long undelivered notifications are kept for a workspace.
func WithPendingTTL(ttl time.Duration) HubOption {
	return func(h *Hub) {
		if ttl > 0 {
			h.pendingTTL = ttl
		}
	}
}

// NewHub creates an empty hub.
func NewHub(logger *logrus.Logger, opts ...HubOption) *Hub {
	h := &Hub{
		subs:       make(map[string]map[uint64]chan domain.Notification),
		pending:    make(map[string][]domain.Notification),
		pendingAt:  make(map[string]time.Time),
		pendingTTL: DefaultPendingTTL,
		timers:     make(map[*time.Timer]struct{}),
		now:        time.Now,
		log:        logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Subscribe returns a channel receiving the notifications of workspaceID and a function that
// ends the subscription and closes the channel.
func (h *Hub) Subscribe(workspaceID string) (<-chan domain.Notification, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan domain.Notification, subscriberBuffer)
	if h.closed {
		close(ch)
		return ch, func() {}
	}

	h.nextID++
	id := h.nextID
	if h.subs[workspaceID] == nil {
		h.subs[workspaceID] = make(map[uint64]chan domain.Notification)
	}
	h.subs[workspaceID][id] = ch

	for _, n := range h.pending[workspaceID] {
		ch <- n
	}
	delete(h.pending, workspaceID)
	delete(h.pendingAt, workspaceID)

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if subs, ok := h.subs[workspaceID]; ok {
				if c, ok := subs[id]; ok {
					delete(subs, id)
					close(c)
				}
				if len(subs) == 0 {
					delete(h.subs, workspaceID)
				}
			}
		})
	}
	return ch, cancel
}

// Publish delivers n to every subscriber of workspaceID and returns how many received it.
// Slow subscribers whose buffer is full miss the notification.
func (h *Hub) Publish(workspaceID string, n domain.Notification) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.publishLocked(workspaceID, n)
}

func (h *Hub) publishLocked(workspaceID string, n domain.Notification) int {
	if h.closed {
		return 0
	}
	now := h.now()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now.UTC()
	}
	h.sweepLocked(now)

	subs := h.subs[workspaceID]
	if len(subs) == 0 {
		queue := append(h.pending[workspaceID], n)
		if len(queue) > maxPending {
			queue = queue[len(queue)-maxPending:]
		}
		h.pending[workspaceID] = queue
		h.pendingAt[workspaceID] = now
		return 0
	}

	delivered := 0
	for _, ch := range subs {
		select {
		case ch <- n:
			delivered++
		default:
			h.log.WithFields(logrus.Fields{
				"workspace_id": workspaceID,
				"title":        n.Title,
			}).Warn("Dropping notification for slow subscriber")
		}
	}
	return delivered
}

// sweepLocked discards expired pending queues, at most once per pendingTTL.
func (h *Hub) sweepLocked(now time.Time) {
	if now.Sub(h.lastSweep) < h.pendingTTL {
		return
	}
	h.lastSweep = now
	for workspaceID, at := range h.pendingAt {
		if now.Sub(at) >= h.pendingTTL {
			delete(h.pending, workspaceID)
			delete(h.pendingAt, workspaceID)
		}
	}
}

// Drop discards the undelivered notifications of a workspace that no longer exists.
func (h *Hub) Drop(workspaceID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.pending, workspaceID)
	delete(h.pendingAt, workspaceID)
}

// PendingWorkspaces returns the number of workspaces holding undelivered notifications.
func (h *Hub) PendingWorkspaces() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.pending)
}

// PublishAfter publishes n once delay has elapsed. A zero or negative delay publishes at once.
func (h *Hub) PublishAfter(workspaceID string, n domain.Notification, delay time.Duration) {
	if delay <= 0 {
		h.Publish(workspaceID, n)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}

	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.timers, timer)
		h.publishLocked(workspaceID, n)
	})
	h.timers[timer] = struct{}{}
}

// Pending returns the number of delayed notifications not yet published.
func (h *Hub) Pending() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.timers)
}

// Close stops pending timers and closes every subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true

	for timer := range h.timers {
		timer.Stop()
	}
	h.timers = nil

	for workspaceID, subs := range h.subs {
		for _, ch := range subs {
			close(ch)
		}
		delete(h.subs, workspaceID)
	}
	h.pending = nil
	h.pendingAt = nil
}
