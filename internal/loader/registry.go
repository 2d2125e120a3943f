package loader

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

type view struct {
	id       string
	loader   *Loader
	lastSeen time.Time
}

// Registry owns one Loader per open page view. A view is mounted by a
// navigation that carries no known view id, is bound to a single user, and
// is closed after it has been idle for the TTL. Each user keeps at most
// maxViews views; mounting past that closes the least recently seen one.
type Registry struct {
	fetcher      Fetcher
	fetchTimeout time.Duration
	ttl          time.Duration
	maxViews     int
	logger       *slog.Logger

	mu      sync.Mutex
	users   map[string]map[string]*view // user id -> view id -> view
	count   int
	nowFunc func() time.Time // injectable clock for testing

	stop      chan struct{}
	closeOnce sync.Once
}

// NewRegistry creates a registry and starts its cleanup loop, which runs
// every ttl until Close. maxViews below 1 is treated as 1.
func NewRegistry(fetcher Fetcher, fetchTimeout, ttl time.Duration, maxViews int, logger *slog.Logger) *Registry {
	r := &Registry{
		fetcher:      fetcher,
		fetchTimeout: fetchTimeout,
		ttl:          ttl,
		maxViews:     max(maxViews, 1),
		logger:       logger,
		users:        make(map[string]map[string]*view),
		nowFunc:      time.Now,
		stop:         make(chan struct{}),
	}
	go r.cleanupLoop()
	return r
}

// Mount opens a new view for userID and starts its first fetch. It returns
// the new view id and its loader.
func (r *Registry) Mount(ctx context.Context, userID string) (string, *Loader) {
	r.mu.Lock()
	defer r.mu.Unlock()

	views := r.users[userID]
	if views == nil {
		views = make(map[string]*view)
	}
	for len(views) >= r.maxViews {
		r.evictOldest(userID, views)
	}
	r.users[userID] = views

	v := &view{
		id:       uuid.NewString(),
		loader:   New(r.fetcher, r.fetchTimeout, r.logger),
		lastSeen: r.nowFunc(),
	}
	views[v.id] = v
	r.count++
	viewSessions.Inc()

	v.loader.SetUser(ctx, userID)
	return v.id, v.loader
}

// Lookup returns the loader of an open view of userID and marks it as
// seen. A view id belonging to another user is not found.
func (r *Registry) Lookup(userID, viewID string) (*Loader, bool) {
	if viewID == "" {
		return nil, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.users[userID][viewID]
	if !ok {
		return nil, false
	}
	v.lastSeen = r.nowFunc()
	return v.loader, true
}

// Len returns the number of open views.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Close stops the cleanup loop and closes every loader.
func (r *Registry) Close() {
	r.closeOnce.Do(func() {
		close(r.stop)

		r.mu.Lock()
		defer r.mu.Unlock()
		for userID, views := range r.users {
			for id := range views {
				r.remove(userID, views, id)
			}
		}
	})
}

func (r *Registry) cleanupLoop() {
	ticker := time.NewTicker(r.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.cleanup()
		case <-r.stop:
			return
		}
	}
}

// cleanup closes and forgets views idle for longer than the TTL.
func (r *Registry) cleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.nowFunc()
	evicted := 0
	for userID, views := range r.users {
		for id, v := range views {
			if now.Sub(v.lastSeen) > r.ttl {
				r.remove(userID, views, id)
				evicted++
			}
		}
	}
	if evicted > 0 {
		r.logger.Debug("evicted idle views", slog.Int("count", evicted))
	}
}

// evictOldest closes the least recently seen view of userID. r.mu must be
// held.
func (r *Registry) evictOldest(userID string, views map[string]*view) {
	var oldest *view
	for _, v := range views {
		if oldest == nil || v.lastSeen.Before(oldest.lastSeen) {
			oldest = v
		}
	}
	if oldest == nil {
		return
	}
	r.remove(userID, views, oldest.id)
	r.logger.Debug("view limit reached, closed oldest view",
		slog.String("user_id", userID),
		slog.Int("max_views", r.maxViews),
	)
}

// remove closes and forgets one view. r.mu must be held.
func (r *Registry) remove(userID string, views map[string]*view, id string) {
	v, ok := views[id]
	if !ok {
		return
	}
	v.loader.Close()
	delete(views, id)
	if len(views) == 0 {
		delete(r.users, userID)
	}
	r.count--
	viewSessions.Dec()
}
