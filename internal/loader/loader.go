// Package loader tracks the review list of each open dashboard view and
// fetches it from the reviews API whenever the viewing user changes.
package loader

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/utafrali/customerdash/internal/domain"
)

// Fetcher returns every review written by a user.
type Fetcher interface {
	ListByUser(ctx context.Context, userID string) ([]domain.Review, error)
}

// State is the load state of a view.
type State string

const (
	StateLoading State = "loading"
	StateLoaded  State = "loaded"
)

// Snapshot is a point-in-time copy of a Loader.
type Snapshot struct {
	State    State
	UserID   string
	Reviews  []domain.Review
	Failed   bool
	Err      error
	LoadedAt time.Time
}

// Loader holds the reviews of a single view. A failed fetch still moves
// the view to StateLoaded and keeps the previous list, which is empty on
// first load; Failed records that it happened.
type Loader struct {
	fetcher Fetcher
	logger  *slog.Logger
	timeout time.Duration
	nowFunc func() time.Time

	mu       sync.Mutex
	userID   string
	state    State
	reviews  []domain.Review
	failed   bool
	err      error
	loadedAt time.Time
	gen      uint64
	cancel   context.CancelFunc
	done     chan struct{}
	closed   bool
}

// New creates a Loader in StateLoading with no user. timeout bounds each
// fetch; zero means unbounded.
func New(fetcher Fetcher, timeout time.Duration, logger *slog.Logger) *Loader {
	return &Loader{
		fetcher: fetcher,
		logger:  logger,
		timeout: timeout,
		nowFunc: time.Now,
		state:   StateLoading,
		reviews: []domain.Review{},
	}
}

// SetUser points the view at userID and starts a fetch if it changed.
// An empty id never fetches. A fetch still running for the previous id is
// cancelled and its result dropped, and the previous user's list is
// cleared.
//
// ctx supplies request-scoped values (correlation id, trace) to the fetch;
// its cancellation does not stop the fetch.
func (l *Loader) SetUser(ctx context.Context, userID string) {
	if userID == "" {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed || userID == l.userID {
		return
	}

	if l.cancel != nil {
		l.cancel()
	}
	l.gen++
	if l.userID != "" {
		// Never show one user's reviews to another.
		l.reviews = []domain.Review{}
		l.failed = false
		l.err = nil
	}
	l.userID = userID
	l.start(ctx)
}

// Retry fetches the current user's reviews again if the last fetch
// failed. It reports whether a fetch was started. A fetch in flight, a
// successful load, a loader without a user and a closed loader are left
// alone.
func (l *Loader) Retry(ctx context.Context) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed || l.userID == "" || l.state != StateLoaded || !l.failed {
		return false
	}
	l.gen++
	l.start(ctx)
	return true
}

// start moves to StateLoading and launches a fetch for l.userID under the
// current generation. l.mu must be held.
func (l *Loader) start(ctx context.Context) {
	l.state = StateLoading

	parent := context.WithoutCancel(ctx)
	var (
		fetchCtx context.Context
		cancel   context.CancelFunc
	)
	if l.timeout > 0 {
		fetchCtx, cancel = context.WithTimeout(parent, l.timeout)
	} else {
		fetchCtx, cancel = context.WithCancel(parent)
	}
	done := make(chan struct{})
	l.cancel = cancel
	l.done = done

	go l.fetch(fetchCtx, cancel, l.gen, l.userID, done)
}

func (l *Loader) fetch(ctx context.Context, cancel context.CancelFunc, gen uint64, userID string, done chan struct{}) {
	defer close(done)
	defer cancel()

	start := time.Now()
	reviews, err := l.fetcher.ListByUser(ctx, userID)
	fetchDuration.Observe(time.Since(start).Seconds())

	l.mu.Lock()
	defer l.mu.Unlock()

	if gen != l.gen {
		fetchTotal.WithLabelValues(outcomeDiscarded).Inc()
		l.logger.DebugContext(ctx, "discarding superseded review fetch",
			slog.String("user_id", userID),
		)
		return
	}

	l.state = StateLoaded
	l.cancel = nil
	if err != nil {
		fetchTotal.WithLabelValues(outcomeFailure).Inc()
		l.failed = true
		l.err = err
		l.logger.ErrorContext(ctx, "error fetching reviews",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return
	}

	fetchTotal.WithLabelValues(outcomeSuccess).Inc()
	if reviews == nil {
		reviews = []domain.Review{}
	}
	l.reviews = reviews
	l.failed = false
	l.err = nil
	l.loadedAt = l.nowFunc()
}

// Snapshot returns a copy of the current view state.
func (l *Loader) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	return Snapshot{
		State:    l.state,
		UserID:   l.userID,
		Reviews:  slices.Clone(l.reviews),
		Failed:   l.failed,
		Err:      l.err,
		LoadedAt: l.loadedAt,
	}
}

// Wait blocks until the latest fetch settles or ctx is done. It returns
// at once when nothing was ever fetched.
func (l *Loader) Wait(ctx context.Context) error {
	for {
		l.mu.Lock()
		done := l.done
		l.mu.Unlock()

		if done == nil {
			return nil
		}

		select {
		case <-done:
			l.mu.Lock()
			current := l.done == done
			l.mu.Unlock()
			if current {
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close cancels any in-flight fetch. Later SetUser calls are ignored.
func (l *Loader) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	l.closed = true
	l.gen++
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
}
