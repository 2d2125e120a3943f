package loader

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/customerdash/internal/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestRegistry(t *testing.T, f Fetcher, ttl time.Duration, maxViews int) (*Registry, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	r := NewRegistry(f, time.Second, ttl, maxViews, discardLogger())
	r.mu.Lock()
	r.nowFunc = clock.Now
	r.mu.Unlock()
	t.Cleanup(r.Close)
	return r, clock
}

func okFetcher() *mockFetcher {
	f := new(mockFetcher)
	f.On("ListByUser", mock.Anything, mock.Anything).Return([]domain.Review{}, nil)
	return f
}

func TestRegistry_MountStartsFetchForUser(t *testing.T) {
	f := newGatedFetcher(true)
	r, _ := newTestRegistry(t, f, time.Hour, 5)

	id, l := r.Mount(context.Background(), "u1")

	_, err := uuid.Parse(id)
	require.NoError(t, err)
	c := f.next(t)
	assert.Equal(t, "u1", c.userID)
	assert.Equal(t, StateLoading, l.Snapshot().State)
	assert.Equal(t, "u1", l.Snapshot().UserID)
	c.reply <- reply{reviews: []domain.Review{}}
}

func TestRegistry_LookupReturnsMountedLoader(t *testing.T) {
	r, _ := newTestRegistry(t, okFetcher(), time.Hour, 5)

	a, la := r.Mount(context.Background(), "u1")
	b, lb := r.Mount(context.Background(), "u1")

	assert.NotEqual(t, a, b)
	assert.NotSame(t, la, lb)

	got, ok := r.Lookup("u1", a)
	require.True(t, ok)
	assert.Same(t, la, got)
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_LookupIsScopedToUser(t *testing.T) {
	r, _ := newTestRegistry(t, okFetcher(), time.Hour, 5)
	id, _ := r.Mount(context.Background(), "u1")

	_, ok := r.Lookup("u2", id)
	assert.False(t, ok)

	_, ok = r.Lookup("u1", "")
	assert.False(t, ok)

	_, ok = r.Lookup("u1", "not-a-view")
	assert.False(t, ok)
}

func TestRegistry_CapsViewsPerUser(t *testing.T) {
	r, clock := newTestRegistry(t, okFetcher(), time.Hour, 2)

	first, lFirst := r.Mount(context.Background(), "u1")
	clock.Advance(time.Second)
	second, _ := r.Mount(context.Background(), "u1")
	clock.Advance(time.Second)
	_, _ = r.Lookup("u1", first)
	clock.Advance(time.Second)
	third, _ := r.Mount(context.Background(), "u1")
	r.Mount(context.Background(), "u2")

	assert.Equal(t, 3, r.Len())
	_, ok := r.Lookup("u1", second)
	assert.False(t, ok, "least recently seen view is closed")
	got, ok := r.Lookup("u1", first)
	require.True(t, ok)
	assert.Same(t, lFirst, got)
	_, ok = r.Lookup("u1", third)
	assert.True(t, ok)
}

func TestRegistry_SingleViewLimitReplaces(t *testing.T) {
	r, _ := newTestRegistry(t, okFetcher(), time.Hour, 1)

	old, _ := r.Mount(context.Background(), "u1")
	latest, _ := r.Mount(context.Background(), "u1")

	assert.Equal(t, 1, r.Len())
	_, ok := r.Lookup("u1", old)
	assert.False(t, ok)
	_, ok = r.Lookup("u1", latest)
	assert.True(t, ok)
}

func TestRegistry_EvictsIdleViews(t *testing.T) {
	f := newGatedFetcher(true)
	r, clock := newTestRegistry(t, f, 10*time.Minute, 5)

	idle, _ := r.Mount(context.Background(), "u1")
	inFlight := f.next(t)

	clock.Advance(6 * time.Minute)
	active, _ := r.Mount(context.Background(), "u2")
	f.next(t).reply <- reply{reviews: []domain.Review{}}
	clock.Advance(6 * time.Minute)

	r.cleanup()

	assert.Equal(t, 1, r.Len())
	select {
	case <-inFlight.ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("evicted loader did not cancel its fetch")
	}
	_, ok := r.Lookup("u1", idle)
	assert.False(t, ok)
	_, ok = r.Lookup("u2", active)
	assert.True(t, ok)
}

func TestRegistry_LookupRefreshesLastSeen(t *testing.T) {
	r, clock := newTestRegistry(t, okFetcher(), 10*time.Minute, 5)

	id, l := r.Mount(context.Background(), "u1")
	clock.Advance(8 * time.Minute)
	r.Lookup("u1", id)
	clock.Advance(8 * time.Minute)
	r.cleanup()

	assert.Equal(t, 1, r.Len())
	got, ok := r.Lookup("u1", id)
	require.True(t, ok)
	assert.Same(t, l, got)
}

func TestRegistry_ViewGauge(t *testing.T) {
	before := testutil.ToFloat64(viewSessions)
	r := NewRegistry(okFetcher(), time.Second, time.Hour, 5, discardLogger())

	r.Mount(context.Background(), "g1")
	r.Mount(context.Background(), "g2")
	assert.Equal(t, before+2, testutil.ToFloat64(viewSessions))

	r.Close()
	assert.Equal(t, before, testutil.ToFloat64(viewSessions))
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_CloseIsIdempotentAndClosesLoaders(t *testing.T) {
	f := newGatedFetcher(true)
	r := NewRegistry(f, time.Second, time.Hour, 5, discardLogger())
	_, l := r.Mount(context.Background(), "u1")
	c := f.next(t)

	r.Close()
	r.Close()

	select {
	case <-c.ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("closed registry did not cancel the fetch")
	}
	l.SetUser(context.Background(), "u2")
	assert.False(t, l.Retry(context.Background()))
	assert.Equal(t, "u1", l.Snapshot().UserID)
}
