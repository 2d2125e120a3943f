package cache

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/customerdash/internal/domain"
)

// --- Mocks ---

type mockSource struct {
	mock.Mock
}

func (m *mockSource) ListByUser(ctx context.Context, userID string) ([]domain.Review, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Review), args.Error(1)
}

type mockRedis struct {
	mock.Mock
}

func (m *mockRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	args := m.Called(ctx, key)
	return redis.NewStringResult(args.String(0), args.Error(1))
}

func (m *mockRedis) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	args := m.Called(ctx, key, value, expiration)
	return redis.NewStatusResult(args.String(0), args.Error(1))
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func reviews() []domain.Review {
	return []domain.Review{{ID: "r1", Rating: 5, Comment: "Great coffee", Product: &domain.Product{Name: "Espresso"}}}
}

// --- Tests ---

func TestListByUser_Hit(t *testing.T) {
	src, rdb := new(mockSource), new(mockRedis)
	raw, err := json.Marshal(reviews())
	require.NoError(t, err)
	rdb.On("Get", mock.Anything, "customerdash:reviews:user:u1").Return(string(raw), nil)

	got, err := New(src, rdb, time.Minute, testLogger()).ListByUser(context.Background(), "u1")

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Espresso", got[0].ProductName())
	src.AssertNotCalled(t, "ListByUser", mock.Anything, mock.Anything)
	rdb.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestListByUser_MissStoresResult(t *testing.T) {
	src, rdb := new(mockSource), new(mockRedis)
	rdb.On("Get", mock.Anything, Key("u1")).Return("", redis.Nil)
	src.On("ListByUser", mock.Anything, "u1").Return(reviews(), nil)
	rdb.On("Set", mock.Anything, Key("u1"), mock.AnythingOfType("[]uint8"), 30*time.Second).Return("OK", nil)

	got, err := New(src, rdb, 30*time.Second, testLogger()).ListByUser(context.Background(), "u1")

	require.NoError(t, err)
	assert.Equal(t, reviews(), got)
	src.AssertExpectations(t)
	rdb.AssertExpectations(t)
}

func TestListByUser_CacheErrorsNeverFail(t *testing.T) {
	src, rdb := new(mockSource), new(mockRedis)
	rdb.On("Get", mock.Anything, Key("u1")).Return("", errors.New("redis down"))
	src.On("ListByUser", mock.Anything, "u1").Return(reviews(), nil)
	rdb.On("Set", mock.Anything, Key("u1"), mock.Anything, time.Minute).Return("", errors.New("redis down"))

	got, err := New(src, rdb, time.Minute, testLogger()).ListByUser(context.Background(), "u1")

	require.NoError(t, err)
	assert.Equal(t, reviews(), got)
}

func TestListByUser_CorruptEntryFallsThrough(t *testing.T) {
	src, rdb := new(mockSource), new(mockRedis)
	rdb.On("Get", mock.Anything, Key("u1")).Return("{not json", nil)
	src.On("ListByUser", mock.Anything, "u1").Return(reviews(), nil)
	rdb.On("Set", mock.Anything, Key("u1"), mock.Anything, time.Minute).Return("OK", nil)

	got, err := New(src, rdb, time.Minute, testLogger()).ListByUser(context.Background(), "u1")

	require.NoError(t, err)
	assert.Len(t, got, 1)
	src.AssertNumberOfCalls(t, "ListByUser", 1)
}

func TestListByUser_SourceErrorNotCached(t *testing.T) {
	src, rdb := new(mockSource), new(mockRedis)
	rdb.On("Get", mock.Anything, Key("u1")).Return("", redis.Nil)
	src.On("ListByUser", mock.Anything, "u1").Return(nil, errors.New("upstream 502"))

	got, err := New(src, rdb, time.Minute, testLogger()).ListByUser(context.Background(), "u1")

	require.Error(t, err)
	assert.Nil(t, got)
	rdb.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestListByUser_CachedEmptyListIsHit(t *testing.T) {
	src, rdb := new(mockSource), new(mockRedis)
	rdb.On("Get", mock.Anything, Key("u2")).Return("[]", nil)

	got, err := New(src, rdb, time.Minute, testLogger()).ListByUser(context.Background(), "u2")

	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	src.AssertNotCalled(t, "ListByUser", mock.Anything, mock.Anything)
}

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func TestListByUser_Miniredis_ExpiresAfterTTL(t *testing.T) {
	client, mr := setupTestRedis(t)
	src := new(mockSource)
	src.On("ListByUser", mock.Anything, "u1").Return(reviews(), nil)
	c := New(src, client, time.Minute, testLogger())

	_, err := c.ListByUser(context.Background(), "u1")
	require.NoError(t, err)
	_, err = c.ListByUser(context.Background(), "u1")
	require.NoError(t, err)
	src.AssertNumberOfCalls(t, "ListByUser", 1)

	assert.True(t, mr.Exists(Key("u1")))
	assert.Equal(t, time.Minute, mr.TTL(Key("u1")))

	mr.FastForward(time.Minute + time.Second)

	_, err = c.ListByUser(context.Background(), "u1")
	require.NoError(t, err)
	src.AssertNumberOfCalls(t, "ListByUser", 2)
}

func TestListByUser_Miniredis_StoredEntryIsJSON(t *testing.T) {
	client, mr := setupTestRedis(t)
	src := new(mockSource)
	src.On("ListByUser", mock.Anything, "u1").Return(reviews(), nil)

	_, err := New(src, client, time.Minute, testLogger()).ListByUser(context.Background(), "u1")
	require.NoError(t, err)

	raw, err := mr.Get(Key("u1"))
	require.NoError(t, err)
	var stored []domain.Review
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	assert.Equal(t, reviews(), stored)
}
