package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/places-engine/booking"
)

var board = []booking.ClubPoints{
	{Name: "Simply Lift", Points: 13},
	{Name: "Iron Temple", Points: 4},
}

func TestMemory_ExpiresAfterTTL(t *testing.T) {
	// GIVEN: A cache with a controllable clock
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemory(30 * time.Second)
	m.now = func() time.Time { return clock }
	ctx := context.Background()

	_, ok := m.Get(ctx)
	assert.False(t, ok, "empty cache misses")

	// WHEN: Setting the board
	m.Set(ctx, board)

	// THEN: It is served until the TTL elapses
	clock = clock.Add(29 * time.Second)
	got, ok := m.Get(ctx)
	require.True(t, ok)
	assert.Equal(t, board, got)

	clock = clock.Add(time.Second)
	_, ok = m.Get(ctx)
	assert.False(t, ok)
}

func TestMemory_Invalidate(t *testing.T) {
	m := NewMemory(time.Minute)
	ctx := context.Background()

	m.Set(ctx, board)
	m.Invalidate(ctx)

	_, ok := m.Get(ctx)
	assert.False(t, ok)
}

func TestMemory_CachesEmptyBoard(t *testing.T) {
	m := NewMemory(time.Minute)
	ctx := context.Background()

	m.Set(ctx, []booking.ClubPoints{})

	got, ok := m.Get(ctx)
	assert.True(t, ok)
	assert.Empty(t, got)
}

func TestRedis_GetSet(t *testing.T) {
	client, mock := redismock.NewClientMock()
	r := NewRedis(client, "", 30*time.Second)
	ctx := context.Background()

	data, err := json.Marshal(board)
	require.NoError(t, err)

	mock.ExpectGet(DefaultRedisKey).RedisNil()
	mock.ExpectSet(DefaultRedisKey, data, 30*time.Second).SetVal("OK")
	mock.ExpectGet(DefaultRedisKey).SetVal(string(data))

	_, ok := r.Get(ctx)
	assert.False(t, ok)

	r.Set(ctx, board)

	got, ok := r.Get(ctx)
	require.True(t, ok)
	assert.Equal(t, board, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedis_Invalidate(t *testing.T) {
	client, mock := redismock.NewClientMock()
	r := NewRedis(client, "points:test", time.Minute)

	mock.ExpectDel("points:test").SetVal(1)

	r.Invalidate(context.Background())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedis_FailuresAreMisses(t *testing.T) {
	client, mock := redismock.NewClientMock()
	r := NewRedis(client, "", time.Minute)
	ctx := context.Background()

	mock.ExpectGet(DefaultRedisKey).SetErr(errors.New("connection refused"))
	mock.ExpectGet(DefaultRedisKey).SetVal("not json")

	_, ok := r.Get(ctx)
	assert.False(t, ok)
	_, ok = r.Get(ctx)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
