package ledger

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() time.Time {
	return time.Date(2025, time.March, 1, 5, 0, 0, 0, time.UTC)
}

func TestRedisLedger_RoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	l := NewRedisLedger(client, time.Hour)
	l.now = fixedClock
	ctx := context.Background()
	key := "notify:doc-1:user-1:2025-03-01"

	seen, err := l.Seen(ctx, key)
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, l.Record(ctx, key))

	seen, err = l.Seen(ctx, key)
	require.NoError(t, err)
	assert.True(t, seen)

	val, err := mr.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-01T05:00:00Z", val)
	assert.Equal(t, time.Hour, mr.TTL(key))

	mr.FastForward(2 * time.Hour)
	seen, err = l.Seen(ctx, key)
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestRedisLedger_DefaultTTL(t *testing.T) {
	client, mock := redismock.NewClientMock()
	l := NewRedisLedger(client, 0)
	l.now = fixedClock

	mock.ExpectSet("k", "2025-03-01T05:00:00Z", DefaultTTL).SetVal("OK")

	require.NoError(t, l.Record(context.Background(), "k"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisLedger_Errors(t *testing.T) {
	client, mock := redismock.NewClientMock()
	l := NewRedisLedger(client, time.Hour)
	l.now = fixedClock

	mock.ExpectGet("k").SetErr(stderrors.New("connection refused"))
	_, err := l.Seen(context.Background(), "k")
	assert.ErrorContains(t, err, "connection refused")

	mock.ExpectSet("k", "2025-03-01T05:00:00Z", time.Hour).SetErr(stderrors.New("READONLY"))
	err = l.Record(context.Background(), "k")
	assert.ErrorContains(t, err, "READONLY")

	assert.NoError(t, mock.ExpectationsWereMet())
}
