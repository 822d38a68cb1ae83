package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStore(client), mr
}

func TestStore_SetGet(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", "v", time.Minute))
	v, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)
}

func TestStore_GetMissingKeyIsEmptyNotError(t *testing.T) {
	store, _ := newTestStore(t)

	v, err := store.Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.Equal(t, "", v)
}

func TestStore_GetExpiredKeyIsEmpty(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", "v", time.Minute))
	mr.FastForward(2 * time.Minute)

	v, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "", v)
}

func TestStore_SetNXOnlyFirstWriterWins(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	ok, err := store.SetNX(ctx, "lock", "first", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.SetNX(ctx, "lock", "second", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	v, err := store.Get(ctx, "lock")
	require.NoError(t, err)
	assert.Equal(t, "first", v)
}

func TestStore_IncrFixedWindow(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	n, err := store.Incr(ctx, "ctr", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	firstTTL := mr.TTL("ctr")
	assert.Equal(t, time.Minute, firstTTL)

	// Later increments must not refresh the window.
	mr.FastForward(30 * time.Second)
	n, err = store.Incr(ctx, "ctr", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, 30*time.Second, mr.TTL("ctr"))

	// The whole window expires and the counter starts over.
	mr.FastForward(31 * time.Second)
	n, err = store.Incr(ctx, "ctr", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestStore_GetIntMissingIsZero(t *testing.T) {
	store, _ := newTestStore(t)

	n, err := store.GetInt(context.Background(), "absent")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestStore_DeleteMultiple(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "a", "1", time.Minute))
	require.NoError(t, store.Set(ctx, "b", "2", time.Minute))
	require.NoError(t, store.Delete(ctx, "a", "b", "never-existed"))

	v, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "", v)
}

func TestJSONHelpers_RoundTripAndMissing(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	type payload struct {
		Email string `json:"email"`
		Count int    `json:"count"`
	}

	require.NoError(t, SetJSON(ctx, store, "p", payload{Email: "a@b.c", Count: 3}, time.Minute))

	var got payload
	found, err := GetJSON(ctx, store, "p", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, payload{Email: "a@b.c", Count: 3}, got)

	found, err = GetJSON(ctx, store, "absent", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSetJSONNX_SecondWriteRejected(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	ok, err := SetJSONNX(ctx, store, "p", map[string]string{"v": "1"}, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = SetJSONNX(ctx, store, "p", map[string]string{"v": "2"}, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}
