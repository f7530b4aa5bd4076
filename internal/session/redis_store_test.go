package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb, "sess"), mr
}

func TestRedisStoreRoundTrip(t *testing.T) {
	st, mr := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, st.Save(ctx, "abc", map[string]string{KeyLoginFlag: "true", KeyUserType: "c2VhbGVk"}, time.Hour))
	assert.Equal(t, time.Hour, mr.TTL("sess:abc"))
	assert.Equal(t, "true", mr.HGet("sess:abc", KeyLoginFlag))

	vals, err := st.Load(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{KeyLoginFlag: "true", KeyUserType: "c2VhbGVk"}, vals)
}

func TestRedisStoreSaveReplacesFields(t *testing.T) {
	st, _ := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, st.Save(ctx, "abc", map[string]string{KeyLoginFlag: "true", KeyFlash: "hi"}, time.Hour))
	require.NoError(t, st.Save(ctx, "abc", map[string]string{KeyLoginFlag: "true"}, time.Hour))

	vals, err := st.Load(ctx, "abc")
	require.NoError(t, err)
	assert.NotContains(t, vals, KeyFlash)
}

func TestRedisStoreEmptyValuesDelete(t *testing.T) {
	st, mr := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, st.Save(ctx, "abc", map[string]string{KeyLoginFlag: "true"}, time.Hour))
	require.NoError(t, st.Save(ctx, "abc", map[string]string{}, time.Hour))
	assert.False(t, mr.Exists("sess:abc"))

	_, err := st.Load(ctx, "abc")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestRedisStoreExpiredReadsAsMissing(t *testing.T) {
	st, mr := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, st.Save(ctx, "abc", map[string]string{KeyLoginFlag: "true"}, time.Minute))
	mr.FastForward(2 * time.Minute)

	_, err := st.Load(ctx, "abc")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestRedisStoreDelete(t *testing.T) {
	st, mr := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, st.Save(ctx, "abc", map[string]string{KeyLoginFlag: "true"}, time.Hour))
	require.NoError(t, st.Delete(ctx, "abc"))
	assert.False(t, mr.Exists("sess:abc"))
}

func TestRedisStoreUnreachable(t *testing.T) {
	st, mr := newRedisStore(t)
	mr.Close()

	_, err := st.Load(context.Background(), "abc")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoSession)
}
