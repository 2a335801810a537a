package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserFromContext(t *testing.T) {
	_, ok := UserFromContext(context.Background())
	assert.False(t, ok)

	id, ok := UserFromContext(WithUser(context.Background(), 42))
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)

	_, ok = UserFromContext(WithUser(context.Background(), 0))
	assert.False(t, ok, "zero is the anonymous id")
}

func newRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, ttl), mr
}

func TestRedisStore_Lifecycle(t *testing.T) {
	store, mr := newRedisStore(t, time.Hour)
	ctx := context.Background()

	token, err := store.Create(ctx, 7)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.True(t, mr.Exists("session:"+token))
	assert.Equal(t, time.Hour, mr.TTL("session:"+token))

	id, ok, err := store.Lookup(ctx, token)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(7), id)

	require.NoError(t, store.Destroy(ctx, token))
	_, ok, err = store.Lookup(ctx, token)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_Expiry(t *testing.T) {
	store, mr := newRedisStore(t, time.Minute)
	ctx := context.Background()

	token, err := store.Create(ctx, 3)
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, ok, err := store.Lookup(ctx, token)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_LookupRefreshesTTL(t *testing.T) {
	store, mr := newRedisStore(t, time.Minute)
	ctx := context.Background()

	token, err := store.Create(ctx, 3)
	require.NoError(t, err)

	mr.FastForward(40 * time.Second)
	_, ok, err := store.Lookup(ctx, token)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(40 * time.Second)
	_, ok, err = store.Lookup(ctx, token)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisStore_CorruptValue(t *testing.T) {
	store, mr := newRedisStore(t, time.Minute)
	require.NoError(t, mr.Set("session:bad", "not-a-number"))

	_, ok, err := store.Lookup(context.Background(), "bad")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, mr.Exists("session:bad"))
}

func TestRedisStore_ConnectionError(t *testing.T) {
	store, mr := newRedisStore(t, time.Minute)
	mr.Close()

	_, err := store.Create(context.Background(), 1)
	assert.ErrorContains(t, err, "failed to store session")

	_, _, err = store.Lookup(context.Background(), "abc")
	assert.ErrorContains(t, err, "failed to load session")
}

func TestMemoryStore_Lifecycle(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	ctx := context.Background()

	token, err := store.Create(ctx, 9)
	require.NoError(t, err)

	id, ok, err := store.Lookup(ctx, token)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(9), id)

	require.NoError(t, store.Destroy(ctx, token))
	require.NoError(t, store.Destroy(ctx, token))

	_, ok, _ = store.Lookup(ctx, token)
	assert.False(t, ok)
}

func TestMemoryStore_Expiry(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	token, err := store.Create(context.Background(), 5)
	require.NoError(t, err)

	now = now.Add(30 * time.Second)
	_, ok, _ := store.Lookup(context.Background(), token)
	assert.True(t, ok)

	now = now.Add(61 * time.Second)
	_, ok, _ = store.Lookup(context.Background(), token)
	assert.False(t, ok)
}

func TestMemoryStore_TokensAreDistinct(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	ctx := context.Background()

	var (
		mu     sync.Mutex
		tokens = map[string]bool{}
		wg     sync.WaitGroup
	)
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			token, err := store.Create(ctx, id)
			assert.NoError(t, err)
			mu.Lock()
			tokens[token] = true
			mu.Unlock()
		}(int64(i))
	}
	wg.Wait()

	assert.Len(t, tokens, 50)
}
