package cache

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/lumina_api/internal/config"
	"github.com/GTDGit/lumina_api/internal/models"
)

// requires Redis on localhost:6379, skipped otherwise
const testRedisAddr = "localhost:6379"

func setupRedis(t *testing.T) *RedisClient {
	t.Helper()
	conn, err := net.DialTimeout("tcp", testRedisAddr, 2*time.Second)
	if err != nil {
		t.Skipf("Redis not available at %s: %v", testRedisAddr, err)
	}
	conn.Close()

	client, err := NewRedisClient(&config.RedisConfig{Host: "localhost", Port: "6379", DB: 15})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestCatalogCache_WithoutRedisAlwaysLoads(t *testing.T) {
	c := NewCatalogCache(nil, time.Minute)
	var calls int32

	load := func(ctx context.Context) ([]models.Product, error) {
		atomic.AddInt32(&calls, 1)
		return []models.Product{{ID: 1, Title: "Lamp"}}, nil
	}

	for i := 0; i < 3; i++ {
		products, err := c.Products(context.Background(), load)
		require.NoError(t, err)
		assert.Len(t, products, 1)
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))

	c.Invalidate(context.Background())
}

func TestCatalogCache_LoaderError(t *testing.T) {
	c := NewCatalogCache(nil, time.Minute)
	boom := errors.New("db down")

	_, err := c.Products(context.Background(), func(ctx context.Context) ([]models.Product, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestCatalogCache_ConcurrentMissesShareLoad(t *testing.T) {
	c := NewCatalogCache(nil, time.Minute)
	var calls int32
	release := make(chan struct{})

	load := func(ctx context.Context) ([]models.Product, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return []models.Product{{ID: 7}}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			products, err := c.Products(context.Background(), load)
			assert.NoError(t, err)
			assert.Len(t, products, 1)
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&calls), int32(5))
	assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(1))
}

func TestCatalogCache_Redis(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()
	c := NewCatalogCache(client, time.Minute)
	c.Invalidate(ctx)
	t.Cleanup(func() { c.Invalidate(ctx) })

	var calls int32
	load := func(ctx context.Context) ([]models.Product, error) {
		atomic.AddInt32(&calls, 1)
		return []models.Product{{ID: 1, Title: "Lamp", Tags: []string{"home"}}}, nil
	}

	first, err := c.Products(ctx, load)
	require.NoError(t, err)
	second, err := c.Products(ctx, load)
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, first[0].Title, second[0].Title)
	assert.Equal(t, []string{"home"}, []string(second[0].Tags))

	c.Invalidate(ctx)
	_, err = c.Products(ctx, load)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestSessionStore_Redis(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()
	store := NewSessionStore(client)

	now := time.Now()
	store.now = func() time.Time { return now }

	sess := &models.Session{
		Token:     "test-token-1",
		UserID:    "u1",
		Username:  "ali",
		IsAdmin:   true,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
	require.NoError(t, store.Save(ctx, sess))
	t.Cleanup(func() { store.Delete(ctx, sess.Token) })

	got, err := store.Get(ctx, sess.Token)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "ali", got.Username)
	assert.True(t, got.IsAdmin)

	// past the expiry mark the session reads as absent
	store.now = func() time.Time { return now.Add(time.Hour) }
	got, err = store.Get(ctx, sess.Token)
	require.NoError(t, err)
	assert.Nil(t, got)

	missing, err := store.Get(ctx, "no-such-token")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSessionStore_RejectsExpired(t *testing.T) {
	store := NewSessionStore(nil)
	now := time.Now()
	store.now = func() time.Time { return now }

	err := store.Save(context.Background(), &models.Session{Token: "t", ExpiresAt: now})
	assert.ErrorIs(t, err, errSessionExpired)

	got, err := store.Get(context.Background(), "")
	assert.NoError(t, err)
	assert.Nil(t, got)
}
