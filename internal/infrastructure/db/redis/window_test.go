package redis

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Set REDIS_TEST_ADDR (e.g. localhost:6379) to run against a live server.
func newTestCounter(t *testing.T) *WindowCounter {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	client, err := Connect(context.Background(), Config{Addr: addr})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return NewWindowCounter(client)
}

func TestWindowCounter_Key(t *testing.T) {
	w := &WindowCounter{}
	assert.Equal(t, "ratelimit:ip:10.0.0.1:guest", w.key("ip:10.0.0.1:guest"))
}

func TestWindowCounter_AllowsUpToLimit(t *testing.T) {
	w := newTestCounter(t)
	ctx := context.Background()
	key := "test:" + uuid.NewString()

	for i := 0; i < 3; i++ {
		ok, err := w.Allow(ctx, key, 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok, "request %d", i+1)
	}
	ok, err := w.Allow(ctx, key, 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWindowCounter_Slides(t *testing.T) {
	w := newTestCounter(t)
	ctx := context.Background()
	key := "test:" + uuid.NewString()

	start := time.Now()
	w.now = func() time.Time { return start }
	ok, err := w.Allow(ctx, key, 1, time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = w.Allow(ctx, key, 1, time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	w.now = func() time.Time { return start.Add(1500 * time.Millisecond) }
	ok, err = w.Allow(ctx, key, 1, time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestWindowCounter_Concurrent(t *testing.T) {
	w := newTestCounter(t)
	key := "test:" + uuid.NewString()

	var admitted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, err := w.Allow(context.Background(), key, 5, time.Minute); err == nil && ok {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 5, admitted.Load())
}
