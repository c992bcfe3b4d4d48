package locker_test

import (
	"context"
	"helo/internal/locker"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lockerImpl interface {
	Lock(ctx context.Context, keys ...string) (func(), error)
}

func TestMemoryExclusion(t *testing.T) {
	testExclusion(t, locker.NewMemory())
}

func TestMemoryContextCancel(t *testing.T) {
	l := locker.NewMemory()
	unlock, err := l.Lock(context.Background(), "a", "b")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "c", "b")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// "c" was released when giving up on "b".
	unlockC, err := l.Lock(context.Background(), "c")
	require.NoError(t, err)
	unlockC()

	unlock()
	unlock() // releasing twice is harmless

	unlock, err = l.Lock(context.Background(), "b", "a", "a")
	require.NoError(t, err)
	unlock()
}

func TestRedisExclusion(t *testing.T) {
	addr := os.Getenv("HELO_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("HELO_TEST_REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { client.Close() })

	testExclusion(t, locker.NewRedis(client, time.Second))
}

// testExclusion runs overlapping critical sections in reverse key orders and
// checks that no two of them ever run at the same time.
func testExclusion(t *testing.T, l lockerImpl) {
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		running int
		maxSeen int
	)

	keysets := [][]string{{"x", "y"}, {"y", "x"}, {"y", "z", "x"}}
	for i := 0; i < 30; i++ {
		keys := keysets[i%len(keysets)]
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			unlock, err := l.Lock(ctx, keys...)
			if !assert.NoError(t, err) {
				return
			}
			defer unlock()

			mu.Lock()
			running++
			if running > maxSeen {
				maxSeen = running
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			running--
			mu.Unlock()
		}()
	}

	wg.Wait()
	assert.Equal(t, 1, maxSeen)
}
