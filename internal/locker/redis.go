package locker

import (
	"context"
	"errors"
	"fmt"
	"helo/internal/util"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultTTL = 30 * time.Second
	retryDelay = 100 * time.Millisecond
	keyPrefix  = "helo:lock:"
)

// Redis locks keys across processes sharing a Redis server. Held locks are
// refreshed until released so that a long recalculation keeps them.
type Redis struct {
	client *redislock.Client
	ttl    time.Duration
}

func NewRedis(client redis.UniversalClient, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Redis{
		client: redislock.New(client),
		ttl:    ttl,
	}
}

// Lock retries every key until obtained or ctx is done.
func (r *Redis) Lock(ctx context.Context, keys ...string) (func(), error) {
	keys = normalize(keys)
	held := make([]*redislock.Lock, 0, len(keys))
	opts := &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(retryDelay),
	}

	for _, k := range keys {
		lock, err := r.client.Obtain(ctx, keyPrefix+k, r.ttl, opts)
		if err != nil {
			if err2 := release(held); err2 != nil {
				log.Errorf("unable to release locks: %s", err2)
			}
			if errors.Is(err, redislock.ErrNotObtained) {
				return nil, fmt.Errorf("lock %s is held elsewhere: %w", k, err)
			}
			return nil, err
		}

		held = append(held, lock)
	}

	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		r.refresh(held, done)
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			<-stopped
			if err := release(held); err != nil {
				log.Errorf("unable to release locks: %s", err)
			}
		})
	}, nil
}

func (r *Redis) refresh(held []*redislock.Lock, done <-chan struct{}) {
	ticker := time.NewTicker(r.ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for _, v := range held {
				if err := v.Refresh(context.Background(), r.ttl, nil); err != nil {
					log.Errorf("unable to refresh lock %s: %s", v.Key(), err)
				}
			}
		case <-done:
			return
		}
	}
}

func release(held []*redislock.Lock) error {
	var errs []error
	for i := len(held) - 1; i >= 0; i-- {
		if err := held[i].Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			errs = append(errs, fmt.Errorf("%s: %w", held[i].Key(), err))
		}
	}

	return util.ConcatErrors(errs)
}
