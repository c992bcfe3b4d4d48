package locker

import (
	"context"
	"sync"
)

// Memory locks keys within a single process.
type Memory struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

func NewMemory() *Memory {
	return &Memory{
		locks: map[string]chan struct{}{},
	}
}

func (m *Memory) sem(key string) chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	sem, ok := m.locks[key]
	if !ok {
		sem = make(chan struct{}, 1)
		m.locks[key] = sem
	}

	return sem
}

// Lock blocks until all keys are held or ctx is done.
func (m *Memory) Lock(ctx context.Context, keys ...string) (func(), error) {
	keys = normalize(keys)
	held := make([]chan struct{}, 0, len(keys))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			<-held[i]
		}
	}

	for _, k := range keys {
		sem := m.sem(k)
		select {
		case sem <- struct{}{}:
			held = append(held, sem)
		case <-ctx.Done():
			release()
			return nil, ctx.Err()
		}
	}

	var once sync.Once
	return func() { once.Do(release) }, nil
}
