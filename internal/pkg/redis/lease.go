package redis

import (
	"context"
	log "log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Lease a cross-process mutual exclusion lock with a TTL, kept alive while held
type Lease struct {
	key string
	ttl time.Duration
}

func NewLease(key string, ttl time.Duration) *Lease {
	return &Lease{key: key, ttl: ttl}
}

// Acquire takes the lease without waiting. release is nil when ok is false.
// The TTL is renewed every ttl/3 until release is called or ownership is lost.
func (l *Lease) Acquire(ctx context.Context) (release func(context.Context), ok bool, err error) {
	token := uuid.NewString()
	ok, err = TryLock(ctx, l.key, token, l.ttl, 1)
	if err != nil || !ok {
		return nil, false, err
	}
	stop := keepAlive(l.ttl/3, func(ctx context.Context) (bool, error) {
		return Renew(ctx, l.key, token, l.ttl)
	})
	return func(ctx context.Context) {
		stop()
		_ = UnLock(ctx, l.key, token)
	}, true, nil
}

// keepAlive calls renew every interval until stop is called, renew reports the lease gone, or it errors.
// stop waits for the loop to exit.
func keepAlive(interval time.Duration, renew func(context.Context) (bool, error)) (stop func()) {
	if interval <= 0 {
		return func() {}
	}
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			held, err := renew(ctx)
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				log.Warn("lease renew failed", "err", err)
				return
			}
			if !held {
				log.Warn("lease lost before release")
				return
			}
		}
	}()
	return func() {
		cancel()
		wg.Wait()
	}
}

// JSONStore persists a single JSON document under a fixed key
type JSONStore[T any] struct {
	key string
}

func NewJSONStore[T any](key string) *JSONStore[T] {
	return &JSONStore[T]{key: key}
}

func (s *JSONStore[T]) Save(ctx context.Context, v *T) error {
	return SetJSON(ctx, s.key, v, 0)
}

func (s *JSONStore[T]) Load(ctx context.Context) (*T, error) {
	var v T
	found, err := GetJSON(ctx, s.key, &v)
	if err != nil || !found {
		return nil, err
	}
	return &v, nil
}
