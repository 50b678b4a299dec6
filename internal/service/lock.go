package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// sheetLockTTL bounds how long a crashed process can block a sheet. A live
// holder refreshes the lock every third of it until the save returns.
const sheetLockTTL = 30 * time.Second

// SheetLocker serializes Save actions on the same sheet across processes.
type SheetLocker interface {
	// Lock returns ErrSheetBusy when the key is already held.
	Lock(ctx context.Context, key string) (release func(), err error)
}

// NewSheetLocker returns a Redis-backed locker, or a no-op locker when rdb
// is nil.
func NewSheetLocker(rdb *redis.Client) SheetLocker {
	if rdb == nil {
		return noopLocker{}
	}
	return &redisLocker{client: redislock.New(rdb), ttl: sheetLockTTL}
}

type redisLocker struct {
	client *redislock.Client
	ttl    time.Duration
}

func (l *redisLocker) Lock(ctx context.Context, key string) (func(), error) {
	lock, err := l.client.Obtain(ctx, "lock:"+key, l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrSheetBusy
	}
	if err != nil {
		return nil, fmt.Errorf("obtain lock %s: %w", key, err)
	}

	stop := make(chan struct{})
	stopped := make(chan struct{})
	go l.keepAlive(lock, key, stop, stopped)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-stopped
			// Release with a fresh context: the request context may already be done.
			if err := lock.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
				log.Warn().Err(err).Str("key", key).Msg("failed to release sheet lock")
			}
		})
	}, nil
}

func (l *redisLocker) keepAlive(lock *redislock.Lock, key string, stop <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)
	t := time.NewTicker(l.ttl / 3)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			if err := lock.Refresh(context.Background(), l.ttl, nil); err != nil {
				log.Warn().Err(err).Str("key", key).Msg("failed to refresh sheet lock")
				return
			}
		}
	}
}

type noopLocker struct{}

func (noopLocker) Lock(context.Context, string) (func(), error) { return func() {}, nil }

func sheetLockKey(kind, date string) string {
	return fmt.Sprintf("stock:%s:%s", kind, date)
}
