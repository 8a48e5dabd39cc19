// Package cache removes cached HTTP responses from Redis when the data
// behind them changes.  Invalidation is best-effort: failures are logged and
// never reach the caller.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// AnalyticsPattern matches every cached admin analytics response.
const AnalyticsPattern = "admin:analytics:*"

const (
	scanCount      = 100
	defaultTimeout = 5 * time.Second
)

// RedisInvalidator deletes keys matching a glob pattern.  It walks the
// keyspace with SCAN rather than KEYS so large databases are not blocked.
type RedisInvalidator struct {
	rdb redis.Cmdable
}

// NewRedisInvalidator wraps rdb.
func NewRedisInvalidator(rdb redis.Cmdable) *RedisInvalidator {
	return &RedisInvalidator{rdb: rdb}
}

// DeletePattern removes every key matching pattern and returns how many
// were deleted.
func (r *RedisInvalidator) DeletePattern(ctx context.Context, pattern string) (int64, error) {
	var (
		cursor  uint64
		deleted int64
	)
	for {
		keys, next, err := r.rdb.Scan(ctx, cursor, pattern, scanCount).Result()
		if err != nil {
			return deleted, fmt.Errorf("scan %s: %w", pattern, err)
		}
		if len(keys) > 0 {
			n, err := r.rdb.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, fmt.Errorf("del %d keys: %w", len(keys), err)
			}
			deleted += n
		}
		if next == 0 {
			return deleted, nil
		}
		cursor = next
	}
}

// PatternDeleter is satisfied by RedisInvalidator.
type PatternDeleter interface {
	DeletePattern(ctx context.Context, pattern string) (int64, error)
}

// Async runs invalidations in the background with a bounded timeout.
type Async struct {
	deleter PatternDeleter
	log     logrus.FieldLogger
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewAsync wraps deleter.  A nil deleter yields an Async that does nothing.
func NewAsync(deleter PatternDeleter, log logrus.FieldLogger) *Async {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Async{
		deleter: deleter,
		log:     log.WithField("component", "cache"),
		timeout: defaultTimeout,
	}
}

// Invalidate schedules removal of the keys matching pattern and returns
// immediately.
func (a *Async) Invalidate(pattern string) {
	if a == nil || a.deleter == nil {
		return
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()
		n, err := a.deleter.DeletePattern(ctx, pattern)
		if err != nil {
			a.log.WithError(err).WithField("pattern", pattern).Error("cache invalidation failed")
			return
		}
		a.log.WithFields(logrus.Fields{"pattern": pattern, "deleted": n}).Debug("cache invalidated")
	}()
}

// Wait blocks until scheduled invalidations finish.  Used on shutdown.
func (a *Async) Wait() {
	if a == nil {
		return
	}
	a.wg.Wait()
}

// Noop satisfies the invalidator contract when Redis is not configured.
type Noop struct{}

// Invalidate does nothing.
func (Noop) Invalidate(string) {}
