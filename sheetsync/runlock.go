package sheetsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"

	"github.com/apexdental/practice_backend/config"
)

// ErrRunInProgress rejects a run whose (tenant, scope, recordType) key is
// already being synced. The caller decides whether to retry later; the
// conflict is surfaced, never silently dropped.
var ErrRunInProgress = errors.New("a sync run is already in progress for this scope")

// runLocks serializes runs per (tenant, scope, recordType) key inside this
// process. Runs for different keys proceed in parallel.
type runLocks struct {
	mu   sync.Mutex
	held map[string]struct{}
}

var locks = &runLocks{held: make(map[string]struct{})}

func runLockKey(tenantId, recordType string, scopeId int) string {
	return fmt.Sprintf("sheetsync:%s:%s:%d", tenantId, recordType, scopeId)
}

// acquire takes the in-process lock plus a best-effort distributed lock.
// The returned release function is safe on every exit path and must be
// deferred immediately.
//
// The Redis lock is an optimization for multi-instance deployments;
// correctness does not depend on Redis being up (the natural-key upsert is
// atomic per row regardless).
func (l *runLocks) acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	if _, inFlight := l.held[key]; inFlight {
		l.mu.Unlock()
		return nil, ErrRunInProgress
	}
	l.held[key] = struct{}{}
	l.mu.Unlock()

	releaseLocal := func() {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
	}

	locker := config.GetRedisLock()
	if locker == nil {
		return releaseLocal, nil
	}

	redisLock, err := locker.Obtain(ctx, key, 10*time.Minute, nil)
	if err == redislock.ErrNotObtained {
		releaseLocal()
		return nil, ErrRunInProgress
	}
	if err != nil {
		// Redis being unreachable must not block syncs.
		config.LogError(config.GetLogger(), "sheetsync", "acquire", "redis lock unavailable", key, err)
		return releaseLocal, nil
	}

	return func() {
		_ = redisLock.Release(context.Background())
		releaseLocal()
	}, nil
}
