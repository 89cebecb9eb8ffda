package util

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// SyncLocker serializes sync passes per user via a Redis SetNX lock.
// Unlike dedup checks, a lock that cannot be confirmed fails closed: two
// concurrent passes for the same user could both decide to create the same
// order, so on Redis errors the lock is reported as not acquired.
type SyncLocker struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewSyncLocker(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *SyncLocker {
	return &SyncLocker{
		rdb:    rdb,
		ttl:    ttl,
		logger: logger,
	}
}

func lockKey(userID int64) string {
	return fmt.Sprintf("synclock:%d", userID)
}

// Acquire tries to take the per-user sync lock. Returns a release token on
// success; ok=false means another pass holds the lock (or Redis failed).
func (l *SyncLocker) Acquire(ctx context.Context, userID int64) (token string, ok bool) {
	token = fmt.Sprintf("%d", time.Now().UnixNano())

	acquired, err := l.rdb.SetNX(ctx, lockKey(userID), token, l.ttl).Result()
	if err != nil {
		if l.logger != nil {
			l.logger.Warn("Redis sync lock check failed, refusing to run",
				zap.Int64("user_id", userID),
				zap.Error(err),
			)
		}
		return "", false
	}

	if !acquired && l.logger != nil {
		l.logger.Info("Sync already in progress for user",
			zap.Int64("user_id", userID),
		)
	}

	return token, acquired
}

// releaseScript deletes the lock only if it still holds our token, so an
// expired-and-reacquired lock is never released from under another pass.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

// Release frees the per-user sync lock if the token still matches.
func (l *SyncLocker) Release(ctx context.Context, userID int64, token string) {
	if err := releaseScript.Run(ctx, l.rdb, []string{lockKey(userID)}, token).Err(); err != nil {
		if l.logger != nil {
			l.logger.Warn("Failed to release sync lock, it will expire on its own",
				zap.Int64("user_id", userID),
				zap.Error(err),
			)
		}
	}
}
