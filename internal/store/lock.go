package store

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ginjaninja78/wfc-ingest/internal/config"
	"github.com/ginjaninja78/wfc-ingest/internal/ingest"
)

// releaseScript deletes the lock only if this holder still owns it.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
    return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLocker is a single-key run lock. The TTL bounds how long a crashed
// run can block the next one.
type RedisLocker struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisLocker builds a locker from cfg. It does not dial.
func NewRedisLocker(cfg config.LockConfig, logger *zap.Logger) *RedisLocker {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.RedisAddr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})
	return &RedisLocker{client: client, key: cfg.Key, ttl: cfg.TTL, logger: logger}
}

// Acquire takes the lock, or returns ingest.ErrLocked if another run holds it.
func (l *RedisLocker) Acquire(ctx context.Context) (func(context.Context) error, error) {
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, errors.Wrap(err, "acquire run lock")
	}
	if !ok {
		return nil, ingest.ErrLocked
	}
	l.logger.Debug("run lock acquired", zap.String("key", l.key), zap.Duration("ttl", l.ttl))

	release := func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Err(); err != nil {
			return errors.Wrap(err, "release run lock")
		}
		return nil
	}
	return release, nil
}

// Close closes the client.
func (l *RedisLocker) Close() {
	if l != nil && l.client != nil {
		_ = l.client.Close()
	}
}
