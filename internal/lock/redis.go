package lock

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"pocketledger/internal/logger"
	"pocketledger/internal/uuid"
)

const (
	defaultRetryDelay = 25 * time.Millisecond
	releaseTimeout    = 2 * time.Second
	keyPrefix         = "pocketledger:lock:"
)

// releaseScript deletes the key only while it still carries our token, so
// a holder whose TTL expired cannot release somebody else's lock.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// extendScript pushes the expiry forward only while we still hold the key.
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// Redis is a Locker shared by every API instance pointing at the same
// Redis server. Locks expire after ttl if the holder dies; a live holder
// refreshes the expiry every ttl/3 until it unlocks.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	retry  time.Duration
}

// NewRedis returns a Redis-backed locker.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl, retry: defaultRetryDelay}
}

// NewRedisClient parses url (with or without the redis:// scheme) and
// verifies the server answers.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	if !strings.Contains(url, "://") {
		url = "redis://" + url
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// Lock implements Locker by polling SET NX PX until it wins or ctx ends.
func (r *Redis) Lock(ctx context.Context, key string) (Unlock, error) {
	redisKey := keyPrefix + key
	token := uuid.New()

	for {
		ok, err := r.client.SetNX(ctx, redisKey, token, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}

		timer := time.NewTimer(r.retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	extend := func(ctx context.Context) (bool, error) {
		n, err := extendScript.Run(ctx, r.client, []string{redisKey}, token, r.ttl.Milliseconds()).Int64()
		return n == 1, err
	}
	stop := keepAlive(key, r.ttl/3, extend)

	var once sync.Once
	return func() {
		once.Do(func() {
			stop()
			releaseCtx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
			defer cancel()
			if err := releaseScript.Run(releaseCtx, r.client, []string{redisKey}, token).Err(); err != nil {
				logger.Get().Warnw("failed to release lock", "key", key, "error", err)
			}
		})
	}, nil
}

// keepAlive calls extend every interval until the returned stop is called
// or extend reports the key is no longer ours. stop waits for the loop to
// exit.
func keepAlive(key string, interval time.Duration, extend func(context.Context) (bool, error)) (stop func()) {
	if interval <= 0 {
		return func() {}
	}
	done := make(chan struct{})
	finished := make(chan struct{})

	go func() {
		defer close(finished)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
			}

			ctx, cancel := context.WithTimeout(context.Background(), interval)
			ok, err := extend(ctx)
			cancel()
			if err != nil {
				logger.Get().Warnw("failed to extend lock", "key", key, "error", err)
				continue
			}
			if !ok {
				logger.Get().Errorw("lock expired while held", "key", key)
				return
			}
		}
	}()

	return func() {
		close(done)
		<-finished
	}
}
