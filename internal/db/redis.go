package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/socialchef/pantry/internal/utils"
)

// NewRedis connects to the Redis instance at redisURL and verifies it with a ping,
// retrying while the server is still coming up.
func NewRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redisOptions(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opt)
	if err := ping(ctx, func(ctx context.Context) error { return client.Ping(ctx).Err() }); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

// redisOptions accepts the same forms as the task queue: a redis:// or rediss://
// URL, or a bare host:port.
func redisOptions(redisURL string) (*redis.Options, error) {
	if !strings.HasPrefix(redisURL, "redis://") && !strings.HasPrefix(redisURL, "rediss://") {
		return &redis.Options{Addr: redisURL}, nil
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	return opt, nil
}

// ping retries check with the connect backoff policy.
func ping(ctx context.Context, check func(context.Context) error) error {
	_, err := utils.WithRetry(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, check(ctx)
	}, utils.ConnectRetryConfig())
	return err
}
