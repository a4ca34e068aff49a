package cache

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/andresuchdata/restock-go/internal/config"
)

const (
	defaultForecastTTL = time.Hour
	redisDialTimeout   = 5 * time.Second
	purgeBatchSize     = 100
)

// redisOptions resolves connection settings. REDIS_URL wins over host/port.
func redisOptions(cfg config.CacheConfig) (*redis.Options, error) {
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		return opts, nil
	}

	return &redis.Options{
		Addr:        net.JoinHostPort(valueOr(cfg.RedisHost, "127.0.0.1"), valueOr(cfg.RedisPort, "6379")),
		Password:    cfg.RedisPassword,
		DB:          cfg.RedisDB,
		DialTimeout: redisDialTimeout,
	}, nil
}

// connectRedis returns a client that answered a ping.
func connectRedis(ctx context.Context, cfg config.CacheConfig) (*redis.Client, error) {
	opts, err := redisOptions(cfg)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, redisDialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s failed: %w", opts.Addr, err)
	}
	return client, nil
}

func forecastTTL(cfg config.CacheConfig) time.Duration {
	if cfg.ForecastTTLSeconds <= 0 {
		return defaultForecastTTL
	}
	return time.Duration(cfg.ForecastTTLSeconds) * time.Second
}

// purge unlinks every key matching pattern in batches and reports how many
// keys were removed.
func purge(ctx context.Context, client *redis.Client, pattern string) (int, error) {
	var (
		removed int
		batch   = make([]string, 0, purgeBatchSize)
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := client.Unlink(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("redis unlink failed: %w", err)
		}
		removed += len(batch)
		batch = batch[:0]
		return nil
	}

	iter := client.Scan(ctx, 0, pattern, purgeBatchSize).Iterator()
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == purgeBatchSize {
			if err := flush(); err != nil {
				return removed, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("redis scan failed: %w", err)
	}

	err := flush()
	return removed, err
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
