package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/restock-go/internal/config"
	"github.com/andresuchdata/restock-go/internal/pipeline/restock"
)

const forecastKeyPrefix = "restock:forecast"

// ForecastCache stores computed forecasts keyed by their run parameters.
type ForecastCache interface {
	GetForecast(ctx context.Context, p restock.Params) (*restock.Result, bool, error)
	SetForecast(ctx context.Context, p restock.Params, res *restock.Result) error
	InvalidateAll(ctx context.Context) error
}

type redisForecastCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopForecastCache struct{}

// NewForecastCache connects to Redis when caching is enabled and falls back
// to a cache that never hits otherwise.
func NewForecastCache(ctx context.Context, cfg config.CacheConfig) (ForecastCache, error) {
	if !cfg.Enabled {
		return &noopForecastCache{}, nil
	}

	client, err := connectRedis(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &redisForecastCache{
		client: client,
		ttl:    forecastTTL(cfg),
	}, nil
}

func NewNoopForecastCache() ForecastCache {
	return &noopForecastCache{}
}

func (c *redisForecastCache) GetForecast(ctx context.Context, p restock.Params) (*restock.Result, bool, error) {
	payload, err := c.client.Get(ctx, buildForecastKey(p)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var res restock.Result
	if err := json.Unmarshal(payload, &res); err != nil {
		return nil, false, fmt.Errorf("decode forecast cache: %w", err)
	}

	return &res, true, nil
}

func (c *redisForecastCache) SetForecast(ctx context.Context, p restock.Params, res *restock.Result) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode forecast cache: %w", err)
	}

	if err := c.client.Set(ctx, buildForecastKey(p), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}

	return nil
}

func (c *redisForecastCache) InvalidateAll(ctx context.Context) error {
	removed, err := purge(ctx, c.client, forecastKeyPrefix+":*")
	if err != nil {
		return err
	}
	log.Debug().Int("keys", removed).Msg("forecast cache invalidated")
	return nil
}

func (n *noopForecastCache) GetForecast(ctx context.Context, p restock.Params) (*restock.Result, bool, error) {
	return nil, false, nil
}

func (n *noopForecastCache) SetForecast(ctx context.Context, p restock.Params, res *restock.Result) error {
	return nil
}

func (n *noopForecastCache) InvalidateAll(ctx context.Context) error {
	return nil
}

// buildForecastKey hashes every parameter that changes the result.
func buildForecastKey(p restock.Params) string {
	date := func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("2006-01-02")
	}
	float := func(f float64) string {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}

	parts := []string{
		"ref=" + date(p.ReferenceDate),
		"long=" + strconv.Itoa(p.LongTermDays),
		"short=" + strconv.Itoa(p.ShortTermDays),
		"events=" + strconv.FormatBool(p.IncludeEvents),
		"sales_max=" + date(p.SalesMaxDate),
		"inventory_max=" + date(p.InventoryMaxDate),
		"spike=" + float(p.SpikeRatio),
		"strong=" + float(p.StrongVelocityThreshold),
		"coverage=" + strconv.Itoa(p.CoverageDays),
		"lookback=" + strconv.Itoa(p.InventoryLookbackAttempts),
		"key=" + strings.ToLower(string(p.KeyMode)),
		"event=" + strings.ToUpper(string(p.Event)),
	}

	raw := strings.Join(parts, "|")
	hash := sha1.Sum([]byte(raw))
	return fmt.Sprintf("%s:%s:%s", forecastKeyPrefix, date(p.ReferenceDate), hex.EncodeToString(hash[:]))
}
