// Package weather provides the extreme-weather flag the pricing engine
// consults for emergency surcharges. Flags come from an injected source and
// are cached in Redis so a burst of estimates does not hammer the upstream.
package weather

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"vakwerk_backend/platform/config"
	"vakwerk_backend/platform/logger"
)

const defaultCacheTTL = 15 * time.Minute

// Source reports whether extreme weather currently holds at a location.
type Source interface {
	Extreme(ctx context.Context, lat, lng float64) (bool, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context, lat, lng float64) (bool, error)

// Extreme calls the underlying function.
func (f SourceFunc) Extreme(ctx context.Context, lat, lng float64) (bool, error) {
	return f(ctx, lat, lng)
}

/// Service caches extreme-weather lookups. Failures fail open: pricing
// proceeds without the weather surcharge rather than blocking an estimate.
type Service struct {
	source Source
	redis  *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

// New creates a new weather service backed by the given source and Redis.
func New(source Source, rdb *redis.Client, cfg config.WeatherConfig, log *logger.Logger) *Service {
	ttl := defaultCacheTTL
	if cfg != nil && cfg.GetWeatherCacheTTLSeconds() > 0 {
		ttl = time.Duration(cfg.GetWeatherCacheTTLSeconds()) * time.Second
	}
	return &Service{source: source, redis: rdb, ttl: ttl, log: log}
}

// IsExtreme reports whether extreme weather holds at the location, serving
// from cache when fresh.
func (s *Service) IsExtreme(ctx context.Context, lat, lng float64) bool {
	key := cacheKey(lat, lng)

	if s.redis != nil {
		cached, err := s.redis.Get(ctx, key).Result()
		if err == nil {
			return cached == "1"
		}
		if err != redis.Nil {
			s.log.Warn("weather cache read failed", "error", err)
		}
	}

	extreme, err := s.source.Extreme(ctx, lat, lng)
	if err != nil {
		s.log.Warn("weather source failed, assuming normal conditions", "error", err)
		return false
	}

	if s.redis != nil {
		value := "0"
		if extreme {
			value = "1"
		}
		if err := s.redis.Set(ctx, key, value, s.ttl).Err(); err != nil {
			s.log.Warn("weather cache write failed", "error", err)
		}
	}
	return extreme
}

// cacheKey buckets coordinates to roughly city granularity so nearby jobs
// share a cache entry.
func cacheKey(lat, lng float64) string {
	return fmt.Sprintf("weather:extreme:%.1f:%.1f", lat, lng)
}
