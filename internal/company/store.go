package company

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheTTL = 5 * time.Minute

// Source loads the authoritative config for a company.
type Source interface {
	Get(ctx context.Context, companyID string) (*Config, error)
}

// Store is a Redis read-through cache in front of a Source. Calls resolve
// config once at call start; the short TTL keeps config edits visible without
// a Postgres round trip per call.
type Store struct {
	redis  *redis.Client
	source Source
}

func NewStore(redisClient *redis.Client, source Source) *Store {
	if redisClient == nil {
		panic("company: redis client cannot be nil")
	}
	return &Store{redis: redisClient, source: source}
}

func (s *Store) key(companyID string) string {
	return fmt.Sprintf("company:config:%s", companyID)
}

// Get returns the company config, from cache when fresh. With no source
// configured, a cache miss yields the development default.
func (s *Store) Get(ctx context.Context, companyID string) (*Config, error) {
	data, err := s.redis.Get(ctx, s.key(companyID)).Bytes()
	if err == nil {
		var cfg Config
		if jsonErr := json.Unmarshal(data, &cfg); jsonErr == nil {
			return &cfg, nil
		}
		// Corrupt cache entry; fall through to the source.
	} else if err != redis.Nil {
		return nil, fmt.Errorf("company: read config cache: %w", err)
	}

	if s.source == nil {
		return DefaultConfig(companyID), nil
	}

	cfg, err := s.source.Get(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if cacheErr := s.put(ctx, cfg); cacheErr != nil {
		// Serving the config matters more than caching it.
		return cfg, nil
	}
	return cfg, nil
}

// Invalidate drops the cached config after an admin edit.
func (s *Store) Invalidate(ctx context.Context, companyID string) error {
	if err := s.redis.Del(ctx, s.key(companyID)).Err(); err != nil {
		return fmt.Errorf("company: invalidate config cache: %w", err)
	}
	return nil
}

func (s *Store) put(ctx context.Context, cfg *Config) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("company: marshal config: %w", err)
	}
	if err := s.redis.Set(ctx, s.key(cfg.CompanyID), data, cacheTTL).Err(); err != nil {
		return fmt.Errorf("company: cache config: %w", err)
	}
	return nil
}
