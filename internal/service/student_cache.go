package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/students-api/internal/dto"
	"github.com/noah-isme/students-api/internal/observability"
)

const (
	studentCachePrefix        = "students:list"
	studentCacheGenerationKey = studentCachePrefix + ":generation"
)

// StudentListCache stores list results keyed by search term.
// Get returns the key bound to the current generation even on a miss; Set must be
// given that key so a result read before an invalidation is never stored under the
// generation that follows it. An empty key means the entry must not be stored.
type StudentListCache interface {
	Get(ctx context.Context, search string) (students []dto.StudentResponse, key string, ok bool)
	Set(ctx context.Context, key string, students []dto.StudentResponse)
	Invalidate(ctx context.Context)
}

type redisStudentCache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewRedisStudentCache builds a list cache on top of Redis. Bumping the generation
// counter on every write orphans all cached lists, which then expire by TTL.
func NewRedisStudentCache(client *redis.Client, ttl time.Duration, logger zerolog.Logger) StudentListCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &redisStudentCache{
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "student_cache").Logger(),
	}
}

func (c *redisStudentCache) Get(ctx context.Context, search string) ([]dto.StudentResponse, string, bool) {
	key, err := c.key(ctx, search)
	if err != nil {
		c.logger.Warn().Err(err).Msg("failed to read student cache generation")
		return nil, "", false
	}

	cached, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn().Err(err).Msg("failed to read student list cache")
		}
		observability.CacheLookups().WithLabelValues("miss").Inc()
		return nil, key, false
	}

	var students []dto.StudentResponse
	if err := json.Unmarshal([]byte(cached), &students); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("discarding malformed student list cache entry")
		observability.CacheLookups().WithLabelValues("miss").Inc()
		return nil, key, false
	}

	observability.CacheLookups().WithLabelValues("hit").Inc()
	return students, key, true
}

func (c *redisStudentCache) Set(ctx context.Context, key string, students []dto.StudentResponse) {
	if key == "" {
		return
	}

	payload, err := json.Marshal(students)
	if err != nil {
		return
	}

	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("failed to store student list cache")
	}
}

func (c *redisStudentCache) Invalidate(ctx context.Context) {
	if err := c.client.Incr(ctx, studentCacheGenerationKey).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("failed to invalidate student list cache")
	}
}

func (c *redisStudentCache) key(ctx context.Context, search string) (string, error) {
	generation, err := c.client.Get(ctx, studentCacheGenerationKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", err
	}
	return fmt.Sprintf("%s:v%d:%s", studentCachePrefix, generation, strings.ToLower(search)), nil
}
