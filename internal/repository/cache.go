package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/mini-maxit/evaluator/internal/logger"
	"github.com/mini-maxit/evaluator/pkg/constants"
	"github.com/mini-maxit/evaluator/pkg/submission"
)

// RedisClient is the subset of *redis.Client used by the cache.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

type cachedRepository struct {
	inner  SubmissionRepository
	redis  RedisClient
	ttl    time.Duration
	logger *zap.SugaredLogger
}

// NewCachedRepository wraps inner with a Redis read-through cache of single
// submissions. Terminal records never change, so cached entries are never
// invalidated, only expired. Redis failures fall back to inner.
func NewCachedRepository(inner SubmissionRepository, client RedisClient, ttl time.Duration) SubmissionRepository {
	return &cachedRepository{
		inner:  inner,
		redis:  client,
		ttl:    ttl,
		logger: logger.NewNamedLogger("submission-cache"),
	}
}

func (c *cachedRepository) Insert(ctx context.Context, s *submission.Submission) error {
	if err := c.inner.Insert(ctx, s); err != nil {
		return err
	}
	c.store(ctx, s)
	return nil
}

func (c *cachedRepository) Get(ctx context.Context, id string) (*submission.Submission, error) {
	data, err := c.redis.Get(ctx, cacheKey(id)).Bytes()
	switch {
	case err == nil:
		var s submission.Submission
		if err := json.Unmarshal(data, &s); err == nil {
			return &s, nil
		}
		c.logger.Warnf("Discarding unreadable cache entry for submission %s", id)
	case !errors.Is(err, redis.Nil):
		c.logger.Warnf("Failed to read submission %s from cache: %s", id, err)
	}

	s, err := c.inner.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c.store(ctx, s)
	return s, nil
}

func (c *cachedRepository) ListByUserQuestion(
	ctx context.Context,
	userID, questionID string,
) ([]*submission.Submission, error) {
	return c.inner.ListByUserQuestion(ctx, userID, questionID)
}

func (c *cachedRepository) store(ctx context.Context, s *submission.Submission) {
	data, err := json.Marshal(s)
	if err != nil {
		c.logger.Warnf("Failed to encode submission %s for cache: %s", s.ID, err)
		return
	}
	if err := c.redis.Set(ctx, cacheKey(s.ID), data, c.ttl).Err(); err != nil {
		c.logger.Warnf("Failed to cache submission %s: %s", s.ID, err)
	}
}

func cacheKey(id string) string {
	return constants.RedisSubmissionKeyPrefix + id
}
