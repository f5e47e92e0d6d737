package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"quiz-pilot/internal/cache"
	"quiz-pilot/internal/domain"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// CachedClient stores completions in the cache keyed by model and prompt and
// coalesces concurrent identical prompts.
type CachedClient struct {
	next    domain.LLM
	cache   domain.Cache
	model   string
	ttl     time.Duration
	sfGroup singleflight.Group
	logger  *zap.Logger
}

func NewCachedClient(next domain.LLM, c domain.Cache, model string, ttl time.Duration, logger *zap.Logger) *CachedClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedClient{next: next, cache: c, model: model, ttl: ttl, logger: logger}
}

func (c *CachedClient) enabled() bool {
	return c.cache != nil && c.ttl > 0
}

func (c *CachedClient) Complete(ctx context.Context, prompt string) (string, error) {
	cacheKey := cache.LLMResponseKey(c.model, prompt)

	if c.enabled() {
		cached, err := c.cache.Get(ctx, cacheKey)
		if err == nil {
			c.logger.Debug("LLM cache hit", zap.String("cacheKey", cacheKey))
			return cached, nil
		}
		if !errors.Is(err, domain.ErrCacheMiss) {
			c.logger.Warn("Failed to read LLM cache", zap.Error(err), zap.String("cacheKey", cacheKey))
		}
	}

	res, err, shared := c.sfGroup.Do(cacheKey, func() (interface{}, error) {
		response, err := c.next.Complete(ctx, prompt)
		if err != nil {
			return nil, err
		}
		if c.enabled() {
			if err := c.cache.Set(ctx, cacheKey, response, c.ttl); err != nil {
				c.logger.Warn("Failed to store LLM response", zap.Error(err), zap.String("cacheKey", cacheKey))
			}
		}
		return response, nil
	})
	if err != nil {
		return "", err
	}
	if shared {
		c.logger.Debug("LLM call shared with concurrent caller", zap.String("cacheKey", cacheKey))
	}

	response, ok := res.(string)
	if !ok {
		return "", fmt.Errorf("unexpected type from singleflight.Do for LLM response: %T", res)
	}
	return response, nil
}

// Forget drops a cached response the caller rejected.
func (c *CachedClient) Forget(ctx context.Context, prompt string) error {
	if !c.enabled() {
		return nil
	}
	return c.cache.Delete(ctx, cache.LLMResponseKey(c.model, prompt))
}
