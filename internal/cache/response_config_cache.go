// Package cache holds the single-slot TTL cache in front of the auto-reply
// configuration reads.
package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kdialloh/waresponder/internal/domain/models"
	"github.com/kdialloh/waresponder/internal/repository/mongodb"
)

const (
	maxFetchAttempts = 3
	retryBackoffStep = 200 * time.Millisecond
)

// Loader performs the underlying configuration read.
type Loader interface {
	FetchResponseConfig(ctx context.Context) (*models.ResponseConfig, error)
}

// ResponseConfigCache keeps the last fetched configuration together with its
// fetch time and serves it until the TTL elapses. A missing document is a
// cacheable result, not an error. When every read attempt fails with a
// connection-class error, the previously cached value is served stale; nil is
// returned only when nothing was ever loaded.
type ResponseConfigCache struct {
	loader Loader
	ttl    time.Duration
	logger *zap.Logger

	mu         sync.Mutex
	value      *models.ResponseConfig
	fetchedAt  time.Time
	loaded     bool
	refreshing bool

	now   func() time.Time
	sleep func(time.Duration)
}

// New builds a cache over the given loader.
func New(loader Loader, ttl time.Duration, logger *zap.Logger) *ResponseConfigCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResponseConfigCache{
		loader: loader,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
		sleep:  time.Sleep,
	}
}

// Get returns the current auto-reply configuration, refreshing it when the
// cached entry is older than the TTL. The read and its retries run outside
// the lock; at most one refresh is in flight, and callers arriving while it
// runs are served the previous value immediately instead of queueing.
func (c *ResponseConfigCache) Get(ctx context.Context) *models.ResponseConfig {
	c.mu.Lock()
	if c.loaded && c.now().Sub(c.fetchedAt) < c.ttl {
		value := c.value
		c.mu.Unlock()
		return value
	}
	if c.refreshing {
		value := c.value
		c.mu.Unlock()
		return value
	}
	c.refreshing = true
	c.mu.Unlock()

	cfg, ok := c.fetch(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshing = false

	if ok {
		c.store(cfg)
		return cfg
	}

	if c.loaded {
		c.logger.Warn("serving stale response config after failed refresh")
		return c.value
	}
	return nil
}

// fetch performs the underlying read with bounded linear-backoff retries. The
// ok result is true when a definitive answer arrived, including a missing
// document, and false when every attempt failed.
func (c *ResponseConfigCache) fetch(ctx context.Context) (*models.ResponseConfig, bool) {
	for attempt := 1; attempt <= maxFetchAttempts; attempt++ {
		cfg, err := c.loader.FetchResponseConfig(ctx)
		if err == nil {
			return cfg, true
		}

		if errors.Is(err, mongodb.ErrResponseConfigNotFound) {
			return nil, true
		}

		c.logger.Warn("response config read failed",
			zap.Int("attempt", attempt),
			zap.Error(err))

		if attempt < maxFetchAttempts {
			c.sleep(time.Duration(attempt) * retryBackoffStep)
		}
	}
	return nil, false
}

// Invalidate clears the cached entry so the next Get performs a fresh read.
func (c *ResponseConfigCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = nil
	c.loaded = false
	c.fetchedAt = time.Time{}
}

func (c *ResponseConfigCache) store(cfg *models.ResponseConfig) {
	c.value = cfg
	c.fetchedAt = c.now()
	c.loaded = true
}
