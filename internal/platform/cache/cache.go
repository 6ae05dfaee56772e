// Package cache is a best-effort JSON cache in front of Redis.
//
// Get and Set never return errors. The backend is built lazily on first use
// and probed once with PING; the outcome is latched for the life of the
// process. Any backend failure afterwards flips the latch to unavailable and
// every later operation is skipped until Reset re-probes.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"idproxy/internal/platform/metrics"
	"idproxy/pkg/platform/sentinel"
)

// Backend is the key/value store behind the façade.
type Backend interface {
	Health(ctx context.Context) error
	GetBytes(ctx context.Context, key string) ([]byte, error)
	SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Factory builds the backend. A nil backend with a nil error means caching is
// not configured.
type Factory func() (Backend, error)

// Cache is the resilient façade. The zero value is not usable; use New.
type Cache struct {
	factory Factory
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu        sync.Mutex
	backend   Backend
	tested    bool
	probing   bool
	gen       uint64
	available bool
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// WithMetrics records hits, misses and availability.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) {
		c.metrics = m
	}
}

// New creates a cache that builds its backend with factory on first use.
func New(factory Factory, opts ...Option) *Cache {
	c := &Cache{
		factory:   factory,
		logger:    slog.Default(),
		available: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get decodes the cached value for key into dest. It reports false on a miss,
// when the backend is unavailable, or when the stored value does not decode.
func (c *Cache) Get(ctx context.Context, key string, dest any) bool {
	backend, ok := c.ready(ctx)
	if !ok {
		c.logger.DebugContext(ctx, "cache get skipped: backend unavailable", "key", key)
		c.recordSkip()
		return false
	}

	raw, err := backend.GetBytes(ctx, key)
	if errors.Is(err, sentinel.ErrNotFound) {
		c.recordMiss()
		return false
	}
	if err != nil {
		c.logger.WarnContext(ctx, "cache get failed, continuing without cache", "key", key, "error", err)
		c.markUnavailable("get")
		return false
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		c.logger.WarnContext(ctx, "cache value did not decode", "key", key, "error", err)
		c.recordMiss()
		return false
	}
	c.recordHit()
	return true
}

// Set stores value under key for ttl. Failures are logged and swallowed.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	backend, ok := c.ready(ctx)
	if !ok {
		c.logger.DebugContext(ctx, "cache set skipped: backend unavailable", "key", key)
		c.recordSkip()
		return
	}

	raw, err := json.Marshal(value)
	if err != nil {
		c.logger.WarnContext(ctx, "cache value did not encode", "key", key, "error", err)
		return
	}

	if err := backend.SetBytes(ctx, key, raw, ttl.Truncate(time.Second)); err != nil {
		c.logger.WarnContext(ctx, "cache set failed, continuing without cache", "key", key, "error", err)
		c.markUnavailable("set")
		return
	}
	c.logger.DebugContext(ctx, "cache set", "key", key, "ttl_seconds", int64(ttl.Seconds()))
}

// Available reports the current availability latch without probing.
func (c *Cache) Available() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.available
}

// Reset discards the backend and latch, then probes again.
func (c *Cache) Reset(ctx context.Context) bool {
	c.mu.Lock()
	c.backend = nil
	c.tested = false
	c.probing = false
	c.gen++
	c.available = true
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.RecordCacheReset()
	}
	_, ok := c.ready(ctx)
	return ok
}

// ready returns the backend after the one-shot availability probe. The probe
// runs without holding mu; callers arriving while it is in flight skip the
// cache instead of waiting on it.
func (c *Cache) ready(ctx context.Context) (Backend, bool) {
	c.mu.Lock()
	if c.tested {
		backend, ok := c.backend, c.available && c.backend != nil
		c.mu.Unlock()
		return backend, ok
	}
	if c.probing {
		c.mu.Unlock()
		return nil, false
	}
	c.probing = true
	gen := c.gen
	backend := c.backend
	c.mu.Unlock()

	backend, ok := c.probe(ctx, backend)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		// A Reset started a newer probe; leave the latch to it.
		return backend, ok
	}
	c.probing = false
	c.tested = true
	c.backend = backend
	c.setAvailable(ok)
	return backend, ok
}

func (c *Cache) probe(ctx context.Context, backend Backend) (Backend, bool) {
	if backend == nil {
		var err error
		backend, err = c.factory()
		if err != nil || backend == nil {
			if err != nil {
				c.logger.ErrorContext(ctx, "failed to initialise cache backend", "error", err)
			}
			return nil, false
		}
	}

	if err := backend.Health(ctx); err != nil {
		c.logger.WarnContext(ctx, "cache connection test failed, cache operations disabled", "error", err)
		c.recordFailure("probe")
		return backend, false
	}

	c.logger.InfoContext(ctx, "cache connection test successful")
	return backend, true
}

func (c *Cache) markUnavailable(op string) {
	c.mu.Lock()
	c.setAvailable(false)
	c.mu.Unlock()
	c.recordFailure(op)
}

// setAvailable must be called with mu held.
func (c *Cache) setAvailable(available bool) {
	c.available = available
	if c.metrics != nil {
		c.metrics.SetCacheAvailable(available)
	}
}

func (c *Cache) recordHit() {
	if c.metrics != nil {
		c.metrics.RecordCacheHit()
	}
}

func (c *Cache) recordMiss() {
	if c.metrics != nil {
		c.metrics.RecordCacheMiss()
	}
}

func (c *Cache) recordSkip() {
	if c.metrics != nil {
		c.metrics.RecordCacheSkip()
	}
}

func (c *Cache) recordFailure(op string) {
	if c.metrics != nil {
		c.metrics.RecordCacheFailure(op)
	}
}
