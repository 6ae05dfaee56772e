package cache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idproxy/internal/platform/metrics"
	"idproxy/pkg/platform/sentinel"
)

type fakeBackend struct {
	mu      sync.Mutex
	data    map[string][]byte
	ttls    map[string]time.Duration
	pingErr error
	getErr  error
	setErr  error
	pings   int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (f *fakeBackend) Health(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pings++
	return f.pingErr
}

func (f *fakeBackend) GetBytes(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	v, ok := f.data[key]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return v, nil
}

func (f *fakeBackend) SetBytes(_ context.Context, key string, value []byte, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.data[key] = value
	f.ttls[key] = ttl
	return nil
}

type payload struct {
	Result string `json:"result"`
}

func newCache(t *testing.T, backend Backend, factoryErr error) (*Cache, *int, *metrics.Metrics) {
	t.Helper()
	calls := 0
	m := metrics.New(prometheus.NewRegistry())
	c := New(func() (Backend, error) {
		calls++
		if factoryErr != nil {
			return nil, factoryErr
		}
		return backend, nil
	}, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))), WithMetrics(m))
	return c, &calls, m
}

func TestCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	c, calls, m := newCache(t, backend, nil)

	var miss payload
	assert.False(t, c.Get(ctx, "k", &miss))

	c.Set(ctx, "k", payload{Result: "Completed"}, 90*time.Second)

	var got payload
	require.True(t, c.Get(ctx, "k", &got))
	assert.Equal(t, "Completed", got.Result)
	assert.Equal(t, 90*time.Second, backend.ttls["k"])

	assert.Equal(t, 1, *calls, "backend built lazily, once")
	assert.Equal(t, 1, backend.pings, "availability probed once")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CacheHitsTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CacheMissesTotal))
}

func TestCache_ProbeFailureDisablesCache(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	backend.pingErr = errors.New("connection refused")
	c, _, m := newCache(t, backend, nil)

	c.Set(ctx, "k", payload{Result: "x"}, time.Minute)
	var got payload
	assert.False(t, c.Get(ctx, "k", &got))

	assert.False(t, c.Available())
	assert.Empty(t, backend.data)
	assert.Equal(t, 1, backend.pings, "probe result is latched")
	assert.Equal(t, float64(2), testutil.ToFloat64(m.CacheSkipsTotal))
}

func TestCache_FactoryFailure(t *testing.T) {
	c, calls, _ := newCache(t, nil, errors.New("bad url"))

	var got payload
	assert.False(t, c.Get(context.Background(), "k", &got))
	assert.False(t, c.Get(context.Background(), "k", &got))
	assert.Equal(t, 1, *calls)
	assert.False(t, c.Available())
}

func TestCache_OperationFailureLatchesUnavailable(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	c, _, _ := newCache(t, backend, nil)

	backend.setErr = errors.New("READONLY")
	c.Set(ctx, "k", payload{Result: "x"}, time.Minute)
	assert.False(t, c.Available())

	backend.setErr = nil
	c.Set(ctx, "k", payload{Result: "x"}, time.Minute)
	assert.Empty(t, backend.data, "no writes after latch flips")
}

func TestCache_ResetReprobes(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	backend.pingErr = errors.New("down")
	c, calls, m := newCache(t, backend, nil)

	var got payload
	assert.False(t, c.Get(ctx, "k", &got))
	assert.False(t, c.Available())

	backend.pingErr = nil
	assert.True(t, c.Reset(ctx))
	assert.True(t, c.Available())
	assert.Equal(t, 2, *calls, "reset rebuilds the backend")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CacheResetsTotal))

	c.Set(ctx, "k", payload{Result: "ok"}, time.Minute)
	require.True(t, c.Get(ctx, "k", &got))
	assert.Equal(t, "ok", got.Result)
}

func TestCache_UndecodableValueIsMiss(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	backend.data["k"] = []byte("not json")
	c, _, _ := newCache(t, backend, nil)

	var got payload
	assert.False(t, c.Get(ctx, "k", &got))
	assert.True(t, c.Available())
}

type slowProbeBackend struct {
	*fakeBackend
	entered chan struct{}
	release chan struct{}
}

func (b *slowProbeBackend) Health(ctx context.Context) error {
	close(b.entered)
	<-b.release
	return b.fakeBackend.Health(ctx)
}

func TestCache_SlowProbeDoesNotBlockOtherCallers(t *testing.T) {
	ctx := context.Background()
	backend := &slowProbeBackend{
		fakeBackend: newFakeBackend(),
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	c, _, _ := newCache(t, backend, nil)

	probed := make(chan bool, 1)
	go func() {
		var got payload
		probed <- c.Get(ctx, "k", &got)
	}()
	<-backend.entered

	done := make(chan struct{})
	go func() {
		defer close(done)
		var got payload
		assert.False(t, c.Get(ctx, "k", &got), "skipped while the probe is in flight")
		assert.True(t, c.Available())
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Get blocked behind the availability probe")
	}

	close(backend.release)
	assert.False(t, <-probed, "first caller misses on an empty cache")

	c.Set(ctx, "k", payload{Result: "Completed"}, time.Minute)
	var got payload
	require.True(t, c.Get(ctx, "k", &got))
	assert.Equal(t, 1, backend.pings)
}
