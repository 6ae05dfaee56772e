package greenid

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// RetryInterval is the fixed pause between failed connection attempts.
const RetryInterval = 5 * time.Second

// Dialer builds a connected Client for the given endpoint.
type Dialer func(ctx context.Context, endpoint string) (Client, error)

// ErrNotStarted is returned when the manager is used before Start.
var ErrNotStarted = errors.New("greenid client manager not started")

// Manager owns the vendor client for the life of the process. Start launches
// a background loop that dials until it succeeds, retrying forever at
// RetryInterval. Callers block in Client until the connection is ready.
type Manager struct {
	endpoint string
	dial     Dialer
	logger   *slog.Logger
	sleep    func(d time.Duration)

	startOnce sync.Once
	started   chan struct{}
	ready     chan struct{}

	mu       sync.RWMutex
	client   Client
	attempts int
}

// Option configures a Manager.
type Option func(*Manager)

// WithDialer replaces the default SOAP dialer.
func WithDialer(d Dialer) Option {
	return func(m *Manager) {
		m.dial = d
	}
}

// WithLogger sets the logger used for lifecycle transitions.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithSleep replaces the wait between attempts.
func WithSleep(sleep func(d time.Duration)) Option {
	return func(m *Manager) {
		m.sleep = sleep
	}
}

// NewManager creates a manager for endpoint. The default dialer speaks SOAP
// with the given credentials.
func NewManager(endpoint string, creds Credentials, opts ...Option) *Manager {
	m := &Manager{
		endpoint: endpoint,
		dial:     NewDialer(creds, nil),
		logger:   slog.Default(),
		sleep:    time.Sleep,
		started:  make(chan struct{}),
		ready:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start launches the connection loop. Repeated calls are no-ops. The loop
// runs until a client is obtained and is not tied to any request context.
func (m *Manager) Start() {
	m.startOnce.Do(func() {
		close(m.started)
		go m.connect(context.Background())
	})
}

func (m *Manager) connect(ctx context.Context) {
	m.logger.Info("greenid client connecting", "endpoint", m.endpoint)
	for {
		m.mu.Lock()
		m.attempts++
		attempt := m.attempts
		m.mu.Unlock()

		client, err := m.dial(ctx, m.endpoint)
		if err == nil {
			m.mu.Lock()
			m.client = client
			m.mu.Unlock()
			m.logger.Info("greenid client connected", "attempt", attempt)
			close(m.ready)
			m.logger.Info("greenid client ready")
			return
		}

		m.logger.Error("greenid client connection failed",
			"error", err,
			"attempt", attempt,
			"retry_in", RetryInterval.String(),
		)
		m.sleep(RetryInterval)
		m.logger.Info("greenid client reconnecting", "attempt", attempt+1)
	}
}

// Client blocks until the vendor client is ready or ctx is done.
func (m *Manager) Client(ctx context.Context) (Client, error) {
	select {
	case <-m.started:
	default:
		return nil, ErrNotStarted
	}
	select {
	case <-m.ready:
		m.mu.RLock()
		defer m.mu.RUnlock()
		return m.client, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Ready reports whether a client is available without blocking.
func (m *Manager) Ready() bool {
	select {
	case <-m.ready:
		return true
	default:
		return false
	}
}

// Attempts returns the number of dial attempts made so far.
func (m *Manager) Attempts() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.attempts
}

// Health is a readiness check for the health handler.
func (m *Manager) Health(context.Context) error {
	if !m.Ready() {
		return errors.New("greenid client not ready")
	}
	return nil
}

func (m *Manager) RegisterVerification(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	c, err := m.Client(ctx)
	if err != nil {
		return nil, err
	}
	return c.RegisterVerification(ctx, req)
}

func (m *Manager) SetFields(ctx context.Context, req SetFieldsRequest) (*SetFieldsResult, error) {
	c, err := m.Client(ctx)
	if err != nil {
		return nil, err
	}
	return c.SetFields(ctx, req)
}

func (m *Manager) GetVerificationResult(ctx context.Context, verificationID string) (*VerificationResult, error) {
	c, err := m.Client(ctx)
	if err != nil {
		return nil, err
	}
	return c.GetVerificationResult(ctx, verificationID)
}

func (m *Manager) GetSources(ctx context.Context, verificationID string) ([]Source, error) {
	c, err := m.Client(ctx)
	if err != nil {
		return nil, err
	}
	return c.GetSources(ctx, verificationID)
}

var _ Client = (*Manager)(nil)
