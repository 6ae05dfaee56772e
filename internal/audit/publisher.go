package audit

import (
	"context"
	"log/slog"

	"idproxy/pkg/requestcontext"
)

// Publisher captures structured audit events. Emission is best effort: a
// failing sink is logged and never fails the calling operation.
type Publisher struct {
	store  Store
	logger *slog.Logger
	inbox  chan<- Event
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithLogger sets the logger for sink failures.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithInbox hands events to a Worker instead of writing them inline. A full
// inbox drops the event.
func WithInbox(inbox chan<- Event) Option {
	return func(p *Publisher) {
		p.inbox = inbox
	}
}

func NewPublisher(store Store, opts ...Option) *Publisher {
	p := &Publisher{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit stamps the event with request metadata from ctx and hands it to the sink.
func (p *Publisher) Emit(ctx context.Context, base Event) {
	if base.Timestamp.IsZero() {
		base.Timestamp = requestcontext.Now(ctx)
	}
	if base.RequestID == "" {
		base.RequestID = requestcontext.RequestID(ctx)
	}
	if base.Partner == "" {
		base.Partner = requestcontext.Partner(ctx)
	}
	if base.ClientIP == "" {
		base.ClientIP = requestcontext.ClientIP(ctx)
	}
	if base.Device == "" {
		base.Device = requestcontext.Device(ctx)
	}

	if p.inbox != nil {
		select {
		case p.inbox <- base:
		default:
			p.logger.WarnContext(ctx, "audit inbox full, event dropped",
				"action", base.Action,
				"verification_id", base.VerificationID,
			)
		}
		return
	}

	if err := p.store.Append(ctx, base); err != nil {
		p.logger.ErrorContext(ctx, "failed to emit audit event",
			"action", base.Action,
			"verification_id", base.VerificationID,
			"error", err,
		)
	}
}
