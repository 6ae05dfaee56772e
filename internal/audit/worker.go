package audit

import (
	"context"
	"log/slog"
)

// Worker drains audit events from a channel into a store, keeping slow sinks
// off the request path.
type Worker struct {
	store  Store
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(store Store, inbox <-chan Event, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{store: store, inbox: inbox, logger: logger}
}

// Run appends events until ctx is done or the inbox is closed. Append
// failures are logged and the event is dropped.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.inbox:
			if !ok {
				return nil
			}
			if err := w.store.Append(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "audit worker failed to append event",
					"action", event.Action,
					"verification_id", event.VerificationID,
					"error", err,
				)
			}
		}
	}
}
