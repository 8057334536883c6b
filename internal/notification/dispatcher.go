package notification

import (
	"context"
	"log/slog"
	"time"
)

// Dispatcher decouples notification delivery from the request path. Notify
// enqueues without blocking; a background Run loop drains the inbox into the
// sink. Delivery failures are logged and dropped - the state transition that
// produced the notification has already committed.
type Dispatcher struct {
	sink   Sink
	inbox  chan Notification
	logger *slog.Logger
}

const defaultInboxSize = 256

func NewDispatcher(sink Sink, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		sink:   sink,
		inbox:  make(chan Notification, defaultInboxSize),
		logger: logger,
	}
}

// Notify enqueues a notification. When the inbox is full the notification is
// dropped and logged rather than blocking the caller.
func (d *Dispatcher) Notify(ctx context.Context, n Notification) {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	select {
	case d.inbox <- n:
	default:
		d.logger.ErrorContext(ctx, "notification inbox full, dropping",
			"recipient", n.Recipient,
			"type", n.Type,
		)
	}
}

// Run drains the inbox until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case n := <-d.inbox:
			if err := d.sink.Deliver(ctx, n); err != nil {
				d.logger.ErrorContext(ctx, "notification delivery failed",
					"recipient", n.Recipient,
					"type", n.Type,
					"error", err,
				)
			}
		}
	}
}
