// Package service is the routing engine: it creates dossiers, moves them
// through their circuit's station sequence, and finalizes them, keeping the
// movement and history ledgers consistent with every transition.
package service

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"sged/internal/dossier/metrics"
	"sged/internal/dossier/ports"
	"sged/internal/identity"
	"sged/internal/notification"
	"sged/internal/stream"
	dErrors "sged/pkg/domain-errors"
	txcontext "sged/pkg/platform/tx"
)

// Service orchestrates dossier routing. Every mutation runs as one unit of
// work: the dossier update and its ledger appends commit together or not at
// all. Notifications and stream events go out only after the commit.
type Service struct {
	dossiers   ports.DossierStore
	movements  ports.MovementStore
	history    ports.HistoryStore
	circuits   ports.CircuitLookup
	stations   ports.StationLookup
	recipients ports.RecipientDirectory
	runner     txcontext.Runner

	notifier  ports.Notifier
	publisher stream.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	tracer    trace.Tracer
}

// Option configures optional service dependencies.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithNotifier(n ports.Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

func WithPublisher(p stream.Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(
	dossiers ports.DossierStore,
	movements ports.MovementStore,
	history ports.HistoryStore,
	circuits ports.CircuitLookup,
	stations ports.StationLookup,
	recipients ports.RecipientDirectory,
	runner txcontext.Runner,
	opts ...Option,
) *Service {
	svc := &Service{
		dossiers:   dossiers,
		movements:  movements,
		history:    history,
		circuits:   circuits,
		stations:   stations,
		recipients: recipients,
		runner:     runner,
		notifier:   noopNotifier{},
		publisher:  stream.NewNoopPublisher(),
		logger:     slog.Default(),
		tracer:     otel.Tracer("sged/dossier"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, notification.Notification) {}

func requireCaller(ctx context.Context) (identity.Identity, error) {
	ident, ok := identity.FromContext(ctx)
	if !ok {
		return identity.Identity{}, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	return ident, nil
}
