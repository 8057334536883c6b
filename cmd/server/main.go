package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	circuithandler "sged/internal/circuit/handler"
	circuitservice "sged/internal/circuit/service"
	circuitstore "sged/internal/circuit/store/circuit"
	stationstore "sged/internal/circuit/store/station"
	dossierhandler "sged/internal/dossier/handler"
	dossiermetrics "sged/internal/dossier/metrics"
	"sged/internal/dossier/ports"
	dossierservice "sged/internal/dossier/service"
	dossierstore "sged/internal/dossier/store/dossier"
	historystore "sged/internal/dossier/store/history"
	movementstore "sged/internal/dossier/store/movement"
	"sged/internal/identity"
	"sged/internal/jwtauth"
	"sged/internal/notification"
	"sged/internal/platform/config"
	"sged/internal/platform/httpserver"
	"sged/internal/platform/logger"
	"sged/internal/platform/middleware"
	redisclient "sged/internal/platform/redis"
	"sged/internal/stream"
	txcontext "sged/pkg/platform/tx"
)

// main wires stores, services and transport, then runs the HTTP server and
// the notification dispatcher until shutdown. Business logic lives in the
// internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	var (
		db  *sql.DB
		err error
	)
	if cfg.DatabaseURL != "" {
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Error("open database", "error", err)
			os.Exit(1)
		}
		if err := db.Ping(); err != nil {
			log.Error("database unreachable", "error", err)
			os.Exit(1)
		}
		defer db.Close()
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
	}

	// Stores come in memory + postgres pairs; which side is live depends on
	// whether a database is configured.
	var (
		circuits  circuitservice.CircuitStore
		stations  circuitservice.StationStore
		directory identity.Provider
		runner    txcontext.Runner
	)
	if db != nil {
		circuits = circuitstore.NewPostgres(db)
		stations = stationstore.NewPostgres(db)
		directory = identity.NewPostgresDirectory(db)
		runner = txcontext.NewSQLRunner(db)
	} else {
		circuits = circuitstore.NewInMemory()
		stations = stationstore.NewInMemory()
		directory = identity.NewMemoryDirectory()
		runner = txcontext.NewNoopRunner()
	}

	rdb, err := redisclient.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	var sink notification.Sink
	if rdb != nil {
		sink = notification.NewRedisSink(rdb.Client)
		defer rdb.Close()
	} else {
		log.Warn("REDIS_URL not set, notifications stay in memory")
		sink = notification.NewMemorySink()
	}
	dispatcher := notification.NewDispatcher(sink, log)

	var publisher stream.Publisher = stream.NewNoopPublisher()
	if len(cfg.KafkaBrokers) > 0 {
		kafka, err := stream.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, log)
		if err != nil {
			log.Error("kafka connection failed", "error", err)
			os.Exit(1)
		}
		defer kafka.Close(context.Background())
		publisher = kafka
	}

	topology := circuitservice.New(circuits, stations, circuitservice.WithLogger(log))

	var (
		dossierStore  ports.DossierStore
		movementStore ports.MovementStore
		historyStore  ports.HistoryStore
	)
	if db != nil {
		dossierStore = dossierstore.NewPostgres(db)
		movementStore = movementstore.NewPostgres(db)
		historyStore = historystore.NewPostgres(db)
	} else {
		memDossiers := dossierstore.NewInMemory(stations)
		dossierStore = memDossiers
		movementStore = movementstore.NewInMemory(stations, directory)
		historyStore = historystore.NewInMemory(directory, memDossiers)
	}

	routing := dossierservice.New(
		dossierStore, movementStore, historyStore,
		circuits, stations, directory, runner,
		dossierservice.WithLogger(log),
		dossierservice.WithNotifier(dispatcher),
		dossierservice.WithPublisher(publisher),
		dossierservice.WithMetrics(dossiermetrics.New()),
	)

	jwtService := jwtauth.New(cfg.JWTSigningKey, "sged")

	adminOnly := middleware.RequireCapability(func(c identity.Capabilities) bool { return c.Administer }, log)
	intakeOnly := middleware.RequireCapability(func(c identity.Capabilities) bool { return c.Intake }, log)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Handle("/metrics", promhttp.Handler())
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(jwtService, directory, log))
		circuithandler.New(topology, log).Register(r, adminOnly)
		dossierhandler.New(routing, log).Register(r, adminOnly, intakeOnly)
	})

	srv := httpserver.New(cfg.Addr, router)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server starting", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		err := dispatcher.Run(ctx)
		if err == context.Canceled {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
