// complyflow-server is the approval workflow assignment engine. It routes
// approval items from compliance modules to reviewers, manually or through
// the configured strategy, and keeps the audit and notification trails.
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"

	"complyflow/internal/assignment"
	"complyflow/internal/directory"
	"complyflow/internal/engine"
	enginehandler "complyflow/internal/engine/handler"
	"complyflow/internal/history"
	"complyflow/internal/jwttoken"
	"complyflow/internal/notification"
	"complyflow/internal/platform/config"
	"complyflow/internal/platform/httpserver"
	"complyflow/internal/platform/logger"
	"complyflow/internal/platform/metrics"
	"complyflow/internal/platform/middleware"
	"complyflow/internal/platform/postgres"
	platformredis "complyflow/internal/platform/redis"
	"complyflow/internal/settings"
	"complyflow/internal/strategy"
	"complyflow/internal/workflow"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}

	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}

	// Stores and the transaction runner: Postgres when configured, in-memory
	// otherwise so the engine runs standalone in development.
	var (
		stores        engine.Stores
		runner        engine.TxRunner
		settingsStore settings.Store
		notifStore    notification.Store
		source        directory.Source
	)
	if db != nil {
		stores = engine.Stores{
			Items:       workflow.NewPostgresStore(db),
			Assignments: assignment.NewPostgresStore(db),
			History:     history.NewPostgresStore(db),
		}
		runner = newEnginePostgresTx(db, stores)
		settingsStore = settings.NewPostgresStore(db)
		notifStore = notification.NewPostgresStore(db)
		source = directory.NewPostgresSource(db)
	} else {
		log.Warn("no database configured, using in-memory stores")
		stores = engine.Stores{
			Items:       workflow.NewInMemoryStore(),
			Assignments: assignment.NewInMemoryStore(),
			History:     history.NewInMemoryStore(),
		}
		runner = engine.NewMemoryTx(stores)
		settingsStore = settings.NewInMemoryStore()
		notifStore = notification.NewInMemoryStore()
		static, err := directory.ParseStaticSource([]byte(cfg.ReviewersJSON))
		if cfg.ReviewersJSON == "" || err != nil {
			static = directory.NewStaticSource(nil)
		}
		source = static
	}

	var cursors strategy.CursorStore = strategy.NewInMemoryCursorStore()
	if redisClient != nil {
		cursors = strategy.NewRedisCursorStore(redisClient.Client)
	}

	svc := engine.NewService(
		stores,
		runner,
		settings.NewService(settingsStore),
		directory.NewAdapter(source, stores.Assignments),
		cursors,
		notification.NewEmitter(notifStore, log, m),
		notifStore,
		log,
		m,
	)

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.Timeout(cfg.RequestTimeout))
	router.Use(middleware.LatencyMiddleware(m))

	router.Get("/healthz", healthz(db, redisClient))
	router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	router.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.RequireAuth(jwtService, log))
		enginehandler.New(svc, log).Register(r)
	})

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting complyflow server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if db != nil && len(cfg.Kafka.Brokers) > 0 {
		kafkaClient, err := kgo.NewClient(
			kgo.SeedBrokers(cfg.Kafka.Brokers...),
			kgo.DefaultProduceTopic(cfg.Kafka.HistoryTopic),
		)
		if err != nil {
			log.Error("kafka client failed", "error", err)
			os.Exit(1)
		}
		defer kafkaClient.Close()

		worker := history.NewOutboxWorker(db, kafkaClient, cfg.Kafka.HistoryTopic, cfg.Kafka.PollInterval, log)
		g.Go(func() error {
			log.Info("starting history outbox worker", "topic", cfg.Kafka.HistoryTopic)
			if err := worker.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}

	if db != nil {
		_ = db.Close()
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	log.Info("server stopped")
}

// healthz reports the reachability of the backing services. A degraded
// dependency turns the response 503 so orchestrators stop routing here.
func healthz(db *sql.DB, redisClient *platformredis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		body := `{"status":"ok"}`

		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				status = http.StatusServiceUnavailable
				body = `{"status":"degraded","component":"postgres"}`
			}
		}
		if status == http.StatusOK && redisClient != nil {
			if err := redisClient.Health(r.Context()); err != nil {
				status = http.StatusServiceUnavailable
				body = `{"status":"degraded","component":"redis"}`
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}
