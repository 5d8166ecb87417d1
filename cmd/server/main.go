package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	jwttoken "coffer/internal/jwt_token"
	"coffer/internal/ledger"
	"coffer/internal/platform/config"
	"coffer/internal/platform/httpserver"
	"coffer/internal/platform/logger"
	platformmetrics "coffer/internal/platform/metrics"
	platformredis "coffer/internal/platform/redis"
	"coffer/internal/ratelimit"
	"coffer/internal/treasury"
	treasuryhandler "coffer/internal/treasury/handler"
	treasurymetrics "coffer/internal/treasury/metrics"
	"coffer/pkg/platform/audit"
	"coffer/pkg/platform/audit/relay"
	auditmem "coffer/pkg/platform/audit/store/memory"
	auditpg "coffer/pkg/platform/audit/store/postgres"
	"coffer/pkg/platform/middleware/metadata"
	"coffer/pkg/platform/middleware/request"
	"coffer/pkg/platform/middleware/requesttime"
)

// main wires configuration, storage, the treasury service, and the HTTP
// surface. Business logic lives in the internal packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Env, cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		seedLedger  ledger.SeedLedger
		collector   ledger.DustCollector
		outbox      audit.Outbox
		serviceOpts []treasury.Option
		sweeperOpts []treasury.SweeperOption
	)

	switch cfg.Backend {
	case config.BackendPostgres:
		db, err := sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("ping postgres: %w", err)
		}

		pgLedger := ledger.NewPostgresLedger(db, ledger.Amount(cfg.MinimumBalance))
		if err := pgLedger.EnsureSchema(ctx); err != nil {
			return err
		}
		pgStore := auditpg.New(db)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			return err
		}

		// One SQL transaction around each treasury operation so the balance
		// movement and its audit event commit together.
		runner := newTreasuryPostgresTx(db)
		serviceOpts = append(serviceOpts, treasury.WithRunner(runner))
		sweeperOpts = append(sweeperOpts, treasury.WithSweeperRunner(runner))

		seedLedger, collector, outbox = pgLedger, pgLedger, pgStore

	case config.BackendRedis:
		client, err := platformredis.New(cfg.RedisAddr)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer client.Close()

		redisLedger := ledger.NewRedisLedger(client.Client, ledger.Amount(cfg.MinimumBalance))
		seedLedger, collector, outbox = redisLedger, redisLedger, auditmem.NewInMemoryStore()

	default:
		memLedger := ledger.NewInMemoryLedger(ledger.Amount(cfg.MinimumBalance))
		seedLedger, collector, outbox = memLedger, memLedger, auditmem.NewInMemoryStore()
	}

	genesis := ledger.Genesis{}
	if cfg.GenesisPath != "" {
		var err error
		genesis, err = ledger.LoadGenesisFile(cfg.GenesisPath)
		if err != nil {
			return fmt.Errorf("load genesis: %w", err)
		}
	}

	publisher := audit.NewPublisher(outbox,
		audit.WithLogger(log),
		audit.WithMetrics(audit.NewMetrics()),
	)

	if err := treasury.Bootstrap(ctx, seedLedger, publisher, genesis); err != nil {
		return fmt.Errorf("bootstrap treasury: %w", err)
	}

	treasuryMetrics := treasurymetrics.New()
	serviceOpts = append(serviceOpts,
		treasury.WithLogger(log),
		treasury.WithMetrics(treasuryMetrics),
	)
	service, err := treasury.NewService(seedLedger, publisher, serviceOpts...)
	if err != nil {
		return fmt.Errorf("build treasury service: %w", err)
	}

	sweeperOpts = append(sweeperOpts,
		treasury.WithSweeperLogger(log),
		treasury.WithSweeperMetrics(treasuryMetrics),
	)
	sweeper := treasury.NewSweeper(collector, service, cfg.SweepInterval, sweeperOpts...)

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, "coffer", "coffer")
	validator := jwttoken.NewJWTServiceAdapter(jwtService)
	handler := treasuryhandler.New(service, validator, log)
	limiter := ratelimit.NewLimiter(ratelimit.NewInMemoryStore(), cfg.RateLimit, cfg.RateWindow, log)

	httpMetrics := platformmetrics.NewHTTP()
	router := chi.NewRouter()
	router.Use(request.Middleware)
	router.Use(requesttime.Middleware)
	router.Use(metadata.ClientMetadata)
	router.Use(httpMetrics.Middleware)
	router.Route("/v1/treasury", func(r chi.Router) {
		r.Use(limiter.Middleware)
		handler.Register(r)
	})
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Handle("/metrics", promhttp.Handler())

	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting coffer",
			"addr", cfg.Addr,
			"backend", string(cfg.Backend),
			"pot", service.AccountID().String(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := sweeper.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("dust sweeper: %w", err)
		}
		return nil
	})

	if len(cfg.KafkaBrokers) > 0 {
		producer, err := relay.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			return fmt.Errorf("kafka producer: %w", err)
		}
		defer producer.Close()
		if err := relay.EnsureTopic(ctx, producer); err != nil {
			return err
		}

		auditRelay := relay.New(outbox, producer,
			relay.WithLogger(log),
			relay.WithMetrics(relay.NewMetrics()),
		)
		g.Go(func() error {
			if err := auditRelay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("audit relay: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
