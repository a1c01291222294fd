package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/cropledger/cropledger/cmd/cropledger/cli"
	"github.com/cropledger/cropledger/internal/app"
	"github.com/cropledger/cropledger/internal/dashboard"
	"github.com/cropledger/cropledger/internal/inventory"
	"github.com/cropledger/cropledger/internal/ledger"
	"github.com/cropledger/cropledger/internal/masterdata"
	"github.com/cropledger/cropledger/internal/masterdata/crops"
	"github.com/cropledger/cropledger/internal/masterdata/locations"
	"github.com/cropledger/cropledger/internal/masterdata/parties"
	"github.com/cropledger/cropledger/internal/observability"
	"github.com/cropledger/cropledger/internal/platform/cache"
	"github.com/cropledger/cropledger/internal/platform/db"
	"github.com/cropledger/cropledger/internal/platform/migrate"
	"github.com/cropledger/cropledger/internal/shared"
	"github.com/cropledger/cropledger/internal/trading"
	"github.com/cropledger/cropledger/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	args := os.Args[1:]
	if len(args) > 0 {
		switch args[0] {
		case "migrate":
			err = runMigrate(ctx, cfg, args[1:])
		case "jobs":
			err = runJobs(ctx, cfg, args[1:])
		case "serve":
			err = serve(ctx, stop, cfg, logger)
		default:
			err = fmt.Errorf("unknown command %q (want serve, migrate or jobs)", args[0])
		}
	} else {
		err = serve(ctx, stop, cfg, logger)
	}
	if err != nil {
		logger.Error("cropledger", slog.Any("error", err))
		os.Exit(1)
	}
}

func serve(ctx context.Context, stop context.CancelFunc, cfg *app.Config, logger *slog.Logger) error {
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	if cfg.AutoMigrate {
		if err := migrate.Run(ctx, pool, "up"); err != nil {
			return err
		}
		logger.Info("migrations applied")
	}

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	if err != nil {
		logger.Warn("redis unavailable, dashboard reads are uncached", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(pool)
	idempotencyStore := shared.NewIdempotencyStore(pool)

	partyService := parties.NewService(parties.NewRepository(pool))
	cropService := crops.NewService(crops.NewRepository(pool))
	locationService := locations.NewService(locations.NewRepository(pool))

	inventoryService := inventory.NewService(inventory.NewRepository(pool), auditLogger, inventory.ServiceConfig{
		AllowNegativeStock: cfg.InventoryAllowNegativeStock,
		DefaultGrade:       cfg.InventoryDefaultGrade,
		Metrics:            metrics,
	})
	ledgerService := ledger.NewService(ledger.NewRepository(pool), auditLogger, metrics)

	dashboardCache := dashboard.NewCache(redisClient, cfg.DashboardCacheTTL)
	dashboardService := dashboard.NewService(dashboard.NewRepository(pool), dashboardCache, dashboard.Config{
		LowStockThreshold: cfg.DashboardLowStockThreshold,
	}, logger)

	tradingService := trading.NewService(
		trading.NewRepository(pool),
		inventoryService,
		ledgerService,
		auditLogger,
		idempotencyStore,
		logger,
	).WithCache(dashboardService)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, DB: cfg.RedisDB}
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger: logger,
		Config: cfg,
		MasterDataHandler: masterdata.NewHandler(
			parties.NewHandler(logger, partyService),
			crops.NewHandler(logger, cropService),
			locations.NewHandler(logger, locationService),
		),
		TradingHandler:   trading.NewHandler(logger, tradingService),
		InventoryHandler: inventory.NewHandler(logger, inventoryService),
		LedgerHandler:    ledger.NewHandler(logger, ledgerService),
		DashboardHandler: dashboard.NewHandler(logger, dashboardService),
		JobHandler:       jobs.NewHandler(inspector, jobClient, logger),
		Metrics:          metrics,
		Database:         pool,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

func runMigrate(ctx context.Context, cfg *app.Config, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("migrate: command required (%v)", migrate.Commands)
	}
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()
	return migrate.Run(ctx, pool, args[0], args[1:]...)
}

func runJobs(ctx context.Context, cfg *app.Config, args []string) error {
	fs := flag.NewFlagSet("jobs", flag.ContinueOnError)
	partyID := fs.Int64("party", 0, "party id for ledger:integrity (0 = all parties)")
	tolerance := fs.String("tolerance", "", "revaluation tolerance")
	size := fs.Int("size", 10, "scheduled tasks to list")
	if len(args) == 0 {
		return errors.New("jobs: subcommand required (trigger <name>, stats, scheduled)")
	}
	sub := args[0]
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	jobsCLI := cli.NewJobsCLI(asynq.RedisClientOpt{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	defer jobsCLI.Close()

	switch sub {
	case "trigger":
		if fs.NArg() == 0 {
			return errors.New("jobs trigger: job name required")
		}
		opts := cli.TriggerOptions{PartyID: *partyID}
		if *tolerance != "" {
			tol, err := decimal.NewFromString(*tolerance)
			if err != nil {
				return fmt.Errorf("jobs trigger: tolerance: %w", err)
			}
			opts.Tolerance = tol
		}
		info, err := jobsCLI.Trigger(ctx, fs.Arg(0), opts)
		if err != nil {
			return err
		}
		fmt.Printf("enqueued %s as %s on %s\n", info.Type, info.ID, info.Queue)
	case "stats":
		stats, err := jobsCLI.InspectQueue(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("queue=%s pending=%d active=%d scheduled=%d retry=%d\n",
			stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
	case "scheduled":
		tasks, err := jobsCLI.ListScheduled(ctx, *size)
		if err != nil {
			return err
		}
		for _, task := range tasks {
			fmt.Printf("%s\t%s\t%s\n", task.ID, task.Type, task.NextProcessAt.Format(time.RFC3339))
		}
	default:
		return fmt.Errorf("jobs: unknown subcommand %q", sub)
	}
	return nil
}
