package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/bigfin/core/internal/adapters/provider"
	"github.com/bigfin/core/internal/adapters/webhookhttp"
	"github.com/bigfin/core/internal/core/ports/repositories"
	portsvc "github.com/bigfin/core/internal/core/ports/services"
	"github.com/bigfin/core/internal/core/services"
	"github.com/bigfin/core/internal/platform/config"
	"github.com/bigfin/core/internal/platform/database"
	"github.com/bigfin/core/internal/platform/logging"
	"github.com/bigfin/core/internal/platform/metrics"
	"github.com/bigfin/core/internal/platform/ratelimit"
	"github.com/bigfin/core/internal/repositories/database/pgsql"
	"github.com/gin-gonic/gin"

	providerport "github.com/bigfin/core/internal/core/ports/provider"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	policy, err := config.LoadProductPolicy(os.Getenv("PRODUCT_POLICY_PATH"))
	if err != nil {
		logger.Error("failed to load product policy", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := database.RunMigrations(cfg.DatabaseURL, "file://migrations"); err != nil {
		logger.Error("failed to apply migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	pool, err := database.NewPool(context.Background(), cfg.DatabaseURL, cfg.EnableDBCheck)
	if err != nil {
		logger.Error("failed to initialize database pool", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer database.ClosePool(pool)

	repos := repositories.RepositoryProvider{
		AccountRepo:        pgsql.NewLedgerRepository(pool),
		JournalRepo:        pgsql.NewLedgerRepository(pool),
		ContractRepo:       pgsql.NewContractRepository(pool),
		ScheduleRepo:       pgsql.NewScheduleRepository(pool),
		DisbursementRepo:   pgsql.NewDisbursementRepository(pool),
		RepaymentRepo:      pgsql.NewRepaymentRepository(pool),
		InstrumentRepo:     pgsql.NewInstrumentRepository(pool),
		PrefundRepo:        pgsql.NewPrefundRepository(pool),
		ReconciliationRepo: pgsql.NewReconciliationRepository(pool),
		IdempotencyRepo:    pgsql.NewIdempotencyRepository(pool),
		TxManager:          pgsql.NewTxManager(pool),
	}

	paymentProvider := provider.NewInMemoryProvider()

	container := services.NewServiceContainer(repos, paymentProvider, policy)

	webhookHandler := webhookhttp.NewHandler(container.Orchestrator, cfg.WebhookSharedSecret)

	// The in-memory provider delivers webhooks in-process: OnDeliver feeds
	// status changes straight into the orchestrator instead of round-tripping
	// through webhookhttp.
	paymentProvider.OnDeliver(func(ctx context.Context, event providerport.WebhookEvent) error {
		id, _ := event.Data["id"].(string)
		status, _ := event.Data["status"].(string)
		if id == "" || status == "" {
			return nil
		}
		return container.Orchestrator.ProcessStatusUpdate(ctx, portsvc.StatusUpdate{
			ProviderRef:    id,
			ProviderStatus: status,
			Now:            event.CreatedOn,
		})
	})

	r := setupGinEngine(logger, cfg)
	r.GET("/metrics", metrics.Handler())
	webhookLimiter := ratelimit.New(cfg.WebhookRateLimitPerMinute, cfg.WebhookRateLimitBurst)
	webhookHandler.RegisterRoutes(r, webhookLimiter.GinMiddleware())

	logger.Info("server starting", slog.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Error("server failed to run", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func setupGinEngine(logger *slog.Logger, cfg *config.Config) *gin.Engine {
	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(logging.GinMiddleware(logger), metrics.GinMiddleware(), gin.Recovery())
	if err := r.SetTrustedProxies(nil); err != nil {
		logger.Error("failed to set trusted proxies", slog.String("error", err.Error()))
		os.Exit(1)
	}
	return r
}
