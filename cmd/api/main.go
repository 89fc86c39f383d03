package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/config"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/event"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/insurance"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/tax"
	"github.com/cmlabs-hris/payroll-engine-go/internal/fixtures"
	appHTTP "github.com/cmlabs-hris/payroll-engine-go/internal/handler/http"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/cache"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/calcbridge"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/cron"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/database"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/eventbus"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/metrics"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/redis"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/ruleengine"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/ruletable"
	"github.com/cmlabs-hris/payroll-engine-go/internal/repository/memory"
	"github.com/cmlabs-hris/payroll-engine-go/internal/repository/postgresql"
	calculationService "github.com/cmlabs-hris/payroll-engine-go/internal/service/calculation"
	insuranceService "github.com/cmlabs-hris/payroll-engine-go/internal/service/insurance"
	reportService "github.com/cmlabs-hris/payroll-engine-go/internal/service/report"
	taxService "github.com/cmlabs-hris/payroll-engine-go/internal/service/tax"
	"github.com/go-chi/httplog/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type repositories struct {
	employees employee.EmployeeRepository
	payroll   payroll.PayrollRepository
	insurance insurance.Repository
	tax       tax.Repository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.App)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func newLogger(app config.AppConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(app.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	logFormat := httplog.SchemaECS.Concise(app.Env != "production")
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "payroll-engine"),
		slog.String("env", app.Env),
	)
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	repos, closeDB, err := openRepositories(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeDB()

	store, sweeper, closeCache, err := openCache(cfg, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	// Events: in-process hub for the audit log, Kafka when brokers are configured.
	hub := eventbus.NewHub(256)
	metrics.RegisterDroppedEvents(registry, hub.Dropped)
	auditEvents, unsubscribe := hub.Subscribe()
	defer unsubscribe()
	go eventbus.NewAuditLogger(logger).Run(ctx, auditEvents)

	publishers := eventbus.MultiPublisher{hub}
	if len(cfg.Kafka.Brokers) > 0 {
		kafka, err := eventbus.NewKafkaPublisher(cfg.Kafka, logger, m)
		if err != nil {
			return err
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := kafka.Close(closeCtx); err != nil {
				logger.Warn("kafka flush failed", "error", err)
			}
		}()
		publishers = append(publishers, kafka)
		logger.Info("kafka publisher enabled", "brokers", strings.Join(cfg.Kafka.Brokers, ","), "topic", cfg.Kafka.Topic)
	}
	var publisher event.Publisher = publishers

	tables := ruletable.Default()
	calculator := insuranceService.NewCalculator(repos.employees, repos.payroll, tables, ruleengine.NewDefault(),
		insuranceService.WithLogger(logger),
		insuranceService.WithMetrics(m),
	)

	var invoker calcbridge.Invoker = calcbridge.NewLocalInvoker(calculator)
	if cfg.Calculation.RemoteURL != "" {
		invoker = calcbridge.NewHTTPInvoker(cfg.Calculation.RemoteURL, cfg.Calculation.RemoteAPIKey, cfg.Calculation.RemoteTimeout)
		logger.Info("remote calculation service enabled", "url", cfg.Calculation.RemoteURL)
	}
	invoker = calcbridge.NewRetryInvoker(invoker, cfg.Calculation.RetryCount, cfg.Calculation.RetryBaseDelay,
		calcbridge.WithRetryLogger(logger),
		calcbridge.WithRetryMetrics(m),
	)

	engine := calculationService.NewEngine(invoker, store, repos.employees, repos.payroll, repos.insurance, repos.tax, publisher,
		calculationService.WithChunkSize(cfg.Calculation.ChunkSize),
		calculationService.WithInvalidationMode(cache.InvalidationMode(cfg.Calculation.InvalidationMode)),
		calculationService.WithMetrics(m),
		calculationService.WithLogger(logger),
	)
	processor := taxService.NewProcessor(repos.employees, repos.payroll, repos.tax, tables.Tax, publisher,
		taxService.WithLogger(logger),
		taxService.WithMetrics(m),
	)
	reports := reportService.NewReportService(repos.employees, repos.payroll, repos.insurance, repos.tax,
		reportService.WithLogger(logger),
	)

	scheduler := cron.NewScheduler(logger)
	if sweeper != nil {
		cron.NewCacheJobs(sweeper, m, logger, cfg.Calculation.CacheSweepInterval).RegisterJobs(scheduler)
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)
	router := appHTTP.NewRouter(
		appHTTP.RouterConfig{
			AllowedOrigins: cfg.App.AllowedOrigins,
			Logger:         logger,
			MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		},
		JWTService,
		appHTTP.NewCalculationHandler(engine, repos.payroll),
		appHTTP.NewTaxHandler(processor, repos.payroll),
		appHTTP.NewReportHandler(reports),
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server running", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func openRepositories(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repositories, func(), error) {
	if cfg.Database.Driver == config.DriverMemory {
		logger.Warn("using in-memory repositories with demo data, data is lost on restart")
		employees := memory.NewEmployeeRepository()
		payrollRepo := memory.NewPayrollRepository()
		fixtures.SeedMemory(fixtures.NewDemoData(time.Now()), employees, payrollRepo)
		return repositories{
			employees: employees,
			payroll:   payrollRepo,
			insurance: memory.NewInsuranceRepository(),
			tax:       memory.NewTaxRepository(),
		}, func() {}, nil
	}

	db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL())
	if err != nil {
		return repositories{}, nil, fmt.Errorf("connect database: %w", err)
	}
	if cfg.Database.AutoMigrate {
		if err := postgresql.EnsureSchema(ctx, db); err != nil {
			db.Close()
			return repositories{}, nil, fmt.Errorf("apply schema: %w", err)
		}
		logger.Info("database schema applied")
	}
	return repositories{
		employees: postgresql.NewEmployeeRepository(db),
		payroll:   postgresql.NewPayrollRepository(db),
		insurance: postgresql.NewInsuranceRepository(db),
		tax:       postgresql.NewTaxRepository(db),
	}, db.Close, nil
}

// openCache returns the result store and, for the in-memory backend, its sweeper.
func openCache(cfg *config.Config, logger *slog.Logger) (cache.Store, cron.Sweeper, func(), error) {
	if cfg.Calculation.CacheBackend == config.CacheBackendRedis {
		client, err := redis.New(cfg.Redis)
		if err != nil {
			return nil, nil, nil, err
		}
		logger.Info("redis result cache enabled")
		return cache.NewRedisStore(client.Client, cfg.Calculation.CacheTTL), nil, func() { _ = client.Close() }, nil
	}

	store := cache.NewMemoryStore(
		cache.WithTTL(cfg.Calculation.CacheTTL),
		cache.WithMaxEntries(cfg.Calculation.CacheMaxEntries),
	)
	return store, store, func() {}, nil
}
