package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectoinject/ectocontainer"
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/Ramsey-B/trellis/config"
	billrepo "github.com/Ramsey-B/trellis/internal/repositories/bill"
	buyerrequestrepo "github.com/Ramsey-B/trellis/internal/repositories/buyerrequest"
	followuprepo "github.com/Ramsey-B/trellis/internal/repositories/followup"
	listingrepo "github.com/Ramsey-B/trellis/internal/repositories/listing"
	pricingplanrepo "github.com/Ramsey-B/trellis/internal/repositories/pricingplan"
	"github.com/Ramsey-B/trellis/pkg/database"
	"github.com/Ramsey-B/trellis/pkg/enrich"
	"github.com/Ramsey-B/trellis/pkg/events"
	"github.com/Ramsey-B/trellis/pkg/expiry"
	"github.com/Ramsey-B/trellis/pkg/kafka"
	"github.com/Ramsey-B/trellis/pkg/matching"
	"github.com/Ramsey-B/trellis/pkg/middleware"
	billroutes "github.com/Ramsey-B/trellis/pkg/routes/bill"
	buyerrequestroutes "github.com/Ramsey-B/trellis/pkg/routes/buyerrequest"
	followuproutes "github.com/Ramsey-B/trellis/pkg/routes/followup"
	"github.com/Ramsey-B/trellis/pkg/routes/health"
	listingroutes "github.com/Ramsey-B/trellis/pkg/routes/listing"
	matchesroutes "github.com/Ramsey-B/trellis/pkg/routes/matches"
	"github.com/Ramsey-B/trellis/pkg/startup"
	"github.com/Ramsey-B/trellis/pkg/tracing"
	"github.com/Ramsey-B/trellis/pkg/tracing/exporters"
)

func main() {
	_ = godotenv.Load()

	var cfg config.Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		panic(fmt.Errorf("failed to load config: %w", err))
	}

	var zapLogger *zap.Logger
	var err error
	if cfg.PrettyLogs {
		zapLogger, err = zap.NewDevelopment()
	} else {
		zapLogger, err = zap.NewProduction()
	}
	if err != nil {
		panic(fmt.Errorf("failed to build logger: %w", err))
	}
	defer zapLogger.Sync() //nolint:errcheck

	logger := zapadapter.NewZapEctoLogger(zapLogger, nil)
	logger.WithFields(map[string]any{"app": cfg.AppName, "version": cfg.Version}).Info("Starting service")

	ctx := context.Background()

	if cfg.TracingEnabled {
		exporter, err := exporters.NewOTLPExporter(ctx, exporters.OTLPConfig{
			Endpoint: cfg.TracingEndpoint,
			Protocol: cfg.TracingProtocol,
			Insecure: true,
			Timeout:  10 * time.Second,
		})
		if err != nil {
			logger.WithError(err).Warn("Failed to create trace exporter, tracing disabled")
		} else {
			provider := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
			defer provider.Shutdown(ctx) //nolint:errcheck
			tracing.SetTracer(provider.Tracer(cfg.AppName))
		}
	}

	dbDep := &databaseDependency{cfg: cfg, logger: logger}
	producerDep := &producerDependency{cfg: cfg, logger: logger}
	serverDep := &serverDependency{cfg: cfg, logger: logger, db: dbDep, producer: producerDep}

	boot := startup.NewStartup(logger, cfg.StartupMaxAttempts)
	boot.AddDependency(dbDep)
	boot.AddDependency(producerDep)
	boot.AddDependency(serverDep)

	if err := boot.Start(ctx); err != nil {
		logger.WithError(err).Error("Startup failed")
		os.Exit(1)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := boot.Stop(shutdownCtx); err != nil {
		logger.WithError(err).Error("Shutdown failed")
		os.Exit(1)
	}
}

type databaseDependency struct {
	cfg    config.Config
	logger ectologger.Logger
	sqlxDB *sqlx.DB
	db     database.DB
}

func (d *databaseDependency) GetName() string { return "database" }
func (d *databaseDependency) DependsOn() []string { return nil }

func (d *databaseDependency) Start(ctx context.Context) error {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.cfg.DatabaseHost, d.cfg.DatabasePort, d.cfg.DatabaseUserName,
		d.cfg.DatabasePassword, d.cfg.DatabaseName, d.cfg.DatabaseSSLMode)

	sqlxDB, err := sqlx.ConnectContext(ctx, d.cfg.DatabaseDriver, dsn)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlxDB.SetMaxOpenConns(d.cfg.DatabaseMaxOpenConns)
	sqlxDB.SetMaxIdleConns(d.cfg.DatabaseMaxIdleConns)
	sqlxDB.SetConnMaxLifetime(d.cfg.DatabaseConnMaxLifetime)

	driver, err := migratepg.WithInstance(sqlxDB.DB, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	migrationService := database.NewMigrationService(d.logger, &database.MigrationConfig{
		MigrationFolderPath: d.cfg.DatabaseMigrationFolderPath,
		Version:             uint(d.cfg.DatabaseMigrationVersion),
		Force:               d.cfg.DatabaseMigrationForce,
	})
	if err := migrationService.Migrate(d.cfg.DatabaseName, driver); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.sqlxDB = sqlxDB
	d.db = database.NewDatabaseInstance(sqlxDB, d.logger)
	return nil
}

func (d *databaseDependency) Stop(ctx context.Context) error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}

type producerDependency struct {
	cfg      config.Config
	logger   ectologger.Logger
	producer *kafka.Producer
}

func (d *producerDependency) GetName() string { return "kafka-producer" }
func (d *producerDependency) DependsOn() []string { return nil }

func (d *producerDependency) Start(ctx context.Context) error {
	d.producer = kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      d.cfg.KafkaBrokers,
		Topic:        d.cfg.KafkaNotificationsTopic,
		BatchSize:    d.cfg.KafkaBatchSize,
		BatchTimeout: time.Duration(d.cfg.KafkaBatchTimeout) * time.Millisecond,
		RequiredAcks: d.cfg.KafkaRequiredAcks,
		Compression:  d.cfg.KafkaCompression,
	}, d.logger)
	return nil
}

func (d *producerDependency) Stop(ctx context.Context) error {
	if d.producer == nil {
		return nil
	}
	return d.producer.Close()
}

type serverDependency struct {
	cfg      config.Config
	logger   ectologger.Logger
	db       *databaseDependency
	producer *producerDependency
	echo     *echo.Echo
	checker  *health.Checker
}

func (d *serverDependency) GetName() string { return "http-server" }
func (d *serverDependency) DependsOn() []string { return []string{"database", "kafka-producer"} }

func (d *serverDependency) Start(ctx context.Context) error {
	container, err := ectoinject.NewDIDefaultContainer()
	if err != nil {
		return fmt.Errorf("failed to create DI container: %w", err)
	}

	buyerRequests := buyerrequestrepo.NewRepository(d.db.db, d.logger)
	listings := listingrepo.NewRepository(d.db.db, d.logger)
	pricingPlans := pricingplanrepo.NewRepository(d.db.db, d.logger)
	bills := billrepo.NewRepository(d.db.db, d.logger)
	followUps := followuprepo.NewRepository(d.db.db, d.logger)

	matcher := matching.NewService(listings, buyerRequests, d.logger, d.cfg.MatchWorkerCount)
	builder := enrich.NewBuilder(pricingPlans, bills, followUps, listings, d.logger)
	notifier := events.NewNotifier(d.producer.producer, d.logger)

	expiry.DefaultWindow = expiry.Window{
		AheadDays:   d.cfg.ExpiryAheadDays,
		OverdueDays: d.cfg.ExpiryOverdueDays,
	}

	if err := registerInstances(container, d.logger, buyerRequests, listings, pricingPlans, bills, followUps, matcher, builder, notifier); err != nil {
		return err
	}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = middleware.Error(d.logger)
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: d.cfg.AllowOrigins,
		AllowMethods: d.cfg.AllowMethods,
	}))
	e.Use(otelecho.Middleware(d.cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(d.logger))

	d.checker = health.NewChecker(d.db.db, d.cfg.Version)
	d.checker.RegisterRoutes(e)

	api := e.Group("/api/v1")
	buyerrequestroutes.Register(api.Group("/buyer-requests"))
	matchesroutes.Register(api.Group("/matches"))
	listingroutes.Register(api.Group("/listings"))
	billroutes.Register(api.Group("/bills"))
	followuproutes.Register(api.Group("/follow-ups"))

	e.Server.ReadTimeout = time.Duration(d.cfg.HttpServerReadTimeoutSeconds) * time.Second
	e.Server.WriteTimeout = time.Duration(d.cfg.HttpServerWriteTimeoutSeconds) * time.Second
	e.Server.IdleTimeout = time.Duration(d.cfg.HttpServerIdleTimeoutSeconds) * time.Second

	d.echo = e

	go func() {
		addr := fmt.Sprintf(":%d", d.cfg.Port)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			d.logger.WithError(err).Error("HTTP server stopped")
		}
	}()

	d.checker.SetReady(true)
	d.logger.WithFields(map[string]any{"port": d.cfg.Port}).Info("HTTP server started")
	return nil
}

func (d *serverDependency) Stop(ctx context.Context) error {
	if d.checker != nil {
		d.checker.SetReady(false)
	}
	if d.echo == nil {
		return nil
	}
	return d.echo.Shutdown(ctx)
}

func registerInstances(
	container ectocontainer.DIContainer,
	logger ectologger.Logger,
	buyerRequests *buyerrequestrepo.Repository,
	listings *listingrepo.Repository,
	pricingPlans *pricingplanrepo.Repository,
	bills *billrepo.Repository,
	followUps *followuprepo.Repository,
	matcher *matching.Service,
	builder *enrich.Builder,
	notifier *events.Notifier,
) error {
	if err := ectoinject.RegisterInstance[ectologger.Logger](container, logger); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*buyerrequestrepo.Repository](container, buyerRequests); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*listingrepo.Repository](container, listings); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*pricingplanrepo.Repository](container, pricingPlans); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*billrepo.Repository](container, bills); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*followuprepo.Repository](container, followUps); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*matching.Service](container, matcher); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*enrich.Builder](container, builder); err != nil {
		return err
	}
	return ectoinject.RegisterInstance[*events.Notifier](container, notifier)
}
