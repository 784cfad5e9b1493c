package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	// Registry database drivers
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/platinummonkey/backwindow/pkg/api"
	"github.com/platinummonkey/backwindow/pkg/config"
	"github.com/platinummonkey/backwindow/pkg/exchange"
	"github.com/platinummonkey/backwindow/pkg/identity"
	"github.com/platinummonkey/backwindow/pkg/observability"
	"github.com/platinummonkey/backwindow/pkg/registry"
	"github.com/platinummonkey/backwindow/pkg/session"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "backwindow: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.Info("Starting backwindow")

	handlerLog := logrus.New()
	handlerLog.SetFormatter(&logrus.JSONFormatter{})

	tp, err := observability.InitTracing(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}

	// Session store
	var (
		store       session.Store
		redisClient *redis.Client
	)
	if cfg.Session.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.Session.RedisURL)
		if err != nil {
			return fmt.Errorf("parse redis url: %w", err)
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		store = session.NewRedisStore(redisClient)
		logger.Info("Using redis session store")
	} else {
		store = session.NewMemoryStore()
		logger.Warn("Using in-memory session store; sessions do not survive restarts")
	}
	sessions := session.NewManager(store, cfg.Session.TTL, cfg.Server.SecureCookies)

	// Org registry
	var (
		reg registry.Registry
		db  *sql.DB
	)
	switch cfg.Registry.Type {
	case config.RegistryPostgres, config.RegistrySQLite:
		driver, dsn, dialect := "postgres", cfg.Registry.PostgresURL, registry.DialectPostgres
		if cfg.Registry.Type == config.RegistrySQLite {
			driver, dsn, dialect = "sqlite3", cfg.Registry.SQLitePath, registry.DialectSQLite
		}
		db, err = sql.Open(driver, dsn)
		if err != nil {
			return fmt.Errorf("open registry database: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("ping registry database: %w", err)
		}
		sqlReg := registry.NewSQLRegistry(db, dialect)
		if err := sqlReg.EnsureSchema(ctx); err != nil {
			return err
		}
		reg = sqlReg
		logger.Infof("Using %s org registry", cfg.Registry.Type)
	case config.RegistryStatic:
		reg, err = registry.LoadStaticFile(cfg.Registry.StaticFile)
		if err != nil {
			return err
		}
		logger.Infof("Using static org registry from %s", cfg.Registry.StaticFile)
	case config.RegistryEnv:
		reg, err = registry.NewStaticSingleOrg(
			cfg.Registry.DevHubOrgID,
			cfg.Registry.DevHubClientID,
			cfg.Registry.DevHubPrivateKeyBase64,
			cfg.Registry.AllowedEmails,
		)
		if err != nil {
			return err
		}
		logger.Info("Using single-org registry from environment")
	default:
		return fmt.Errorf("unknown registry type: %s", cfg.Registry.Type)
	}

	// Identity resolvers
	salesforce := identity.NewSalesforceResolver(identity.SalesforceConfig{
		ClientID:     cfg.Salesforce.ClientID,
		ClientSecret: cfg.Salesforce.ClientSecret,
		RedirectURL:  cfg.Salesforce.RedirectURL,
		LoginURL:     cfg.Salesforce.LoginURL,
		APIVersion:   cfg.Salesforce.APIVersion,
	})

	verifier, err := identity.NewGoogleTokenVerifier(ctx, cfg.Google.ClientID)
	if err != nil {
		return fmt.Errorf("google verifier: %w", err)
	}
	google := identity.NewGoogleResolver(verifier)

	engine := exchange.NewEngine(
		exchange.WithLoginURLs(cfg.Salesforce.LoginURL, cfg.Salesforce.SandboxURL),
	)

	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(prometheus.NewRegistry())
		sessions.SetMetrics(metrics)
		if sqlReg, ok := reg.(*registry.SQLRegistry); ok {
			sqlReg.SetMetrics(metrics)
		}
	}

	server := api.NewServer(api.Deps{
		Log:            handlerLog,
		BaseLogger:     logger,
		Metrics:        metrics,
		Sessions:       sessions,
		Registry:       reg,
		Salesforce:     salesforce,
		Google:         google,
		Engine:         engine,
		GoogleClientID: cfg.Google.ClientID,
	})

	appServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      server.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Health and metrics on a separate listener so probes stay off the
	// public surface.
	healthChecker := observability.NewHealthChecker(db, redisClient)
	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/health/live", healthChecker.Liveness)
	healthMux.HandleFunc("/health/ready", healthChecker.Readiness)
	if metrics != nil {
		healthMux.Handle("/metrics", metrics.Handler())
	}
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthMux,
	}

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout, appServer, healthServer)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return observability.ShutdownTracing(ctx, tp, logger)
	})
	if redisClient != nil {
		shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
			return redisClient.Close()
		})
	}
	if db != nil {
		shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
			return db.Close()
		})
	}

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer observability.RecoverPanic(logger, "app server")
		logger.Infof("Listening on %s", appServer.Addr)
		if err := appServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		defer observability.RecoverPanic(logger, "health server")
		logger.Infof("Health server listening on %s", healthServer.Addr)
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return shutdown.WaitForShutdown()
	})

	return g.Wait()
}
