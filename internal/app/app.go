// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/garyellow/regionstat/internal/api"
	"github.com/garyellow/regionstat/internal/buildinfo"
	"github.com/garyellow/regionstat/internal/catalog"
	"github.com/garyellow/regionstat/internal/config"
	"github.com/garyellow/regionstat/internal/logger"
	"github.com/garyellow/regionstat/internal/metrics"
	"github.com/garyellow/regionstat/internal/r2client"
	"github.com/garyellow/regionstat/internal/ratelimit"
	"github.com/garyellow/regionstat/internal/sentry"
	"github.com/garyellow/regionstat/internal/snapshot"
	"github.com/garyellow/regionstat/internal/storage"
	"github.com/garyellow/regionstat/internal/view"
)

const serviceName = "regionstat"

// Application manages the application lifecycle and dependencies.
type Application struct {
	cfg           *config.Config
	logger        *logger.Logger
	db            *storage.HotSwapDB
	metrics       *metrics.Metrics
	registry      *prometheus.Registry
	catalog       *catalog.Catalog
	snapshots     *snapshot.Manager // nil when R2 is disabled
	clientLimiter *ratelimit.KeyedLimiter
	router        *gin.Engine
	server        *http.Server
	wg            sync.WaitGroup // background goroutines, awaited on shutdown
}

// Initialize creates and initializes a new application with all dependencies.
func Initialize(ctx context.Context, cfg *config.Config) (*Application, error) {
	var opts logger.Options
	if cfg.BetterStack.Enabled {
		opts.BetterStackToken = cfg.BetterStack.Token
		opts.BetterStackEndpoint = cfg.BetterStack.Endpoint
	}
	log := logger.NewWithOptions(cfg.LogLevel, os.Stdout, opts)

	log = log.WithField("service", serviceName)
	if host, err := os.Hostname(); err == nil && host != "" {
		log = log.WithField("instance_id", host)
	}

	// Package-level slog calls pick up request_id and snapshot_id through
	// the context handler.
	slog.SetDefault(log.Logger)

	log.WithField("version", buildinfo.Release()).Info("Initializing application...")
	if cfg.BetterStack.Enabled {
		log.WithField("endpoint", cfg.BetterStack.Endpoint).Info("Better Stack logging enabled")
	}

	if cfg.Sentry.Enabled {
		release := cfg.Sentry.Release
		if release == "" {
			release = buildinfo.Release()
		}
		if err := sentry.Initialize(sentry.Config{
			Token:       cfg.Sentry.Token,
			Host:        cfg.Sentry.Host,
			Environment: cfg.Sentry.Environment,
			Release:     release,
			SampleRate:  cfg.Sentry.SampleRate,
			ServerName:  cfg.ServerName,
		}); err != nil {
			return nil, fmt.Errorf("sentry: %w", err)
		}
		log.WithField("environment", cfg.Sentry.Environment).Info("Sentry error reporting enabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewBuildInfoCollector(),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "regionstat_log_records_dropped_total",
			Help: "Log records dropped because the remote shipping queue was full",
		}, func() float64 { return float64(log.DroppedRecords()) }),
	)
	m := metrics.New(registry)

	policy := config.DefaultPolicy()
	if cfg.PolicyFile != "" {
		p, err := config.LoadPolicy(cfg.PolicyFile)
		if err != nil {
			return nil, fmt.Errorf("policy: %w", err)
		}
		policy = p
		log.WithField("path", cfg.PolicyFile).Info("Policy loaded")
	}
	views, err := view.NewBuilder(policy)
	if err != nil {
		return nil, fmt.Errorf("policy: %w", err)
	}

	var snapshots *snapshot.Manager
	if cfg.R2.Enabled {
		client, err := r2client.New(ctx, r2client.Config{
			Endpoint:    cfg.R2.Endpoint(),
			AccessKeyID: cfg.R2.AccessKeyID,
			SecretKey:   cfg.R2.SecretAccessKey,
			BucketName:  cfg.R2.BucketName,
		})
		if err != nil {
			return nil, fmt.Errorf("r2: %w", err)
		}
		snapshots = snapshot.New(client, snapshot.Config{
			SnapshotKey:  cfg.R2.SnapshotKey,
			LockKey:      cfg.R2.LockKey,
			LockTTL:      cfg.R2.LockTTL,
			PollInterval: cfg.R2.PollInterval,
			TempDir:      cfg.DataDir,
		}, log, m)
		if err := restoreSnapshot(ctx, snapshots, cfg.SQLitePath(), log); err != nil {
			return nil, err
		}
	}

	db, err := storage.NewHotSwapDB(ctx, cfg.SQLitePath())
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	log.WithField("path", cfg.SQLitePath()).Info("Database connected")

	var sample *catalog.Sample
	if cfg.DefaultSample {
		sample = catalog.BundledSample()
	}
	cat := catalog.New(catalog.Options{
		Repo:    db,
		Sample:  sample,
		Size:    cfg.CatalogSize,
		Logger:  log,
		Metrics: m,
	})
	db.OnSwap(func(string) { cat.Invalidate() })

	clientLimiter := ratelimit.NewKeyedLimiter(ratelimit.KeyedConfig{
		Name:          "client",
		Burst:         cfg.ClientRateBurst,
		RefillRate:    cfg.ClientRateRPS,
		CleanupPeriod: config.RateLimiterCleanupInterval,
		IdleTTL:       config.RateLimiterIdleTTL,
		Metrics:       m,
	})

	app := &Application{
		cfg:           cfg,
		logger:        log,
		db:            db,
		metrics:       m,
		registry:      registry,
		catalog:       cat,
		snapshots:     snapshots,
		clientLimiter: clientLimiter,
	}

	gin.SetMode(gin.ReleaseMode)
	app.router = app.newRouter(api.New(api.Options{
		Catalog:    cat,
		Views:      views,
		Store:      db,
		Metrics:    m,
		Logger:     log,
		AdminToken: cfg.AdminToken,
	}))

	app.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           app.router,
		ReadHeaderTimeout: config.HTTPReadHeader,
		ReadTimeout:       config.HTTPRead,
		WriteTimeout:      config.HTTPWrite,
		IdleTimeout:       config.HTTPIdle,
	}

	log.Info("Initialization complete")
	return app, nil
}

// restoreSnapshot downloads the published snapshot when no local store
// exists yet. A bucket without a snapshot is not an error: the server
// starts on an empty store.
func restoreSnapshot(ctx context.Context, m *snapshot.Manager, path string, log *logger.Logger) error {
	if _, err := os.Stat(path); err == nil {
		log.WithField("path", path).Info("Local dataset store found, skipping snapshot download")
		return nil
	}
	if _, err := m.Download(ctx, path); err != nil {
		if errors.Is(err, snapshot.ErrNotFound) {
			log.Warn("No snapshot published yet, starting with an empty store")
			return nil
		}
		return fmt.Errorf("restore snapshot: %w", err)
	}
	return nil
}

func (a *Application) newRouter(handler *api.Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if a.cfg.Sentry.Enabled {
		router.Use(sentry.Middleware())
	}
	router.Use(requestIDMiddleware())
	router.Use(securityHeadersMiddleware())
	router.Use(loggingMiddleware(a.logger))
	router.Use(metricsMiddleware(a.metrics))

	router.GET("/", a.serviceInfo)
	router.GET("/livez", a.livenessCheck)
	router.HEAD("/livez", a.livenessCheck)
	router.GET("/readyz", a.readinessCheck)
	router.HEAD("/readyz", a.readinessCheck)
	router.GET("/metrics",
		metricsAuthMiddleware(a.cfg),
		gin.WrapH(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))

	handler.Register(router.Group("",
		rateLimitMiddleware(a.clientLimiter),
		timeoutMiddleware(config.RequestProcessing),
	))
	return router
}

// Handler returns the HTTP handler of the application.
func (a *Application) Handler() http.Handler {
	return a.router
}

func (a *Application) serviceInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": serviceName,
		"version": buildinfo.Release(),
		"commit":  buildinfo.Commit,
	})
}

func (a *Application) livenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}

func (a *Application) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), config.ReadinessCheckTimeout)
	defer cancel()

	if err := a.db.Ping(ctx); err != nil {
		a.logger.WithError(err).Warn("Readiness check failed: database unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "database unavailable",
		})
		return
	}

	datasets, err := a.db.CountDatasets(ctx)
	if err != nil {
		a.logger.WithError(err).Warn("Failed to count datasets in readiness check")
	}

	body := gin.H{
		"status":   "ready",
		"database": "connected",
		"datasets": datasets,
		"catalog":  a.catalog.Len(),
	}
	if a.snapshots != nil {
		body["snapshot_etag"] = a.snapshots.CurrentETag()
	}
	c.JSON(http.StatusOK, body)
}

// Run starts the HTTP server and background jobs.
//
// Graceful shutdown sequence:
//  1. Receive shutdown signal (SIGINT/SIGTERM)
//  2. Cancel context to stop background jobs
//  3. Wait for background jobs (snapshot polling, metrics) to complete
//  4. Close resources in order (HTTP server, database, rate limiter, logger)
//
// Polling must stop before the database closes, or a hot-swap could race
// the close.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.startBackgroundJobs(ctx)
	a.startHTTPServer()

	sig := a.waitForShutdownSignal()
	a.logger.WithField("signal", sig.String()).Info("Received shutdown signal")

	cancel()

	a.logger.Info("Waiting for background jobs to finish...")
	start := time.Now()
	a.wg.Wait()
	a.logger.WithField("duration_ms", time.Since(start).Milliseconds()).
		Info("All background jobs completed")

	return a.shutdown()
}

// startBackgroundJobs starts all background goroutines tracked by WaitGroup.
func (a *Application) startBackgroundJobs(ctx context.Context) {
	if a.snapshots != nil {
		a.wg.Go(func() {
			a.snapshots.StartPolling(ctx, a.db, a.cfg.DataDir)
			<-ctx.Done()
			a.snapshots.StopPolling()
		})
	}
	a.wg.Go(func() {
		a.updateCatalogMetrics(ctx)
	})
}

// startHTTPServer starts the HTTP server in a goroutine.
func (a *Application) startHTTPServer() {
	go func() {
		a.logger.WithField("port", a.cfg.Port).Info("Starting HTTP server")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.WithError(err).Error("HTTP server error")
		}
	}()
}

// waitForShutdownSignal blocks until SIGINT/SIGTERM is received.
func (a *Application) waitForShutdownSignal() os.Signal {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	return <-quit
}

// shutdown stops the HTTP server and releases resources. Call it only after
// background jobs have finished.
func (a *Application) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	a.logger.Info("Stopping HTTP server...")
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Error("HTTP server shutdown error")
	}

	a.logger.Info("Closing resources...")
	a.close()

	if sentry.IsEnabled() {
		sentry.Flush(2 * time.Second)
	}
	if err := a.logger.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Warn("Logger shutdown timed out")
	}

	a.logger.Info("Shutdown complete")
	return nil
}

// close releases the database and the rate limiter.
func (a *Application) close() {
	if err := a.db.Close(); err != nil {
		a.logger.WithError(err).WithField("component", "database").Error("Component close error")
	}
	if a.clientLimiter != nil {
		a.clientLimiter.Stop()
	}
}

// updateCatalogMetrics periodically records catalog and limiter sizes.
func (a *Application) updateCatalogMetrics(ctx context.Context) {
	a.logger.Debug("Catalog metrics job started")
	defer a.logger.Debug("Catalog metrics job stopped")

	ticker := time.NewTicker(config.MetricsUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.recordCatalogMetrics()
		}
	}
}

func (a *Application) recordCatalogMetrics() {
	if a.metrics == nil {
		return
	}
	a.metrics.SetCatalogSnapshots(a.catalog.Len())
	a.logger.WithField("catalog", a.catalog.Len()).
		WithField("active_clients", a.clientLimiter.GetActiveCount()).
		Debug("Catalog metrics updated")
}
