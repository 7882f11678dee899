package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/nahankar/shatika/internal/auth"
	"github.com/nahankar/shatika/internal/cache"
	rediscache "github.com/nahankar/shatika/internal/cache/redis"
	"github.com/nahankar/shatika/internal/config"
	"github.com/nahankar/shatika/internal/domain"
	"github.com/nahankar/shatika/internal/event"
	handler "github.com/nahankar/shatika/internal/handler/http"
	"github.com/nahankar/shatika/internal/render"
	"github.com/nahankar/shatika/internal/render/chromium"
	"github.com/nahankar/shatika/internal/repository"
	"github.com/nahankar/shatika/internal/repository/postgres"
	essearch "github.com/nahankar/shatika/internal/search/elasticsearch"
	"github.com/nahankar/shatika/internal/service"
	"github.com/nahankar/shatika/internal/storage"
	"github.com/nahankar/shatika/internal/storage/gcs"
	"github.com/nahankar/shatika/internal/storage/local"
	"github.com/nahankar/shatika/internal/storage/memory"
	"github.com/nahankar/shatika/migrations"
	"github.com/nahankar/shatika/pkg/breaker"
	"github.com/nahankar/shatika/pkg/database"
	"github.com/nahankar/shatika/pkg/health"
	pkgkafka "github.com/nahankar/shatika/pkg/kafka"
	"github.com/nahankar/shatika/pkg/middleware"
	"github.com/nahankar/shatika/pkg/tracing"
)

// ServiceName labels logs, metrics and traces.
const ServiceName = "shatika"

// App wires together all dependencies and runs the server.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *goredis.Client
	producer       *pkgkafka.Producer
	storageCloser  io.Closer
	renderer       render.Renderer
	httpServer     *http.Server
	tracerShutdown tracing.ShutdownFunc
}

// NewApp creates a new application instance, initializing all dependencies.
// On failure everything opened so far is released.
func NewApp(cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.release()
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Tracing
	a.tracerShutdown, err = tracing.InitTracer(ctx, tracing.Config{
		Enabled:        cfg.OTELEnabled,
		ServiceName:    ServiceName,
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		Insecure:       cfg.OTELInsecure,
		SampleRate:     cfg.OTELSampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// PostgreSQL
	a.pool, err = database.NewPostgresPool(ctx, &database.PostgresConfig{
		Host:            cfg.PostgresHost,
		Port:            cfg.PostgresPort,
		User:            cfg.PostgresUser,
		Password:        cfg.PostgresPass,
		DBName:          cfg.PostgresDB,
		SSLMode:         cfg.PostgresSSL,
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: time.Duration(cfg.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(cfg.DBMaxConnIdleTimeMins) * time.Minute,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	if err := database.RegisterPoolMetrics(reg, a.pool, ServiceName); err != nil {
		return nil, fmt.Errorf("register pool metrics: %w", err)
	}

	if err := database.RunMigrations(ctx, a.pool, migrations.FS, logger); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	if cfg.SlowQueryThresholdMs > 0 {
		database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)
	}

	healthHandler := health.NewHandler(5 * time.Second)
	healthHandler.Register("postgres", func(ctx context.Context) error {
		return a.pool.Ping(ctx)
	})

	// Product summary cache
	var productCache cache.ProductCache = cache.Nop{}
	if cfg.CacheEnabled {
		a.redis, err = database.NewRedisClient(ctx, database.RedisConfig{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		productCache = rediscache.NewProductCache(a.redis, cfg.CacheTTL)
		healthHandler.RegisterOptional("redis", func(ctx context.Context) error {
			return a.redis.Ping(ctx).Err()
		})
		logger.Info("product cache enabled", slog.Duration("ttl", cfg.CacheTTL))
	}

	// Domain events
	var events event.Publisher = event.Nop{}
	if cfg.KafkaEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.ProducerConfig{Brokers: cfg.KafkaBrokers}, reg, logger)
		events = event.NewProducer(a.producer, logger)
		healthHandler.RegisterOptional("kafka", a.producer.Ping)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	breakerMetrics := breaker.NewMetrics(reg)

	store, mediaHandler, uploadsDir, err := a.newStorage(ctx, breakerMetrics)
	if err != nil {
		return nil, err
	}

	a.renderer = render.Renderer(render.Disabled{})
	if cfg.RenderEnabled {
		a.renderer = render.NewGuarded(
			chromium.New(chromium.Config{
				BrowserBin:    cfg.RenderBrowserBin,
				ControlURL:    cfg.RenderControlURL,
				AssetTimeout:  cfg.RenderAssetTimeout,
				RenderTimeout: cfg.RenderTimeout,
			}, logger),
			breaker.New[[]byte](breaker.DefaultConfig("thumbnail-renderer"), breakerMetrics, logger),
		)
	}

	// Build the dependency graph.
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTAccessExpiry)
	accountRepo := postgres.NewAccountRepository(a.pool)
	productRepo := postgres.NewProductRepository(a.pool)
	projectRepo := postgres.NewProjectRepository(a.pool)
	facetRepos := make([]repository.FacetRepository, 0, len(domain.FacetKinds()))
	for _, kind := range domain.FacetKinds() {
		facetRepos = append(facetRepos, postgres.NewFacetRepository(a.pool, kind))
	}

	metrics := service.NewMetrics(reg)
	media := service.NewMediaService(store, cfg.UploadMaxBytes, metrics, logger)
	accounts := service.NewAccountService(accountRepo, jwtManager, events, cfg.AdminEmail, logger)

	if err := accounts.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		return nil, fmt.Errorf("bootstrap admin: %w", err)
	}

	catalog := service.NewCatalogService(productRepo, facetRepos, media, productCache, events, logger)
	if cfg.SearchEnabled {
		// Search is optional: without a reachable cluster the catalog keeps
		// answering free-text queries from PostgreSQL.
		engine, err := essearch.New(ctx, cfg.ElasticsearchURL, cfg.SearchIndex, logger)
		if err != nil {
			logger.Warn("product search disabled, elasticsearch unavailable",
				slog.String("url", cfg.ElasticsearchURL),
				slog.String("error", err.Error()),
			)
		} else {
			catalog.UseSearch(engine)
			healthHandler.RegisterOptional("elasticsearch", engine.Ping)
			logger.Info("product search enabled", slog.String("index", cfg.SearchIndex))
		}
	}

	svcs := handler.Services{
		Accounts:  accounts,
		Catalog:   catalog,
		Cart:      service.NewCartService(accountRepo, productRepo, productCache, events, logger),
		Favorites: service.NewFavoriteService(accountRepo, productRepo, productCache, events, logger),
		Projects:  service.NewProjectService(projectRepo, productRepo, a.renderer, media, events, metrics, logger),
		Media:     media,
		Dashboard: service.NewDashboardService(accountRepo, productRepo, facetRepos, projectRepo, logger),
	}

	router := handler.NewRouter(svcs, handler.RouterConfig{
		ServiceName: ServiceName,
		Development: cfg.IsDevelopment(),
		CORS: middleware.CORSConfig{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			Development:    cfg.IsDevelopment(),
		},
		UploadsDir:         uploadsDir,
		Media:              mediaHandler,
		PprofAllowedCIDRs:  cfg.PprofAllowedCIDRs,
		AuthRateLimitRPS:   cfg.AuthRateLimitRPS,
		AuthRateLimitBurst: cfg.AuthRateLimitBurst,
	}, healthHandler, middleware.NewHTTPMetrics(reg, ServiceName), reg, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.RenderTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// newStorage builds the configured storage driver. It also returns the
// handler serving in-memory files and the directory served for local files;
// each is empty for the other drivers.
func (a *App) newStorage(ctx context.Context, metrics *breaker.Metrics) (storage.Storage, http.Handler, string, error) {
	cfg := a.cfg
	switch cfg.StorageDriver {
	case config.StorageGCS:
		client, err := gcs.NewClient(ctx, cfg.GCSCredentialsFile)
		if err != nil {
			return nil, nil, "", err
		}
		a.storageCloser = client
		store, err := gcs.New(client, cfg.GCSBucket, cfg.GCSPublicBaseURL,
			breaker.New[struct{}](breaker.DefaultConfig("gcs"), metrics, a.logger))
		if err != nil {
			return nil, nil, "", err
		}
		a.logger.Info("using gcs storage", slog.String("bucket", cfg.GCSBucket))
		return store, nil, "", nil

	case config.StorageMemory:
		store := memory.New(origin(cfg.StoragePublicBaseURL))
		a.logger.Warn("using in-memory storage, uploads are lost on restart")
		return store, store, "", nil

	default:
		store, err := local.New(cfg.StorageLocalDir, cfg.StoragePublicBaseURL)
		if err != nil {
			return nil, nil, "", fmt.Errorf("init local storage: %w", err)
		}
		a.logger.Info("using local storage", slog.String("dir", cfg.StorageLocalDir))
		return store, nil, cfg.StorageLocalDir, nil
	}
}

// origin returns the scheme and host of rawURL, or "" when it has none.
func origin(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		a.release()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Tracer (flush pending spans from drained requests)
// 3. Renderer, Kafka producer, Redis, storage client and PostgreSQL pool
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if err := a.release(); err != nil {
		errs = append(errs, err)
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// release closes every dependency that was opened, in reverse order of
// construction.
func (a *App) release() error {
	var errs []error
	closeWith := func(name string, fn func() error) {
		if err := fn(); err != nil {
			a.logger.Error(name+" close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.tracerShutdown != nil {
		closeWith("tracer", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			return a.tracerShutdown(ctx)
		})
		a.tracerShutdown = nil
	}
	if a.renderer != nil {
		closeWith("renderer", a.renderer.Close)
		a.renderer = nil
	}
	if a.producer != nil {
		closeWith("kafka producer", a.producer.Close)
		a.producer = nil
	}
	if a.redis != nil {
		closeWith("redis", a.redis.Close)
		a.redis = nil
	}
	if a.storageCloser != nil {
		closeWith("storage client", a.storageCloser.Close)
		a.storageCloser = nil
	}
	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
	return errors.Join(errs...)
}
