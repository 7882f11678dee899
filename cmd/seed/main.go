// Command seed fills a development database with a demo handloom catalog.
// It connects with the server's POSTGRES_* settings, applies migrations and
// can be re-run safely.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nahankar/shatika/internal/cache"
	"github.com/nahankar/shatika/internal/config"
	"github.com/nahankar/shatika/internal/domain"
	"github.com/nahankar/shatika/internal/event"
	"github.com/nahankar/shatika/internal/repository"
	"github.com/nahankar/shatika/internal/repository/postgres"
	essearch "github.com/nahankar/shatika/internal/search/elasticsearch"
	"github.com/nahankar/shatika/internal/seed"
	"github.com/nahankar/shatika/internal/service"
	"github.com/nahankar/shatika/migrations"
	pkgconfig "github.com/nahankar/shatika/pkg/config"
	"github.com/nahankar/shatika/pkg/database"
	"github.com/nahankar/shatika/pkg/logger"
)

type seedConfig struct {
	Products int   `env:"SEED_PRODUCTS" envDefault:"200"`
	Seed     int64 `env:"SEED_RANDOM_SEED" envDefault:"42"`
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	var sc seedConfig
	if err := pkgconfig.Load(&sc); err != nil {
		slog.Error("failed to load seed config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := logger.New("shatika-seed", logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, sc, log); err != nil {
		log.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, sc seedConfig, log *slog.Logger) error {
	pool, err := database.NewPostgresPool(ctx, &database.PostgresConfig{
		Host:            cfg.PostgresHost,
		Port:            cfg.PostgresPort,
		User:            cfg.PostgresUser,
		Password:        cfg.PostgresPass,
		DBName:          cfg.PostgresDB,
		SSLMode:         cfg.PostgresSSL,
		MaxConns:        4,
		MinConns:        1,
		MaxConnLifetime: time.Duration(cfg.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(cfg.DBMaxConnIdleTimeMins) * time.Minute,
	}, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool, migrations.FS, log); err != nil {
		return err
	}

	facetRepos := make([]repository.FacetRepository, 0, len(domain.FacetKinds()))
	for _, kind := range domain.FacetKinds() {
		facetRepos = append(facetRepos, postgres.NewFacetRepository(pool, kind))
	}
	catalog := service.NewCatalogService(
		postgres.NewProductRepository(pool), facetRepos, nil, cache.Nop{}, event.Nop{}, log,
	)

	if cfg.SearchEnabled {
		engine, err := essearch.New(ctx, cfg.ElasticsearchURL, cfg.SearchIndex, log)
		if err != nil {
			return err
		}
		catalog.UseSearch(engine)
	}

	start := time.Now()
	res, err := seed.Run(ctx, catalog, seed.Options{Products: sc.Products, Seed: sc.Seed}, log)
	if err != nil {
		return err
	}
	log.Info("seed complete",
		slog.Int("products_total", res.ProductsCreated+res.ProductsSkipped),
		slog.Duration("elapsed", time.Since(start)),
	)
	return nil
}
