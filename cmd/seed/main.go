// Command seed loads the sample bakery catalog into the database. It is
// safe to run repeatedly: existing categories and products are kept.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/FeliksML/web-cellar-sub000/internal/config"
	"github.com/FeliksML/web-cellar-sub000/internal/repository/postgres"
	pgsearch "github.com/FeliksML/web-cellar-sub000/internal/search/postgres"
	"github.com/FeliksML/web-cellar-sub000/internal/service"
	"github.com/FeliksML/web-cellar-sub000/internal/storage/memory"
	"github.com/FeliksML/web-cellar-sub000/migrations"
	"github.com/FeliksML/web-cellar-sub000/pkg/database"
	"github.com/FeliksML/web-cellar-sub000/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log := logger.New("beasty-baker-seed", cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, database.PostgresConfig{
		URL:      cfg.DatabaseURL,
		MaxConns: 4,
	}, log)
	if err != nil {
		log.Error("failed to connect to postgres", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool, migrations.FS, log); err != nil {
		log.Error("failed to run migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	productRepo := postgres.NewProductRepository(pool)
	categories := service.NewCategoryService(postgres.NewCategoryRepository(pool), log)
	products := service.NewProductService(productRepo, pgsearch.New(productRepo), memory.New("/media"), nil, log)

	res, err := NewSeeder(categories, products, productRepo, log).Run(ctx, sampleCategories, sampleProducts)
	if err != nil {
		log.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log.Info("seed complete",
		slog.Int("categories_created", res.Categories),
		slog.Int("products_created", res.Products),
	)
}
