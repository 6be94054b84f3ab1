package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"robot-maint/internal/config"
	"robot-maint/internal/logger"
	"robot-maint/internal/seed"
	"robot-maint/internal/storage/mysql"
)

func main() {
	fixturePath := flag.String("fixture", "config/seed.yaml", "path to the seed fixture")
	migrate := flag.String("migrate", "", "migration file applied before seeding, e.g. migrations/001_init.sql")
	flag.Parse()

	cfg := config.MustConfig()
	log := logger.Setup(cfg.Env)

	storage, err := mysql.New(cfg.DB)
	if err != nil {
		log.Error("failed to open db", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer storage.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if *migrate != "" {
		stmt, err := os.ReadFile(*migrate)
		if err != nil {
			log.Error("failed to read migration", slog.String("path", *migrate), slog.String("error", err.Error()))
			os.Exit(1)
		}
		if err := storage.Exec(ctx, string(stmt)); err != nil {
			log.Error("failed to migrate", slog.String("error", err.Error()))
			os.Exit(1)
		}
		log.Info("migration applied", slog.String("path", *migrate))
	}

	f, err := os.Open(*fixturePath)
	if err != nil {
		log.Error("failed to open fixture", slog.String("path", *fixturePath), slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer f.Close()

	fx, err := seed.Load(f)
	if err != nil {
		log.Error("failed to load fixture", slog.String("error", err.Error()))
		os.Exit(1)
	}

	sum, err := seed.Apply(ctx, storage, fx)
	if err != nil {
		log.Error("failed to seed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("seed applied",
		slog.Int("catalog_items", sum.CatalogItems),
		slog.Int("models", sum.Models),
		slog.Int("entries", sum.Entries),
		slog.Int("versions", sum.Versions),
		slog.Int("clients", sum.Clients),
		slog.Int("systems", sum.Systems),
		slog.Int("components", sum.Components),
	)
}
