package main

import (
	"context"
	"os"

	"github.com/Skotchmaster/gigmarket/internal/config"
	"github.com/Skotchmaster/gigmarket/internal/db"
	"github.com/Skotchmaster/gigmarket/internal/logging"
	"github.com/Skotchmaster/gigmarket/internal/repo"
	"github.com/Skotchmaster/gigmarket/internal/seed"
)

func main() {
	cfg := config.Load()
	l := logging.New(cfg.LogLevel).With("cmd", "seed")
	ctx := context.Background()

	gdb, err := db.Open(ctx, cfg.DatabaseURL, cfg.SQLitePath)
	if err != nil {
		l.Error("db_open_failed", "error", err)
		os.Exit(1)
	}
	defer db.Close(gdb)

	if err := db.Migrate(gdb); err != nil {
		l.Error("db_migrate_failed", "error", err)
		os.Exit(1)
	}
	if err := seed.Run(ctx, repo.New(gdb)); err != nil {
		l.Error("seed_failed", "error", err)
		os.Exit(1)
	}
	l.Info("seeded")
}
