// Command migrate runs goose against the embedded migrations.
//
//	migrate [up|down|status|redo|version|reset] [args...]
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"flyttbas_backend/migrations"
	"flyttbas_backend/platform/config"
	"flyttbas_backend/platform/db"
	"flyttbas_backend/platform/logger"

	"github.com/jackc/pgx/v5/stdlib"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)

	command := "up"
	var args []string
	if len(os.Args) > 1 {
		command = os.Args[1]
		args = os.Args[2:]
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	sqlDB := stdlib.OpenDBFromPool(pool)
	defer func() { _ = sqlDB.Close() }()

	if err := db.RunGoose(ctx, sqlDB, migrations.FS, command, args...); err != nil {
		log.Error("migration failed", "command", command, "error", err)
		os.Exit(1)
	}
	log.Info("migration finished", "command", command)
}
