package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/joripage/ergodic/config"
	"github.com/joripage/ergodic/pkg/infra"
	"github.com/joripage/ergodic/pkg/logging"
)

func main() {
	var configFile, source string
	flag.StringVar(&configFile, "config-file", "", "Specify config file path")
	flag.StringVar(&source, "source", infra.DefaultSource, "Migration source URL")
	flag.Parse()

	defer logging.NewLogger(logging.INFO).ReplaceGlobals()()

	cfg, err := config.Load(configFile)
	if err != nil {
		zap.S().Fatalf("load config: %v", err)
	}
	if cfg.Feed.Postgres == nil {
		zap.S().Fatal("feed.postgres is not configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := infra.GetMigrateTool().CreateDBAndMigrate(ctx, cfg.Feed.Postgres, source)
	if err != nil {
		zap.S().Fatalf("migrate: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
