package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/zflaviojr/patrimoniotools-sub000/internal/infra/config"
	"github.com/zflaviojr/patrimoniotools-sub000/internal/infra/database"
	"github.com/zflaviojr/patrimoniotools-sub000/internal/infra/logger"
	postgresrepo "github.com/zflaviojr/patrimoniotools-sub000/internal/repository/postgres"
	"github.com/zflaviojr/patrimoniotools-sub000/internal/usecase"
)

// auditpurge deletes audit log entries older than the configured retention
// window. Intended to run from cron.
func main() {
	retentionFlag := flag.Int("retention-days", 0, "override the configured retention window in days")
	timeoutFlag := flag.Duration("timeout", 5*time.Minute, "overall execution timeout")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zapLog, err := logger.New(cfg.App.Env)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() {
		_ = zapLog.Sync()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), *timeoutFlag)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, zapLog)
	if err != nil {
		zapLog.Fatal("failed to init postgres", zap.Error(err))
	}
	defer pool.Close()

	retention := cfg.Audit.RetentionDays
	if *retentionFlag > 0 {
		retention = *retentionFlag
	}

	repos := postgresrepo.NewRepositories(pool)
	recorder := usecase.NewAuditRecorder(repos.AuditLog, zapLog)

	removed, err := recorder.PurgeExpired(ctx, retention)
	if err != nil {
		zapLog.Fatal("audit purge failed", zap.Error(err))
	}

	zapLog.Info("audit purge completed",
		zap.Int("retention_days", retention),
		zap.Int64("entries_removed", removed),
	)
}
