// cmd/historian/main.go pops game actions from the Redis queue and persists
// them to Postgres.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/meowgames/internal/cache"
	"github.com/jason-s-yu/meowgames/internal/config"
	"github.com/jason-s-yu/meowgames/internal/database"
	"github.com/jason-s-yu/meowgames/internal/historian"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()
	log := logrus.NewEntry(cfg.NewLogger()).WithField("component", "historian")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Fatal("Historian exited")
	}
}

func run(ctx context.Context, cfg config.Config, log *logrus.Entry) error {
	if cfg.RedisAddr == "" || cfg.DatabaseURL == "" {
		return errors.New("REDIS_ADDR and DATABASE_URL are required")
	}

	rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		return err
	}
	defer rdb.Close()

	pool, err := database.ConnectDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	store := database.NewResultStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}

	svc := historian.New(rdb, store, historian.Config{
		Queue:      cfg.QueueName,
		BatchSize:  cfg.HistorianBatchSize,
		FlushDelay: cfg.HistorianFlush,
	}, log)
	return svc.Run(ctx)
}
