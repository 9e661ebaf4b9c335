// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/meowgames/internal/cache"
	"github.com/jason-s-yu/meowgames/internal/config"
	"github.com/jason-s-yu/meowgames/internal/database"
	"github.com/jason-s-yu/meowgames/internal/handlers"
	"github.com/jason-s-yu/meowgames/internal/room"
	"github.com/jason-s-yu/meowgames/internal/server"
	"github.com/jason-s-yu/meowgames/internal/session"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := config.Load()
	logger := cfg.NewLogger()
	log := logrus.NewEntry(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Fatal("Server exited")
	}
	log.Info("Server stopped")
}

func run(ctx context.Context, cfg config.Config, log *logrus.Entry) error {
	g, ctx := errgroup.WithContext(ctx)
	var hooks room.Hooks

	if cfg.RedisAddr != "" {
		rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			return err
		}
		defer rdb.Close()
		pub := cache.NewPublisher(rdb, cfg.QueueName, log.WithField("component", "historian"))
		g.Go(func() error { return pub.Run(ctx) })
		hooks.Record = pub.Record
		log.WithField("addr", cfg.RedisAddr).Info("Publishing game actions to Redis")
	}

	if cfg.DatabaseURL != "" {
		pool, err := database.ConnectDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		store := database.NewResultStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		rec := database.NewRecorder(store, log.WithField("component", "results"))
		g.Go(func() error { return rec.Run(ctx) })
		hooks.Finish = rec.Finish
		log.Info("Storing match results in Postgres")
	}

	srv := server.New(ctx, server.Config{
		Version:      cfg.GameVersion,
		MaxRooms:     cfg.MaxRooms,
		MaxRoomUsers: cfg.MaxRoomUsers,
		Countdown:    cfg.StartCountdown,
		IdleTimeout:  cfg.IdleTimeout,
		Session: session.Config{
			OutboxSize:   cfg.OutboxSize,
			WriteTimeout: cfg.WriteTimeout,
			RateLimit:    cfg.RateLimit,
			RateBurst:    cfg.RateBurst,
		},
		Hooks: hooks,
	}, log)

	if cfg.TCPAddr != "" {
		ln, err := net.Listen("tcp", cfg.TCPAddr)
		if err != nil {
			return err
		}
		g.Go(func() error { return handlers.ServeTCP(ctx, ln, log, srv, cfg.MaxFrameSize) })
	}

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handlers.NewRouter(log, srv, cfg.MaxFrameSize),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	g.Go(func() error {
		log.WithFields(logrus.Fields{"addr": cfg.HTTPAddr, "tls": cfg.TLS()}).Info("HTTP listener started")
		var err error
		if cfg.TLS() {
			err = httpSrv.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = httpSrv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
