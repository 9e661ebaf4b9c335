// internal/historian/historian.go

// Package historian drains the game action queue that game servers publish to
// and stores the actions in Postgres in batches.
package historian

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jason-s-yu/meowgames/internal/game"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	DefaultBatchSize  = 20
	DefaultFlushDelay = 500 * time.Millisecond

	popTimeout   = time.Second
	flushTimeout = 10 * time.Second
)

// Popper is the slice of the Redis client the service reads with.
type Popper interface {
	BLPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
}

// ActionStore persists a batch of actions atomically.
type ActionStore interface {
	SaveActions(ctx context.Context, actions []game.ActionRecord) error
}

type Config struct {
	Queue      string
	BatchSize  int
	FlushDelay time.Duration
}

type Service struct {
	rdb   Popper
	store ActionStore
	cfg   Config
	log   *logrus.Entry

	batch   []game.ActionRecord
	firstAt time.Time
}

func New(rdb Popper, store ActionStore, cfg Config, log *logrus.Entry) *Service {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.FlushDelay <= 0 {
		cfg.FlushDelay = DefaultFlushDelay
	}
	return &Service{
		rdb:   rdb,
		store: store,
		cfg:   cfg,
		log:   log.WithField("queue", cfg.Queue),
		batch: make([]game.ActionRecord, 0, cfg.BatchSize),
	}
}

// Run pops records until ctx is cancelled. A batch is written once it is full
// or its oldest record has waited FlushDelay; whatever is pending is written
// on shutdown.
func (s *Service) Run(ctx context.Context) error {
	s.log.Info("Historian started")
	defer s.log.Info("Historian stopped")

	for {
		res, err := s.rdb.BLPop(ctx, popTimeout, s.cfg.Queue).Result()
		if err == nil && len(res) == 2 {
			s.add(res[1])
		}
		switch {
		case ctx.Err() != nil:
			s.flush()
			return nil
		case err != nil && !errors.Is(err, redis.Nil):
			s.log.WithError(err).Error("BLPop failed")
			select {
			case <-ctx.Done():
			case <-time.After(popTimeout):
			}
		}

		if len(s.batch) >= s.cfg.BatchSize ||
			(len(s.batch) > 0 && time.Since(s.firstAt) >= s.cfg.FlushDelay) {
			s.flush()
		}
	}
}

func (s *Service) add(payload string) {
	var rec game.ActionRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		s.log.WithError(err).Warn("Invalid action record")
		return
	}
	if len(s.batch) == 0 {
		s.firstAt = time.Now()
	}
	s.batch = append(s.batch, rec)
}

// flush writes the pending batch. A failed batch is logged and dropped so a
// poison record cannot stall the queue.
func (s *Service) flush() {
	if len(s.batch) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()

	if err := s.store.SaveActions(ctx, s.batch); err != nil {
		s.log.WithError(err).WithField("count", len(s.batch)).Error("Failed to store actions")
	} else {
		s.log.WithField("count", len(s.batch)).Debug("Flushed actions")
	}
	s.batch = s.batch[:0]
}
