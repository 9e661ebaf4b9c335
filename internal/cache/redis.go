// internal/cache/redis.go

// Package cache ships game action records to a Redis list consumed by the
// historian service.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jason-s-yu/meowgames/internal/game"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// DefaultQueueName is the Redis list game actions are pushed onto.
const DefaultQueueName = "meowgames_actions"

const (
	defaultBuffer  = 1024
	publishTimeout = 2 * time.Second
)

// Connect opens a Redis client and pings it.
func Connect(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// ListPusher is the slice of the Redis client the publisher needs.
type ListPusher interface {
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// Publisher queues action records in memory and pushes them from its own
// goroutine, so rooms never wait on Redis.
type Publisher struct {
	rdb     ListPusher
	queue   string
	log     *logrus.Entry
	records chan game.ActionRecord
}

func NewPublisher(rdb ListPusher, queue string, log *logrus.Entry) *Publisher {
	if queue == "" {
		queue = DefaultQueueName
	}
	return &Publisher{
		rdb:     rdb,
		queue:   queue,
		log:     log.WithField("queue", queue),
		records: make(chan game.ActionRecord, defaultBuffer),
	}
}

// Record enqueues rec. It never blocks; when the buffer is full the record is
// dropped and logged.
func (p *Publisher) Record(rec game.ActionRecord) {
	select {
	case p.records <- rec:
	default:
		p.log.WithFields(logrus.Fields{
			"match_id": rec.MatchID,
			"action":   rec.ActionType,
		}).Warn("Action queue full, dropping record")
	}
}

// Run pushes queued records until ctx is cancelled, then flushes whatever is
// still buffered.
func (p *Publisher) Run(ctx context.Context) error {
	for {
		select {
		case rec := <-p.records:
			p.publish(ctx, rec)
		case <-ctx.Done():
			p.flush()
			return nil
		}
	}
}

func (p *Publisher) flush() {
	for {
		select {
		case rec := <-p.records:
			p.publish(context.Background(), rec)
		default:
			return
		}
	}
}

func (p *Publisher) publish(ctx context.Context, rec game.ActionRecord) {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := p.PublishGameAction(ctx, rec); err != nil {
		p.log.WithError(err).WithField("match_id", rec.MatchID).Error("Failed to publish game action")
	}
}

// PublishGameAction serializes rec to JSON and pushes it onto the queue.
func (p *Publisher) PublishGameAction(ctx context.Context, rec game.ActionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal ActionRecord: %w", err)
	}
	if err := p.rdb.RPush(ctx, p.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", p.queue, err)
	}
	return nil
}
