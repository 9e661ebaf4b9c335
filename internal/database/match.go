// internal/database/match.go
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/meowgames/internal/game"
	"github.com/sirupsen/logrus"
)

const schema = `
CREATE TABLE IF NOT EXISTS matches (
	id         UUID PRIMARY KEY,
	room_id    INTEGER NOT NULL,
	game_type  TEXT NOT NULL,
	success    BOOLEAN NOT NULL,
	forced     BOOLEAN NOT NULL,
	started_at TIMESTAMPTZ NOT NULL,
	ended_at   TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS match_players (
	match_id UUID NOT NULL REFERENCES matches (id) ON DELETE CASCADE,
	uid      INTEGER NOT NULL,
	name     TEXT NOT NULL,
	round    SMALLINT NOT NULL,
	gave_up  BOOLEAN NOT NULL,
	rank     SMALLINT NOT NULL,
	PRIMARY KEY (match_id, uid)
);
CREATE TABLE IF NOT EXISTS match_actions (
	match_id       UUID NOT NULL,
	action_index   INTEGER NOT NULL,
	room_id        INTEGER NOT NULL,
	actor_uid      INTEGER NOT NULL,
	action_type    TEXT NOT NULL,
	action_payload JSONB,
	created_at     TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (match_id, action_index)
);
`

const saveTimeout = 5 * time.Second

// TxBeginner is satisfied by *pgxpool.Pool and *pgx.Conn.
type TxBeginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// ResultStore writes match results.
type ResultStore struct {
	db TxBeginner
}

func NewResultStore(db TxBeginner) *ResultStore {
	return &ResultStore{db: db}
}

// EnsureSchema creates the result tables when they are missing.
func (s *ResultStore) EnsureSchema(ctx context.Context) error {
	return pgx.BeginTxFunc(ctx, s.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, schema)
		return err
	})
}

// SaveMatch stores res and its player lines in one transaction. Saving the
// same match twice overwrites it.
func (s *ResultStore) SaveMatch(ctx context.Context, res game.MatchResult) error {
	err := pgx.BeginTxFunc(ctx, s.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		upsertMatch := `
			INSERT INTO matches (id, room_id, game_type, success, forced, started_at, ended_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE
			SET success = $4, forced = $5, ended_at = $7
		`
		if _, err := tx.Exec(ctx, upsertMatch,
			res.ID, res.RoomID, res.GameType.String(), res.Success, res.Forced, res.StartedAt, res.EndedAt,
		); err != nil {
			return err
		}

		batch := &pgx.Batch{}
		for _, p := range res.Players {
			batch.Queue(`
				INSERT INTO match_players (match_id, uid, name, round, gave_up, rank)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (match_id, uid)
				DO UPDATE SET name = $3, round = $4, gave_up = $5, rank = $6
			`, res.ID, int32(p.UID), p.Name, p.Round, p.GaveUp, int16(p.Rank))
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("tx save match %s: %w", res.ID, err)
	}
	return nil
}

// SaveActions stores a batch of historian records in one transaction.
// Records already stored are skipped, so a replayed batch is harmless.
func (s *ResultStore) SaveActions(ctx context.Context, actions []game.ActionRecord) error {
	err := pgx.BeginTxFunc(ctx, s.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, a := range actions {
			payload, err := json.Marshal(a.ActionPayload)
			if err != nil {
				return fmt.Errorf("marshal payload of %s #%d: %w", a.MatchID, a.ActionIndex, err)
			}
			batch.Queue(`
				INSERT INTO match_actions (match_id, action_index, room_id, actor_uid, action_type, action_payload, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
				ON CONFLICT (match_id, action_index) DO NOTHING
			`, a.MatchID, a.ActionIndex, a.RoomID, int32(a.ActorUID), a.ActionType, payload, time.UnixMilli(a.Timestamp))
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("tx save %d actions: %w", len(actions), err)
	}
	return nil
}

// MatchSaver is what Recorder writes through.
type MatchSaver interface {
	SaveMatch(ctx context.Context, res game.MatchResult) error
}

// Recorder buffers results handed over by rooms and saves them from its own
// goroutine.
type Recorder struct {
	store   MatchSaver
	log     *logrus.Entry
	results chan game.MatchResult
}

func NewRecorder(store MatchSaver, log *logrus.Entry) *Recorder {
	return &Recorder{
		store:   store,
		log:     log,
		results: make(chan game.MatchResult, 64),
	}
}

// Finish enqueues res without blocking.
func (r *Recorder) Finish(res game.MatchResult) {
	select {
	case r.results <- res:
	default:
		r.log.WithField("match_id", res.ID).Warn("Result queue full, dropping match")
	}
}

// Run saves results until ctx is cancelled, then drains the queue.
func (r *Recorder) Run(ctx context.Context) error {
	for {
		select {
		case res := <-r.results:
			r.save(ctx, res)
		case <-ctx.Done():
			for {
				select {
				case res := <-r.results:
					r.save(context.Background(), res)
				default:
					return nil
				}
			}
		}
	}
}

func (r *Recorder) save(ctx context.Context, res game.MatchResult) {
	ctx, cancel := context.WithTimeout(ctx, saveTimeout)
	defer cancel()
	if err := r.store.SaveMatch(ctx, res); err != nil {
		r.log.WithError(err).WithField("match_id", res.ID).Error("Failed to save match")
		return
	}
	r.log.WithFields(logrus.Fields{
		"match_id": res.ID,
		"players":  len(res.Players),
	}).Debug("Saved match")
}
