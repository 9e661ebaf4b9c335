// internal/room/env.go
package room

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/meowgames/internal/game"
	"github.com/jason-s-yu/meowgames/internal/protocol"
	"github.com/sirupsen/logrus"
)

// roomEnv is the game.Env handed to engines. It is only ever used from the
// room loop.
type roomEnv struct{ r *Room }

func (e *roomEnv) Broadcast(ev protocol.Event, except ...uint16) { e.r.broadcast(ev, except...) }
func (e *roomEnv) Send(uid uint16, ev protocol.Event)            { e.r.send(uid, ev) }
func (e *roomEnv) Members() []uint16                             { return slices.Clone(e.r.joined) }
func (e *roomEnv) After(d time.Duration, fn func()) func()       { return e.r.after(d, fn) }
func (e *roomEnv) CountingDown() bool                            { return e.r.countdown != nil }
func (e *roomEnv) Logger() *logrus.Entry                         { return e.r.log }

// Record stamps an action with the running match. Actions outside a match,
// such as settings changed in the lobby, belong to no match and are not
// recorded.
func (e *roomEnv) Record(actor uint16, action string, payload map[string]interface{}) {
	r := e.r
	if r.matchID == uuid.Nil {
		r.log.WithField("action", action).Debug("No match running, action not recorded")
		return
	}
	rec := game.ActionRecord{
		MatchID:       r.matchID,
		RoomID:        r.cfg.ID,
		ActionIndex:   r.actionIndex,
		ActorUID:      actor,
		ActionType:    action,
		ActionPayload: payload,
		Timestamp:     time.Now().UnixMilli(),
	}
	r.actionIndex++
	if r.cfg.Hooks.Record != nil {
		r.cfg.Hooks.Record(rec)
	}
}

// Finish stamps the match identity and player names before handing the result
// on.
func (e *roomEnv) Finish(result game.MatchResult) {
	r := e.r
	result.ID = r.matchID
	result.RoomID = r.cfg.ID
	if result.StartedAt.IsZero() {
		result.StartedAt = r.startedAt
	}
	for i := range result.Players {
		uid := result.Players[i].UID
		if m, ok := r.members[uid]; ok {
			result.Players[i].Name = m.Name()
		} else {
			result.Players[i].Name = r.matchNames[uid]
		}
	}
	r.log.WithFields(logrus.Fields{
		"match_id": result.ID,
		"success":  result.Success,
		"forced":   result.Forced,
	}).Info("Match finished")

	r.matchID = uuid.Nil
	r.actionIndex = 0
	r.matchNames = nil
	if r.cfg.Hooks.Finish != nil {
		r.cfg.Hooks.Finish(result)
	}
}
