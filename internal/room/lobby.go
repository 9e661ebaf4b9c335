// internal/room/lobby.go
package room

import (
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/meowgames/internal/game"
	"github.com/jason-s-yu/meowgames/internal/protocol"
	"github.com/sirupsen/logrus"
)

func (r *Room) handleRequest(uid uint16, req protocol.Request) {
	switch req.(type) {
	case *protocol.JoinGameRequest:
		r.joinGame(uid)
	case *protocol.LeaveGameRequest:
		r.leaveGame(uid)
	case *protocol.StartRequest:
		r.requestStart(uid)
	case *protocol.CancelStartRequest:
		if r.game.IsPlayer(uid) && r.countdown != nil {
			r.cancelCountdown()
		}
	default:
		r.game.Handle(uid, req)
	}
}

func (r *Room) joinGame(uid uint16) {
	if r.game.Playing() || !r.game.AddPlayer(uid) {
		return
	}
	r.broadcast(&protocol.JoinGameEvent{UID: uid})
	r.cancelCountdown()
}

// leaveGame is voluntary and only honored between matches; leaving the room
// is the way out of a running one.
func (r *Room) leaveGame(uid uint16) {
	if r.game.Playing() || !r.game.IsPlayer(uid) {
		return
	}
	r.game.RemovePlayer(uid)
	r.broadcast(&protocol.LeaveGameEvent{UID: uid})
	r.cancelCountdown()
}

func (r *Room) startable() bool {
	return !r.game.Playing() && r.game.PlayerCount() >= game.MinPlayers && r.game.CanStart()
}

func (r *Room) requestStart(uid uint16) {
	if !r.game.IsPlayer(uid) || r.countdown != nil || !r.startable() {
		return
	}
	r.countdown = r.after(r.cfg.Countdown, r.countdownExpired)
	r.broadcast(&protocol.StartCountdownEvent{Armed: true, Seconds: countdownSeconds(r.cfg.Countdown)})
	r.log.WithField("uid", uid).Debug("Start countdown armed")
}

// cancelCountdown stops an armed countdown and tells the room. It is a no-op
// when nothing is armed.
func (r *Room) cancelCountdown() {
	if r.countdown == nil {
		return
	}
	r.countdown()
	r.countdown = nil
	r.broadcast(&protocol.StartCountdownEvent{})
}

func (r *Room) countdownExpired() {
	r.countdown = nil
	if !r.startable() {
		r.log.Debug("Start preconditions no longer hold at countdown expiry")
		r.broadcast(&protocol.StartCountdownEvent{})
		return
	}

	r.matchID = uuid.New()
	r.actionIndex = 0
	r.startedAt = time.Now()
	r.matchNames = make(map[uint16]string)
	for _, uid := range r.joined {
		if r.game.IsPlayer(uid) {
			r.matchNames[uid] = r.members[uid].Name()
		}
	}
	r.log.WithFields(logrus.Fields{"match_id": r.matchID, "players": r.game.PlayerCount()}).Info("Starting match")
	r.game.Start()
}

func countdownSeconds(d time.Duration) uint8 {
	secs := (d + time.Second - 1) / time.Second
	if secs > 255 {
		return 255
	}
	return uint8(secs)
}

func (r *Room) chat(uid, target uint16, message string) {
	if _, ok := r.members[uid]; !ok {
		return
	}
	if target == 0 {
		r.broadcast(&protocol.ChatEvent{UID: uid, Message: message})
		return
	}
	ev := &protocol.ChatEvent{UID: uid, Message: message, Hidden: true}
	r.send(uid, ev)
	if target != uid {
		r.send(target, ev)
	}
}
