// internal/game/game.go
package game

import (
	"time"

	"github.com/jason-s-yu/meowgames/internal/protocol"
	"github.com/sirupsen/logrus"
)

// Env is the room as seen by a game engine. Every method is called from the
// room's goroutine, and callbacks passed to After run there too.
type Env interface {
	// Broadcast sends ev to every room member except the listed UIDs.
	Broadcast(ev protocol.Event, except ...uint16)
	// Send delivers ev to a single member.
	Send(uid uint16, ev protocol.Event)
	// Members lists every user in the room, players and spectators alike.
	Members() []uint16
	// After schedules fn on the room goroutine. The returned func cancels it;
	// a cancelled callback never runs.
	After(d time.Duration, fn func()) (cancel func())
	// CountingDown reports whether a start countdown is armed.
	CountingDown() bool
	// Record forwards a game action to the historian.
	Record(actor uint16, action string, payload map[string]interface{})
	// Finish hands a completed match to the results store.
	Finish(result MatchResult)
	Logger() *logrus.Entry
}

// Game is the per-type state machine a room hosts. The room owns the lobby
// flow (membership, countdown) and delegates everything game specific here.
type Game interface {
	Type() protocol.GameType
	Phase() uint8
	// Playing is true between Start and the end of the match.
	Playing() bool

	IsPlayer(uid uint16) bool
	PlayerCount() int
	// AddPlayer opts uid into the next match. It fails while Playing.
	AddPlayer(uid uint16) bool
	// RemovePlayer drops uid in any phase, running the forced cleanup when a
	// match is in progress.
	RemovePlayer(uid uint16)

	// CanStart checks preconditions beyond the two-player minimum.
	CanStart() bool
	Start()

	// Handle applies a game specific request from uid. Requests that do not
	// fit the current phase are ignored.
	Handle(uid uint16, req protocol.Request)

	// Snapshot builds the INIT message for viewer.
	Snapshot(viewer uint16, users []protocol.UserInfo) *protocol.InitEvent
}

// MinPlayers is the smallest table either game can start with.
const MinPlayers = 2

// ForceEnd tells the room a match was aborted because too few players remain.
func ForceEnd(env Env, gameType protocol.GameType) {
	env.Broadcast(&protocol.EndEvent{Forced: true})
	env.Record(0, "end", map[string]interface{}{"forced": true})
	env.Finish(MatchResult{GameType: gameType, Forced: true, EndedAt: time.Now()})
}
