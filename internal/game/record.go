// internal/game/record.go
package game

import (
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/meowgames/internal/protocol"
)

// ActionRecord is one game action as shipped to the historian queue.
type ActionRecord struct {
	MatchID       uuid.UUID              `json:"match_id"`
	RoomID        int                    `json:"room_id"`
	ActionIndex   int                    `json:"action_index"`
	ActorUID      uint16                 `json:"actor_uid"`
	ActionType    string                 `json:"action_type"`
	ActionPayload map[string]interface{} `json:"action_payload"`
	Timestamp     int64                  `json:"timestamp"`
}

// PlayerResult is one player's line in a finished match.
type PlayerResult struct {
	UID    uint16 `json:"uid"`
	Name   string `json:"name"`
	Round  int16  `json:"round"`
	GaveUp bool   `json:"gave_up"`
	Rank   uint8  `json:"rank"`
}

// MatchResult summarizes a finished or aborted match. Engines fill the
// outcome fields; the room stamps identity, names and start time.
type MatchResult struct {
	ID        uuid.UUID
	RoomID    int
	GameType  protocol.GameType
	Success   bool
	Forced    bool
	StartedAt time.Time
	EndedAt   time.Time
	Players   []PlayerResult
}
