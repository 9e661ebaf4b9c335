// internal/game/outcome.go
package game

import (
	"sort"

	"github.com/jason-s-yu/meowgames/internal/protocol"
)

// OutcomeKind tells whether a Guess-Word player is still guessing.
type OutcomeKind uint8

const (
	InProgress OutcomeKind = iota
	Solved
	GaveUp
)

// Outcome is a player's result. Round is meaningful only when Kind is Solved.
type Outcome struct {
	Kind  OutcomeKind
	Round int
}

func SolvedIn(round int) Outcome { return Outcome{Kind: Solved, Round: round} }
func GiveUp() Outcome            { return Outcome{Kind: GaveUp} }

// Finished reports whether the player no longer takes turns.
func (o Outcome) Finished() bool { return o.Kind != InProgress }

// WireRound is the int16 the client expects: the round for a solve, -1 for a
// give-up, 0 while in progress.
func (o Outcome) WireRound() int16 {
	switch o.Kind {
	case Solved:
		return int16(o.Round)
	case GaveUp:
		return -1
	}
	return 0
}

// Standing is one player's outcome fed into Rank.
type Standing struct {
	UID     uint16
	Outcome Outcome
}

// Rank orders standings by ascending solve round with give-ups (and anyone
// unfinished) last. Equal outcomes share a rank, and the following rank skips
// accordingly (1, 1, 3). Input order breaks ties in the listing.
func Rank(standings []Standing) []protocol.RankEntry {
	sorted := make([]Standing, len(standings))
	copy(sorted, standings)

	key := func(o Outcome) (int, int) {
		if o.Kind == Solved {
			return 0, o.Round
		}
		return 1, 0
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		gi, ri := key(sorted[i].Outcome)
		gj, rj := key(sorted[j].Outcome)
		if gi != gj {
			return gi < gj
		}
		return ri < rj
	})

	out := make([]protocol.RankEntry, len(sorted))
	rank := 0
	for i, s := range sorted {
		if i == 0 {
			rank = 1
		} else {
			pg, pr := key(sorted[i-1].Outcome)
			g, r := key(s.Outcome)
			if pg != g || pr != r {
				rank = i + 1
			}
		}
		out[i] = protocol.RankEntry{UID: s.UID, Round: s.Outcome.WireRound(), Rank: uint8(rank)}
	}
	return out
}
