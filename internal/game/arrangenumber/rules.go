// internal/game/arrangenumber/rules.go
package arrangenumber

// Pose describes a number just played, together with the play before it.
type Pose struct {
	UID         uint16
	Number      uint16
	PreviousUID uint16
	Previous    uint16
}

// PoseRule decides whether a pose keeps the table alive. others holds every
// other player's remaining hand, each sorted ascending.
type PoseRule func(p Pose, others map[uint16][]uint16) bool

// LowestOutstanding accepts a pose only if no other player still holds a
// smaller number. Equal numbers are fine, so duplicate groups never bust on
// their own.
func LowestOutstanding(p Pose, others map[uint16][]uint16) bool {
	for _, hand := range others {
		if len(hand) > 0 && hand[0] < p.Number {
			return false
		}
	}
	return true
}
