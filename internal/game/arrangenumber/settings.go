// internal/game/arrangenumber/settings.go
package arrangenumber

import "github.com/jason-s-yu/meowgames/internal/protocol"

const (
	DefaultMaxNumber  = 100
	DefaultGroupCount = 1
	DefaultPerPlayer  = 1

	MinMaxNumber  = 10
	MaxMaxNumber  = 1000
	MaxNumberStep = 10
	MaxGroupCount = 50
	MinPerPlayer  = 1
	MaxPerPlayer  = 20
)

// Settings controls how numbers are dealt. GroupCount 0 means every number
// may appear any number of times.
type Settings struct {
	MaxNumber  int
	GroupCount int
	PerPlayer  int
}

func DefaultSettings() Settings {
	return Settings{MaxNumber: DefaultMaxNumber, GroupCount: DefaultGroupCount, PerPlayer: DefaultPerPlayer}
}

func ValidMaxNumber(v int) bool {
	return v >= MinMaxNumber && v <= MaxMaxNumber && v%MaxNumberStep == 0
}

func ValidGroupCount(v int) bool { return v >= 0 && v <= MaxGroupCount }

func ValidPerPlayer(v int) bool { return v >= MinPerPlayer && v <= MaxPerPlayer }

// Supply is how many numbers the pool holds. unlimited is set when
// GroupCount is 0.
func (s Settings) Supply() (n int, unlimited bool) {
	if s.GroupCount == 0 {
		return 0, true
	}
	return s.MaxNumber * s.GroupCount, false
}

// Allows reports whether a table of the given size can be dealt.
func (s Settings) Allows(players int) bool {
	supply, unlimited := s.Supply()
	return unlimited || players*s.PerPlayer <= supply
}

func (s Settings) event() *protocol.SettingsEvent {
	return &protocol.SettingsEvent{
		MaxNumber:  uint16(s.MaxNumber),
		GroupCount: uint8(s.GroupCount),
		PerPlayer:  uint8(s.PerPlayer),
	}
}
