// internal/protocol/events.go
package protocol

import "fmt"

// Event is a server message. Events are immutable once built and may be
// encoded once and fanned out to many connections.
type Event interface {
	Type() ServerType
	encode(w *Writer)
	decode(r *Reader)
}

type ConnectEvent struct {
	UID  uint16
	Name string
}

type DisconnectEvent struct{ UID uint16 }

type NameEvent struct {
	UID  uint16
	Name string
}

type JoinGameEvent struct{ UID uint16 }
type LeaveGameEvent struct{ UID uint16 }

// StartCountdownEvent arms (Armed=true) or cancels the start countdown.
type StartCountdownEvent struct {
	Armed   bool
	Seconds uint8
}

type StartEvent struct{}

type GameStateEvent struct{ State uint8 }

// PlayerOrderEvent moves the turn pointer. The full order is included only
// when HasOrder is set.
type PlayerOrderEvent struct {
	Index    uint8
	HasOrder bool
	Order    []uint16
}

// QuestionEvent announces a question. Concealed events go to the question's
// owner and carry no text.
type QuestionEvent struct {
	UID       uint16
	Locked    bool
	Question  string
	Concealed bool
}

// SuccessEvent reveals a finished player's question. Round is -1 for a give-up.
type SuccessEvent struct {
	UID    uint16
	Round  int16
	Answer string
}

type GuessEvent struct{ Guess string }

type VoteEvent struct {
	UID  uint16
	Vote Vote
}

type GuessAgainEvent struct{}

type GuessRecordEvent struct {
	UID    uint16
	Guess  string
	Result bool
}

// RankEntry is one row of a finished Guess-Word ranking.
type RankEntry struct {
	UID   uint16
	Round int16
	Rank  uint8
}

// EndEvent closes a game. Forced is set when the game was aborted because too
// few players remained.
type EndEvent struct {
	Forced  bool
	Success bool
	Ranking []RankEntry
}

type ChatEvent struct {
	UID     uint16
	Message string
	Hidden  bool
}

type SkipGuessEvent struct{ UID uint16 }

type VersionEvent struct{ Version uint32 }

// RoomIDEvent carries a positive room id, or one of the RoomID* sentinels.
type RoomIDEvent struct{ RoomID int32 }

type SettingsEvent struct {
	MaxNumber  uint16
	GroupCount uint8
	PerPlayer  uint8
}

type UIDEvent struct{ UID uint16 }

// PlayerHand lists the numbers one player holds.
type PlayerHand struct {
	UID     uint16
	Numbers []uint16
}

// PlayerNumbersEvent either updates the receiver's own hand (All=false) or
// reveals the listed hands (All=true).
type PlayerNumbersEvent struct {
	All     bool
	Numbers []uint16
	Hands   []PlayerHand
}

type PoseNumberEvent struct {
	UID    uint16
	Number uint16
}

type UrgentPlayerEvent struct {
	UID    uint16
	Urgent bool
}

func (*InitEvent) Type() ServerType           { return ServerInit }
func (*ConnectEvent) Type() ServerType        { return ServerConnect }
func (*DisconnectEvent) Type() ServerType     { return ServerDisconnect }
func (*NameEvent) Type() ServerType           { return ServerName }
func (*JoinGameEvent) Type() ServerType       { return ServerJoinGame }
func (*LeaveGameEvent) Type() ServerType      { return ServerLeaveGame }
func (*StartCountdownEvent) Type() ServerType { return ServerStartCountdown }
func (*StartEvent) Type() ServerType          { return ServerStart }
func (*GameStateEvent) Type() ServerType      { return ServerGameState }
func (*PlayerOrderEvent) Type() ServerType    { return ServerPlayerOrder }
func (*QuestionEvent) Type() ServerType       { return ServerQuestion }
func (*SuccessEvent) Type() ServerType        { return ServerSuccess }
func (*GuessEvent) Type() ServerType          { return ServerGuess }
func (*VoteEvent) Type() ServerType           { return ServerVote }
func (*GuessAgainEvent) Type() ServerType     { return ServerGuessAgain }
func (*GuessRecordEvent) Type() ServerType    { return ServerGuessRecord }
func (*EndEvent) Type() ServerType            { return ServerEnd }
func (*ChatEvent) Type() ServerType           { return ServerChat }
func (*SkipGuessEvent) Type() ServerType      { return ServerSkipGuess }
func (*VersionEvent) Type() ServerType        { return ServerVersion }
func (*RoomIDEvent) Type() ServerType         { return ServerRoomID }
func (*SettingsEvent) Type() ServerType       { return ServerSettings }
func (*UIDEvent) Type() ServerType            { return ServerUID }
func (*PlayerNumbersEvent) Type() ServerType  { return ServerPlayerNumbers }
func (*PoseNumberEvent) Type() ServerType     { return ServerPoseNumber }
func (*UrgentPlayerEvent) Type() ServerType   { return ServerUrgentPlayer }

func (m *ConnectEvent) encode(w *Writer) {
	w.Uint16(m.UID)
	w.String(m.Name)
}

func (m *ConnectEvent) decode(r *Reader) {
	m.UID = r.Uint16()
	m.Name = r.String()
}

func (m *DisconnectEvent) encode(w *Writer) { w.Uint16(m.UID) }
func (m *DisconnectEvent) decode(r *Reader) { m.UID = r.Uint16() }

func (m *NameEvent) encode(w *Writer) {
	w.Uint16(m.UID)
	w.String(m.Name)
}

func (m *NameEvent) decode(r *Reader) {
	m.UID = r.Uint16()
	m.Name = r.String()
}

func (m *JoinGameEvent) encode(w *Writer)  { w.Uint16(m.UID) }
func (m *JoinGameEvent) decode(r *Reader)  { m.UID = r.Uint16() }
func (m *LeaveGameEvent) encode(w *Writer) { w.Uint16(m.UID) }
func (m *LeaveGameEvent) decode(r *Reader) { m.UID = r.Uint16() }

func (m *StartCountdownEvent) encode(w *Writer) {
	w.Bool(m.Armed)
	if m.Armed {
		w.Uint8(m.Seconds)
	}
}

func (m *StartCountdownEvent) decode(r *Reader) {
	m.Armed = r.Bool()
	if m.Armed {
		m.Seconds = r.Uint8()
	}
}

func (*StartEvent) encode(*Writer) {}
func (*StartEvent) decode(*Reader) {}

func (m *GameStateEvent) encode(w *Writer) { w.Uint8(m.State) }
func (m *GameStateEvent) decode(r *Reader) { m.State = r.Uint8() }

func (m *PlayerOrderEvent) encode(w *Writer) {
	w.Uint8(m.Index)
	w.Bool(m.HasOrder)
	if m.HasOrder {
		writeUint16s(w, m.Order)
	}
}

func (m *PlayerOrderEvent) decode(r *Reader) {
	m.Index = r.Uint8()
	m.HasOrder = r.Bool()
	if m.HasOrder {
		m.Order = readUint16s(r)
	}
}

func (m *QuestionEvent) encode(w *Writer) {
	w.Uint16(m.UID)
	w.Bool(m.Locked)
	if !m.Concealed {
		w.String(m.Question)
	}
}

func (m *QuestionEvent) decode(r *Reader) {
	m.UID = r.Uint16()
	m.Locked = r.Bool()
	if r.Remaining() == 0 {
		m.Concealed = true
		return
	}
	m.Question = r.String()
}

func (m *SuccessEvent) encode(w *Writer) {
	w.Uint16(m.UID)
	w.Int16(m.Round)
	w.String(m.Answer)
}

func (m *SuccessEvent) decode(r *Reader) {
	m.UID = r.Uint16()
	m.Round = r.Int16()
	m.Answer = r.String()
}

func (m *GuessEvent) encode(w *Writer) { w.String(m.Guess) }
func (m *GuessEvent) decode(r *Reader) { m.Guess = r.String() }

func (m *VoteEvent) encode(w *Writer) {
	w.Uint16(m.UID)
	w.Uint8(uint8(m.Vote))
}

func (m *VoteEvent) decode(r *Reader) {
	m.UID = r.Uint16()
	m.Vote = Vote(r.Uint8())
}

func (*GuessAgainEvent) encode(*Writer) {}
func (*GuessAgainEvent) decode(*Reader) {}

func (m *GuessRecordEvent) encode(w *Writer) {
	w.Uint16(m.UID)
	w.String(m.Guess)
	w.Bool(m.Result)
}

func (m *GuessRecordEvent) decode(r *Reader) {
	m.UID = r.Uint16()
	m.Guess = r.String()
	m.Result = r.Bool()
}

func (m *EndEvent) encode(w *Writer) {
	w.Bool(m.Forced)
	w.Bool(m.Success)
	w.Count(len(m.Ranking))
	for _, e := range m.Ranking {
		w.Uint16(e.UID)
		w.Int16(e.Round)
		w.Uint8(e.Rank)
	}
}

// decode accepts the short form that carries only the forced flag.
func (m *EndEvent) decode(r *Reader) {
	m.Forced = r.Bool()
	if r.Remaining() == 0 {
		return
	}
	m.Success = r.Bool()
	n := int(r.Uint8())
	for i := 0; i < n && r.Err() == nil; i++ {
		m.Ranking = append(m.Ranking, RankEntry{UID: r.Uint16(), Round: r.Int16(), Rank: r.Uint8()})
	}
}

func (m *ChatEvent) encode(w *Writer) {
	w.Uint16(m.UID)
	w.String(m.Message)
	w.Bool(m.Hidden)
}

func (m *ChatEvent) decode(r *Reader) {
	m.UID = r.Uint16()
	m.Message = r.String()
	m.Hidden = r.Bool()
}

func (m *SkipGuessEvent) encode(w *Writer) { w.Uint16(m.UID) }
func (m *SkipGuessEvent) decode(r *Reader) { m.UID = r.Uint16() }

func (m *VersionEvent) encode(w *Writer) { w.Uint32(m.Version) }
func (m *VersionEvent) decode(r *Reader) { m.Version = r.Uint32() }

func (m *RoomIDEvent) encode(w *Writer) { w.Int32(m.RoomID) }
func (m *RoomIDEvent) decode(r *Reader) { m.RoomID = r.Int32() }

func (m *SettingsEvent) encode(w *Writer) {
	w.Uint16(m.MaxNumber)
	w.Uint8(m.GroupCount)
	w.Uint8(m.PerPlayer)
}

func (m *SettingsEvent) decode(r *Reader) {
	m.MaxNumber = r.Uint16()
	m.GroupCount = r.Uint8()
	m.PerPlayer = r.Uint8()
}

func (m *UIDEvent) encode(w *Writer) { w.Uint16(m.UID) }
func (m *UIDEvent) decode(r *Reader) { m.UID = r.Uint16() }

func (m *PlayerNumbersEvent) encode(w *Writer) {
	w.Bool(m.All)
	if !m.All {
		writeUint16s(w, m.Numbers)
		return
	}
	w.Count(len(m.Hands))
	for _, h := range m.Hands {
		w.Uint16(h.UID)
		writeUint16s(w, h.Numbers)
	}
}

func (m *PlayerNumbersEvent) decode(r *Reader) {
	m.All = r.Bool()
	if !m.All {
		m.Numbers = readUint16s(r)
		return
	}
	n := int(r.Uint8())
	for i := 0; i < n && r.Err() == nil; i++ {
		h := PlayerHand{UID: r.Uint16()}
		h.Numbers = readUint16s(r)
		m.Hands = append(m.Hands, h)
	}
}

func (m *PoseNumberEvent) encode(w *Writer) {
	w.Uint16(m.UID)
	w.Uint16(m.Number)
}

func (m *PoseNumberEvent) decode(r *Reader) {
	m.UID = r.Uint16()
	m.Number = r.Uint16()
}

func (m *UrgentPlayerEvent) encode(w *Writer) {
	w.Uint16(m.UID)
	w.Bool(m.Urgent)
}

func (m *UrgentPlayerEvent) decode(r *Reader) {
	m.UID = r.Uint16()
	m.Urgent = r.Bool()
}

func writeUint16s(w *Writer, vs []uint16) {
	w.Count(len(vs))
	for _, v := range vs {
		w.Uint16(v)
	}
}

func readUint16s(r *Reader) []uint16 {
	n := int(r.Uint8())
	if n == 0 {
		return nil
	}
	vs := make([]uint16, 0, n)
	for i := 0; i < n && r.Err() == nil; i++ {
		vs = append(vs, r.Uint16())
	}
	return vs
}

func newEvent(t ServerType) Event {
	switch t {
	case ServerInit:
		return &InitEvent{}
	case ServerConnect:
		return &ConnectEvent{}
	case ServerDisconnect:
		return &DisconnectEvent{}
	case ServerName:
		return &NameEvent{}
	case ServerJoinGame:
		return &JoinGameEvent{}
	case ServerLeaveGame:
		return &LeaveGameEvent{}
	case ServerStartCountdown:
		return &StartCountdownEvent{}
	case ServerStart:
		return &StartEvent{}
	case ServerGameState:
		return &GameStateEvent{}
	case ServerPlayerOrder:
		return &PlayerOrderEvent{}
	case ServerQuestion:
		return &QuestionEvent{}
	case ServerSuccess:
		return &SuccessEvent{}
	case ServerGuess:
		return &GuessEvent{}
	case ServerVote:
		return &VoteEvent{}
	case ServerGuessAgain:
		return &GuessAgainEvent{}
	case ServerGuessRecord:
		return &GuessRecordEvent{}
	case ServerEnd:
		return &EndEvent{}
	case ServerChat:
		return &ChatEvent{}
	case ServerSkipGuess:
		return &SkipGuessEvent{}
	case ServerVersion:
		return &VersionEvent{}
	case ServerRoomID:
		return &RoomIDEvent{}
	case ServerSettings:
		return &SettingsEvent{}
	case ServerUID:
		return &UIDEvent{}
	case ServerPlayerNumbers:
		return &PlayerNumbersEvent{}
	case ServerPoseNumber:
		return &PoseNumberEvent{}
	case ServerUrgentPlayer:
		return &UrgentPlayerEvent{}
	}
	return nil
}

// EncodeEvent serializes ev into a packet.
func EncodeEvent(ev Event) (Packet, error) {
	var w Writer
	ev.encode(&w)
	if err := w.Err(); err != nil {
		return Packet{}, fmt.Errorf("encode %s: %w", ev.Type(), err)
	}
	return Packet{Type: byte(ev.Type()), Data: w.Bytes()}, nil
}

// DecodeEvent parses a server packet. Trailing bytes are tolerated the same
// way the game client tolerates them.
func DecodeEvent(p Packet) (Event, error) {
	ev := newEvent(ServerType(p.Type))
	if ev == nil {
		return nil, fmt.Errorf("%w: %w %d", ErrMalformed, ErrUnknownType, p.Type)
	}
	r := NewReader(p.Data)
	ev.decode(r)
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformed, ev.Type(), err)
	}
	return ev, nil
}
