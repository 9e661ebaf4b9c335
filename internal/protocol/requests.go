// internal/protocol/requests.go
package protocol

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformed marks a message whose layout does not match its type.
	// Receiving one leaves the connection desynchronized.
	ErrMalformed = errors.New("protocol: malformed message")
	// ErrUnknownType marks a type tag outside the known range.
	ErrUnknownType = errors.New("protocol: unknown message type")
)

// Request is a decoded client message.
type Request interface {
	Type() ClientType
	encode(w *Writer)
	decode(r *Reader)
}

// NameRequest sets the sender's display name. The payload is raw UTF-8.
type NameRequest struct{ Name string }

type JoinGameRequest struct{}
type LeaveGameRequest struct{}
type StartRequest struct{}
type CancelStartRequest struct{}
type GiveUpRequest struct{}
type LeaveRoomRequest struct{}
type PoseNumberRequest struct{}

// QuestionRequest assigns a question to the next player in turn order.
type QuestionRequest struct {
	Locked   bool
	Question string
}

// GuessRequest submits a guess. An empty guess is a pass.
type GuessRequest struct{ Guess string }

// Pass reports whether the guess is the zero-length pass signal.
func (r *GuessRequest) Pass() bool { return len(r.Guess) == 0 }

type VoteRequest struct{ Vote Vote }

// ChatRequest sends a message. Target 0 is public; any other value makes the
// message hidden between sender and target.
type ChatRequest struct {
	Target  uint16
	Message string
}

type VersionRequest struct{ Version uint32 }

type CreateRoomRequest struct{ GameType GameType }

type JoinRoomRequest struct{ RoomID uint32 }

type SetMaxNumberRequest struct{ Value uint16 }
type SetNumberGroupCountRequest struct{ Value uint8 }
type SetNumberPerPlayerRequest struct{ Value uint8 }

type SetUrgentRequest struct{ Urgent bool }

func (*NameRequest) Type() ClientType                { return ClientName }
func (*JoinGameRequest) Type() ClientType            { return ClientJoinGame }
func (*LeaveGameRequest) Type() ClientType           { return ClientLeaveGame }
func (*StartRequest) Type() ClientType               { return ClientStart }
func (*CancelStartRequest) Type() ClientType         { return ClientCancelStart }
func (*QuestionRequest) Type() ClientType            { return ClientQuestion }
func (*GuessRequest) Type() ClientType               { return ClientGuess }
func (*VoteRequest) Type() ClientType                { return ClientVote }
func (*ChatRequest) Type() ClientType                { return ClientChat }
func (*GiveUpRequest) Type() ClientType              { return ClientGiveUp }
func (*VersionRequest) Type() ClientType             { return ClientVersion }
func (*CreateRoomRequest) Type() ClientType          { return ClientCreateRoom }
func (*JoinRoomRequest) Type() ClientType            { return ClientJoinRoom }
func (*LeaveRoomRequest) Type() ClientType           { return ClientLeaveRoom }
func (*SetMaxNumberRequest) Type() ClientType        { return ClientSetMaxNumber }
func (*SetNumberGroupCountRequest) Type() ClientType { return ClientSetNumberGroupCount }
func (*SetNumberPerPlayerRequest) Type() ClientType  { return ClientSetNumberPerPlayer }
func (*PoseNumberRequest) Type() ClientType          { return ClientPoseNumber }
func (*SetUrgentRequest) Type() ClientType           { return ClientSetUrgent }

func (m *NameRequest) encode(w *Writer) { w.Raw(m.Name) }
func (m *NameRequest) decode(r *Reader) { m.Name = r.Rest() }

func (*JoinGameRequest) encode(*Writer)    {}
func (*JoinGameRequest) decode(*Reader)    {}
func (*LeaveGameRequest) encode(*Writer)   {}
func (*LeaveGameRequest) decode(*Reader)   {}
func (*StartRequest) encode(*Writer)       {}
func (*StartRequest) decode(*Reader)       {}
func (*CancelStartRequest) encode(*Writer) {}
func (*CancelStartRequest) decode(*Reader) {}
func (*GiveUpRequest) encode(*Writer)      {}
func (*GiveUpRequest) decode(*Reader)      {}
func (*LeaveRoomRequest) encode(*Writer)   {}
func (*LeaveRoomRequest) decode(*Reader)   {}
func (*PoseNumberRequest) encode(*Writer)  {}
func (*PoseNumberRequest) decode(*Reader)  {}

func (m *QuestionRequest) encode(w *Writer) {
	w.Bool(m.Locked)
	w.Raw(m.Question)
}

func (m *QuestionRequest) decode(r *Reader) {
	m.Locked = r.Bool()
	m.Question = r.Rest()
}

func (m *GuessRequest) encode(w *Writer) { w.Raw(m.Guess) }
func (m *GuessRequest) decode(r *Reader) { m.Guess = r.Rest() }

func (m *VoteRequest) encode(w *Writer) { w.Uint8(uint8(m.Vote)) }
func (m *VoteRequest) decode(r *Reader) { m.Vote = Vote(r.Uint8()) }

func (m *ChatRequest) encode(w *Writer) {
	w.Uint16(m.Target)
	w.Raw(m.Message)
}

func (m *ChatRequest) decode(r *Reader) {
	m.Target = r.Uint16()
	m.Message = r.Rest()
}

func (m *VersionRequest) encode(w *Writer) { w.Uint32(m.Version) }
func (m *VersionRequest) decode(r *Reader) { m.Version = r.Uint32() }

func (m *CreateRoomRequest) encode(w *Writer) { w.Uint8(uint8(m.GameType)) }
func (m *CreateRoomRequest) decode(r *Reader) { m.GameType = GameType(r.Uint8()) }

func (m *JoinRoomRequest) encode(w *Writer) { w.Uint32(m.RoomID) }
func (m *JoinRoomRequest) decode(r *Reader) { m.RoomID = r.Uint32() }

func (m *SetMaxNumberRequest) encode(w *Writer) { w.Uint16(m.Value) }
func (m *SetMaxNumberRequest) decode(r *Reader) { m.Value = r.Uint16() }

func (m *SetNumberGroupCountRequest) encode(w *Writer) { w.Uint8(m.Value) }
func (m *SetNumberGroupCountRequest) decode(r *Reader) { m.Value = r.Uint8() }

func (m *SetNumberPerPlayerRequest) encode(w *Writer) { w.Uint8(m.Value) }
func (m *SetNumberPerPlayerRequest) decode(r *Reader) { m.Value = r.Uint8() }

func (m *SetUrgentRequest) encode(w *Writer) { w.Bool(m.Urgent) }
func (m *SetUrgentRequest) decode(r *Reader) { m.Urgent = r.Bool() }

func newRequest(t ClientType) Request {
	switch t {
	case ClientName:
		return &NameRequest{}
	case ClientJoinGame:
		return &JoinGameRequest{}
	case ClientLeaveGame:
		return &LeaveGameRequest{}
	case ClientStart:
		return &StartRequest{}
	case ClientCancelStart:
		return &CancelStartRequest{}
	case ClientQuestion:
		return &QuestionRequest{}
	case ClientGuess:
		return &GuessRequest{}
	case ClientVote:
		return &VoteRequest{}
	case ClientChat:
		return &ChatRequest{}
	case ClientGiveUp:
		return &GiveUpRequest{}
	case ClientVersion:
		return &VersionRequest{}
	case ClientCreateRoom:
		return &CreateRoomRequest{}
	case ClientJoinRoom:
		return &JoinRoomRequest{}
	case ClientLeaveRoom:
		return &LeaveRoomRequest{}
	case ClientSetMaxNumber:
		return &SetMaxNumberRequest{}
	case ClientSetNumberGroupCount:
		return &SetNumberGroupCountRequest{}
	case ClientSetNumberPerPlayer:
		return &SetNumberPerPlayerRequest{}
	case ClientPoseNumber:
		return &PoseNumberRequest{}
	case ClientSetUrgent:
		return &SetUrgentRequest{}
	}
	return nil
}

// DecodeRequest parses a client packet. Any error wraps ErrMalformed.
func DecodeRequest(p Packet) (Request, error) {
	req := newRequest(ClientType(p.Type))
	if req == nil {
		return nil, fmt.Errorf("%w: %w %d", ErrMalformed, ErrUnknownType, p.Type)
	}
	r := NewReader(p.Data)
	req.decode(r)
	if err := r.Done(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformed, req.Type(), err)
	}
	return req, nil
}

// EncodeRequest builds the packet a client would send for req.
func EncodeRequest(req Request) (Packet, error) {
	var w Writer
	req.encode(&w)
	if err := w.Err(); err != nil {
		return Packet{}, fmt.Errorf("encode %s: %w", req.Type(), err)
	}
	return Packet{Type: byte(req.Type()), Data: w.Bytes()}, nil
}
