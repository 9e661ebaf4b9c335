// internal/protocol/messages_test.go
package protocol

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestRoundTrip(t *testing.T) {
	long := strings.Repeat("字", 85) // 255 bytes

	requests := []Request{
		&NameRequest{Name: "Alice"},
		&JoinGameRequest{},
		&LeaveGameRequest{},
		&StartRequest{},
		&CancelStartRequest{},
		&QuestionRequest{Locked: true, Question: "蘋果"},
		&QuestionRequest{Locked: false, Question: long},
		&GuessRequest{Guess: "fruit"},
		&GuessRequest{},
		&VoteRequest{Vote: VoteDeny},
		&ChatRequest{Target: 7, Message: "hi"},
		&ChatRequest{Target: 0, Message: long},
		&GiveUpRequest{},
		&VersionRequest{Version: 3},
		&CreateRoomRequest{GameType: GameArrangeNumber},
		&JoinRoomRequest{RoomID: 0xfffffffe},
		&LeaveRoomRequest{},
		&SetMaxNumberRequest{Value: 10},
		&SetMaxNumberRequest{Value: 1000},
		&SetNumberGroupCountRequest{Value: 0},
		&SetNumberGroupCountRequest{Value: 50},
		&SetNumberPerPlayerRequest{Value: 1},
		&SetNumberPerPlayerRequest{Value: 20},
		&PoseNumberRequest{},
		&SetUrgentRequest{Urgent: true},
	}

	for _, req := range requests {
		t.Run(req.Type().String(), func(t *testing.T) {
			p, err := EncodeRequest(req)
			require.NoError(t, err)
			assert.Equal(t, byte(req.Type()), p.Type)

			got, err := DecodeRequest(p)
			require.NoError(t, err)
			assert.Equal(t, req, got)
		})
	}
}

func TestEmptyGuessIsPass(t *testing.T) {
	req, err := DecodeRequest(Packet{Type: byte(ClientGuess)})
	require.NoError(t, err)
	guess, ok := req.(*GuessRequest)
	require.True(t, ok)
	assert.True(t, guess.Pass())
}

func TestDecodeRequestMalformed(t *testing.T) {
	cases := []struct {
		name string
		p    Packet
	}{
		{"unknown type", Packet{Type: 200}},
		{"truncated version", Packet{Type: byte(ClientVersion), Data: []byte{3, 0}}},
		{"trailing version", Packet{Type: byte(ClientVersion), Data: []byte{3, 0, 0, 0, 9}}},
		{"missing vote", Packet{Type: byte(ClientVote)}},
		{"truncated chat target", Packet{Type: byte(ClientChat), Data: []byte{1}}},
		{"start with payload", Packet{Type: byte(ClientStart), Data: []byte{1}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeRequest(tc.p)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestEventRoundTrip(t *testing.T) {
	long := strings.Repeat("a", MaxStringLen)

	events := []Event{
		&UIDEvent{UID: 65535},
		&VersionEvent{Version: 3},
		&RoomIDEvent{RoomID: 42},
		&RoomIDEvent{RoomID: RoomIDNotFound},
		&ConnectEvent{UID: 1, Name: ""},
		&ConnectEvent{UID: 2, Name: long},
		&DisconnectEvent{UID: 9},
		&NameEvent{UID: 3, Name: "Alice"},
		&JoinGameEvent{UID: 4},
		&LeaveGameEvent{UID: 4},
		&StartCountdownEvent{Armed: true, Seconds: 5},
		&StartCountdownEvent{},
		&StartEvent{},
		&GameStateEvent{State: GuessWordVoting},
		&PlayerOrderEvent{Index: 1},
		&PlayerOrderEvent{Index: 0, HasOrder: true, Order: []uint16{5, 3, 9}},
		&QuestionEvent{UID: 3, Locked: true, Question: "apple"},
		&QuestionEvent{UID: 3, Locked: false, Concealed: true},
		&SuccessEvent{UID: 3, Round: 2, Answer: "apple"},
		&SuccessEvent{UID: 3, Round: -1, Answer: long},
		&GuessEvent{Guess: "fruit"},
		&VoteEvent{UID: 8, Vote: VoteAgree},
		&GuessAgainEvent{},
		&GuessRecordEvent{UID: 3, Guess: "fruit", Result: true},
		&EndEvent{Forced: true},
		&EndEvent{Success: true, Ranking: []RankEntry{{UID: 1, Round: 1, Rank: 1}, {UID: 2, Round: -1, Rank: 2}}},
		&ChatEvent{UID: 1, Message: "hi", Hidden: true},
		&SkipGuessEvent{UID: 6},
		&SettingsEvent{MaxNumber: 1000, GroupCount: 50, PerPlayer: 20},
		&SettingsEvent{MaxNumber: 10, GroupCount: 0, PerPlayer: 1},
		&PlayerNumbersEvent{Numbers: []uint16{1, 5, 99}},
		&PlayerNumbersEvent{All: true, Hands: []PlayerHand{{UID: 1, Numbers: []uint16{4}}, {UID: 2}}},
		&PoseNumberEvent{UID: 2, Number: 77},
		&UrgentPlayerEvent{UID: 2, Urgent: true},
	}

	for _, ev := range events {
		t.Run(ev.Type().String(), func(t *testing.T) {
			p, err := EncodeEvent(ev)
			require.NoError(t, err)

			got, err := DecodeEvent(p)
			require.NoError(t, err)
			assert.Equal(t, ev, got)
		})
	}
}

func TestInitRoundTrip(t *testing.T) {
	gw := &InitEvent{
		GameType: GameGuessWord,
		Users:    []UserInfo{{UID: 1, Name: "A"}, {UID: 2, Name: "B"}, {UID: 3, Name: ""}},
		GuessWord: &GuessWordSnapshot{
			Players: []GuessWordPlayer{
				{UID: 1, Question: "", History: []GuessRecord{{Guess: "animal", Result: false}}},
				{UID: 2, Question: "cat", SuccessRound: -1},
			},
			Phase:       GuessWordVoting,
			Order:       []uint16{2, 1},
			TurnIndex:   1,
			VotingGuess: "fruit",
			Votes:       []VoteEntry{{UID: 2, Vote: VoteDeny}},
		},
	}
	an := &InitEvent{
		GameType: GameArrangeNumber,
		Users:    []UserInfo{{UID: 1, Name: "A"}},
		ArrangeNumber: &ArrangeNumberSnapshot{
			Players:       []ArrangeNumberPlayer{{UID: 1, Numbers: []uint16{3, 8}, Urgent: true}},
			MaxNumber:     100,
			GroupCount:    1,
			PerPlayer:     2,
			Phase:         ArrangeNumberPlaying,
			LastUID:       1,
			CurrentNumber: 2,
		},
	}

	for _, ev := range []*InitEvent{gw, an} {
		p, err := EncodeEvent(ev)
		require.NoError(t, err)
		got, err := DecodeEvent(p)
		require.NoError(t, err)
		assert.Equal(t, ev, got)
	}
}

func TestInitKeepsLatestHistory(t *testing.T) {
	history := make([]GuessRecord, 300)
	for i := range history {
		history[i] = GuessRecord{Guess: strconv.Itoa(i), Result: i%2 == 0}
	}
	ev := &InitEvent{
		GameType: GameGuessWord,
		Users:    []UserInfo{{UID: 1, Name: "A"}},
		GuessWord: &GuessWordSnapshot{
			Players: []GuessWordPlayer{{UID: 1, Question: "", History: history}},
			Order:   []uint16{1},
		},
	}

	p, err := EncodeEvent(ev)
	require.NoError(t, err)
	got, err := DecodeEvent(p)
	require.NoError(t, err)

	hist := got.(*InitEvent).GuessWord.Players[0].History
	require.Len(t, hist, 255)
	assert.Equal(t, "45", hist[0].Guess)
	assert.Equal(t, "299", hist[254].Guess)
}

func TestEncodeEventRejectsLongString(t *testing.T) {
	_, err := EncodeEvent(&ChatEvent{UID: 1, Message: strings.Repeat("x", MaxStringLen+1)})
	assert.ErrorIs(t, err, ErrStringTooLong)
}

func TestEndEventShortForm(t *testing.T) {
	ev, err := DecodeEvent(Packet{Type: byte(ServerEnd), Data: []byte{1}})
	require.NoError(t, err)
	end := ev.(*EndEvent)
	assert.True(t, end.Forced)
	assert.False(t, end.Success)
	assert.Empty(t, end.Ranking)
}
