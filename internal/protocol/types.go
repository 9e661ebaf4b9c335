// internal/protocol/types.go
package protocol

import "fmt"

// ClientType is the 1-byte tag of a message sent by a client.
type ClientType byte

const (
	ClientName ClientType = iota
	ClientJoinGame
	ClientLeaveGame
	ClientStart
	ClientCancelStart
	ClientQuestion
	ClientGuess
	ClientVote
	ClientChat
	ClientGiveUp
	ClientVersion
	ClientCreateRoom
	ClientJoinRoom
	ClientLeaveRoom
	ClientSetMaxNumber
	ClientSetNumberGroupCount
	ClientSetNumberPerPlayer
	ClientPoseNumber
	ClientSetUrgent
)

var clientTypeNames = [...]string{
	"NAME", "JOIN_GAME", "LEAVE_GAME", "START", "CANCEL_START", "QUESTION", "GUESS", "VOTE",
	"CHAT", "GIVE_UP", "VERSION", "CREATE_ROOM", "JOIN_ROOM", "LEAVE_ROOM", "SET_MAX_NUMBER",
	"SET_NUMBER_GROUP_COUNT", "SET_NUMBER_PER_PLAYER", "POSE_NUMBER", "SET_URGENT",
}

func (t ClientType) String() string {
	if int(t) < len(clientTypeNames) {
		return clientTypeNames[t]
	}
	return fmt.Sprintf("CLIENT(%d)", byte(t))
}

// ServerType is the 1-byte tag of a message sent by the server.
type ServerType byte

const (
	ServerInit ServerType = iota
	ServerConnect
	ServerDisconnect
	ServerName
	ServerJoinGame
	ServerLeaveGame
	ServerStartCountdown
	ServerStart
	ServerGameState
	ServerPlayerOrder
	ServerQuestion
	ServerSuccess
	ServerGuess
	ServerVote
	ServerGuessAgain
	ServerGuessRecord
	ServerEnd
	ServerChat
	ServerSkipGuess
	ServerVersion
	ServerRoomID
	ServerSettings
	ServerUID
	ServerPlayerNumbers
	ServerPoseNumber
	ServerUrgentPlayer
)

var serverTypeNames = [...]string{
	"INIT", "CONNECT", "DISCONNECT", "NAME", "JOIN_GAME", "LEAVE_GAME", "START_COUNTDOWN", "START",
	"GAMESTATE", "PLAYER_ORDER", "QUESTION", "SUCCESS", "GUESS", "VOTE", "GUESS_AGAIN", "GUESS_RECORD",
	"END", "CHAT", "SKIP_GUESS", "VERSION", "ROOM_ID", "SETTINGS", "UID", "PLAYER_NUMBERS",
	"POSE_NUMBER", "URGENT_PLAYER",
}

func (t ServerType) String() string {
	if int(t) < len(serverTypeNames) {
		return serverTypeNames[t]
	}
	return fmt.Sprintf("SERVER(%d)", byte(t))
}

// GameType selects the minigame a room plays. It is fixed at room creation.
type GameType byte

const (
	GameGuessWord GameType = iota
	GameArrangeNumber
)

// Valid reports whether t names a playable game.
func (t GameType) Valid() bool {
	return t == GameGuessWord || t == GameArrangeNumber
}

func (t GameType) String() string {
	switch t {
	case GameGuessWord:
		return "guess_word"
	case GameArrangeNumber:
		return "arrange_number"
	}
	return fmt.Sprintf("game(%d)", byte(t))
}

// Guess-Word phases.
const (
	GuessWordWaiting byte = iota
	GuessWordPreparing
	GuessWordGuessing
	GuessWordVoting
)

// Arrange-Number phases.
const (
	ArrangeNumberWaiting byte = iota
	ArrangeNumberPlaying
)

// Vote is a ballot cast on a pending guess.
type Vote byte

const (
	VoteAbstain Vote = iota
	VoteAgree
	VoteDeny
)

// Valid reports whether v is one of the three ballot options.
func (v Vote) Valid() bool { return v <= VoteDeny }

// Room ID sentinels carried by ROOM_ID when a create or join fails.
const (
	RoomIDServerFull int32 = -1
	RoomIDNotFound   int32 = -2
	RoomIDRoomFull   int32 = -3
)

// MaxStringLen is the largest byte length a length-prefixed string may have.
const MaxStringLen = 255
