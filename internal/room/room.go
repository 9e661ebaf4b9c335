// internal/room/room.go

// Package room hosts one game table. Each Room is an actor: a single
// goroutine owns all room state and drains an inbox of joins, leaves, client
// requests and timer expiries.
package room

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/meowgames/internal/game"
	"github.com/jason-s-yu/meowgames/internal/game/arrangenumber"
	"github.com/jason-s-yu/meowgames/internal/game/guessword"
	"github.com/jason-s-yu/meowgames/internal/protocol"
	"github.com/sirupsen/logrus"
)

var (
	ErrFull          = errors.New("room is full")
	ErrClosed        = errors.New("room is closed")
	ErrAlreadyMember = errors.New("already in room")
)

const (
	DefaultMaxUsers  = 255
	DefaultCountdown = 5 * time.Second
	inboxSize        = 64
)

// Member is a connected user as the room sees it. Send must not block; a
// member that cannot keep up is expected to drop itself.
type Member interface {
	UID() uint16
	Name() string
	Send(p protocol.Packet)
}

// Hooks receive the room's side output. Both are optional and are called from
// the room goroutine, so they must return quickly.
type Hooks struct {
	Record func(game.ActionRecord)
	Finish func(game.MatchResult)
}

type Config struct {
	ID          int
	GameType    protocol.GameType
	MaxUsers    int
	Countdown   time.Duration
	IdleTimeout time.Duration
	Hooks       Hooks
	Logger      *logrus.Entry
}

// Status is a point-in-time summary used by the HTTP status endpoint.
type Status struct {
	ID           int    `json:"id"`
	GameType     string `json:"game_type"`
	Phase        uint8  `json:"phase"`
	Playing      bool   `json:"playing"`
	CountingDown bool   `json:"counting_down"`
	Users        int    `json:"users"`
	Players      int    `json:"players"`
}

type msg interface{ isRoomMsg() }

type joinMsg struct {
	m     Member
	reply chan error
}

type leaveMsg struct {
	uid   uint16
	reply chan int
}

type requestMsg struct {
	uid uint16
	req protocol.Request
}

type renameMsg struct {
	uid  uint16
	name string
}

type chatMsg struct {
	uid     uint16
	target  uint16
	message string
}

type timerMsg struct{ id uint64 }

type statusMsg struct{ reply chan Status }

func (joinMsg) isRoomMsg()    {}
func (leaveMsg) isRoomMsg()   {}
func (requestMsg) isRoomMsg() {}
func (renameMsg) isRoomMsg()  {}
func (chatMsg) isRoomMsg()    {}
func (timerMsg) isRoomMsg()   {}
func (statusMsg) isRoomMsg()  {}

type pendingTimer struct {
	t  *time.Timer
	fn func()
}

type Room struct {
	cfg    Config
	log    *logrus.Entry
	inbox  chan msg
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	// Everything below is owned by the loop goroutine.
	members map[uint16]Member
	joined  []uint16
	game    game.Game

	timers    map[uint64]*pendingTimer
	nextTimer uint64
	countdown func()
	// closing is set once the last member leaves; the room takes no new
	// members after that.
	closing bool

	matchID     uuid.UUID
	actionIndex int
	startedAt   time.Time
	matchNames  map[uint16]string
}

// New builds a room for cfg.GameType and starts its loop. The room stops when
// ctx is cancelled or Close is called.
func New(ctx context.Context, cfg Config) (*Room, error) {
	if !cfg.GameType.Valid() {
		return nil, errors.New("room: unknown game type")
	}
	if cfg.MaxUsers <= 0 {
		cfg.MaxUsers = DefaultMaxUsers
	}
	if cfg.Countdown <= 0 {
		cfg.Countdown = DefaultCountdown
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(logrus.StandardLogger())
	}

	rctx, cancel := context.WithCancel(ctx)
	r := &Room{
		cfg:     cfg,
		log:     cfg.Logger.WithFields(logrus.Fields{"room": cfg.ID, "game_type": cfg.GameType.String()}),
		inbox:   make(chan msg, inboxSize),
		ctx:     rctx,
		cancel:  cancel,
		done:    make(chan struct{}),
		members: make(map[uint16]Member),
		timers:  make(map[uint64]*pendingTimer),
	}

	env := &roomEnv{r: r}
	switch cfg.GameType {
	case protocol.GameGuessWord:
		r.game = guessword.New(env, guessword.Config{IdleTimeout: cfg.IdleTimeout})
	case protocol.GameArrangeNumber:
		r.game = arrangenumber.New(env, arrangenumber.Config{})
	}

	go r.loop()
	return r, nil
}

func (r *Room) ID() int                     { return r.cfg.ID }
func (r *Room) GameType() protocol.GameType { return r.cfg.GameType }

// Done is closed once the loop has exited.
func (r *Room) Done() <-chan struct{} { return r.done }

// Close stops the loop and any pending timers.
func (r *Room) Close() {
	r.cancel()
	<-r.done
}

func (r *Room) post(m msg) bool {
	select {
	case r.inbox <- m:
		return true
	case <-r.ctx.Done():
		return false
	}
}

// Join seats m as a spectator. m receives INIT and ROOM_ID; everyone else
// receives CONNECT.
func (r *Room) Join(m Member) error {
	reply := make(chan error, 1)
	if !r.post(joinMsg{m: m, reply: reply}) {
		return ErrClosed
	}
	select {
	case err := <-reply:
		return err
	case <-r.done:
		return ErrClosed
	}
}

// Leave removes uid and returns how many members remain. Once that reaches
// zero the room refuses joins and should be closed.
func (r *Room) Leave(uid uint16) int {
	reply := make(chan int, 1)
	if !r.post(leaveMsg{uid: uid, reply: reply}) {
		return 0
	}
	select {
	case n := <-reply:
		return n
	case <-r.done:
		return 0
	}
}

// Handle queues a lobby or game request from uid.
func (r *Room) Handle(uid uint16, req protocol.Request) {
	r.post(requestMsg{uid: uid, req: req})
}

// Rename announces uid's new display name to the room.
func (r *Room) Rename(uid uint16, name string) {
	r.post(renameMsg{uid: uid, name: name})
}

// Chat delivers a validated message. target 0 is public; anything else is a
// hidden message seen only by sender and target.
func (r *Room) Chat(uid, target uint16, message string) {
	r.post(chatMsg{uid: uid, target: target, message: message})
}

func (r *Room) Status() Status {
	reply := make(chan Status, 1)
	if !r.post(statusMsg{reply: reply}) {
		return Status{ID: r.cfg.ID, GameType: r.cfg.GameType.String()}
	}
	select {
	case s := <-reply:
		return s
	case <-r.done:
		return Status{ID: r.cfg.ID, GameType: r.cfg.GameType.String()}
	}
}

func (r *Room) loop() {
	defer close(r.done)
	r.log.Info("Room opened")
	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return
		case m := <-r.inbox:
			r.dispatch(m)
		}
	}
}

func (r *Room) dispatch(m msg) {
	switch m := m.(type) {
	case joinMsg:
		if r.closing {
			m.reply <- ErrClosed
			return
		}
		m.reply <- r.addMember(m.m)
	case leaveMsg:
		r.removeMember(m.uid)
		if len(r.members) == 0 {
			r.closing = true
		}
		m.reply <- len(r.members)
	case requestMsg:
		if _, ok := r.members[m.uid]; !ok {
			return
		}
		r.handleRequest(m.uid, m.req)
	case renameMsg:
		if _, ok := r.members[m.uid]; ok {
			r.broadcast(&protocol.NameEvent{UID: m.uid, Name: m.name})
		}
	case chatMsg:
		r.chat(m.uid, m.target, m.message)
	case timerMsg:
		pt, ok := r.timers[m.id]
		if !ok {
			return
		}
		delete(r.timers, m.id)
		pt.fn()
	case statusMsg:
		m.reply <- Status{
			ID:           r.cfg.ID,
			GameType:     r.cfg.GameType.String(),
			Phase:        r.game.Phase(),
			Playing:      r.game.Playing(),
			CountingDown: r.countdown != nil,
			Users:        len(r.members),
			Players:      r.game.PlayerCount(),
		}
	}
}

func (r *Room) shutdown() {
	for id, pt := range r.timers {
		pt.t.Stop()
		delete(r.timers, id)
	}
	r.log.Info("Room closed")
}

func (r *Room) addMember(m Member) error {
	uid := m.UID()
	if _, ok := r.members[uid]; ok {
		return ErrAlreadyMember
	}
	if len(r.members) >= r.cfg.MaxUsers {
		return ErrFull
	}
	r.members[uid] = m
	r.joined = append(r.joined, uid)

	r.send(uid, r.game.Snapshot(uid, r.users()))
	r.send(uid, &protocol.RoomIDEvent{RoomID: int32(r.cfg.ID)})
	r.broadcast(&protocol.ConnectEvent{UID: uid, Name: m.Name()}, uid)

	r.log.WithFields(logrus.Fields{"uid": uid, "users": len(r.members)}).Debug("Member joined")
	return nil
}

// removeMember drops uid. A player is taken out of the game first, which may
// abort a running match.
func (r *Room) removeMember(uid uint16) {
	m, ok := r.members[uid]
	if !ok {
		return
	}
	if r.matchNames != nil {
		if _, seated := r.matchNames[uid]; seated {
			r.matchNames[uid] = m.Name()
		}
	}
	delete(r.members, uid)
	r.joined = slices.DeleteFunc(r.joined, func(v uint16) bool { return v == uid })

	if r.game.IsPlayer(uid) {
		r.broadcast(&protocol.LeaveGameEvent{UID: uid})
		if !r.game.Playing() {
			r.cancelCountdown()
		}
		r.game.RemovePlayer(uid)
	}
	r.broadcast(&protocol.DisconnectEvent{UID: uid})
	r.log.WithFields(logrus.Fields{"uid": uid, "users": len(r.members)}).Debug("Member left")
}

func (r *Room) users() []protocol.UserInfo {
	out := make([]protocol.UserInfo, 0, len(r.joined))
	for _, uid := range r.joined {
		out = append(out, protocol.UserInfo{UID: uid, Name: r.members[uid].Name()})
	}
	return out
}

// broadcast encodes ev once and hands the packet to every member not listed
// in except.
func (r *Room) broadcast(ev protocol.Event, except ...uint16) {
	p, err := protocol.EncodeEvent(ev)
	if err != nil {
		r.log.WithError(err).Error("Failed to encode broadcast")
		return
	}
	for _, uid := range r.joined {
		if slices.Contains(except, uid) {
			continue
		}
		r.members[uid].Send(p)
	}
}

func (r *Room) send(uid uint16, ev protocol.Event) {
	m, ok := r.members[uid]
	if !ok {
		return
	}
	p, err := protocol.EncodeEvent(ev)
	if err != nil {
		r.log.WithError(err).WithField("uid", uid).Error("Failed to encode event")
		return
	}
	m.Send(p)
}

// after schedules fn on the loop goroutine. A timer that fires after being
// cancelled finds no entry in r.timers and is ignored.
func (r *Room) after(d time.Duration, fn func()) func() {
	r.nextTimer++
	id := r.nextTimer
	pt := &pendingTimer{fn: fn}
	pt.t = time.AfterFunc(d, func() { r.post(timerMsg{id: id}) })
	r.timers[id] = pt
	return func() {
		if pt, ok := r.timers[id]; ok {
			pt.t.Stop()
			delete(r.timers, id)
		}
	}
}
