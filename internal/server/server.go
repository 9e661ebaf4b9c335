// internal/server/server.go

// Package server owns every connected client and every room. It allocates
// UIDs, applies the version gate, and routes requests either to its own room
// management or to the client's room.
package server

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/jason-s-yu/meowgames/internal/protocol"
	"github.com/jason-s-yu/meowgames/internal/registry"
	"github.com/jason-s-yu/meowgames/internal/room"
	"github.com/jason-s-yu/meowgames/internal/session"
	"github.com/jason-s-yu/meowgames/internal/transport"
	"github.com/sirupsen/logrus"
)

var (
	ErrServerFull    = errors.New("server full")
	ErrRoomNotFound  = errors.New("room not found")
	ErrRoomFull      = errors.New("room full")
	ErrAlreadyInRoom = errors.New("already in a room")
	ErrNoUID         = errors.New("no free uid")
)

const (
	DefaultVersion  = 3
	DefaultMaxRooms = 1000
	maxUID          = 0xffff
)

type Config struct {
	Version      uint32
	MaxRooms     int
	MaxRoomUsers int
	Countdown    time.Duration
	IdleTimeout  time.Duration
	Session      session.Config
	Hooks        room.Hooks
}

type Server struct {
	ctx     context.Context
	cfg     Config
	log     *logrus.Entry
	users   *registry.Registry
	uids    *registry.IDGen
	roomIDs *registry.IDGen

	mu      sync.Mutex
	clients map[uint16]*client
	rooms   map[int]*room.Room
}

// client is the server side of one connection. checked is only touched from
// the session's reader goroutine; room is guarded by Server.mu.
type client struct {
	srv     *Server
	sess    *session.Session
	checked bool
	room    *room.Room
}

func (c *client) UID() uint16            { return c.sess.UID() }
func (c *client) Send(p protocol.Packet) { c.sess.Send(p) }

// Name is the raw registered name. Clients add the "(uid)" suffix for
// duplicates themselves, counting names across the users they know.
func (c *client) Name() string {
	name, _ := c.srv.users.Name(c.sess.UID())
	return name
}

// New builds a server. Rooms live until ctx is cancelled or they empty out.
func New(ctx context.Context, cfg Config, log *logrus.Entry) *Server {
	if cfg.Version == 0 {
		cfg.Version = DefaultVersion
	}
	if cfg.MaxRooms <= 0 {
		cfg.MaxRooms = DefaultMaxRooms
	}
	return &Server{
		ctx:     ctx,
		cfg:     cfg,
		log:     log,
		users:   registry.New(),
		uids:    registry.NewIDGen(maxUID),
		roomIDs: registry.NewIDGen(cfg.MaxRooms),
		clients: make(map[uint16]*client),
		rooms:   make(map[int]*room.Room),
	}
}

// Serve runs conn until it disconnects. The client is assigned a UID, told
// about it, and cleaned up from its room and the registry on return.
func (s *Server) Serve(ctx context.Context, conn transport.Conn) error {
	id, ok := s.uids.Next()
	if !ok {
		s.log.WithField("remote", conn.RemoteAddr()).Warn("No free UID, refusing connection")
		conn.Close("server full")
		return ErrNoUID
	}
	uid := uint16(id)

	c := &client{srv: s}
	c.sess = session.New(uid, conn, s, s.cfg.Session, s.log)
	s.mu.Lock()
	s.clients[uid] = c
	s.mu.Unlock()

	log := c.sess.Logger()
	log.Info("Client connected")
	c.sess.SendEvent(&protocol.UIDEvent{UID: uid})

	err := c.sess.Run(ctx)
	s.disconnect(c)
	log.WithField("reason", err).Info("Client disconnected")
	return err
}

func (s *Server) disconnect(c *client) {
	s.LeaveRoom(c)
	uid := c.UID()
	s.users.Unregister(uid)
	s.mu.Lock()
	delete(s.clients, uid)
	s.mu.Unlock()
	s.uids.Release(int(uid))
}

func (s *Server) client(uid uint16) *client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clients[uid]
}

// HandleRequest implements session.Handler.
func (s *Server) HandleRequest(sess *session.Session, req protocol.Request) {
	c := s.client(sess.UID())
	if c == nil {
		return
	}
	log := sess.Logger()

	if r, ok := req.(*protocol.VersionRequest); ok {
		s.checkVersion(c, r.Version)
		return
	}
	if !c.checked {
		log.WithField("type", req.Type()).Debug("Ignoring request before version check")
		return
	}

	switch r := req.(type) {
	case *protocol.NameRequest:
		s.rename(c, r.Name)
	case *protocol.CreateRoomRequest:
		if !r.GameType.Valid() {
			log.WithField("game_type", r.GameType).Debug("Unknown game type")
			return
		}
		if _, err := s.CreateRoom(c, r.GameType); err != nil {
			s.replyRoomError(c, err)
		}
	case *protocol.JoinRoomRequest:
		if err := s.JoinRoom(c, int(r.RoomID)); err != nil {
			s.replyRoomError(c, err)
		}
	case *protocol.LeaveRoomRequest:
		s.LeaveRoom(c)
	case *protocol.ChatRequest:
		s.chat(c, r.Target, r.Message)
	default:
		if rm := s.roomOf(c); rm != nil {
			rm.Handle(c.UID(), req)
		}
	}
}

// checkVersion answers every VERSION until one matches. A mismatch leaves the
// connection open but unchecked.
func (s *Server) checkVersion(c *client, version uint32) {
	if c.checked {
		return
	}
	c.sess.SendEvent(&protocol.VersionEvent{Version: s.cfg.Version})
	if version != s.cfg.Version {
		c.sess.Logger().WithFields(logrus.Fields{"client": version, "server": s.cfg.Version}).Info("Version mismatch")
		return
	}
	c.checked = true
}

// roomIDFor maps a room error onto the ROOM_ID sentinel the client expects.
func roomIDFor(err error) (int32, bool) {
	switch {
	case errors.Is(err, ErrServerFull):
		return protocol.RoomIDServerFull, true
	case errors.Is(err, ErrRoomNotFound):
		return protocol.RoomIDNotFound, true
	case errors.Is(err, ErrRoomFull):
		return protocol.RoomIDRoomFull, true
	}
	return 0, false
}

func (s *Server) replyRoomError(c *client, err error) {
	id, ok := roomIDFor(err)
	if !ok {
		c.sess.Logger().WithError(err).Debug("Room request dropped")
		return
	}
	c.sess.SendEvent(&protocol.RoomIDEvent{RoomID: id})
}

func (s *Server) roomOf(c *client) *room.Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	return c.room
}

// CreateRoom opens a room of gameType and moves c into it. The room is only
// published once its creator is seated.
func (s *Server) CreateRoom(c *client, gameType protocol.GameType) (int, error) {
	if s.roomOf(c) != nil {
		return 0, ErrAlreadyInRoom
	}
	id, ok := s.roomIDs.Next()
	if !ok {
		return 0, ErrServerFull
	}
	rm, err := room.New(s.ctx, room.Config{
		ID:          id,
		GameType:    gameType,
		MaxUsers:    s.cfg.MaxRoomUsers,
		Countdown:   s.cfg.Countdown,
		IdleTimeout: s.cfg.IdleTimeout,
		Hooks:       s.cfg.Hooks,
		Logger:      s.log,
	})
	if err != nil {
		s.roomIDs.Release(id)
		return 0, errors.Join(ErrServerFull, err)
	}
	if err := rm.Join(c); err != nil {
		rm.Close()
		s.roomIDs.Release(id)
		return 0, errors.Join(ErrServerFull, err)
	}

	s.mu.Lock()
	s.rooms[id] = rm
	c.room = rm
	s.mu.Unlock()
	c.sess.Logger().WithFields(logrus.Fields{"room": id, "game_type": gameType.String()}).Info("Room created")
	return id, nil
}

// JoinRoom seats c in room id as a spectator. The lock only covers the
// lookup; the round trip to the room runs without it.
func (s *Server) JoinRoom(c *client, id int) error {
	s.mu.Lock()
	if c.room != nil {
		s.mu.Unlock()
		return ErrAlreadyInRoom
	}
	rm, ok := s.rooms[id]
	s.mu.Unlock()
	if !ok {
		return ErrRoomNotFound
	}

	switch err := rm.Join(c); {
	case errors.Is(err, room.ErrFull):
		return ErrRoomFull
	case errors.Is(err, room.ErrClosed):
		// Emptied while we were joining.
		return ErrRoomNotFound
	case err != nil:
		return err
	}
	s.mu.Lock()
	c.room = rm
	s.mu.Unlock()
	return nil
}

// LeaveRoom takes c out of its room, closing the room once it is empty. An
// emptied room refuses further joins, so nobody can slip in before it is
// removed.
func (s *Server) LeaveRoom(c *client) {
	s.mu.Lock()
	rm := c.room
	c.room = nil
	s.mu.Unlock()
	if rm == nil || rm.Leave(c.UID()) > 0 {
		return
	}

	id := rm.ID()
	s.mu.Lock()
	owned := s.rooms[id] == rm
	if owned {
		delete(s.rooms, id)
	}
	s.mu.Unlock()
	if !owned {
		return
	}
	rm.Close()
	s.roomIDs.Release(id)
	s.log.WithField("room", id).Info("Removed empty room")
}

func validText(s string) bool {
	return strings.TrimSpace(s) != "" && len(s) <= protocol.MaxStringLen && utf8.ValidString(s)
}

func (s *Server) rename(c *client, raw string) {
	name := strings.TrimSpace(raw)
	if !validText(name) || strings.ContainsAny(name, "()") {
		c.sess.Logger().WithField("name", raw).Debug("Rejected name")
		return
	}
	uid := c.UID()
	if cur, ok := s.users.Name(uid); ok && cur == name {
		return
	}
	s.users.Register(uid, name)
	c.sess.Logger().WithFields(logrus.Fields{
		"name":    name,
		"display": s.users.DisplayName(uid),
	}).Info("Client renamed")
	if rm := s.roomOf(c); rm != nil {
		rm.Rename(uid, name)
	}
}

func (s *Server) chat(c *client, target uint16, message string) {
	if !validText(message) {
		return
	}
	if rm := s.roomOf(c); rm != nil {
		rm.Chat(c.UID(), target, message)
	}
}

// Rooms reports every open room, ordered by id.
func (s *Server) Rooms() []room.Status {
	s.mu.Lock()
	rooms := make([]*room.Room, 0, len(s.rooms))
	for _, rm := range s.rooms {
		rooms = append(rooms, rm)
	}
	s.mu.Unlock()

	out := make([]room.Status, 0, len(rooms))
	for _, rm := range rooms {
		out = append(out, rm.Status())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Clients reports how many connections are open.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}
