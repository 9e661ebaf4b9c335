// internal/session/session.go

// Package session runs one client connection: a reader that decodes and
// dispatches requests, and a writer that drains a bounded outbox.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jason-s-yu/meowgames/internal/protocol"
	"github.com/jason-s-yu/meowgames/internal/transport"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

var (
	// ErrOutboxFull is the close reason for a client that stopped reading.
	ErrOutboxFull = errors.New("outbox full")
	// ErrClosed is returned by Run when the session was closed locally.
	ErrClosed = errors.New("session closed")
)

const (
	DefaultOutboxSize   = 256
	DefaultWriteTimeout = 5 * time.Second
	DefaultRateLimit    = 30
	DefaultRateBurst    = 60
)

type Config struct {
	OutboxSize   int
	WriteTimeout time.Duration
	RateLimit    float64
	RateBurst    int
}

func (c *Config) setDefaults() {
	if c.OutboxSize <= 0 {
		c.OutboxSize = DefaultOutboxSize
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	if c.RateLimit <= 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.RateBurst <= 0 {
		c.RateBurst = DefaultRateBurst
	}
}

// Handler receives decoded requests in arrival order, on the reader goroutine.
type Handler interface {
	HandleRequest(s *Session, req protocol.Request)
}

type Session struct {
	uid     uint16
	conn    transport.Conn
	handler Handler
	cfg     Config
	log     *logrus.Entry
	limiter *rate.Limiter

	outbox chan protocol.Packet

	closeOnce sync.Once
	closed    chan struct{}
	reason    string
}

func New(uid uint16, conn transport.Conn, h Handler, cfg Config, log *logrus.Entry) *Session {
	cfg.setDefaults()
	return &Session{
		uid:     uid,
		conn:    conn,
		handler: h,
		cfg:     cfg,
		log: log.WithFields(logrus.Fields{
			"uid":       uid,
			"remote":    conn.RemoteAddr(),
			"transport": conn.Kind(),
		}),
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		outbox:  make(chan protocol.Packet, cfg.OutboxSize),
		closed:  make(chan struct{}),
	}
}

func (s *Session) UID() uint16          { return s.uid }
func (s *Session) RemoteAddr() string   { return s.conn.RemoteAddr() }
func (s *Session) Logger() *logrus.Entry { return s.log }

// Send queues p without blocking. A full outbox closes the session.
func (s *Session) Send(p protocol.Packet) {
	select {
	case <-s.closed:
		return
	default:
	}
	select {
	case s.outbox <- p:
	default:
		s.log.WithField("queued", len(s.outbox)).Warn("Outbox full, dropping client")
		s.Close(ErrOutboxFull.Error())
	}
}

// SendEvent encodes ev and queues it.
func (s *Session) SendEvent(ev protocol.Event) {
	p, err := protocol.EncodeEvent(ev)
	if err != nil {
		s.log.WithError(err).Error("Failed to encode event")
		return
	}
	s.Send(p)
}

// Close stops the session. Only the first reason is kept.
func (s *Session) Close(reason string) {
	s.closeOnce.Do(func() {
		s.reason = reason
		close(s.closed)
	})
}

// Run pumps the connection until the client goes away, a malformed frame
// arrives, a write fails or Close is called. The connection is closed on
// return.
func (s *Session) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.readLoop(gctx) })
	g.Go(func() error { return s.writeLoop(gctx) })
	g.Go(func() error {
		select {
		case <-s.closed:
			return ErrClosed
		case <-gctx.Done():
			return nil
		}
	})
	err := g.Wait()

	reason := "connection closed"
	if errors.Is(err, protocol.ErrMalformed) {
		reason = "malformed request"
	}
	select {
	case <-s.closed:
		reason = s.reason
	default:
		s.Close(reason)
	}
	s.conn.Close(reason)
	return err
}

func (s *Session) readLoop(ctx context.Context) error {
	for {
		p, err := s.conn.ReadPacket(ctx)
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		req, err := protocol.DecodeRequest(p)
		if err != nil {
			s.log.WithError(err).Warn("Malformed request, closing connection")
			return err
		}
		if !s.limiter.Allow() {
			s.log.WithField("type", req.Type()).Debug("Rate limited, dropping request")
			continue
		}
		s.handler.HandleRequest(s, req)
	}
}

func (s *Session) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case p := <-s.outbox:
			wctx, cancel := context.WithTimeout(ctx, s.cfg.WriteTimeout)
			err := s.conn.WritePacket(wctx, p)
			cancel()
			if err != nil {
				return fmt.Errorf("write: %w", err)
			}
		}
	}
}
