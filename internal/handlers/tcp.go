// internal/handlers/tcp.go
package handlers

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/jason-s-yu/meowgames/internal/transport"
	"github.com/sirupsen/logrus"
)

// ServeTCP accepts stream clients on ln until ctx is cancelled. It closes ln
// and waits for every connection it started before returning.
func ServeTCP(ctx context.Context, ln net.Listener, logger *logrus.Entry, gs GameServer, maxFrameSize int) error {
	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()

	log := logger.WithField("addr", ln.Addr().String())
	log.Info("TCP listener started")

	var wg sync.WaitGroup
	defer wg.Wait()

	var backoff time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				log.Info("TCP listener stopped")
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				backoff = min(max(2*backoff, 5*time.Millisecond), time.Second)
				log.WithError(err).Warnf("Accept error, retrying in %v", backoff)
				time.Sleep(backoff)
				continue
			}
			return err
		}
		backoff = 0

		if tc, ok := conn.(*net.TCPConn); ok {
			tc.SetNoDelay(true)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			gs.Serve(ctx, transport.NewStream(conn, maxFrameSize))
		}()
	}
}
