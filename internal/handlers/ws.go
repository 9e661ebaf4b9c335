// internal/handlers/ws.go
package handlers

import (
	"net/http"

	"github.com/coder/websocket"
	"github.com/jason-s-yu/meowgames/internal/middleware"
	"github.com/jason-s-yu/meowgames/internal/transport"
	"github.com/sirupsen/logrus"
)

// WebSocketHandler upgrades the request and hands the connection to gs for
// its whole lifetime. Every binary message carries one packet.
func WebSocketHandler(logger *logrus.Entry, gs GameServer, maxFrameSize int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// WebGL builds are hosted on arbitrary origins.
			InsecureSkipVerify: true,
		})
		if err != nil {
			logger.WithError(err).WithField("remote", r.RemoteAddr).Warn("WebSocket accept error")
			return
		}

		conn := transport.NewWebSocket(c, r.RemoteAddr, maxFrameSize)
		middleware.LogWebSocketConnect(logger, r.RemoteAddr, r.URL.Path)
		err = gs.Serve(r.Context(), conn)
		if transport.IsNormalClose(err) {
			err = nil
		}
		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, r.URL.Path, err)
	}
}
