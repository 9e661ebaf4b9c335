// internal/handlers/router.go

// Package handlers exposes the game server over HTTP (WebSocket and status
// endpoints) and raw TCP.
package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jason-s-yu/meowgames/internal/middleware"
	"github.com/jason-s-yu/meowgames/internal/room"
	"github.com/jason-s-yu/meowgames/internal/transport"
	"github.com/sirupsen/logrus"
)

// GameServer is the part of server.Server the handlers need.
type GameServer interface {
	Serve(ctx context.Context, conn transport.Conn) error
	Rooms() []room.Status
	Clients() int
}

// NewRouter mounts /ws, /healthz and /rooms.
func NewRouter(logger *logrus.Entry, gs GameServer, maxFrameSize int) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.LogMiddleware(logger))

	r.Get("/ws", WebSocketHandler(logger, gs, maxFrameSize))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":  "ok",
			"clients": gs.Clients(),
		})
	})
	r.Get("/rooms", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, gs.Rooms())
	})
	return r
}
