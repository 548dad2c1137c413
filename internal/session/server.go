package session

import (
	"context"
	"log"
	"net/http"

	"arena-server/internal/arena"
	"arena-server/internal/config"

	"github.com/go-chi/chi/v5"
)

// Server combines the HTTP router with the connection hub.
//
// Background workers (the hub's event loop, the room's tick loop) do
// NOT start until Start is called, so a Server can be constructed and
// its Router() driven by httptest without them. The only goroutine
// NewServer starts is the rate limiter's cleanup loop.
type Server struct {
	hub         *Hub
	room        *arena.Room
	router      *chi.Mux
	rateLimiter *IPRateLimiter
}

// NewServer wires a room, hub, and router together.
func NewServer(room *arena.Room, hubClient HubClient, cfg config.AppConfig) *Server {
	hub := NewHub(room, hubClient, cfg.Server)
	limiter := NewIPRateLimiter(DefaultRateLimitConfig)

	s := &Server{
		hub:         hub,
		room:        room,
		rateLimiter: limiter,
		router:      NewRouter(hub, limiter, cfg.Server.ClientURL),
	}
	return s
}

// Start begins serving HTTP AND starts the room's tick loop and the
// hub's connection-lifecycle loop. Call this exactly once.
func (s *Server) Start(ctx context.Context, addr string) error {
	s.room.Start()
	go s.hub.Run(ctx)

	log.Printf("arena server listening on %s", addr)

	srv := &http.Server{
		Addr:    addr,
		Handler: s.router,
	}
	go func() {
		<-ctx.Done()
		s.Stop()
		srv.Close()
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Router returns the HTTP handler, for use with httptest.
func (s *Server) Router() http.Handler {
	return s.router
}

// Stop performs graceful shutdown of background workers.
func (s *Server) Stop() {
	s.room.Stop()
	s.room.StopEventLog()
	s.rateLimiter.Stop()
}
