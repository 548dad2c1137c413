package session

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter builds the HTTP router: the health check, the read-only
// /api/state and /api/leaderboard endpoints, and the WebSocket upgrade
// endpoint (§6). Prometheus metrics are served
// separately by StartDebugServer, localhost-only.
//
// NewRouter is pure - it starts no goroutines and opens no listeners,
// so it's safe to drive with httptest.NewServer in tests.
func NewRouter(hub *Hub, limiter *IPRateLimiter, corsOrigin string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(limiter.Middleware)
	r.Use(metricsMiddleware)

	corsOrigins := []string{"http://localhost:*", "http://127.0.0.1:*"}
	if corsOrigin != "" && corsOrigin != "*" {
		corsOrigins = append(corsOrigins, corsOrigin)
	} else {
		corsOrigins = append(corsOrigins, "*")
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
	}))

	r.Get("/health", hub.handleHealth)
	r.Get("/api/state", hub.handleState)
	r.Get("/api/leaderboard", hub.handleLeaderboard)
	r.Get("/ws", hub.HandleWebSocket)

	return r
}

const leaderboardTopN = 10

// handleState serves the latest published tick snapshot (§4.1's
// publishSnapshot), for read-only introspection outside the websocket
// channel.
func (h *Hub) handleState(w http.ResponseWriter, r *http.Request) {
	snap := h.room.Snapshot()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"tick":      snap.TickNumber,
		"shipCount": snap.ShipCount,
		"botCount":  snap.BotCount,
		"ships":     snap.Ships,
		"bots":      snap.Bots,
	})
}

// handleLeaderboard serves the top-ranked ships (§4.2 ranking score).
func (h *Hub) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"leaderboard": h.room.LeaderboardTop(leaderboardTopN),
	})
}

// metricsMiddleware records request latency/count for every route
// except the WebSocket upgrade (its lifetime isn't a request/response).
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ws" {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		RecordRequest(r.Method, r.URL.Path, ww.Status(), time.Since(start))
	})
}

func (h *Hub) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    "ok",
		"users":     h.ClientCount(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
