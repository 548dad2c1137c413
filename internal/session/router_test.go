package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"arena-server/internal/arena"
	"arena-server/internal/config"

	"github.com/gorilla/websocket"
)

func newTestServer(t *testing.T) (*httptest.Server, func()) {
	t.Helper()
	srv, _, cleanup := newTestServerWithRoom(t)
	return srv, cleanup
}

// newTestServerWithRoom is newTestServer that also returns the room, for
// tests that need its tick loop running.
func newTestServerWithRoom(t *testing.T) (*httptest.Server, *arena.Room, func()) {
	t.Helper()
	cfg := config.AppConfig{
		World:    config.DefaultWorld(),
		Settings: config.DefaultGameSettings(),
		Limits:   config.DefaultLimits(),
		Server:   config.ServerConfig{ClientURL: "*", AdminPassword: "secret"},
	}
	cfg.Settings.BotCount = 0
	room := arena.NewRoom(cfg)
	hub := NewHub(room, nil, cfg.Server)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	limiter := NewIPRateLimiter(DefaultRateLimitConfig)
	srv := httptest.NewServer(NewRouter(hub, limiter, "*"))

	cleanup := func() {
		cancel()
		limiter.Stop()
		srv.Close()
	}
	return srv, room, cleanup
}

func dialWS(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	if query != "" {
		wsURL += "?" + query
	}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	var env envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	return env
}

func writeEvent(t *testing.T, conn *websocket.Conn, event string, data interface{}) {
	t.Helper()
	msg, err := json.Marshal(envelope{Event: event, Data: mustRawJSON(data)})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		t.Fatalf("write failed: %v", err)
	}
}

func TestHealthEndpointReportsOk(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health failed: %v", err)
	}
	defer resp.Body.Close()

	var body map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&body)
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %v", body["status"])
	}
}

func TestAdmitSendsPlayerInfoFirst(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	conn := dialWS(t, srv, "id=ship-1&label=Nova")
	defer conn.Close()

	env := readEvent(t, conn)
	if env.Event != "player:info" {
		t.Fatalf("expected player:info first, got %s", env.Event)
	}

	var data map[string]interface{}
	json.Unmarshal(env.Data, &data)
	if data["userId"] != "ship-1" || data["label"] != "Nova" {
		t.Errorf("unexpected player:info payload: %+v", data)
	}
}

func TestCursorMoveBroadcastsToOtherSocketOnly(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	connA := dialWS(t, srv, "id=a")
	defer connA.Close()
	for i := 0; i < 4; i++ {
		readEvent(t, connA) // player:info, cursors:sync, mine:sync, powerup:sync for a
	}

	connB := dialWS(t, srv, "id=b")
	defer connB.Close()
	for i := 0; i < 4; i++ {
		readEvent(t, connB) // player:info, cursors:sync, mine:sync, powerup:sync
	}
	readEvent(t, connA) // user:joined for b

	writeEvent(t, connA, "cursor:move", cursorMovePayload{X: 12, Y: 34, Rot: 1.5})

	env := readEvent(t, connB)
	if env.Event != "cursor:update" {
		t.Fatalf("expected cursor:update, got %s", env.Event)
	}

	var data map[string]interface{}
	json.Unmarshal(env.Data, &data)
	if data["userId"] != "a" {
		t.Errorf("expected cursor:update for a, got %+v", data)
	}
	if x, ok := data["x"].(float64); !ok || x != 12 {
		t.Errorf("expected x=12, got %+v", data["x"])
	}
}

func TestCursorMoveNotEchoedToSender(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	conn := dialWS(t, srv, "id=solo")
	defer conn.Close()
	for i := 0; i < 4; i++ {
		readEvent(t, conn) // player:info, cursors:sync, mine:sync, powerup:sync
	}

	writeEvent(t, conn, "cursor:move", cursorMovePayload{X: 1, Y: 1, Rot: 0})

	conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected no echo back to the sender of cursor:move")
	}
}

func TestAdminLoginOverWebSocket(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	conn := dialWS(t, srv, "id=admin-1")
	defer conn.Close()
	for i := 0; i < 4; i++ {
		readEvent(t, conn) // player:info, cursors:sync, mine:sync, powerup:sync
	}

	writeEvent(t, conn, "admin:login", map[string]string{"password": "secret"})

	env := readEvent(t, conn)
	if env.Event != "admin:login:ok" {
		t.Fatalf("expected admin:login:ok, got %s", env.Event)
	}
}

func TestAdminLoginWrongPasswordRejected(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	conn := dialWS(t, srv, "id=admin-1")
	defer conn.Close()
	for i := 0; i < 4; i++ {
		readEvent(t, conn) // player:info, cursors:sync, mine:sync, powerup:sync
	}

	writeEvent(t, conn, "admin:login", map[string]string{"password": "nope"})

	env := readEvent(t, conn)
	if env.Event != "admin:login:error" {
		t.Fatalf("expected admin:login:error, got %s", env.Event)
	}
}

func TestAdminCommandWithoutLoginIsUnauthorized(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	conn := dialWS(t, srv, "id=admin-1")
	defer conn.Close()
	for i := 0; i < 4; i++ {
		readEvent(t, conn) // player:info, cursors:sync, mine:sync, powerup:sync
	}

	writeEvent(t, conn, "admin:getPlayers", map[string]string{})

	env := readEvent(t, conn)
	if env.Event != "admin:error" {
		t.Fatalf("expected admin:error, got %s", env.Event)
	}
}

func TestAPIStateReportsConnectedShip(t *testing.T) {
	srv, room, cleanup := newTestServerWithRoom(t)
	defer cleanup()
	room.Start()
	defer room.Stop()

	conn := dialWS(t, srv, "id=ship-1&label=Nova")
	defer conn.Close()
	readEvent(t, conn) // player:info
	// Let the tick loop publish a snapshot.
	time.Sleep(100 * time.Millisecond)

	resp, err := http.Get(srv.URL + "/api/state")
	if err != nil {
		t.Fatalf("GET /api/state failed: %v", err)
	}
	defer resp.Body.Close()

	var body map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&body)
	if got, ok := body["shipCount"].(float64); !ok || got != 1 {
		t.Errorf("expected shipCount 1, got %+v", body["shipCount"])
	}
}

func TestAPILeaderboardReflectsRank(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	connA := dialWS(t, srv, "id=a")
	defer connA.Close()
	readEvent(t, connA)

	resp, err := http.Get(srv.URL + "/api/leaderboard")
	if err != nil {
		t.Fatalf("GET /api/leaderboard failed: %v", err)
	}
	defer resp.Body.Close()

	var body map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&body)
	rows, ok := body["leaderboard"].([]interface{})
	if !ok {
		t.Fatalf("expected a leaderboard array, got %+v", body["leaderboard"])
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 ranked ship, got %d", len(rows))
	}
	row := rows[0].(map[string]interface{})
	if row["ID"] != "a" || row["Rank"].(float64) != 1 {
		t.Errorf("unexpected leaderboard row: %+v", row)
	}
}

func TestAdminAddBotBroadcastsUserJoined(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	admin := dialWS(t, srv, "id=admin-1")
	defer admin.Close()
	for i := 0; i < 4; i++ {
		readEvent(t, admin) // player:info, cursors:sync, mine:sync, powerup:sync
	}

	writeEvent(t, admin, "admin:login", map[string]string{"password": "secret"})
	readEvent(t, admin) // admin:login:ok

	writeEvent(t, admin, "admin:addBot", map[string]string{"token": "secret"})

	env := readEvent(t, admin)
	if env.Event != "user:joined" {
		t.Fatalf("expected user:joined after admin:addBot, got %s", env.Event)
	}
}
