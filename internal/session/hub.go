package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"arena-server/internal/arena"
	"arena-server/internal/config"

	"github.com/gorilla/websocket"
)

const (
	maxConnectionsTotal = 500
	maxConnectionsPerIP = 10
)

// HubClient is the external scoring hub's interface as seen by the
// session layer (§4.8 admit, §4.11). Implemented by internal/scorehub;
// declared here so this package doesn't import it directly.
type HubClient interface {
	// ResolveName looks up a player's display name from its playerKey.
	ResolveName(ctx context.Context, playerKey string) (name string, ok bool)
	// SubmitScore posts one player's final score, per §4.11.
	SubmitScore(ctx context.Context, playerKey, name string, score int) bool
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// conn wraps one live WebSocket connection bound to a ship.
type conn struct {
	ws     *websocket.Conn
	ip     string
	shipID string
	hub    *Hub

	writeMu sync.Mutex
	cancel  context.CancelFunc // cancels an in-flight name lookup on disconnect
}

func (c *conn) send(event string, data interface{}) {
	msg, err := json.Marshal(envelope{Event: event, Data: mustRawJSON(data)})
	if err != nil {
		return
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
		c.hub.unregister <- c
	}
	IncrementWSMessages()
}

func mustRawJSON(v interface{}) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("null")
	}
	return b
}

// Hub owns every live connection and is the arena.Broadcaster
// implementation the room writes its outbound events through
// (§4.8 "Outbound fan-out").
type Hub struct {
	room   *arena.Room
	hub    HubClient
	cors   string

	mu      sync.RWMutex
	conns   map[string]*conn // shipID -> conn
	limiter *WebSocketRateLimiter

	register   chan *conn
	unregister chan *conn

	admin *adminState
}

// NewHub constructs a hub bound to the given room. hubClient may be
// nil, in which case playerKey display-name resolution and end-of-game
// score submission are both skipped.
func NewHub(room *arena.Room, hubClient HubClient, serverCfg config.ServerConfig) *Hub {
	h := &Hub{
		room:       room,
		hub:        hubClient,
		cors:       serverCfg.ClientURL,
		conns:      make(map[string]*conn),
		limiter:    NewWebSocketRateLimiter(maxConnectionsPerIP),
		register:   make(chan *conn),
		unregister: make(chan *conn),
	}
	h.admin = newAdminState(serverCfg.AdminPassword)
	room.SetBroadcaster(h)
	room.SetTickObserver(RecordTick)
	return h
}

// Run processes connection lifecycle events. Must run in its own
// goroutine for the lifetime of the server.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-h.register:
			h.mu.Lock()
			h.conns[c.shipID] = c
			h.mu.Unlock()
			UpdateWSConnections(h.ClientCount())

		case c := <-h.unregister:
			h.mu.Lock()
			_, still := h.conns[c.shipID]
			if still {
				delete(h.conns, c.shipID)
			}
			h.mu.Unlock()
			if !still {
				continue
			}
			if c.cancel != nil {
				c.cancel()
			}
			h.limiter.Release(c.ip)
			h.admin.deauthorize(c.shipID)
			c.ws.Close()
			h.room.RemoveShip(c.shipID)
			h.Broadcast("user:left", map[string]interface{}{"userId": c.shipID})
			UpdateWSConnections(h.ClientCount())

		case <-ticker.C:
			h.pushAdminSnapshots()
			UpdateShipCount(len(h.room.Ships()))
			UpdateBotCount(len(h.room.Bots()))
			stats := h.room.EventLogStats()
			total, _ := stats["total"].(uint64)
			dropped, _ := stats["dropped"].(uint64)
			UpdateEventLogStats(total, dropped)
		}
	}
}

// ClientCount returns the number of live connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Broadcast implements arena.Broadcaster: send to every connection.
func (h *Hub) Broadcast(event string, data interface{}) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.conns {
		c.send(event, data)
	}
}

// BroadcastExcept implements arena.Broadcaster: send to every
// connection except the one owned by shipID.
func (h *Hub) BroadcastExcept(shipID, event string, data interface{}) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, c := range h.conns {
		if id == shipID {
			continue
		}
		c.send(event, data)
	}
}

// Send implements arena.Broadcaster: send to a single ship's socket,
// a no-op if it has since disconnected.
func (h *Hub) Send(shipID, event string, data interface{}) {
	h.mu.RLock()
	c, ok := h.conns[shipID]
	h.mu.RUnlock()
	if ok {
		c.send(event, data)
	}
}

// HandleWebSocket upgrades the connection, admits a ship into the
// room, and reads inbound frames until disconnect (§4.8 "Admit").
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ip := GetClientIP(r)

	if h.ClientCount() >= maxConnectionsTotal {
		RecordConnectionRejected("ws_total_limit")
		http.Error(w, "Too many connections", http.StatusServiceUnavailable)
		return
	}
	if !h.limiter.Allow(ip) {
		RecordConnectionRejected("ws_ip_limit")
		http.Error(w, "Too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	origin := r.Header.Get("Origin")
	if origin != "" && !IsAllowedOrigin(origin, h.cors) {
		RecordConnectionRejected("origin")
		h.limiter.Release(ip)
		http.Error(w, "Origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.limiter.Release(ip)
		return
	}

	shipID := r.URL.Query().Get("id")
	if shipID == "" {
		shipID = generateConnID()
	}
	playerKey := r.URL.Query().Get("playerKey")
	label := r.URL.Query().Get("label")
	if label == "" {
		label = "Pilot"
	}

	c := &conn{ws: ws, ip: ip, shipID: shipID, hub: h}
	h.admit(c, playerKey, label)

	go h.readLoop(c)
}

func (h *Hub) readLoop(c *conn) {
	defer func() {
		h.unregister <- c
	}()

	for {
		_, msg, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		dispatchInbound(c, msg)
	}
}

// admit runs the full §4.8 admission sequence for a newly upgraded
// connection.
func (h *Hub) admit(c *conn, playerKey, label string) {
	ship := h.room.AddShip(c.shipID, playerKey, label)
	if ship == nil {
		c.ws.Close()
		return
	}

	h.register <- c

	c.send("player:info", map[string]interface{}{
		"userId": ship.ID, "label": ship.DisplayLabel, "color": ship.Color,
		"kills": ship.Kills, "deaths": ship.Deaths, "health": ship.Health,
	})
	h.BroadcastExcept(c.shipID, "user:joined", map[string]interface{}{
		"userId": ship.ID, "label": ship.DisplayLabel, "color": ship.Color,
	})

	cursors := make(map[string]interface{})
	for _, other := range h.room.Ships() {
		if other.ID == c.shipID {
			continue
		}
		cursors[other.ID] = shipCursorJSON(other)
	}
	for _, bot := range h.room.Bots() {
		cursors[bot.ID] = botCursorJSON(bot)
	}
	c.send("cursors:sync", map[string]interface{}{"cursors": cursors})

	mines := make([]map[string]interface{}, 0)
	for _, m := range h.room.Mines() {
		mines = append(mines, map[string]interface{}{"mineId": m.ID, "x": m.X, "y": m.Y})
	}
	c.send("mine:sync", mines)

	pickups := make([]map[string]interface{}, 0)
	for _, p := range h.room.Pickups() {
		pickups = append(pickups, map[string]interface{}{
			"powerUpId": p.ID, "x": p.X, "y": p.Y, "type": p.Kind, "weaponType": p.WeaponKind,
		})
	}
	c.send("powerup:sync", pickups)

	if playerKey != "" && h.hub != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		c.cancel = cancel
		go h.resolveName(ctx, c, playerKey)
	}
}

func (h *Hub) resolveName(ctx context.Context, c *conn, playerKey string) {
	name, ok := h.hub.ResolveName(ctx, playerKey)
	if !ok {
		return
	}
	if !h.room.SetShipLabel(c.shipID, name) {
		return
	}
	ship := h.room.Ship(c.shipID)
	if ship == nil {
		return
	}
	h.Broadcast("cursor:update", shipCursorPayload(ship))
}

// shipCursorJSON builds the per-cursor fields for `cursors:sync` /
// `cursor:update` (§6 outbound table).
func shipCursorJSON(s *arena.Ship) map[string]interface{} {
	return map[string]interface{}{
		"x": s.X, "y": s.Y, "rotation": s.Rotation, "color": s.Color,
		"label": s.DisplayLabel, "health": s.Health, "type": "player",
		"activeWeapon": s.ActiveWeapon, "shield": s.Shield,
	}
}

func botCursorJSON(b *arena.Bot) map[string]interface{} {
	return map[string]interface{}{
		"x": b.X, "y": b.Y, "rotation": b.Heading, "color": "#888888",
		"label": b.Label, "health": b.Health, "type": "bot",
	}
}

// shipCursorPayload builds a single-id `cursor:update` payload.
func shipCursorPayload(s *arena.Ship) map[string]interface{} {
	fields := shipCursorJSON(s)
	fields["userId"] = s.ID
	return fields
}

func generateConnID() string {
	return "conn-" + randomHex(8)
}

func randomHex(n int) string {
	b := make([]byte, n)
	rand.Read(b)
	return hex.EncodeToString(b)
}
