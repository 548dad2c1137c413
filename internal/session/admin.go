package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"arena-server/internal/arena"
)

// adminState tracks the shared admin secret and which connections
// have successfully authenticated (§4.10).
type adminState struct {
	mu            sync.Mutex
	password      string
	authorizedIDs map[string]bool
}

func newAdminState(password string) *adminState {
	return &adminState{
		password:      password,
		authorizedIDs: make(map[string]bool),
	}
}

func (a *adminState) login(token string) bool {
	if token == "" || token != a.password {
		return false
	}
	return true
}

func (a *adminState) authorize(shipID string) {
	a.mu.Lock()
	a.authorizedIDs[shipID] = true
	a.mu.Unlock()
}

func (a *adminState) deauthorize(shipID string) {
	a.mu.Lock()
	delete(a.authorizedIDs, shipID)
	a.mu.Unlock()
}

func (a *adminState) check(shipID, token string) bool {
	if token == "" || token != a.password {
		return false
	}
	a.mu.Lock()
	_, ok := a.authorizedIDs[shipID]
	a.mu.Unlock()
	return ok
}

func (a *adminState) authorizedSnapshot() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.authorizedIDs))
	for id := range a.authorizedIDs {
		out = append(out, id)
	}
	return out
}

type adminEnvelope struct {
	Token      string `json:"token"`
	ID         string `json:"id"`
	Password   string `json:"password"`
	Settings   map[string]interface{} `json:"settings"`
}

// handleAdmin dispatches one `admin:*` inbound frame (§4.10, §6).
func (c *conn) handleAdmin(event string, raw json.RawMessage) {
	var env adminEnvelope
	if json.Unmarshal(raw, &env) != nil {
		return
	}

	if event == "admin:login" {
		if c.hub.admin.login(env.Password) {
			c.hub.admin.authorize(c.shipID)
			c.send("admin:login:ok", map[string]interface{}{"token": env.Password})
		} else {
			c.send("admin:login:error", map[string]interface{}{"error": "Unauthorized"})
		}
		return
	}

	if !c.hub.admin.check(c.shipID, env.Token) {
		c.send("admin:error", map[string]interface{}{"error": "Unauthorized"})
		return
	}

	switch event {
	case "admin:getPlayers":
		c.send("admin:players", roomPlayersJSON(c.hub.room))

	case "admin:getBots":
		c.send("admin:bots", roomBotsJSON(c.hub.room))

	case "admin:addBot":
		bot := c.hub.room.AddBot()
		if bot == nil {
			c.send("admin:addBot:error", map[string]interface{}{"error": "bot limit reached"})
			return
		}
		c.hub.Broadcast("user:joined", map[string]interface{}{"userId": bot.ID, "label": bot.Label})

	case "admin:removeBot":
		if !c.hub.room.RemoveBot(env.ID) {
			c.send("admin:removeBot:error", map[string]interface{}{"error": "unknown bot", "id": env.ID})
			return
		}
		c.hub.Broadcast("user:left", map[string]interface{}{"userId": env.ID})

	case "admin:removeAllBots":
		c.hub.room.RemoveAllBots()

	case "admin:kickPlayer":
		if c.hub.isBotID(env.ID) {
			c.send("admin:kickPlayer:error", map[string]interface{}{"error": "cannot kick a bot", "id": env.ID})
			return
		}
		if !c.hub.room.KickShip(env.ID) {
			c.send("admin:kickPlayer:error", map[string]interface{}{"error": "unknown player", "id": env.ID})
			return
		}
		c.hub.disconnectShip(env.ID)
		c.hub.Broadcast("user:left", map[string]interface{}{"userId": env.ID})

	case "admin:kickAll":
		for _, id := range c.hub.room.ShipIDs() {
			c.hub.room.KickShip(id)
			c.hub.disconnectShip(id)
			c.hub.Broadcast("user:left", map[string]interface{}{"userId": id})
		}

	case "admin:getSettings":
		c.send("admin:settings", c.hub.room.Settings())

	case "admin:updateSettings":
		updated := c.hub.room.UpdateSettings(env.Settings)
		c.send("admin:settings", updated)

	case "admin:endGame":
		c.hub.endGame(c)
	}
}

// isBotID reports whether id belongs to a live bot rather than a ship.
func (h *Hub) isBotID(id string) bool {
	for _, b := range h.room.Bots() {
		if b.ID == id {
			return true
		}
	}
	return false
}

// disconnectShip closes the socket for a kicked ship, if connected.
func (h *Hub) disconnectShip(shipID string) {
	h.mu.RLock()
	c, ok := h.conns[shipID]
	h.mu.RUnlock()
	if ok {
		c.ws.Close()
	}
}

// endGame submits every unsubmitted ship's placement score to the hub
// (§4.10 "endGame", §4.11 placement mapping).
func (h *Hub) endGame(requester *conn) {
	ships := h.room.Ships()

	submitted, failed := 0, 0
	for _, ship := range ships {
		if ship.ExternalPlayerKey == "" || ship.ScoreSubmitted {
			continue
		}
		if h.hub == nil {
			failed++
			continue
		}
		rank := h.room.RankOf(ship.ID)
		score := placementScore(rank)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		ok := h.hub.SubmitScore(ctx, ship.ExternalPlayerKey, ship.DisplayLabel, score)
		cancel()
		RecordHubRequest("score", ok)

		if ok {
			ship.ScoreSubmitted = true
			submitted++
		} else {
			failed++
		}
	}

	requester.send("admin:endGame:ok", map[string]interface{}{
		"submitted": submitted, "failed": failed, "total": submitted + failed,
	})
}

// placementScore maps a 1-based rank to a placement score (§4.11).
// Rank 0 means "unranked": the ship has no leaderboard entry (every
// admitted ship is entered at score 0, so a ship with no points still
// has a rank).
func placementScore(rank int) int {
	switch {
	case rank == 1:
		return 100
	case rank == 2:
		return 80
	case rank == 3:
		return 60
	case rank == 4:
		return 40
	case rank >= 5:
		return 20
	default:
		return 0
	}
}

// pushAdminSnapshots sends admin:players/admin:bots to every
// authenticated admin connection every 500ms (§4.10).
func (h *Hub) pushAdminSnapshots() {
	ids := h.admin.authorizedSnapshot()
	if len(ids) == 0 {
		return
	}

	players := roomPlayersJSON(h.room)
	bots := roomBotsJSON(h.room)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, id := range ids {
		if c, ok := h.conns[id]; ok {
			c.send("admin:players", players)
			c.send("admin:bots", bots)
		}
	}
}

// roomPlayersJSON builds the `admin:players` payload (§4.10).
func roomPlayersJSON(room *arena.Room) []map[string]interface{} {
	ships := room.Ships()
	out := make([]map[string]interface{}, 0, len(ships))
	for _, s := range ships {
		out = append(out, map[string]interface{}{
			"userId": s.ID, "label": s.DisplayLabel, "color": s.Color,
			"health": s.Health, "kills": s.Kills, "deaths": s.Deaths,
			"activeWeapon": s.ActiveWeapon, "shield": s.Shield,
			"rank": room.RankOf(s.ID),
		})
	}
	return out
}

// roomBotsJSON builds the `admin:bots` payload (§4.10).
func roomBotsJSON(room *arena.Room) []map[string]interface{} {
	bots := room.Bots()
	out := make([]map[string]interface{}, 0, len(bots))
	for _, b := range bots {
		out = append(out, map[string]interface{}{
			"id": b.ID, "label": b.Label, "health": b.Health, "dead": b.IsDead(),
		})
	}
	return out
}
