// Package arena implements the authoritative world state and tick
// scheduler for the arena shooter: ships, bots, bullets, mines,
// pickups and laser beams all live here, mutated by exactly one
// logical writer (spec §5, single-writer tick-driven model).
package arena

import (
	"log"
	"math"
	"math/rand"
	"sync"
	"time"

	"arena-server/internal/arena/spatial"
	"arena-server/internal/config"
)

// Broadcaster decouples Room from the transport layer. The session
// layer implements this over its websocket hub; Room only knows event
// names and payloads (spec §6).
type Broadcaster interface {
	Broadcast(event string, data interface{})
	BroadcastExcept(shipID, event string, data interface{})
	Send(shipID, event string, data interface{})
}

// noopBroadcaster discards everything; used before a real broadcaster
// is wired and in tests that don't care about wire traffic.
type noopBroadcaster struct{}

func (noopBroadcaster) Broadcast(string, interface{})            {}
func (noopBroadcaster) BroadcastExcept(string, string, interface{}) {}
func (noopBroadcaster) Send(string, string, interface{})          {}

// neonPalette is the fixed color set assigned to ships by insertion
// order on admit (§4.8 "Admit").
var neonPalette = []string{
	"#ff3b5c", "#36e2e2", "#ffd23f", "#9d4edd",
	"#06d6a0", "#ff8fab", "#4cc9f0", "#f4a261",
}

type pendingMineChain struct {
	dueAt               int64
	x, y                float64
	originalDamageRadius float64
	triggeredBy         string
}

// Room owns every entity and runs the fixed-rate tick loop (spec §2
// component 1 and 7 merged, as the design notes (§9) recommend: "these
// become fields of a single Room owned by the scheduler").
type Room struct {
	mu sync.Mutex

	world  config.WorldConfig
	limits config.ResourceLimits

	settings     config.GameSettings
	settingsLock sync.RWMutex // settings are read by admin/session concurrently with the tick

	ships     map[string]*Ship
	shipOrder []string // insertion order, for color assignment and stable iteration
	bots      map[string]*Bot

	bullets []*Bullet
	mines   []*Mine
	pickups []*Pickup
	lasers  map[string]*LaserBeam // keyed by ownerID (ship or bot)

	grid      *spatial.SpatialGrid
	shipIndex []*Ship // scratch: grid entity index -> ship, rebuilt each tick

	leaderboard *Leaderboard
	eventLog    *EventLog
	snapshots   *SnapshotPool
	respawns    *RespawnScheduler
	mineChains  []pendingMineChain

	nextBulletID uint64
	nextMineID   uint64
	nextPickupID uint64
	nextBotSeq   uint64

	lastMineSpawnMs   int64
	lastPickupSpawnMs int64

	tickCount uint64

	broadcaster  Broadcaster
	tickObserver func(time.Duration)

	rng *rand.Rand

	running   bool
	stopChan  chan struct{}
	tickDone  sync.WaitGroup
}

// NewRoom creates a room with the given configuration. Call
// SetBroadcaster before Start if wire events matter (tests that only
// assert on world state may skip it).
func NewRoom(cfg config.AppConfig) *Room {
	cellSize := 200.0 // covers bullet/mine/pickup/laser query radii

	r := &Room{
		world:       cfg.World,
		limits:      cfg.Limits,
		settings:    cfg.Settings,
		ships:       make(map[string]*Ship),
		bots:        make(map[string]*Bot),
		lasers:      make(map[string]*LaserBeam),
		grid:        spatial.NewSpatialGrid(cfg.World.Width, cfg.World.Height, cellSize, cfg.Limits.MaxShips+cfg.Limits.MaxBots),
		leaderboard: NewLeaderboard(),
		eventLog:    NewEventLog(),
		snapshots:   NewSnapshotPool(cfg.Limits),
		respawns:    NewRespawnScheduler(),
		broadcaster: noopBroadcaster{},
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		stopChan:    make(chan struct{}),
	}

	return r
}

// SetBroadcaster wires the session layer's fan-out. Must be called
// before Start.
func (r *Room) SetBroadcaster(b Broadcaster) {
	r.broadcaster = b
}

// SetTickObserver wires a callback invoked with each tick's wall-clock
// duration, for the session layer's Prometheus histogram. Optional.
func (r *Room) SetTickObserver(fn func(time.Duration)) {
	r.tickObserver = fn
}

// StartEventLog begins the audit log's async writer.
func (r *Room) StartEventLog(filePath string) error {
	return r.eventLog.Start(filePath)
}

// StopEventLog flushes and closes the audit log.
func (r *Room) StopEventLog() {
	r.eventLog.Stop()
}

// Start launches the tick scheduler (~60 Hz, per §4.1) and the bot
// system's independent ~60 ms loop (§4.7), both serialized on the same
// mutex so no two mutations ever overlap.
func (r *Room) Start() {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.mu.Unlock()

	tickInterval := time.Second / time.Duration(r.world.TickRate)
	ticker := time.NewTicker(tickInterval)
	botTicker := time.NewTicker(60 * time.Millisecond)

	r.tickDone.Add(1)
	go func() {
		defer r.tickDone.Done()
		defer ticker.Stop()
		defer botTicker.Stop()
		for {
			select {
			case <-ticker.C:
				r.tick()
			case <-botTicker.C:
				r.advanceBots()
			case <-r.stopChan:
				return
			}
		}
	}()

	log.Printf("🎮 arena room started at %d TPS", r.world.TickRate)
}

// Stop halts the tick scheduler.
func (r *Room) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	r.mu.Unlock()

	close(r.stopChan)
	r.tickDone.Wait()
	log.Println("🛑 arena room stopped")
}

func nowMs() int64 {
	return time.Now().UnixMilli()
}

// tick runs one simulation step in the §4.1 phase order. The bot phase
// is not part of it: Start drives advanceBots on its own ticker.
func (r *Room) tick() {
	start := time.Now()
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tickObserver != nil {
		defer func() { r.tickObserver(time.Since(start)) }()
	}

	r.tickCount++
	now := nowMs()

	r.processDueMineChains(now)

	r.spawnMinesIfDue(now)
	r.spawnPickupsIfDue(now)
	r.advanceBullets()
	r.advanceLasers()
	r.applyShipPhysics()
	r.checkPickupAndMineContact()
	r.resolveBulletCollisions()

	r.processDueRespawns(now)

	r.publishSnapshot()
}

// --- ship admission / world-state mutators (spec §4.2) ---

// AddShip admits a new ship, assigning the next color in the neon
// palette by insertion order (§4.8 "Admit").
func (r *Room) AddShip(id, externalKey, label string) *Ship {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.ships[id]; exists {
		return r.ships[id]
	}
	if len(r.ships) >= r.limits.MaxShips {
		return nil
	}

	color := neonPalette[len(r.shipOrder)%len(neonPalette)]
	x, y := r.randomInteriorPoint()

	settings := r.Settings()
	ship := NewShip(id, externalKey, label, color, x, y, settings.PlayerStartingHealth)
	r.ships[id] = ship
	r.shipOrder = append(r.shipOrder, id)
	r.leaderboard.Update(id, 0, 0)

	r.eventLog.EmitSimple(EventTypeShipJoin, r.tickCount, id, ShipJoinPayload{
		ShipID: id, Label: label, SpawnX: x, SpawnY: y,
	})

	return ship
}

// RemoveShip drops a ship from world state entirely (§4.8 "Disconnect").
func (r *Room) RemoveShip(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.ships[id]; !ok {
		return
	}
	delete(r.ships, id)
	delete(r.lasers, id)
	r.leaderboard.Remove(id)
	r.respawns.Cancel(id)

	out := r.shipOrder[:0]
	for _, sid := range r.shipOrder {
		if sid != id {
			out = append(out, sid)
		}
	}
	r.shipOrder = out

	r.eventLog.EmitSimple(EventTypeShipLeave, r.tickCount, id, nil)
}

// Ship returns a ship by id, or nil.
func (r *Room) Ship(id string) *Ship {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ships[id]
}

// Ships returns a stable-ordered copy of all ships (admin introspection).
func (r *Room) Ships() []*Ship {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Ship, 0, len(r.shipOrder))
	for _, id := range r.shipOrder {
		out = append(out, r.ships[id])
	}
	return out
}

// Bots returns a copy of all bots.
func (r *Room) Bots() []*Bot {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Bot, 0, len(r.bots))
	for _, b := range r.bots {
		out = append(out, b)
	}
	return out
}

// MoveShip validates and applies an inbound cursor:move (§4.8).
// Returns false if the frame was dropped (dead ship, unknown ship, or
// non-finite numbers) so the caller knows not to relay anything.
func (r *Room) MoveShip(id string, x, y, rot float64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	ship, ok := r.ships[id]
	if !ok || ship.IsDead() {
		return false
	}
	if !isFinite(x) || !isFinite(y) || !isFinite(rot) {
		return false
	}

	ship.MoveTo(x, y, rot, r.world.Width/2, r.world.Height/2)
	return true
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// ApplyHealthDamage handles an inbound health:damage frame (§4.8,
// treated as authoritative per the open question (c) decision
// recorded in DESIGN.md).
func (r *Room) ApplyHealthDamage(shipID string, health int, attackerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	ship, ok := r.ships[shipID]
	if !ok || ship.IsDead() {
		return false
	}

	var attacker *Ship
	if attackerID != "" {
		attacker = r.ships[attackerID]
	}

	wasAlive := !ship.IsDead()
	ship.SetHealth(health)
	r.broadcaster.Broadcast("health:update", map[string]interface{}{
		"userId": shipID, "health": ship.Health, "shield": ship.Shield, "attackerId": attackerID,
	})

	if wasAlive && ship.IsDead() {
		r.onShipDeath(ship, attacker)
	}
	return true
}

// randomInteriorPoint returns a uniform point within the map rectangle.
func (r *Room) randomInteriorPoint() (x, y float64) {
	halfW, halfH := r.world.Width/2, r.world.Height/2
	x = (r.rng.Float64()*2 - 1) * halfW
	y = (r.rng.Float64()*2 - 1) * halfH
	return
}

// Settings returns a copy of the current admin-tunable settings.
func (r *Room) Settings() config.GameSettings {
	r.settingsLock.RLock()
	defer r.settingsLock.RUnlock()
	return r.settings
}

// UpdateSettings merges a partial patch into settings (§4.10
// updateSettings) and returns the resulting full settings object.
func (r *Room) UpdateSettings(patch map[string]interface{}) config.GameSettings {
	r.settingsLock.Lock()
	defer r.settingsLock.Unlock()

	if v, ok := patch["botSpeed"].(float64); ok {
		r.settings.BotSpeed = v
	}
	if v, ok := patch["botCount"].(float64); ok {
		r.settings.BotCount = clampInt(int(v), 0, r.limits.MaxBots)
	}
	if v, ok := patch["botHealth"].(float64); ok {
		r.settings.BotHealth = clampInt(int(v), 1, 100)
	}
	if v, ok := patch["playerStartingHealth"].(float64); ok {
		r.settings.PlayerStartingHealth = clampInt(int(v), 1, 100)
	}

	return r.settings
}

// RankOf returns a ship's 1-based leaderboard rank, or 0 if absent.
func (r *Room) RankOf(shipID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leaderboard.RankOf(shipID)
}

// Snapshot returns the latest published broadcast snapshot.
func (r *Room) Snapshot() *RoomSnapshot {
	return r.snapshots.AcquireRead()
}

// LeaderboardTop returns the top-ranked ships, labeled from live ship
// state, for the `/api/leaderboard` REST endpoint.
func (r *Room) LeaderboardTop(limit int) []LeaderboardEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := r.leaderboard.Top(limit)
	for i := range entries {
		if s, ok := r.ships[entries[i].ID]; ok {
			entries[i].Label = s.DisplayLabel
		}
	}
	return entries
}

func (r *Room) publishSnapshot() {
	snap := r.snapshots.AcquireWrite()
	snap.TickNumber = r.tickCount

	for _, id := range r.shipOrder {
		s := r.ships[id]
		snap.Ships = append(snap.Ships, ShipSnapshot{
			ID: s.ID, Label: s.DisplayLabel, X: s.X, Y: s.Y, Rotation: s.Rotation,
			Color: s.Color, Health: s.Health, Shield: s.Shield,
			ActiveWeapon: s.ActiveWeapon, Kills: s.Kills, Deaths: s.Deaths,
		})
	}
	for _, b := range r.bots {
		snap.Bots = append(snap.Bots, BotSnapshot{
			ID: b.ID, Label: b.Label, X: b.X, Y: b.Y, Heading: b.Heading,
			Health: b.Health, Dead: b.dead,
		})
	}
	snap.ShipCount = len(snap.Ships)
	snap.BotCount = len(snap.Bots)

	r.snapshots.PublishWrite()
}

// EventLogStats exposes audit-log counters for debug introspection.
func (r *Room) EventLogStats() map[string]interface{} {
	return r.eventLog.Stats()
}

// ShootBullet handles an inbound bullet:shoot frame (§6). The ship's
// currently equipped weapon decides everything about the shot — kind,
// pellet count, spread, and ammo draw — the client's role is only to
// supply the aim point and angle (§1: the server is the single source
// of truth for ammunition). Returns false if the ship is unknown,
// dead, or its weapon fires exclusively over laser:shoot.
func (r *Room) ShootBullet(shipID string, x, y, angle float64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	ship, ok := r.ships[shipID]
	if !ok || ship.IsDead() {
		return false
	}

	if ship.ActiveWeapon != MachineGun && ship.Ammo <= 0 {
		ship.ActiveWeapon = MachineGun
		ship.Ammo = 0
	}

	weapon := GetWeapon(ship.ActiveWeapon)
	if weapon.IsLaser {
		return false
	}

	pellets := weapon.Pellets
	if pellets < 1 {
		pellets = 1
	}
	if len(r.bullets)+pellets > r.limits.MaxBullets {
		return false
	}

	r.fireWeapon(ship, weapon, pellets, x, y, angle)

	if ship.ActiveWeapon != MachineGun {
		ship.Ammo--
		if ship.Ammo <= 0 {
			ship.ActiveWeapon = MachineGun
			ship.Ammo = 0
		}
	}
	return true
}

// fireWeapon spawns pellets bullets fanned evenly across weapon.Spread,
// centered on angle (§4.5 TripleShot/Shotgun).
func (r *Room) fireWeapon(ship *Ship, weapon Weapon, pellets int, x, y, angle float64) {
	start := angle - weapon.Spread/2
	step := 0.0
	if pellets > 1 {
		step = weapon.Spread / float64(pellets-1)
	}

	for i := 0; i < pellets; i++ {
		a := start + step*float64(i)
		r.nextBulletID++
		b := NewBullet(r.nextBulletID, ship.ID, false, x, y, a, weapon.IsRocket, weapon.IsHoming)
		r.bullets = append(r.bullets, b)

		r.broadcaster.Broadcast("bullet:spawn", map[string]interface{}{
			"bulletId": b.ID, "userId": ship.ID, "x": b.X, "y": b.Y, "vx": b.VX, "vy": b.VY,
			"color": ship.Color, "isRocket": weapon.IsRocket,
		})
	}
}

// ShootLaser installs or replaces the caller's laser beam (§6
// `laser:shoot`, "Install/replace").
func (r *Room) ShootLaser(shipID string, angle float64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	ship, ok := r.ships[shipID]
	if !ok || ship.IsDead() {
		return false
	}

	r.lasers[shipID] = NewLaserBeam(shipID, false, angle)
	r.broadcaster.Broadcast("laser:spawn", map[string]interface{}{
		"userId": shipID, "x": ship.X, "y": ship.Y, "angle": angle, "color": ship.Color,
	})
	return true
}

// AddBot creates one bot above the configured target count, for the
// admin `addBot` command (§4.10).
func (r *Room) AddBot() *Bot {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.bots) >= r.limits.MaxBots {
		return nil
	}
	r.nextBotSeq++
	id := botIDPrefix + itoa(r.nextBotSeq)
	x, y := r.randomInteriorPoint()
	bot := NewBot(id, id, x, y, r.Settings().BotHealth)
	r.bots[id] = bot
	return bot
}

// RemoveBot deletes a single bot by id, for admin `removeBot`.
func (r *Room) RemoveBot(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.bots[id]; !ok {
		return false
	}
	delete(r.bots, id)
	delete(r.lasers, id)
	return true
}

// RemoveAllBots clears the bot population, for admin `removeAllBots`.
func (r *Room) RemoveAllBots() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id := range r.bots {
		delete(r.lasers, id)
	}
	r.bots = make(map[string]*Bot)
}

// KickShip forcibly removes a connected ship, for admin `kickPlayer`
// and `kickAll`. The session layer is responsible for also closing the
// underlying socket.
func (r *Room) KickShip(id string) bool {
	r.mu.Lock()
	_, ok := r.ships[id]
	r.mu.Unlock()
	if !ok {
		return false
	}
	r.RemoveShip(id)
	return true
}

// ShipIDs returns every connected ship id, for admin `kickAll`.
func (r *Room) ShipIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, len(r.shipOrder))
	copy(out, r.shipOrder)
	return out
}

// SetShipLabel overwrites a ship's display label, used once the hub
// resolves a player's real name from its playerKey (§4.8 admit).
// Returns false if the ship has since disconnected.
func (r *Room) SetShipLabel(id, label string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	ship, ok := r.ships[id]
	if !ok {
		return false
	}
	ship.DisplayLabel = label
	return true
}

// Mines returns a copy of the live mine set, for `mine:sync` on admit.
func (r *Room) Mines() []*Mine {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Mine, len(r.mines))
	copy(out, r.mines)
	return out
}

// Pickups returns a copy of the live pickup set, for `powerup:sync`.
func (r *Room) Pickups() []*Pickup {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Pickup, len(r.pickups))
	copy(out, r.pickups)
	return out
}
