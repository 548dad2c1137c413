package arena

const respawnDelayMs = 6000 // §4.9 step 2/3

// pendingRespawn is a single scheduled respawn, the death orchestrator's
// unit of deferred work. The design notes (§9) describe this family of
// timers as a min-heap of (dueTime, callback) drained at the top of
// each tick; because only a handful of respawns are ever in flight at
// once, a linear scan of a small slice is simpler and just as correct.
type pendingRespawn struct {
	shipID string
	dueAt  int64 // unix millis
}

// RespawnScheduler holds ships awaiting their respawn timer, decoupling
// "when" (this file) from "what happens" (Room.respawnShip).
type RespawnScheduler struct {
	pending []pendingRespawn
}

// NewRespawnScheduler creates an empty scheduler.
func NewRespawnScheduler() *RespawnScheduler {
	return &RespawnScheduler{}
}

// Schedule queues shipID to respawn at nowMs+respawnDelayMs (§4.9 step 2).
func (r *RespawnScheduler) Schedule(shipID string, nowMs int64) (dueAt int64) {
	dueAt = nowMs + respawnDelayMs
	r.pending = append(r.pending, pendingRespawn{shipID: shipID, dueAt: dueAt})
	return dueAt
}

// Cancel drops any pending respawn for shipID, used on disconnect so a
// vanished ship's timer doesn't fire against a removed entity.
func (r *RespawnScheduler) Cancel(shipID string) {
	out := r.pending[:0]
	for _, p := range r.pending {
		if p.shipID != shipID {
			out = append(out, p)
		}
	}
	r.pending = out
}

// Due pops and returns every ship whose respawn timer has elapsed by
// nowMs, removing them from the schedule.
func (r *RespawnScheduler) Due(nowMs int64) []string {
	if len(r.pending) == 0 {
		return nil
	}

	var due []string
	remaining := r.pending[:0]
	for _, p := range r.pending {
		if nowMs >= p.dueAt {
			due = append(due, p.shipID)
		} else {
			remaining = append(remaining, p)
		}
	}
	r.pending = remaining
	return due
}

// DeathResult is the bookkeeping outcome of crediting a kill, returned
// to the caller so it can emit the right wire events (§4.9 step 1).
type DeathResult struct {
	VictimID       string
	AttackerID     string // empty if no credit (suicide or no attacker)
	AttackerKills  int
	VictimDeaths   int
	AttackerPoints int
	VictimPoints   int
}

// CreditKill applies the §4.9 step 1 scoring policy: the victim always
// gains a death; the attacker gains a kill and placement points only
// if present and distinct from the victim (no suicide credit).
func CreditKill(victim, attacker *Ship) DeathResult {
	victim.Deaths++

	result := DeathResult{VictimID: victim.ID, VictimDeaths: victim.Deaths}

	if attacker != nil && attacker.ID != victim.ID {
		attacker.Kills++
		attacker.PlacementPoints += 100
		victim.PlacementPoints -= 50
		if victim.PlacementPoints < 0 {
			victim.PlacementPoints = 0
		}

		result.AttackerID = attacker.ID
		result.AttackerKills = attacker.Kills
		result.AttackerPoints = attacker.PlacementPoints
		result.VictimPoints = victim.PlacementPoints
	}

	return result
}
