package arena

import (
	"math"
)

// This file holds the per-phase subsystem logic invoked by Room.tick,
// kept separate from room.go's struct/lifecycle code for readability.
// Every method here except advanceBots assumes r.mu is already held by
// the caller; advanceBots takes r.mu itself.

const (
	standardBulletKnockback = 5.0
	botFireProbability      = 0.06
)

// --- phase: mine chain reactions (delayed, §4.9 "Chain reactions") ---

func (r *Room) processDueMineChains(now int64) {
	if len(r.mineChains) == 0 {
		return
	}

	remaining := r.mineChains[:0]
	for _, chain := range r.mineChains {
		if now >= chain.dueAt {
			if r.removeMineNear(chain.x, chain.y) {
				r.triggerExplosionAt(chain.x, chain.y, chain.originalDamageRadius, mineDamage, mineKnockbackMax, chain.triggeredBy, true)
				r.eventLog.EmitSimple(EventTypeMineExplode, r.tickCount, chain.triggeredBy, nil)
				r.broadcaster.Broadcast("mine:explode", map[string]interface{}{
					"x": chain.x, "y": chain.y, "triggeredBy": chain.triggeredBy,
				})
			}
		} else {
			remaining = append(remaining, chain)
		}
	}
	r.mineChains = remaining
}

// --- phase 1: mines (spawn cadence only) ---

func (r *Room) spawnMinesIfDue(now int64) {
	if now-r.lastMineSpawnMs < mineSpawnCadenceMs {
		return
	}
	if len(r.mines) >= maxLiveMines {
		return
	}
	r.lastMineSpawnMs = now

	x, y := r.randomInteriorPoint()
	r.nextMineID++
	r.mines = append(r.mines, NewMine(r.nextMineID, x, y))
}

// --- phase 2: pickups (spawn cadence only) ---

func (r *Room) spawnPickupsIfDue(now int64) {
	if now-r.lastPickupSpawnMs < pickupSpawnCadenceMs {
		return
	}
	if len(r.pickups) >= maxLivePickups {
		return
	}
	r.lastPickupSpawnMs = now

	x, y := r.randomInteriorPoint()
	r.nextPickupID++
	r.pickups = append(r.pickups, NewPickup(r.nextPickupID, x, y))
}

// --- phase 3: bullets (integrate, bounce, expire) ---

const homingTurnRate = 0.08 // radians steered toward target per tick

func (r *Room) advanceBullets() {
	halfW, halfH := r.world.Width/2, r.world.Height/2

	n := 0
	for _, b := range r.bullets {
		if b.IsHoming {
			r.steerHomingBullet(b)
		}
		if b.Update(halfW, halfH) {
			r.bullets[n] = b
			n++
		}
	}
	r.bullets = r.bullets[:n]
}

// steerHomingBullet rotates a HomingMissiles bullet's velocity a
// bounded step toward the nearest live ship other than its owner
// (§4.5 HomingMissiles). A no-op once no target remains.
func (r *Room) steerHomingBullet(b *Bullet) {
	target, ok := r.nearestLiveShipExcept(b.OwnerID, b.X, b.Y)
	if !ok {
		return
	}

	speed := math.Hypot(b.VX, b.VY)
	current := math.Atan2(b.VY, b.VX)
	desired := math.Atan2(target.Y-b.Y, target.X-b.X)

	delta := normalizeAngle(desired - current)
	if delta > homingTurnRate {
		delta = homingTurnRate
	} else if delta < -homingTurnRate {
		delta = -homingTurnRate
	}

	next := current + delta
	b.VX = math.Cos(next) * speed
	b.VY = math.Sin(next) * speed
}

// nearestLiveShipExcept finds the closest live ship to (x, y), other
// than ownerID, for homing-bullet guidance.
func (r *Room) nearestLiveShipExcept(ownerID string, x, y float64) (*Ship, bool) {
	var best *Ship
	bestDist := math.MaxFloat64
	for _, id := range r.shipOrder {
		s := r.ships[id]
		if s.ID == ownerID || s.IsDead() {
			continue
		}
		dx, dy := s.X-x, s.Y-y
		d := dx*dx + dy*dy
		if d < bestDist {
			bestDist = d
			best = s
		}
	}
	return best, best != nil
}

// normalizeAngle wraps a to (-pi, pi].
func normalizeAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a < -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

// --- phase 4: lasers (one tick of damage per active beam) ---

func (r *Room) advanceLasers() {
	for ownerID, beam := range r.lasers {
		var origin *Ship
		var originBot *Bot
		if beam.OwnerIsBot {
			originBot = r.bots[ownerID]
		} else {
			origin = r.ships[ownerID]
		}
		if origin == nil && originBot == nil {
			delete(r.lasers, ownerID)
			continue
		}

		var ox, oy, angle float64
		if origin != nil {
			ox, oy, angle = origin.X, origin.Y, origin.Rotation
		} else {
			ox, oy, angle = originBot.X, originBot.Y, originBot.Heading
		}
		beam.CurrentAngle = angle
		x1, y1, x2, y2 := beam.segment(ox, oy)

		for _, ship := range r.ships {
			if ship.ID == ownerID || ship.IsDead() {
				continue
			}
			if distanceToSegment(ship.X, ship.Y, x1, y1, x2, y2) <= laserHitRadius {
				wasAlive := !ship.IsDead()
				justDied := ship.ApplyDamage(laserDamagePerTick)
				r.eventLog.EmitSimple(EventTypeDamage, r.tickCount, ship.ID, DamagePayload{
					AttackerID: ownerID, VictimID: ship.ID, Damage: laserDamagePerTick, VictimHP: ship.Health, Cause: "laser",
				})
				r.broadcaster.Broadcast("health:update", map[string]interface{}{
					"userId": ship.ID, "health": ship.Health, "shield": ship.Shield,
				})
				if wasAlive && justDied {
					var attacker *Ship
					if !beam.OwnerIsBot {
						attacker = r.ships[ownerID]
					}
					r.onShipDeath(ship, attacker)
				}
			}
		}
		for _, bot := range r.bots {
			if bot.ID == ownerID || bot.IsDead() {
				continue
			}
			if distanceToSegment(bot.X, bot.Y, x1, y1, x2, y2) <= laserHitRadius {
				if bot.ApplyDamage(laserDamagePerTick, r.Settings().BotHealth) {
					r.scheduleBotRespawn(bot)
				}
			}
		}

		var hitMines []*Mine
		n := 0
		for _, m := range r.mines {
			if distanceToSegment(m.X, m.Y, x1, y1, x2, y2) <= m.TriggerRadius+laserMineHitPadding {
				hitMines = append(hitMines, m)
				continue
			}
			r.mines[n] = m
			n++
		}
		r.mines = r.mines[:n]
		for _, m := range hitMines {
			r.triggerExplosionAt(m.X, m.Y, m.DamageRadius, mineDamage, mineKnockbackMax, ownerID, true)
			r.eventLog.EmitSimple(EventTypeMineExplode, r.tickCount, ownerID, nil)
			r.broadcaster.Broadcast("mine:explode", map[string]interface{}{
				"mineId": m.ID, "x": m.X, "y": m.Y, "triggeredBy": ownerID,
			})
		}

		beam.TicksRemaining--
		if beam.TicksRemaining <= 0 {
			delete(r.lasers, ownerID)
		}
	}
}

// --- phase 5: ship physics ---

func (r *Room) applyShipPhysics() {
	halfW, halfH := r.world.Width/2, r.world.Height/2

	for _, id := range r.shipOrder {
		ship := r.ships[id]
		if ship.IsDead() {
			continue
		}
		moved := ship.ApplyPhysics(halfW, halfH)
		// phase 6: broadcast cursor:update for any ship whose speed is
		// non-trivial this tick, so clients see knockback.
		if moved {
			r.broadcaster.Broadcast("cursor:update", map[string]interface{}{
				"userId": ship.ID, "x": ship.X, "y": ship.Y, "rotation": ship.Rotation,
			})
		}
	}
}

// --- phase 7: pickup collection and mine contact for alive ships ---

func (r *Room) checkPickupAndMineContact() {
	for _, id := range r.shipOrder {
		ship := r.ships[id]
		if ship.IsDead() {
			continue
		}

		n := 0
		for _, p := range r.pickups {
			dx, dy := ship.X-p.X, ship.Y-p.Y
			if dx*dx+dy*dy <= pickupContactRadius*pickupContactRadius {
				r.applyPickup(ship, p)
				continue // drop from pickups slice
			}
			r.pickups[n] = p
			n++
		}
		r.pickups = r.pickups[:n]

		var triggered []*Mine
		for _, m := range r.mines {
			dx, dy := ship.X-m.X, ship.Y-m.Y
			if dx*dx+dy*dy <= m.TriggerRadius*m.TriggerRadius {
				triggered = append(triggered, m)
			}
		}
		for _, m := range triggered {
			r.detonateMine(m, ship.ID)
		}
	}
}

func (r *Room) applyPickup(ship *Ship, p *Pickup) {
	switch p.Kind {
	case PickupWeapon:
		ship.ActiveWeapon = p.WeaponKind
		ship.Ammo = GetWeapon(p.WeaponKind).StartAmmo
	case PickupHealth:
		ship.SetHealth(ship.Health + pickupHealAmount)
	case PickupShield:
		ship.Shield = clampInt(ship.Shield+pickupShieldAmount, 0, 100)
	}

	r.eventLog.EmitSimple(EventTypePickupCollect, r.tickCount, ship.ID, nil)
	r.broadcaster.Broadcast("powerup:collect", map[string]interface{}{
		"powerUpId": p.ID, "userId": ship.ID, "type": p.Kind, "weaponType": ship.ActiveWeapon,
	})
}

// removeMineNear drops the first mine whose centre coincides with
// (x, y), returning false if none remains (already consumed this tick
// by another trigger).
func (r *Room) removeMineNear(x, y float64) bool {
	n := 0
	found := false
	for _, other := range r.mines {
		if !found && other.X == x && other.Y == y {
			found = true
			continue
		}
		r.mines[n] = other
		n++
	}
	r.mines = r.mines[:n]
	return found
}

// detonateMine removes a live mine per §4.4 ("Remove the mine from the
// set first; emit mine:explode") then delegates to triggerExplosionAt.
func (r *Room) detonateMine(m *Mine, triggeredBy string) {
	if !r.removeMineNear(m.X, m.Y) {
		return // already consumed this tick by another trigger
	}

	r.triggerExplosionAt(m.X, m.Y, m.DamageRadius, mineDamage, mineKnockbackMax, triggeredBy, true)
	r.eventLog.EmitSimple(EventTypeMineExplode, r.tickCount, triggeredBy, nil)
	r.broadcaster.Broadcast("mine:explode", map[string]interface{}{
		"mineId": m.ID, "x": m.X, "y": m.Y, "triggeredBy": triggeredBy,
	})
}

// triggerExplosionAt applies radial damage/knockback around (x,y) to
// every ship and bot within radius, and queues a delayed chain-reaction
// check against any remaining mines inside the blast (§4.9 "Chain
// reactions"). A mine's damage is flat (§4.4: "reduce health by 40");
// only its knockback follows the linear falloff. A rocket's damage
// also follows the falloff (§4.1 step 8).
func (r *Room) triggerExplosionAt(x, y, radius float64, maxDamage int, maxKnockback float64, triggeredBy string, isMine bool) {
	for _, id := range r.shipOrder {
		ship := r.ships[id]
		if ship.IsDead() {
			continue
		}
		dx, dy := ship.X-x, ship.Y-y
		dist := math.Hypot(dx, dy)
		if dist >= radius {
			continue
		}

		falloff := 1 - dist/radius
		damage := maxDamage
		if !isMine {
			damage = int(float64(maxDamage) * falloff)
		}
		wasAlive := !ship.IsDead()
		justDied := ship.ApplyDamage(damage)

		knock := maxKnockback * falloff
		if dist > 0.0001 {
			kvx, kvy := dx/dist*knock, dy/dist*knock
			ship.ApplyKnockback(kvx, kvy)
			r.broadcaster.Broadcast("knockback", map[string]interface{}{"userId": ship.ID, "vx": kvx, "vy": kvy})
		}

		r.eventLog.EmitSimple(EventTypeDamage, r.tickCount, ship.ID, DamagePayload{
			AttackerID: triggeredBy, VictimID: ship.ID, Damage: damage, VictimHP: ship.Health, Cause: explosionCause(isMine),
		})
		r.broadcaster.Broadcast("health:update", map[string]interface{}{
			"userId": ship.ID, "health": ship.Health, "shield": ship.Shield,
		})

		if wasAlive && justDied {
			var attacker *Ship
			if triggeredBy != "" {
				attacker = r.ships[triggeredBy]
			}
			r.onShipDeath(ship, attacker)
		}
	}

	for _, bot := range r.bots {
		if bot.IsDead() {
			continue
		}
		dx, dy := bot.X-x, bot.Y-y
		dist := math.Hypot(dx, dy)
		if dist >= radius {
			continue
		}
		falloff := 1 - dist/radius
		damage := maxDamage
		if !isMine {
			damage = int(float64(maxDamage) * falloff)
		}
		if bot.ApplyDamage(damage, r.Settings().BotHealth) {
			r.scheduleBotRespawn(bot)
		}
	}

	if isMine {
		for _, other := range r.mines {
			dx, dy := other.X-x, other.Y-y
			if math.Hypot(dx, dy) < other.TriggerRadius+radius {
				r.mineChains = append(r.mineChains, pendingMineChain{
					dueAt: nowMs() + mineChainDelayMs, x: other.X, y: other.Y,
					originalDamageRadius: other.DamageRadius, triggeredBy: triggeredBy,
				})
			}
		}
	}
}

func explosionCause(isMine bool) string {
	if isMine {
		return "mine"
	}
	return "rocket"
}

// --- phase 8: bullets vs mines, then vs ships/bots ---

// resolveBulletCollisions rebuilds the broad-phase grid from current
// alive ship positions once per tick, then narrows each bullet's
// candidate ships via QueryRadius before the precise distance check
// (spec §4.3 "Collision resolution is performed by the scheduler").
func (r *Room) resolveBulletCollisions() {
	r.grid.Clear()
	r.shipIndex = r.shipIndex[:0]
	for _, id := range r.shipOrder {
		ship := r.ships[id]
		if ship.IsDead() {
			continue
		}
		r.shipIndex = append(r.shipIndex, ship)
		r.grid.Insert(uint32(len(r.shipIndex)-1), ship.X, ship.Y)
	}

	n := 0
	for _, b := range r.bullets {
		consumed := r.resolveSingleBullet(b)
		if !consumed {
			r.bullets[n] = b
			n++
		}
	}
	r.bullets = r.bullets[:n]
}

func (r *Room) resolveSingleBullet(b *Bullet) (consumed bool) {
	for _, m := range r.mines {
		dx, dy := b.X-m.X, b.Y-m.Y
		if dx*dx+dy*dy <= m.TriggerRadius*m.TriggerRadius {
			r.detonateMine(m, b.OwnerID)
			return true
		}
	}

	for _, idx := range r.grid.QueryRadius(b.X, b.Y, bulletHitRadius) {
		ship := r.shipIndex[idx]
		if ship.ID == b.OwnerID || ship.IsDead() {
			continue
		}
		dx, dy := b.X-ship.X, b.Y-ship.Y
		if dx*dx+dy*dy > bulletHitRadius*bulletHitRadius {
			continue
		}

		if b.IsRocket {
			r.triggerExplosionAt(b.X, b.Y, rocketExplosionRadius, rocketExplosionMaxDmg, rocketExplosionMaxKnock, b.OwnerID, false)
			r.broadcaster.Broadcast("rocket:exploded", map[string]interface{}{"x": b.X, "y": b.Y})
			return true
		}

		r.applyBulletHit(ship, b)
		return true
	}

	if !b.IsBot {
		for _, bot := range r.bots {
			if bot.IsDead() {
				continue
			}
			dx, dy := b.X-bot.X, b.Y-bot.Y
			if dx*dx+dy*dy > bulletHitRadius*bulletHitRadius {
				continue
			}
			if b.IsRocket {
				r.triggerExplosionAt(b.X, b.Y, rocketExplosionRadius, rocketExplosionMaxDmg, rocketExplosionMaxKnock, b.OwnerID, false)
				r.broadcaster.Broadcast("rocket:exploded", map[string]interface{}{"x": b.X, "y": b.Y})
				return true
			}
			if bot.ApplyDamage(standardBulletDamage, r.Settings().BotHealth) {
				r.scheduleBotRespawn(bot)
			}
			return true
		}
	}

	return false
}

func (r *Room) applyBulletHit(ship *Ship, b *Bullet) {
	wasAlive := !ship.IsDead()
	justDied := ship.ApplyDamage(standardBulletDamage)

	speed := math.Hypot(b.VX, b.VY)
	if speed > 0.0001 {
		kvx, kvy := b.VX/speed*standardBulletKnockback, b.VY/speed*standardBulletKnockback
		ship.ApplyKnockback(kvx, kvy)
		r.broadcaster.Broadcast("knockback", map[string]interface{}{"userId": ship.ID, "vx": kvx, "vy": kvy})
	}

	r.eventLog.EmitSimple(EventTypeDamage, r.tickCount, ship.ID, DamagePayload{
		AttackerID: b.OwnerID, VictimID: ship.ID, Damage: standardBulletDamage, VictimHP: ship.Health, Cause: "bullet",
	})
	r.broadcaster.Broadcast("health:update", map[string]interface{}{
		"userId": ship.ID, "health": ship.Health, "shield": ship.Shield,
	})

	if wasAlive && justDied {
		var attacker *Ship
		if !b.IsBot {
			attacker = r.ships[b.OwnerID]
		}
		r.onShipDeath(ship, attacker)
	}
}

// --- death / respawn orchestration (§4.9) ---

func (r *Room) onShipDeath(victim, attacker *Ship) {
	result := CreditKill(victim, attacker)

	if result.AttackerID != "" {
		r.leaderboard.Update(result.AttackerID, attacker.Kills, attacker.Deaths)
	}
	r.leaderboard.Update(victim.ID, victim.Kills, victim.Deaths)

	r.eventLog.EmitSimple(EventTypeKill, r.tickCount, victim.ID, KillPayload{
		AttackerID: result.AttackerID, VictimID: victim.ID,
		AttackerKills: result.AttackerKills, VictimDeaths: result.VictimDeaths,
	})
	r.broadcaster.Broadcast("player:killed", map[string]interface{}{
		"victimId": victim.ID, "victimName": victim.DisplayLabel,
		"attackerId": result.AttackerID, "attackerName": attackerLabel(attacker),
	})
	if result.AttackerID != "" {
		r.broadcaster.Broadcast("kill", map[string]interface{}{
			"killerId": attacker.ID, "killerName": attacker.DisplayLabel,
			"victimId": victim.ID, "victimName": victim.DisplayLabel, "points": result.AttackerPoints,
		})
	}
	r.broadcaster.Broadcast("stats:update", map[string]interface{}{"userId": victim.ID, "kills": victim.Kills, "deaths": victim.Deaths})

	dueAt := r.respawns.Schedule(victim.ID, nowMs())
	r.broadcaster.Broadcast("player:respawn", map[string]interface{}{
		"userId": victim.ID, "x": 0, "y": 0, "respawnTime": dueAt,
	})
}

func attackerLabel(attacker *Ship) string {
	if attacker == nil {
		return ""
	}
	return attacker.DisplayLabel
}

func (r *Room) processDueRespawns(now int64) {
	for _, id := range r.respawns.Due(now) {
		ship, ok := r.ships[id]
		if !ok {
			continue
		}
		x, y := r.randomInteriorPoint()
		ship.Respawn(x, y, r.Settings().PlayerStartingHealth)

		r.eventLog.EmitSimple(EventTypeRespawn, r.tickCount, id, RespawnPayload{ShipID: id, SpawnX: x, SpawnY: y})
		r.broadcaster.Broadcast("health:update", map[string]interface{}{"userId": id, "health": ship.Health, "shield": ship.Shield})
		r.broadcaster.Broadcast("cursor:update", map[string]interface{}{"userId": id, "x": x, "y": y, "rotation": ship.Rotation})
	}
}

// botRespawnDelayMs is shorter than a player's (§3 "Bot").
const botRespawnDelayMs = 3000

func (r *Room) scheduleBotRespawn(bot *Bot) {
	bot.markDead(nowMs(), botRespawnDelayMs)
}

// --- bots (§4.6/§4.7, independent ~60ms cadence) ---

// advanceBots runs the bot AI loop. It acquires the same mutex as tick
// so bot mutations and tick mutations never interleave.
func (r *Room) advanceBots() {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := nowMs()
	halfW, halfH := r.world.Width/2, r.world.Height/2
	speed := r.Settings().BotSpeed

	for _, bot := range r.bots {
		if bot.IsDead() {
			if now >= bot.respawnDueAt {
				x, y := r.randomInteriorPoint()
				bot.X, bot.Y = x, y
				bot.Health = r.Settings().BotHealth
				bot.dead = false
			}
			continue
		}

		if bot.wander(speed, halfW, halfH) {
			// §4.7 step 2: every wander tick broadcasts cursor:update for
			// the bot, same as a ship's own movement does in applyShipPhysics.
			r.broadcaster.Broadcast("cursor:update", map[string]interface{}{
				"userId": bot.ID, "x": bot.X, "y": bot.Y, "rotation": bot.Heading, "type": "bot",
			})
		}

		if r.rng.Float64() < botFireProbability {
			r.fireBotBullet(bot)
		}
	}

	r.reconcileBotCount()
}

func (r *Room) fireBotBullet(bot *Bot) {
	r.nextBulletID++
	b := NewBullet(r.nextBulletID, bot.ID, true, bot.X, bot.Y, bot.Heading, false, false)
	r.bullets = append(r.bullets, b)
}

// reconcileBotCount adds or removes bots to match the configured
// BotCount (admin-tunable via §4.10).
func (r *Room) reconcileBotCount() {
	target := r.Settings().BotCount
	for len(r.bots) < target && len(r.bots) < r.limits.MaxBots {
		r.nextBotSeq++
		id := botIDPrefix + itoa(r.nextBotSeq)
		x, y := r.randomInteriorPoint()
		r.bots[id] = NewBot(id, id, x, y, r.Settings().BotHealth)
	}
	if len(r.bots) > target {
		excess := len(r.bots) - target
		for id := range r.bots {
			if excess <= 0 {
				break
			}
			delete(r.bots, id)
			delete(r.lasers, id)
			excess--
		}
	}
}

func itoa(n uint64) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
