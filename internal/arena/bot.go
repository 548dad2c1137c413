package arena

import (
	"math"
	"math/rand"
)

const botIDPrefix = "bot_"

// Bot is a server-simulated NPC ship (spec §3, "Bot").
type Bot struct {
	ID      string  `json:"id"`
	Label   string  `json:"label"`
	X, Y    float64 `json:"-"`
	Heading float64 `json:"-"`
	Health  int     `json:"health"`

	dead         bool
	respawnDueAt int64 // unix millis; valid only while dead
}

// NewBot creates a live bot at the given position.
func NewBot(id, label string, x, y float64, health int) *Bot {
	return &Bot{
		ID:      id,
		Label:   label,
		X:       x,
		Y:       y,
		Heading: rand.Float64() * math.Pi * 2,
		Health:  health,
	}
}

// IsDead reports whether the bot is awaiting respawn.
func (b *Bot) IsDead() bool {
	return b.dead
}

// ApplyDamage reduces the bot's health, clamped to [0, maxHealth].
// Returns true if this call kills the bot.
func (b *Bot) ApplyDamage(amount, maxHealth int) (justDied bool) {
	if b.dead {
		return false
	}
	wasAlive := b.Health > 0
	b.Health = clampInt(b.Health-amount, 0, maxHealth)
	return wasAlive && b.Health <= 0
}

// markDead transitions the bot to dead and schedules its respawn
// `delayMs` from `nowMs` (§3 "on death, schedules its own respawn
// 3000 ms later in a random position").
func (b *Bot) markDead(nowMs, delayMs int64) {
	b.dead = true
	b.respawnDueAt = nowMs + delayMs
}

// wander perturbs heading and steps the bot forward, reflecting off
// walls (§4.7 step 2). Returns true whenever a live bot was stepped,
// false for a dead bot.
func (b *Bot) wander(speed, halfWidth, halfHeight float64) (moved bool) {
	if b.dead {
		return false
	}

	if rand.Float64() < 0.25 {
		b.Heading += (rand.Float64()*2 - 1) * 0.4
	}

	step := speed * (1.0 + rand.Float64()*1.2) // U(1.0, 2.2) factor
	nx := b.X + math.Cos(b.Heading)*step
	ny := b.Y + math.Sin(b.Heading)*step

	if nx > halfWidth || nx < -halfWidth {
		b.Heading = math.Pi - b.Heading
		nx = clampFloat(nx, -halfWidth, halfWidth)
	}
	if ny > halfHeight || ny < -halfHeight {
		b.Heading = -b.Heading
		ny = clampFloat(ny, -halfHeight, halfHeight)
	}

	b.X, b.Y = nx, ny
	return true
}
