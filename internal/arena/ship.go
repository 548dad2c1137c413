package arena

import "math"

const (
	shipCollisionRadius = 25.0
	shipMaxSpeed        = 15.0
	shipFriction        = 0.92
	shipRestSpeed       = 0.01 // below this, velocity snaps to zero
	wallBounceDamping   = -0.5 // velocity reflection factor off a wall
)

// Ship is a connected player's entity (spec §3, "Ship (player)").
type Ship struct {
	ID                string `json:"id"`
	ExternalPlayerKey string `json:"-"` // opaque hub identity, empty if absent
	DisplayLabel      string `json:"label"`
	Color             string `json:"color"`

	X, Y     float64 `json:"-"`
	Rotation float64 `json:"-"`
	VX, VY   float64 `json:"-"`

	Health int `json:"health"`
	Shield int `json:"shield"`

	ActiveWeapon WeaponKind `json:"activeWeapon"`
	Ammo         int        `json:"-"` // 0 and ActiveWeapon != MachineGun means exhausted next shot

	Kills           int  `json:"kills"`
	Deaths          int  `json:"deaths"`
	PlacementPoints int  `json:"-"`
	ScoreSubmitted  bool `json:"-"`
}

// NewShip creates a ship at the given spawn point with default state.
func NewShip(id, externalKey, label, color string, x, y float64, startingHealth int) *Ship {
	return &Ship{
		ID:                id,
		ExternalPlayerKey: externalKey,
		DisplayLabel:      label,
		Color:             color,
		X:                 x,
		Y:                 y,
		Health:            clampInt(startingHealth, 0, 100),
		ActiveWeapon:      MachineGun,
	}
}

// IsDead reports whether the ship's health has reached zero. A dead
// ship does not move, shoot, or collide with projectiles (§3).
func (s *Ship) IsDead() bool {
	return s.Health <= 0
}

// clampInt clamps an int to [lo, hi].
func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// clampFloat clamps a float64 to [lo, hi].
func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// MoveTo sets position and rotation from an authoritative input,
// clamping to the map's half-extents (§4.2 "move ship").
func (s *Ship) MoveTo(x, y, rotation, halfWidth, halfHeight float64) {
	s.X = clampFloat(x, -halfWidth, halfWidth)
	s.Y = clampFloat(y, -halfHeight, halfHeight)
	s.Rotation = rotation
}

// ApplyKnockback adds an instantaneous velocity delta, e.g. from a
// bullet hit, mine blast, or rocket explosion.
func (s *Ship) ApplyKnockback(dvx, dvy float64) {
	s.VX += dvx
	s.VY += dvy
}

// ApplyPhysics integrates one tick of ship physics: velocity, friction,
// speed cap, and wall bounce (§4.2 "Ship physics (per tick)").
// Returns true if the ship's speed this tick is non-trivial, so the
// scheduler knows to broadcast a cursor:update for it.
func (s *Ship) ApplyPhysics(halfWidth, halfHeight float64) (moved bool) {
	if s.IsDead() {
		return false
	}

	s.X += s.VX
	s.Y += s.VY

	s.VX *= shipFriction
	s.VY *= shipFriction

	speed := math.Hypot(s.VX, s.VY)
	if speed < shipRestSpeed {
		s.VX, s.VY = 0, 0
	} else if speed > shipMaxSpeed {
		s.VX = (s.VX / speed) * shipMaxSpeed
		s.VY = (s.VY / speed) * shipMaxSpeed
	}

	if s.X > halfWidth {
		s.X = halfWidth
		s.VX *= wallBounceDamping
	} else if s.X < -halfWidth {
		s.X = -halfWidth
		s.VX *= wallBounceDamping
	}

	if s.Y > halfHeight {
		s.Y = halfHeight
		s.VY *= wallBounceDamping
	} else if s.Y < -halfHeight {
		s.Y = -halfHeight
		s.VY *= wallBounceDamping
	}

	return math.Hypot(s.VX, s.VY) > shipRestSpeed
}

// SetHealth clamps and assigns health (§4.2 "set health").
func (s *Ship) SetHealth(h int) {
	s.Health = clampInt(h, 0, 100)
}

// ApplyDamage reduces health after first draining shield, per the
// powerup system's absorb rule (§4.5 "Shield").  Returns whether the
// ship just transitioned from alive to dead.
func (s *Ship) ApplyDamage(amount int) (justDied bool) {
	wasAlive := !s.IsDead()

	if s.Shield > 0 {
		absorbed := amount
		if absorbed > s.Shield {
			absorbed = s.Shield
		}
		s.Shield -= absorbed
		amount -= absorbed
	}

	if amount > 0 {
		s.SetHealth(s.Health - amount)
	}

	return wasAlive && s.IsDead()
}

// Respawn resets the ship to full health, default weapon, and a fresh
// position (§4.9 step 3).
func (s *Ship) Respawn(x, y float64, startingHealth int) {
	s.X, s.Y = x, y
	s.VX, s.VY = 0, 0
	s.Health = clampInt(startingHealth, 0, 100)
	s.Shield = 0
	s.ActiveWeapon = MachineGun
	s.Ammo = 0
}
