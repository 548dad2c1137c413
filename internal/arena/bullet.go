package arena

import "math"

const (
	standardBulletSpeed    = 15.0
	rocketBulletSpeed      = 6.0
	standardBulletLifetime = 120
	rocketBulletLifetime   = 180

	bulletHitRadius = shipCollisionRadius + 3 // §4.3 collision threshold

	rocketExplosionRadius   = 150.0
	rocketExplosionMaxDmg   = 100
	rocketExplosionMaxKnock = 25.0

	standardBulletDamage = 10 // "configured damage" per §8 Kill scenario
)

// Bullet is an in-flight projectile (spec §3, "Bullet").
type Bullet struct {
	ID       uint64
	OwnerID  string
	IsBot    bool // owner is a bot, not a player ship
	X, Y     float64
	VX, VY   float64
	Lifetime int // remainingLifetimeTicks
	IsRocket bool
	IsHoming bool // steers toward the nearest live ship each tick (§4.5 HomingMissiles)
}

// NewBullet creates a bullet traveling along angle from (x, y), owned
// by ownerID (§4.3 addBullet).
func NewBullet(id uint64, ownerID string, ownerIsBot bool, x, y, angle float64, isRocket, isHoming bool) *Bullet {
	speed := standardBulletSpeed
	lifetime := standardBulletLifetime
	if isRocket {
		speed = rocketBulletSpeed
		lifetime = rocketBulletLifetime
	}

	return &Bullet{
		ID:       id,
		OwnerID:  ownerID,
		IsBot:    ownerIsBot,
		X:        x,
		Y:        y,
		VX:       math.Cos(angle) * speed,
		VY:       math.Sin(angle) * speed,
		Lifetime: lifetime,
		IsRocket: isRocket,
		IsHoming: isHoming,
	}
}

// Update integrates one tick of motion: translate, bounce off walls
// on axis crossing (snap to wall, negate that axis), and decrement
// lifetime. Returns false once the bullet should be removed.
func (b *Bullet) Update(halfWidth, halfHeight float64) (alive bool) {
	b.X += b.VX
	b.Y += b.VY

	if b.X > halfWidth {
		b.X = halfWidth
		b.VX = -b.VX
	} else if b.X < -halfWidth {
		b.X = -halfWidth
		b.VX = -b.VX
	}

	if b.Y > halfHeight {
		b.Y = halfHeight
		b.VY = -b.VY
	} else if b.Y < -halfHeight {
		b.Y = -halfHeight
		b.VY = -b.VY
	}

	b.Lifetime--
	return b.Lifetime > 0
}
