package arena

import "math/rand"

const (
	pickupSpawnCadenceMs = 3000
	maxLivePickups       = 5

	pickupRadius       = 30.0
	pickupHealAmount   = 50
	pickupShieldAmount = 30

	pickupContactRadius = shipCollisionRadius + pickupRadius
)

// PickupKind is the category of a one-shot collectible (spec §3, "Pickup").
type PickupKind string

const (
	PickupWeapon PickupKind = "Weapon"
	PickupHealth PickupKind = "Health"
	PickupShield PickupKind = "Shield"
)

// Pickup is a one-shot collectible (spec §3, "Pickup").
type Pickup struct {
	ID         uint64
	X, Y       float64
	Kind       PickupKind
	WeaponKind WeaponKind // only meaningful when Kind == PickupWeapon
}

// NewPickup creates a pickup of a weighted-random kind at (x, y), per
// §4.5: Weapon 70%, Health 20%, Shield 10%, weapon uniform over the
// five special kinds.
func NewPickup(id uint64, x, y float64) *Pickup {
	p := &Pickup{ID: id, X: x, Y: y}

	roll := rand.Float64()
	switch {
	case roll < 0.70:
		p.Kind = PickupWeapon
		p.WeaponKind = weaponKinds[rand.Intn(len(weaponKinds))]
	case roll < 0.90:
		p.Kind = PickupHealth
	default:
		p.Kind = PickupShield
	}

	return p
}
