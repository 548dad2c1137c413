package arena

// WeaponKind identifies a ship's currently equipped weapon.
type WeaponKind string

const (
	MachineGun     WeaponKind = "MachineGun"
	TripleShot     WeaponKind = "TripleShot"
	Shotgun        WeaponKind = "Shotgun"
	Rocket         WeaponKind = "Rocket"
	Laser          WeaponKind = "Laser"
	HomingMissiles WeaponKind = "HomingMissiles"
)

// weaponKinds is the uniform-draw pool for a Weapon pickup (§4.5).
var weaponKinds = []WeaponKind{TripleShot, Shotgun, Rocket, Laser, HomingMissiles}

// Weapon describes a firing mode: how many projectiles a single shoot
// event produces, their angular spread, and whether the grant is
// ammo-limited.
type Weapon struct {
	Kind       WeaponKind
	Pellets    int     // projectiles fired per bullet:shoot
	Spread     float64 // total angular spread in radians across pellets
	IsRocket   bool
	IsLaser    bool
	IsHoming   bool
	StartAmmo  int // 0 means infinite (MachineGun)
}

// weapons is the fixed table of firing modes. MachineGun has infinite
// ammo; every special weapon grants exactly 3 shots (§4.5) before the
// ship reverts to MachineGun.
var weapons = map[WeaponKind]Weapon{
	MachineGun: {
		Kind:      MachineGun,
		Pellets:   1,
		StartAmmo: 0,
	},
	TripleShot: {
		Kind:      TripleShot,
		Pellets:   3,
		Spread:    0.35,
		StartAmmo: 3,
	},
	Shotgun: {
		Kind:      Shotgun,
		Pellets:   5,
		Spread:    0.7,
		StartAmmo: 3,
	},
	Rocket: {
		Kind:      Rocket,
		Pellets:   1,
		IsRocket:  true,
		StartAmmo: 3,
	},
	Laser: {
		Kind:      Laser,
		IsLaser:   true,
		StartAmmo: 3,
	},
	HomingMissiles: {
		Kind:      HomingMissiles,
		Pellets:   1,
		IsHoming:  true,
		StartAmmo: 3,
	},
}

// GetWeapon returns a weapon's firing profile, defaulting to MachineGun
// for an unrecognized kind.
func GetWeapon(kind WeaponKind) Weapon {
	if w, ok := weapons[kind]; ok {
		return w
	}
	return weapons[MachineGun]
}
