package arena

import "testing"

func TestNewShipDefaults(t *testing.T) {
	s := NewShip("s1", "", "Nova", "#ff0000", 10, 20, 100)

	if s.Health != 100 {
		t.Errorf("expected health 100, got %d", s.Health)
	}
	if s.ActiveWeapon != MachineGun {
		t.Errorf("expected default weapon MachineGun, got %s", s.ActiveWeapon)
	}
	if s.IsDead() {
		t.Error("new ship should not be dead")
	}
}

func TestShipApplyDamageDrainsShieldFirst(t *testing.T) {
	s := NewShip("s1", "", "Nova", "#ff0000", 0, 0, 100)
	s.Shield = 30

	justDied := s.ApplyDamage(20)

	if justDied {
		t.Fatal("ship should still be alive")
	}
	if s.Shield != 10 {
		t.Errorf("expected shield 10 after absorbing 20, got %d", s.Shield)
	}
	if s.Health != 100 {
		t.Errorf("expected health untouched at 100, got %d", s.Health)
	}

	justDied = s.ApplyDamage(40)
	if justDied {
		t.Fatal("ship should still be alive")
	}
	if s.Shield != 0 {
		t.Errorf("expected shield fully drained, got %d", s.Shield)
	}
	if s.Health != 70 {
		t.Errorf("expected health 70 after shield exhausted and 30 dmg through, got %d", s.Health)
	}
}

func TestShipApplyDamageKillsExactlyOnce(t *testing.T) {
	s := NewShip("s1", "", "Nova", "#ff0000", 0, 0, 100)

	var died int
	for i := 0; i < 10; i++ {
		if s.ApplyDamage(10) {
			died++
		}
	}

	if died != 1 {
		t.Errorf("expected exactly one alive->dead transition, got %d", died)
	}
	if s.Health != 0 {
		t.Errorf("expected health 0, got %d", s.Health)
	}
	if !s.IsDead() {
		t.Error("ship should be dead")
	}
}

func TestShipApplyPhysicsFrictionAndRest(t *testing.T) {
	s := NewShip("s1", "", "Nova", "#ff0000", 0, 0, 100)
	s.VX, s.VY = 0.015, 0

	moved := s.ApplyPhysics(1000, 600)
	if !moved {
		t.Error("expected non-trivial speed this tick")
	}

	for i := 0; i < 20; i++ {
		s.ApplyPhysics(1000, 600)
	}
	if s.VX != 0 || s.VY != 0 {
		t.Errorf("expected velocity to settle to zero, got (%v, %v)", s.VX, s.VY)
	}
}

func TestShipApplyPhysicsWallBounce(t *testing.T) {
	s := NewShip("s1", "", "Nova", "#ff0000", 995, 0, 100)
	s.VX = 10

	s.ApplyPhysics(1000, 600)

	if s.X != 1000 {
		t.Errorf("expected x clamped to 1000, got %v", s.X)
	}
	if s.VX >= 0 {
		t.Errorf("expected velocity reflected negative after wall bounce, got %v", s.VX)
	}
}

func TestShipApplyPhysicsSpeedCap(t *testing.T) {
	s := NewShip("s1", "", "Nova", "#ff0000", 0, 0, 100)
	s.VX = 1000

	s.ApplyPhysics(2000, 1200)

	speed := s.VX*s.VX + s.VY*s.VY
	if speed > shipMaxSpeed*shipMaxSpeed+0.001 {
		t.Errorf("expected speed capped at %v, got %v", shipMaxSpeed, speed)
	}
}

func TestShipRespawnResetsState(t *testing.T) {
	s := NewShip("s1", "", "Nova", "#ff0000", 0, 0, 100)
	s.Health = 0
	s.Shield = 30
	s.ActiveWeapon = Rocket
	s.VX, s.VY = 5, 5

	s.Respawn(42, 17, 100)

	if s.Health != 100 || s.Shield != 0 || s.ActiveWeapon != MachineGun {
		t.Errorf("respawn did not reset state: %+v", s)
	}
	if s.X != 42 || s.Y != 17 {
		t.Errorf("respawn did not relocate: (%v, %v)", s.X, s.Y)
	}
	if s.VX != 0 || s.VY != 0 {
		t.Errorf("respawn did not zero velocity: (%v, %v)", s.VX, s.VY)
	}
}

func TestShipMoveToClampsToBounds(t *testing.T) {
	s := NewShip("s1", "", "Nova", "#ff0000", 0, 0, 100)

	s.MoveTo(5000, -5000, 1.5, 1000, 600)

	if s.X != 1000 || s.Y != -600 {
		t.Errorf("expected clamp to (1000, -600), got (%v, %v)", s.X, s.Y)
	}
	if s.Rotation != 1.5 {
		t.Errorf("expected rotation 1.5, got %v", s.Rotation)
	}
}
