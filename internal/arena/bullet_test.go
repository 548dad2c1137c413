package arena

import "testing"

func TestNewBulletStandardVsRocket(t *testing.T) {
	std := NewBullet(1, "s1", false, 0, 0, 0, false, false)
	if std.Lifetime != standardBulletLifetime {
		t.Errorf("expected standard lifetime %d, got %d", standardBulletLifetime, std.Lifetime)
	}

	rocket := NewBullet(2, "s1", false, 0, 0, 0, true, false)
	if rocket.Lifetime != rocketBulletLifetime {
		t.Errorf("expected rocket lifetime %d, got %d", rocketBulletLifetime, rocket.Lifetime)
	}
	if rocket.VX >= std.VX {
		t.Errorf("expected rocket slower than standard bullet, got rocket.VX=%v std.VX=%v", rocket.VX, std.VX)
	}
}

func TestBulletBouncesOffWalls(t *testing.T) {
	b := NewBullet(1, "s1", false, 995, 0, 0, false, false)
	b.VX = 20

	b.Update(1000, 600)

	if b.X != 1000 {
		t.Errorf("expected x snapped to wall at 1000, got %v", b.X)
	}
	if b.VX >= 0 {
		t.Errorf("expected vx reflected negative, got %v", b.VX)
	}
}

func TestBulletExpiresAtZeroLifetime(t *testing.T) {
	b := NewBullet(1, "s1", false, 0, 0, 0, false, false)
	b.Lifetime = 1

	alive := b.Update(1000, 600)

	if alive {
		t.Error("expected bullet to expire once lifetime reaches 0")
	}
}
