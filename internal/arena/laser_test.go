package arena

import "testing"

func TestNewLaserBeamDuration(t *testing.T) {
	beam := NewLaserBeam("s1", false, 0)

	if beam.TicksRemaining != laserDurationTicks {
		t.Errorf("expected duration %d, got %d", laserDurationTicks, beam.TicksRemaining)
	}
}

func TestLaserSegmentFollowsOrigin(t *testing.T) {
	beam := NewLaserBeam("s1", false, 0)

	x1, y1, x2, y2 := beam.segment(10, 20)

	if x1 != 10 || y1 != 20 {
		t.Errorf("expected origin (10,20), got (%v,%v)", x1, y1)
	}
	if x2 != 10+laserLength || y2 != 20 {
		t.Errorf("expected endpoint (%v,20) along angle 0, got (%v,%v)", 10+laserLength, x2, y2)
	}
}

func TestDistanceToSegmentEndpointsAndMidpoint(t *testing.T) {
	if d := distanceToSegment(0, 0, 0, 0, 100, 0); d != 0 {
		t.Errorf("expected 0 distance at segment start, got %v", d)
	}
	if d := distanceToSegment(50, 5, 0, 0, 100, 0); d != 5 {
		t.Errorf("expected perpendicular distance 5 at midpoint, got %v", d)
	}
	if d := distanceToSegment(150, 0, 0, 0, 100, 0); d != 50 {
		t.Errorf("expected clamped distance 50 past the endpoint, got %v", d)
	}
}

func TestLaserHitsShipWithinRadiusEachTick(t *testing.T) {
	r := testRoom(t)
	owner := r.AddShip("owner", "", "Owner")
	victim := r.AddShip("victim", "", "Victim")
	owner.X, owner.Y, owner.Rotation = 0, 0, 0
	victim.X, victim.Y = 100, 0

	if !r.ShootLaser("owner", 0) {
		t.Fatal("expected laser to fire")
	}

	startHealth := victim.Health
	r.mu.Lock()
	r.advanceLasers()
	r.mu.Unlock()

	if victim.Health != startHealth-laserDamagePerTick {
		t.Errorf("expected %d damage from one laser tick, health went from %d to %d", laserDamagePerTick, startHealth, victim.Health)
	}
}

func TestLaserMissesShipOutsideRadius(t *testing.T) {
	r := testRoom(t)
	owner := r.AddShip("owner", "", "Owner")
	victim := r.AddShip("victim", "", "Victim")
	owner.X, owner.Y, owner.Rotation = 0, 0, 0
	victim.X, victim.Y = 100, 200

	r.ShootLaser("owner", 0)

	startHealth := victim.Health
	r.mu.Lock()
	r.advanceLasers()
	r.mu.Unlock()

	if victim.Health != startHealth {
		t.Errorf("expected beam far off-axis to miss, health changed from %d to %d", startHealth, victim.Health)
	}
}
