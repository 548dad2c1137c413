package arena

import (
	"math"
	"testing"
)

func TestNewBotStartsAlive(t *testing.T) {
	b := NewBot("bot_1", "Bot 1", 0, 0, 60)

	if b.IsDead() {
		t.Error("new bot should not start dead")
	}
	if b.Health != 60 {
		t.Errorf("expected health 60, got %d", b.Health)
	}
}

func TestBotApplyDamageKillsExactlyOnce(t *testing.T) {
	b := NewBot("bot_1", "Bot 1", 0, 0, 60)

	var died int
	for i := 0; i < 7; i++ {
		if b.ApplyDamage(10, 60) {
			died++
		}
	}

	if died != 1 {
		t.Errorf("expected exactly one alive->dead transition, got %d", died)
	}
	if b.Health != 0 {
		t.Errorf("expected health floored at 0, got %d", b.Health)
	}
}

func TestBotApplyDamageNoOpWhileDead(t *testing.T) {
	b := NewBot("bot_1", "Bot 1", 0, 0, 60)
	b.markDead(0, botRespawnDelayMs)

	if b.ApplyDamage(10, 60) {
		t.Error("a dead bot should never report a fresh kill")
	}
}

func TestBotWanderStaysWithinBounds(t *testing.T) {
	b := NewBot("bot_1", "Bot 1", 999, 0, 60)
	b.Heading = 0

	for i := 0; i < 50; i++ {
		b.wander(2.0, 1000, 600)
	}

	if math.Abs(b.X) > 1000 || math.Abs(b.Y) > 600 {
		t.Errorf("expected bot to stay within arena bounds, got (%v, %v)", b.X, b.Y)
	}
}

func TestBotWanderNoOpWhileDead(t *testing.T) {
	b := NewBot("bot_1", "Bot 1", 0, 0, 60)
	b.markDead(0, botRespawnDelayMs)

	if b.wander(2.0, 1000, 600) {
		t.Error("a dead bot should not move")
	}
}

func TestBotRespawnDelayDiffersFromShip(t *testing.T) {
	if botRespawnDelayMs == respawnDelayMs {
		t.Errorf("bot respawn delay (%d) must differ from ship respawn delay (%d)", botRespawnDelayMs, respawnDelayMs)
	}
}
