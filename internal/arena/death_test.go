package arena

import "testing"

func TestCreditKillAwardsAttackerAndVictim(t *testing.T) {
	attacker := NewShip("a", "", "Attacker", "#fff", 0, 0, 100)
	victim := NewShip("v", "", "Victim", "#000", 0, 0, 100)
	victim.PlacementPoints = 20

	result := CreditKill(victim, attacker)

	if attacker.Kills != 1 {
		t.Errorf("expected attacker.Kills=1, got %d", attacker.Kills)
	}
	if victim.Deaths != 1 {
		t.Errorf("expected victim.Deaths=1, got %d", victim.Deaths)
	}
	if attacker.PlacementPoints != 100 {
		t.Errorf("expected attacker placement +100, got %d", attacker.PlacementPoints)
	}
	if victim.PlacementPoints != 0 {
		t.Errorf("expected victim placement floored at 0, got %d", victim.PlacementPoints)
	}
	if result.AttackerID != attacker.ID {
		t.Errorf("expected result.AttackerID=%s, got %s", attacker.ID, result.AttackerID)
	}
}

func TestCreditKillSuicideGetsNoCredit(t *testing.T) {
	victim := NewShip("v", "", "Victim", "#000", 0, 0, 100)

	result := CreditKill(victim, victim)

	if victim.Kills != 0 {
		t.Errorf("expected no kill credit for suicide, got Kills=%d", victim.Kills)
	}
	if victim.Deaths != 1 {
		t.Errorf("expected death still recorded, got Deaths=%d", victim.Deaths)
	}
	if result.AttackerID != "" {
		t.Errorf("expected empty AttackerID on suicide, got %q", result.AttackerID)
	}
}

func TestCreditKillNoAttacker(t *testing.T) {
	victim := NewShip("v", "", "Victim", "#000", 0, 0, 100)

	result := CreditKill(victim, nil)

	if victim.Deaths != 1 {
		t.Errorf("expected death recorded, got %d", victim.Deaths)
	}
	if result.AttackerID != "" {
		t.Errorf("expected empty AttackerID with no attacker, got %q", result.AttackerID)
	}
}

func TestRespawnSchedulerDueFiresOnce(t *testing.T) {
	sched := NewRespawnScheduler()

	due := sched.Schedule("s1", 1000)
	if due != 1000+respawnDelayMs {
		t.Errorf("expected dueAt=%d, got %d", 1000+respawnDelayMs, due)
	}

	if got := sched.Due(1000 + respawnDelayMs - 1); len(got) != 0 {
		t.Errorf("expected nothing due early, got %v", got)
	}

	got := sched.Due(1000 + respawnDelayMs)
	if len(got) != 1 || got[0] != "s1" {
		t.Errorf("expected [s1] due, got %v", got)
	}

	if got := sched.Due(1000 + respawnDelayMs); len(got) != 0 {
		t.Errorf("expected respawn to fire exactly once, got %v", got)
	}
}

func TestRespawnSchedulerCancel(t *testing.T) {
	sched := NewRespawnScheduler()
	sched.Schedule("s1", 0)
	sched.Schedule("s2", 0)

	sched.Cancel("s1")

	got := sched.Due(respawnDelayMs)
	if len(got) != 1 || got[0] != "s2" {
		t.Errorf("expected only s2 due after cancelling s1, got %v", got)
	}
}
