package arena

import "testing"

func TestMineKnockbackFalloff(t *testing.T) {
	m := NewMine(1, 0, 0)

	center := m.knockbackAt(0)
	if center != mineKnockbackMax {
		t.Errorf("expected max knockback %v at epicentre, got %v", mineKnockbackMax, center)
	}

	edge := m.knockbackAt(m.DamageRadius)
	if edge != 0 {
		t.Errorf("expected zero knockback at damage radius edge, got %v", edge)
	}

	beyond := m.knockbackAt(m.DamageRadius * 2)
	if beyond != 0 {
		t.Errorf("expected zero knockback beyond damage radius, got %v", beyond)
	}

	half := m.knockbackAt(m.DamageRadius / 2)
	if half <= 0 || half >= mineKnockbackMax {
		t.Errorf("expected partial knockback strictly between 0 and max, got %v", half)
	}
}

func TestNewPickupWeightedDraw(t *testing.T) {
	counts := map[PickupKind]int{}
	for i := 0; i < 2000; i++ {
		p := NewPickup(uint64(i), 0, 0)
		counts[p.Kind]++
		if p.Kind == PickupWeapon {
			found := false
			for _, k := range weaponKinds {
				if k == p.WeaponKind {
					found = true
				}
			}
			if !found {
				t.Errorf("weapon pickup drew unexpected kind %s", p.WeaponKind)
			}
		}
	}

	if counts[PickupWeapon] == 0 || counts[PickupHealth] == 0 || counts[PickupShield] == 0 {
		t.Errorf("expected all three kinds to appear over 2000 draws, got %+v", counts)
	}
}
