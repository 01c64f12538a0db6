package engine

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestTerrainMoveCost(t *testing.T) {
	if Open.MoveCost() != OpenMoveCost {
		t.Errorf("Open cost = %d", Open.MoveCost())
	}
	if Closed.MoveCost() != BlockedMoveCost {
		t.Errorf("Closed cost = %d", Closed.MoveCost())
	}
}

func TestFactionOpponent(t *testing.T) {
	if Player.Opponent() != Enemy || Enemy.Opponent() != Player {
		t.Error("Opponent should swap factions")
	}
}

func TestUnitIsLiving(t *testing.T) {
	tests := []struct {
		name string
		unit Unit
		want bool
	}{
		{"healthy", Unit{HP: 1, Status: StatusAlive}, true},
		{"status unset", Unit{HP: 1}, true},
		{"zero hp", Unit{HP: 0, Status: StatusAlive}, false},
		{"pending removal", Unit{HP: 1, Status: StatusPendingRemoval}, false},
		{"removed", Unit{HP: 1, Status: StatusRemoved}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.unit.IsLiving(); got != tt.want {
				t.Errorf("IsLiving() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUnitTypeValid(t *testing.T) {
	for _, typ := range []UnitType{Knight, Archer, Mage, Wizard, Dummy} {
		if !typ.Valid() {
			t.Errorf("%s should be valid", typ)
		}
	}
	if UnitType("DRAGON").Valid() {
		t.Error("DRAGON should be invalid")
	}
}

func TestGameStateCloneIsDeep(t *testing.T) {
	spell := fireball()
	focus := Position{X: 1, Y: 1}
	s := &GameState{
		Grid:          NewGrid(2, 2),
		Units:         []Unit{{ID: "w1", HP: 1, Spells: []Spell{spell}}},
		SelectedSpell: &spell,
		AttackRange:   []Position{{X: 1, Y: 0}},
		Visual:        &VisualEvent{CameraFocus: &focus, DyingUnitIDs: []string{"e1"}},
	}

	c := s.Clone()
	c.Units[0].Spells[0].Damage = 5
	c.SelectedSpell.Damage = 5
	c.AttackRange[0].X = 9
	c.Visual.CameraFocus.X = 9
	c.Visual.DyingUnitIDs[0] = "zz"
	c.Grid.SetTerrain(Position{}, Closed)

	if s.Units[0].Spells[0].Damage != 1 || s.SelectedSpell.Damage != 1 {
		t.Error("Spells must be copied")
	}
	if s.AttackRange[0].X != 1 || s.Visual.CameraFocus.X != 1 || s.Visual.DyingUnitIDs[0] != "e1" {
		t.Error("Positions and visual data must be copied")
	}
	if s.Grid.TerrainAt(Position{}) != Open {
		t.Error("Grid must be copied")
	}
}

func TestGameStateJSON(t *testing.T) {
	e := startEngine(t, testLevel(2, 2, testUnit("k1", Knight, Player, 0, 0)))
	data, err := json.Marshal(e.State())
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	out := string(data)
	for _, key := range []string{`"status":"PLAYING"`, `"active_faction":"PLAYER"`, `"reachable_tiles":[]`, `"maxHp":1`} {
		if !strings.Contains(out, key) {
			t.Errorf("Expected %s in %s", key, out)
		}
	}
}
