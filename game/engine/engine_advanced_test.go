package engine

import (
	"context"
	"testing"
)

func TestEndTurnEnemyAdvancesAndAttacks(t *testing.T) {
	player := testUnit("k1", Knight, Player, 0, 0)
	player.HP, player.MaxHP = 2, 2
	e := startEngine(t, testLevel(5, 1, player, testUnit("e1", Knight, Enemy, 4, 0)))

	e.SelectUnit("k1")
	e.Wait("k1")
	if err := e.EndTurn(context.Background()); err != nil {
		t.Fatalf("EndTurn failed: %v", err)
	}

	state := e.State()
	if got := state.UnitByID("e1").Position; got != (Position{X: 1, Y: 0}) {
		t.Errorf("Expected enemy to advance to (1,0), got %v", got)
	}
	if got := state.UnitByID("e1").Facing; got != FacingLeft {
		t.Errorf("Expected enemy facing LEFT, got %q", got)
	}
	if hp := state.UnitByID("k1").HP; hp != 1 {
		t.Errorf("Expected player hit down to 1 HP, got %d", hp)
	}
	if state.Turn != 2 {
		t.Errorf("Expected turn 2, got %d", state.Turn)
	}
	if state.ActiveFaction != Player {
		t.Errorf("Expected control back with PLAYER, got %s", state.ActiveFaction)
	}
	if state.Message != "Turn 2 started." {
		t.Errorf("Unexpected message %q", state.Message)
	}
	for _, u := range state.Units {
		if u.HasMoved {
			t.Errorf("Unit %s should be ready at the start of a turn", u.ID)
		}
	}
	if state.HistoryDepth != 0 {
		t.Errorf("History should be cleared at turn boundaries, depth %d", state.HistoryDepth)
	}
	if e.Undo() {
		t.Error("Nothing from the previous turn should be undoable")
	}
}

func TestEndTurnEnemyWipesPlayer(t *testing.T) {
	var outcome *GameState
	e := startEngine(t, testLevel(3, 1,
		testUnit("k1", Knight, Player, 0, 0),
		testUnit("e1", Knight, Enemy, 2, 0),
	), WithOutcomeHook(func(s *GameState) { outcome = s }))

	if err := e.EndTurn(context.Background()); err != nil {
		t.Fatalf("EndTurn failed: %v", err)
	}
	state := e.State()
	if state.Status != StatusDefeat {
		t.Errorf("Expected DEFEAT, got %s", state.Status)
	}
	if state.Message != "All units lost." {
		t.Errorf("Unexpected message %q", state.Message)
	}
	if state.Turn != 1 {
		t.Errorf("Turn should not advance after defeat, got %d", state.Turn)
	}
	if state.Busy {
		t.Error("Busy flag should clear after the enemy turn")
	}
	if outcome == nil || outcome.Status != StatusDefeat {
		t.Error("Expected outcome hook with DEFEAT")
	}
}

func TestEndTurnEnemiesActInRosterOrder(t *testing.T) {
	// Both enemies want the tile next to k1; the first in roster order takes it
	player := testUnit("k1", Knight, Player, 0, 0)
	player.HP, player.MaxHP = 5, 5
	e := startEngine(t, testLevel(6, 1,
		player,
		testUnit("e1", Knight, Enemy, 3, 0),
		testUnit("e2", Knight, Enemy, 5, 0),
	))

	if err := e.EndTurn(context.Background()); err != nil {
		t.Fatalf("EndTurn failed: %v", err)
	}
	state := e.State()
	if got := state.UnitByID("e1").Position; got != (Position{X: 1, Y: 0}) {
		t.Errorf("Expected e1 at (1,0), got %v", got)
	}
	if got := state.UnitByID("e2").Position; got != (Position{X: 2, Y: 0}) {
		t.Errorf("Expected e2 to stop behind e1 at (2,0), got %v", got)
	}
	if hp := state.UnitByID("k1").HP; hp != 4 {
		t.Errorf("Expected one hit on k1, got hp %d", hp)
	}
}

func TestEndTurnSkipsPendingRemoval(t *testing.T) {
	e := startEngine(t, testLevel(4, 1,
		testUnit("k1", Knight, Player, 0, 0),
		testUnit("e1", Knight, Enemy, 1, 0),
		testUnit("e2", Dummy, Enemy, 3, 0),
	))

	e.SelectUnit("k1")
	e.ResolveAttack("k1", Position{X: 1, Y: 0})
	if err := e.EndTurn(context.Background()); err != nil {
		t.Fatalf("EndTurn failed: %v", err)
	}

	state := e.State()
	if hp := state.UnitByID("k1").HP; hp != 1 {
		t.Errorf("A unit awaiting removal must not act, k1 hp %d", hp)
	}
	if state.Status != StatusPlaying {
		t.Errorf("Expected game to continue, got %s", state.Status)
	}
}

func TestLegacyCasterMenu(t *testing.T) {
	wizard := testUnit("w1", Wizard, Player, 0, 0)
	wizard.Spells = []Spell{fireball()}
	e := startEngine(t, testLevel(6, 6, wizard, testUnit("e1", Knight, Enemy, 5, 5)), WithLegacyCasterMenu())

	e.SelectUnit("w1")
	if !e.MoveSelectedUnit(Position{X: 1, Y: 0}) {
		t.Fatal("Move failed")
	}

	steps := []struct {
		name     string
		action   func() bool
		wantMode InteractionMode
		wantMsg  string
	}{
		{"caster gets action menu after moving", func() bool { return true }, ModeActionSelect, "Choose action."},
		{"attack from menu", e.EnterAttackTargeting, ModeTargetingAttack, "Select a target."},
		{"undo returns to menu", e.Undo, ModeActionSelect, "Choose action."},
		{"open spells", e.EnterSpellMenu, ModeSpellMenu, "Select a spell."},
		{"pick fireball", func() bool { return e.EnterSpellTargeting("fireball") }, ModeTargetingSpell, "Select target for Fireball."},
		{"undo to spell list", e.Undo, ModeSpellMenu, "Select a spell."},
		{"undo to action menu", e.Undo, ModeActionSelect, "Choose action."},
		{"undo cancels the move", e.Undo, ModeMovement, "w1 selected."},
	}

	for _, step := range steps {
		if !step.action() {
			t.Fatalf("%s: action refused", step.name)
		}
		state := e.State()
		if state.Mode != step.wantMode {
			t.Errorf("%s: mode = %s, want %s", step.name, state.Mode, step.wantMode)
		}
		if state.Message != step.wantMsg {
			t.Errorf("%s: message = %q, want %q", step.name, state.Message, step.wantMsg)
		}
	}

	if got := e.State().UnitByID("w1").Position; got != (Position{X: 0, Y: 0}) {
		t.Errorf("Expected wizard back at origin, got %v", got)
	}
}

func TestSpellMenuUndoChain(t *testing.T) {
	wizard := testUnit("w1", Wizard, Player, 0, 0)
	wizard.Spells = []Spell{fireball()}
	e := startEngine(t, testLevel(6, 6, wizard, testUnit("e1", Knight, Enemy, 5, 5)))

	e.SelectUnit("w1")
	e.MoveSelectedUnit(Position{X: 0, Y: 1})
	if mode := e.State().Mode; mode != ModeTargetingAttack {
		t.Fatalf("Casters default to attack targeting, got %s", mode)
	}

	if e.EnterSpellTargeting("fireball") {
		t.Error("Spell targeting requires the spell menu")
	}
	if !e.EnterSpellMenu() {
		t.Fatal("EnterSpellMenu failed")
	}
	if e.EnterSpellTargeting("lightning") {
		t.Error("Unknown spell should be refused")
	}
	e.EnterSpellTargeting("fireball")

	state := e.State()
	if state.SelectedSpell == nil || state.SelectedSpell.ID != "fireball" {
		t.Fatalf("Expected fireball selected, got %+v", state.SelectedSpell)
	}
	if !ContainsPosition(state.ActionTargets, Position{X: 0, Y: 1}) {
		t.Error("Spell range starts at distance 0")
	}

	wantModes := []InteractionMode{ModeSpellMenu, ModeTargetingAttack, ModeMovement}
	for i, want := range wantModes {
		e.Undo()
		if got := e.State().Mode; got != want {
			t.Errorf("undo %d: mode = %s, want %s", i+1, got, want)
		}
	}
	if got := e.State().UnitByID("w1").Position; got != (Position{X: 0, Y: 0}) {
		t.Errorf("Expected wizard back at origin, got %v", got)
	}
}

func TestSpellMenuRequiresSpells(t *testing.T) {
	e := startEngine(t, testLevel(3, 3,
		testUnit("k1", Knight, Player, 0, 0),
		testUnit("e1", Knight, Enemy, 2, 2),
	))
	e.SelectUnit("k1")
	if e.EnterSpellMenu() {
		t.Error("Knight has no spells")
	}
}

func TestClickTileDispatch(t *testing.T) {
	ctx := context.Background()
	enemy := testUnit("e1", Knight, Enemy, 3, 0)
	enemy.HP, enemy.MaxHP = 2, 2
	e := startEngine(t, testLevel(5, 5,
		testUnit("k1", Knight, Player, 0, 0),
		testUnit("k2", Knight, Player, 0, 4),
		enemy,
	))

	steps := []struct {
		name     string
		pos      Position
		want     ClickAction
		wantMode InteractionMode
	}{
		{"empty tile with no selection", Position{X: 4, Y: 4}, ClickIgnored, ModeMovement},
		{"select friendly", Position{X: 0, Y: 0}, ClickSelect, ModeMovement},
		{"switch selection", Position{X: 0, Y: 4}, ClickSelect, ModeMovement},
		{"unreachable tile deselects", Position{X: 4, Y: 0}, ClickDeselect, ModeMovement},
		{"reselect", Position{X: 0, Y: 0}, ClickSelect, ModeMovement},
		{"move", Position{X: 2, Y: 0}, ClickMove, ModeTargetingAttack},
		{"attack enemy", Position{X: 3, Y: 0}, ClickAttack, ModeMovement},
	}

	for _, step := range steps {
		res, err := e.ClickTile(ctx, step.pos)
		if err != nil {
			t.Fatalf("%s: %v", step.name, err)
		}
		if res.Action != step.want {
			t.Errorf("%s: action = %s, want %s", step.name, res.Action, step.want)
		}
		if mode := e.State().Mode; mode != step.wantMode {
			t.Errorf("%s: mode = %s, want %s", step.name, mode, step.wantMode)
		}
	}

	if hp := e.State().UnitByID("e1").HP; hp != 1 {
		t.Errorf("Expected enemy hit, hp %d", hp)
	}
}

func TestClickTileMoveInPlaceAndForfeit(t *testing.T) {
	ctx := context.Background()
	e := startEngine(t, testLevel(5, 5,
		testUnit("k1", Knight, Player, 0, 0),
		testUnit("e1", Knight, Enemy, 4, 4),
	))

	e.ClickTile(ctx, Position{X: 0, Y: 0})
	res, _ := e.ClickTile(ctx, Position{X: 0, Y: 0})
	if res.Action != ClickMove {
		t.Fatalf("Clicking the selected unit should move in place, got %s", res.Action)
	}

	res, _ = e.ClickTile(ctx, Position{X: 2, Y: 2})
	if res.Action != ClickWait || res.Attack == nil || !res.Attack.Forfeited {
		t.Errorf("Clicking a non-target should forfeit, got %+v", res)
	}
	if !e.State().UnitByID("k1").HasMoved {
		t.Error("Forfeit should end the unit's action")
	}
}

func TestClickTileSpellTargeting(t *testing.T) {
	ctx := context.Background()
	wizard := testUnit("w1", Wizard, Player, 0, 0)
	wizard.Spells = []Spell{fireball()}
	e := startEngine(t, testLevel(8, 8, wizard, testUnit("e1", Knight, Enemy, 2, 0), testUnit("e2", Knight, Enemy, 7, 7)))

	e.SelectUnit("w1")
	e.EnterSpellMenu()
	if res, _ := e.ClickTile(ctx, Position{X: 2, Y: 0}); res.Action != ClickIgnored {
		t.Errorf("Clicks in the spell menu are ignored, got %s", res.Action)
	}

	e.EnterSpellTargeting("fireball")
	res, _ := e.ClickTile(ctx, Position{X: 7, Y: 7})
	if res.Action != ClickCancel {
		t.Errorf("Out of range click should cancel, got %s", res.Action)
	}
	if mode := e.State().Mode; mode != ModeSpellMenu {
		t.Errorf("Expected SPELL_MENU after cancel, got %s", mode)
	}

	e.EnterSpellTargeting("fireball")
	res, _ = e.ClickTile(ctx, Position{X: 2, Y: 0})
	if res.Action != ClickCast || res.Spell == nil || len(res.Spell.KilledIDs) != 1 {
		t.Errorf("Expected a cast killing e1, got %+v", res)
	}
	if e.State().UnitByID("e1") != nil {
		t.Error("e1 should be removed after the cast sequence")
	}
}

func TestClickTileActionSelectWaits(t *testing.T) {
	wizard := testUnit("w1", Wizard, Player, 0, 0)
	wizard.Spells = []Spell{fireball()}
	e := startEngine(t, testLevel(5, 5, wizard, testUnit("e1", Knight, Enemy, 4, 4)), WithLegacyCasterMenu())

	e.SelectUnit("w1")
	e.MoveSelectedUnit(Position{X: 1, Y: 1})
	res, err := e.ClickTile(context.Background(), Position{X: 3, Y: 3})
	if err != nil {
		t.Fatalf("ClickTile failed: %v", err)
	}
	if res.Action != ClickWait {
		t.Errorf("Expected wait, got %s", res.Action)
	}
	if !e.State().UnitByID("w1").HasMoved {
		t.Error("Wizard should have ended its action")
	}
}

func TestClickTileOutsidePlay(t *testing.T) {
	e := NewEngine()
	res, err := e.ClickTile(context.Background(), Position{X: 0, Y: 0})
	if err != nil {
		t.Fatalf("ClickTile failed: %v", err)
	}
	if res.Action != ClickIgnored {
		t.Errorf("Expected ignored at the menu, got %s", res.Action)
	}
}
