package main

import (
	"github.com/wricardo/pixel-tactics/game/engine"
)

// ActionKind is what a planned unit does after moving
type ActionKind string

const (
	ActionAttack ActionKind = "attack"
	ActionCast   ActionKind = "cast"
	ActionWait   ActionKind = "wait"
)

// Scoring weights. Friendly fire outweighs any single kill so a spell that
// hits an ally is only chosen when nothing else scores.
const (
	scoreHit          = 10
	scoreKill         = 20
	scoreFriendlyFire = -50
)

// Plan is one unit's complete turn: a move followed by an action
type Plan struct {
	UnitID  string
	MoveTo  engine.Position
	Kind    ActionKind
	SpellID string
	Target  engine.Position
	Score   int
}

// GreedyStrategy picks the best scoring action for each unit in isolation.
// It never looks past the current unit.
type GreedyStrategy struct {
	attackDamage int
}

func NewGreedyStrategy() *GreedyStrategy {
	return &GreedyStrategy{attackDamage: engine.DefaultAttackDamage}
}

// NextUnit returns the first living player unit that has not acted yet
func (s *GreedyStrategy) NextUnit(state *engine.GameState) *engine.Unit {
	for i := range state.Units {
		u := &state.Units[i]
		if u.Faction == engine.Player && u.IsLiving() && !u.HasMoved {
			return u
		}
	}
	return nil
}

// PlanUnit evaluates every reachable tile. Offensive options win on score;
// without any, the unit advances on the nearest enemy and waits.
func (s *GreedyStrategy) PlanUnit(unit engine.Unit, state *engine.GameState) Plan {
	reachable := engine.ReachableWithCost(unit, state.Units, state.Grid)

	best := Plan{UnitID: unit.ID, MoveTo: unit.Position, Kind: ActionWait}
	for _, tile := range reachable {
		units := withUnitAt(state.Units, unit.ID, tile.Position)
		moved := unit
		moved.Position = tile.Position

		for _, target := range engine.AttackTargets(moved, units, state.Grid) {
			victim := engine.LivingUnitAt(units, target)
			if victim == nil {
				continue
			}
			score := scoreHit
			if victim.HP <= s.attackDamage {
				score += scoreKill
			}
			if score > best.Score {
				best = Plan{UnitID: unit.ID, MoveTo: tile.Position, Kind: ActionAttack, Target: target, Score: score}
			}
		}

		for _, spell := range moved.Spells {
			for _, centre := range engine.SpellTargets(moved, spell, state.Grid) {
				score := scoreSpell(units, unit.Faction, spell, centre, state.Grid)
				if score > best.Score {
					best = Plan{UnitID: unit.ID, MoveTo: tile.Position, Kind: ActionCast, SpellID: spell.ID, Target: centre, Score: score}
				}
			}
		}
	}

	if best.Kind == ActionWait {
		best.MoveTo = advanceTile(unit, reachable, state.Units)
	}
	return best
}

func scoreSpell(units []engine.Unit, faction engine.Faction, spell engine.Spell, centre engine.Position, grid *engine.Grid) int {
	score := 0
	footprint := engine.SpellFootprint(centre, spell, grid)
	for _, idx := range engine.UnitsInFootprint(units, footprint) {
		u := units[idx]
		if u.Faction == faction {
			score += scoreFriendlyFire
			continue
		}
		score += scoreHit
		if u.HP <= spell.Damage {
			score += scoreKill
		}
	}
	return score
}

// advanceTile is the reachable tile closest to any living enemy, cheapest first
func advanceTile(unit engine.Unit, reachable []engine.ReachableTile, units []engine.Unit) engine.Position {
	best := unit.Position
	bestDist := nearestEnemy(unit.Position, unit.Faction, units)
	bestCost := 0
	for _, tile := range reachable {
		d := nearestEnemy(tile.Position, unit.Faction, units)
		if d < bestDist || (d == bestDist && tile.Cost < bestCost) {
			best, bestDist, bestCost = tile.Position, d, tile.Cost
		}
	}
	return best
}

func nearestEnemy(from engine.Position, faction engine.Faction, units []engine.Unit) int {
	nearest := -1
	for _, u := range units {
		if u.Faction == faction || !u.IsLiving() {
			continue
		}
		if d := engine.ManhattanDistance(from, u.Position); nearest < 0 || d < nearest {
			nearest = d
		}
	}
	if nearest < 0 {
		return 0
	}
	return nearest
}

// withUnitAt copies units with id standing on p
func withUnitAt(units []engine.Unit, id string, p engine.Position) []engine.Unit {
	out := make([]engine.Unit, len(units))
	copy(out, units)
	for i := range out {
		if out[i].ID == id {
			out[i].Position = p
		}
	}
	return out
}
