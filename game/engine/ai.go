package engine

import "sort"

// EnemyActionKind is what an enemy unit decided to do
type EnemyActionKind string

const (
	EnemyAttack EnemyActionKind = "ATTACK"
	EnemyMove   EnemyActionKind = "MOVE"
	EnemyWait   EnemyActionKind = "WAIT"
)

// EnemyDecision is a planned enemy action. The engine performs it; planning never mutates.
type EnemyDecision struct {
	Kind     EnemyActionKind `json:"kind"`
	MoveTo   Position        `json:"move_to"`
	TargetID string          `json:"target_id,omitempty"`
}

type attackOption struct {
	landing      Position
	targetID     string
	distToTarget int
	moveCost     int
}

// DecideEnemyAction picks one action for unit with a greedy heuristic:
// attack the player unit nearest the starting tile, advancing as far as possible
// among equally near options; otherwise close distance on the nearest player unit.
func DecideEnemyAction(unit Unit, units []Unit, grid *Grid) EnemyDecision {
	var players []Unit
	for _, u := range units {
		if u.Faction == Player && u.IsLiving() {
			players = append(players, u)
		}
	}
	if len(players) == 0 {
		return EnemyDecision{Kind: EnemyWait, MoveTo: unit.Position}
	}

	reachable := ReachableWithCost(unit, units, grid)

	var options []attackOption
	for _, tile := range reachable {
		simulated := unit
		simulated.Position = tile.Position
		for _, targetPos := range AttackTargets(simulated, units, grid) {
			target := LivingUnitAt(units, targetPos)
			if target == nil || target.Faction != Player {
				continue
			}
			options = append(options, attackOption{
				landing:      tile.Position,
				targetID:     target.ID,
				distToTarget: ManhattanDistance(unit.Position, target.Position),
				moveCost:     tile.Cost,
			})
		}
	}

	if len(options) > 0 {
		sort.SliceStable(options, func(i, j int) bool {
			if options[i].distToTarget != options[j].distToTarget {
				return options[i].distToTarget < options[j].distToTarget
			}
			return options[i].moveCost > options[j].moveCost
		})
		best := options[0]
		return EnemyDecision{Kind: EnemyAttack, MoveTo: best.landing, TargetID: best.targetID}
	}

	closest := players[0]
	minDist := ManhattanDistance(unit.Position, closest.Position)
	for _, p := range players[1:] {
		if d := ManhattanDistance(unit.Position, p.Position); d < minDist {
			minDist = d
			closest = p
		}
	}

	sort.SliceStable(reachable, func(i, j int) bool {
		di := ManhattanDistance(reachable[i].Position, closest.Position)
		dj := ManhattanDistance(reachable[j].Position, closest.Position)
		if di != dj {
			return di < dj
		}
		return reachable[i].Cost > reachable[j].Cost
	})
	return EnemyDecision{Kind: EnemyMove, MoveTo: reachable[0].Position, TargetID: closest.ID}
}
