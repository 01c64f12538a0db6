// Command analyze prints quick, human-readable heuristics about the level files
// in a directory (default "levels"). It summarizes dimensions, forces on each
// side, how far each player unit can move on turn 1, and what the enemy would
// do if the player ended the first turn without acting.
package main

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/wricardo/pixel-tactics/game/config"
	"github.com/wricardo/pixel-tactics/game/engine"
)

// ForceSummary totals one faction's starting roster
type ForceSummary struct {
	Units   int
	TotalHP int
	Casters int
	Ranged  int
}

// OpeningMove is an enemy's planned action on an untouched board
type OpeningMove struct {
	EnemyID  string
	Decision engine.EnemyDecision
}

// Analysis is the summary of one level
type Analysis struct {
	Name         string
	Width        int
	Height       int
	Walls        int
	MaxTurns     int
	Player       ForceSummary
	Enemy        ForceSummary
	Mobility     map[string]int // player unit id -> reachable tiles on turn 1
	ContactRange int            // smallest Manhattan distance between the two sides
	Opening      []OpeningMove
}

func main() {
	dir := "levels"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	if err := analyzeDir(os.Stdout, dir); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func analyzeDir(w io.Writer, dir string) error {
	manager, err := config.NewManager(dir)
	if err != nil {
		return err
	}

	levels, err := manager.ListLevels()
	if err != nil {
		return err
	}
	if len(levels) == 0 {
		fmt.Fprintf(w, "No levels found in %s\n", dir)
		return nil
	}

	for _, info := range levels {
		fmt.Fprintf(w, "\n=== Analyzing %s ===\n", info.Filename)
		level, err := manager.LoadLevel(info.LevelRef)
		if err != nil {
			fmt.Fprintf(w, "Error loading level: %v\n", err)
			continue
		}
		printAnalysis(w, analyzeLevel(level))
	}
	return nil
}

func summarize(units []engine.Unit, f engine.Faction) ForceSummary {
	var s ForceSummary
	for _, u := range units {
		if u.Faction != f {
			continue
		}
		s.Units++
		s.TotalHP += u.HP
		if u.HasSpells() {
			s.Casters++
		}
		if u.AttackRangeMax > 1 {
			s.Ranged++
		}
	}
	return s
}

func analyzeLevel(level *engine.LevelConfig) Analysis {
	grid := level.BuildGrid()
	units := level.Units

	a := Analysis{
		Name:         level.Name,
		Width:        level.Width,
		Height:       level.Height,
		Walls:        len(level.Walls),
		MaxTurns:     level.MaxTurns,
		Player:       summarize(units, engine.Player),
		Enemy:        summarize(units, engine.Enemy),
		Mobility:     make(map[string]int),
		ContactRange: -1,
	}

	for _, u := range units {
		if u.Faction == engine.Player {
			// The unit's own tile is always reachable; count the others
			a.Mobility[u.ID] = len(engine.ReachableTiles(u, units, grid)) - 1
		}
	}

	for _, p := range units {
		if p.Faction != engine.Player {
			continue
		}
		for _, e := range units {
			if e.Faction != engine.Enemy {
				continue
			}
			d := engine.ManhattanDistance(p.Position, e.Position)
			if a.ContactRange < 0 || d < a.ContactRange {
				a.ContactRange = d
			}
		}
	}

	for _, e := range units {
		if e.Faction == engine.Enemy {
			a.Opening = append(a.Opening, OpeningMove{
				EnemyID:  e.ID,
				Decision: engine.DecideEnemyAction(e, units, grid),
			})
		}
	}

	return a
}

func printAnalysis(w io.Writer, a Analysis) {
	fmt.Fprintf(w, "Name: %s\n", a.Name)
	fmt.Fprintf(w, "Grid Size: %d x %d (%d walls)\n", a.Width, a.Height, a.Walls)
	if a.MaxTurns > 0 {
		fmt.Fprintf(w, "Turn Limit: %d\n", a.MaxTurns)
	} else {
		fmt.Fprintf(w, "Turn Limit: none\n")
	}
	fmt.Fprintf(w, "Player: %d units, %d HP (%d ranged, %d casters)\n",
		a.Player.Units, a.Player.TotalHP, a.Player.Ranged, a.Player.Casters)
	fmt.Fprintf(w, "Enemy:  %d units, %d HP (%d ranged, %d casters)\n",
		a.Enemy.Units, a.Enemy.TotalHP, a.Enemy.Ranged, a.Enemy.Casters)
	if a.ContactRange >= 0 {
		fmt.Fprintf(w, "Closest contact: %d tiles\n", a.ContactRange)
	}

	ids := make([]string, 0, len(a.Mobility))
	for id := range a.Mobility {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if a.Mobility[id] == 0 {
			fmt.Fprintf(w, "⚠️  WARNING: %s cannot move on turn 1\n", id)
		}
	}

	attacks := 0
	for _, move := range a.Opening {
		if move.Decision.Kind == engine.EnemyAttack {
			attacks++
			fmt.Fprintf(w, "⚠️  %s can attack %s on turn 1 from (%d, %d)\n",
				move.EnemyID, move.Decision.TargetID, move.Decision.MoveTo.X, move.Decision.MoveTo.Y)
		}
	}
	if attacks == 0 {
		fmt.Fprintf(w, "✅ No enemy can attack on turn 1\n")
	}
}
