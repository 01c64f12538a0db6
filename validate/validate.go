// Package validate checks level files before they are shipped or loaded. It
// runs the engine's structural validation and adds playability checks:
//   - both factions are present
//   - every enemy can be engaged by some player unit, walking around walls
//   - casters carry spells that can reach anything at all
package validate

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wricardo/pixel-tactics/game/engine"
)

// Result captures the outcome of validating a single file. Errors make the
// level invalid; Info is the summary printed for valid levels.
type Result struct {
	File   string
	Valid  bool
	Errors []string
	Info   []string
}

func (r *Result) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// File loads and validates a single JSON or YAML level file
func File(path string) Result {
	result := Result{
		File:   filepath.Base(path),
		Valid:  true,
		Errors: []string{},
	}

	level, err := engine.LoadLevelFile(path)
	if err != nil {
		result.fail("%v", err)
		return result
	}

	return Level(result.File, level)
}

// Level runs the playability checks on an already parsed level
func Level(name string, level *engine.LevelConfig) Result {
	result := Result{
		File:   name,
		Valid:  true,
		Errors: []string{},
	}

	if err := engine.ValidateLevelConfig(level); err != nil {
		result.fail("%v", err)
		return result
	}

	players := engine.CountFaction(level.Units, engine.Player)
	enemies := engine.CountFaction(level.Units, engine.Enemy)
	if players == 0 {
		result.fail("Level has no player units")
	}
	if enemies == 0 {
		result.fail("Level has no enemy units")
	}

	for _, u := range level.Units {
		if (u.Type == engine.Mage || u.Type == engine.Wizard) && !u.HasSpells() {
			result.Info = append(result.Info, fmt.Sprintf("! Caster %s has no spells", u.ID))
		}
	}

	if result.Valid {
		unengaged := unengagedEnemies(level)
		if len(unengaged) > 0 {
			result.fail("Connectivity failure: %d/%d enemies cannot be engaged by any player unit", len(unengaged), enemies)
			for _, id := range unengaged {
				result.Errors = append(result.Errors, fmt.Sprintf("Unreachable: %s", id))
			}
		}
	}

	if result.Valid {
		turns := "unlimited"
		if level.MaxTurns > 0 {
			turns = fmt.Sprintf("%d", level.MaxTurns)
		}
		result.Info = append(result.Info,
			fmt.Sprintf("✓ Name: %s (id %d)", level.Name, level.ID),
			fmt.Sprintf("✓ Grid: %dx%d, %d walls", level.Width, level.Height, len(level.Walls)),
			fmt.Sprintf("✓ Units: %d player, %d enemy", players, enemies),
			fmt.Sprintf("✓ Turn limit: %s", turns),
			fmt.Sprintf("✓ Connectivity: all %d enemies can be engaged", enemies),
		)
	}

	return result
}

// unengagedEnemies returns the ids of enemies no player unit can ever hit.
// Units are ignored as obstacles since they move; walls are not.
func unengagedEnemies(level *engine.LevelConfig) []string {
	grid := level.BuildGrid()
	bounds := grid.Bounds()

	var players []engine.Unit
	for _, u := range level.Units {
		if u.Faction == engine.Player {
			players = append(players, u)
		}
	}

	regions := make([]map[engine.Position]bool, len(players))
	for i, p := range players {
		regions[i] = floodFill(p.Position, grid, bounds)
	}

	var unengaged []string
	for _, e := range level.Units {
		if e.Faction != engine.Enemy {
			continue
		}
		engaged := false
		for i, p := range players {
			if canEngage(p, e.Position, regions[i], bounds) {
				engaged = true
				break
			}
		}
		if !engaged {
			unengaged = append(unengaged, e.ID)
		}
	}

	sort.Strings(unengaged)
	return unengaged
}

// canEngage reports whether unit p, standing anywhere in region, reaches target
// with an attack or the footprint of one of its spells
func canEngage(p engine.Unit, target engine.Position, region map[engine.Position]bool, bounds engine.Bounds) bool {
	for tile := range region {
		d := engine.ManhattanDistance(tile, target)
		if d >= p.AttackRangeMin && d <= p.AttackRangeMax && d > 0 {
			return true
		}
		for _, s := range p.Spells {
			for _, centre := range engine.TilesInRange(tile, 0, s.Range, bounds) {
				if engine.ChebyshevDistance(centre, target) <= s.Radius {
					return true
				}
			}
		}
	}
	return false
}

// floodFill collects every open tile connected to start
func floodFill(start engine.Position, grid *engine.Grid, bounds engine.Bounds) map[engine.Position]bool {
	visited := map[engine.Position]bool{start: true}
	queue := []engine.Position{start}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, next := range engine.Neighbors(current, bounds) {
			if visited[next] || grid.TerrainAt(next) == engine.Closed {
				continue
			}
			visited[next] = true
			queue = append(queue, next)
		}
	}
	return visited
}

// Dir validates every level file in dir, sorted by name
func Dir(dir string) ([]Result, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read level directory: %w", err)
	}

	var results []Result
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, err := engine.FormatForPath(entry.Name()); err != nil {
			continue
		}
		results = append(results, File(filepath.Join(dir, entry.Name())))
	}

	sort.Slice(results, func(i, j int) bool { return results[i].File < results[j].File })
	return results, nil
}

// Report prints a concise report and returns whether every level is valid
func Report(w io.Writer, results []Result) bool {
	allValid := true
	for _, result := range results {
		fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Fprintln(w, "✅ VALID")
			for _, info := range result.Info {
				fmt.Fprintln(w, "  "+info)
			}
		} else {
			fmt.Fprintln(w, "❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				fmt.Fprintln(w, "  ❌ "+err)
			}
		}
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Fprintln(w, "✅ All levels are valid!")
	} else {
		fmt.Fprintln(w, "❌ Some levels have errors")
	}
	return allValid
}
