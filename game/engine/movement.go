package engine

// ReachableTile is a legal destination together with the cheapest path cost found to it
type ReachableTile struct {
	Position Position `json:"position"`
	Cost     int      `json:"cost"`
}

// ReachableTiles returns every tile the unit may end its move on, in discovery
// order. The unit's own tile is always first.
func ReachableTiles(unit Unit, units []Unit, grid *Grid) []Position {
	tiles := ReachableWithCost(unit, units, grid)
	out := make([]Position, len(tiles))
	for i, t := range tiles {
		out[i] = t.Position
	}
	return out
}

// ReachableWithCost runs a breadth-first search bounded by the unit's movement
// budget. Living enemies block the search outright. Living allies may be walked
// through but never landed on.
func ReachableWithCost(unit Unit, units []Unit, grid *Grid) []ReachableTile {
	start := unit.Position
	budget := unit.MoveRange
	result := []ReachableTile{{Position: start, Cost: 0}}
	if grid == nil {
		return result
	}

	bounds := grid.Bounds()
	visited := map[Position]bool{start: true}
	queue := []ReachableTile{{Position: start, Cost: 0}}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, n := range Neighbors(current.Position, bounds) {
			if visited[n] {
				continue
			}

			moveCost := grid.TerrainAt(n).MoveCost()
			if moveCost > budget {
				continue
			}

			occupant := occupantOtherThan(units, n, unit.ID)
			if occupant != nil && occupant.Faction != unit.Faction {
				continue
			}

			newCost := current.Cost + moveCost
			if newCost > budget {
				continue
			}
			visited[n] = true

			if occupant == nil {
				result = append(result, ReachableTile{Position: n, Cost: newCost})
			}
			queue = append(queue, ReachableTile{Position: n, Cost: newCost})
		}
	}

	return result
}

// MovementCost returns the path cost to p from a previous ReachableWithCost call
func MovementCost(tiles []ReachableTile, p Position) (int, bool) {
	for _, t := range tiles {
		if t.Position == p {
			return t.Cost, true
		}
	}
	return 0, false
}

func occupantOtherThan(units []Unit, p Position, id string) *Unit {
	for i := range units {
		u := &units[i]
		if u.ID != id && u.Position == p && u.IsLiving() {
			return u
		}
	}
	return nil
}

// facingFor returns the facing after a horizontal move, or the current one
func facingFor(current Facing, from, to Position) Facing {
	switch {
	case to.X < from.X:
		return FacingLeft
	case to.X > from.X:
		return FacingRight
	}
	return current
}
