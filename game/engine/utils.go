package engine

// ManhattanDistance calculates the Manhattan distance between two positions
func ManhattanDistance(from, to Position) int {
	return abs(from.X-to.X) + abs(from.Y-to.Y)
}

// ChebyshevDistance is the larger of the per-axis offsets
func ChebyshevDistance(from, to Position) int {
	dx, dy := abs(from.X-to.X), abs(from.Y-to.Y)
	if dx > dy {
		return dx
	}
	return dy
}

// ContainsPosition reports whether p appears in tiles
func ContainsPosition(tiles []Position, p Position) bool {
	for _, t := range tiles {
		if t == p {
			return true
		}
	}
	return false
}

// LivingUnitAt returns the living unit standing on p, if any
func LivingUnitAt(units []Unit, p Position) *Unit {
	for i := range units {
		if units[i].Position == p && units[i].IsLiving() {
			return &units[i]
		}
	}
	return nil
}

// UnitAt returns any roster entry on p, including units awaiting removal
func UnitAt(units []Unit, p Position) *Unit {
	for i := range units {
		if units[i].Position == p {
			return &units[i]
		}
	}
	return nil
}

// CountFaction counts roster members of a faction regardless of HP
func CountFaction(units []Unit, f Faction) int {
	count := 0
	for _, u := range units {
		if u.Faction == f {
			count++
		}
	}
	return count
}

// abs returns the absolute value of x
func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
