package engine

// AttackTargets returns the tiles within the unit's attack band that hold a
// living unit of the opposing faction. Walls do not block line of fire.
func AttackTargets(unit Unit, units []Unit, grid *Grid) []Position {
	targets := []Position{}
	if grid == nil {
		return targets
	}
	for _, p := range TilesInRange(unit.Position, unit.AttackRangeMin, unit.AttackRangeMax, grid.Bounds()) {
		occupant := LivingUnitAt(units, p)
		if occupant != nil && occupant.Faction == unit.Faction.Opponent() {
			targets = append(targets, p)
		}
	}
	return targets
}

// AttackRangeTiles is the full band shown to the player, occupied or not
func AttackRangeTiles(unit Unit, grid *Grid) []Position {
	if grid == nil {
		return []Position{}
	}
	return TilesInRange(unit.Position, unit.AttackRangeMin, unit.AttackRangeMax, grid.Bounds())
}

// SpellTargets returns every tile the spell may be centred on. Occupancy is not required.
func SpellTargets(caster Unit, spell Spell, grid *Grid) []Position {
	if grid == nil {
		return []Position{}
	}
	return TilesInRange(caster.Position, 0, spell.Range, grid.Bounds())
}

// SpellFootprint is the square area a spell centred on target covers
func SpellFootprint(target Position, spell Spell, grid *Grid) []Position {
	if grid == nil {
		return []Position{}
	}
	return TilesInRadius(target, spell.Radius, grid.Bounds())
}

// UnitsInFootprint returns the indices of living units of any faction inside the footprint
func UnitsInFootprint(units []Unit, footprint []Position) []int {
	var hit []int
	for i := range units {
		if units[i].IsLiving() && ContainsPosition(footprint, units[i].Position) {
			hit = append(hit, i)
		}
	}
	return hit
}
