// Package engine provides the core rules for Pixel Tactics.
//
// The engine package implements the game mechanics including:
//   - Grid geometry (Manhattan range bands, square spell footprints)
//   - Movement reachability with ally pass-through and enemy blocking
//   - Attack and spell targeting, damage and deferred unit removal
//   - The player interaction state machine with undo history
//   - The automated enemy turn
//
// Core Types:
//
// The Engine interface defines the main contract for game operations,
// implemented by GameEngine. GameState is the observable state handed to
// presentation layers, while LevelConfig describes a level as authored by the
// map editor and loaded from JSON or YAML files.
//
// Usage:
//
//	level, err := engine.LoadLevelFile("levels/level1.json")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	eng := engine.NewEngine(engine.WithTiming(engine.DefaultTiming()))
//	if err := eng.StartLevel(level); err != nil {
//		log.Fatal(err)
//	}
//
//	eng.SelectUnit("hero_1")
//	eng.MoveSelectedUnit(engine.Position{X: 4, Y: 0})
//	result, err := eng.Attack(ctx, "hero_1", engine.Position{X: 5, Y: 0})
//
// Game Rules:
//
// Each player unit may move once and act once per turn. Attacks deal a fixed
// amount of damage; spells damage every unit inside a square footprint,
// regardless of faction. Units reduced to 0 HP stay on the board until the
// death animation finishes and are then removed, after which victory and
// defeat are evaluated against the remaining roster. Ending the turn hands
// control to the enemy faction, whose units act one at a time.
package engine
