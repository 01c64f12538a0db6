// Package config provides level management for Pixel Tactics.
//
// The config package handles:
//   - Loading levels from JSON or YAML files in the levels directory
//   - Level validation through the engine's rules
//   - Default level selection
//   - Level discovery and listing for the level select screen
//   - Saving levels exported by the map editor
//
// Level Format:
//
// A level describes a width x height battlefield, an optional list of wall
// coordinates, an optional turn limit and the starting roster:
//
//	{
//	  "id": 1,
//	  "name": "First Blood",
//	  "width": 8, "height": 6, "maxTurns": 0,
//	  "walls": [{"x": 3, "y": 2}],
//	  "units": [{"id": "p1", "type": "KNIGHT", "faction": "PLAYER", ...}]
//	}
//
// Usage:
//
//	manager, err := config.NewManager("levels")
//
//	// Load by file stem, file name or numeric level id
//	level, err := manager.LoadLevel("level2")
//	level, err = manager.LoadLevel("2")
//
//	// List available levels, ordered by id
//	levels, err := manager.ListLevels()
//
// Levels that fail validation are skipped by ListLevels and reported as
// ErrInvalidLevel by LoadLevel.
package config
