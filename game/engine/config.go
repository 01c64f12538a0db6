package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// VictoryCondition is carried for editor round-trips; only ELIMINATE_ALL is evaluated
type VictoryCondition string

const (
	EliminateAll VictoryCondition = "ELIMINATE_ALL"
	Survive      VictoryCondition = "SURVIVE"
)

// Level file formats
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// LevelConfig represents a level as exported by the map editor
type LevelConfig struct {
	ID               int              `json:"id" yaml:"id"`
	Name             string           `json:"name" yaml:"name"`
	Description      string           `json:"description" yaml:"description"`
	Width            int              `json:"width" yaml:"width"`
	Height           int              `json:"height" yaml:"height"`
	MaxTurns         int              `json:"maxTurns" yaml:"maxTurns"`
	Units            []Unit           `json:"units" yaml:"units"`
	Walls            []Position       `json:"walls,omitempty" yaml:"walls,omitempty"`
	VictoryCondition VictoryCondition `json:"victoryCondition,omitempty" yaml:"victoryCondition,omitempty"`
}

// Clone returns a deep copy so a running game never mutates its template
func (l *LevelConfig) Clone() *LevelConfig {
	if l == nil {
		return nil
	}
	c := *l
	c.Units = cloneUnits(l.Units)
	if l.Walls != nil {
		c.Walls = append([]Position(nil), l.Walls...)
	}
	return &c
}

// BuildGrid generates the level's grid with walls applied
func (l *LevelConfig) BuildGrid() *Grid {
	g := NewGrid(l.Width, l.Height)
	g.ApplyWalls(l.Walls)
	return g
}

// ValidateLevelConfig validates a level configuration for correctness and playability
func ValidateLevelConfig(level *LevelConfig) error {
	if level == nil {
		return fmt.Errorf("level validation: level is required")
	}
	if level.Name == "" {
		return fmt.Errorf("level validation: name is required")
	}
	if level.Width <= 0 || level.Height <= 0 {
		return fmt.Errorf("level validation: width and height must be positive, got %dx%d", level.Width, level.Height)
	}
	if level.Width > MaxLevelDimension || level.Height > MaxLevelDimension {
		return fmt.Errorf("level validation: width and height must be at most %d, got %dx%d",
			MaxLevelDimension, level.Width, level.Height)
	}
	if level.MaxTurns < 0 {
		return fmt.Errorf("level validation: maxTurns must be non-negative, got %d", level.MaxTurns)
	}
	if len(level.Units) == 0 {
		return fmt.Errorf("level validation: at least one unit is required")
	}
	if len(level.Units) > MaxUnitsPerLevel {
		return fmt.Errorf("level validation: at most %d units are allowed, got %d", MaxUnitsPerLevel, len(level.Units))
	}
	switch level.VictoryCondition {
	case "", EliminateAll, Survive:
	default:
		return fmt.Errorf("level validation: unknown victoryCondition %q", level.VictoryCondition)
	}

	bounds := Bounds{Width: level.Width, Height: level.Height}
	walls := make(map[Position]bool, len(level.Walls))
	for _, w := range level.Walls {
		if !bounds.Contains(w) {
			return fmt.Errorf("level validation: wall at (%d, %d) is out of bounds", w.X, w.Y)
		}
		walls[w] = true
	}

	ids := make(map[string]bool, len(level.Units))
	occupied := make(map[Position]string, len(level.Units))
	for i, u := range level.Units {
		if u.ID == "" {
			return fmt.Errorf("level validation: unit %d has no id", i+1)
		}
		if ids[u.ID] {
			return fmt.Errorf("level validation: duplicate unit id %q", u.ID)
		}
		ids[u.ID] = true

		if !u.Type.Valid() {
			return fmt.Errorf("level validation: unit %q has unknown type %q", u.ID, u.Type)
		}
		if u.Faction != Player && u.Faction != Enemy {
			return fmt.Errorf("level validation: unit %q has unknown faction %q", u.ID, u.Faction)
		}
		if !bounds.Contains(u.Position) {
			return fmt.Errorf("level validation: unit %q at (%d, %d) is out of bounds", u.ID, u.Position.X, u.Position.Y)
		}
		if walls[u.Position] {
			return fmt.Errorf("level validation: unit %q stands on a wall at (%d, %d)", u.ID, u.Position.X, u.Position.Y)
		}
		if other, ok := occupied[u.Position]; ok {
			return fmt.Errorf("level validation: units %q and %q share tile (%d, %d)", other, u.ID, u.Position.X, u.Position.Y)
		}
		occupied[u.Position] = u.ID

		if u.HP <= 0 || u.MaxHP < u.HP {
			return fmt.Errorf("level validation: unit %q must have 0 < hp <= maxHp, got %d/%d", u.ID, u.HP, u.MaxHP)
		}
		if u.MoveRange < 0 {
			return fmt.Errorf("level validation: unit %q has negative moveRange", u.ID)
		}
		if u.AttackRangeMin < 0 || u.AttackRangeMin > u.AttackRangeMax {
			return fmt.Errorf("level validation: unit %q must have 0 <= attackRangeMin <= attackRangeMax, got %d-%d",
				u.ID, u.AttackRangeMin, u.AttackRangeMax)
		}
		for _, s := range u.Spells {
			if s.ID == "" || s.Range < 0 || s.Radius < 0 || s.Damage < 0 {
				return fmt.Errorf("level validation: unit %q has an invalid spell %q", u.ID, s.ID)
			}
		}
	}

	return nil
}

// FormatForPath picks the level format from a file extension
func FormatForPath(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unsupported level file extension %q", filepath.Ext(path))
}

// ParseLevel decodes and validates a level in the given format
func ParseLevel(data []byte, format string) (*LevelConfig, error) {
	var level LevelConfig
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &level); err != nil {
			return nil, fmt.Errorf("failed to parse level JSON: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &level); err != nil {
			return nil, fmt.Errorf("failed to parse level YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported level format %q", format)
	}

	if err := ValidateLevelConfig(&level); err != nil {
		return nil, err
	}
	return &level, nil
}

// EncodeLevel serializes a level in the given format
func EncodeLevel(level *LevelConfig, format string) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.MarshalIndent(level, "", "  ")
	case FormatYAML:
		return yaml.Marshal(level)
	}
	return nil, fmt.Errorf("unsupported level format %q", format)
}

// LoadLevelFile loads a level configuration from a JSON or YAML file
func LoadLevelFile(path string) (*LevelConfig, error) {
	format, err := FormatForPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	level, err := ParseLevel(data, format)
	if err != nil {
		return nil, fmt.Errorf("invalid level '%s': %w", filepath.Base(path), err)
	}
	return level, nil
}
