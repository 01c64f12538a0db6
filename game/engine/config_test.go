package engine

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validLevel() *LevelConfig {
	return testLevel(5, 5,
		testUnit("k1", Knight, Player, 0, 0),
		testUnit("e1", Knight, Enemy, 4, 4),
	)
}

func TestValidateLevelConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(l *LevelConfig)
		wantErr string
	}{
		{"valid level", func(l *LevelConfig) {}, ""},
		{"missing name", func(l *LevelConfig) { l.Name = "" }, "name is required"},
		{"zero width", func(l *LevelConfig) { l.Width = 0 }, "must be positive"},
		{"too tall", func(l *LevelConfig) { l.Height = MaxLevelDimension + 1 }, "at most"},
		{"negative turn limit", func(l *LevelConfig) { l.MaxTurns = -1 }, "maxTurns"},
		{"no units", func(l *LevelConfig) { l.Units = nil }, "at least one unit"},
		{"unknown victory condition", func(l *LevelConfig) { l.VictoryCondition = "CAPTURE" }, "victoryCondition"},
		{"wall out of bounds", func(l *LevelConfig) { l.Walls = []Position{{X: 5, Y: 0}} }, "wall at (5, 0)"},
		{"unit without id", func(l *LevelConfig) { l.Units[0].ID = "" }, "has no id"},
		{"duplicate id", func(l *LevelConfig) { l.Units[1].ID = "k1" }, "duplicate unit id"},
		{"unknown type", func(l *LevelConfig) { l.Units[0].Type = "DRAGON" }, "unknown type"},
		{"unknown faction", func(l *LevelConfig) { l.Units[0].Faction = "NEUTRAL" }, "unknown faction"},
		{"unit out of bounds", func(l *LevelConfig) { l.Units[0].Position = Position{X: -1, Y: 0} }, "out of bounds"},
		{"unit on wall", func(l *LevelConfig) { l.Walls = []Position{{X: 0, Y: 0}} }, "stands on a wall"},
		{"units overlap", func(l *LevelConfig) { l.Units[1].Position = Position{} }, "share tile"},
		{"zero hp", func(l *LevelConfig) { l.Units[0].HP = 0 }, "0 < hp <= maxHp"},
		{"hp above max", func(l *LevelConfig) { l.Units[0].HP = 5 }, "0 < hp <= maxHp"},
		{"negative move", func(l *LevelConfig) { l.Units[0].MoveRange = -1 }, "moveRange"},
		{"inverted attack band", func(l *LevelConfig) { l.Units[0].AttackRangeMin = 3 }, "attackRangeMin"},
		{"bad spell", func(l *LevelConfig) { l.Units[0].Spells = []Spell{{ID: "x", Range: -1}} }, "invalid spell"},
		{"player only level", func(l *LevelConfig) { l.Units = l.Units[:1] }, ""},
		{"melee dummy band", func(l *LevelConfig) { l.Units[1] = testUnit("d1", Dummy, Enemy, 4, 4) }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level := validLevel()
			tt.mutate(level)
			err := ValidateLevelConfig(level)

			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Expected no error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
			if !strings.HasPrefix(err.Error(), "level validation:") {
				t.Errorf("Expected validation prefix, got %v", err)
			}
		})
	}
}

func TestValidateNilLevel(t *testing.T) {
	if err := ValidateLevelConfig(nil); err == nil {
		t.Error("Expected error for nil level")
	}
}

const jsonLevel = `{
  "id": 7,
  "name": "Bridge",
  "description": "Hold the bridge.",
  "width": 4,
  "height": 3,
  "maxTurns": 5,
  "walls": [{"x": 2, "y": 0}, {"x": 2, "y": 2}],
  "units": [
    {"id": "w1", "name": "Merlin", "type": "WIZARD", "faction": "PLAYER", "position": {"x": 0, "y": 1},
     "hp": 2, "maxHp": 2, "moveRange": 3, "attackRangeMin": 1, "attackRangeMax": 1, "hasMoved": false,
     "spells": [{"id": "fireball", "name": "Fireball", "range": 3, "radius": 1, "damage": 1, "vfxType": "FIRE"}]},
    {"id": "e1", "name": "Grunt", "type": "KNIGHT", "faction": "ENEMY", "position": {"x": 3, "y": 1},
     "hp": 1, "maxHp": 1, "moveRange": 3, "attackRangeMin": 1, "attackRangeMax": 1, "hasMoved": false}
  ]
}`

const yamlLevel = `id: 7
name: Bridge
description: Hold the bridge.
width: 4
height: 3
maxTurns: 5
walls:
  - {x: 2, y: 0}
  - {x: 2, y: 2}
units:
  - id: w1
    name: Merlin
    type: WIZARD
    faction: PLAYER
    position: {x: 0, y: 1}
    hp: 2
    maxHp: 2
    moveRange: 3
    attackRangeMin: 1
    attackRangeMax: 1
    spells:
      - {id: fireball, name: Fireball, range: 3, radius: 1, damage: 1, vfxType: FIRE}
  - id: e1
    name: Grunt
    type: KNIGHT
    faction: ENEMY
    position: {x: 3, y: 1}
    hp: 1
    maxHp: 1
    moveRange: 3
    attackRangeMin: 1
    attackRangeMax: 1
`

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		format string
	}{
		{"json", jsonLevel, FormatJSON},
		{"yaml", yamlLevel, FormatYAML},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, err := ParseLevel([]byte(tt.data), tt.format)
			if err != nil {
				t.Fatalf("ParseLevel failed: %v", err)
			}
			if level.ID != 7 || level.Name != "Bridge" || level.MaxTurns != 5 {
				t.Errorf("Unexpected header %+v", level)
			}
			if len(level.Walls) != 2 || level.Walls[1] != (Position{X: 2, Y: 2}) {
				t.Errorf("Unexpected walls %v", level.Walls)
			}
			if len(level.Units) != 2 {
				t.Fatalf("Expected 2 units, got %d", len(level.Units))
			}
			w := level.Units[0]
			if w.Type != Wizard || w.MaxHP != 2 || w.Position != (Position{X: 0, Y: 1}) {
				t.Errorf("Unexpected wizard %+v", w)
			}
			if s, ok := w.Spell("fireball"); !ok || s.Radius != 1 || s.VFXType != "FIRE" {
				t.Errorf("Unexpected spell %+v", s)
			}
		})
	}
}

func TestParseLevelErrors(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		format string
	}{
		{"malformed json", `{"name":`, FormatJSON},
		{"malformed yaml", "units: [", FormatYAML},
		{"unknown format", jsonLevel, "toml"},
		{"invalid content", `{"name": "x", "width": 2, "height": 2, "units": []}`, FormatJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseLevel([]byte(tt.data), tt.format); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestEncodeLevelRoundTrip(t *testing.T) {
	original, err := ParseLevel([]byte(jsonLevel), FormatJSON)
	if err != nil {
		t.Fatalf("ParseLevel failed: %v", err)
	}

	for _, format := range []string{FormatJSON, FormatYAML} {
		data, err := EncodeLevel(original, format)
		if err != nil {
			t.Fatalf("EncodeLevel(%s) failed: %v", format, err)
		}
		decoded, err := ParseLevel(data, format)
		if err != nil {
			t.Fatalf("ParseLevel(%s) failed: %v", format, err)
		}
		if decoded.Name != original.Name || len(decoded.Units) != len(original.Units) {
			t.Errorf("%s round trip lost data: %+v", format, decoded)
		}
	}

	if _, err := EncodeLevel(original, "xml"); err == nil {
		t.Error("Expected error for unsupported format")
	}
}

func TestLoadLevelFile(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"bridge.json": jsonLevel,
		"bridge.yml":  yamlLevel,
		"broken.json": `{"name": ""}`,
		"notes.txt":   "hello",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	for _, name := range []string{"bridge.json", "bridge.yml"} {
		if _, err := LoadLevelFile(filepath.Join(dir, name)); err != nil {
			t.Errorf("LoadLevelFile(%s) failed: %v", name, err)
		}
	}

	_, err := LoadLevelFile(filepath.Join(dir, "broken.json"))
	if err == nil || !strings.Contains(err.Error(), "broken.json") {
		t.Errorf("Expected error naming the file, got %v", err)
	}
	if _, err := LoadLevelFile(filepath.Join(dir, "notes.txt")); err == nil {
		t.Error("Expected error for unsupported extension")
	}
	if _, err := LoadLevelFile(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestLevelClone(t *testing.T) {
	level := validLevel()
	level.Walls = []Position{{X: 2, Y: 2}}
	level.Units[0].Spells = []Spell{fireball()}

	c := level.Clone()
	c.Units[0].Spells[0].Damage = 9
	c.Units[0].HP = 9
	c.Walls[0] = Position{X: 3, Y: 3}

	if level.Units[0].Spells[0].Damage != 1 || level.Units[0].HP != 1 || level.Walls[0] != (Position{X: 2, Y: 2}) {
		t.Error("Clone must not share memory with the original")
	}
	if (*LevelConfig)(nil).Clone() != nil {
		t.Error("Clone of nil should be nil")
	}
}
