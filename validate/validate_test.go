package validate

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wricardo/pixel-tactics/game/engine"
)

func knight(id string, f engine.Faction, x, y int) engine.Unit {
	return engine.Unit{
		ID: id, Name: id, Type: engine.Knight, Faction: f,
		Position: engine.Position{X: x, Y: y},
		HP: 2, MaxHP: 2, MoveRange: 3, AttackRangeMin: 1, AttackRangeMax: 1,
	}
}

func testLevel() *engine.LevelConfig {
	return &engine.LevelConfig{
		ID:       7,
		Name:     "Validation Test",
		Width:    6,
		Height:   4,
		MaxTurns: 10,
		Units: []engine.Unit{
			knight("p1", engine.Player, 0, 0),
			knight("e1", engine.Enemy, 5, 3),
		},
		Walls: []engine.Position{{X: 3, Y: 0}, {X: 3, Y: 1}},
	}
}

func writeLevel(t *testing.T, dir, name string, level *engine.LevelConfig) string {
	t.Helper()
	format, err := engine.FormatForPath(name)
	if err != nil {
		t.Fatalf("bad test file name %s: %v", name, err)
	}
	data, err := engine.EncodeLevel(level, format)
	if err != nil {
		t.Fatalf("Failed to encode level: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write level: %v", err)
	}
	return path
}

func TestFile_ValidLevel(t *testing.T) {
	for _, name := range []string{"level.json", "level.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := writeLevel(t, t.TempDir(), name, testLevel())

			result := File(path)
			if !result.Valid {
				t.Fatalf("Expected valid level, got errors: %v", result.Errors)
			}
			if result.File != name {
				t.Errorf("Expected file name %s, got %s", name, result.File)
			}

			info := strings.Join(result.Info, "\n")
			for _, want := range []string{"Validation Test (id 7)", "Grid: 6x4, 2 walls", "1 player, 1 enemy", "Turn limit: 10"} {
				if !strings.Contains(info, want) {
					t.Errorf("Expected %q in info:\n%s", want, info)
				}
			}
		})
	}
}

func TestFile_ParseErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		content string
		want    string
	}{
		{"invalid json", "broken.json", `{"name": "test", invalid json}`, "parse level JSON"},
		{"invalid yaml", "broken.yaml", "name: [unclosed", "parse level YAML"},
		{"missing units", "empty.json", `{"name": "x", "width": 3, "height": 3, "units": []}`, "at least one unit"},
		{"unsupported extension", "level.txt", `{}`, "unsupported level file extension"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatalf("Failed to write file: %v", err)
			}

			result := File(path)
			if result.Valid {
				t.Fatal("Expected invalid result")
			}
			if len(result.Errors) == 0 || !strings.Contains(result.Errors[0], tt.want) {
				t.Errorf("Expected error containing %q, got %v", tt.want, result.Errors)
			}
		})
	}

	t.Run("missing file", func(t *testing.T) {
		if result := File(filepath.Join(dir, "nope.json")); result.Valid {
			t.Error("Expected missing file to be invalid")
		}
	})
}

func TestLevel_Playability(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*engine.LevelConfig)
		valid   bool
		wantErr string
	}{
		{
			name:   "reachable around walls",
			modify: func(l *engine.LevelConfig) {},
			valid:  true,
		},
		{
			name: "no enemies",
			modify: func(l *engine.LevelConfig) {
				l.Units = l.Units[:1]
			},
			wantErr: "no enemy units",
		},
		{
			name: "no players",
			modify: func(l *engine.LevelConfig) {
				l.Units = l.Units[1:]
			},
			wantErr: "no player units",
		},
		{
			name: "enemy walled off",
			modify: func(l *engine.LevelConfig) {
				l.Walls = []engine.Position{{X: 3, Y: 0}, {X: 3, Y: 1}, {X: 3, Y: 2}, {X: 3, Y: 3}}
			},
			wantErr: "1/1 enemies cannot be engaged",
		},
		{
			name: "archer shoots over the wall",
			modify: func(l *engine.LevelConfig) {
				l.Walls = []engine.Position{{X: 3, Y: 0}, {X: 3, Y: 1}, {X: 3, Y: 2}, {X: 3, Y: 3}}
				l.Units[0].Type = engine.Archer
				l.Units[0].AttackRangeMin = 2
				l.Units[0].AttackRangeMax = 3
			},
			valid: true,
		},
		{
			name: "spell reaches over the wall",
			modify: func(l *engine.LevelConfig) {
				l.Walls = []engine.Position{{X: 3, Y: 0}, {X: 3, Y: 1}, {X: 3, Y: 2}, {X: 3, Y: 3}}
				l.Units[0].Type = engine.Mage
				l.Units[0].Spells = []engine.Spell{{ID: "fireball", Name: "Fireball", Range: 2, Radius: 1, Damage: 1}}
			},
			valid: true,
		},
		{
			name: "structural error",
			modify: func(l *engine.LevelConfig) {
				l.Units[1].Position = l.Units[0].Position
			},
			wantErr: "share tile",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level := testLevel()
			tt.modify(level)

			result := Level("test.json", level)
			if result.Valid != tt.valid {
				t.Fatalf("Valid = %v, want %v (errors: %v)", result.Valid, tt.valid, result.Errors)
			}
			if tt.wantErr != "" && !strings.Contains(strings.Join(result.Errors, "\n"), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, result.Errors)
			}
		})
	}
}

func TestLevel_CasterWithoutSpells(t *testing.T) {
	level := testLevel()
	level.Units[0].Type = engine.Wizard

	result := Level("test.json", level)
	if !result.Valid {
		t.Fatalf("Expected valid level, got %v", result.Errors)
	}
	if !strings.Contains(strings.Join(result.Info, "\n"), "Caster p1 has no spells") {
		t.Errorf("Expected caster warning in info: %v", result.Info)
	}
}

func TestDir(t *testing.T) {
	dir := t.TempDir()
	writeLevel(t, dir, "b.yaml", testLevel())
	writeLevel(t, dir, "a.json", testLevel())
	os.WriteFile(filepath.Join(dir, "notes.md"), []byte("# notes"), 0644)
	os.Mkdir(filepath.Join(dir, "sub"), 0755)

	results, err := Dir(dir)
	if err != nil {
		t.Fatalf("Dir failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	if results[0].File != "a.json" || results[1].File != "b.yaml" {
		t.Errorf("Expected sorted results, got %s, %s", results[0].File, results[1].File)
	}

	if _, err := Dir(filepath.Join(dir, "missing")); err == nil {
		t.Error("Expected error for missing directory")
	}
}

func TestReport(t *testing.T) {
	valid := Level("ok.json", testLevel())
	broken := testLevel()
	broken.Units = broken.Units[:1]
	invalid := Level("bad.json", broken)

	var buf bytes.Buffer
	if !Report(&buf, []Result{valid}) {
		t.Error("Expected report of valid levels to succeed")
	}
	if !strings.Contains(buf.String(), "All levels are valid") {
		t.Errorf("Unexpected report:\n%s", buf.String())
	}

	buf.Reset()
	if Report(&buf, []Result{valid, invalid}) {
		t.Error("Expected report with an invalid level to fail")
	}
	out := buf.String()
	if !strings.Contains(out, "❌ INVALID") || !strings.Contains(out, "no enemy units") {
		t.Errorf("Unexpected report:\n%s", out)
	}
}

func TestShippedLevels(t *testing.T) {
	results, err := Dir(filepath.Join("..", "levels"))
	if err != nil {
		t.Fatalf("Dir failed: %v", err)
	}
	if len(results) != 4 {
		t.Errorf("Expected 4 shipped levels, got %d", len(results))
	}
	for _, result := range results {
		if !result.Valid {
			t.Errorf("%s is invalid: %v", result.File, result.Errors)
		}
	}
}
