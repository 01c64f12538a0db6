package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/wricardo/pixel-tactics/game/engine"
	"github.com/wricardo/pixel-tactics/game/service"
)

// Level errors are shared with the service layer so callers can match them
var (
	ErrLevelNotFound = service.ErrLevelNotFound
	ErrInvalidLevel  = service.ErrInvalidLevel
)

// DefaultLevelRef is tried first when picking the default level
const DefaultLevelRef = "level1"

// levelExtensions are probed in order when a reference has no extension
var levelExtensions = []string{".json", ".yaml", ".yml"}

// Manager handles level loading and caching
type Manager struct {
	levelDir     string
	defaultLevel *engine.LevelConfig
	levels       map[string]*engine.LevelConfig
	mu           sync.RWMutex
}

// NewManager creates a new level manager
func NewManager(levelDir string) (*Manager, error) {
	// Ensure level directory exists
	if _, err := os.Stat(levelDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("level directory does not exist: %s", levelDir)
	}

	m := &Manager{
		levelDir: levelDir,
		levels:   make(map[string]*engine.LevelConfig),
	}

	if err := m.loadDefaultLevel(); err != nil {
		return nil, fmt.Errorf("failed to load default level: %w", err)
	}

	return m, nil
}

// LoadLevel loads a level by file stem ("level1"), file name ("level1.yaml")
// or numeric level id ("3"). The returned level is a copy.
func (m *Manager) LoadLevel(ref string) (*engine.LevelConfig, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" || filepath.Base(ref) != ref || strings.HasPrefix(ref, ".") {
		return nil, ErrLevelNotFound
	}
	key := levelKey(ref)

	m.mu.RLock()
	if level, exists := m.levels[key]; exists {
		m.mu.RUnlock()
		return level.Clone(), nil
	}
	m.mu.RUnlock()

	path, err := m.findFile(ref)
	if errors.Is(err, ErrLevelNotFound) {
		if id, convErr := strconv.Atoi(ref); convErr == nil {
			return m.loadByID(id)
		}
	}
	if err != nil {
		return nil, err
	}

	level, err := m.loadFile(key, path)
	if err != nil {
		return nil, err
	}
	return level.Clone(), nil
}

func (m *Manager) loadFile(key, path string) (*engine.LevelConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if level, exists := m.levels[key]; exists {
		return level, nil
	}

	format, err := engine.FormatForPath(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLevel, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrLevelNotFound
		}
		return nil, fmt.Errorf("failed to read level file: %w", err)
	}

	level, err := engine.ParseLevel(data, format)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLevel, err)
	}

	m.levels[key] = level
	return level, nil
}

// findFile resolves a reference to a file in the level directory
func (m *Manager) findFile(ref string) (string, error) {
	if ext := strings.ToLower(filepath.Ext(ref)); isLevelExt(ext) {
		path := filepath.Join(m.levelDir, ref)
		if _, err := os.Stat(path); err != nil {
			return "", ErrLevelNotFound
		}
		return path, nil
	}

	for _, ext := range levelExtensions {
		path := filepath.Join(m.levelDir, ref+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", ErrLevelNotFound
}

func (m *Manager) loadByID(id int) (*engine.LevelConfig, error) {
	infos, err := m.ListLevels()
	if err != nil {
		return nil, err
	}
	for _, info := range infos {
		if info.ID == id {
			return m.LoadLevel(info.LevelRef)
		}
	}
	return nil, ErrLevelNotFound
}

// ListLevels returns information about all loadable levels, ordered by level id
func (m *Manager) ListLevels() ([]*service.LevelInfo, error) {
	entries, err := os.ReadDir(m.levelDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read level directory: %w", err)
	}

	var levels []*service.LevelInfo
	seen := make(map[string]bool)

	for _, entry := range entries {
		if entry.IsDir() || !isLevelExt(strings.ToLower(filepath.Ext(entry.Name()))) {
			continue
		}

		ref := levelKey(entry.Name())
		if seen[ref] {
			continue
		}

		level, err := m.LoadLevel(ref)
		if err != nil {
			// Skip invalid levels
			continue
		}
		seen[ref] = true

		levels = append(levels, &service.LevelInfo{
			Filename:    entry.Name(),
			LevelRef:    ref,
			ID:          level.ID,
			Name:        level.Name,
			Description: level.Description,
			Width:       level.Width,
			Height:      level.Height,
			MaxTurns:    level.MaxTurns,
			PlayerUnits: engine.CountFaction(level.Units, engine.Player),
			EnemyUnits:  engine.CountFaction(level.Units, engine.Enemy),
		})
	}

	sort.SliceStable(levels, func(i, j int) bool {
		if levels[i].ID != levels[j].ID {
			return levels[i].ID < levels[j].ID
		}
		return levels[i].LevelRef < levels[j].LevelRef
	})

	return levels, nil
}

// GetDefault returns the default level
func (m *Manager) GetDefault() *engine.LevelConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultLevel.Clone()
}

// SetDefault sets the default level by reference
func (m *Manager) SetDefault(ref string) error {
	level, err := m.LoadLevel(ref)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultLevel = level
	return nil
}

// RefreshCache drops cached levels and reloads the default from disk
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	m.levels = make(map[string]*engine.LevelConfig)
	m.mu.Unlock()

	return m.loadDefaultLevel()
}

// loadDefaultLevel picks level1, then the lowest level id, then a built-in skirmish
func (m *Manager) loadDefaultLevel() error {
	level, err := m.LoadLevel(DefaultLevelRef)
	if err != nil {
		levels, listErr := m.ListLevels()
		if listErr == nil && len(levels) > 0 {
			level, err = m.LoadLevel(levels[0].LevelRef)
		}
		if err != nil {
			level = MinimalLevel()
		}
	}

	m.mu.Lock()
	m.defaultLevel = level
	m.mu.Unlock()
	return nil
}

// SaveLevel validates and writes a level. The format follows the name's
// extension and defaults to JSON.
func (m *Manager) SaveLevel(name string, level *engine.LevelConfig) error {
	name = strings.TrimSpace(name)
	if name == "" || filepath.Base(name) != name || strings.HasPrefix(name, ".") {
		return fmt.Errorf("%w: invalid level file name %q", ErrInvalidLevel, name)
	}
	if err := engine.ValidateLevelConfig(level); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidLevel, err)
	}

	filename := name
	if !isLevelExt(strings.ToLower(filepath.Ext(name))) {
		filename = name + ".json"
	}
	format, err := engine.FormatForPath(filename)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidLevel, err)
	}

	data, err := engine.EncodeLevel(level, format)
	if err != nil {
		return fmt.Errorf("failed to encode level: %w", err)
	}

	if err := os.WriteFile(filepath.Join(m.levelDir, filename), data, 0644); err != nil {
		return fmt.Errorf("failed to write level file: %w", err)
	}

	// Update cache
	m.mu.Lock()
	m.levels[levelKey(filename)] = level.Clone()
	m.mu.Unlock()

	return nil
}

// MinimalLevel is used when the level directory holds no valid level
func MinimalLevel() *engine.LevelConfig {
	return &engine.LevelConfig{
		ID:          0,
		Name:        "Skirmish",
		Description: "Defeat the training dummy.",
		Width:       6,
		Height:      4,
		Units: []engine.Unit{
			{
				ID: "p1", Name: "Sir Roland", Type: engine.Knight, Faction: engine.Player,
				Position: engine.Position{X: 1, Y: 1}, HP: 3, MaxHP: 3,
				MoveRange: 3, AttackRangeMin: 1, AttackRangeMax: 1,
			},
			{
				ID: "e1", Name: "Dummy", Type: engine.Dummy, Faction: engine.Enemy,
				Position: engine.Position{X: 4, Y: 2}, HP: 1, MaxHP: 1,
			},
		},
		VictoryCondition: engine.EliminateAll,
	}
}

func levelKey(ref string) string {
	if isLevelExt(strings.ToLower(filepath.Ext(ref))) {
		return strings.TrimSuffix(ref, filepath.Ext(ref))
	}
	return ref
}

func isLevelExt(ext string) bool {
	for _, e := range levelExtensions {
		if e == ext {
			return true
		}
	}
	return false
}
