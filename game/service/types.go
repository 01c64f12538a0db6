package service

import (
	"time"

	"github.com/wricardo/pixel-tactics/game/engine"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string              `json:"id"`
	LevelRef       string              `json:"level_ref"`
	CreatedAt      time.Time           `json:"created_at"`
	LastAccessedAt time.Time           `json:"last_accessed_at"`
	GameState      *engine.GameState   `json:"game_state"`
	Level          *engine.LevelConfig `json:"level"`
}

// ActionResult is returned by every player action
type ActionResult struct {
	Success   bool                 `json:"success"`
	Action    string               `json:"action,omitempty"` // set by ClickTile: select|move|deselect|attack|wait|cast|cancel|ignored
	Message   string               `json:"message"`
	Attack    *engine.AttackResult `json:"attack,omitempty"`
	Spell     *engine.SpellResult  `json:"spell,omitempty"`
	GameState *engine.GameState    `json:"game_state"`
}

// LevelInfo provides information about a level file
type LevelInfo struct {
	Filename    string `json:"filename"`
	LevelRef    string `json:"level_ref"` // The identifier to use for session creation
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	MaxTurns    int    `json:"max_turns"`
	PlayerUnits int    `json:"player_units"`
	EnemyUnits  int    `json:"enemy_units"`
	Completed   bool   `json:"completed"`
}
