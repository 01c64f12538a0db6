package service

import (
	"context"
	"errors"
	"time"

	"github.com/wricardo/pixel-tactics/game/engine"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrLevelNotFound   = errors.New("level not found")
	ErrInvalidLevel    = errors.New("invalid level")
	ErrEngineBusy      = errors.New("game is busy playing out a sequence")

	ErrSessionAlreadyExists = errors.New("session already exists")
	ErrInvalidSessionID     = errors.New("invalid session ID")
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, levelRef string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Player Actions
	SelectUnit(ctx context.Context, sessionID, unitID string) (*ActionResult, error)
	Deselect(ctx context.Context, sessionID string) (*ActionResult, error)
	MoveUnit(ctx context.Context, sessionID string, target engine.Position) (*ActionResult, error)
	EnterAttackTargeting(ctx context.Context, sessionID string) (*ActionResult, error)
	EnterSpellMenu(ctx context.Context, sessionID string) (*ActionResult, error)
	EnterSpellTargeting(ctx context.Context, sessionID, spellID string) (*ActionResult, error)
	Attack(ctx context.Context, sessionID, attackerID string, target engine.Position) (*ActionResult, error)
	CastSpell(ctx context.Context, sessionID string, target engine.Position) (*ActionResult, error)
	Wait(ctx context.Context, sessionID, unitID string) (*ActionResult, error)
	EndTurn(ctx context.Context, sessionID string) (*ActionResult, error)
	Undo(ctx context.Context, sessionID string) (*ActionResult, error)
	ClickTile(ctx context.Context, sessionID string, pos engine.Position) (*ActionResult, error)
	RemoveUnits(ctx context.Context, sessionID string, unitIDs []string) (*ActionResult, error)
	Reset(ctx context.Context, sessionID string) (*engine.GameState, error)

	// Game State
	GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error)

	// Levels
	ListLevels(ctx context.Context) ([]*LevelInfo, error)
	LoadLevel(ctx context.Context, levelRef string) (*engine.LevelConfig, error)
	SaveLevel(ctx context.Context, name string, level *engine.LevelConfig) error
	CompletedLevels(ctx context.Context) ([]int, error)
}

// EngineOptions returns the engine options for a session once its ID is known
type EngineOptions func(sessionID string) []engine.Option

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id, levelRef string, level *engine.LevelConfig, opts EngineOptions) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
}

// LevelManager handles level file loading
type LevelManager interface {
	LoadLevel(ref string) (*engine.LevelConfig, error)
	ListLevels() ([]*LevelInfo, error)
	GetDefault() *engine.LevelConfig
	SaveLevel(name string, level *engine.LevelConfig) error
}

// ProgressStore records which levels have been won
type ProgressStore interface {
	MarkCompleted(ctx context.Context, levelID int) error
	Completed(ctx context.Context) ([]int, error)
}

// Notifier pushes state changes to connected clients
type Notifier interface {
	BroadcastState(sessionID string, state *engine.GameState)
}

// Session represents an active game session
type Session struct {
	ID             string
	LevelRef       string
	Engine         *engine.GameEngine
	Level          *engine.LevelConfig
	CreatedAt      time.Time
	LastAccessedAt time.Time
}
