package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/wricardo/pixel-tactics/game/engine"
	"github.com/wricardo/pixel-tactics/logger"
)

// DefaultLevelRef is reported for sessions started on the default level
const DefaultLevelRef = "default"

// gameServiceImpl implements the GameService interface. Engine calls are not
// serialized here: each engine guards itself and EndTurn can run for seconds.
type gameServiceImpl struct {
	sessions   SessionManager
	levels     LevelManager
	progress   ProgressStore
	notifier   Notifier
	engineOpts []engine.Option
}

// Option configures the game service
type Option func(*gameServiceImpl)

// WithProgress records won levels in p
func WithProgress(p ProgressStore) Option {
	return func(s *gameServiceImpl) { s.progress = p }
}

// WithNotifier pushes every state change of every session to n
func WithNotifier(n Notifier) Option {
	return func(s *gameServiceImpl) { s.notifier = n }
}

// WithEngineOptions applies opts to every engine the service creates
func WithEngineOptions(opts ...engine.Option) Option {
	return func(s *gameServiceImpl) { s.engineOpts = append(s.engineOpts, opts...) }
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, levels LevelManager, opts ...Option) GameService {
	s := &gameServiceImpl{
		sessions: sessions,
		levels:   levels,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// engineOptions wires the per-session hooks once the session ID is known
func (s *gameServiceImpl) engineOptions(sessionID string) []engine.Option {
	opts := append([]engine.Option(nil), s.engineOpts...)
	if s.notifier != nil {
		opts = append(opts, engine.WithStateHook(func(state *engine.GameState) {
			s.notifier.BroadcastState(sessionID, state)
		}))
	}
	opts = append(opts, engine.WithOutcomeHook(func(state *engine.GameState) {
		s.recordOutcome(sessionID, state)
	}))
	return opts
}

func (s *gameServiceImpl) recordOutcome(sessionID string, state *engine.GameState) {
	fields := logrus.Fields{
		"session": sessionID,
		"status":  state.Status,
		"turn":    state.Turn,
	}
	if state.Level != nil {
		fields["level"] = state.Level.ID
	}
	logger.Log.WithFields(fields).Info("level finished")

	if state.Status != engine.StatusVictory || s.progress == nil || state.Level == nil {
		return
	}
	if err := s.progress.MarkCompleted(context.Background(), state.Level.ID); err != nil {
		logger.Log.WithFields(fields).WithError(err).Error("failed to record level completion")
	}
}

// CreateSession creates a new game session playing levelRef, or the default level
func (s *gameServiceImpl) CreateSession(ctx context.Context, levelRef string) (*SessionInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var level *engine.LevelConfig
	if levelRef != "" {
		var err error
		level, err = s.levels.LoadLevel(levelRef)
		if err != nil {
			if errors.Is(err, ErrLevelNotFound) {
				return nil, s.levelNotFound(levelRef)
			}
			return nil, fmt.Errorf("failed to load level %s: %w", levelRef, err)
		}
	} else {
		level = s.levels.GetDefault()
		levelRef = DefaultLevelRef
	}

	session, err := s.sessions.Create("", levelRef, level, s.engineOptions)
	if err != nil {
		switch {
		case errors.Is(err, ErrLevelNotFound), errors.Is(err, ErrInvalidLevel),
			errors.Is(err, ErrSessionAlreadyExists), errors.Is(err, ErrInvalidSessionID):
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidLevel, err)
	}

	return sessionInfo(session), nil
}

// levelNotFound lists the available level refs to help the caller
func (s *gameServiceImpl) levelNotFound(levelRef string) error {
	infos, err := s.levels.ListLevels()
	if err != nil || len(infos) == 0 {
		return fmt.Errorf("%w: '%s'. Use /api/levels to list available levels", ErrLevelNotFound, levelRef)
	}
	refs := make([]string, 0, len(infos))
	for _, info := range infos {
		refs = append(refs, info.LevelRef)
	}
	return fmt.Errorf("%w: '%s'. Available levels: %v", ErrLevelNotFound, levelRef, refs)
}

func sessionInfo(session *Session) *SessionInfo {
	return &SessionInfo{
		ID:             session.ID,
		LevelRef:       session.LevelRef,
		CreatedAt:      session.CreatedAt,
		LastAccessedAt: session.LastAccessedAt,
		GameState:      session.Engine.State(),
		Level:          session.Level.Clone(),
	}
}

// session fetches a session and marks it as accessed
func (s *gameServiceImpl) session(ctx context.Context, sessionID string) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	session, err := s.sessions.Get(sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrSessionNotFound, err)
	}
	s.sessions.UpdateLastAccessed(sessionID)
	return session, nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	session, err := s.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return sessionInfo(session), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, sessionInfo(sess))
	}
	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.sessions.Delete(sessionID); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrSessionNotFound, err)
	}
	return nil
}

// instant runs a synchronous engine command. rejected is reported when the
// engine refuses it.
func (s *gameServiceImpl) instant(ctx context.Context, sessionID, rejected string, fn func(*engine.GameEngine) bool) (*ActionResult, error) {
	session, err := s.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Engine.IsBusy() {
		return nil, ErrEngineBusy
	}

	ok := fn(session.Engine)
	state := session.Engine.State()
	result := &ActionResult{
		Success:   ok,
		Message:   state.Message,
		GameState: state,
	}
	if !ok {
		result.Message = rejected
	}
	return result, nil
}

func engineErr(err error) error {
	if errors.Is(err, engine.ErrBusy) {
		return ErrEngineBusy
	}
	return err
}

// SelectUnit selects a player unit that has not acted yet
func (s *gameServiceImpl) SelectUnit(ctx context.Context, sessionID, unitID string) (*ActionResult, error) {
	return s.instant(ctx, sessionID, fmt.Sprintf("Unit %s cannot be selected.", unitID), func(e *engine.GameEngine) bool {
		return e.SelectUnit(unitID)
	})
}

// Deselect clears the current selection
func (s *gameServiceImpl) Deselect(ctx context.Context, sessionID string) (*ActionResult, error) {
	return s.instant(ctx, sessionID, "Nothing to deselect.", func(e *engine.GameEngine) bool {
		return e.Deselect()
	})
}

// MoveUnit moves the selected unit to a reachable tile
func (s *gameServiceImpl) MoveUnit(ctx context.Context, sessionID string, target engine.Position) (*ActionResult, error) {
	return s.instant(ctx, sessionID, fmt.Sprintf("Cannot move to (%d, %d).", target.X, target.Y), func(e *engine.GameEngine) bool {
		return e.MoveSelectedUnit(target)
	})
}

// EnterAttackTargeting switches the selected unit to attack targeting
func (s *gameServiceImpl) EnterAttackTargeting(ctx context.Context, sessionID string) (*ActionResult, error) {
	return s.instant(ctx, sessionID, "Cannot attack now.", func(e *engine.GameEngine) bool {
		return e.EnterAttackTargeting()
	})
}

// EnterSpellMenu opens the spell list of the selected caster
func (s *gameServiceImpl) EnterSpellMenu(ctx context.Context, sessionID string) (*ActionResult, error) {
	return s.instant(ctx, sessionID, "No spells available.", func(e *engine.GameEngine) bool {
		return e.EnterSpellMenu()
	})
}

// EnterSpellTargeting picks a spell from the open spell menu
func (s *gameServiceImpl) EnterSpellTargeting(ctx context.Context, sessionID, spellID string) (*ActionResult, error) {
	return s.instant(ctx, sessionID, fmt.Sprintf("Spell %s cannot be selected.", spellID), func(e *engine.GameEngine) bool {
		return e.EnterSpellTargeting(spellID)
	})
}

// Wait ends a unit's action without attacking
func (s *gameServiceImpl) Wait(ctx context.Context, sessionID, unitID string) (*ActionResult, error) {
	return s.instant(ctx, sessionID, fmt.Sprintf("Unit %s cannot wait.", unitID), func(e *engine.GameEngine) bool {
		return e.Wait(unitID)
	})
}

// Undo steps back one interaction or committed action
func (s *gameServiceImpl) Undo(ctx context.Context, sessionID string) (*ActionResult, error) {
	return s.instant(ctx, sessionID, "Nothing to undo.", func(e *engine.GameEngine) bool {
		return e.Undo()
	})
}

// RemoveUnits completes deferred deaths for clients that drive their own animations
func (s *gameServiceImpl) RemoveUnits(ctx context.Context, sessionID string, unitIDs []string) (*ActionResult, error) {
	return s.instant(ctx, sessionID, "No pending units removed.", func(e *engine.GameEngine) bool {
		return e.RemoveUnits(unitIDs)
	})
}

// Attack resolves an attack and waits for its animation to finish
func (s *gameServiceImpl) Attack(ctx context.Context, sessionID, attackerID string, target engine.Position) (*ActionResult, error) {
	session, err := s.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	res, err := session.Engine.Attack(ctx, attackerID, target)
	if err != nil {
		return nil, engineErr(err)
	}

	state := session.Engine.State()
	result := &ActionResult{
		Success:   res.Success,
		Message:   state.Message,
		GameState: state,
	}
	if res.Success || res.Forfeited {
		result.Attack = &res
	} else {
		result.Message = fmt.Sprintf("Unit %s cannot attack (%d, %d).", attackerID, target.X, target.Y)
	}
	return result, nil
}

// CastSpell casts the selected spell and waits for its animation to finish
func (s *gameServiceImpl) CastSpell(ctx context.Context, sessionID string, target engine.Position) (*ActionResult, error) {
	session, err := s.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	res, err := session.Engine.CastSpell(ctx, target)
	if err != nil {
		return nil, engineErr(err)
	}

	state := session.Engine.State()
	result := &ActionResult{
		Success:   res.Success,
		Message:   state.Message,
		GameState: state,
	}
	if res.Success {
		result.Spell = &res
	} else {
		result.Message = fmt.Sprintf("Cannot cast at (%d, %d).", target.X, target.Y)
	}
	return result, nil
}

// EndTurn plays the enemy turn and returns once the player may act again
func (s *gameServiceImpl) EndTurn(ctx context.Context, sessionID string) (*ActionResult, error) {
	session, err := s.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	before := session.Engine.State()
	if before.Busy {
		return nil, ErrEngineBusy
	}
	if before.Status != engine.StatusPlaying || before.ActiveFaction != engine.Player {
		return &ActionResult{Success: false, Message: "No player turn to end.", GameState: before}, nil
	}

	if err := session.Engine.EndTurn(ctx); err != nil {
		return nil, engineErr(err)
	}

	state := session.Engine.State()
	return &ActionResult{
		Success:   true,
		Message:   state.Message,
		GameState: state,
	}, nil
}

// ClickTile interprets a tile click the way the board UI does
func (s *gameServiceImpl) ClickTile(ctx context.Context, sessionID string, pos engine.Position) (*ActionResult, error) {
	session, err := s.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	res, err := session.Engine.ClickTile(ctx, pos)
	if err != nil {
		return nil, engineErr(err)
	}

	state := session.Engine.State()
	return &ActionResult{
		Success:   res.Action != engine.ClickIgnored,
		Action:    string(res.Action),
		Message:   state.Message,
		Attack:    res.Attack,
		Spell:     res.Spell,
		GameState: state,
	}, nil
}

// Reset restarts the session's level from turn 1
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.GameState, error) {
	session, err := s.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := session.Engine.StartLevel(session.Level); err != nil {
		return nil, engineErr(err)
	}
	return session.Engine.State(), nil
}

// GetGameState returns the current game state
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	session, err := s.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return session.Engine.State(), nil
}

// ListLevels returns the available levels with their completion flag
func (s *gameServiceImpl) ListLevels(ctx context.Context) ([]*LevelInfo, error) {
	infos, err := s.levels.ListLevels()
	if err != nil {
		return nil, err
	}

	completed, err := s.CompletedLevels(ctx)
	if err != nil {
		logger.Log.WithError(err).Warn("failed to read level progress")
		return infos, nil
	}
	done := make(map[int]bool, len(completed))
	for _, id := range completed {
		done[id] = true
	}
	for _, info := range infos {
		info.Completed = done[info.ID]
	}
	return infos, nil
}

// LoadLevel returns a level by reference
func (s *gameServiceImpl) LoadLevel(ctx context.Context, levelRef string) (*engine.LevelConfig, error) {
	return s.levels.LoadLevel(levelRef)
}

// SaveLevel validates and stores a level
func (s *gameServiceImpl) SaveLevel(ctx context.Context, name string, level *engine.LevelConfig) error {
	return s.levels.SaveLevel(name, level)
}

// CompletedLevels returns the ids of won levels
func (s *gameServiceImpl) CompletedLevels(ctx context.Context) ([]int, error) {
	if s.progress == nil {
		return []int{}, nil
	}
	return s.progress.Completed(ctx)
}
