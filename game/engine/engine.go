package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

const welcomeMessage = "Welcome, Commander."

// ErrBusy is returned when an animated sequence is still running
var ErrBusy = errors.New("engine busy")

// Engine provides the main interface for game operations
type Engine interface {
	// Game state
	State() *GameState
	IsBusy() bool

	// Lifecycle
	StartLevel(level *LevelConfig) error
	ReturnToMenu() bool
	EnterEditor() bool

	// Player interaction
	SelectUnit(id string) bool
	Deselect() bool
	MoveSelectedUnit(target Position) bool
	EnterAttackTargeting() bool
	EnterSpellMenu() bool
	EnterSpellTargeting(spellID string) bool
	Wait(unitID string) bool
	Undo() bool

	// Immediate combat primitives for callers that animate deaths themselves
	ResolveAttack(attackerID string, target Position) AttackResult
	ResolveSpell(target Position) SpellResult
	RemoveUnits(ids []string) bool

	// Animated sequences
	Attack(ctx context.Context, attackerID string, target Position) (AttackResult, error)
	CastSpell(ctx context.Context, target Position) (SpellResult, error)
	EndTurn(ctx context.Context) error
	ClickTile(ctx context.Context, pos Position) (ClickResult, error)
}

// GameEngine implements the Engine interface. All state is guarded by mu;
// hooks receive deep copies after the lock is released.
type GameEngine struct {
	mu      sync.Mutex
	state   *GameState
	history History
	preMove *Snapshot

	spellMenuReturn InteractionMode
	attackReturn    InteractionMode
	outcomeReported bool

	timing           Timing
	attackDamage     int
	legacyCasterMenu bool
	stateHooks       []func(*GameState)
	outcomeHooks     []func(*GameState)
}

// Option configures a GameEngine
type Option func(*GameEngine)

// WithTiming sets the animation delays awaited by sequences
func WithTiming(t Timing) Option {
	return func(e *GameEngine) { e.timing = t }
}

// WithAttackDamage overrides DefaultAttackDamage
func WithAttackDamage(n int) Option {
	return func(e *GameEngine) { e.attackDamage = n }
}

// WithLegacyCasterMenu routes casters to ACTION_SELECT after moving
func WithLegacyCasterMenu() Option {
	return func(e *GameEngine) { e.legacyCasterMenu = true }
}

// WithStateHook registers a callback invoked after every state change
func WithStateHook(fn func(*GameState)) Option {
	return func(e *GameEngine) { e.stateHooks = append(e.stateHooks, fn) }
}

// WithOutcomeHook registers a callback invoked once when a level is won or lost
func WithOutcomeHook(fn func(*GameState)) Option {
	return func(e *GameEngine) { e.outcomeHooks = append(e.outcomeHooks, fn) }
}

// NewEngine creates an engine sitting at the main menu
func NewEngine(opts ...Option) *GameEngine {
	e := &GameEngine{attackDamage: DefaultAttackDamage}
	for _, opt := range opts {
		opt(e)
	}
	e.state = idleState(StatusMenu, welcomeMessage)
	return e
}

func idleState(status GameStatus, message string) *GameState {
	return &GameState{
		Status:         status,
		Units:          []Unit{},
		Turn:           1,
		ActiveFaction:  Player,
		Mode:           ModeMovement,
		ReachableTiles: []Position{},
		AttackRange:    []Position{},
		ActionTargets:  []Position{},
		Message:        message,
	}
}

// State returns a deep copy of the current state
func (e *GameEngine) State() *GameState {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.syncUndoAids()
	return e.state.Clone()
}

// IsBusy reports whether an animated sequence is in flight
func (e *GameEngine) IsBusy() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Busy
}

func (e *GameEngine) syncUndoAids() {
	e.state.HistoryDepth = e.history.Len()
	e.state.PendingMove = e.preMove != nil
}

// release unlocks mu and hands the new state to the registered hooks
func (e *GameEngine) release() {
	e.syncUndoAids()
	snapshot := e.state.Clone()
	fireOutcome := false
	if (snapshot.Status == StatusVictory || snapshot.Status == StatusDefeat) && !e.outcomeReported {
		e.outcomeReported = true
		fireOutcome = true
	}
	stateHooks, outcomeHooks := e.stateHooks, e.outcomeHooks
	e.mu.Unlock()

	for _, hook := range stateHooks {
		hook(snapshot)
	}
	if fireOutcome {
		for _, hook := range outcomeHooks {
			hook(snapshot)
		}
	}
}

// canActLocked reports whether player input is currently accepted
func (e *GameEngine) canActLocked() bool {
	return e.state.Status == StatusPlaying && e.state.ActiveFaction == Player && !e.state.Busy
}

// StartLevel loads a level and begins turn 1
func (e *GameEngine) StartLevel(level *LevelConfig) error {
	if err := ValidateLevelConfig(level); err != nil {
		return err
	}

	e.mu.Lock()
	if e.state.Busy {
		e.mu.Unlock()
		return ErrBusy
	}

	cfg := level.Clone()
	units := cloneUnits(cfg.Units)
	for i := range units {
		units[i].Status = StatusAlive
		units[i].HasMoved = false
	}

	message := cfg.Description
	if message == "" {
		message = welcomeMessage
	}

	e.state = idleState(StatusPlaying, message)
	e.state.Level = cfg
	e.state.Grid = cfg.BuildGrid()
	e.state.Units = units
	e.history.Clear()
	e.preMove = nil
	e.spellMenuReturn = ""
	e.attackReturn = ""
	e.outcomeReported = false
	e.release()
	return nil
}

// ReturnToMenu discards the running level
func (e *GameEngine) ReturnToMenu() bool {
	return e.resetTo(StatusMenu, welcomeMessage)
}

// EnterEditor switches to the map editor status
func (e *GameEngine) EnterEditor() bool {
	return e.resetTo(StatusEditor, "Map editor.")
}

func (e *GameEngine) resetTo(status GameStatus, message string) bool {
	e.mu.Lock()
	if e.state.Busy {
		e.mu.Unlock()
		return false
	}
	e.state = idleState(status, message)
	e.history.Clear()
	e.preMove = nil
	e.spellMenuReturn = ""
	e.attackReturn = ""
	e.release()
	return true
}

func (e *GameEngine) clearInteractionLocked() {
	e.state.SelectedUnitID = ""
	e.state.SelectedSpell = nil
	e.state.ReachableTiles = []Position{}
	e.state.AttackRange = []Position{}
	e.state.ActionTargets = []Position{}
	e.state.Mode = ModeMovement
	e.spellMenuReturn = ""
	e.attackReturn = ""
}

// actingUnitLocked returns the selected unit if it may still act this turn
func (e *GameEngine) actingUnitLocked() *Unit {
	u := e.state.SelectedUnit()
	if u == nil || !u.IsLiving() || u.Faction != Player || u.HasMoved {
		return nil
	}
	return u
}

// SelectUnit selects a living player unit. Units that already acted can be
// selected for inspection but get no movement range.
func (e *GameEngine) SelectUnit(id string) bool {
	e.mu.Lock()
	if !e.canActLocked() || e.preMove != nil {
		e.mu.Unlock()
		return false
	}
	u := e.state.UnitByID(id)
	if u == nil || !u.IsLiving() || u.Faction != Player {
		e.mu.Unlock()
		return false
	}

	e.clearInteractionLocked()
	e.state.SelectedUnitID = id
	focus := u.Position
	e.state.Visual = &VisualEvent{CameraFocus: &focus}
	if u.HasMoved {
		e.state.Message = fmt.Sprintf("%s (Waiting)", u.Name)
	} else {
		e.state.ReachableTiles = ReachableTiles(*u, e.state.Units, e.state.Grid)
		e.state.Message = fmt.Sprintf("%s selected.", u.Name)
	}
	e.release()
	return true
}

// Deselect clears the selection. A moved unit must act or be undone first.
func (e *GameEngine) Deselect() bool {
	e.mu.Lock()
	if !e.canActLocked() || e.preMove != nil {
		e.mu.Unlock()
		return false
	}
	e.clearInteractionLocked()
	e.state.Visual = nil
	e.release()
	return true
}

// MoveSelectedUnit moves the selected unit to a reachable tile and opens
// attack targeting. The pre-move state is kept so the move can be cancelled.
func (e *GameEngine) MoveSelectedUnit(target Position) bool {
	e.mu.Lock()
	u := e.actingUnitLocked()
	if !e.canActLocked() || e.state.Mode != ModeMovement || e.preMove != nil || u == nil ||
		!ContainsPosition(ReachableTiles(*u, e.state.Units, e.state.Grid), target) {
		e.mu.Unlock()
		return false
	}

	snapshot := takeSnapshot(e.state)
	e.preMove = &snapshot

	from := u.Position
	u.Position = target
	u.Facing = facingFor(u.Facing, from, target)
	dest := target
	e.state.Visual = &VisualEvent{MovingUnitID: u.ID, CameraFocus: &dest}
	e.state.ReachableTiles = []Position{}

	if e.legacyCasterMenu && u.HasSpells() {
		e.state.Mode = ModeActionSelect
		e.state.AttackRange = []Position{}
		e.state.ActionTargets = []Position{}
		e.state.Message = "Choose action."
	} else {
		e.enterAttackModeLocked(u)
	}
	e.release()
	return true
}

func (e *GameEngine) enterAttackModeLocked(u *Unit) {
	e.state.Mode = ModeTargetingAttack
	e.state.SelectedSpell = nil
	e.state.ReachableTiles = []Position{}
	e.state.AttackRange = AttackRangeTiles(*u, e.state.Grid)
	e.state.ActionTargets = AttackTargets(*u, e.state.Units, e.state.Grid)
	e.state.Message = "Select a target."
}

// EnterAttackTargeting opens attack targeting for the selected unit, either
// without moving or as the back action from a menu.
func (e *GameEngine) EnterAttackTargeting() bool {
	e.mu.Lock()
	u := e.actingUnitLocked()
	if !e.canActLocked() || u == nil {
		e.mu.Unlock()
		return false
	}
	from := e.state.Mode
	switch from {
	case ModeMovement, ModeActionSelect, ModeSpellMenu, ModeTargetingAttack:
	default:
		e.mu.Unlock()
		return false
	}

	if e.preMove == nil {
		snapshot := takeSnapshot(e.state)
		e.preMove = &snapshot
	}
	if from == ModeActionSelect {
		e.attackReturn = ModeActionSelect
	} else if from == ModeSpellMenu && e.spellMenuReturn == ModeActionSelect {
		e.attackReturn = ModeActionSelect
	}
	e.spellMenuReturn = ""
	e.enterAttackModeLocked(u)
	e.release()
	return true
}

// EnterSpellMenu opens the spell list for a caster
func (e *GameEngine) EnterSpellMenu() bool {
	e.mu.Lock()
	u := e.actingUnitLocked()
	if !e.canActLocked() || u == nil || !u.HasSpells() {
		e.mu.Unlock()
		return false
	}
	from := e.state.Mode
	switch from {
	case ModeMovement, ModeTargetingAttack:
		e.spellMenuReturn = ModeTargetingAttack
	case ModeActionSelect:
		e.spellMenuReturn = ModeActionSelect
	default:
		e.mu.Unlock()
		return false
	}

	if e.preMove == nil {
		snapshot := takeSnapshot(e.state)
		e.preMove = &snapshot
	}
	e.state.Mode = ModeSpellMenu
	e.state.SelectedSpell = nil
	e.state.ReachableTiles = []Position{}
	e.state.AttackRange = []Position{}
	e.state.ActionTargets = []Position{}
	e.state.Message = "Select a spell."
	e.release()
	return true
}

// EnterSpellTargeting picks a spell from the menu. Every tile in range is a valid centre.
func (e *GameEngine) EnterSpellTargeting(spellID string) bool {
	e.mu.Lock()
	u := e.actingUnitLocked()
	if !e.canActLocked() || u == nil || e.state.Mode != ModeSpellMenu {
		e.mu.Unlock()
		return false
	}
	spell, ok := u.Spell(spellID)
	if !ok {
		e.mu.Unlock()
		return false
	}

	e.state.SelectedSpell = &spell
	e.state.Mode = ModeTargetingSpell
	tiles := SpellTargets(*u, spell, e.state.Grid)
	e.state.AttackRange = tiles
	e.state.ActionTargets = clonePositions(tiles)
	e.state.Message = fmt.Sprintf("Select target for %s.", spell.Name)
	e.release()
	return true
}

// endUnitActionLocked finishes a unit's turn and commits any pending move to history
func (e *GameEngine) endUnitActionLocked(unitID string) {
	if u := e.state.UnitByID(unitID); u != nil {
		u.HasMoved = true
	}
	if e.preMove != nil {
		e.history.Push(*e.preMove)
		e.preMove = nil
	}
	e.clearInteractionLocked()
}

// Wait ends a unit's turn without acting
func (e *GameEngine) Wait(unitID string) bool {
	e.mu.Lock()
	if !e.canActLocked() {
		e.mu.Unlock()
		return false
	}
	u := e.state.UnitByID(unitID)
	if u == nil || !u.IsLiving() || u.Faction != Player || u.HasMoved {
		e.mu.Unlock()
		return false
	}
	if sel := e.state.SelectedUnitID; sel != "" && sel != unitID && e.preMove != nil {
		e.mu.Unlock()
		return false
	}
	e.waitLocked(unitID)
	e.release()
	return true
}

func (e *GameEngine) waitLocked(unitID string) {
	e.state.Message = "Unit holding position."
	e.state.Visual = nil
	e.endUnitActionLocked(unitID)
}

// ResolveAttack applies an attack immediately. Killed units stay on the roster
// until RemoveUnits is called.
func (e *GameEngine) ResolveAttack(attackerID string, target Position) AttackResult {
	e.mu.Lock()
	if !e.canActLocked() {
		e.mu.Unlock()
		return AttackResult{}
	}
	res := e.playerAttackLocked(attackerID, target)
	if !res.Success && !res.Forfeited {
		e.mu.Unlock()
		return res
	}
	e.release()
	return res
}

// playerAttackLocked validates a player attack. An attack on a tile that is
// not a valid target forfeits the action.
func (e *GameEngine) playerAttackLocked(attackerID string, target Position) AttackResult {
	attacker := e.state.UnitByID(attackerID)
	if attacker == nil || !attacker.IsLiving() || attacker.Faction != Player || attacker.HasMoved {
		return AttackResult{}
	}
	if sel := e.state.SelectedUnitID; sel != "" && sel != attackerID {
		return AttackResult{}
	}
	if !ContainsPosition(AttackTargets(*attacker, e.state.Units, e.state.Grid), target) {
		e.waitLocked(attackerID)
		return AttackResult{Forfeited: true}
	}
	return e.applyAttackLocked(attacker, target)
}

// applyAttackLocked deals attack damage to the living unit on target
func (e *GameEngine) applyAttackLocked(attacker *Unit, target Position) AttackResult {
	victim := LivingUnitAt(e.state.Units, target)
	if victim == nil {
		return AttackResult{}
	}
	damage := e.attackDamage
	lethal := ApplyDamage(victim, damage)
	victimID := victim.ID
	attacker.HasMoved = true
	attacker.Facing = facingFor(attacker.Facing, attacker.Position, target)

	tile := target
	focus := target
	e.state.Visual = &VisualEvent{AttackerID: attacker.ID, TargetTile: &tile, CameraFocus: &focus}
	if lethal {
		e.state.Visual.DyingUnitIDs = []string{victimID}
	}
	e.state.Message = attackMessage(*victim, damage, lethal)
	e.endUnitActionLocked(attacker.ID)

	return AttackResult{Success: true, Damage: damage, WasLethal: lethal, TargetID: victimID}
}

// ResolveSpell casts the selected spell immediately. Killed units stay on the
// roster until RemoveUnits is called.
func (e *GameEngine) ResolveSpell(target Position) SpellResult {
	e.mu.Lock()
	if !e.canActLocked() {
		e.mu.Unlock()
		return SpellResult{}
	}
	res := e.castLocked(target)
	if !res.Success {
		e.mu.Unlock()
		return res
	}
	e.release()
	return res
}

// castLocked resolves the selected spell on target. Every living unit in the
// footprint is hit, whatever its faction, the caster included.
func (e *GameEngine) castLocked(target Position) SpellResult {
	caster := e.actingUnitLocked()
	if e.state.Mode != ModeTargetingSpell || caster == nil || e.state.SelectedSpell == nil {
		return SpellResult{}
	}
	if !ContainsPosition(e.state.ActionTargets, target) {
		return SpellResult{}
	}
	spell := *e.state.SelectedSpell
	casterID := caster.ID

	res := SpellResult{Success: true, SpellID: spell.ID}
	footprint := SpellFootprint(target, spell, e.state.Grid)
	for _, idx := range UnitsInFootprint(e.state.Units, footprint) {
		u := &e.state.Units[idx]
		res.HitIDs = append(res.HitIDs, u.ID)
		if ApplyDamage(u, spell.Damage) {
			res.KilledIDs = append(res.KilledIDs, u.ID)
		}
	}

	effect := spell.VFXType
	if effect == "" {
		effect = spell.ID
	}
	tile := target
	focus := target
	e.state.Visual = &VisualEvent{
		CastingUnitID: casterID,
		SpellEffect:   effect,
		TargetTile:    &tile,
		DyingUnitIDs:  append([]string(nil), res.KilledIDs...),
		CameraFocus:   &focus,
	}
	e.state.Message = fmt.Sprintf("Cast %s! Hit %d units.", spell.Name, len(res.HitIDs))
	e.endUnitActionLocked(casterID)
	return res
}

// Undo steps back one level: it closes menus, cancels a pending move,
// clears a selection, or restores the last committed action, in that order.
func (e *GameEngine) Undo() bool {
	e.mu.Lock()
	if !e.canActLocked() {
		e.mu.Unlock()
		return false
	}

	switch {
	case e.state.Mode == ModeTargetingSpell:
		e.state.Mode = ModeSpellMenu
		e.state.SelectedSpell = nil
		e.state.AttackRange = []Position{}
		e.state.ActionTargets = []Position{}
		e.state.Message = "Select a spell."

	case e.state.Mode == ModeSpellMenu:
		u := e.state.SelectedUnit()
		if e.spellMenuReturn == ModeActionSelect || u == nil {
			e.enterActionSelectLocked()
		} else {
			e.enterAttackModeLocked(u)
		}
		e.spellMenuReturn = ""

	case e.state.Mode == ModeTargetingAttack && e.attackReturn == ModeActionSelect:
		e.enterActionSelectLocked()

	case e.preMove != nil:
		e.restoreLocked(*e.preMove)

	case e.state.SelectedUnitID != "":
		e.clearInteractionLocked()
		e.state.Visual = nil

	case e.history.Len() > 0:
		snapshot, _ := e.history.Pop()
		e.restoreLocked(snapshot)

	default:
		e.mu.Unlock()
		return false
	}

	e.release()
	return true
}

func (e *GameEngine) enterActionSelectLocked() {
	e.state.Mode = ModeActionSelect
	e.state.SelectedSpell = nil
	e.state.AttackRange = []Position{}
	e.state.ActionTargets = []Position{}
	e.state.Message = "Choose action."
	e.attackReturn = ""
}

func (e *GameEngine) restoreLocked(s Snapshot) {
	e.state.Units = cloneUnits(s.Units)
	e.state.Turn = s.Turn
	e.state.Status = s.Status
	e.state.Message = s.Message
	e.state.Visual = nil
	e.preMove = nil
	e.clearInteractionLocked()
}

// RemoveUnits completes deferred deaths and then evaluates victory and defeat.
// Only units already reduced to 0 HP are removed.
func (e *GameEngine) RemoveUnits(ids []string) bool {
	e.mu.Lock()
	if e.state.Busy || e.state.Status != StatusPlaying {
		e.mu.Unlock()
		return false
	}
	if e.removeUnitsLocked(ids) == 0 {
		e.mu.Unlock()
		return false
	}
	e.release()
	return true
}

func (e *GameEngine) removeUnitsLocked(ids []string) int {
	if len(ids) == 0 {
		return 0
	}
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	kept := make([]Unit, 0, len(e.state.Units))
	removed := 0
	for _, u := range e.state.Units {
		if drop[u.ID] && u.Status == StatusPendingRemoval {
			removed++
			continue
		}
		kept = append(kept, u)
	}
	if removed == 0 {
		return 0
	}
	e.state.Units = kept
	if e.state.Visual != nil {
		e.state.Visual.DyingUnitIDs = nil
	}
	e.evaluateLocked()
	return removed
}

func (e *GameEngine) evaluateLocked() {
	maxTurns := 0
	if e.state.Level != nil {
		maxTurns = e.state.Level.MaxTurns
	}
	status, message, decided := EvaluateOutcome(e.state.Units, e.state.Turn, maxTurns)
	if !decided {
		return
	}
	e.state.Status = status
	e.state.Message = message
	e.preMove = nil
	e.clearInteractionLocked()
}
