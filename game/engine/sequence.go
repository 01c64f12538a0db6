package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/wricardo/pixel-tactics/logger"
)

// Timing holds the animation delays a sequence waits out between steps.
// The zero value runs every sequence instantly.
type Timing struct {
	Move      time.Duration
	Attack    time.Duration
	Death     time.Duration
	Spell     time.Duration
	EnemyStep time.Duration
}

// DefaultTiming matches the pacing of the web client animations
func DefaultTiming() Timing {
	return Timing{
		Move:      200 * time.Millisecond,
		Attack:    400 * time.Millisecond,
		Death:     600 * time.Millisecond,
		Spell:     800 * time.Millisecond,
		EnemyStep: 300 * time.Millisecond,
	}
}

func pause(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}

// ClickAction names what a tile click resolved to
type ClickAction string

const (
	ClickIgnored  ClickAction = "ignored"
	ClickSelect   ClickAction = "select"
	ClickMove     ClickAction = "move"
	ClickDeselect ClickAction = "deselect"
	ClickAttack   ClickAction = "attack"
	ClickWait     ClickAction = "wait"
	ClickCast     ClickAction = "cast"
	ClickCancel   ClickAction = "cancel"
)

// ClickResult reports the outcome of ClickTile
type ClickResult struct {
	Action ClickAction   `json:"action"`
	Attack *AttackResult `json:"attack,omitempty"`
	Spell  *SpellResult  `json:"spell,omitempty"`
}

// beginSequence locks the engine for a player-triggered sequence. The context is
// only consulted before anything changes; a started sequence always completes.
func (e *GameEngine) beginSequence(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	e.mu.Lock()
	if e.state.Busy {
		e.mu.Unlock()
		return false, ErrBusy
	}
	if !e.canActLocked() {
		e.mu.Unlock()
		return false, nil
	}
	return true, nil
}

// Attack resolves an attack, then plays the hit and death animations and
// removes the dead before checking victory.
func (e *GameEngine) Attack(ctx context.Context, attackerID string, target Position) (AttackResult, error) {
	ok, err := e.beginSequence(ctx)
	if !ok {
		return AttackResult{}, err
	}

	res := e.playerAttackLocked(attackerID, target)
	if !res.Success {
		if res.Forfeited {
			e.release()
		} else {
			e.mu.Unlock()
		}
		return res, nil
	}

	e.state.Busy = true
	e.release()

	var dying []string
	if res.WasLethal {
		dying = []string{res.TargetID}
	}
	e.finishStrike(e.timing.Attack, dying)
	return res, nil
}

// CastSpell resolves the selected spell on target and plays it out. A target
// outside the spell's range changes nothing.
func (e *GameEngine) CastSpell(ctx context.Context, target Position) (SpellResult, error) {
	ok, err := e.beginSequence(ctx)
	if !ok {
		return SpellResult{}, err
	}

	res := e.castLocked(target)
	if !res.Success {
		e.mu.Unlock()
		return res, nil
	}

	e.state.Busy = true
	e.release()

	e.finishStrike(e.timing.Spell, res.KilledIDs)
	return res, nil
}

// finishStrike waits for the effect, then the death animation, then removes
// the dead and lifts the busy flag.
func (e *GameEngine) finishStrike(effect time.Duration, dying []string) {
	pause(effect)
	if len(dying) > 0 {
		pause(e.timing.Death)
	}

	e.mu.Lock()
	e.removeUnitsLocked(dying)
	e.state.Busy = false
	e.state.Visual = nil
	e.release()
}

// EndTurn hands control to the enemy, plays every enemy unit in roster order
// and starts the next player turn. Reaching the turn limit ends the level instead.
func (e *GameEngine) EndTurn(ctx context.Context) error {
	ok, err := e.beginSequence(ctx)
	if !ok {
		return err
	}

	if maxTurns := e.state.Level.MaxTurns; maxTurns > 0 && e.state.Turn >= maxTurns {
		e.state.Status = StatusDefeat
		e.state.Message = "Turn limit reached."
		e.state.Visual = nil
		e.preMove = nil
		e.clearInteractionLocked()
		e.release()
		return nil
	}

	e.history.Clear()
	e.preMove = nil
	e.clearInteractionLocked()
	e.state.Visual = nil
	e.state.ActiveFaction = Enemy
	e.state.Busy = true
	e.state.Message = "Enemy turn."
	turn := e.state.Turn

	var order []string
	for _, u := range e.state.Units {
		if u.Faction == Enemy && u.IsLiving() {
			order = append(order, u.ID)
		}
	}
	e.release()

	logger.Log.WithFields(logrus.Fields{
		"turn":    turn,
		"enemies": len(order),
	}).Debug("enemy turn started")

	for _, id := range order {
		if !e.runEnemyUnit(id) {
			break
		}
	}

	e.mu.Lock()
	if e.state.Status == StatusPlaying {
		for i := range e.state.Units {
			e.state.Units[i].HasMoved = false
		}
		e.state.Turn++
		e.state.Message = fmt.Sprintf("Turn %d started.", e.state.Turn)
	}
	e.state.ActiveFaction = Player
	e.state.Busy = false
	e.state.Visual = nil
	e.clearInteractionLocked()
	e.release()
	return nil
}

// runEnemyUnit plays one enemy unit and reports whether the turn should continue
func (e *GameEngine) runEnemyUnit(id string) bool {
	e.mu.Lock()
	if e.state.Status != StatusPlaying {
		e.mu.Unlock()
		return false
	}
	u := e.state.UnitByID(id)
	if u == nil || !u.IsLiving() {
		e.mu.Unlock()
		return true
	}

	decision := DecideEnemyAction(*u, e.state.Units, e.state.Grid)
	logger.Log.WithFields(logrus.Fields{
		"unit":   id,
		"action": decision.Kind,
		"x":      decision.MoveTo.X,
		"y":      decision.MoveTo.Y,
		"target": decision.TargetID,
	}).Debug("enemy decision")

	if decision.Kind == EnemyWait {
		u.HasMoved = true
		e.mu.Unlock()
		return true
	}

	if decision.MoveTo != u.Position {
		from := u.Position
		u.Position = decision.MoveTo
		u.Facing = facingFor(u.Facing, from, decision.MoveTo)
		dest := decision.MoveTo
		e.state.Visual = &VisualEvent{MovingUnitID: id, CameraFocus: &dest}
		e.release()
		pause(e.timing.Move)

		e.mu.Lock()
		if u = e.state.UnitByID(id); u == nil || e.state.Status != StatusPlaying {
			e.mu.Unlock()
			return u != nil
		}
	}

	if decision.Kind != EnemyAttack {
		u.HasMoved = true
		e.state.Visual = nil
		e.release()
		pause(e.timing.EnemyStep)
		return true
	}

	target := e.state.UnitByID(decision.TargetID)
	if target == nil || !target.IsLiving() ||
		!ContainsPosition(AttackTargets(*u, e.state.Units, e.state.Grid), target.Position) {
		u.HasMoved = true
		e.mu.Unlock()
		return true
	}

	res := e.applyAttackLocked(u, target.Position)
	e.release()

	pause(e.timing.Attack)
	var dying []string
	if res.WasLethal {
		dying = []string{res.TargetID}
		pause(e.timing.Death)
	}

	e.mu.Lock()
	e.removeUnitsLocked(dying)
	e.state.Visual = nil
	cont := e.state.Status == StatusPlaying
	e.release()
	return cont
}

// ClickTile interprets a click on pos according to the current interaction mode
func (e *GameEngine) ClickTile(ctx context.Context, pos Position) (ClickResult, error) {
	if err := ctx.Err(); err != nil {
		return ClickResult{}, err
	}

	e.mu.Lock()
	if e.state.Busy {
		e.mu.Unlock()
		return ClickResult{}, ErrBusy
	}
	if !e.canActLocked() {
		e.mu.Unlock()
		return ClickResult{Action: ClickIgnored}, nil
	}
	mode := e.state.Mode
	var selected *Unit
	if u := e.state.SelectedUnit(); u != nil {
		c := u.Clone()
		selected = &c
	}
	var occupant *Unit
	if u := LivingUnitAt(e.state.Units, pos); u != nil {
		c := u.Clone()
		occupant = &c
	}
	reachable := ContainsPosition(e.state.ReachableTiles, pos)
	targetable := ContainsPosition(e.state.ActionTargets, pos)
	e.mu.Unlock()

	switch mode {
	case ModeMovement:
		if occupant != nil && occupant.Faction == Player {
			if selected != nil && occupant.ID == selected.ID && reachable && e.MoveSelectedUnit(pos) {
				return ClickResult{Action: ClickMove}, nil
			}
			if e.SelectUnit(occupant.ID) {
				return ClickResult{Action: ClickSelect}, nil
			}
			return ClickResult{Action: ClickIgnored}, nil
		}
		if selected != nil && reachable && e.MoveSelectedUnit(pos) {
			return ClickResult{Action: ClickMove}, nil
		}
		if selected != nil && e.Deselect() {
			return ClickResult{Action: ClickDeselect}, nil
		}
		return ClickResult{Action: ClickIgnored}, nil

	case ModeTargetingAttack:
		if selected == nil {
			return ClickResult{Action: ClickIgnored}, nil
		}
		res, err := e.Attack(ctx, selected.ID, pos)
		if err != nil {
			return ClickResult{}, err
		}
		switch {
		case res.Forfeited:
			return ClickResult{Action: ClickWait, Attack: &res}, nil
		case res.Success:
			return ClickResult{Action: ClickAttack, Attack: &res}, nil
		}
		return ClickResult{Action: ClickIgnored}, nil

	case ModeTargetingSpell:
		if !targetable {
			if e.Undo() {
				return ClickResult{Action: ClickCancel}, nil
			}
			return ClickResult{Action: ClickIgnored}, nil
		}
		res, err := e.CastSpell(ctx, pos)
		if err != nil {
			return ClickResult{}, err
		}
		if !res.Success {
			return ClickResult{Action: ClickIgnored}, nil
		}
		return ClickResult{Action: ClickCast, Spell: &res}, nil

	case ModeActionSelect:
		if selected != nil && e.Wait(selected.ID) {
			return ClickResult{Action: ClickWait}, nil
		}
	}

	return ClickResult{Action: ClickIgnored}, nil
}
