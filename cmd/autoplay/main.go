// Command autoplay plays a level through the REST API with a greedy
// per-unit strategy. It is a smoke test for levels and for a running server.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/pixel-tactics/game/engine"
	"github.com/wricardo/pixel-tactics/game/service"
	"github.com/wricardo/pixel-tactics/logger"
)

// errNoVictory is returned when every attempt ends without a win
var errNoVictory = errors.New("failed to win")

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "autoplay",
		Usage: "Play a Pixel Tactics level against a running server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "url",
				Value:   "http://localhost:8080",
				Usage:   "Game server URL",
				Sources: cli.EnvVars("AUTOPLAY_URL"),
			},
			&cli.StringFlag{
				Name:  "level",
				Usage: "Level reference (default: the server's first level)",
			},
			&cli.IntFlag{
				Name:  "attempts",
				Value: 3,
				Usage: "Maximum attempts before giving up",
			},
			&cli.IntFlag{
				Name:  "max-turns",
				Value: 100,
				Usage: "Turn cap per attempt for levels without a turn limit",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Log every action",
			},
		},
		Action: run,
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	level := "info"
	if cmd.Bool("verbose") {
		level = "debug"
	}
	logger.Init(level, "text", os.Stderr)

	logger.Log.Infof("Connecting to game server at %s", cmd.String("url"))
	client := NewClient(cmd.String("url"))

	state, err := client.CreateSession(ctx, cmd.String("level"))
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	logger.Log.WithFields(logrus.Fields{
		"session": client.SessionID(),
		"level":   levelName(state),
	}).Info("Session created")

	player := &Player{
		client:   client,
		strategy: NewGreedyStrategy(),
		maxTurns: int(cmd.Int("max-turns")),
	}

	attempts := int(cmd.Int("attempts"))
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if state, err = client.Reset(ctx); err != nil {
				return fmt.Errorf("failed to reset: %w", err)
			}
		}

		logger.Log.Infof("=== Attempt %d/%d ===", attempt, attempts)
		final, err := player.Play(ctx, state)
		if err != nil {
			return err
		}
		logger.Log.WithFields(logrus.Fields{
			"status": final.Status,
			"turn":   final.Turn,
		}).Infof("Attempt %d finished: %s", attempt, final.Message)

		if final.Status == engine.StatusVictory {
			logger.Log.Infof("VICTORY in attempt %d (session %s)", attempt, client.SessionID())
			return nil
		}
	}

	return fmt.Errorf("%w after %d attempts (session %s)", errNoVictory, attempts, client.SessionID())
}

func levelName(state *engine.GameState) string {
	if state.Level == nil {
		return ""
	}
	return state.Level.Name
}

// Player runs a strategy against one session
type Player struct {
	client   *Client
	strategy *GreedyStrategy
	maxTurns int
}

// Play runs turns until the game leaves PLAYING or the turn cap is hit
func (p *Player) Play(ctx context.Context, state *engine.GameState) (*engine.GameState, error) {
	for state.Status == engine.StatusPlaying && state.Turn <= p.maxTurns {
		if err := ctx.Err(); err != nil {
			return state, err
		}

		for unit := p.strategy.NextUnit(state); unit != nil && state.Status == engine.StatusPlaying; unit = p.strategy.NextUnit(state) {
			next, err := p.playUnit(ctx, *unit, state)
			if err != nil {
				return state, err
			}
			state = next
		}
		if state.Status != engine.StatusPlaying {
			break
		}

		result, err := p.client.EndTurn(ctx)
		if err != nil {
			return state, fmt.Errorf("end turn: %w", err)
		}
		state = result.GameState
		logger.Log.Debugf("Turn ended: %s", state.Message)
	}
	return state, nil
}

// playUnit executes one plan. Any refused step falls back to waiting so the
// unit is always spent and the loop makes progress.
func (p *Player) playUnit(ctx context.Context, unit engine.Unit, state *engine.GameState) (*engine.GameState, error) {
	plan := p.strategy.PlanUnit(unit, state)
	log := logger.Log.WithFields(logrus.Fields{
		"unit":   plan.UnitID,
		"action": plan.Kind,
		"move":   fmt.Sprintf("(%d,%d)", plan.MoveTo.X, plan.MoveTo.Y),
	})
	log.Debug("Planned")

	result, err := p.client.Select(ctx, plan.UnitID)
	if err != nil {
		return state, err
	}
	if !result.Success {
		return p.fallback(ctx, plan, result)
	}

	if result, err = p.client.Move(ctx, plan.MoveTo); err != nil {
		return state, err
	}
	if !result.Success {
		return p.fallback(ctx, plan, result)
	}

	switch plan.Kind {
	case ActionAttack:
		result, err = p.client.Attack(ctx, plan.UnitID, plan.Target)
	case ActionCast:
		result, err = p.client.Cast(ctx, plan.SpellID, plan.Target)
	default:
		result, err = p.client.Wait(ctx, plan.UnitID)
	}
	if err != nil {
		return state, err
	}
	if !result.Success {
		return p.fallback(ctx, plan, result)
	}

	log.Debug(result.GameState.Message)
	return result.GameState, nil
}

func (p *Player) fallback(ctx context.Context, plan Plan, refused *service.ActionResult) (*engine.GameState, error) {
	logger.Log.WithField("unit", plan.UnitID).Warnf("Action refused (%s), waiting instead", refused.Message)
	// a forfeited attack already spent the unit
	if u := refused.GameState.UnitByID(plan.UnitID); u == nil || u.HasMoved || !u.IsLiving() {
		return refused.GameState, nil
	}
	result, err := p.client.Wait(ctx, plan.UnitID)
	if err != nil {
		return refused.GameState, err
	}
	if !result.Success {
		return result.GameState, fmt.Errorf("unit %s is stuck: %s", plan.UnitID, result.Message)
	}
	return result.GameState, nil
}

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		logger.Log.Fatal(err)
	}
}
