package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/wricardo/pixel-tactics/game/engine"
	"github.com/wricardo/pixel-tactics/game/service"
)

// Client drives one session through the REST API
type Client struct {
	baseURL   string
	sessionID string
	client    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			// end-turn blocks for the whole enemy phase
			Timeout: 60 * time.Second,
		},
	}
}

// SessionID is empty until CreateSession succeeds
func (c *Client) SessionID() string {
	return c.sessionID
}

func (c *Client) post(ctx context.Context, path string, body, target interface{}) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return resp.StatusCode, fmt.Errorf("POST %s failed: %s - %s", path, resp.Status, apiErr.Error)
		}
		return resp.StatusCode, fmt.Errorf("POST %s failed: %s", path, resp.Status)
	}

	if target != nil {
		if err := json.Unmarshal(data, target); err != nil {
			return resp.StatusCode, fmt.Errorf("parse %s response: %w", path, err)
		}
	}
	return resp.StatusCode, nil
}

// CreateSession starts a session on levelRef; empty means the server default
func (c *Client) CreateSession(ctx context.Context, levelRef string) (*engine.GameState, error) {
	var info service.SessionInfo
	if _, err := c.post(ctx, "/api/sessions", map[string]string{"level_ref": levelRef}, &info); err != nil {
		return nil, err
	}
	if info.GameState == nil {
		return nil, fmt.Errorf("create session: response has no game state")
	}
	c.sessionID = info.ID
	return info.GameState, nil
}

// Reset restarts the session's level
func (c *Client) Reset(ctx context.Context) (*engine.GameState, error) {
	var resp struct {
		Message string            `json:"message"`
		State   *engine.GameState `json:"state"`
	}
	if _, err := c.post(ctx, c.sessionPath("/reset"), nil, &resp); err != nil {
		return nil, err
	}
	if resp.State == nil {
		return nil, fmt.Errorf("reset: response has no state")
	}
	return resp.State, nil
}

func (c *Client) sessionPath(action string) string {
	return "/api/sessions/" + c.sessionID + action
}

// action posts a player action. A refused action is not an error; callers
// check Success on the result.
func (c *Client) action(ctx context.Context, path string, body interface{}) (*service.ActionResult, error) {
	var result service.ActionResult
	if _, err := c.post(ctx, c.sessionPath(path), body, &result); err != nil {
		return nil, err
	}
	if result.GameState == nil {
		return nil, fmt.Errorf("%s: response has no game state", path)
	}
	return &result, nil
}

func (c *Client) Select(ctx context.Context, unitID string) (*service.ActionResult, error) {
	return c.action(ctx, "/select", map[string]string{"unit_id": unitID})
}

func (c *Client) Move(ctx context.Context, to engine.Position) (*service.ActionResult, error) {
	return c.action(ctx, "/move", to)
}

func (c *Client) Attack(ctx context.Context, attackerID string, target engine.Position) (*service.ActionResult, error) {
	return c.action(ctx, "/attack", map[string]interface{}{
		"attacker_id": attackerID,
		"x":           target.X,
		"y":           target.Y,
	})
}

// Cast opens the spell menu, picks spellID and casts it on target
func (c *Client) Cast(ctx context.Context, spellID string, target engine.Position) (*service.ActionResult, error) {
	result, err := c.action(ctx, "/spell-menu", nil)
	if err != nil || !result.Success {
		return result, err
	}
	result, err = c.action(ctx, "/spell-mode", map[string]string{"spell_id": spellID})
	if err != nil || !result.Success {
		return result, err
	}
	return c.action(ctx, "/cast", target)
}

func (c *Client) Wait(ctx context.Context, unitID string) (*service.ActionResult, error) {
	return c.action(ctx, "/wait", map[string]string{"unit_id": unitID})
}

func (c *Client) EndTurn(ctx context.Context) (*service.ActionResult, error) {
	return c.action(ctx, "/end-turn", nil)
}
