package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/pixel-tactics/game/engine"
	"github.com/wricardo/pixel-tactics/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			// End turn waits for the whole enemy turn to play out
			Timeout: 60 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Pixel Tactics",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Pixel Tactics - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Destroy every enemy unit before your units fall or the turn limit runs out.

AVAILABLE TOOLS:
- create_session: Start a level (see list_levels)
- list_sessions: List all active sessions
- game_state: Board, units and current interaction mode
- select_unit / move_unit: Pick a unit and move it
- attack / cast_spell / wait_unit: Finish a unit's action
- end_turn: Let the enemy act, then start the next turn
- undo: Step back one action
- click_tile: Click a tile exactly like the board UI
- list_levels: Levels with their completion status
- game_instructions: Full rules
- describe_tile: Terrain and occupant of one tile`),
	)

	c.registerTools()
}

func sessionProp() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

func coordProps(props map[string]interface{}) map[string]interface{} {
	props["x"] = map[string]interface{}{
		"type":        "integer",
		"description": "Tile column (0-based)",
	}
	props["y"] = map[string]interface{}{
		"type":        "integer",
		"description": "Tile row (0-based)",
	}
	return props
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new game session, optionally on a specific level",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"level_ref": map[string]interface{}{
					"type":        "string",
					"description": "Level reference from list_levels, e.g. 'level2' (optional)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	// Game operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the current board, units, turn and interaction mode",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionProp()},
			Required:   []string{"session_id"},
		},
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "select_unit",
		Description: "Select one of your units that has not acted this turn",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp(),
				"unit_id": map[string]interface{}{
					"type":        "string",
					"description": "ID of the unit to select",
				},
			},
			Required: []string{"session_id", "unit_id"},
		},
	}, c.handleSelectUnit)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move_unit",
		Description: "Move the selected unit to a reachable tile (its own tile to stay put)",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: coordProps(map[string]interface{}{"session_id": sessionProp()}),
			Required:   []string{"session_id", "x", "y"},
		},
	}, c.handleMoveUnit)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "attack",
		Description: "Attack the tile at x,y with the unit that just moved. An invalid target ends the unit's action without attacking.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: coordProps(map[string]interface{}{
				"session_id": sessionProp(),
				"attacker_id": map[string]interface{}{
					"type":        "string",
					"description": "ID of the attacking unit",
				},
			}),
			Required: []string{"session_id", "attacker_id", "x", "y"},
		},
	}, c.handleAttack)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "cast_spell",
		Description: "Cast a spell of the unit that just moved, centered on x,y. Area spells also hit your own units.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: coordProps(map[string]interface{}{
				"session_id": sessionProp(),
				"spell_id": map[string]interface{}{
					"type":        "string",
					"description": "Spell to cast; omit if the spell is already selected",
				},
			}),
			Required: []string{"session_id", "x", "y"},
		},
	}, c.handleCastSpell)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "wait_unit",
		Description: "End a unit's action without attacking",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp(),
				"unit_id": map[string]interface{}{
					"type":        "string",
					"description": "ID of the unit that holds position",
				},
			},
			Required: []string{"session_id", "unit_id"},
		},
	}, c.handleWaitUnit)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "end_turn",
		Description: "End your turn. Returns after every enemy unit has acted.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionProp()},
			Required:   []string{"session_id"},
		},
	}, c.handleEndTurn)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "undo",
		Description: "Step back: close a menu, cancel a pending move, clear the selection or revert the last action",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionProp()},
			Required:   []string{"session_id"},
		},
	}, c.handleUndo)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "click_tile",
		Description: "Click a tile exactly like the board UI does in the current mode",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: coordProps(map[string]interface{}{"session_id": sessionProp()}),
			Required:   []string{"session_id", "x", "y"},
		},
	}, c.handleClickTile)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_game",
		Description: "Restart the session's level from turn 1",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionProp()},
			Required:   []string{"session_id"},
		},
	}, c.handleReset)

	// Levels
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_levels",
		Description: "List available levels and which ones are completed",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListLevels)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get the complete rules and how to drive a turn through the tools",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "describe_tile",
		Description: "Describe the terrain and occupant of one tile, and whether the current selection can reach or target it",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: coordProps(map[string]interface{}{"session_id": sessionProp()}),
			Required:   []string{"session_id", "x", "y"},
		},
	}, c.handleDescribeTile)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

// tileArgs reads the x and y arguments, which arrive as JSON numbers
func tileArgs(args map[string]interface{}) (map[string]int, error) {
	x, okX := args["x"].(float64)
	y, okY := args["y"].(float64)
	if !okX || !okY {
		return nil, fmt.Errorf("x and y are required")
	}
	return map[string]int{"x": int(x), "y": int(y)}, nil
}

// action posts to a session action endpoint and renders the ActionResult
func (c *Client) action(ctx context.Context, sessionID, path string, body interface{}) (*mcp.CallToolResult, error) {
	var result service.ActionResult
	if err := c.apiCall(ctx, "POST", fmt.Sprintf("/api/sessions/%s/%s", sessionID, path), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatActionResult(&result)), nil
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	levelRef, _ := args["level_ref"].(string)

	body := map[string]string{}
	if levelRef != "" {
		body["level_ref"] = levelRef
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result strings.Builder
	fmt.Fprintf(&result, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		status := ""
		if s.GameState != nil {
			status = fmt.Sprintf(", %s turn %d", s.GameState.Status, s.GameState.Turn)
		}
		fmt.Fprintf(&result, "- %s (Level: %s%s, Created: %s)\n",
			s.ID, s.LevelRef, status, s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(result.String()), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var state engine.GameState
	if err := c.apiCall(ctx, "GET", fmt.Sprintf("/api/sessions/%s/state", sessionID), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGameState(&state)), nil
}

func (c *Client) handleSelectUnit(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	unitID, _ := args["unit_id"].(string)

	return c.action(ctx, sessionID, "select", map[string]string{"unit_id": unitID})
}

func (c *Client) handleMoveUnit(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	tile, err := tileArgs(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return c.action(ctx, sessionID, "move", tile)
}

func (c *Client) handleAttack(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	attackerID, _ := args["attacker_id"].(string)
	tile, err := tileArgs(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return c.action(ctx, sessionID, "attack", map[string]interface{}{
		"attacker_id": attackerID,
		"x":           tile["x"],
		"y":           tile["y"],
	})
}

// handleCastSpell opens the spell menu and picks spell_id when given, then casts
func (c *Client) handleCastSpell(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	spellID, _ := args["spell_id"].(string)
	tile, err := tileArgs(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if spellID != "" {
		steps := []struct {
			path string
			body interface{}
		}{
			{"spell-menu", nil},
			{"spell-mode", map[string]string{"spell_id": spellID}},
		}
		for _, step := range steps {
			var result service.ActionResult
			path := fmt.Sprintf("/api/sessions/%s/%s", sessionID, step.path)
			if err := c.apiCall(ctx, "POST", path, step.body, &result); err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			if !result.Success {
				return mcp.NewToolResultError(result.Message), nil
			}
		}
	}

	return c.action(ctx, sessionID, "cast", tile)
}

func (c *Client) handleWaitUnit(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	unitID, _ := args["unit_id"].(string)

	return c.action(ctx, sessionID, "wait", map[string]string{"unit_id": unitID})
}

func (c *Client) handleEndTurn(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)
	return c.action(ctx, sessionID, "end-turn", nil)
}

func (c *Client) handleUndo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)
	return c.action(ctx, sessionID, "undo", nil)
}

func (c *Client) handleClickTile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	tile, err := tileArgs(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return c.action(ctx, sessionID, "click", tile)
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var response struct {
		Message string            `json:"message"`
		State   *engine.GameState `json:"state"`
	}

	if err := c.apiCall(ctx, "POST", fmt.Sprintf("/api/sessions/%s/reset", sessionID), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("%s\n\n%s", response.Message, formatGameState(response.State))), nil
}

func (c *Client) handleListLevels(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var levels []service.LevelInfo
	if err := c.apiCall(ctx, "GET", "/api/levels", nil, &levels); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result strings.Builder
	result.WriteString("Available Levels:\n\n")
	for _, level := range levels {
		done := ""
		if level.Completed {
			done = " [completed]"
		}
		turns := "no turn limit"
		if level.MaxTurns > 0 {
			turns = fmt.Sprintf("%d turns", level.MaxTurns)
		}
		fmt.Fprintf(&result, "• %s (level_ref: %s)%s\n  %s\n  Grid: %dx%d, %d vs %d units, %s\n\n",
			level.Name, level.LevelRef, done, level.Description,
			level.Width, level.Height, level.PlayerUnits, level.EnemyUnits, turns)
	}

	return mcp.NewToolResultText(result.String()), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `Pixel Tactics - Complete Instructions

GAME OBJECTIVE:
Destroy every enemy unit. You lose when all your units are gone or when you end
the last allowed turn of a level with a turn limit.

THE BOARD:
• '.' open ground, '#' wall (impassable, but attacks and spells pass over it)
• Your units are UPPERCASE, enemies lowercase:
  K/k knight, A/a archer, M/m mage, W/w wizard, D/d training dummy
• Coordinates are (x, y), 0-based, x to the right, y downwards

A UNIT'S ACTION:
1. select_unit: pick one of your units that has not acted this turn
2. move_unit: move it to a reachable tile (walking costs 1 per tile, units block
   the way). Move to its own tile to act without moving.
3. finish the action with one of:
   • attack: hit an enemy inside the unit's attack range for 1 damage.
     Attacking a tile without a target ends the unit's action.
   • cast_spell: mages and wizards only. Spells hit every unit inside the
     radius, YOUR OWN UNITS INCLUDED.
   • wait_unit: hold position
4. undo reverts a pending move or the last finished action during your turn

RANGES:
Distances are Manhattan distances (|dx| + |dy|). An archer with range 2-2
cannot hit an adjacent enemy.

END OF TURN:
end_turn hands control to the enemy. Each enemy attacks a unit in range, or
walks toward the nearest of your units and attacks if it can. The tool returns
when the enemy is done and your next turn has begun. Undo history does not
survive the end of a turn.

STRATEGY:
• Check game_state for HP, ranges and which units have acted
• describe_tile tells you whether the selected unit can reach or target a tile
• Keep casters away from your own units when aiming area spells`

	return mcp.NewToolResultText(instructions), nil
}

func (c *Client) handleDescribeTile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	tile, err := tileArgs(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	pos := engine.Position{X: tile["x"], Y: tile["y"]}

	var state engine.GameState
	if err := c.apiCall(ctx, "GET", fmt.Sprintf("/api/sessions/%s/state", sessionID), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(describeTile(&state, pos)), nil
}

func describeTile(state *engine.GameState, pos engine.Position) string {
	if state.Grid == nil || !state.Grid.InBounds(pos) {
		width, height := 0, 0
		if state.Grid != nil {
			width, height = state.Grid.Width, state.Grid.Height
		}
		return fmt.Sprintf("Tile (%d, %d) is out of bounds. The board is %dx%d.", pos.X, pos.Y, width, height)
	}

	var result strings.Builder
	fmt.Fprintf(&result, "Tile (%d, %d):\n", pos.X, pos.Y)

	terrain := state.Grid.TerrainAt(pos)
	if terrain == engine.Closed {
		result.WriteString("Terrain: wall (impassable)\n")
	} else {
		result.WriteString("Terrain: open ground\n")
	}

	if u := engine.LivingUnitAt(state.Units, pos); u != nil {
		fmt.Fprintf(&result, "Occupant: %s\n", formatUnit(u))
	} else {
		result.WriteString("Occupant: none\n")
	}

	if state.SelectedUnitID != "" {
		fmt.Fprintf(&result, "Reachable by %s: %v\n", state.SelectedUnitID, engine.ContainsPosition(state.ReachableTiles, pos))
		fmt.Fprintf(&result, "Valid target: %v\n", engine.ContainsPosition(state.ActionTargets, pos))
	}

	return result.String()
}

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	return fmt.Sprintf("Session: %s\nLevel: %s\nCreated: %s\n\n%s",
		session.ID, session.LevelRef,
		session.CreatedAt.Format("2006-01-02 15:04:05"),
		formatGameState(session.GameState))
}

func formatActionResult(result *service.ActionResult) string {
	var out strings.Builder
	if result.Success {
		out.WriteString("OK")
	} else {
		out.WriteString("REFUSED")
	}
	if result.Action != "" {
		fmt.Fprintf(&out, " (%s)", result.Action)
	}
	fmt.Fprintf(&out, ": %s\n", result.Message)

	if a := result.Attack; a != nil {
		switch {
		case a.Forfeited:
			out.WriteString("No valid target: the unit's action ended.\n")
		case a.WasLethal:
			fmt.Fprintf(&out, "Hit %s for %d damage. Destroyed!\n", a.TargetID, a.Damage)
		default:
			fmt.Fprintf(&out, "Hit %s for %d damage.\n", a.TargetID, a.Damage)
		}
	}
	if s := result.Spell; s != nil {
		fmt.Fprintf(&out, "Spell %s hit %v", s.SpellID, s.HitIDs)
		if len(s.KilledIDs) > 0 {
			fmt.Fprintf(&out, ", destroyed %v", s.KilledIDs)
		}
		out.WriteString("\n")
	}

	out.WriteString("\n")
	out.WriteString(formatGameState(result.GameState))
	return out.String()
}

// unitSymbol is uppercase for the player and lowercase for the enemy
func unitSymbol(u *engine.Unit) string {
	symbol := "?"
	if u.Type != "" {
		symbol = string(u.Type[0])
	}
	if u.Faction == engine.Enemy {
		return strings.ToLower(symbol)
	}
	return symbol
}

func formatUnit(u *engine.Unit) string {
	line := fmt.Sprintf("%s %s (%s, %s) at (%d,%d) HP %d/%d, move %d, range %d-%d",
		u.ID, u.Name, u.Type, u.Faction, u.Position.X, u.Position.Y,
		u.HP, u.MaxHP, u.MoveRange, u.AttackRangeMin, u.AttackRangeMax)
	if len(u.Spells) > 0 {
		spells := make([]string, 0, len(u.Spells))
		for _, s := range u.Spells {
			spells = append(spells, fmt.Sprintf("%s[range %d, radius %d, dmg %d]", s.ID, s.Range, s.Radius, s.Damage))
		}
		line += ", spells " + strings.Join(spells, " ")
	}
	if u.HasMoved {
		line += " [acted]"
	}
	if !u.IsLiving() {
		line += " [destroyed]"
	}
	return line
}

func formatPositions(ps []engine.Position) string {
	if len(ps) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(ps))
	for _, p := range ps {
		parts = append(parts, fmt.Sprintf("(%d,%d)", p.X, p.Y))
	}
	return strings.Join(parts, " ")
}

func formatGameState(state *engine.GameState) string {
	if state == nil {
		return "No game state available"
	}

	var result strings.Builder

	levelName := ""
	maxTurns := 0
	if state.Level != nil {
		levelName = state.Level.Name
		maxTurns = state.Level.MaxTurns
	}
	turn := fmt.Sprintf("%d", state.Turn)
	if maxTurns > 0 {
		turn = fmt.Sprintf("%d/%d", state.Turn, maxTurns)
	}
	fmt.Fprintf(&result, "Level: %s | Turn: %s | Status: %s | Active: %s | Mode: %s\n",
		levelName, turn, state.Status, state.ActiveFaction, state.Mode)
	if state.Busy {
		result.WriteString("Busy: a sequence is playing out\n")
	}
	if state.SelectedUnitID != "" {
		fmt.Fprintf(&result, "Selected: %s", state.SelectedUnitID)
		if state.SelectedSpell != nil {
			fmt.Fprintf(&result, " (spell %s)", state.SelectedSpell.ID)
		}
		result.WriteString("\n")
	}
	result.WriteString("\n")

	// Grid
	if g := state.Grid; g != nil {
		result.WriteString("   ")
		for x := 0; x < g.Width; x++ {
			fmt.Fprintf(&result, "%d", x%10)
		}
		result.WriteString("\n")
		for y := 0; y < g.Height; y++ {
			fmt.Fprintf(&result, "%2d ", y)
			for x := 0; x < g.Width; x++ {
				pos := engine.Position{X: x, Y: y}
				if u := engine.LivingUnitAt(state.Units, pos); u != nil {
					result.WriteString(unitSymbol(u))
				} else if g.TerrainAt(pos) == engine.Closed {
					result.WriteString("#")
				} else {
					result.WriteString(".")
				}
			}
			result.WriteString("\n")
		}
		result.WriteString("\n")
	}

	// Units
	result.WriteString("Units:\n")
	for i := range state.Units {
		fmt.Fprintf(&result, "- %s\n", formatUnit(&state.Units[i]))
	}

	if state.SelectedUnitID != "" {
		fmt.Fprintf(&result, "\nReachable: %s\n", formatPositions(state.ReachableTiles))
		fmt.Fprintf(&result, "Targets: %s\n", formatPositions(state.ActionTargets))
	}

	switch state.Status {
	case engine.StatusVictory:
		result.WriteString("\nVICTORY!")
	case engine.StatusDefeat:
		result.WriteString("\nDEFEAT")
	}

	if state.Message != "" {
		fmt.Fprintf(&result, "\nMessage: %s", state.Message)
	}

	return result.String()
}
