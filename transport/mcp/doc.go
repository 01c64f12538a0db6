// Package mcp exposes Pixel Tactics to AI agents over the Model Context Protocol.
//
// The Client is a thin proxy: every tool call becomes a request to the REST
// API, and the response is rendered as text an agent can reason about.
//
// MCP Tools:
//   - create_session, list_sessions: session management
//   - game_state: ASCII board, unit roster and interaction mode
//   - select_unit, move_unit: pick a unit and move it
//   - attack, cast_spell, wait_unit: finish a unit's action
//   - end_turn: hand over to the enemy and wait for it to finish
//   - undo, reset_game: step back or restart the level
//   - click_tile: the board UI's single click entry point
//   - list_levels, game_instructions, describe_tile: reference tools
//
// Transport Modes:
//
// main serves the same MCP server over stdio (the "mcp" command) and over
// HTTP at /mcp next to the REST API.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
