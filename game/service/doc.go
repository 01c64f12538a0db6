// Package service provides the business logic layer for the tactics game.
//
// GameService is what every transport (HTTP, WebSocket, MCP) talks to. It
// owns no game rules: each session has its own engine, and the service
// resolves session IDs, translates engine refusals into ActionResult
// messages and maps engine.ErrBusy to ErrEngineBusy.
//
// Engines are built through SessionManager.Create with per-session hooks:
// state changes go to the Notifier and won levels go to the ProgressStore.
//
// Usage:
//
//	sessions := session.NewManager()
//	levels, _ := config.NewManager("levels")
//	svc := service.NewGameService(sessions, levels,
//		service.WithProgress(store),
//		service.WithNotifier(hub),
//	)
//
//	info, err := svc.CreateSession(ctx, "level1")
//	res, err := svc.SelectUnit(ctx, info.ID, "p1")
package service
