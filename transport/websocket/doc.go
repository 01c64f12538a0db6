// Package websocket pushes game state to browsers watching a session.
//
// A single Hub goroutine owns the client registry. Clients connect with
// /ws?session=<id>, receive a "connected" message carrying the current state,
// then a "state_update" message for every state change the session's engine
// reports, including each step of an enemy turn. Inbound frames are ignored;
// actions go through the REST API.
//
// Hub implements service.Notifier, so it can be handed to the game service
// directly:
//
//	hub := websocket.NewHub()
//	go hub.Run(ctx)
//	svc := service.NewGameService(sessions, levels, service.WithNotifier(hub))
//
// BroadcastState never blocks. When the queue is full the update is dropped
// and a warning is logged; the next state change carries the full state.
package websocket
