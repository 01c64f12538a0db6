// Package api exposes the game service over HTTP.
//
// Endpoints:
//
// Sessions:
//   - POST   /api/sessions              {"level_ref": "level1"} (empty for the default level)
//   - GET    /api/sessions              ?sort=created|accessed&order=asc|desc&limit=N
//   - GET    /api/sessions/{id}
//   - DELETE /api/sessions/{id}
//   - GET    /api/sessions/{id}/state
//   - POST   /api/sessions/{id}/reset
//
// Player actions (POST /api/sessions/{id}/...):
//   - select        {"unit_id": "k1"}
//   - deselect
//   - move          {"x": 2, "y": 3}
//   - attack-mode
//   - spell-menu
//   - spell-mode    {"spell_id": "fireball"}
//   - attack        {"attacker_id": "k1", "x": 3, "y": 3}
//   - cast          {"x": 5, "y": 2}
//   - wait          {"unit_id": "k1"}
//   - end-turn
//   - undo
//   - click         {"x": 1, "y": 1}
//   - remove-units  {"unit_ids": ["e1"]}
//
// Actions answer with a service.ActionResult. A refused action is still
// 200 with "success": false and the reason in "message". attack, cast,
// end-turn and click return once their animation sequence has finished.
//
// Levels:
//   - GET  /api/levels
//   - GET  /api/levels/{ref}
//   - POST /api/levels           {"name": "level5", "level": {...}}
//   - GET  /api/progress
//
// WebSocket: /ws?session=<id> streams state updates (see transport/websocket).
//
// Errors are returned as {"error": "..."} with 404 for unknown sessions and
// levels, 409 while a sequence is running, 400 for malformed input and
// invalid levels.
package api
