package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/wricardo/pixel-tactics/game/engine"
	"github.com/wricardo/pixel-tactics/game/service"
	"github.com/wricardo/pixel-tactics/logger"
	"github.com/wricardo/pixel-tactics/transport/websocket"
)

// Server represents the REST API server
type Server struct {
	service service.GameService
	hub     *websocket.Hub
	router  *mux.Router
}

// NewServer creates a new API server. hub may be nil, in which case /ws is unavailable.
func NewServer(gameService service.GameService, hub *websocket.Hub) *Server {
	s := &Server{
		service: gameService,
		hub:     hub,
		router:  mux.NewRouter(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.Use(logRequests)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("", s.handleHealth).Methods("GET")
	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Session management
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")

	// Game operations
	api.HandleFunc("/sessions/{id}/state", s.handleGetGameState).Methods("GET")
	api.HandleFunc("/sessions/{id}/select", s.handleSelectUnit).Methods("POST")
	api.HandleFunc("/sessions/{id}/deselect", s.handleDeselect).Methods("POST")
	api.HandleFunc("/sessions/{id}/move", s.handleMoveUnit).Methods("POST")
	api.HandleFunc("/sessions/{id}/attack-mode", s.handleEnterAttackTargeting).Methods("POST")
	api.HandleFunc("/sessions/{id}/spell-menu", s.handleEnterSpellMenu).Methods("POST")
	api.HandleFunc("/sessions/{id}/spell-mode", s.handleEnterSpellTargeting).Methods("POST")
	api.HandleFunc("/sessions/{id}/attack", s.handleAttack).Methods("POST")
	api.HandleFunc("/sessions/{id}/cast", s.handleCastSpell).Methods("POST")
	api.HandleFunc("/sessions/{id}/wait", s.handleWait).Methods("POST")
	api.HandleFunc("/sessions/{id}/end-turn", s.handleEndTurn).Methods("POST")
	api.HandleFunc("/sessions/{id}/undo", s.handleUndo).Methods("POST")
	api.HandleFunc("/sessions/{id}/click", s.handleClickTile).Methods("POST")
	api.HandleFunc("/sessions/{id}/remove-units", s.handleRemoveUnits).Methods("POST")
	api.HandleFunc("/sessions/{id}/reset", s.handleReset).Methods("POST")

	// Levels
	api.HandleFunc("/levels", s.handleListLevels).Methods("GET")
	api.HandleFunc("/levels", s.handleSaveLevel).Methods("POST")
	api.HandleFunc("/levels/{ref}", s.handleGetLevel).Methods("GET")
	api.HandleFunc("/progress", s.handleProgress).Methods("GET")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start).String(),
		}).Debug("http request")
	})
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps service errors to HTTP status codes
func respondServiceError(w http.ResponseWriter, err error) {
	respondError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, service.ErrLevelNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrEngineBusy), errors.Is(err, service.ErrSessionAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidLevel), errors.Is(err, service.ErrInvalidSessionID):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody decodes a JSON request body into v
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Body == nil {
		respondError(w, http.StatusBadRequest, "Request body required")
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// tileRequest is the body of every operation aimed at a tile
type tileRequest struct {
	X *int `json:"x"`
	Y *int `json:"y"`
}

func (t tileRequest) position() (engine.Position, bool) {
	if t.X == nil || t.Y == nil {
		return engine.Position{}, false
	}
	return engine.Position{X: *t.X, Y: *t.Y}, true
}

// decodeTile decodes {"x":..,"y":..}; both coordinates are required
func decodeTile(w http.ResponseWriter, r *http.Request) (engine.Position, bool) {
	var req tileRequest
	if !decodeBody(w, r, &req) {
		return engine.Position{}, false
	}
	pos, ok := req.position()
	if !ok {
		respondError(w, http.StatusBadRequest, "x and y are required")
	}
	return pos, ok
}

func respondAction(w http.ResponseWriter, result *service.ActionResult, err error) {
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Session Handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LevelRef string `json:"level_ref,omitempty"`
	}

	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	session, err := s.service.CreateSession(r.Context(), req.LevelRef)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, session)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	query := r.URL.Query()
	sortBy := query.Get("sort") // "created", "accessed" (default)
	order := query.Get("order") // "asc", "desc" (default)
	if sortBy == "" {
		sortBy = "accessed"
	}
	if order == "" {
		order = "desc"
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		var ti, tj time.Time
		if sortBy == "created" {
			ti, tj = sessions[i].CreatedAt, sessions[j].CreatedAt
		} else {
			ti, tj = sessions[i].LastAccessedAt, sessions[j].LastAccessedAt
		}
		if order == "asc" {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})

	total := len(sessions)
	if l, err := strconv.Atoi(query.Get("limit")); err == nil && l > 0 && l < len(sessions) {
		sessions = sessions[:l]
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"total":    total,
		"sessions": sessions,
		"sort":     sortBy,
		"order":    order,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.service.GetSession(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := s.service.DeleteSession(r.Context(), sessionID); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s deleted", sessionID),
	})
}

// Game Operation Handlers

func (s *Server) handleGetGameState(w http.ResponseWriter, r *http.Request) {
	state, err := s.service.GetGameState(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleSelectUnit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UnitID string `json:"unit_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.UnitID == "" {
		respondError(w, http.StatusBadRequest, "unit_id is required")
		return
	}
	result, err := s.service.SelectUnit(r.Context(), mux.Vars(r)["id"], req.UnitID)
	respondAction(w, result, err)
}

func (s *Server) handleDeselect(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.Deselect(r.Context(), mux.Vars(r)["id"])
	respondAction(w, result, err)
}

func (s *Server) handleMoveUnit(w http.ResponseWriter, r *http.Request) {
	pos, ok := decodeTile(w, r)
	if !ok {
		return
	}
	result, err := s.service.MoveUnit(r.Context(), mux.Vars(r)["id"], pos)
	respondAction(w, result, err)
}

func (s *Server) handleEnterAttackTargeting(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.EnterAttackTargeting(r.Context(), mux.Vars(r)["id"])
	respondAction(w, result, err)
}

func (s *Server) handleEnterSpellMenu(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.EnterSpellMenu(r.Context(), mux.Vars(r)["id"])
	respondAction(w, result, err)
}

func (s *Server) handleEnterSpellTargeting(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SpellID string `json:"spell_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.SpellID == "" {
		respondError(w, http.StatusBadRequest, "spell_id is required")
		return
	}
	result, err := s.service.EnterSpellTargeting(r.Context(), mux.Vars(r)["id"], req.SpellID)
	respondAction(w, result, err)
}

func (s *Server) handleAttack(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AttackerID string `json:"attacker_id"`
		tileRequest
	}
	if !decodeBody(w, r, &req) {
		return
	}
	pos, ok := req.position()
	if req.AttackerID == "" || !ok {
		respondError(w, http.StatusBadRequest, "attacker_id, x and y are required")
		return
	}
	result, err := s.service.Attack(r.Context(), mux.Vars(r)["id"], req.AttackerID, pos)
	respondAction(w, result, err)
}

func (s *Server) handleCastSpell(w http.ResponseWriter, r *http.Request) {
	pos, ok := decodeTile(w, r)
	if !ok {
		return
	}
	result, err := s.service.CastSpell(r.Context(), mux.Vars(r)["id"], pos)
	respondAction(w, result, err)
}

func (s *Server) handleWait(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UnitID string `json:"unit_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.UnitID == "" {
		respondError(w, http.StatusBadRequest, "unit_id is required")
		return
	}
	result, err := s.service.Wait(r.Context(), mux.Vars(r)["id"], req.UnitID)
	respondAction(w, result, err)
}

func (s *Server) handleEndTurn(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.EndTurn(r.Context(), mux.Vars(r)["id"])
	respondAction(w, result, err)
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.Undo(r.Context(), mux.Vars(r)["id"])
	respondAction(w, result, err)
}

func (s *Server) handleClickTile(w http.ResponseWriter, r *http.Request) {
	pos, ok := decodeTile(w, r)
	if !ok {
		return
	}
	result, err := s.service.ClickTile(r.Context(), mux.Vars(r)["id"], pos)
	respondAction(w, result, err)
}

func (s *Server) handleRemoveUnits(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UnitIDs []string `json:"unit_ids"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := s.service.RemoveUnits(r.Context(), mux.Vars(r)["id"], req.UnitIDs)
	respondAction(w, result, err)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	state, err := s.service.Reset(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Level restarted",
		"state":   state,
	})
}

// Level Handlers

func (s *Server) handleListLevels(w http.ResponseWriter, r *http.Request) {
	levels, err := s.service.ListLevels(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, levels)
}

func (s *Server) handleGetLevel(w http.ResponseWriter, r *http.Request) {
	level, err := s.service.LoadLevel(r.Context(), mux.Vars(r)["ref"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, level)
}

// handleSaveLevel stores an editor export: {"name": "level5", "level": {...}}
func (s *Server) handleSaveLevel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string              `json:"name"`
		Level *engine.LevelConfig `json:"level"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" || req.Level == nil {
		respondError(w, http.StatusBadRequest, "name and level are required")
		return
	}

	if err := s.service.SaveLevel(r.Context(), req.Name, req.Level); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":   "Level saved successfully",
		"level_ref": req.Name,
	})
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	completed, err := s.service.CompletedLevels(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"completed_levels": completed,
	})
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "WebSocket not available", http.StatusServiceUnavailable)
		return
	}

	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}

	session, err := s.service.GetSession(r.Context(), sessionID)
	if err != nil {
		http.Error(w, "Invalid session", http.StatusNotFound)
		return
	}

	s.hub.ServeWS(w, r, session.ID, session.GameState)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
