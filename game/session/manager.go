package session

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/wricardo/pixel-tactics/game/engine"
	"github.com/wricardo/pixel-tactics/game/service"
	"github.com/wricardo/pixel-tactics/logger"
)

var (
	ErrSessionNotFound      = service.ErrSessionNotFound
	ErrSessionAlreadyExists = service.ErrSessionAlreadyExists
	ErrInvalidSessionID     = service.ErrInvalidSessionID
)

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,32}$`)

// Manager handles game session lifecycle
type Manager struct {
	sessions map[string]*service.Session
	mu       sync.RWMutex
}

// NewManager creates a new session manager
func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*service.Session),
	}
}

// Create starts a new session playing level. An empty id gets a generated one.
// opts is asked for the engine options once the session ID is known.
func (m *Manager) Create(id, levelRef string, level *engine.LevelConfig, opts service.EngineOptions) (*service.Session, error) {
	m.mu.Lock()
	if id == "" {
		id = m.generateSessionIDLocked()
	} else if !sessionIDPattern.MatchString(id) {
		m.mu.Unlock()
		return nil, ErrInvalidSessionID
	} else if m.sessionExistsLocked(id) {
		m.mu.Unlock()
		return nil, ErrSessionAlreadyExists
	}
	m.mu.Unlock()

	// Hooks may fire from StartLevel, so the engine is built outside the lock
	var engineOpts []engine.Option
	if opts != nil {
		engineOpts = opts(id)
	}
	eng := engine.NewEngine(engineOpts...)
	if err := eng.StartLevel(level); err != nil {
		return nil, err
	}

	now := time.Now()
	session := &service.Session{
		ID:             id,
		LevelRef:       levelRef,
		Engine:         eng,
		Level:          level.Clone(),
		CreatedAt:      now,
		LastAccessedAt: now,
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after building the engine
	if m.sessionExistsLocked(id) {
		return nil, ErrSessionAlreadyExists
	}
	m.sessions[strings.ToLower(id)] = session

	logger.Log.WithFields(logrus.Fields{
		"session": id,
		"level":   levelRef,
	}).Info("session created")

	return session, nil
}

// Get retrieves a session by ID
func (m *Manager) Get(id string) (*service.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[strings.ToLower(id)]
	if !exists {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// List returns all sessions, oldest first
func (m *Manager) List() []*service.Session {
	m.mu.RLock()
	sessions := make([]*service.Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		sessions = append(sessions, session)
	}
	m.mu.RUnlock()

	sort.Slice(sessions, func(i, j int) bool {
		if !sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
		}
		return sessions[i].ID < sessions[j].ID
	})
	return sessions
}

// Delete removes a session
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.ToLower(id)
	if _, exists := m.sessions[key]; !exists {
		return ErrSessionNotFound
	}
	delete(m.sessions, key)
	return nil
}

// UpdateLastAccessed updates the last accessed time for a session
func (m *Manager) UpdateLastAccessed(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, exists := m.sessions[strings.ToLower(id)]
	if !exists {
		return ErrSessionNotFound
	}
	session.LastAccessedAt = time.Now()
	return nil
}

// CleanupExpiredSessions removes idle sessions and returns how many were dropped.
// Sessions in the middle of an animated sequence are left alone.
func (m *Manager) CleanupExpiredSessions(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	count := 0
	for key, session := range m.sessions {
		if now.Sub(session.LastAccessedAt) > maxAge && !session.Engine.IsBusy() {
			delete(m.sessions, key)
			count++
		}
	}

	if count > 0 {
		logger.Log.WithField("count", count).Info("expired sessions removed")
	}
	return count
}

// Count returns the number of active sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// generateSessionIDLocked generates a unique 4-character session ID
func (m *Manager) generateSessionIDLocked() string {
	for {
		id := generateSessionID()
		if !m.sessionExistsLocked(id) {
			return id
		}
	}
}

func generateSessionID() string {
	bytes := make([]byte, 2)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp-based ID if crypto/rand fails
		return fmt.Sprintf("%04x", time.Now().UnixNano()&0xFFFF)
	}
	return hex.EncodeToString(bytes)
}

// sessionExistsLocked checks if a session exists (case-insensitive)
func (m *Manager) sessionExistsLocked(id string) bool {
	_, exists := m.sessions[strings.ToLower(id)]
	return exists
}
