package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/wricardo/pixel-tactics/game/engine"
)

func createTestLevel() *engine.LevelConfig {
	return &engine.LevelConfig{
		ID:     1,
		Name:   "Test Level",
		Width:  6,
		Height: 4,
		Units: []engine.Unit{
			{
				ID: "p1", Name: "Knight", Type: engine.Knight, Faction: engine.Player,
				Position: engine.Position{X: 1, Y: 1}, HP: 3, MaxHP: 3,
				MoveRange: 3, AttackRangeMin: 1, AttackRangeMax: 1,
			},
			{
				ID: "e1", Name: "Dummy", Type: engine.Dummy, Faction: engine.Enemy,
				Position: engine.Position{X: 4, Y: 2}, HP: 1, MaxHP: 1,
			},
		},
	}
}

func TestManager_Create(t *testing.T) {
	manager := NewManager()
	level := createTestLevel()

	t.Run("create with custom ID", func(t *testing.T) {
		session, err := manager.Create("test-session", "level1", level, nil)
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if session.ID != "test-session" {
			t.Errorf("Expected session ID 'test-session', got '%s'", session.ID)
		}
		if session.LevelRef != "level1" {
			t.Errorf("Expected level ref 'level1', got '%s'", session.LevelRef)
		}
		if session.Engine == nil {
			t.Fatal("Expected engine to be initialized")
		}
		if status := session.Engine.State().Status; status != engine.StatusPlaying {
			t.Errorf("Expected PLAYING, got %s", status)
		}
	})

	t.Run("create with auto-generated ID", func(t *testing.T) {
		session, err := manager.Create("", "level1", level, nil)
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if len(session.ID) != 4 {
			t.Errorf("Expected 4-character session ID, got %q", session.ID)
		}
	})

	t.Run("duplicate session ID", func(t *testing.T) {
		_, err := manager.Create("test-session", "level1", level, nil)
		if err != ErrSessionAlreadyExists {
			t.Errorf("Expected ErrSessionAlreadyExists, got %v", err)
		}
	})

	t.Run("case-insensitive duplicate check", func(t *testing.T) {
		_, err := manager.Create("TEST-SESSION", "level1", level, nil)
		if err != ErrSessionAlreadyExists {
			t.Errorf("Expected ErrSessionAlreadyExists for case variant, got %v", err)
		}
	})

	t.Run("invalid session ID", func(t *testing.T) {
		for _, id := range []string{"has space", "../x", "emoji☃"} {
			if _, err := manager.Create(id, "level1", level, nil); err != ErrInvalidSessionID {
				t.Errorf("Create(%q): expected ErrInvalidSessionID, got %v", id, err)
			}
		}
	})

	t.Run("invalid level", func(t *testing.T) {
		invalid := createTestLevel()
		invalid.Name = ""
		if _, err := manager.Create("invalid-test", "bad", invalid, nil); err == nil {
			t.Error("Expected error for invalid level")
		}
		if _, err := manager.Get("invalid-test"); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("Failed session should not be stored, Get returned %v", err)
		}
	})

	t.Run("session keeps its own copy of the level", func(t *testing.T) {
		template := createTestLevel()
		session, err := manager.Create("copy-test", "level1", template, nil)
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		template.Units[0].HP = 1
		if session.Level.Units[0].HP != 3 {
			t.Error("Session level should not share memory with the template")
		}
	})
}

func TestManager_CreatePassesSessionIDToOptions(t *testing.T) {
	manager := NewManager()

	var gotID string
	var states int
	opts := func(sessionID string) []engine.Option {
		gotID = sessionID
		return []engine.Option{
			engine.WithStateHook(func(*engine.GameState) { states++ }),
		}
	}

	session, err := manager.Create("", "level1", createTestLevel(), opts)
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	if gotID != session.ID {
		t.Errorf("Expected options to receive %q, got %q", session.ID, gotID)
	}
	if states == 0 {
		t.Error("Expected state hook to fire when the level starts")
	}
}

func TestManager_Get(t *testing.T) {
	manager := NewManager()
	created, _ := manager.Create("get-test", "level1", createTestLevel(), nil)

	t.Run("get existing session", func(t *testing.T) {
		session, err := manager.Get("get-test")
		if err != nil {
			t.Fatalf("Failed to get session: %v", err)
		}
		if session != created {
			t.Error("Expected same session instance")
		}
	})

	t.Run("case-insensitive get", func(t *testing.T) {
		session, err := manager.Get("GET-TEST")
		if err != nil {
			t.Fatalf("Failed to get session with different case: %v", err)
		}
		if session != created {
			t.Error("Expected same session instance")
		}
	})

	t.Run("non-existent session", func(t *testing.T) {
		if _, err := manager.Get("nope"); err != ErrSessionNotFound {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
	})
}

func TestManager_Delete(t *testing.T) {
	manager := NewManager()
	manager.Create("delete-test", "level1", createTestLevel(), nil)

	if err := manager.Delete("DELETE-TEST"); err != nil {
		t.Fatalf("Failed to delete session: %v", err)
	}
	if _, err := manager.Get("delete-test"); err != ErrSessionNotFound {
		t.Error("Expected session to be deleted")
	}
	if err := manager.Delete("delete-test"); err != ErrSessionNotFound {
		t.Errorf("Expected ErrSessionNotFound on second delete, got %v", err)
	}
}

func TestManager_List(t *testing.T) {
	manager := NewManager()
	if len(manager.List()) != 0 {
		t.Fatal("Expected empty list")
	}

	for _, id := range []string{"list-1", "list-2", "list-3"} {
		if _, err := manager.Create(id, "level1", createTestLevel(), nil); err != nil {
			t.Fatalf("Failed to create %s: %v", id, err)
		}
	}

	sessions := manager.List()
	if len(sessions) != 3 {
		t.Fatalf("Expected 3 sessions, got %d", len(sessions))
	}
	for i := 1; i < len(sessions); i++ {
		if sessions[i].CreatedAt.Before(sessions[i-1].CreatedAt) {
			t.Error("Expected sessions ordered by creation time")
		}
	}
	if manager.Count() != 3 {
		t.Errorf("Expected Count 3, got %d", manager.Count())
	}
}

func TestManager_CleanupExpired(t *testing.T) {
	manager := NewManager()
	active, _ := manager.Create("active", "level1", createTestLevel(), nil)
	expired, _ := manager.Create("expired", "level1", createTestLevel(), nil)

	expired.LastAccessedAt = time.Now().Add(-2 * time.Hour)
	active.LastAccessedAt = time.Now()

	if deleted := manager.CleanupExpiredSessions(time.Hour); deleted != 1 {
		t.Errorf("Expected 1 session to be deleted, got %d", deleted)
	}
	if _, err := manager.Get("expired"); err != ErrSessionNotFound {
		t.Error("Expected expired session to be deleted")
	}
	if _, err := manager.Get("active"); err != nil {
		t.Error("Expected active session to still exist")
	}
}

func TestManager_CleanupSkipsBusySessions(t *testing.T) {
	manager := NewManager()

	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	opts := func(string) []engine.Option {
		return []engine.Option{
			engine.WithStateHook(func(s *engine.GameState) {
				if s.Busy {
					select {
					case entered <- struct{}{}:
					default:
					}
					<-release
				}
			}),
		}
	}

	session, err := manager.Create("busy", "level1", createTestLevel(), opts)
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	session.LastAccessedAt = time.Now().Add(-2 * time.Hour)

	done := make(chan error, 1)
	go func() { done <- session.Engine.EndTurn(context.Background()) }()
	<-entered

	if deleted := manager.CleanupExpiredSessions(time.Hour); deleted != 0 {
		t.Errorf("Expected busy session to survive cleanup, %d deleted", deleted)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("EndTurn failed: %v", err)
	}
	if deleted := manager.CleanupExpiredSessions(time.Hour); deleted != 1 {
		t.Errorf("Expected idle session to be removed, %d deleted", deleted)
	}
}

func TestManager_UpdateLastAccessed(t *testing.T) {
	manager := NewManager()
	session, _ := manager.Create("access-test", "level1", createTestLevel(), nil)
	originalTime := session.LastAccessedAt

	time.Sleep(10 * time.Millisecond)

	if err := manager.UpdateLastAccessed("access-test"); err != nil {
		t.Fatalf("Failed to update last accessed: %v", err)
	}
	updated, _ := manager.Get("access-test")
	if !updated.LastAccessedAt.After(originalTime) {
		t.Error("Expected LastAccessedAt to be updated")
	}
	if err := manager.UpdateLastAccessed("missing"); err != ErrSessionNotFound {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	manager := NewManager()

	var wg sync.WaitGroup
	errs := make(chan error, 50)

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if _, err := manager.Create(fmt.Sprintf("c-%d", n), "level1", createTestLevel(), nil); err != nil {
				errs <- err
			}
		}(i)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Unexpected error during concurrent access: %v", err)
	}
	if manager.Count() != 50 {
		t.Errorf("Expected 50 sessions, got %d", manager.Count())
	}
}

func TestManager_SessionIsolation(t *testing.T) {
	manager := NewManager()
	session1, _ := manager.Create("iso-1", "level1", createTestLevel(), nil)
	session2, _ := manager.Create("iso-2", "level1", createTestLevel(), nil)

	session1.Engine.SelectUnit("p1")
	if !session1.Engine.MoveSelectedUnit(engine.Position{X: 2, Y: 1}) {
		t.Fatal("Expected move to succeed")
	}

	if pos := session2.Engine.State().UnitByID("p1").Position; pos != (engine.Position{X: 1, Y: 1}) {
		t.Errorf("Session 2 should not be affected by session 1 moves, p1 at %+v", pos)
	}
}

func TestManager_SessionIDGeneration(t *testing.T) {
	manager := NewManager()
	generatedIDs := make(map[string]bool)

	for i := 0; i < 50; i++ {
		session, err := manager.Create("", "level1", createTestLevel(), nil)
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if generatedIDs[session.ID] {
			t.Errorf("Duplicate session ID generated: %s", session.ID)
		}
		generatedIDs[session.ID] = true
		if len(session.ID) != 4 {
			t.Errorf("Expected 4-character ID, got %d", len(session.ID))
		}
	}
}
