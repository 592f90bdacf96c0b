package session

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rodneysantos/toy-robot/sim/engine"
)

func TestManagerCreate(t *testing.T) {
	manager := NewManager()

	session, err := manager.Create("", "standard", engine.DefaultTableConfig())
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	if len(session.ID) != 8 {
		t.Errorf("Expected 8 character ID, got %q", session.ID)
	}
	if session.ConfigID != "standard" {
		t.Errorf("Expected config standard, got %s", session.ConfigID)
	}
	if session.Robot.IsPlaced() {
		t.Error("Expected new robot to be unplaced")
	}

	if _, err := manager.Create("MySession", "standard", nil); err != nil {
		t.Fatalf("Failed to create named session: %v", err)
	}
	if _, err := manager.Create("mysession", "standard", nil); !errors.Is(err, ErrSessionAlreadyExists) {
		t.Errorf("Expected ErrSessionAlreadyExists for case-insensitive duplicate, got %v", err)
	}
	if _, err := manager.Create("../escape", "standard", nil); !errors.Is(err, ErrInvalidSessionID) {
		t.Errorf("Expected ErrInvalidSessionID, got %v", err)
	}
	if _, err := manager.Create("bad", "broken", &engine.TableConfig{Name: "broken"}); err == nil {
		t.Error("Expected error for invalid table config")
	}

	if manager.Count() != 2 {
		t.Errorf("Expected 2 sessions, got %d", manager.Count())
	}
}

func TestManagerGet(t *testing.T) {
	manager := NewManager()
	created, _ := manager.Create("Alpha", "standard", nil)

	for _, id := range []string{"Alpha", "alpha", "ALPHA"} {
		got, err := manager.Get(id)
		if err != nil {
			t.Errorf("Get(%q): unexpected error %v", id, err)
			continue
		}
		if got != created {
			t.Errorf("Get(%q): returned a different session", id)
		}
	}

	if _, err := manager.Get("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestManagerGetOrCreate(t *testing.T) {
	manager := NewManager()

	first, err := manager.GetOrCreate("shared", "standard", nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	second, err := manager.GetOrCreate("shared", "standard", nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if first != second {
		t.Error("Expected GetOrCreate to return the existing session")
	}
}

func TestManagerDelete(t *testing.T) {
	manager := NewManager()
	manager.Create("gone", "standard", nil)

	if err := manager.Delete("GONE"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, err := manager.Get("gone"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected session to be deleted, got %v", err)
	}
	if err := manager.Delete("gone"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound on second delete, got %v", err)
	}
	if err := manager.DeleteFromMemory("gone"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestManagerCleanupExpiredSessions(t *testing.T) {
	manager := NewManager()
	old, _ := manager.Create("old", "standard", nil)
	manager.Create("fresh", "standard", nil)

	old.LastAccessedAt = time.Now().Add(-2 * time.Hour)

	if removed := manager.CleanupExpiredSessions(time.Hour); removed != 1 {
		t.Errorf("Expected 1 removed session, got %d", removed)
	}
	if _, err := manager.Get("fresh"); err != nil {
		t.Errorf("Expected fresh session to survive: %v", err)
	}
}

func TestManagerUpdateLastAccessed(t *testing.T) {
	manager := NewManager()
	session, _ := manager.Create("touch", "standard", nil)
	before := session.LastAccessedAt

	time.Sleep(5 * time.Millisecond)
	if err := manager.UpdateLastAccessed("TOUCH"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !session.LastAccessedAt.After(before) {
		t.Error("Expected last accessed time to advance")
	}
	if err := manager.UpdateLastAccessed("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestManagerConcurrentCreate(t *testing.T) {
	manager := NewManager()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := manager.Create("", "standard", nil); err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if manager.Count() != 50 {
		t.Errorf("Expected 50 sessions, got %d", manager.Count())
	}
}
