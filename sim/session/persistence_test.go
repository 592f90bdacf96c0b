package session

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/rodneysantos/toy-robot/sim/engine"
	"github.com/rodneysantos/toy-robot/sim/service"
)

func newPlacedSession(t *testing.T, id string) *service.Session {
	t.Helper()
	config := &engine.TableConfig{Name: "wide", Width: 8, Height: 3}
	session, err := service.NewSession(id, "wide", config)
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	for _, cmd := range []struct{ name, args string }{
		{"PLACE", "1,1,EAST"},
		{"MOVE", ""},
		{"MOVE", ""},
		{"LEFT", ""},
		{"PLACE", "9,9,NORTH"},
	} {
		session.Robot.Execute(cmd.name, cmd.args, session.Table)
	}
	session.CreatedAt = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return session
}

// testPersistence checks the behaviour shared by every SessionPersistence
func testPersistence(t *testing.T, store SessionPersistence) {
	session := newPlacedSession(t, "robot1")

	t.Run("save and load", func(t *testing.T) {
		if err := store.Save(session); err != nil {
			t.Fatalf("Failed to save session: %v", err)
		}
		if !store.Exists("robot1") {
			t.Fatal("Expected session to exist after save")
		}

		loaded, err := store.Load("robot1")
		if err != nil {
			t.Fatalf("Failed to load session: %v", err)
		}

		if loaded.Robot.Report() != "3,1,NORTH" {
			t.Errorf("Expected 3,1,NORTH, got %q", loaded.Robot.Report())
		}
		if w, h := loaded.Table.Dimensions(); w != 8 || h != 3 {
			t.Errorf("Expected 8x3 table, got %dx%d", w, h)
		}
		if loaded.ConfigID != "wide" {
			t.Errorf("Expected config wide, got %s", loaded.ConfigID)
		}
		if !loaded.CreatedAt.Equal(session.CreatedAt) {
			t.Errorf("Expected created_at %v, got %v", session.CreatedAt, loaded.CreatedAt)
		}

		history := loaded.Robot.History()
		if len(history) != 5 {
			t.Fatalf("Expected 5 history entries, got %d", len(history))
		}
		if history[4].Error == "" || history[4].Applied {
			t.Errorf("Expected last entry to be the rejected PLACE, got %+v", history[4])
		}

		// the restored robot keeps moving on the restored table
		loaded.Robot.Execute("MOVE", "", loaded.Table)
		loaded.Robot.Execute("MOVE", "", loaded.Table)
		if loaded.Robot.Report() != "3,2,NORTH" {
			t.Errorf("Expected 3,2,NORTH after moves, got %q", loaded.Robot.Report())
		}
		if entry := loaded.Robot.LastEntry(); entry.Seq != 7 {
			t.Errorf("Expected seq to continue at 7, got %d", entry.Seq)
		}
	})

	t.Run("overwrite", func(t *testing.T) {
		session.Robot.Execute("RIGHT", "", session.Table)
		if err := store.Save(session); err != nil {
			t.Fatalf("Failed to save session: %v", err)
		}
		loaded, err := store.Load("robot1")
		if err != nil {
			t.Fatalf("Failed to load session: %v", err)
		}
		if loaded.Robot.Report() != "3,1,EAST" {
			t.Errorf("Expected 3,1,EAST, got %q", loaded.Robot.Report())
		}
	})

	t.Run("unplaced session", func(t *testing.T) {
		fresh, _ := service.NewSession("robot2", "standard", nil)
		if err := store.Save(fresh); err != nil {
			t.Fatalf("Failed to save session: %v", err)
		}
		loaded, err := store.Load("robot2")
		if err != nil {
			t.Fatalf("Failed to load session: %v", err)
		}
		if loaded.Robot.IsPlaced() || loaded.Robot.Report() != "" {
			t.Error("Expected unplaced robot")
		}
	})

	t.Run("list", func(t *testing.T) {
		ids, err := store.ListAll()
		if err != nil {
			t.Fatalf("Failed to list sessions: %v", err)
		}
		sort.Strings(ids)
		if len(ids) != 2 || ids[0] != "robot1" || ids[1] != "robot2" {
			t.Errorf("Expected [robot1 robot2], got %v", ids)
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := store.Delete("robot2"); err != nil {
			t.Fatalf("Failed to delete session: %v", err)
		}
		if store.Exists("robot2") {
			t.Error("Expected session to be gone")
		}
		if err := store.Delete("robot2"); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
		if _, err := store.Load("robot2"); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("nil session", func(t *testing.T) {
		if err := store.Save(nil); err == nil {
			t.Error("Expected error saving nil session")
		}
	})
}

func TestFilePersistence(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFilePersistence(dir)
	if err != nil {
		t.Fatalf("Failed to create file persistence: %v", err)
	}

	testPersistence(t, store)

	if _, err := os.Stat(filepath.Join(dir, "robot1.json")); err != nil {
		t.Errorf("Expected robot1.json on disk: %v", err)
	}
	if store.Exists("../robot1") {
		t.Error("Expected path-like IDs to be rejected")
	}
}

func TestFilePersistence_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	store, _ := NewFilePersistence(dir)

	if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Load("broken"); err == nil {
		t.Error("Expected error loading corrupt session")
	}
}

func TestSQLitePersistence(t *testing.T) {
	store, err := NewSQLitePersistence(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("Failed to open sqlite store: %v", err)
	}
	defer store.Close()

	testPersistence(t, store)

	if !store.Exists("ROBOT1") {
		t.Error("Expected case-insensitive lookup")
	}
}

func TestSQLitePersistence_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")

	store, err := NewSQLitePersistence(path)
	if err != nil {
		t.Fatalf("Failed to open sqlite store: %v", err)
	}
	if err := store.Save(newPlacedSession(t, "durable")); err != nil {
		t.Fatalf("Failed to save session: %v", err)
	}
	store.Close()

	reopened, err := NewSQLitePersistence(path)
	if err != nil {
		t.Fatalf("Failed to reopen sqlite store: %v", err)
	}
	defer reopened.Close()

	loaded, err := reopened.Load("durable")
	if err != nil {
		t.Fatalf("Failed to load session: %v", err)
	}
	if loaded.Robot.Report() != "3,1,NORTH" {
		t.Errorf("Expected 3,1,NORTH, got %q", loaded.Robot.Report())
	}
}

func TestManagerWithPersistence(t *testing.T) {
	store, err := NewFilePersistence(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create file persistence: %v", err)
	}
	manager := NewManagerWithPersistence(store)

	session, err := manager.Create("auto1", "standard", nil)
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	if !store.Exists("auto1") {
		t.Error("Expected session to be saved on creation")
	}

	session.Robot.Execute("PLACE", "2,2,SOUTH", session.Table)
	if err := manager.Save("auto1"); err != nil {
		t.Fatalf("Failed to save session: %v", err)
	}

	// evict from memory, then Get reloads from disk
	if err := manager.DeleteFromMemory("auto1"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	reloaded, err := manager.Get("auto1")
	if err != nil {
		t.Fatalf("Failed to reload session: %v", err)
	}
	if reloaded.Robot.Report() != "2,2,SOUTH" {
		t.Errorf("Expected 2,2,SOUTH, got %q", reloaded.Robot.Report())
	}

	// a second manager sees every persisted session
	other := NewManagerWithPersistence(store)
	manager.Create("auto2", "standard", nil)
	if err := other.LoadPersistedSessions(); err != nil {
		t.Fatalf("Failed to load persisted sessions: %v", err)
	}
	if other.Count() != 2 {
		t.Errorf("Expected 2 loaded sessions, got %d", other.Count())
	}

	if err := manager.SaveAllSessions(); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}

	if err := manager.Delete("auto1"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if store.Exists("auto1") {
		t.Error("Expected delete to remove persisted session")
	}
}

func TestManagerWithPersistence_MixedCaseID(t *testing.T) {
	store, err := NewFilePersistence(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create file persistence: %v", err)
	}
	manager := NewManagerWithPersistence(store)

	if _, err := manager.Create("abcd1234", "standard", nil); err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	id := "abcd1234"
	upper := strings.ToUpper(id)

	t.Run("get reloads with other casing", func(t *testing.T) {
		if err := manager.DeleteFromMemory(id); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		reloaded, err := manager.Get(upper)
		if err != nil {
			t.Fatalf("Expected %s to reload from the store, got %v", upper, err)
		}
		if reloaded.ID != id {
			t.Errorf("Expected id %s, got %s", id, reloaded.ID)
		}
	})

	t.Run("delete removes stored copy", func(t *testing.T) {
		if err := manager.Delete(upper); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if store.Exists(id) {
			t.Errorf("Expected %s.json to be removed", id)
		}
		if _, err := manager.Get(id); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("Expected ErrSessionNotFound after delete, got %v", err)
		}
	})

	t.Run("delete of evicted session", func(t *testing.T) {
		other, err := manager.Create("beef0001", "standard", nil)
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		manager.DeleteFromMemory(other.ID)

		if err := manager.Delete(strings.ToUpper(other.ID)); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if store.Exists(other.ID) {
			t.Error("Expected evicted session to be removed from the store")
		}
	})
}
