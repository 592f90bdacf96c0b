package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rodneysantos/toy-robot/sim/engine"
	"github.com/rodneysantos/toy-robot/transport/websocket"
)

func TestConstants(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
	if AppName != "Toy Robot Simulator" {
		t.Errorf("Expected app name Toy Robot Simulator, got %s", AppName)
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &bytes.Buffer{}
	err := app.Run(context.Background(), append([]string{"toyrobot", "--log-level", "error"}, args...))
	return out.String(), err
}

func TestRunCommand(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "commands.txt", strings.Join([]string{
		"PLACE 0,0,NORTH",
		"MOVE",
		"REPORT",
		"",
		"PLACE 0,0,NORTH",
		"LEFT",
		"REPORT",
		"",
		"PLACE 1,2,EAST",
		"MOVE",
		"MOVE",
		"LEFT",
		"MOVE",
		"REPORT",
	}, "\n"))

	out, err := runApp(t, "run", path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	expected := "0,1,NORTH\n0,0,WEST\n3,3,NORTH\n"
	if out != expected {
		t.Errorf("Expected %q, got %q", expected, out)
	}
}

func TestRunCommand_TableSize(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "commands.txt", "PLACE 7,7,NORTH\nMOVE\nMOVE\nMOVE\nREPORT\n")

	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		// PLACE is rejected on the standard table, so nothing is reported
		{"default table", []string{"run", path}, "\n"},
		{"wider table", []string{"run", "--width", "10", "--height", "10", path}, "7,9,NORTH\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runApp(t, tt.args...)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if out != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, out)
			}
		})
	}
}

func TestRunCommand_NamedTable(t *testing.T) {
	dir := t.TempDir()
	configDir := filepath.Join(dir, "configs")
	if err := os.Mkdir(configDir, 0755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, configDir, "long.yaml", "name: long\nwidth: 3\nheight: 20\n")
	path := writeFile(t, dir, "commands.txt", "PLACE 2,19,SOUTH\nRIGHT\nMOVE\nREPORT\n")

	out, err := runApp(t, "run", "--config-dir", configDir, "--table", "long", path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if out != "1,19,WEST\n" {
		t.Errorf("Expected 1,19,WEST, got %q", out)
	}
}

func TestRunCommand_Errors(t *testing.T) {
	dir := t.TempDir()
	badPlace := writeFile(t, dir, "bad.txt", "PLACE 9,9,NORTH\nREPORT\n")

	if _, err := runApp(t, "run", "--strict", badPlace); !errors.Is(err, engine.ErrOutOfBounds) {
		t.Errorf("Expected ErrOutOfBounds in strict mode, got %v", err)
	}

	if _, err := runApp(t, "run", filepath.Join(dir, "missing.txt")); err == nil {
		t.Error("Expected error for missing file")
	}

	if _, err := runApp(t, "run", "--width", "0", badPlace); err == nil {
		t.Error("Expected error for zero width table")
	}
}

func TestInitializeServices(t *testing.T) {
	dir := t.TempDir()

	for _, store := range []string{"memory", "file", "sqlite"} {
		t.Run(store, func(t *testing.T) {
			svc, err := initializeServices(serviceOptions{
				ConfigDir:   dir,
				SessionsDir: filepath.Join(dir, "sessions-"+store),
				Store:       store,
				SQLitePath:  filepath.Join(dir, "sessions.db"),
			})
			if err != nil {
				t.Fatalf("Failed to initialize services: %v", err)
			}
			defer svc.Close()

			info, err := svc.robot.CreateSession(context.Background(), "")
			if err != nil {
				t.Fatalf("Failed to create session: %v", err)
			}
			if info.Table == nil || info.Table.Width != engine.DefaultWidth {
				t.Errorf("Expected the standard table, got %+v", info.Table)
			}
		})
	}
}

func TestInitializeServices_Errors(t *testing.T) {
	if _, err := initializeServices(serviceOptions{ConfigDir: "/non/existent/path", Store: "memory"}); err == nil {
		t.Error("Expected error for non-existent config directory")
	}

	if _, err := initializeServices(serviceOptions{ConfigDir: t.TempDir(), Store: "redis"}); err == nil {
		t.Error("Expected error for unknown store")
	}
}

func TestPruneOrphans(t *testing.T) {
	dir := t.TempDir()
	svc, err := initializeServices(serviceOptions{
		ConfigDir:   dir,
		SessionsDir: filepath.Join(dir, "sessions"),
		Store:       "file",
	})
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}

	kept, _ := svc.robot.CreateSession(context.Background(), "")
	orphan, _ := svc.robot.CreateSession(context.Background(), "")

	if err := svc.store.Delete(orphan.ID); err != nil {
		t.Fatalf("Failed to delete stored session: %v", err)
	}

	if pruned := pruneOrphans(svc.sessions, svc.store); pruned != 1 {
		t.Errorf("Expected 1 pruned session, got %d", pruned)
	}
	if _, err := svc.sessions.Get(kept.ID); err != nil {
		t.Errorf("Expected %s to survive: %v", kept.ID, err)
	}
	if svc.sessions.Count() != 1 {
		t.Errorf("Expected 1 session in memory, got %d", svc.sessions.Count())
	}
}

func TestNewHandler(t *testing.T) {
	svc, err := initializeServices(serviceOptions{ConfigDir: t.TempDir(), Store: "memory"})
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}

	handler := newHandler(svc, websocket.NewHub(), "http://localhost:8080")

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("Expected /health 200, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/mcp", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected GET /mcp 405, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	body := strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	handler.ServeHTTP(w, httptest.NewRequest("POST", "/mcp", body))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected POST /mcp 200, got %d", w.Code)
	}
	for _, tool := range []string{"place", "run_script", "robot_instructions"} {
		if !strings.Contains(w.Body.String(), `"`+tool+`"`) {
			t.Errorf("Expected tool %s in tools/list response", tool)
		}
	}
}
