package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/rodneysantos/toy-robot/sim/engine"
	"github.com/rodneysantos/toy-robot/sim/service"
)

func callRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil {
		t.Fatal("Expected result, got nil")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatal("Expected text content in result")
	}
	return text.Text
}

func TestNewClient(t *testing.T) {
	client := NewClient("http://localhost:8080/")

	if client.baseURL != "http://localhost:8080" {
		t.Errorf("Expected trailing slash to be trimmed, got %s", client.baseURL)
	}
	if client.httpClient == nil {
		t.Error("Expected HTTP client to be initialized")
	}
	if client.GetMCPServer() == nil {
		t.Error("Expected MCP server to be initialized")
	}
}

func TestClient_apiCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"id": "abc"})
	}))
	defer server.Close()

	client := NewClient(server.URL)

	var response map[string]interface{}
	if err := client.apiCall(context.Background(), "GET", "/api/sessions/abc", nil, &response); err != nil {
		t.Fatalf("apiCall failed: %v", err)
	}
	if response["id"] != "abc" {
		t.Errorf("Expected id abc, got %v", response["id"])
	}
}

func TestClient_apiCall_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/json" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			json.NewEncoder(w).Encode(map[string]string{"error": "position out of bounds"})
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Internal Server Error"))
	}))
	defer server.Close()

	client := NewClient(server.URL)

	err := client.apiCall(context.Background(), "GET", "/json", nil, nil)
	if err == nil || err.Error() != "position out of bounds" {
		t.Errorf("Expected API error message, got %v", err)
	}

	err = client.apiCall(context.Background(), "GET", "/plain", nil, nil)
	if err == nil || !strings.Contains(err.Error(), "API error: 500") {
		t.Errorf("Expected 'API error: 500', got %v", err)
	}
}

func TestClient_handlePlace(t *testing.T) {
	var gotBody map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" || r.URL.Path != "/api/sessions/s1/commands" {
			t.Errorf("Expected POST /api/sessions/s1/commands, got %s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&gotBody)

		json.NewEncoder(w).Encode(service.CommandResult{
			Command: "PLACE",
			Args:    gotBody["args"],
			Applied: true,
			State:   engine.RobotState{Position: engine.Position{X: 1, Y: 2}, Heading: engine.East, Placed: true},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	result, err := client.handlePlace(context.Background(), callRequest("place", map[string]interface{}{
		"session_id": "s1",
		"x":          float64(1),
		"y":          float64(2),
		"heading":    "EAST",
	}))
	if err != nil {
		t.Fatalf("handlePlace failed: %v", err)
	}

	if gotBody["command"] != "PLACE" || gotBody["args"] != "1,2,EAST" {
		t.Errorf("Unexpected request body %v", gotBody)
	}

	text := resultText(t, result)
	for _, expected := range []string{"✓ PLACE 1,2,EAST applied", "Position: (1,2) facing EAST"} {
		if !strings.Contains(text, expected) {
			t.Errorf("Expected %q in result, got: %s", expected, text)
		}
	}
}

func TestClient_handlePlace_InvalidArgs(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))
	defer server.Close()

	client := NewClient(server.URL)

	tests := []struct {
		name string
		args map[string]interface{}
	}{
		{"missing coordinates", map[string]interface{}{"session_id": "s1", "heading": "EAST"}},
		{"missing heading", map[string]interface{}{"session_id": "s1", "x": float64(1), "y": float64(1)}},
		{"fractional x", map[string]interface{}{"session_id": "s1", "x": -0.5, "y": float64(0), "heading": "NORTH"}},
		{"fractional y", map[string]interface{}{"session_id": "s1", "x": float64(0), "y": 2.7, "heading": "NORTH"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := client.handlePlace(context.Background(), callRequest("place", tt.args))
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if !result.IsError {
				t.Errorf("Expected a tool error, got: %s", resultText(t, result))
			}
		})
	}

	if requests != 0 {
		t.Errorf("Expected no API calls for invalid arguments, got %d", requests)
	}
}

func TestClient_commandTools(t *testing.T) {
	tests := []struct {
		tool     string
		command  string
		from     engine.RobotState
		applied  bool
		expected string
	}{
		{"move", "MOVE", engine.RobotState{Placed: true}, true, "✓ MOVE applied"},
		{"left", "LEFT", engine.RobotState{}, false, "not on the table yet"},
		{"move", "MOVE", engine.RobotState{Placed: true, Heading: engine.South}, false, "would have left the table"},
	}

	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var body map[string]string
				json.NewDecoder(r.Body).Decode(&body)
				if body["command"] != tt.command {
					t.Errorf("Expected command %s, got %s", tt.command, body["command"])
				}
				json.NewEncoder(w).Encode(service.CommandResult{Command: tt.command, Applied: tt.applied, From: tt.from, State: tt.from})
			}))
			defer server.Close()

			client := NewClient(server.URL)
			handler := client.commandHandler(tt.command)
			result, err := handler(context.Background(), callRequest(tt.tool, map[string]interface{}{"session_id": "s1"}))
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}

			if text := resultText(t, result); !strings.Contains(text, tt.expected) {
				t.Errorf("Expected %q in result, got: %s", tt.expected, text)
			}
		})
	}
}

func TestClient_handleRunScript(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Script string `json:"script"`
			Reset  bool   `json:"reset"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if !body.Reset || !strings.HasPrefix(body.Script, "PLACE 0,0,NORTH") {
			t.Errorf("Unexpected body %+v", body)
		}

		json.NewEncoder(w).Encode(service.ScriptResult{
			Executed:  3,
			Requested: 3,
			Applied:   3,
			Reports:   []string{"0,1,NORTH"},
			State:     engine.RobotState{Position: engine.Position{X: 0, Y: 1}, Heading: engine.North, Placed: true},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	result, err := client.handleRunScript(context.Background(), callRequest("run_script", map[string]interface{}{
		"session_id": "s1",
		"script":     "PLACE 0,0,NORTH\nMOVE\nREPORT",
		"reset":      true,
	}))
	if err != nil {
		t.Fatalf("handleRunScript failed: %v", err)
	}

	text := resultText(t, result)
	for _, expected := range []string{"Executed 3/3 commands", "0,1,NORTH", "Final: 0,1,NORTH"} {
		if !strings.Contains(text, expected) {
			t.Errorf("Expected %q in result, got: %s", expected, text)
		}
	}
}

func TestClient_handleHistory_Query(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		if query.Get("page") != "2" || query.Get("limit") != "5" || query.Get("order") != "asc" {
			t.Errorf("Unexpected query %s", r.URL.RawQuery)
		}
		json.NewEncoder(w).Encode(service.HistoryResponse{
			Entries: []engine.HistoryEntry{
				{Seq: 6, Command: "PLACE", Args: "9,9,NORTH", Error: "position out of bounds"},
			},
			Total:      6,
			Page:       2,
			PageSize:   5,
			TotalPages: 2,
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	result, err := client.handleHistory(context.Background(), callRequest("command_history", map[string]interface{}{
		"session_id": "s1",
		"page":       float64(2),
		"limit":      float64(5),
		"order":      "asc",
	}))
	if err != nil {
		t.Fatalf("handleHistory failed: %v", err)
	}

	text := resultText(t, result)
	if !strings.Contains(text, "6. PLACE 9,9,NORTH ✗ (position out of bounds)") {
		t.Errorf("Unexpected history output: %s", text)
	}
}

func TestClient_sessionRequired(t *testing.T) {
	client := NewClient("http://localhost:1")

	result, err := client.handleRobotState(context.Background(), callRequest("robot_state", map[string]interface{}{}))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !result.IsError {
		t.Error("Expected a tool error without session_id")
	}
}

func TestClient_handleCreateSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		json.NewEncoder(w).Encode(service.SessionInfo{
			ID:       "a1b2c3d4",
			ConfigID: body["config_id"],
			Table:    &engine.TableConfig{Name: "large", Width: 10, Height: 10},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	result, err := client.handleCreateSession(context.Background(), callRequest("create_session", map[string]interface{}{
		"config_id": "large",
	}))
	if err != nil {
		t.Fatalf("handleCreateSession failed: %v", err)
	}

	text := resultText(t, result)
	if !strings.Contains(text, "a1b2c3d4") || !strings.Contains(text, "10x10") {
		t.Errorf("Unexpected result: %s", text)
	}
}

func TestFormatStatus(t *testing.T) {
	unplaced := formatStatus(&service.RobotStatus{Width: 5, Height: 5})
	if !strings.Contains(unplaced, "not placed") {
		t.Errorf("Expected 'not placed', got: %s", unplaced)
	}

	placed := formatStatus(&service.RobotStatus{
		Width:  5,
		Height: 5,
		State:  engine.RobotState{Position: engine.Position{X: 3, Y: 4}, Heading: engine.West, Placed: true},
	})
	for _, expected := range []string{"Table: 5x5", "Position: (3,4)", "Heading: WEST"} {
		if !strings.Contains(placed, expected) {
			t.Errorf("Expected %q, got: %s", expected, placed)
		}
	}
}

func TestClient_handleInstructions(t *testing.T) {
	client := NewClient("http://localhost:8080")

	result, err := client.handleInstructions(context.Background(), callRequest("robot_instructions", nil))
	if err != nil {
		t.Fatalf("handleInstructions failed: %v", err)
	}

	text := resultText(t, result)
	for _, expected := range []string{"PLACE X,Y,F", "SOUTH WEST corner", "Output: 3,3,NORTH"} {
		if !strings.Contains(text, expected) {
			t.Errorf("Expected %q in instructions", expected)
		}
	}
}
