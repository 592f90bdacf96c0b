package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rodneysantos/toy-robot/sim/engine"
	"github.com/rodneysantos/toy-robot/sim/service"
)

// Version reported to MCP clients
const Version = "1.0.0"

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Toy Robot Simulator",
		Version,
		server.WithToolCapabilities(true),
		server.WithInstructions(`Toy Robot Simulator - MCP Interface

This is a thin client that proxies all requests to the REST API server.

A robot moves on a rectangular table (5x5 by default). Nothing happens until
the robot is placed with "place". Moves that would drop it off the table are
ignored.

AVAILABLE TOOLS:
- create_session: Create a robot session (optional config_id picks the table)
- list_sessions / get_session: Inspect sessions
- robot_state: Current position, heading and table size
- place: Put the robot at x,y facing NORTH, EAST, SOUTH or WEST
- move, left, right: Move one unit forward, or rotate 90 degrees
- report: Current "x,y,HEADING"
- run_script: Run several command lines at once
- reset_robot: Take the robot off the table
- command_history: Past commands
- list_configs: Available table sizes
- robot_instructions: Full rules`),
	)

	c.registerTools()
}

func sessionSchema(extra map[string]interface{}, required ...string) mcp.ToolInputSchema {
	properties := map[string]interface{}{
		"session_id": map[string]interface{}{
			"type":        "string",
			"description": "Session ID",
		},
	}
	for name, schema := range extra {
		properties[name] = schema
	}
	return mcp.ToolInputSchema{
		Type:       "object",
		Properties: properties,
		Required:   append([]string{"session_id"}, required...),
	}
}

func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new robot session with optional table config selection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"config_id": map[string]interface{}{
					"type":        "string",
					"description": "Table config to use (optional, see list_configs)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active robot sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: sessionSchema(nil),
	}, c.handleGetSession)

	// Robot operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "robot_state",
		Description: "Get the robot's position, heading and the table size",
		InputSchema: sessionSchema(nil),
	}, c.handleRobotState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "place",
		Description: "Place the robot on the table. Rejected when the position is off the table.",
		InputSchema: sessionSchema(map[string]interface{}{
			"x": map[string]interface{}{
				"type":        "integer",
				"description": "Column, 0 is the west edge",
			},
			"y": map[string]interface{}{
				"type":        "integer",
				"description": "Row, 0 is the south edge",
			},
			"heading": map[string]interface{}{
				"type":        "string",
				"enum":        []string{"NORTH", "EAST", "SOUTH", "WEST"},
				"description": "Direction the robot faces",
			},
		}, "x", "y", "heading"),
	}, c.handlePlace)

	for _, cmd := range []struct {
		name        string
		description string
	}{
		{"move", "Move the robot one unit forward. Ignored if it would fall off the table."},
		{"left", "Rotate the robot 90 degrees counter-clockwise"},
		{"right", "Rotate the robot 90 degrees clockwise"},
	} {
		c.mcpServer.AddTool(mcp.Tool{
			Name:        cmd.name,
			Description: cmd.description,
			InputSchema: sessionSchema(nil),
		}, c.commandHandler(strings.ToUpper(cmd.name)))
	}

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "report",
		Description: "Report the robot's position and heading as x,y,HEADING",
		InputSchema: sessionSchema(nil),
	}, c.handleReport)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "run_script",
		Description: "Run newline separated commands (PLACE x,y,F / MOVE / LEFT / RIGHT / REPORT). Stops at the first rejected PLACE.",
		InputSchema: sessionSchema(map[string]interface{}{
			"script": map[string]interface{}{
				"type":        "string",
				"description": "Commands, one per line",
			},
			"reset": map[string]interface{}{
				"type":        "boolean",
				"description": "Take the robot off the table first",
			},
		}, "script"),
	}, c.handleRunScript)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_robot",
		Description: "Take the robot off the table",
		InputSchema: sessionSchema(nil),
	}, c.handleReset)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "command_history",
		Description: "Get the command history of a session",
		InputSchema: sessionSchema(map[string]interface{}{
			"page": map[string]interface{}{
				"type":        "integer",
				"description": "Page number",
			},
			"limit": map[string]interface{}{
				"type":        "integer",
				"description": "Items per page",
			},
			"order": map[string]interface{}{
				"type":        "string",
				"enum":        []string{"asc", "desc"},
				"description": "Oldest (asc) or newest (desc) first",
			},
		}),
	}, c.handleHistory)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available table configurations",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "robot_instructions",
		Description: "Get the complete simulator rules",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	return args
}

func sessionPath(args map[string]interface{}, suffix string) (string, error) {
	sessionID, _ := args["session_id"].(string)
	if sessionID == "" {
		return "", fmt.Errorf("session_id is required")
	}
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix, nil
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	configID, _ := arguments(request)["config_id"].(string)

	body := map[string]string{}
	if configID != "" {
		body["config_id"] = configID
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Created session: %s\n%s", session.ID, formatTable(session.Table))), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		fmt.Fprintf(&b, "- %s (Config: %s, Robot: %s, Created: %s)\n",
			s.ID, s.ConfigID, formatReport(s.Report), s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", path, nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleRobotState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "/state")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var status service.RobotStatus
	if err := c.apiCall(ctx, "GET", path, nil, &status); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatStatus(&status)), nil
}

func (c *Client) handlePlace(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	x, okX := args["x"].(float64)
	y, okY := args["y"].(float64)
	heading, _ := args["heading"].(string)
	if !okX || !okY || heading == "" {
		return mcp.NewToolResultError("x, y and heading are required"), nil
	}
	if x != math.Trunc(x) || y != math.Trunc(y) {
		return mcp.NewToolResultError(fmt.Sprintf("x and y must be whole numbers, got %v,%v", x, y)), nil
	}

	return c.runCommand(ctx, args, string(engine.CommandPlace), fmt.Sprintf("%d,%d,%s", int(x), int(y), heading))
}

// commandHandler builds the handler of an argument-less command tool
func (c *Client) commandHandler(command string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return c.runCommand(ctx, arguments(request), command, "")
	}
}

func (c *Client) runCommand(ctx context.Context, args map[string]interface{}, command, commandArgs string) (*mcp.CallToolResult, error) {
	path, err := sessionPath(args, "/commands")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	body := map[string]string{"command": command, "args": commandArgs}

	var result service.CommandResult
	if err := c.apiCall(ctx, "POST", path, body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatCommandResult(&result)), nil
}

func (c *Client) handleReport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "/report")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result service.CommandResult
	if err := c.apiCall(ctx, "GET", path, nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatReport(result.Report)), nil
}

func (c *Client) handleRunScript(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, "/script")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	script, _ := args["script"].(string)
	reset, _ := args["reset"].(bool)

	body := map[string]interface{}{
		"script": script,
		"reset":  reset,
	}

	var result service.ScriptResult
	if err := c.apiCall(ctx, "POST", path, body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatScriptResult(&result)), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "/reset")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var response struct {
		Message string               `json:"message"`
		State   *service.RobotStatus `json:"state"`
	}
	if err := c.apiCall(ctx, "POST", path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("%s\n\n%s", response.Message, formatStatus(response.State))), nil
}

func (c *Client) handleHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, "/history")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	query := url.Values{}
	if page, ok := args["page"].(float64); ok {
		query.Set("page", fmt.Sprintf("%d", int(page)))
	}
	if limit, ok := args["limit"].(float64); ok {
		query.Set("limit", fmt.Sprintf("%d", int(limit)))
	}
	if order, ok := args["order"].(string); ok {
		query.Set("order", order)
	}
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall(ctx, "GET", "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Configurations:\n\n")
	for _, config := range configs {
		fmt.Fprintf(&b, "• %s (%s)\n  %s\n  Table: %dx%d\n\n",
			config.ConfigID, config.Name, config.Description, config.Width, config.Height)
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(instructions), nil
}

const instructions = `Toy Robot Simulator - Complete Instructions

THE TABLE:
• A rectangular grid of unit squares, 5x5 unless the session uses another config
• (0,0) is the SOUTH WEST corner; x grows EAST and y grows NORTH
• There are no obstructions on the table

COMMANDS:
• PLACE X,Y,F - Put the robot at X,Y facing F (NORTH, EAST, SOUTH or WEST)
• MOVE - Move one unit in the direction the robot faces
• LEFT / RIGHT - Rotate 90 degrees without moving
• REPORT - Announce the position as X,Y,F

RULES:
• Every command is ignored until the robot has been placed
• A PLACE off the table is rejected and the robot stays where it was
• A MOVE that would leave the table is ignored; later commands still run
• PLACE can be issued again at any time to reposition the robot

EXAMPLE:
  PLACE 1,2,EAST
  MOVE
  MOVE
  LEFT
  MOVE
  REPORT
Output: 3,3,NORTH

TOOLS:
• Use place/move/left/right/report for single steps
• Use run_script to send many lines at once, with reset to start over
• command_history shows which commands were applied and which were ignored`

// Formatting helpers

func formatReport(report string) string {
	if report == "" {
		return "not placed"
	}
	return report
}

func formatTable(table *engine.TableConfig) string {
	if table == nil {
		return "Table: unknown"
	}
	return fmt.Sprintf("Table: %s (%dx%d)", table.Name, table.Width, table.Height)
}

func formatSessionInfo(session *service.SessionInfo) string {
	return fmt.Sprintf("Session: %s\nConfig: %s\n%s\nRobot: %s\nCommands: %d\nCreated: %s\nLast accessed: %s\n",
		session.ID,
		session.ConfigID,
		formatTable(session.Table),
		formatReport(session.Report),
		session.Commands,
		session.CreatedAt.Format(time.RFC3339),
		session.LastAccessedAt.Format(time.RFC3339),
	)
}

func formatStatus(status *service.RobotStatus) string {
	if status == nil {
		return "Robot state unavailable"
	}
	result := fmt.Sprintf("Table: %dx%d\n", status.Width, status.Height)
	if !status.State.Placed {
		return result + "Robot: not placed\n"
	}
	return result + fmt.Sprintf("Position: (%d,%d)\nHeading: %s\n",
		status.State.Position.X, status.State.Position.Y, status.State.Heading)
}

func formatCommandResult(result *service.CommandResult) string {
	command := strings.TrimSpace(result.Command + " " + result.Args)
	var b strings.Builder
	if result.Applied {
		fmt.Fprintf(&b, "✓ %s applied\n", command)
	} else {
		fmt.Fprintf(&b, "✗ %s ignored\n", command)
		if !result.From.Placed {
			b.WriteString("  The robot is not on the table yet; use place first.\n")
		} else if engine.CommandName(result.Command) == engine.CommandMove {
			b.WriteString("  The move would have left the table.\n")
		}
	}
	if result.Report != "" {
		fmt.Fprintf(&b, "Report: %s\n", result.Report)
	}
	if result.State.Placed {
		fmt.Fprintf(&b, "Position: (%d,%d) facing %s\n",
			result.State.Position.X, result.State.Position.Y, result.State.Heading)
	}
	return b.String()
}

func formatScriptResult(result *service.ScriptResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Executed %d/%d commands (%d applied)\n", result.Executed, result.Requested, result.Applied)
	if result.Truncated {
		fmt.Fprintf(&b, "Truncated to the first %d commands\n", result.Limit)
	}
	if result.Error != "" {
		fmt.Fprintf(&b, "Stopped: %s\n", result.Error)
	}

	if len(result.Reports) > 0 {
		b.WriteString("\nReports:\n")
		for _, report := range result.Reports {
			fmt.Fprintf(&b, "  %s\n", formatReport(report))
		}
	}

	if len(result.Steps) > 0 {
		b.WriteString("\nSteps:\n")
		for _, step := range result.Steps {
			status := "✓"
			if !step.Applied {
				status = "✗"
			}
			fmt.Fprintf(&b, "%d. %s (%d,%d)→(%d,%d) %s %s\n",
				step.Line, strings.TrimSpace(step.Command+" "+step.Args),
				step.From.X, step.From.Y, step.To.X, step.To.Y, step.Heading, status)
		}
	}

	if result.State.Placed {
		fmt.Fprintf(&b, "\nFinal: %d,%d,%s\n", result.State.Position.X, result.State.Position.Y, result.State.Heading)
	} else {
		b.WriteString("\nFinal: not placed\n")
	}
	return b.String()
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Command History (Page %d/%d) Total: %d\n\n", history.Page, history.TotalPages, history.Total)

	for _, entry := range history.Entries {
		status := "✓"
		if !entry.Applied {
			status = "✗"
		}
		fmt.Fprintf(&b, "%d. %s %s", entry.Seq, strings.TrimSpace(entry.Command+" "+entry.Args), status)
		if entry.Error != "" {
			fmt.Fprintf(&b, " (%s)", entry.Error)
		}
		b.WriteString("\n")
	}

	return b.String()
}
