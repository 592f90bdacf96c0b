package service

import (
	"time"

	"github.com/rodneysantos/toy-robot/sim/engine"
)

// MaxScriptCommands caps the number of commands a single RunScript call executes
const MaxScriptCommands = 1000

// SessionInfo provides information about a robot session
type SessionInfo struct {
	ID             string              `json:"id"`
	ConfigID       string              `json:"config_id"`
	Table          *engine.TableConfig `json:"table"`
	CreatedAt      time.Time           `json:"created_at"`
	LastAccessedAt time.Time           `json:"last_accessed_at"`
	State          engine.RobotState   `json:"state"`
	Report         string              `json:"report"`
	Commands       int                 `json:"commands"`
}

// RobotStatus is the current state of a session's robot
type RobotStatus struct {
	SessionID string            `json:"session_id"`
	State     engine.RobotState `json:"state"`
	Report    string            `json:"report"`
	Width     int               `json:"width"`
	Height    int               `json:"height"`
}

// CommandResult contains the outcome of a single command
type CommandResult struct {
	SessionID string `json:"session_id"`

	Seq     int               `json:"seq"`
	Command string            `json:"command"`
	Args    string            `json:"args,omitempty"`
	Applied bool              `json:"applied"`
	Report  string            `json:"report,omitempty"`
	From    engine.RobotState `json:"from"`
	State   engine.RobotState `json:"state"`
	Error   string            `json:"error,omitempty"`
}

// ScriptResult contains the outcome of a multi-line script
type ScriptResult struct {
	SessionID string `json:"session_id"`

	Executed  int  `json:"executed"`
	Requested int  `json:"requested"`
	Applied   int  `json:"applied"`
	Reset     bool `json:"reset,omitempty"`

	// Reports holds the output of every REPORT, in order. Unplaced reports are "".
	Reports []string     `json:"reports"`
	Steps   []ScriptStep `json:"steps"`

	// StoppedOnLine is the 1-based script line of the rejected command, if any
	StoppedOnLine int    `json:"stopped_on_line,omitempty"`
	Error         string `json:"error,omitempty"`

	State     engine.RobotState `json:"state"`
	Truncated bool              `json:"truncated,omitempty"`
	Limit     int               `json:"limit,omitempty"`
}

// ScriptStep is a compact record of one executed script command
type ScriptStep struct {
	Line    int             `json:"line"`
	Command string          `json:"command"`
	Args    string          `json:"args,omitempty"`
	From    engine.Position `json:"from"`
	To      engine.Position `json:"to"`
	Heading string          `json:"heading,omitempty"`
	Applied bool            `json:"applied"`
	Report  string          `json:"report,omitempty"`
}

// HistoryOptions configures command history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated command history
type HistoryResponse struct {
	Entries     []engine.HistoryEntry `json:"entries"`
	Total       int                   `json:"total"`
	Page        int                   `json:"page"`
	PageSize    int                   `json:"page_size"`
	TotalPages  int                   `json:"total_pages"`
	HasNext     bool                  `json:"has_next"`
	HasPrevious bool                  `json:"has_previous"`
}

// ConfigInfo provides information about a table configuration
type ConfigInfo struct {
	Filename    string `json:"filename"`
	ConfigID    string `json:"config_id"` // The identifier to use for session creation
	Name        string `json:"name"`
	Description string `json:"description"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
}
