package engine

import "time"

// CommandName is one of the textual commands understood by Robot.Execute
type CommandName string

const (
	CommandPlace  CommandName = "PLACE"
	CommandMove   CommandName = "MOVE"
	CommandLeft   CommandName = "LEFT"
	CommandRight  CommandName = "RIGHT"
	CommandReport CommandName = "REPORT"

	// Table constants
	DefaultWidth  = 5
	DefaultHeight = 5
	MinTableSize  = 1
	MaxTableSize  = 100

	DefaultHistoryLimit = 1000
)

// Commands lists every command the dispatcher recognizes, in documentation order
var Commands = []CommandName{CommandPlace, CommandMove, CommandLeft, CommandRight, CommandReport}

// IsKnown reports whether the dispatcher has a handler for the command
func (c CommandName) IsKnown() bool {
	for _, known := range Commands {
		if c == known {
			return true
		}
	}
	return false
}

// Position represents x,y coordinates on the table. Y grows towards NORTH.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Add returns the position offset by dx, dy
func (p Position) Add(dx, dy int) Position {
	return Position{X: p.X + dx, Y: p.Y + dy}
}

// RobotState is the complete placement state of a robot.
// Position and Heading are meaningless while Placed is false.
type RobotState struct {
	Position Position `json:"position"`
	Heading  Heading  `json:"heading"`
	Placed   bool     `json:"placed"`
}

// HistoryEntry records a single command executed by a robot
type HistoryEntry struct {
	Seq       int        `json:"seq"`
	Command   string     `json:"command"`
	Args      string     `json:"args,omitempty"`
	From      RobotState `json:"from"`
	To        RobotState `json:"to"`
	Applied   bool       `json:"applied"`
	Error     string     `json:"error,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}
