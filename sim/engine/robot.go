package engine

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// Robot interprets commands against its own placement state.
// A Robot is not safe for concurrent use; callers serialize access.
type Robot struct {
	state        RobotState
	table        Bounds
	out          io.Writer
	history      []HistoryEntry
	seq          int
	historyLimit int
}

// Option configures a Robot
type Option func(*Robot)

// WithOutput sets the sink REPORT writes to
func WithOutput(w io.Writer) Option {
	return func(r *Robot) {
		if w != nil {
			r.out = w
		}
	}
}

// WithHistoryLimit caps how many history entries are kept. Zero or less keeps none.
func WithHistoryLimit(n int) Option {
	return func(r *Robot) {
		r.historyLimit = n
	}
}

// Snapshot is the serializable form of a robot
type Snapshot struct {
	State   RobotState     `json:"state"`
	History []HistoryEntry `json:"history"`
}

// NewRobot creates an unplaced robot
func NewRobot(opts ...Option) *Robot {
	r := &Robot{
		out:          os.Stdout,
		historyLimit: DefaultHistoryLimit,
		history:      []HistoryEntry{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Place puts the robot on the table at x,y facing heading.
// The position is checked before the heading. On error the robot is left untouched.
func (r *Robot) Place(table Bounds, x, y int, heading string) (*Robot, error) {
	if table == nil {
		return r, fmt.Errorf("%w: no table", ErrOutOfBounds)
	}

	onTable, err := table.IsPositionValid(x, y)
	if err != nil {
		return r, err
	}
	if !onTable {
		return r, ErrOutOfBounds
	}

	h, err := ParseHeading(heading)
	if err != nil {
		return r, err
	}

	r.table = table
	r.state = RobotState{
		Position: Position{X: x, Y: y},
		Heading:  h,
		Placed:   true,
	}
	return r, nil
}

// Move steps one unit forward. Moves that would leave the table are dropped.
func (r *Robot) Move() *Robot {
	r.move()
	return r
}

// Rotate turns the robot a quarter turn in place
func (r *Robot) Rotate(rotation Rotation) *Robot {
	r.rotate(rotation)
	return r
}

// Left turns the robot counter-clockwise
func (r *Robot) Left() *Robot {
	return r.Rotate(RotateLeft)
}

// Right turns the robot clockwise
func (r *Robot) Right() *Robot {
	return r.Rotate(RotateRight)
}

// Report returns "x,y,HEADING", or an empty string when the robot is not placed
func (r *Robot) Report() string {
	if !r.state.Placed {
		return ""
	}
	return fmt.Sprintf("%d,%d,%s", r.state.Position.X, r.state.Position.Y, r.state.Heading)
}

// Execute runs a textual command. PLACE takes args as "x,y,HEADING" and is
// ignored when table is nil. REPORT also writes the report line to the output.
// Unknown commands are ignored. Only PLACE can return an error.
func (r *Robot) Execute(name, args string, table Bounds) error {
	from := r.state
	applied, err := r.dispatch(CommandName(name), args, table)
	r.record(name, args, from, applied, err)
	return err
}

func (r *Robot) dispatch(cmd CommandName, args string, table Bounds) (bool, error) {
	switch cmd {
	case CommandPlace:
		if table == nil {
			return false, nil
		}
		x, y, heading, err := ParsePlaceArgs(args)
		if err != nil {
			return false, err
		}
		if _, err := r.Place(table, x, y, heading); err != nil {
			return false, err
		}
		return true, nil

	case CommandMove:
		return r.move(), nil

	case CommandLeft:
		return r.rotate(RotateLeft), nil

	case CommandRight:
		return r.rotate(RotateRight), nil

	case CommandReport:
		fmt.Fprintln(r.out, r.Report())
		return r.state.Placed, nil
	}

	return false, nil
}

// ParsePlaceArgs splits "x,y,HEADING". Fields after the third are ignored.
// The heading is returned verbatim and validated later by Place.
func ParsePlaceArgs(args string) (x, y int, heading string, err error) {
	parts := strings.Split(args, ",")
	if len(parts) < 3 {
		return 0, 0, "", fmt.Errorf("%w: got %q", ErrMalformedPlace, args)
	}

	x, err = strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, "", fmt.Errorf("%w: invalid x %q", ErrMalformedPlace, parts[0])
	}
	y, err = strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, "", fmt.Errorf("%w: invalid y %q", ErrMalformedPlace, parts[1])
	}

	return x, y, parts[2], nil
}

func (r *Robot) move() bool {
	if !r.state.Placed || r.table == nil {
		return false
	}

	dx, dy := r.state.Heading.Step()
	next := r.state.Position.Add(dx, dy)

	// Checked per axis against the table's current size
	width, height := r.table.Dimensions()
	if next.X < 0 || next.X >= width || next.Y < 0 || next.Y >= height {
		return false
	}

	r.state.Position = next
	return true
}

func (r *Robot) rotate(rotation Rotation) bool {
	if !r.state.Placed {
		return false
	}
	r.state.Heading = r.state.Heading.Rotate(rotation)
	return true
}

// State returns a copy of the current state
func (r *Robot) State() RobotState {
	return r.state
}

// IsPlaced reports whether a PLACE has succeeded
func (r *Robot) IsPlaced() bool {
	return r.state.Placed
}

// Table returns the table the robot was last placed on, or nil
func (r *Robot) Table() Bounds {
	return r.table
}

// Reset takes the robot off the table. History is kept.
func (r *Robot) Reset() *Robot {
	r.state = RobotState{}
	r.table = nil
	return r
}

// Restore sets state and history from a snapshot (used by persistence loading)
func (r *Robot) Restore(snapshot Snapshot, table Bounds) error {
	state := snapshot.State
	if state.Placed {
		if table == nil {
			return fmt.Errorf("cannot restore placed robot without a table")
		}
		onTable, err := table.IsPositionValid(state.Position.X, state.Position.Y)
		if err != nil {
			return err
		}
		if !onTable {
			return fmt.Errorf("restore %d,%d: %w", state.Position.X, state.Position.Y, ErrOutOfBounds)
		}
		if !state.Heading.Valid() {
			return &InvalidDirectionError{Value: state.Heading.String()}
		}
		r.table = table
	} else {
		r.table = nil
		state = RobotState{}
	}

	r.state = state
	r.history = append([]HistoryEntry{}, snapshot.History...)
	r.seq = 0
	if n := len(r.history); n > 0 {
		r.seq = r.history[n-1].Seq
	}
	return nil
}

// Snapshot returns the serializable state of the robot
func (r *Robot) Snapshot() Snapshot {
	return Snapshot{
		State:   r.state,
		History: r.History(),
	}
}

// History returns the executed commands, oldest first
func (r *Robot) History() []HistoryEntry {
	return append([]HistoryEntry{}, r.history...)
}

// LastEntry returns the most recent history entry, or nil if there is none
func (r *Robot) LastEntry() *HistoryEntry {
	if len(r.history) == 0 {
		return nil
	}
	entry := r.history[len(r.history)-1]
	return &entry
}

func (r *Robot) record(name, args string, from RobotState, applied bool, err error) {
	r.seq++
	if r.historyLimit <= 0 {
		return
	}

	entry := HistoryEntry{
		Seq:       r.seq,
		Command:   name,
		Args:      args,
		From:      from,
		To:        r.state,
		Applied:   applied,
		Timestamp: time.Now(),
	}
	if err != nil {
		entry.Error = err.Error()
	}

	r.history = append(r.history, entry)
	if over := len(r.history) - r.historyLimit; over > 0 {
		r.history = append([]HistoryEntry{}, r.history[over:]...)
	}
}
