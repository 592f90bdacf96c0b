package engine

import "fmt"

// Bounds is the part of a table the robot needs: its size and a bounds check.
type Bounds interface {
	Dimensions() (width, height int)
	IsPositionValid(pos ...int) (bool, error)
}

// Table is the fixed-size rectangular surface the robot moves on.
// It never changes after construction.
type Table struct {
	width  int
	height int
}

// NewTable creates a table of the given size
func NewTable(width, height int) (*Table, error) {
	if width < MinTableSize || height < MinTableSize {
		return nil, fmt.Errorf("%w: got %dx%d", ErrInvalidDimensions, width, height)
	}
	return &Table{width: width, height: height}, nil
}

// DefaultTable returns the standard 5x5 table
func DefaultTable() *Table {
	return &Table{width: DefaultWidth, height: DefaultHeight}
}

// Dimensions returns the configured width and height
func (t *Table) Dimensions() (int, int) {
	return t.width, t.height
}

// IsPositionValid checks if the x,y position is on the table.
// Anything other than exactly two coordinates is rejected with ErrInvalidPosition.
func (t *Table) IsPositionValid(pos ...int) (bool, error) {
	if len(pos) != 2 {
		return false, ErrInvalidPosition
	}
	x, y := pos[0], pos[1]
	return x >= 0 && x < t.width && y >= 0 && y < t.height, nil
}

// Contains reports whether p lies on the table
func (t *Table) Contains(p Position) bool {
	ok, _ := t.IsPositionValid(p.X, p.Y)
	return ok
}

// String renders the table size as WIDTHxHEIGHT
func (t *Table) String() string {
	return fmt.Sprintf("%dx%d", t.width, t.height)
}
