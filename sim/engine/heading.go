package engine

import "fmt"

// Heading is the compass direction the robot faces.
// The declaration order is the clockwise rotation order.
type Heading int

const (
	North Heading = iota
	East
	South
	West

	headingCount = 4
)

var headingNames = [headingCount]string{"NORTH", "EAST", "SOUTH", "WEST"}

// Headings returns all headings in clockwise order starting at North
func Headings() []Heading {
	return []Heading{North, East, South, West}
}

// ParseHeading converts a canonical heading name into a Heading.
// The match is exact: "north" or "NORTH EAST" are rejected.
func ParseHeading(s string) (Heading, error) {
	for i, name := range headingNames {
		if s == name {
			return Heading(i), nil
		}
	}
	return North, &InvalidDirectionError{Value: s}
}

// Valid reports whether h is one of the four compass headings
func (h Heading) Valid() bool {
	return h >= North && h <= West
}

// String returns the canonical upper-case name
func (h Heading) String() string {
	if !h.Valid() {
		return fmt.Sprintf("Heading(%d)", int(h))
	}
	return headingNames[h]
}

// Right returns the heading after a quarter turn clockwise
func (h Heading) Right() Heading {
	return (h + 1) % headingCount
}

// Left returns the heading after a quarter turn counter-clockwise.
// +3 instead of -1 keeps the modulo non-negative.
func (h Heading) Left() Heading {
	return (h + headingCount - 1) % headingCount
}

// Rotate turns the heading in the given rotation direction
func (h Heading) Rotate(r Rotation) Heading {
	if r == RotateLeft {
		return h.Left()
	}
	return h.Right()
}

// Step returns the unit offset of a single move in this heading
func (h Heading) Step() (dx, dy int) {
	switch h {
	case North:
		return 0, 1
	case East:
		return 1, 0
	case South:
		return 0, -1
	case West:
		return -1, 0
	}
	return 0, 0
}

// MarshalText implements encoding.TextMarshaler
func (h Heading) MarshalText() ([]byte, error) {
	if !h.Valid() {
		return nil, fmt.Errorf("cannot marshal heading %d", int(h))
	}
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (h *Heading) UnmarshalText(text []byte) error {
	parsed, err := ParseHeading(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// Rotation is a quarter turn to the left or right
type Rotation string

const (
	RotateLeft  Rotation = "LEFT"
	RotateRight Rotation = "RIGHT"
)

// ParseRotation converts LEFT or RIGHT into a Rotation
func ParseRotation(s string) (Rotation, error) {
	switch Rotation(s) {
	case RotateLeft, RotateRight:
		return Rotation(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRotation, s)
}
