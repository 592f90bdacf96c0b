package engine

import (
	"errors"
	"fmt"
)

// The messages below are part of the observable behaviour and are kept verbatim.
var (
	ErrOutOfBounds       = errors.New("Robot is outside the table.")
	ErrInvalidPosition   = errors.New("Invalid position")
	ErrInvalidDimensions = errors.New("table dimensions must be positive")
	ErrMalformedPlace    = errors.New("PLACE arguments must be x,y,HEADING")
	ErrInvalidRotation   = errors.New("invalid rotation")
)

// InvalidDirectionError is returned by PLACE when the heading is not one of
// NORTH, EAST, SOUTH or WEST. Value holds the literal that was given.
type InvalidDirectionError struct {
	Value string
}

func (e *InvalidDirectionError) Error() string {
	return fmt.Sprintf("Given direction \"%s\" is invalid.", e.Value)
}

// IsPlacementError reports whether err was caused by invalid PLACE input
func IsPlacementError(err error) bool {
	var dirErr *InvalidDirectionError
	return errors.Is(err, ErrOutOfBounds) ||
		errors.Is(err, ErrInvalidPosition) ||
		errors.Is(err, ErrMalformedPlace) ||
		errors.As(err, &dirErr)
}
