package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// TableConfig describes a named table loaded from a JSON or YAML file
type TableConfig struct {
	Name        string `json:"name" yaml:"name" validate:"required,max=64"`
	Description string `json:"description" yaml:"description" validate:"max=256"`
	Width       int    `json:"width" yaml:"width" validate:"min=1,max=100"`
	Height      int    `json:"height" yaml:"height" validate:"min=1,max=100"`
}

var configValidator = validator.New()

// ValidateTableConfig validates a table configuration
func ValidateTableConfig(config *TableConfig) error {
	if config == nil {
		return fmt.Errorf("config validation: config is nil")
	}

	if err := configValidator.Struct(config); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, describeFieldError(fe))
			}
			return fmt.Errorf("config validation: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("config validation: %w", err)
	}

	return nil
}

func describeFieldError(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s, got %v", field, fe.Param(), fe.Value())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}

// DefaultTableConfig returns the standard 5x5 table configuration
func DefaultTableConfig() *TableConfig {
	return &TableConfig{
		Name:        "standard",
		Description: "Standard 5x5 table",
		Width:       DefaultWidth,
		Height:      DefaultHeight,
	}
}

// NewTableFromConfig validates the config and builds its table
func NewTableFromConfig(config *TableConfig) (*Table, error) {
	if err := ValidateTableConfig(config); err != nil {
		return nil, err
	}
	return NewTable(config.Width, config.Height)
}
