package engine

import (
	"strings"
	"testing"
)

func TestValidateTableConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  *TableConfig
		wantErr string
	}{
		{"default", DefaultTableConfig(), ""},
		{"large", &TableConfig{Name: "large", Width: 100, Height: 100}, ""},
		{"missing name", &TableConfig{Width: 5, Height: 5}, "name is required"},
		{"zero width", &TableConfig{Name: "x", Width: 0, Height: 5}, "width must be at least 1"},
		{"too tall", &TableConfig{Name: "x", Width: 5, Height: 101}, "height must be at most 100"},
		{"nil", nil, "config is nil"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := ValidateTableConfig(test.config)
			if test.wantErr == "" {
				if err != nil {
					t.Errorf("Expected valid config, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), test.wantErr) {
				t.Errorf("Expected error containing %q, got %v", test.wantErr, err)
			}
		})
	}
}

func TestNewTableFromConfig(t *testing.T) {
	table, err := NewTableFromConfig(&TableConfig{Name: "wide", Width: 8, Height: 3})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if w, h := table.Dimensions(); w != 8 || h != 3 {
		t.Errorf("Expected 8x3, got %dx%d", w, h)
	}

	if _, err := NewTableFromConfig(&TableConfig{Name: "bad"}); err == nil {
		t.Error("Expected error for zero-sized config")
	}
}
