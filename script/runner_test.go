package script

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rodneysantos/toy-robot/sim/engine"
)

func runString(t *testing.T, runner *Runner, input string) (string, Summary, error) {
	t.Helper()
	batches, err := ParseString(input)
	if err != nil {
		t.Fatalf("Failed to parse input: %v", err)
	}
	var out bytes.Buffer
	runner.Out = &out
	summary, err := runner.Run(context.Background(), batches)
	return out.String(), summary, err
}

func TestRunner_Scenarios(t *testing.T) {
	input := `PLACE 0,0,NORTH
MOVE
REPORT

PLACE 0,0,NORTH
LEFT
REPORT

PLACE 1,2,EAST
MOVE
MOVE
LEFT
MOVE
REPORT
`
	out, summary, err := runString(t, &Runner{}, input)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	expected := "0,1,NORTH\n0,0,WEST\n3,3,NORTH\n"
	if out != expected {
		t.Errorf("Expected output %q, got %q", expected, out)
	}
	if summary.Batches != 3 || summary.Commands != 12 || summary.Failures != 0 {
		t.Errorf("Unexpected summary: %+v", summary)
	}
}

func TestRunner_FreshRobotPerBatch(t *testing.T) {
	input := "PLACE 2,2,SOUTH\nREPORT\n\nREPORT\nMOVE\n"

	out, _, err := runString(t, &Runner{}, input)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	// second batch starts unplaced, so its REPORT is an empty line
	if out != "2,2,SOUTH\n\n" {
		t.Errorf("Unexpected output %q", out)
	}
}

func TestRunner_SkipsRejectedPlace(t *testing.T) {
	input := "PLACE 9,9,NORTH\nPLACE 0,0,UP\nPLACE 1,1,EAST\nREPORT\n"

	out, summary, err := runString(t, &Runner{}, input)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if out != "1,1,EAST\n" {
		t.Errorf("Expected 1,1,EAST, got %q", out)
	}
	if summary.Failures != 2 {
		t.Errorf("Expected 2 failures, got %d", summary.Failures)
	}
}

func TestRunner_Strict(t *testing.T) {
	input := "PLACE 0,0,NORTH\nREPORT\n\nPLACE 0,0,UP\nREPORT\n"

	out, summary, err := runString(t, &Runner{Strict: true}, input)

	var lineErr *LineError
	if !errors.As(err, &lineErr) {
		t.Fatalf("Expected LineError, got %v", err)
	}
	if lineErr.Line != 4 || lineErr.Batch != 1 {
		t.Errorf("Expected batch 1 line 4, got batch %d line %d", lineErr.Batch, lineErr.Line)
	}
	var dirErr *engine.InvalidDirectionError
	if !errors.As(err, &dirErr) || dirErr.Value != "UP" {
		t.Errorf("Expected wrapped InvalidDirectionError for UP, got %v", err)
	}
	if out != "0,0,NORTH\n" {
		t.Errorf("Expected only first batch output, got %q", out)
	}
	if summary.Failures != 1 {
		t.Errorf("Expected 1 failure, got %d", summary.Failures)
	}
}

func TestRunner_TableConfig(t *testing.T) {
	runner := &Runner{Table: &engine.TableConfig{Name: "tall", Width: 1, Height: 10}}
	input := "PLACE 0,8,NORTH\nMOVE\nMOVE\nREPORT\nRIGHT\nMOVE\nREPORT\n"

	out, _, err := runString(t, runner, input)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if out != "0,9,NORTH\n0,9,EAST\n" {
		t.Errorf("Unexpected output %q", out)
	}
}

func TestRunner_InvalidTableConfig(t *testing.T) {
	runner := &Runner{Table: &engine.TableConfig{Name: "broken"}}
	if _, _, err := runString(t, runner, "REPORT\n"); err == nil {
		t.Error("Expected error for invalid table config")
	}
}

func TestRunner_Cancelled(t *testing.T) {
	batches, _ := ParseString("PLACE 0,0,NORTH\nREPORT\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	runner := &Runner{Out: &out}
	if _, err := runner.Run(ctx, batches); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("Expected no output, got %q", out.String())
	}
}
