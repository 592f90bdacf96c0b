package script

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/rodneysantos/toy-robot/sim/engine"
)

// Runner executes batches, each against a fresh table and robot
type Runner struct {
	// Out receives REPORT lines. Defaults to stdout.
	Out io.Writer
	// Table sizes every batch's table. Defaults to the standard 5x5 table.
	Table *engine.TableConfig
	// Strict aborts the run on the first rejected PLACE
	Strict bool
	Logger zerolog.Logger
}

// Summary describes a finished run
type Summary struct {
	Batches  int
	Commands int
	Failures int
}

// LineError is a rejected command and where it came from
type LineError struct {
	Batch   int
	Line    int
	Command string
	Err     error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d (%s): %v", e.Line, e.Command, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// Run executes every batch in order. Rejected PLACE commands are logged and
// skipped unless Strict is set. Cancelling ctx stops the run between commands.
func (r *Runner) Run(ctx context.Context, batches []Batch) (Summary, error) {
	var summary Summary

	cfg := r.Table
	if cfg == nil {
		cfg = engine.DefaultTableConfig()
	}
	out := r.Out
	if out == nil {
		out = os.Stdout
	}

	for _, batch := range batches {
		table, err := engine.NewTableFromConfig(cfg)
		if err != nil {
			return summary, err
		}
		robot := engine.NewRobot(engine.WithOutput(out), engine.WithHistoryLimit(0))
		summary.Batches++

		for _, cmd := range batch.Commands {
			if err := ctx.Err(); err != nil {
				return summary, err
			}

			summary.Commands++
			if err := robot.Execute(cmd.Name, cmd.Args, table); err != nil {
				summary.Failures++
				lineErr := &LineError{Batch: batch.Index, Line: cmd.Line, Command: cmd.String(), Err: err}
				if r.Strict {
					return summary, lineErr
				}
				r.Logger.Warn().
					Int("batch", batch.Index).
					Int("line", cmd.Line).
					Str("command", cmd.String()).
					Err(err).
					Msg("command rejected")
				continue
			}

			if !engine.CommandName(cmd.Name).IsKnown() {
				r.Logger.Debug().Int("line", cmd.Line).Str("command", cmd.Name).Msg("unknown command ignored")
			}
		}
	}

	return summary, nil
}
