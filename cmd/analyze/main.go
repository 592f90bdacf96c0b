// Command analyze lints robot command files. For every file it summarizes
// batches and command counts, then dry-runs each batch to flag unknown
// commands, rejected PLACE lines, commands ignored before the first PLACE
// and MOVEs that would have dropped the robot off the table.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/rodneysantos/toy-robot/script"
	"github.com/rodneysantos/toy-robot/sim/engine"
)

// Finding points at one suspicious line
type Finding struct {
	Line    int
	Command string
	Reason  string
}

// Analysis is the lint result of one command file
type Analysis struct {
	File      string
	Batches   int
	Commands  int
	ByCommand map[string]int
	Outputs   []string

	Unknown  []Finding
	Rejected []Finding
	Dropped  []Finding
	Ignored  []Finding
}

// Clean reports whether the file has no findings at all
func (a *Analysis) Clean() bool {
	return len(a.Unknown)+len(a.Rejected)+len(a.Dropped)+len(a.Ignored) == 0
}

// analyze parses r and dry-runs every batch on table
func analyze(name string, r io.Reader, table *engine.TableConfig) (*Analysis, error) {
	batches, err := script.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	bounds, err := engine.NewTableFromConfig(table)
	if err != nil {
		return nil, err
	}

	a := &Analysis{
		File:      name,
		Batches:   len(batches),
		ByCommand: make(map[string]int),
	}

	for _, batch := range batches {
		robot := engine.NewRobot(engine.WithOutput(io.Discard), engine.WithHistoryLimit(1))

		for _, cmd := range batch.Commands {
			a.Commands++
			a.ByCommand[cmd.Name]++

			finding := Finding{Line: cmd.Line, Command: cmd.String()}
			known := engine.CommandName(cmd.Name).IsKnown()
			if !known {
				finding.Reason = "unknown command"
				a.Unknown = append(a.Unknown, finding)
			}

			err := robot.Execute(cmd.Name, cmd.Args, bounds)
			entry := robot.LastEntry()

			switch {
			case err != nil:
				finding.Reason = err.Error()
				a.Rejected = append(a.Rejected, finding)
			case !known || entry == nil || entry.Applied:
				if engine.CommandName(cmd.Name) == engine.CommandReport {
					a.Outputs = append(a.Outputs, robot.Report())
				}
			case !entry.From.Placed:
				finding.Reason = "robot not placed"
				a.Ignored = append(a.Ignored, finding)
			case engine.CommandName(cmd.Name) == engine.CommandMove:
				finding.Reason = fmt.Sprintf("would leave the table at %d,%d facing %s",
					entry.From.Position.X, entry.From.Position.Y, entry.From.Heading)
				a.Dropped = append(a.Dropped, finding)
			}
		}
	}

	return a, nil
}

func printAnalysis(w io.Writer, a *Analysis) {
	fmt.Fprintf(w, "\n=== Analyzing %s ===\n", a.File)
	fmt.Fprintf(w, "Batches: %d\n", a.Batches)
	fmt.Fprintf(w, "Commands: %d\n", a.Commands)

	names := make([]string, 0, len(a.ByCommand))
	for name := range a.ByCommand {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-8s %d\n", name, a.ByCommand[name])
	}

	if len(a.Outputs) > 0 {
		fmt.Fprintf(w, "Reports: %s\n", strings.Join(a.Outputs, " | "))
	}

	printFindings(w, "unknown commands", a.Unknown)
	printFindings(w, "rejected PLACE commands", a.Rejected)
	printFindings(w, "commands ignored before PLACE", a.Ignored)
	printFindings(w, "dropped MOVEs", a.Dropped)

	if a.Clean() {
		fmt.Fprintln(w, "✅ No issues found")
	}
}

func printFindings(w io.Writer, title string, findings []Finding) {
	if len(findings) == 0 {
		return
	}
	fmt.Fprintf(w, "⚠️  %d %s\n", len(findings), title)
	for i, f := range findings {
		if i == 5 {
			fmt.Fprintf(w, "   ... and %d more\n", len(findings)-5)
			break
		}
		fmt.Fprintf(w, "   line %d: %s (%s)\n", f.Line, f.Command, f.Reason)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Usage:     "lint robot command files",
		ArgsUsage: "FILE...",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "width", Value: engine.DefaultWidth, Usage: "table width"},
			&cli.IntFlag{Name: "height", Value: engine.DefaultHeight, Usage: "table height"},
			&cli.BoolFlag{Name: "fail", Usage: "exit non-zero when any file has findings"},
		},
		Action: run,
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	files := cmd.Args().Slice()
	if len(files) == 0 {
		files = []string{"commands.txt"}
	}

	table := &engine.TableConfig{
		Name:   "analysis",
		Width:  int(cmd.Int("width")),
		Height: int(cmd.Int("height")),
	}

	out := cmd.Root().Writer
	if out == nil {
		out = os.Stdout
	}

	dirty := 0
	for _, path := range files {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		a, err := analyze(path, f, table)
		f.Close()
		if err != nil {
			return err
		}

		printAnalysis(out, a)
		if !a.Clean() {
			dirty++
		}
	}

	if dirty > 0 && cmd.Bool("fail") {
		return fmt.Errorf("%d file(s) with findings", dirty)
	}
	return nil
}

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
