// Command validate checks the table configuration files in a directory
// (default ./configs). For every .json, .yaml and .yml file it checks:
//   - the file parses and the table passes validation (1..100 per side)
//   - the name field matches the file stem used as the config id
//   - no two files share an id (JSON shadows YAML when they do)
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/rodneysantos/toy-robot/sim/config"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

// extension precedence matches the config manager lookup order
var extensions = []string{".json", ".yaml", ".yml"}

func isConfigFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, known := range extensions {
		if ext == known {
			return true
		}
	}
	return false
}

// validateConfig loads and validates a single table configuration file
func validateConfig(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	cfg, err := config.ReadConfigFile(filePath)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	id := strings.TrimSuffix(result.File, filepath.Ext(result.File))
	if cfg.Name != id {
		result.Errors = append(result.Errors, fmt.Sprintf("⚠ Name %q differs from id %q; sessions use the id", cfg.Name, id))
	}

	result.Errors = append(result.Errors, fmt.Sprintf("✓ Id: %s", id))
	result.Errors = append(result.Errors, fmt.Sprintf("✓ Table: %dx%d", cfg.Width, cfg.Height))
	if cfg.Description != "" {
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Description: %s", cfg.Description))
	}

	return result
}

// validateDir validates every config file in dir, sorted so that files
// sharing an id are reported in lookup order
func validateDir(dir string) ([]ValidationResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading config directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && isConfigFile(entry.Name()) {
			files = append(files, entry.Name())
		}
	}
	sort.Slice(files, func(i, j int) bool {
		return lookupKey(files[i]) < lookupKey(files[j])
	})

	owners := make(map[string]string)
	results := make([]ValidationResult, 0, len(files))
	for _, name := range files {
		result := validateConfig(filepath.Join(dir, name))

		id := strings.TrimSuffix(name, filepath.Ext(name))
		if owner, taken := owners[id]; taken {
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf("Id %q is shadowed by %s", id, owner))
		} else {
			owners[id] = name
		}

		results = append(results, result)
	}

	return results, nil
}

// lookupKey orders files by id, then by extension precedence
func lookupKey(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	rank := len(extensions)
	for i, known := range extensions {
		if ext == known {
			rank = i
		}
	}
	return fmt.Sprintf("%s\x00%d", strings.TrimSuffix(name, filepath.Ext(name)), rank)
}

// printResults writes the report and returns whether every file is valid
func printResults(w io.Writer, results []ValidationResult) bool {
	allValid := true
	for _, result := range results {
		fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Fprintln(w, "✅ VALID")
			for _, info := range result.Errors {
				fmt.Fprintln(w, "  "+info)
			}
		} else {
			fmt.Fprintln(w, "❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				if !strings.HasPrefix(err, "✓") {
					fmt.Fprintln(w, "  ❌ "+err)
				}
			}
		}
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Fprintln(w, "✅ All configurations are valid!")
	} else {
		fmt.Fprintln(w, "❌ Some configurations have errors")
	}
	return allValid
}

var errInvalid = errors.New("invalid configurations found")

func newApp() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "validate table configuration files",
		ArgsUsage: "[DIR]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			dir := cmd.Args().First()
			if dir == "" {
				dir = "configs"
			}

			results, err := validateDir(dir)
			if err != nil {
				return err
			}
			if len(results) == 0 {
				return fmt.Errorf("no config files in %s", dir)
			}

			out := cmd.Root().Writer
			if out == nil {
				out = os.Stdout
			}
			if !printResults(out, results) {
				return errInvalid
			}
			return nil
		},
	}
}

// main validates every config file and exits with non-zero status if any
// are invalid
func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		if !errors.Is(err, errInvalid) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
