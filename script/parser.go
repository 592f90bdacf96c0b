package script

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// ErrEmptyLine is returned by ParseLine for a line with no command
var ErrEmptyLine = errors.New("empty command line")

// Line is the grammar of a single command line
type Line struct {
	Name  string   `parser:"@Word"`
	Args  string   `parser:"@Word?"`
	Extra []string `parser:"@Word*"`
}

var lineLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Word", Pattern: `[^\s]+`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var lineParser = participle.MustBuild[Line](
	participle.Lexer(lineLexer),
	participle.Elide("Whitespace"),
)

// Command is a parsed command with its 1-based line number in the source
type Command struct {
	Name string
	Args string
	Line int
}

func (c Command) String() string {
	if c.Args == "" {
		return c.Name
	}
	return c.Name + " " + c.Args
}

// Batch is a group of commands run against one table and robot
type Batch struct {
	Index    int
	Commands []Command
}

// ParseLine parses one non-blank command line
func ParseLine(text string) (Command, error) {
	text = strings.TrimRight(text, "\r\n")
	if strings.TrimSpace(text) == "" {
		return Command{}, ErrEmptyLine
	}

	line, err := lineParser.ParseString("", text)
	if err != nil {
		return Command{}, fmt.Errorf("parse command %q: %w", text, err)
	}
	return Command{Name: line.Name, Args: line.Args}, nil
}

// ParseString parses a whole command file held in memory
func ParseString(text string) ([]Batch, error) {
	return Parse(strings.NewReader(text))
}

// Parse reads batches from r. Runs of blank lines count as a single separator,
// and an input with no commands yields no batches.
func Parse(r io.Reader) ([]Batch, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var batches []Batch
	var current []Command
	flush := func() {
		if len(current) == 0 {
			return
		}
		batches = append(batches, Batch{Index: len(batches), Commands: current})
		current = nil
	}

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		text := scanner.Text()
		if strings.TrimSpace(text) == "" {
			flush()
			continue
		}

		cmd, err := ParseLine(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		cmd.Line = lineNo
		current = append(current, cmd)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read commands: %w", err)
	}
	flush()

	return batches, nil
}
