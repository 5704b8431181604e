// Package command builds and splits Vagrant command lines.
//
// Every word of a command line (the binary, the subcommand and each argument)
// is shell-escaped on its own and the words are joined with single spaces, so
// the line can be handed to a shell or split back with Split without changing
// any argument.
package command

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alessio/shellescape"
	"github.com/mattn/go-shellwords"
)

// ErrEmptyCommand is returned by Split when the line contains no words.
var ErrEmptyCommand = errors.New("empty command line")

// ErrShellOperator is returned by Split when the line contains an unquoted
// pipeline, list or redirection operator.
var ErrShellOperator = errors.New("unsupported shell operator")

// Builder constructs command lines for one Vagrant binary.
type Builder struct {
	Binary string // Path to the vagrant binary
	Sudo   bool   // Prefix the line with "sudo --"
}

// Words returns the unescaped argument vector for a subcommand.
func (b Builder) Words(subcommand string, args ...string) []string {
	words := make([]string, 0, len(args)+4)
	if b.Sudo {
		words = append(words, "sudo", "--")
	}
	words = append(words, b.Binary, subcommand)
	return append(words, args...)
}

// Line returns the escaped command line for a subcommand.
func (b Builder) Line(subcommand string, args ...string) string {
	escaped := make([]string, 0, len(args)+2)
	escaped = append(escaped, shellescape.Quote(b.Binary), shellescape.Quote(subcommand))
	for _, arg := range args {
		escaped = append(escaped, shellescape.Quote(arg))
	}
	line := strings.Join(escaped, " ")
	if b.Sudo {
		return "sudo -- " + line
	}
	return line
}

// Build is shorthand for Builder{Binary: binary}.Line(subcommand, args...).
func Build(binary, subcommand string, args ...string) string {
	return Builder{Binary: binary}.Line(subcommand, args...)
}

// Split breaks a command line into words using shell quoting rules. Environment
// variables and backticks are not expanded.
func Split(line string) ([]string, error) {
	parser := shellwords.NewParser()
	parser.ParseEnv = false
	parser.ParseBacktick = false
	words, err := parser.Parse(line)
	if err != nil {
		return nil, fmt.Errorf("split command line: %w", err)
	}
	if parser.Position != -1 {
		return nil, fmt.Errorf("%w at offset %d: %q", ErrShellOperator, parser.Position, line)
	}
	if len(words) == 0 {
		return nil, ErrEmptyCommand
	}
	return words, nil
}
