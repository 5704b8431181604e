// Package parser turns the text printed by vagrant subcommands into typed
// values.
//
// Each parser wraps one immutable output string. Accessors parse on first use
// and cache the outcome (value or error) for the life of the parser, so
// repeated calls are cheap and always agree.
package parser

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/agentlab/derelict/internal/logging"
)

type base struct {
	output string
	log    logrus.FieldLogger
}

func newBase(output string, log logrus.FieldLogger, component string) base {
	b := base{
		output: strings.ReplaceAll(output, "\r\n", "\n"),
		log:    logging.Component(log, component),
	}
	b.log.Debug("initialized parser")
	return b
}

// Output returns the normalized text the parser was built from.
func (b base) Output() string {
	return b.output
}

func (b base) lines() []string {
	return nonBlankLines(b.output)
}

// nonBlankLines splits text into lines without their terminators, skipping
// blank ones.
func nonBlankLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}

func (b base) invalid(kind Kind, reason, line string) error {
	err := &InvalidFormatError{Kind: kind, Reason: reason, Line: line}
	entry := b.log.WithError(err)
	if line != "" {
		entry = entry.WithField("line", line)
	}
	entry.Warn("unexpected output format")
	return err
}
