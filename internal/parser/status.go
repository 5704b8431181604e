package parser

import (
	"fmt"
	"regexp"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/agentlab/derelict/internal/models"
)

var (
	// The VM list is the first block of non-blank lines surrounded by blank
	// lines, preferably the one below the "Current machine states:" header.
	// A block that runs to the end of the output is truncated, not a list.
	statusHeaderBlock = regexp.MustCompile(`(?i)Current machine states:\n\n((?:[^\n]+\n)+)\n`)
	statusAnyBlock    = regexp.MustCompile(`\n\n((?:[^\n]+\n)+)\n`)
	statusLinePattern = regexp.MustCompile(`^(.*?)\s{2,}(.*?)\s+\((.*)\)$`)
)

// Status parses the output of "vagrant status".
type Status struct {
	base
	machines func() (map[string]models.Machine, error)
}

func NewStatus(output string, log logrus.FieldLogger) *Status {
	s := &Status{base: newBase(output, log, "parser.status")}
	s.machines = sync.OnceValues(s.parse)
	return s
}

// VMNames returns the normalized machine names in sorted order.
func (s *Status) VMNames() ([]string, error) {
	machines, err := s.machines()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(machines))
	for name := range machines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Machines returns every listed machine sorted by name.
func (s *Status) Machines() ([]models.Machine, error) {
	machines, err := s.machines()
	if err != nil {
		return nil, err
	}
	out := make([]models.Machine, 0, len(machines))
	for _, m := range machines {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Exists reports whether name is in the VM list. Names are normalized before
// lookup.
func (s *Status) Exists(name string) (bool, error) {
	machines, err := s.machines()
	if err != nil {
		return false, err
	}
	_, ok := machines[models.Normalize(name)]
	return ok, nil
}

// Any reports whether the VM list has at least one machine.
func (s *Status) Any() (bool, error) {
	machines, err := s.machines()
	if err != nil {
		return false, err
	}
	return len(machines) > 0, nil
}

// State returns the state of name, or ErrVMNotFound when it is not listed.
func (s *Status) State(name string) (models.VMState, error) {
	machines, err := s.machines()
	if err != nil {
		return "", err
	}
	m, ok := machines[models.Normalize(name)]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrVMNotFound, name)
	}
	return m.State, nil
}

func (s *Status) parse() (map[string]models.Machine, error) {
	s.log.Debug("parsing VM list")
	block := statusHeaderBlock.FindStringSubmatch(s.output)
	if block == nil {
		block = statusAnyBlock.FindStringSubmatch(s.output)
	}
	if block == nil {
		return nil, s.invalid(KindStatus, "Couldn't find list of VMs", "")
	}
	machines := make(map[string]models.Machine)
	for _, line := range nonBlankLines(block[1]) {
		match := statusLinePattern.FindStringSubmatch(line)
		if match == nil {
			return nil, s.invalid(KindStatus, "Couldn't parse VM list", line)
		}
		m := models.Machine{
			Name:     models.Normalize(match[1]),
			State:    models.VMState(models.Normalize(match[2])),
			Provider: match[3],
		}
		machines[m.Name] = m
	}
	return machines, nil
}
