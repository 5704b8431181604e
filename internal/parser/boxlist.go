package parser

import (
	"regexp"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/agentlab/derelict/internal/models"
)

// NoBoxesMessage is printed by "vagrant box list" when nothing is installed.
const NoBoxesMessage = "There are no installed boxes! Use `vagrant box add` to add some.\n"

var boxLinePattern = regexp.MustCompile(`^(.*?) +\((\w+)\)$`)

// BoxList parses the output of "vagrant box list".
type BoxList struct {
	base
	boxes func() ([]models.Box, error)
}

func NewBoxList(output string, log logrus.FieldLogger) *BoxList {
	b := &BoxList{base: newBase(output, log, "parser.box_list")}
	b.boxes = sync.OnceValues(b.parse)
	return b
}

// Boxes returns the distinct installed boxes sorted by name and provider.
// Callers must not modify the returned slice.
func (b *BoxList) Boxes() ([]models.Box, error) {
	return b.boxes()
}

func (b *BoxList) parse() ([]models.Box, error) {
	if strings.TrimSpace(b.output) == strings.TrimSpace(NoBoxesMessage) {
		return []models.Box{}, nil
	}
	seen := make(map[models.Box]struct{})
	boxes := []models.Box{}
	for _, line := range b.lines() {
		match := boxLinePattern.FindStringSubmatch(line)
		if match == nil {
			return nil, b.invalid(KindBoxList, "Couldn't parse box list", line)
		}
		box := models.Box{Name: match[1], Provider: match[2]}
		if _, ok := seen[box]; ok {
			continue
		}
		seen[box] = struct{}{}
		boxes = append(boxes, box)
	}
	models.SortBoxes(boxes)
	b.log.WithField("count", len(boxes)).Debug("parsed box list")
	return boxes, nil
}
