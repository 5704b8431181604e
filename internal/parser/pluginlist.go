package parser

import (
	"regexp"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/agentlab/derelict/internal/models"
)

var (
	noPluginsPattern  = regexp.MustCompile(`(?i)no plugins installed`)
	reinstallPattern  = regexp.MustCompile(`(?i)must be uninstalled and\s+re-?installed`)
	pluginLinePattern = regexp.MustCompile(`^(.*) \(([0-9\-_.]+)\)$`)
)

// PluginList parses the output of "vagrant plugin list".
type PluginList struct {
	base
	plugins func() ([]models.Plugin, error)
}

func NewPluginList(output string, log logrus.FieldLogger) *PluginList {
	p := &PluginList{base: newBase(output, log, "parser.plugin_list")}
	p.plugins = sync.OnceValues(p.parse)
	return p
}

// Plugins returns the distinct installed plugins sorted by name and version.
// Callers must not modify the returned slice.
func (p *PluginList) Plugins() ([]models.Plugin, error) {
	return p.plugins()
}

func (p *PluginList) parse() ([]models.Plugin, error) {
	if reinstallPattern.MatchString(p.output) {
		err := &NeedsReinstallError{Output: p.output}
		p.log.WithError(err).Warn("plugins need reinstall")
		return nil, err
	}
	if noPluginsPattern.MatchString(p.output) {
		return []models.Plugin{}, nil
	}
	seen := make(map[models.Plugin]struct{})
	plugins := []models.Plugin{}
	for _, line := range p.lines() {
		match := pluginLinePattern.FindStringSubmatch(line)
		if match == nil {
			return nil, p.invalid(KindPluginList, "Couldn't parse plugin", line)
		}
		plugin := models.Plugin{Name: match[1], Version: match[2]}
		if _, ok := seen[plugin]; ok {
			continue
		}
		seen[plugin] = struct{}{}
		plugins = append(plugins, plugin)
	}
	models.SortPlugins(plugins)
	p.log.WithField("count", len(plugins)).Debug("parsed plugin list")
	return plugins, nil
}
