package parser

import (
	"regexp"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var versionPattern = regexp.MustCompile(`(?m)^Vagrant (?:v(?:ersion )?)?(.+)$`)

// Version parses the output of "vagrant --version".
type Version struct {
	base
	version func() (string, error)
}

func NewVersion(output string, log logrus.FieldLogger) *Version {
	v := &Version{base: newBase(output, log, "parser.version")}
	v.version = sync.OnceValues(v.parse)
	return v
}

// Version returns the version token, e.g. "1.3.5" for "Vagrant v1.3.5".
func (v *Version) Version() (string, error) {
	return v.version()
}

func (v *Version) parse() (string, error) {
	match := versionPattern.FindStringSubmatch(v.output)
	if match == nil {
		return "", v.invalid(KindVersion, v.output, "")
	}
	version := strings.TrimSpace(match[1])
	if version == "" {
		return "", v.invalid(KindVersion, v.output, "")
	}
	return version, nil
}
