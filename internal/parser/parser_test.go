package parser

import (
	"bytes"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentlab/derelict/internal/models"
)

const (
	singleMachineStatus = `Current machine states:

foo                       not created (virtualbox)

The environment has not yet been created. Run ` + "`vagrant up`" + ` to
create the environment. If a machine is not created, only the
default provider will be shown. So if a provider is not listed,
then the machine is not created for that environment.
`

	multiMachineStatus = `Current machine states:

foo                       not created (virtualbox)
bar                       running (vmware_fusion)

This environment represents multiple VMs. The VMs are all listed
above with their current state. For more information about a specific
VM, run ` + "`vagrant status NAME`" + `.
`
)

func TestVersion(t *testing.T) {
	tests := []struct {
		output string
		want   string
	}{
		{"Vagrant 1.3.3\n", "1.3.3"},
		{"Vagrant v1.3.5\n", "1.3.5"},
		{"Vagrant version 1.0.7\n", "1.0.7"},
		{"Vagrant 1.4.0\r\n", "1.4.0"},
		{"Installed Version: 1.6.3\nVagrant 1.6.3\n", "1.6.3"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got, err := NewVersion(tt.output, nil).Version()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVersionInvalid(t *testing.T) {
	for _, output := range []string{"", "Packer v0.5.1\n", "Vagrant \n"} {
		_, err := NewVersion(output, nil).Version()
		require.Error(t, err, output)
		assert.ErrorIs(t, err, ErrInvalidFormat)

		var formatErr *InvalidFormatError
		require.True(t, errors.As(err, &formatErr))
		assert.Equal(t, KindVersion, formatErr.Kind)
		assert.Equal(t, output, formatErr.Reason)
	}
}

func TestBoxListValid(t *testing.T) {
	output := "foobar (provider_one)\nbaz    (provider_two)\n"
	boxes, err := NewBoxList(output, nil).Boxes()
	require.NoError(t, err)
	assert.Equal(t, []models.Box{
		{Name: "baz", Provider: "provider_two"},
		{Name: "foobar", Provider: "provider_one"},
	}, boxes)
}

func TestBoxListDeduplicates(t *testing.T) {
	output := "precise64 (virtualbox)\nprecise64 (virtualbox)\nprecise64 (vmware_fusion)\n\n"
	boxes, err := NewBoxList(output, nil).Boxes()
	require.NoError(t, err)
	assert.Len(t, boxes, 2)
}

func TestBoxListNoBoxes(t *testing.T) {
	boxes, err := NewBoxList(NoBoxesMessage, nil).Boxes()
	require.NoError(t, err)
	assert.NotNil(t, boxes)
	assert.Empty(t, boxes)

	boxes, err = NewBoxList("", nil).Boxes()
	require.NoError(t, err)
	assert.Empty(t, boxes)
}

func TestBoxListInvalid(t *testing.T) {
	output := "foobar (provider_one) lolwut\nbaz with no brackets\n"
	boxes, err := NewBoxList(output, nil).Boxes()
	require.Error(t, err)
	assert.Nil(t, boxes)
	assert.ErrorIs(t, err, ErrInvalidFormat)
	assert.Equal(t, "Output from 'vagrant box list' was in an unexpected format: Couldn't parse box list", err.Error())

	var formatErr *InvalidFormatError
	require.True(t, errors.As(err, &formatErr))
	assert.Equal(t, "foobar (provider_one) lolwut", formatErr.Line)
}

func TestBoxListRejectsTextAfterProvider(t *testing.T) {
	for _, line := range []string{"foo (virtualbox)  ", "foo (virtualbox)\t", "foo (virtualbox) x"} {
		_, err := NewBoxList(line+"\n", nil).Boxes()
		assert.ErrorIs(t, err, ErrInvalidFormat, "line %q", line)
	}
}

func TestBoxListNoPartialResult(t *testing.T) {
	output := "good (virtualbox)\nbad line\n"
	boxes, err := NewBoxList(output, nil).Boxes()
	assert.Error(t, err)
	assert.Nil(t, boxes)
}

func TestPluginList(t *testing.T) {
	output := "vagrant-berkshelf (1.3.7)\nvagrant-omnibus (1.2.1)\nvagrant-aws (0.4.0-1_2)\n"
	plugins, err := NewPluginList(output, nil).Plugins()
	require.NoError(t, err)
	assert.Equal(t, []models.Plugin{
		{Name: "vagrant-aws", Version: "0.4.0-1_2"},
		{Name: "vagrant-berkshelf", Version: "1.3.7"},
		{Name: "vagrant-omnibus", Version: "1.2.1"},
	}, plugins)
}

func TestPluginListNoPlugins(t *testing.T) {
	plugins, err := NewPluginList("No plugins installed.\n", nil).Plugins()
	require.NoError(t, err)
	assert.Empty(t, plugins)
}

func TestPluginListInvalid(t *testing.T) {
	_, err := NewPluginList("vagrant-berkshelf 1.3.7\n", nil).Plugins()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidFormat)
	assert.Equal(t, "Output from 'vagrant plugin list' was in an unexpected format: Couldn't parse plugin", err.Error())
}

func TestPluginListNeedsReinstall(t *testing.T) {
	output := `The following plugins were installed with a version of Vagrant
that had different versions of underlying components. Because
these component versions were changed (which rarely happens),
the plugins must be uninstalled and reinstalled.

To ensure that all the dependencies are properly updated as well
it is _highly recommended_ to do a ` + "`vagrant plugin uninstall`" + `
prior to reinstalling.

This message will not go away until all the plugins below are
either uninstalled or uninstalled then reinstalled.

The plugins below will not be loaded until they're uninstalled
and reinstalled:

vagrant-berkshelf, vagrant-omnibus
`
	_, err := NewPluginList(output, nil).Plugins()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNeedsReinstall)
	assert.NotErrorIs(t, err, ErrInvalidFormat)

	var reinstall *NeedsReinstallError
	require.True(t, errors.As(err, &reinstall))
	assert.Equal(t, output, reinstall.Output)
	assert.Equal(t, "Vagrant plugins installed before upgrading to version 1.4.x need to be uninstalled and re-installed.", err.Error())
}

func TestStatusSingleMachine(t *testing.T) {
	status := NewStatus(singleMachineStatus, nil)

	names, err := status.VMNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"foo"}, names)

	exists, err := status.Exists("foo")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = status.Exists("bar")
	require.NoError(t, err)
	assert.False(t, exists)

	state, err := status.State("foo")
	require.NoError(t, err)
	assert.Equal(t, models.VMNotCreated, state)

	_, err = status.State("bar")
	assert.ErrorIs(t, err, ErrVMNotFound)
}

func TestStatusMultiMachine(t *testing.T) {
	status := NewStatus(multiMachineStatus, nil)

	names, err := status.VMNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"bar", "foo"}, names)

	state, err := status.State("bar")
	require.NoError(t, err)
	assert.Equal(t, models.VMRunning, state)

	machines, err := status.Machines()
	require.NoError(t, err)
	assert.Equal(t, []models.Machine{
		{Name: "bar", State: models.VMRunning, Provider: "vmware_fusion"},
		{Name: "foo", State: models.VMNotCreated, Provider: "virtualbox"},
	}, machines)

	hasAny, err := status.Any()
	require.NoError(t, err)
	assert.True(t, hasAny)

	_, err = status.State("baz")
	assert.ErrorIs(t, err, ErrVMNotFound)
}

func TestStatusWithoutHeader(t *testing.T) {
	output := "Some preamble\n\nweb                       running (virtualbox)\ndb                        poweroff (virtualbox)\n\ntrailer\n"
	status := NewStatus(output, nil)

	state, err := status.State("db")
	require.NoError(t, err)
	assert.Equal(t, models.VMPowerOff, state)
}

func TestStatusWindowsLineEndings(t *testing.T) {
	output := "Current machine states:\r\n\r\ndefault                   saved (virtualbox)\r\n\r\nDone.\r\n"
	state, err := NewStatus(output, nil).State("default")
	require.NoError(t, err)
	assert.Equal(t, models.VMSaved, state)
}

func TestStatusMissingList(t *testing.T) {
	status := NewStatus("This output is missing the list of virtual machines.\n", nil)

	_, err := status.VMNames()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidFormat)
	assert.Equal(t, "Output from 'vagrant status' was in an unexpected format: Couldn't find list of VMs", err.Error())

	_, err = status.State("foo")
	assert.ErrorIs(t, err, ErrInvalidFormat)
	assert.NotErrorIs(t, err, ErrVMNotFound)
}

func TestStatusRequiresClosingBlankLine(t *testing.T) {
	tests := []struct {
		name   string
		output string
	}{
		{"with header", "Current machine states:\n\ndefault                   running (virtualbox)\n"},
		{"without header", "preamble\n\nweb                       running (virtualbox)\n"},
		{"no trailing newline", "Current machine states:\n\ndefault                   running (virtualbox)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			names, err := NewStatus(tt.output, nil).VMNames()
			require.Error(t, err)
			assert.Nil(t, names)
			assert.Equal(t, "Output from 'vagrant status' was in an unexpected format: Couldn't find list of VMs", err.Error())
		})
	}
}

func TestStatusInvalidLine(t *testing.T) {
	output := `Current machine states:

foo                       this line is missing brackets!
bar                       not created (virtualbox)

This environment represents multiple VMs.
`
	status := NewStatus(output, nil)
	_, err := status.VMNames()
	require.Error(t, err)
	assert.Equal(t, "Output from 'vagrant status' was in an unexpected format: Couldn't parse VM list", err.Error())

	_, err = status.Exists("bar")
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestParsersMemoize(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetLevel(logrus.DebugLevel)

	status := NewStatus(multiMachineStatus, logger)
	first, err := status.VMNames()
	require.NoError(t, err)
	parsesAfterFirst := bytes.Count(buf.Bytes(), []byte("parsing VM list"))

	second, err := status.VMNames()
	require.NoError(t, err)
	_, err = status.State("foo")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, parsesAfterFirst)
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("parsing VM list")))

	other, err := NewStatus(multiMachineStatus, nil).VMNames()
	require.NoError(t, err)
	assert.Equal(t, first, other)
}

func TestParsersMemoizeErrors(t *testing.T) {
	list := NewBoxList("not a box list\n", nil)
	_, first := list.Boxes()
	_, second := list.Boxes()
	require.Error(t, first)
	assert.Same(t, first, second)
}
