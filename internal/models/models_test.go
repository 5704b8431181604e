package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVMStateString(t *testing.T) {
	tests := []struct {
		state VMState
		want  string
	}{
		{VMNotCreated, "not_created"},
		{VMRunning, "running"},
		{VMSaved, "saved"},
		{VMPowerOff, "poweroff"},
		{VMAborted, "aborted"},
		{VMStopped, "stopped"},
		{VMPaused, "paused"},
		{VMSuspended, "suspended"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, string(tt.state))
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"not created", "not_created"},
		{"Not   Created", "not_created"},
		{"running", "running"},
		{"web\tserver", "web_server"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestBoxEquality(t *testing.T) {
	a := Box{Name: "precise64", Provider: "virtualbox"}
	b := Box{Name: "precise64", Provider: "virtualbox"}
	c := Box{Name: "precise64", Provider: "vmware_fusion"}

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	set := map[Box]struct{}{a: {}, b: {}, c: {}}
	assert.Len(t, set, 2)
}

func TestPluginEquality(t *testing.T) {
	set := map[Plugin]struct{}{
		{Name: "vagrant-aws", Version: "0.4.0"}: {},
		{Name: "vagrant-aws", Version: "0.4.0"}: {},
		{Name: "vagrant-aws", Version: "0.4.1"}: {},
	}
	assert.Len(t, set, 2)
}

func TestSortBoxes(t *testing.T) {
	boxes := []Box{
		{Name: "trusty", Provider: "virtualbox"},
		{Name: "precise", Provider: "vmware"},
		{Name: "precise", Provider: "aws"},
	}
	SortBoxes(boxes)
	assert.Equal(t, []Box{
		{Name: "precise", Provider: "aws"},
		{Name: "precise", Provider: "vmware"},
		{Name: "trusty", Provider: "virtualbox"},
	}, boxes)
}

func TestSortPlugins(t *testing.T) {
	plugins := []Plugin{
		{Name: "vagrant-omnibus", Version: "1.2.1"},
		{Name: "vagrant-berkshelf", Version: "1.3.7"},
	}
	SortPlugins(plugins)
	assert.Equal(t, "vagrant-berkshelf", plugins[0].Name)
	assert.Equal(t, "vagrant-omnibus", plugins[1].Name)
}
