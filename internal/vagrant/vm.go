package vagrant

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/agentlab/derelict/internal/executer"
	"github.com/agentlab/derelict/internal/logging"
	"github.com/agentlab/derelict/internal/models"
	"github.com/agentlab/derelict/internal/parser"
)

// Action is a lifecycle operation on a virtual machine.
type Action string

const (
	ActionUp        Action = "up"
	ActionHalt      Action = "halt"
	ActionDestroy   Action = "destroy"
	ActionReload    Action = "reload"
	ActionSuspend   Action = "suspend"
	ActionResume    Action = "resume"
	ActionProvision Action = "provision"
)

type actionSpec struct {
	subcommand string
	args       []string
	provider   bool // accepts --provider
	message    string
	summary    string
}

var actions = map[Action]actionSpec{
	ActionUp:        {subcommand: "up", provider: true, message: "bringing up machine", summary: "Start and provision the machine"},
	ActionHalt:      {subcommand: "halt", message: "halting machine", summary: "Shut the machine down"},
	ActionDestroy:   {subcommand: "destroy", args: []string{"--force"}, message: "destroying machine", summary: "Destroy the machine without confirmation"},
	ActionReload:    {subcommand: "reload", message: "reloading machine", summary: "Halt and start the machine again"},
	ActionSuspend:   {subcommand: "suspend", message: "suspending machine", summary: "Suspend the machine"},
	ActionResume:    {subcommand: "resume", message: "resuming machine", summary: "Resume a suspended machine"},
	ActionProvision: {subcommand: "provision", message: "provisioning machine", summary: "Run the provisioners against the machine"},
}

// Actions returns every supported action in name order.
func Actions() []Action {
	out := make([]Action, 0, len(actions))
	for action := range actions {
		out = append(out, action)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Summary returns a one-line description of the action.
func (a Action) Summary() string {
	return actions[a].summary
}

// ParseAction converts a name into a known Action.
func ParseAction(name string) (Action, error) {
	action := Action(name)
	if _, ok := actions[action]; !ok {
		return "", fmt.Errorf("unknown action %q", name)
	}
	return action, nil
}

// ActionOptions tunes a lifecycle action.
type ActionOptions struct {
	Log      bool                // relay command output to the external logger
	Provider string              // overrides Instance.Provider for actions accepting --provider
	OnOutput executer.OutputFunc // live output hook (optional)
}

// VirtualMachine is one machine of a project.
type VirtualMachine struct {
	Connection *Connection
	Name       string

	mu     sync.Mutex
	status *parser.Status
}

func (vm *VirtualMachine) log() logrus.FieldLogger {
	return logging.Component(vm.Connection.Instance.Logger, "vm").
		WithField("vm", vm.Name).
		WithField("project", vm.Connection.Path)
}

// Validate fails with a *VMNotFoundError if the project does not list the
// machine.
func (vm *VirtualMachine) Validate(ctx context.Context) error {
	log := vm.log()
	log.Debug("validating machine")
	exists, err := vm.Exists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		err := &VMNotFoundError{Name: vm.Name, Path: vm.Connection.Path}
		log.WithError(err).Warn("machine validation failed")
		return err
	}
	log.Info("machine validated")
	return nil
}

// Exists reports whether the project lists the machine.
func (vm *VirtualMachine) Exists(ctx context.Context) (bool, error) {
	status, err := vm.Status(ctx)
	if err != nil {
		return false, err
	}
	return status.Exists(vm.Name)
}

// State returns the current state of the machine.
func (vm *VirtualMachine) State(ctx context.Context) (models.VMState, error) {
	status, err := vm.Status(ctx)
	if err != nil {
		return "", err
	}
	state, err := status.State(vm.Name)
	if errors.Is(err, parser.ErrVMNotFound) {
		return "", &VMNotFoundError{Name: vm.Name, Path: vm.Connection.Path}
	}
	return state, err
}

// Running reports whether the machine is in the running state.
func (vm *VirtualMachine) Running(ctx context.Context) (bool, error) {
	state, err := vm.State(ctx)
	if err != nil {
		return false, err
	}
	return state == models.VMRunning, nil
}

// Status returns the parsed "vagrant status" output, cached until the next
// action runs.
func (vm *VirtualMachine) Status(ctx context.Context) (*parser.Status, error) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.status != nil {
		return vm.status, nil
	}
	status, err := vm.Connection.Status(ctx)
	if err != nil {
		return nil, err
	}
	vm.status = status
	return status, nil
}

// Refresh drops the cached status.
func (vm *VirtualMachine) Refresh() {
	vm.mu.Lock()
	vm.status = nil
	vm.mu.Unlock()
}

// Run performs a lifecycle action on the machine.
func (vm *VirtualMachine) Run(ctx context.Context, action Action, opts ActionOptions) (*executer.Result, error) {
	def, ok := actions[action]
	if !ok {
		return nil, fmt.Errorf("unknown action %q", action)
	}
	args := append([]string{vm.Name}, def.args...)
	if def.provider {
		provider := opts.Provider
		if provider == "" {
			provider = vm.Connection.Instance.Provider
		}
		if provider != "" {
			args = append(args, "--provider", provider)
		}
	}
	vm.log().WithField("action", string(action)).Info(def.message)
	defer vm.Refresh()
	return vm.Connection.ExecuteChecked(ctx, ExecOptions{Log: opts.Log, OnOutput: opts.OnOutput}, def.subcommand, args...)
}

func (vm *VirtualMachine) Up(ctx context.Context, opts ActionOptions) (*executer.Result, error) {
	return vm.Run(ctx, ActionUp, opts)
}

func (vm *VirtualMachine) Halt(ctx context.Context, opts ActionOptions) (*executer.Result, error) {
	return vm.Run(ctx, ActionHalt, opts)
}

// Destroy removes the machine without asking for confirmation.
func (vm *VirtualMachine) Destroy(ctx context.Context, opts ActionOptions) (*executer.Result, error) {
	return vm.Run(ctx, ActionDestroy, opts)
}

func (vm *VirtualMachine) Reload(ctx context.Context, opts ActionOptions) (*executer.Result, error) {
	return vm.Run(ctx, ActionReload, opts)
}

func (vm *VirtualMachine) Suspend(ctx context.Context, opts ActionOptions) (*executer.Result, error) {
	return vm.Run(ctx, ActionSuspend, opts)
}

func (vm *VirtualMachine) Resume(ctx context.Context, opts ActionOptions) (*executer.Result, error) {
	return vm.Run(ctx, ActionResume, opts)
}

func (vm *VirtualMachine) Provision(ctx context.Context, opts ActionOptions) (*executer.Result, error) {
	return vm.Run(ctx, ActionProvision, opts)
}
