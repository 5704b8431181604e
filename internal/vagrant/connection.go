package vagrant

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/agentlab/derelict/internal/executer"
	"github.com/agentlab/derelict/internal/logging"
	"github.com/agentlab/derelict/internal/parser"
)

// Connection runs vagrant commands inside one project directory.
type Connection struct {
	Instance *Instance
	Path     string
}

func (c *Connection) log() logrus.FieldLogger {
	return logging.Component(c.Instance.Logger, "connection").WithField("project", c.Path)
}

// Validate checks that the project directory exists.
func (c *Connection) Validate() error {
	log := c.log()
	log.Debug("validating connection")
	if _, err := os.Stat(c.Path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("stat %s: %w", c.Path, err)
		}
		err = invalidConnection(ErrConnectionNotFound, c.Path)
		log.WithError(err).Warn("connection validation failed")
		return err
	}
	log.Info("connection validated")
	return nil
}

// Execute runs a subcommand in the project directory.
func (c *Connection) Execute(ctx context.Context, opts ExecOptions, subcommand string, args ...string) (*executer.Result, error) {
	opts.dir = c.Path
	return c.Instance.Execute(ctx, opts, subcommand, args...)
}

// ExecuteChecked runs a subcommand in the project directory and fails unless
// it exits with status zero.
func (c *Connection) ExecuteChecked(ctx context.Context, opts ExecOptions, subcommand string, args ...string) (*executer.Result, error) {
	opts.dir = c.Path
	return c.Instance.ExecuteChecked(ctx, opts, subcommand, args...)
}

// Status runs "vagrant status" and returns its parser.
func (c *Connection) Status(ctx context.Context) (*parser.Status, error) {
	c.log().Info("retrieving vagrant status")
	result, err := c.ExecuteChecked(ctx, ExecOptions{}, "status")
	if err != nil {
		return nil, err
	}
	return parser.NewStatus(result.Stdout, c.Instance.Logger), nil
}

// VM returns the named machine after checking that the project lists it.
func (c *Connection) VM(ctx context.Context, name string) (*VirtualMachine, error) {
	vm := c.Machine(name)
	if err := vm.Validate(ctx); err != nil {
		return nil, err
	}
	return vm, nil
}

// Machine returns an unvalidated handle for the named machine.
func (c *Connection) Machine(name string) *VirtualMachine {
	return &VirtualMachine{Connection: c, Name: name}
}
