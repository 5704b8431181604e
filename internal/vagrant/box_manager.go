package vagrant

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/agentlab/derelict/internal/executer"
	"github.com/agentlab/derelict/internal/logging"
	"github.com/agentlab/derelict/internal/models"
	"github.com/agentlab/derelict/internal/parser"
)

// BoxAddOptions tunes BoxManager.Add.
type BoxAddOptions struct {
	Force bool // replace an existing box with the same name and provider
	Log   bool
}

// BoxRemoveOptions tunes BoxManager.Remove.
type BoxRemoveOptions struct {
	Provider string // remove only the box for this provider
	Log      bool
}

// BoxManager lists, adds and removes the boxes of an installation.
type BoxManager struct {
	Instance *Instance

	mu    sync.Mutex
	boxes []models.Box
}

func (m *BoxManager) log() logrus.FieldLogger {
	return logging.Component(m.Instance.Logger, "box_manager")
}

// List returns the installed boxes. The result is cached until Add or Remove
// succeeds.
func (m *BoxManager) List(ctx context.Context) ([]models.Box, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.boxes != nil {
		return m.boxes, nil
	}
	m.log().Info("retrieving box list")
	result, err := m.Instance.ExecuteChecked(ctx, ExecOptions{}, "box", "list")
	if err != nil {
		return nil, err
	}
	boxes, err := parser.NewBoxList(result.Stdout, m.Instance.Logger).Boxes()
	if err != nil {
		return nil, err
	}
	m.boxes = boxes
	return boxes, nil
}

// Fetch returns the box installed under name for provider.
func (m *BoxManager) Fetch(ctx context.Context, name, provider string) (models.Box, error) {
	boxes, err := m.List(ctx)
	if err != nil {
		return models.Box{}, err
	}
	want := models.Box{Name: name, Provider: provider}
	for _, box := range boxes {
		if box == want {
			return box, nil
		}
	}
	return models.Box{}, &BoxNotFoundError{Name: name, Provider: provider}
}

// Present reports whether a box is installed for provider.
func (m *BoxManager) Present(ctx context.Context, name, provider string) (bool, error) {
	_, err := m.Fetch(ctx, name, provider)
	if errors.Is(err, ErrBoxNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Add downloads a box from source and installs it under name.
func (m *BoxManager) Add(ctx context.Context, name, source string, opts BoxAddOptions) (*executer.Result, error) {
	m.log().WithField("box", name).WithField("source", source).Info("adding box")
	args := []string{"add", name, source}
	if opts.Force {
		args = append(args, "--force")
	}
	result, err := m.Instance.ExecuteChecked(ctx, ExecOptions{Log: opts.Log}, "box", args...)
	if err != nil {
		return result, err
	}
	m.flush()
	return result, nil
}

// Remove uninstalls a box, optionally only for one provider.
func (m *BoxManager) Remove(ctx context.Context, name string, opts BoxRemoveOptions) (*executer.Result, error) {
	m.log().WithField("box", name).WithField("provider", opts.Provider).Info("removing box")
	args := []string{"remove", name}
	if opts.Provider != "" {
		args = append(args, opts.Provider)
	}
	result, err := m.Instance.ExecuteChecked(ctx, ExecOptions{Log: opts.Log}, "box", args...)
	if err != nil {
		return result, err
	}
	m.flush()
	return result, nil
}

func (m *BoxManager) flush() {
	m.mu.Lock()
	m.boxes = nil
	m.mu.Unlock()
}
