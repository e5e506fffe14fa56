package models

import (
	"context"
	"sync/atomic"
)

// CommandResource is a model served by an external command. Loading checks
// that the command can run with the requested configuration; the weights
// themselves live in the child process for the duration of each call.
type CommandResource struct {
	Command  string
	Config   Config
	released atomic.Bool
}

// Release implements Resource.
func (r *CommandResource) Release() error {
	r.released.Store(true)
	return nil
}

// Released reports whether Release was called.
func (r *CommandResource) Released() bool {
	return r.released.Load()
}

// CommandLoader returns a Loader that runs check before handing out a
// CommandResource for command.
func CommandLoader(command string, check func(context.Context, Config) error) Loader {
	return LoaderFunc(func(ctx context.Context, cfg Config) (Resource, error) {
		if check != nil {
			if err := check(ctx, cfg); err != nil {
				return nil, err
			}
		}
		return &CommandResource{Command: command, Config: cfg}, nil
	})
}
