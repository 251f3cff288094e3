// SPDX-License-Identifier: BSD-3-Clause

package state

import (
	"context"
	"fmt"
	"time"
)

// StateDefinition describes a single state and its entry/exit hooks.
type StateDefinition struct {
	// Name is the unique identifier of the state within a machine.
	Name string
	// OnEntry runs when the machine transitions into this state.
	OnEntry func(ctx context.Context) error
	// OnExit runs when the machine transitions out of this state.
	OnExit func(ctx context.Context) error
}

// TransitionDefinition describes an allowed state transition.
type TransitionDefinition struct {
	From    string
	To      string
	Trigger string
	// Guard, if set, must return true for the transition to be permitted.
	Guard func(ctx context.Context) bool
	// Action, if set, runs once the transition has been committed.
	Action func(ctx context.Context, from, to string) error
}

// Config holds the configuration for a state machine.
type Config struct {
	// Name is the unique identifier for the state machine.
	Name string
	// Description provides human-readable information about the state machine.
	Description string
	// InitialState is the starting state of the machine.
	InitialState string
	// States defines all possible states.
	States []StateDefinition
	// Transitions defines allowed transitions between states.
	Transitions []TransitionDefinition
	// StateTimeout bounds how long a single Fire call may take.
	StateTimeout time.Duration
	// PersistState enables the persistence callback on every transition.
	PersistState bool
	// EnableTracing starts an OpenTelemetry span for every Fire call.
	EnableTracing bool
}

// Option configures a Config.
type Option interface {
	apply(*Config)
}

type optionFunc func(*Config)

func (f optionFunc) apply(c *Config) { f(c) }

// WithName sets the name of the state machine.
func WithName(name string) Option {
	return optionFunc(func(c *Config) { c.Name = name })
}

// WithDescription sets the description of the state machine.
func WithDescription(description string) Option {
	return optionFunc(func(c *Config) { c.Description = description })
}

// WithInitialState sets the initial state of the state machine.
func WithInitialState(state string) Option {
	return optionFunc(func(c *Config) { c.InitialState = state })
}

// WithState adds a state definition to the state machine.
func WithState(state StateDefinition) Option {
	return optionFunc(func(c *Config) { c.States = append(c.States, state) })
}

// WithStates adds bare states, with no entry/exit hooks, to the state machine.
func WithStates(names ...string) Option {
	return optionFunc(func(c *Config) {
		for _, name := range names {
			c.States = append(c.States, StateDefinition{Name: name})
		}
	})
}

// WithTransition adds an unguarded transition to the state machine.
func WithTransition(from, to, trigger string) Option {
	return optionFunc(func(c *Config) {
		c.Transitions = append(c.Transitions, TransitionDefinition{From: from, To: to, Trigger: trigger})
	})
}

// WithGuardedTransition adds a transition with a guard condition.
func WithGuardedTransition(from, to, trigger string, guard func(ctx context.Context) bool) Option {
	return optionFunc(func(c *Config) {
		c.Transitions = append(c.Transitions, TransitionDefinition{From: from, To: to, Trigger: trigger, Guard: guard})
	})
}

// WithActionTransition adds a transition with a post-commit action.
func WithActionTransition(from, to, trigger string, action func(ctx context.Context, from, to string) error) Option {
	return optionFunc(func(c *Config) {
		c.Transitions = append(c.Transitions, TransitionDefinition{From: from, To: to, Trigger: trigger, Action: action})
	})
}

// WithStateTimeout sets the maximum duration for a single Fire call.
func WithStateTimeout(timeout time.Duration) Option {
	return optionFunc(func(c *Config) { c.StateTimeout = timeout })
}

// WithPersistState enables calling the persistence callback after every transition.
func WithPersistState(enabled bool) Option {
	return optionFunc(func(c *Config) { c.PersistState = enabled })
}

// WithTracing enables OpenTelemetry spans around Fire calls.
func WithTracing(enabled bool) Option {
	return optionFunc(func(c *Config) { c.EnableTracing = enabled })
}

// NewConfig creates a new state machine configuration with the provided options.
func NewConfig(opts ...Option) *Config {
	cfg := &Config{
		StateTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt.apply(cfg)
	}
	return cfg
}

// Validate checks if the configuration is self-consistent.
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidConfig)
	}
	if c.InitialState == "" {
		return fmt.Errorf("%w: initial state cannot be empty", ErrInvalidConfig)
	}
	if len(c.States) == 0 {
		return fmt.Errorf("%w: at least one state must be defined", ErrInvalidConfig)
	}

	stateNames := make(map[string]bool, len(c.States))
	initialStateFound := false
	for _, state := range c.States {
		if state.Name == "" {
			return fmt.Errorf("%w: state name cannot be empty", ErrInvalidConfig)
		}
		if stateNames[state.Name] {
			return fmt.Errorf("%w: duplicate state name: %s", ErrInvalidConfig, state.Name)
		}
		stateNames[state.Name] = true
		if state.Name == c.InitialState {
			initialStateFound = true
		}
	}
	if !initialStateFound {
		return fmt.Errorf("%w: initial state %s not found in states list", ErrInvalidConfig, c.InitialState)
	}

	for _, transition := range c.Transitions {
		if transition.From == "" || transition.To == "" {
			return fmt.Errorf("%w: transition from and to states cannot be empty", ErrInvalidConfig)
		}
		if transition.Trigger == "" {
			return fmt.Errorf("%w: transition trigger cannot be empty", ErrInvalidConfig)
		}
		if !stateNames[transition.From] {
			return fmt.Errorf("%w: transition from state %s not found", ErrInvalidConfig, transition.From)
		}
		if !stateNames[transition.To] {
			return fmt.Errorf("%w: transition to state %s not found", ErrInvalidConfig, transition.To)
		}
	}

	if c.StateTimeout <= 0 {
		return fmt.Errorf("%w: state timeout must be positive", ErrInvalidConfig)
	}

	return nil
}
