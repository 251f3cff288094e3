// SPDX-License-Identifier: BSD-3-Clause

//go:build linux
// +build linux

package gpio

import (
	"context"
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// Event describes a single edge event observed on a requested line.
type Event struct {
	// Offset is the line offset on its chip.
	Offset int
	// Timestamp is the time the edge was detected, in nanoseconds since an
	// unspecified epoch (as reported by the kernel).
	Timestamp time.Duration
	// RisingEdge is true for a low-to-high transition, false for high-to-low.
	RisingEdge bool
}

// Line is a single requested-and-owned GPIO line. It wraps a *gpiocdev.Line
// together with the LineConfig it was requested with, and additionally
// implements the chassis domain's Gpio contract (request/read/write/release).
type Line struct {
	line   *gpiocdev.Line
	config LineConfig
	name   string
	events chan Event
}

// Open requests a named GPIO line on the given chip with the supplied options
// and returns an owned Line. The line is exclusively held until Close/Release.
func Open(chip, lineName string, opts ...Option) (*Line, error) {
	cfg := NewConfig(append([]Option{WithChip(chip)}, opts...)...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	effective := cfg.GetLineConfig(lineName)

	foundChip, offset, err := gpiocdev.FindLine(lineName)
	if err != nil {
		return nil, mapGpiocdevError(err, fmt.Sprintf("failed to find line '%s'", lineName))
	}
	if foundChip != chip && foundChip != "" {
		// Some kernels report bare chip names; accept either form.
	}

	gpiocdevOpts := convertLineConfig(effective)
	gl, err := gpiocdev.RequestLine(chip, offset, gpiocdevOpts...)
	if err != nil {
		return nil, mapGpiocdevError(err, fmt.Sprintf("failed to request line '%s' from chip '%s'", lineName, chip))
	}

	return &Line{line: gl, config: effective, name: lineName}, nil
}

// OpenByNumber requests a GPIO line by offset rather than by name.
func OpenByNumber(chip string, offset int, opts ...Option) (*Line, error) {
	cfg := NewConfig(append([]Option{WithChip(chip)}, opts...)...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	effective := cfg.GetLineNumberConfig(offset)
	gpiocdevOpts := convertLineConfig(effective)

	gl, err := gpiocdev.RequestLine(chip, offset, gpiocdevOpts...)
	if err != nil {
		return nil, mapGpiocdevError(err, fmt.Sprintf("failed to request line %d from chip '%s'", offset, chip))
	}

	return &Line{line: gl, config: effective, name: fmt.Sprintf("line_%d", offset)}, nil
}

// RequestRead implements the chassis domain's Gpio contract: acquire the line
// for reading. Equivalent to Open with DirectionInput.
func RequestRead(chip, lineName string, opts ...Option) (*Line, error) {
	return Open(chip, lineName, append(opts, AsInput())...)
}

// RequestWrite implements the chassis domain's Gpio contract: acquire the
// line for writing, driving the given initial value.
func RequestWrite(chip, lineName string, initial int, opts ...Option) (*Line, error) {
	return Open(chip, lineName, append(opts, AsOutputValue(initial))...)
}

// GetValue reads the current value of the line (0 or 1).
func (l *Line) GetValue() (int, error) {
	if l.line == nil {
		return 0, fmt.Errorf("%w: line not open", ErrLineClosed)
	}
	v, err := l.line.Value()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrReadOperation, err)
	}
	return v, nil
}

// SetValue drives the line to the given value (0 or 1). The line must have
// been requested for output.
func (l *Line) SetValue(value int) error {
	if l.line == nil {
		return fmt.Errorf("%w: line not open", ErrLineClosed)
	}
	if value != 0 && value != 1 {
		return fmt.Errorf("%w: value must be 0 or 1", ErrInvalidValue)
	}
	if err := l.line.SetValue(value); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteOperation, err)
	}
	return nil
}

// Toggle sets the line high, waits duration, then sets it low.
func (l *Line) Toggle(duration time.Duration) error {
	if duration <= 0 {
		return fmt.Errorf("%w: duration must be positive", ErrInvalidDuration)
	}
	if err := l.SetValue(1); err != nil {
		return err
	}
	time.Sleep(duration)
	return l.SetValue(0)
}

// ToggleCtx is like Toggle but aborts the wait (driving the line low) if ctx
// is canceled first.
func (l *Line) ToggleCtx(ctx context.Context, duration time.Duration) error {
	if duration <= 0 {
		return fmt.Errorf("%w: duration must be positive", ErrInvalidDuration)
	}
	if err := l.SetValue(1); err != nil {
		return err
	}
	select {
	case <-time.After(duration):
	case <-ctx.Done():
		_ = l.SetValue(0)
		return ctx.Err()
	}
	return l.SetValue(0)
}

// Events returns the line's edge-event channel. Open and OpenByNumber never
// create that channel, so Events returns nil for every Line, including lines
// requested with edge detection.
func (l *Line) Events() <-chan Event {
	return l.events
}

// Release is an alias for Close, named to match the chassis domain's Gpio
// contract (request_*/release lifecycle).
func (l *Line) Release() error {
	return l.Close()
}

// Close releases the line. It is safe to call more than once; the second and
// subsequent calls are no-ops that report success.
func (l *Line) Close() error {
	if l.line == nil {
		return nil
	}
	line := l.line
	l.line = nil
	if err := line.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrOperationFailed, err)
	}
	return nil
}

func convertOptions(opts []Option) []gpiocdev.LineReqOption {
	cfg := NewConfig(opts...)
	return convertLineConfig(cfg.DefaultConfig)
}

func convertLineConfig(lc LineConfig) []gpiocdev.LineReqOption {
	result := make([]gpiocdev.LineReqOption, 0, 8)

	result = append(result, gpiocdev.WithConsumer(consumerOrDefault(lc.Consumer)))

	switch lc.Direction {
	case DirectionOutput:
		result = append(result, gpiocdev.AsOutput(lc.InitialValue))
	default:
		result = append(result, gpiocdev.AsInput)
	}

	switch lc.Bias {
	case BiasPullUp:
		result = append(result, gpiocdev.WithPullUp)
	case BiasPullDown:
		result = append(result, gpiocdev.WithPullDown)
	default:
		result = append(result, gpiocdev.WithBiasDisabled)
	}

	switch lc.Drive {
	case DriveOpenDrain:
		result = append(result, gpiocdev.AsOpenDrain)
	case DriveOpenSource:
		result = append(result, gpiocdev.AsOpenSource)
	}

	if lc.ActiveState == ActiveLow {
		result = append(result, gpiocdev.AsActiveLow)
	}

	switch lc.Edge {
	case EdgeRising:
		result = append(result, gpiocdev.WithRisingEdge)
	case EdgeFalling:
		result = append(result, gpiocdev.WithFallingEdge)
	case EdgeBoth:
		result = append(result, gpiocdev.WithBothEdges)
	}

	if lc.DebouncePeriod > 0 {
		result = append(result, gpiocdev.WithDebounce(lc.DebouncePeriod))
	}

	return result
}

func consumerOrDefault(consumer string) string {
	if consumer == "" {
		return "chassisd"
	}
	return consumer
}

// AsOutput returns an Option that configures the line for output, defaulting
// to an initial value of 0.
func AsOutput() Option {
	return optionFunc(func(c *Config) {
		c.DefaultConfig.Direction = DirectionOutput
	})
}

// AsOutputValue returns an Option that configures the line for output with
// the given initial value.
func AsOutputValue(value int) Option {
	return optionFunc(func(c *Config) {
		c.DefaultConfig.Direction = DirectionOutput
		c.DefaultConfig.InitialValue = value
	})
}

// AsInput returns an Option that configures the line for input.
func AsInput() Option {
	return optionFunc(func(c *Config) {
		c.DefaultConfig.Direction = DirectionInput
	})
}

// WithActiveLow returns an Option that marks the line active-low.
func WithActiveLow() Option {
	return optionFunc(func(c *Config) {
		c.DefaultConfig.ActiveState = ActiveLow
	})
}

type optionFunc func(*Config)

func (f optionFunc) apply(c *Config) { f(c) }
