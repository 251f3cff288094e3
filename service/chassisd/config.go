// SPDX-License-Identifier: BSD-3-Clause

package chassisd

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// RailSpec is the JSON representation of a RailConfig.
type RailSpec struct {
	ID                 string `json:"id"`
	PresenceFRU        string `json:"presenceFru,omitempty"`
	PgoodGpio          string `json:"pgoodGpio,omitempty"`
	PgoodGpioActiveLow bool   `json:"pgoodGpioActiveLow,omitempty"`
	Page               uint8  `json:"page,omitempty"`
	IsPowerSupplyRail  bool   `json:"isPowerSupplyRail,omitempty"`
	CheckVoutUVFault   bool   `json:"checkVoutUvFault,omitempty"`
}

func (r RailSpec) toRailConfig() RailConfig {
	return RailConfig{
		ID:                 RailID(r.ID),
		PresenceFRU:        r.PresenceFRU,
		PgoodGpio:          r.PgoodGpio,
		PgoodGpioActiveLow: r.PgoodGpioActiveLow,
		Page:               r.Page,
		IsPowerSupplyRail:  r.IsPowerSupplyRail,
		CheckVoutUVFault:   r.CheckVoutUVFault,
	}
}

// SequencerSpec is the JSON representation of a PowerSequencerDevice. Kind
// selects which of GpiosOnlySequencer / BasicSequencer / PmbusUcdSequencer
// is built; fields irrelevant to Kind are ignored. A gpiosOnly sequencer
// carries no rails: PgoodGpio/PgoodGpioActiveLow describe its single
// device-level power-good line instead.
type SequencerSpec struct {
	ID                 string     `json:"id"`
	Kind               string     `json:"kind"`
	PowerGpio          string     `json:"powerGpio,omitempty"`
	PowerActiveLow     bool       `json:"powerActiveLow,omitempty"`
	PgoodGpio          string     `json:"pgoodGpio,omitempty"`
	PgoodGpioActiveLow bool       `json:"pgoodGpioActiveLow,omitempty"`
	PmbusDevice        string     `json:"pmbusDevice,omitempty"`
	OnVoutPage         uint8      `json:"onVoutPage,omitempty"`
	OnVoutVolts        float64    `json:"onVoutVolts,omitempty"`
	Rails              []RailSpec `json:"rails,omitempty"`
}

// SequencerKind values accepted by SequencerSpec.Kind.
const (
	SequencerKindGpiosOnly = "gpiosOnly"
	SequencerKindBasic     = "basic"
	SequencerKindPmbusUcd  = "pmbusUcd"
)

func (s SequencerSpec) build(svc Services) (PowerSequencerDevice, error) {
	switch s.Kind {
	case SequencerKindGpiosOnly:
		if len(s.Rails) != 0 {
			return nil, fmt.Errorf("%w: sequencer %s: gpiosOnly sequencers carry no rails, got %d", ErrInvalidConfiguration, s.ID, len(s.Rails))
		}
		return NewGpiosOnlySequencer(GpiosOnlySequencerConfig{
			ID:                 s.ID,
			PowerGpio:          s.PowerGpio,
			PowerActiveLow:     s.PowerActiveLow,
			PgoodGpio:          s.PgoodGpio,
			PgoodGpioActiveLow: s.PgoodGpioActiveLow,
		}, svc), nil
	case SequencerKindBasic:
		rails := make([]RailConfig, 0, len(s.Rails))
		for _, r := range s.Rails {
			rails = append(rails, r.toRailConfig())
		}
		return NewBasicSequencer(BasicSequencerConfig{
			ID:             s.ID,
			PowerGpio:      s.PowerGpio,
			PowerActiveLow: s.PowerActiveLow,
			PmbusDevice:    s.PmbusDevice,
			Rails:          rails,
		}, svc), nil
	case SequencerKindPmbusUcd:
		rails := make([]RailConfig, 0, len(s.Rails))
		for _, r := range s.Rails {
			rails = append(rails, r.toRailConfig())
		}
		return NewPmbusUcdSequencer(PmbusUcdSequencerConfig{
			ID:          s.ID,
			PmbusDevice: s.PmbusDevice,
			OnVoutPage:  s.OnVoutPage,
			OnVoutVolts: s.OnVoutVolts,
			Rails:       rails,
		}, svc), nil
	default:
		return nil, fmt.Errorf("%w: sequencer %s: unknown kind %q", ErrInvalidConfiguration, s.ID, s.Kind)
	}
}

// ChassisSpec is the JSON representation of a ChassisConfig plus its owned
// sequencers.
type ChassisSpec struct {
	ID                             string          `json:"id"`
	PresenceFRU                    string          `json:"presenceFru,omitempty"`
	Enabled                        bool            `json:"enabled"`
	InputPowerGoodGpio             string          `json:"inputPowerGoodGpio,omitempty"`
	InputPowerGoodGpioActiveLow    bool            `json:"inputPowerGoodGpioActiveLow,omitempty"`
	PowerSuppliesGoodGpio          string          `json:"powerSuppliesGoodGpio,omitempty"`
	PowerSuppliesGoodGpioActiveLow bool            `json:"powerSuppliesGoodGpioActiveLow,omitempty"`
	AvailableGpio                  string          `json:"availableGpio,omitempty"`
	AvailableGpioActiveLow         bool            `json:"availableGpioActiveLow,omitempty"`
	PowerGoodTimeoutMillis         int64           `json:"powerGoodTimeoutMs,omitempty"`
	FaultLogDelayMillis            int64           `json:"faultLogDelayMs,omitempty"`
	Sequencers                     []SequencerSpec `json:"sequencers,omitempty"`
}

func (cs ChassisSpec) build(svc Services) (*Chassis, error) {
	if cs.ID == "" {
		return nil, fmt.Errorf("%w: chassis with empty id", ErrInvalidConfiguration)
	}
	seqs := make([]PowerSequencerDevice, 0, len(cs.Sequencers))
	for _, ss := range cs.Sequencers {
		seq, err := ss.build(svc)
		if err != nil {
			return nil, err
		}
		seqs = append(seqs, seq)
	}
	// An absent (zero) faultLogDelayMs selects the 7s default fault-log delay.
	faultLogDelay := 7 * time.Second
	if cs.FaultLogDelayMillis != 0 {
		faultLogDelay = time.Duration(cs.FaultLogDelayMillis) * time.Millisecond
	}
	cfg := ChassisConfig{
		ID:                             cs.ID,
		PresenceFRU:                    cs.PresenceFRU,
		Enabled:                        cs.Enabled,
		InputPowerGoodGpio:             cs.InputPowerGoodGpio,
		InputPowerGoodGpioActiveLow:    cs.InputPowerGoodGpioActiveLow,
		PowerSuppliesGoodGpio:          cs.PowerSuppliesGoodGpio,
		PowerSuppliesGoodGpioActiveLow: cs.PowerSuppliesGoodGpioActiveLow,
		AvailableGpio:                  cs.AvailableGpio,
		AvailableGpioActiveLow:         cs.AvailableGpioActiveLow,
		PowerGoodTimeout:               time.Duration(cs.PowerGoodTimeoutMillis) * time.Millisecond,
		FaultLogDelay:                  faultLogDelay,
		MonitorOptions:                 DefaultChassisStatusMonitorOptions(),
	}
	return NewChassis(cfg, svc, seqs), nil
}

// Config is the top-level, JSON-consumed configuration for a System: the
// set of chassis it manages and the interval Monitor should be driven at.
type Config struct {
	Chassis         []ChassisSpec `json:"chassis"`
	MonitorInterval time.Duration `json:"-"`
}

// monitorIntervalJSON is the JSON-visible shadow of Config, letting
// MonitorInterval stay a time.Duration in Go while the wire format uses
// plain milliseconds.
type monitorIntervalJSON struct {
	Chassis             []ChassisSpec `json:"chassis"`
	MonitorIntervalMillis int64        `json:"monitorIntervalMs"`
}

// LoadConfig parses a Config from JSON.
func LoadConfig(r io.Reader) (*Config, error) {
	var wire monitorIntervalJSON
	if err := json.NewDecoder(r).Decode(&wire); err != nil {
		return nil, fmt.Errorf("%w: decode: %w", ErrInvalidConfiguration, err)
	}
	cfg := &Config{
		Chassis:         wire.Chassis,
		MonitorInterval: time.Duration(wire.MonitorIntervalMillis) * time.Millisecond,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports whether Config is well formed: at least one chassis, no
// duplicate chassis IDs, and a positive monitor interval.
func (c *Config) Validate() error {
	if len(c.Chassis) == 0 {
		return fmt.Errorf("%w: no chassis configured", ErrInvalidConfiguration)
	}
	seen := make(map[string]bool, len(c.Chassis))
	for _, cs := range c.Chassis {
		if cs.ID == "" {
			return fmt.Errorf("%w: chassis with empty id", ErrInvalidConfiguration)
		}
		if seen[cs.ID] {
			return fmt.Errorf("%w: duplicate chassis id %q", ErrInvalidConfiguration, cs.ID)
		}
		seen[cs.ID] = true
	}
	if c.MonitorInterval <= 0 {
		return fmt.Errorf("%w: monitor interval must be positive", ErrInvalidConfiguration)
	}
	return nil
}

// BuildSystem constructs a System from Config, wiring every chassis and
// sequencer against svc.
func (c *Config) BuildSystem(svc Services) (*System, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	chassis := make([]*Chassis, 0, len(c.Chassis))
	for _, cs := range c.Chassis {
		built, err := cs.build(svc)
		if err != nil {
			return nil, err
		}
		chassis = append(chassis, built)
	}
	return NewSystem(chassis...), nil
}

// Option configures a Config programmatically, as an alternative to
// LoadConfig.
type Option func(*Config)

// WithChassis appends a chassis specification to the configuration.
func WithChassis(spec ChassisSpec) Option {
	return func(c *Config) {
		c.Chassis = append(c.Chassis, spec)
	}
}

// WithMonitorInterval sets the interval Monitor should be driven at.
func WithMonitorInterval(d time.Duration) Option {
	return func(c *Config) {
		c.MonitorInterval = d
	}
}

// NewConfig builds a Config from functional options, applied in order.
func NewConfig(opts ...Option) *Config {
	c := &Config{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
