// SPDX-License-Identifier: BSD-3-Clause

package chassisd

import (
	"context"
	"errors"
	"fmt"
)

// RailFault describes why a single rail was isolated as the cause of a
// power-good mismatch.
type RailFault struct {
	SequencerID string
	RailID      RailID
	Reason      string

	PgoodGpioValue int
	StatusWord     uint16
	StatusVout     uint8
	ReadVout       float64
	VoutUVLimit    float64
	MfrStatus      uint16

	IsPowerSupplyRail bool
}

// PowerSequencerDevice is the contract for a power sequencer chip: a source
// of an aggregate power-good signal, a set of rails it owns, and the ability
// to drive chassis power state and isolate a fault to a single rail.
type PowerSequencerDevice interface {
	// ID identifies the sequencer within its chassis.
	ID() string
	// Rails returns the sequencer's rails in configured order.
	Rails() []*Rail
	// SetPowerState drives the sequencer's output(s) to the given state.
	SetPowerState(ctx context.Context, state PowerState) error
	// ReadPowerGood samples the sequencer's aggregate power-good signal.
	// PowerGoodUndefined is returned if the read itself fails.
	ReadPowerGood(ctx context.Context) PowerGood
	// FindFault walks the sequencer's rails in configured order and returns
	// the first rail whose status indicates a fault, or nil if none is
	// found.
	FindFault(ctx context.Context) (*RailFault, error)
	// Close releases any resources (GPIO lines, I2C handles) held by the
	// sequencer.
	Close(ctx context.Context) error
}

// GpiosOnlySequencerConfig configures a sequencer whose power control and
// power-good observation are both pure GPIO, with no PMBus access at all.
// This variant carries no rails: the reference implementation's
// GPIOsOnlyDevice reports "not supported" for every PMBus query and its
// findPgoodFault unconditionally returns no fault, since there is no
// PMBus-addressable rail to isolate a fault to.
type GpiosOnlySequencerConfig struct {
	ID                 string
	PowerGpio          string
	PowerActiveLow     bool
	PgoodGpio          string
	PgoodGpioActiveLow bool
}

// GpiosOnlySequencer is a PowerSequencerDevice backed entirely by GPIO
// lines: one line drives power on/off, and a single device-level line
// reports aggregate power-good. It never isolates a fault to a specific
// rail; see FindFault.
type GpiosOnlySequencer struct {
	cfg       GpiosOnlySequencerConfig
	svc       Services
	powerGpio Gpio
}

// NewGpiosOnlySequencer constructs a GpiosOnlySequencer. The power GPIO line
// is requested for output lazily, on first SetPowerState call.
func NewGpiosOnlySequencer(cfg GpiosOnlySequencerConfig, svc Services) *GpiosOnlySequencer {
	return &GpiosOnlySequencer{cfg: cfg, svc: svc}
}

// ID implements PowerSequencerDevice.
func (s *GpiosOnlySequencer) ID() string { return s.cfg.ID }

// Rails implements PowerSequencerDevice. A GPIOs-only sequencer carries no
// rails: it has no PMBus addressing, so there is nothing to isolate a fault
// to beyond the device itself.
func (s *GpiosOnlySequencer) Rails() []*Rail { return nil }

// SetPowerState implements PowerSequencerDevice.
func (s *GpiosOnlySequencer) SetPowerState(ctx context.Context, state PowerState) error {
	if s.cfg.PowerGpio == "" {
		return nil
	}
	want := state == PowerStateOn
	if s.cfg.PowerActiveLow {
		want = !want
	}
	value := 0
	if want {
		value = 1
	}
	if s.powerGpio == nil {
		line, err := s.svc.Gpio().RequestWrite(ctx, s.cfg.PowerGpio, value)
		if err != nil {
			return fmt.Errorf("%w: request %s for write: %w", ErrGpioOperationFailed, s.cfg.PowerGpio, err)
		}
		s.powerGpio = line
		return nil
	}
	if err := s.powerGpio.SetValue(ctx, value); err != nil {
		return fmt.Errorf("%w: drive %s: %w", ErrGpioOperationFailed, s.cfg.PowerGpio, err)
	}
	return nil
}

// ReadPowerGood implements PowerSequencerDevice by sampling the single
// device-level pgood GPIO. PowerGoodUndefined is reported if no pgood GPIO
// is configured or the read fails.
func (s *GpiosOnlySequencer) ReadPowerGood(ctx context.Context) PowerGood {
	if s.cfg.PgoodGpio == "" {
		return PowerGoodUndefined
	}
	line, err := s.svc.Gpio().RequestRead(ctx, s.cfg.PgoodGpio)
	if err != nil {
		return PowerGoodUndefined
	}
	v, err := line.GetValue(ctx)
	_ = line.Release(ctx)
	if err != nil {
		return PowerGoodUndefined
	}
	asserted := v != 0
	if s.cfg.PgoodGpioActiveLow {
		asserted = !asserted
	}
	if asserted {
		return PowerGoodTrue
	}
	return PowerGoodFalse
}

// FindFault implements PowerSequencerDevice. A GPIOs-only sequencer has no
// PMBus-addressable rails to isolate a fault to, so it unconditionally
// reports no fault: a caller observing pgood deasserted on this variant
// attributes the fault to the device as a whole (the chassis-level
// timeout/loss path), not to one of its rails.
func (s *GpiosOnlySequencer) FindFault(context.Context) (*RailFault, error) {
	return nil, nil
}

// Close implements PowerSequencerDevice.
func (s *GpiosOnlySequencer) Close(ctx context.Context) error {
	if s.powerGpio == nil {
		return nil
	}
	err := s.powerGpio.Release(ctx)
	s.powerGpio = nil
	if err != nil {
		return fmt.Errorf("%w: release %s: %w", ErrGpioOperationFailed, s.cfg.PowerGpio, err)
	}
	return nil
}

// BasicSequencerConfig configures a sequencer whose power control is GPIO
// but whose rail status is read over PMBus (STATUS_VOUT, READ_VOUT,
// VOUT_UV_FAULT_LIMIT), selecting each rail's PAGE before reading it.
type BasicSequencerConfig struct {
	ID             string
	PowerGpio      string
	PowerActiveLow bool
	PmbusDevice    string
	Rails          []RailConfig
}

// BasicSequencer drives power over GPIO and reads rail status from a single
// PMBus device, one page per rail.
type BasicSequencer struct {
	cfg       BasicSequencerConfig
	svc       Services
	rails     []*Rail
	powerGpio Gpio
	pmbus     PmbusDevice
}

// NewBasicSequencer constructs a BasicSequencer.
func NewBasicSequencer(cfg BasicSequencerConfig, svc Services) *BasicSequencer {
	rails := make([]*Rail, 0, len(cfg.Rails))
	for _, rc := range cfg.Rails {
		rails = append(rails, NewRail(rc))
	}
	return &BasicSequencer{cfg: cfg, svc: svc, rails: rails}
}

// ID implements PowerSequencerDevice.
func (s *BasicSequencer) ID() string { return s.cfg.ID }

// Rails implements PowerSequencerDevice.
func (s *BasicSequencer) Rails() []*Rail { return s.rails }

func (s *BasicSequencer) pmbusDevice(ctx context.Context) (PmbusDevice, error) {
	if s.pmbus != nil {
		return s.pmbus, nil
	}
	dev, err := s.svc.I2C().OpenPmbus(ctx, s.cfg.PmbusDevice)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrPmbusOperationFailed, s.cfg.PmbusDevice, err)
	}
	s.pmbus = dev
	return dev, nil
}

// SetPowerState implements PowerSequencerDevice.
func (s *BasicSequencer) SetPowerState(ctx context.Context, state PowerState) error {
	if s.cfg.PowerGpio == "" {
		return nil
	}
	want := state == PowerStateOn
	if s.cfg.PowerActiveLow {
		want = !want
	}
	value := 0
	if want {
		value = 1
	}
	if s.powerGpio == nil {
		line, err := s.svc.Gpio().RequestWrite(ctx, s.cfg.PowerGpio, value)
		if err != nil {
			return fmt.Errorf("%w: request %s for write: %w", ErrGpioOperationFailed, s.cfg.PowerGpio, err)
		}
		s.powerGpio = line
		return nil
	}
	if err := s.powerGpio.SetValue(ctx, value); err != nil {
		return fmt.Errorf("%w: drive %s: %w", ErrGpioOperationFailed, s.cfg.PowerGpio, err)
	}
	return nil
}

// ReadPowerGood implements PowerSequencerDevice, derived from STATUS_VOUT
// across all configured rails: any nonzero STATUS_VOUT is a fault.
func (s *BasicSequencer) ReadPowerGood(ctx context.Context) PowerGood {
	if len(s.rails) == 0 {
		return PowerGoodUndefined
	}
	dev, err := s.pmbusDevice(ctx)
	if err != nil {
		return PowerGoodUndefined
	}
	allGood := true
	for _, r := range s.rails {
		present, err := r.IsPresent(ctx, s.svc)
		if err != nil {
			return PowerGoodUndefined
		}
		if !present {
			continue
		}
		if err := dev.SetPage(ctx, r.config.Page); err != nil {
			return PowerGoodUndefined
		}
		sv, err := dev.StatusVout(ctx)
		if err != nil {
			return PowerGoodUndefined
		}
		if sv != 0 {
			allGood = false
		}
	}
	if allGood {
		return PowerGoodTrue
	}
	return PowerGoodFalse
}

// FindFault implements PowerSequencerDevice. Rails are checked in
// configured order: a rail that is not present never faults, matching
// Rail.IsPresent's role in has_pgood_fault; otherwise STATUS_VOUT nonzero
// first, then, if CheckVoutUVFault is set, READ_VOUT below
// VOUT_UV_FAULT_LIMIT.
func (s *BasicSequencer) FindFault(ctx context.Context) (*RailFault, error) {
	dev, err := s.pmbusDevice(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range s.rails {
		if present, err := r.IsPresent(ctx, s.svc); err != nil || !present {
			continue
		}
		if err := dev.SetPage(ctx, r.config.Page); err != nil {
			continue
		}
		sv, err := dev.StatusVout(ctx)
		if err != nil {
			continue
		}
		if sv != 0 {
			fault := &RailFault{
				SequencerID:       s.cfg.ID,
				RailID:            r.ID(),
				Reason:            "status_vout fault bits set",
				StatusVout:        sv,
				IsPowerSupplyRail: r.config.IsPowerSupplyRail,
			}
			if sw, err := dev.StatusWord(ctx); err == nil {
				fault.StatusWord = sw
			}
			return fault, nil
		}
		if !r.config.CheckVoutUVFault {
			continue
		}
		vout, err := dev.ReadVout(ctx)
		if err != nil {
			continue
		}
		limit, err := dev.VoutUVFaultLimit(ctx)
		if err != nil {
			continue
		}
		if vout < limit {
			return &RailFault{
				SequencerID:       s.cfg.ID,
				RailID:            r.ID(),
				Reason:            "read_vout below vout_uv_fault_limit",
				ReadVout:          vout,
				VoutUVLimit:       limit,
				IsPowerSupplyRail: r.config.IsPowerSupplyRail,
			}, nil
		}
	}
	return nil, nil
}

// Close implements PowerSequencerDevice.
func (s *BasicSequencer) Close(ctx context.Context) error {
	var errs []error
	if s.powerGpio != nil {
		if err := s.powerGpio.Release(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%w: release %s: %w", ErrGpioOperationFailed, s.cfg.PowerGpio, err))
		}
		s.powerGpio = nil
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}

// PmbusUcdSequencerConfig configures a sequencer backed by a UCD90xxx-style
// PMBus sequencer chip: power state is itself driven over PMBus (no
// separate power GPIO), with per-rail PAGE switching and MFR_STATUS
// capture.
type PmbusUcdSequencerConfig struct {
	ID          string
	PmbusDevice string
	OnVoutPage  uint8
	OnVoutVolts float64
	Rails       []RailConfig
}

// PmbusUcdSequencer drives and observes power state entirely through a
// paged PMBus sequencer chip.
type PmbusUcdSequencer struct {
	cfg   PmbusUcdSequencerConfig
	svc   Services
	rails []*Rail
	pmbus PmbusDevice
}

// NewPmbusUcdSequencer constructs a PmbusUcdSequencer.
func NewPmbusUcdSequencer(cfg PmbusUcdSequencerConfig, svc Services) *PmbusUcdSequencer {
	rails := make([]*Rail, 0, len(cfg.Rails))
	for _, rc := range cfg.Rails {
		rails = append(rails, NewRail(rc))
	}
	return &PmbusUcdSequencer{cfg: cfg, svc: svc, rails: rails}
}

// ID implements PowerSequencerDevice.
func (s *PmbusUcdSequencer) ID() string { return s.cfg.ID }

// Rails implements PowerSequencerDevice.
func (s *PmbusUcdSequencer) Rails() []*Rail { return s.rails }

func (s *PmbusUcdSequencer) pmbusDevice(ctx context.Context) (PmbusDevice, error) {
	if s.pmbus != nil {
		return s.pmbus, nil
	}
	dev, err := s.svc.I2C().OpenPmbus(ctx, s.cfg.PmbusDevice)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrPmbusOperationFailed, s.cfg.PmbusDevice, err)
	}
	s.pmbus = dev
	return dev, nil
}

// SetPowerState implements PowerSequencerDevice by writing VOUT_COMMAND on
// the configured on-page: a nonzero voltage to turn on, zero to turn off.
func (s *PmbusUcdSequencer) SetPowerState(ctx context.Context, state PowerState) error {
	dev, err := s.pmbusDevice(ctx)
	if err != nil {
		return err
	}
	if err := dev.SetPage(ctx, s.cfg.OnVoutPage); err != nil {
		return fmt.Errorf("%w: select page %d: %w", ErrPmbusOperationFailed, s.cfg.OnVoutPage, err)
	}
	volts := 0.0
	if state == PowerStateOn {
		volts = s.cfg.OnVoutVolts
	}
	if err := dev.WriteVoutCommand(ctx, volts); err != nil {
		return fmt.Errorf("%w: write vout_command: %w", ErrPmbusOperationFailed, err)
	}
	return nil
}

// gpioSnapshot lazily samples and memoizes named GPIO values for the
// lifetime of a single call. It stands in for the reference UCD90xxx
// device's bulk libgpiod snapshot (one transaction returning an array of
// line values indexed by offset): this facade addresses GPIO lines by name
// one at a time, so the snapshot instead caches each line's value the first
// time it's asked for, giving the same "one sample per line per call"
// behavior without a bulk-read primitive in Services.
type gpioSnapshot struct {
	svc    Services
	cached map[string]int
}

func newGpioSnapshot(svc Services) *gpioSnapshot {
	return &gpioSnapshot{svc: svc, cached: make(map[string]int)}
}

func (g *gpioSnapshot) value(ctx context.Context, name string) (int, error) {
	if v, ok := g.cached[name]; ok {
		return v, nil
	}
	line, err := g.svc.Gpio().RequestRead(ctx, name)
	if err != nil {
		return 0, err
	}
	v, err := line.GetValue(ctx)
	_ = line.Release(ctx)
	if err != nil {
		return 0, err
	}
	g.cached[name] = v
	return v, nil
}

// railPgoodGpioAsserted reports whether r's pgood GPIO reads asserted. A
// rail with no PgoodGpio configured is trivially asserted: this variant's
// rails may rely on STATUS_WORD alone.
func railPgoodGpioAsserted(ctx context.Context, snap *gpioSnapshot, r *Rail) (bool, int, error) {
	if r.config.PgoodGpio == "" {
		return true, 0, nil
	}
	v, err := snap.value(ctx, r.config.PgoodGpio)
	if err != nil {
		return false, 0, err
	}
	asserted := v != 0
	if r.config.PgoodGpioActiveLow {
		asserted = !asserted
	}
	return asserted, v, nil
}

// ReadPowerGood implements PowerSequencerDevice, derived from STATUS_WORD's
// VOUT fault bit and each rail's pgood GPIO (see railPgoodGpioAsserted)
// across all present rails; a rail that is not present is skipped.
func (s *PmbusUcdSequencer) ReadPowerGood(ctx context.Context) PowerGood {
	if len(s.rails) == 0 {
		return PowerGoodUndefined
	}
	dev, err := s.pmbusDevice(ctx)
	if err != nil {
		return PowerGoodUndefined
	}
	const statusWordVoutFault = 1 << 15
	snap := newGpioSnapshot(s.svc)
	allGood := true
	for _, r := range s.rails {
		present, err := r.IsPresent(ctx, s.svc)
		if err != nil {
			return PowerGoodUndefined
		}
		if !present {
			continue
		}
		asserted, _, err := railPgoodGpioAsserted(ctx, snap, r)
		if err != nil {
			return PowerGoodUndefined
		}
		if !asserted {
			allGood = false
			continue
		}
		if err := dev.SetPage(ctx, r.config.Page); err != nil {
			return PowerGoodUndefined
		}
		sw, err := dev.StatusWord(ctx)
		if err != nil {
			return PowerGoodUndefined
		}
		if sw&statusWordVoutFault != 0 {
			allGood = false
		}
	}
	if allGood {
		return PowerGoodTrue
	}
	return PowerGoodFalse
}

// FindFault implements PowerSequencerDevice: rails are checked in
// configured order. A rail that is not present never faults. For a present
// rail, its pgood GPIO (see railPgoodGpioAsserted) is sampled from a single
// per-call gpioSnapshot first, then STATUS_WORD's VOUT fault bit, then
// STATUS_VOUT, capturing MFR_STATUS alongside for diagnosis.
func (s *PmbusUcdSequencer) FindFault(ctx context.Context) (*RailFault, error) {
	const statusWordVoutFault = 1 << 15
	dev, err := s.pmbusDevice(ctx)
	if err != nil {
		return nil, err
	}
	snap := newGpioSnapshot(s.svc)
	for _, r := range s.rails {
		if present, err := r.IsPresent(ctx, s.svc); err != nil || !present {
			continue
		}

		if asserted, v, err := railPgoodGpioAsserted(ctx, snap, r); err == nil && !asserted {
			return &RailFault{
				SequencerID:       s.cfg.ID,
				RailID:            r.ID(),
				Reason:            "pgood gpio deasserted",
				PgoodGpioValue:    v,
				IsPowerSupplyRail: r.config.IsPowerSupplyRail,
			}, nil
		}

		if err := dev.SetPage(ctx, r.config.Page); err != nil {
			continue
		}
		sw, err := dev.StatusWord(ctx)
		if err != nil {
			continue
		}
		if sw&statusWordVoutFault == 0 {
			continue
		}
		fault := &RailFault{
			SequencerID:       s.cfg.ID,
			RailID:            r.ID(),
			Reason:            "status_word vout fault bit set",
			StatusWord:        sw,
			IsPowerSupplyRail: r.config.IsPowerSupplyRail,
		}
		if sv, err := dev.StatusVout(ctx); err == nil {
			fault.StatusVout = sv
		}
		if ms, err := dev.MfrStatus(ctx); err == nil {
			fault.MfrStatus = ms
		}
		return fault, nil
	}
	return nil, nil
}

// Close implements PowerSequencerDevice.
func (s *PmbusUcdSequencer) Close(context.Context) error { return nil }
