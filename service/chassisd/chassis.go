// SPDX-License-Identifier: BSD-3-Clause

package chassisd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openbmc-go/chassisd/pkg/state"
)

// Chassis power lifecycle states and triggers tracked by the chassis's
// lifecycle FSM. This FSM is an observability aid layered over the
// desired/observed/inTransition fields of Chassis; it never gates whether a
// power state change or fault is accepted.
const (
	lifecycleOff          = "off"
	lifecycleTransitioning = "transitioning"
	lifecycleOn           = "on"

	lifecycleTriggerRequestOn  = "request-on"
	lifecycleTriggerRequestOff = "request-off"
	lifecycleTriggerPgoodGood  = "pgood-good"
	lifecycleTriggerPgoodBad   = "pgood-bad"
)

func newLifecycleFSM(chassisID string) *state.FSM {
	cfg := state.NewConfig(
		state.WithName("chassis-lifecycle-"+chassisID),
		state.WithDescription("tracks a chassis's power on/off/transitioning lifecycle"),
		state.WithInitialState(lifecycleOff),
		state.WithStates(lifecycleOff, lifecycleTransitioning, lifecycleOn),
		state.WithTransition(lifecycleOff, lifecycleTransitioning, lifecycleTriggerRequestOn),
		state.WithTransition(lifecycleTransitioning, lifecycleOff, lifecycleTriggerRequestOff),
		state.WithTransition(lifecycleTransitioning, lifecycleOn, lifecycleTriggerPgoodGood),
		state.WithTransition(lifecycleOn, lifecycleTransitioning, lifecycleTriggerRequestOff),
		state.WithTransition(lifecycleOn, lifecycleTransitioning, lifecycleTriggerPgoodBad),
	)
	fsm, err := state.New(cfg)
	if err != nil {
		// cfg is built from compile-time-constant states/transitions; this
		// can only fail if that literal configuration is itself invalid.
		panic(fmt.Sprintf("chassisd: invalid lifecycle FSM configuration: %v", err))
	}
	if err := fsm.Start(context.Background()); err != nil {
		panic(fmt.Sprintf("chassisd: failed to start lifecycle FSM: %v", err))
	}
	return fsm
}

// ChassisConfig is the static configuration of one chassis.
type ChassisConfig struct {
	// ID identifies the chassis within its System.
	ID string
	// PresenceFRU, if non-empty, is the FRU name Services.Presence() is
	// queried against before a power state change is accepted. Empty means
	// the chassis is always considered present.
	PresenceFRU string
	// Enabled gates whether SetPowerState is accepted at all.
	Enabled bool
	// InputPowerGoodGpio, if non-empty, must read asserted before a power-on
	// is accepted.
	InputPowerGoodGpio         string
	InputPowerGoodGpioActiveLow bool
	// PowerSuppliesGoodGpio, if non-empty, must read asserted before a
	// power-on is accepted.
	PowerSuppliesGoodGpio         string
	PowerSuppliesGoodGpioActiveLow bool
	// AvailableGpio, if non-empty, must read asserted for the chassis to be
	// considered available (is_available()); checked unconditionally,
	// regardless of the requested power state. Empty means always available.
	AvailableGpio         string
	AvailableGpioActiveLow bool
	// PowerGoodTimeout bounds how long after a power-on request the chassis
	// may remain without aggregate power-good before the fault is logged and
	// isolated. Zero means no grace period: a mismatch is eligible for
	// isolation on the very next Monitor tick.
	PowerGoodTimeout time.Duration
	// FaultLogDelay additionally delays fault isolation/logging by this
	// duration after PowerGoodTimeout elapses (or, for a post-on pgood loss,
	// from the moment the loss is first observed). Zero means no additional
	// delay.
	FaultLogDelay time.Duration
	// MonitorOptions configures which ChassisStatusMonitor attributes this
	// chassis tracks.
	MonitorOptions ChassisStatusMonitorOptions
}

// Chassis owns a desired power state, its observed aggregate power-good
// signal, and the PowerSequencerDevices that drive and report it. Chassis is
// not safe for concurrent use; see the chassisd package doc comment.
type Chassis struct {
	cfg        ChassisConfig
	svc        Services
	sequencers []PowerSequencerDevice
	status     *ChassisStatusMonitor

	desired      PowerState
	observed     PowerGood
	inTransition bool
	fault        PgoodFault

	opInProgress bool

	lifecycle *state.FSM
}

// NewChassis constructs a Chassis from its static configuration and the
// sequencers it owns, in the order fault isolation should walk them.
func NewChassis(cfg ChassisConfig, svc Services, sequencers []PowerSequencerDevice) *Chassis {
	return &Chassis{
		cfg:        cfg,
		svc:        svc,
		sequencers: sequencers,
		status:     NewChassisStatusMonitor(cfg.MonitorOptions),
		desired:    PowerStateUndefined,
		observed:   PowerGoodUndefined,
		lifecycle:  newLifecycleFSM(cfg.ID),
	}
}

// LifecycleState returns the chassis's current position in the
// off/transitioning/on lifecycle FSM.
func (c *Chassis) LifecycleState() string { return c.lifecycle.CurrentState() }

// fireLifecycle fires trigger on the lifecycle FSM, silently ignoring a
// trigger that is not valid from the current state: the FSM mirrors
// desired/observed/inTransition rather than gating them, so a trigger that
// doesn't apply (e.g. a second pgood-good tick while already on) is a no-op,
// not an error.
func (c *Chassis) fireLifecycle(ctx context.Context, trigger string) {
	if ok, _ := c.lifecycle.CanFire(trigger); !ok {
		return
	}
	_ = c.lifecycle.Fire(ctx, trigger, nil)
}

// ID returns the chassis's identifier.
func (c *Chassis) ID() string { return c.cfg.ID }

// Status returns the chassis's ChassisStatusMonitor.
func (c *Chassis) Status() *ChassisStatusMonitor { return c.status }

// DesiredPowerState returns the last requested power state.
func (c *Chassis) DesiredPowerState() PowerState { return c.desired }

// ObservedPowerGood returns the last-sampled aggregate power-good signal.
func (c *Chassis) ObservedPowerGood() PowerGood { return c.observed }

// refreshStatus synchronously (re-)samples every ChassisStatusMonitor
// attribute this chassis tracks. It stands in for the bus-signal callbacks
// (NameOwnerChanged/PropertiesChanged) the reference monitor is pushed by:
// Services exposes no subscribe primitive, so canSetPowerState and Monitor
// instead pull a fresh sample each time they run. A failed sample leaves
// whatever value was previously cached in place, which mirrors the
// reference monitor's "callback exceptions are swallowed" behavior.
func (c *Chassis) refreshStatus(ctx context.Context) {
	if present, err := c.queryPresent(ctx); err == nil {
		c.status.SetPresent(present)
	}
	if available, err := c.gpioAsserted(ctx, c.cfg.AvailableGpio, c.cfg.AvailableGpioActiveLow); err == nil {
		c.status.SetAvailable(available)
	}
	c.status.SetEnabled(c.cfg.Enabled)
	if inputGood, err := c.gpioAsserted(ctx, c.cfg.InputPowerGoodGpio, c.cfg.InputPowerGoodGpioActiveLow); err == nil {
		c.status.SetInputPowerGood(boolToPowerGood(inputGood))
	}
	if psGood, err := c.gpioAsserted(ctx, c.cfg.PowerSuppliesGoodGpio, c.cfg.PowerSuppliesGoodGpioActiveLow); err == nil {
		c.status.SetPowerSuppliesStatus(boolToPowerGood(psGood))
	}
}

// queryPresent reports whether the chassis is physically present: always
// true when no PresenceFRU is configured, otherwise the Presence service's
// answer for that FRU.
func (c *Chassis) queryPresent(ctx context.Context) (bool, error) {
	if c.cfg.PresenceFRU == "" {
		return true, nil
	}
	return c.svc.Presence().IsPresent(ctx, c.cfg.PresenceFRU)
}

func boolToPowerGood(ok bool) PowerGood {
	if ok {
		return PowerGoodTrue
	}
	return PowerGoodFalse
}

// IsEligibleForPowerState reports whether this chassis's current status
// (presence and availability, plus, for a power-on request, enablement,
// input power, and power supplies status) would allow state to be
// requested right now. It mirrors canSetPowerState's status checks but
// skips the reentrancy guard and the already-at-requested-state
// short-circuit, since System uses it to select candidate chassis for a
// system-wide request rather than to gate one already-chosen chassis.
func (c *Chassis) IsEligibleForPowerState(ctx context.Context, state PowerState) (bool, error) {
	c.refreshStatus(ctx)

	present, err := statusBool(c.status.Present())
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrChassisStatusUnknown, err)
	}
	if !present {
		return false, nil
	}

	if state == PowerStateOn {
		enabled, err := statusBool(c.status.Enabled())
		if err != nil {
			return false, fmt.Errorf("%w: %w", ErrChassisStatusUnknown, err)
		}
		if !enabled {
			return false, nil
		}
		inputGood, err := statusPowerGood(c.status.InputPowerGood())
		if err != nil {
			return false, fmt.Errorf("%w: %w", ErrChassisStatusUnknown, err)
		}
		if !inputGood {
			return false, nil
		}
	}

	available, err := statusBool(c.status.Available())
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrChassisStatusUnknown, err)
	}
	if !available {
		return false, nil
	}

	if state == PowerStateOn {
		psGood, err := statusPowerGood(c.status.PowerSuppliesStatus())
		if err != nil {
			return false, fmt.Errorf("%w: %w", ErrChassisStatusUnknown, err)
		}
		if !psGood {
			return false, nil
		}
	}

	return true, nil
}

// statusBool reads a boolean ChassisStatusMonitor attribute, treating a
// disabled attribute as trivially satisfied (true) the way an unconfigured
// GPIO is trivially asserted: tracking an attribute is opt-in, and opting
// out must not block power state changes.
func statusBool(v bool, err error) (bool, error) {
	if errors.Is(err, ErrAttributeDisabled) {
		return true, nil
	}
	return v, err
}

// statusPowerGood reads a PowerGood-valued ChassisStatusMonitor attribute
// under the same disabled-is-trivially-good convention as statusBool.
func statusPowerGood(g PowerGood, err error) (bool, error) {
	if errors.Is(err, ErrAttributeDisabled) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return g == PowerGoodTrue, nil
}

// canSetPowerState evaluates the chassis status decision table, returning
// the first failure encountered (first-false wins):
//
//  1. the chassis is already observed to be in the requested state
//  2. the chassis is not present
//  3. (power-on only) the chassis is not administratively enabled
//  4. (power-on only) input power is not good
//  5. the chassis is not available (checked unconditionally, not gated to
//     power-on: an unavailable chassis cannot safely be commanded off either)
//  6. (power-on only) the power supplies backing the chassis are not good
//
// A reentrant call while a transition is already in flight is rejected
// before any of the above are evaluated; that guard has no equivalent in
// the decision table above, since it protects this implementation's
// single-goroutine sequencing rather than reflecting chassis status.
func (c *Chassis) canSetPowerState(ctx context.Context, state PowerState) error {
	if c.opInProgress {
		return ErrOperationInProgress
	}

	c.refreshStatus(ctx)

	if observed := c.observed.AsPowerState(); observed == state && observed != PowerStateUndefined {
		return ErrAlreadyInRequestedState
	}

	present, err := statusBool(c.status.Present())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrChassisStatusUnknown, err)
	}
	if !present {
		return ErrChassisNotPresent
	}

	if state == PowerStateOn {
		enabled, err := statusBool(c.status.Enabled())
		if err != nil {
			return fmt.Errorf("%w: %w", ErrChassisStatusUnknown, err)
		}
		if !enabled {
			return ErrChassisNotEnabled
		}

		inputGood, err := statusPowerGood(c.status.InputPowerGood())
		if err != nil {
			return fmt.Errorf("%w: %w", ErrChassisStatusUnknown, err)
		}
		if !inputGood {
			return ErrInputPowerNotGood
		}
	}

	available, err := statusBool(c.status.Available())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrChassisStatusUnknown, err)
	}
	if !available {
		return ErrChassisNotAvailable
	}

	if state == PowerStateOn {
		psGood, err := statusPowerGood(c.status.PowerSuppliesStatus())
		if err != nil {
			return fmt.Errorf("%w: %w", ErrChassisStatusUnknown, err)
		}
		if !psGood {
			return ErrPowerSuppliesNotGood
		}
	}

	return nil
}

// gpioAsserted reads name (if non-empty) and reports whether it is
// asserted, honoring activeLow. An empty name is treated as trivially
// asserted.
func (c *Chassis) gpioAsserted(ctx context.Context, name string, activeLow bool) (bool, error) {
	if name == "" {
		return true, nil
	}
	line, err := c.svc.Gpio().RequestRead(ctx, name)
	if err != nil {
		return false, err
	}
	defer func() { _ = line.Release(ctx) }()
	v, err := line.GetValue(ctx)
	if err != nil {
		return false, err
	}
	asserted := v != 0
	if activeLow {
		asserted = !asserted
	}
	return asserted, nil
}

// SetPowerState evaluates canSetPowerState and, if it passes, drives every
// owned sequencer to state and records the new desired state. A failing
// sequencer is logged and does not stop the remaining ones; the last such
// failure is returned once every sequencer has been attempted. The fault
// window is reset so a previous fault does not immediately re-trigger
// isolation against the new desired state.
func (c *Chassis) SetPowerState(ctx context.Context, state PowerState) error {
	if err := c.canSetPowerState(ctx, state); err != nil {
		return err
	}
	c.opInProgress = true
	defer func() { c.opInProgress = false }()

	var lastErr error
	for _, seq := range c.sequencers {
		if err := seq.SetPowerState(ctx, state); err != nil {
			_ = c.svc.ErrorLog().Log(ctx, LogIDSetPowerStateFail, SeverityCritical, map[string]string{
				DataKeyChassisID:   c.cfg.ID,
				DataKeySequencerID: seq.ID(),
				DataKeyDesiredState: state.String(),
			})
			lastErr = fmt.Errorf("%w: sequencer %s: %w", ErrGpioOperationFailed, seq.ID(), err)
		}
	}
	c.desired = state
	c.inTransition = true
	c.fault = PgoodFault{}
	c.status.SetPowerState(state)
	if state == PowerStateOn {
		c.fireLifecycle(ctx, lifecycleTriggerRequestOn)
	} else {
		c.fireLifecycle(ctx, lifecycleTriggerRequestOff)
	}
	return lastErr
}

// updatePowerGood aggregates the per-sequencer power-good reads into a
// single PowerGood value:
//
//   - no sequencers: PowerGoodTrue (a chassis with nothing to sequence is
//     vacuously good)
//   - every sequencer reads true: PowerGoodTrue
//   - every sequencer reads false: PowerGoodFalse
//   - a mix of true/false while a transition is in flight: the previous
//     observed value is kept (a sequencer further down the chain may still
//     be catching up)
//   - a mix of true/false with no transition in flight: PowerGoodFalse
//   - every sequencer reads undefined (all reads failed): the previous
//     observed value is kept
func (c *Chassis) updatePowerGood(ctx context.Context) {
	if len(c.sequencers) == 0 {
		c.observed = PowerGoodTrue
		c.status.SetPowerGood(c.observed)
		return
	}

	sawTrue, sawFalse, sawDefined := false, false, false
	for _, seq := range c.sequencers {
		switch seq.ReadPowerGood(ctx) {
		case PowerGoodTrue:
			sawTrue, sawDefined = true, true
		case PowerGoodFalse:
			sawFalse, sawDefined = true, true
		}
	}

	switch {
	case !sawDefined:
		// keep previous
	case sawTrue && !sawFalse:
		c.observed = PowerGoodTrue
	case sawFalse && !sawTrue:
		c.observed = PowerGoodFalse
	case c.inTransition:
		// keep previous
	default:
		c.observed = PowerGoodFalse
	}
	c.status.SetPowerGood(c.observed)
}

// Monitor samples power-good, aggregates it, and checks for a sustained
// fault. Once a requested power-off is observed complete (power-good false),
// the lifecycle FSM moves from transitioning back to off. It is intended to
// be called on a fixed interval; see the chassisd package doc comment for
// the single-goroutine concurrency model this assumes.
func (c *Chassis) Monitor(ctx context.Context) error {
	c.refreshStatus(ctx)
	c.updatePowerGood(ctx)
	if c.desired == PowerStateOn && c.observed == PowerGoodTrue {
		c.inTransition = false
		c.fault = PgoodFault{}
		c.fireLifecycle(ctx, lifecycleTriggerPgoodGood)
	}
	if c.desired == PowerStateOff && c.observed == PowerGoodFalse {
		c.fireLifecycle(ctx, lifecycleTriggerRequestOff)
	}
	return c.checkForPgoodError(ctx)
}

// checkForPgoodError opens, tracks, and eventually logs a sustained
// mismatch between desired and observed power state. A mismatch is
// "sustained" once PowerGoodTimeout (for a power-on still transitioning) or
// immediately (for pgood lost after having been achieved) has elapsed,
// plus an additional FaultLogDelay grace period, at which point
// logPowerGoodFault is invoked exactly once per fault window.
func (c *Chassis) checkForPgoodError(ctx context.Context) error {
	if c.desired != PowerStateOn {
		c.fault = PgoodFault{}
		return nil
	}
	if c.observed == PowerGoodTrue {
		return nil
	}

	now := c.svc.Clock().Now()
	wasTimeout := c.inTransition

	if !c.fault.active() {
		c.fault = PgoodFault{FirstSeenAt: now, WasTimeout: wasTimeout}
		c.fireLifecycle(ctx, lifecycleTriggerPgoodBad)
		return nil
	}

	grace := c.cfg.FaultLogDelay
	if c.fault.WasTimeout {
		grace += c.cfg.PowerGoodTimeout
	}
	if now.Sub(c.fault.FirstSeenAt) < grace {
		return nil
	}
	if c.fault.WasLogged {
		return nil
	}

	c.fault.WasLogged = true
	return c.logPowerGoodFault(ctx)
}

// logPowerGoodFault walks the chassis's sequencers in configured order,
// asking each to isolate the first faulted rail. The first sequencer to
// report a fault wins the tie-break; a sequencer that errors while
// isolating is treated as reporting no fault and isolation proceeds to the
// next sequencer. If no sequencer isolates a specific rail, a
// chassis-level timeout/loss entry is logged instead.
func (c *Chassis) logPowerGoodFault(ctx context.Context) error {
	for _, seq := range c.sequencers {
		fault, err := seq.FindFault(ctx)
		if err != nil || fault == nil {
			continue
		}
		c.status.SetLastFault(fault, c.svc.Clock().Now())

		id := LogIDRailFault
		if fault.IsPowerSupplyRail {
			id = LogIDPowerSupplyFault
		}
		data := map[string]string{
			DataKeyChassisID:   c.cfg.ID,
			DataKeySequencerID: fault.SequencerID,
			DataKeyRailID:      string(fault.RailID),
			DataKeyWasTimeout:  boolString(c.fault.WasTimeout),
		}
		if fault.StatusWord != 0 {
			data[DataKeyStatusWord] = fmt.Sprintf("0x%04x", fault.StatusWord)
		}
		if fault.StatusVout != 0 {
			data[DataKeyStatusVout] = fmt.Sprintf("0x%02x", fault.StatusVout)
		}
		if fault.MfrStatus != 0 {
			data[DataKeyMfrStatus] = fmt.Sprintf("0x%04x", fault.MfrStatus)
		}
		return c.svc.ErrorLog().Log(ctx, id, SeverityCritical, data)
	}

	c.status.SetLastFault(nil, c.svc.Clock().Now())
	id := LogIDPowerGoodLost
	if c.fault.WasTimeout {
		id = LogIDPowerGoodTimeout
	}
	return c.svc.ErrorLog().Log(ctx, id, SeverityCritical, map[string]string{
		DataKeyChassisID:  c.cfg.ID,
		DataKeyWasTimeout: boolString(c.fault.WasTimeout),
	})
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// ClearErrorHistory resets the one-shot fault-logging state so a future
// sustained mismatch is eligible to be logged again.
func (c *Chassis) ClearErrorHistory() {
	c.fault = PgoodFault{}
}

// CloseDevices releases every owned sequencer's resources. It continues
// past a failing sequencer so every sequencer gets a chance to release,
// and returns the last error encountered, if any.
func (c *Chassis) CloseDevices(ctx context.Context) error {
	var last error
	for _, seq := range c.sequencers {
		if err := seq.Close(ctx); err != nil {
			last = err
		}
	}
	if last == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", errors.New("one or more sequencers failed to close"), last)
}
