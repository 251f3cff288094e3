// SPDX-License-Identifier: BSD-3-Clause

package chassisd

import "time"

// ChassisStatusMonitorOptions selects which attributes a ChassisStatusMonitor
// tracks. A deployment with no PMBus-capable sequencers, for instance, can
// disable the PMBus-derived attributes rather than pay to poll them.
type ChassisStatusMonitorOptions struct {
	TrackPresent             bool
	TrackAvailable           bool
	TrackEnabled             bool
	TrackPowerState          bool
	TrackPowerGood           bool
	TrackInputPowerGood      bool
	TrackPowerSuppliesStatus bool
	TrackLastFault           bool
}

// DefaultChassisStatusMonitorOptions enables every tracked attribute.
func DefaultChassisStatusMonitorOptions() ChassisStatusMonitorOptions {
	return ChassisStatusMonitorOptions{
		TrackPresent:             true,
		TrackAvailable:           true,
		TrackEnabled:             true,
		TrackPowerState:          true,
		TrackPowerGood:           true,
		TrackInputPowerGood:      true,
		TrackPowerSuppliesStatus: true,
		TrackLastFault:           true,
	}
}

// ChassisStatusMonitor caches the last-observed value of each enabled
// chassis status attribute. Reading a disabled attribute returns
// ErrAttributeDisabled; reading an enabled attribute that has never been
// set returns ErrAttributeUnset.
//
// The cache is refreshed synchronously by Chassis.refreshStatus rather than
// by bus-signal callbacks: Services exposes no subscription primitive, so
// each attribute is re-sampled at the top of every canSetPowerState/Monitor
// call instead of being pushed by a NameOwnerChanged/PropertiesChanged
// listener. A failed sample leaves the previous cached value in place,
// mirroring the reference monitor's "callback exceptions are swallowed"
// behavior.
type ChassisStatusMonitor struct {
	opts ChassisStatusMonitorOptions

	presentSet bool
	present    bool

	availableSet bool
	available    bool

	enabledSet bool
	enabled    bool

	powerStateSet bool
	powerState    PowerState

	powerGoodSet bool
	powerGood    PowerGood

	inputPowerGoodSet bool
	inputPowerGood    PowerGood

	powerSuppliesStatusSet bool
	powerSuppliesStatus    PowerGood

	lastFaultSet bool
	lastFault    *RailFault
	lastFaultAt  time.Time
}

// NewChassisStatusMonitor constructs a ChassisStatusMonitor with the given
// per-attribute enablement.
func NewChassisStatusMonitor(opts ChassisStatusMonitorOptions) *ChassisStatusMonitor {
	return &ChassisStatusMonitor{opts: opts}
}

// SetPresent records whether the chassis is physically present, if tracking
// is enabled.
func (m *ChassisStatusMonitor) SetPresent(present bool) {
	if !m.opts.TrackPresent {
		return
	}
	m.present = present
	m.presentSet = true
}

// Present returns the last recorded presence.
func (m *ChassisStatusMonitor) Present() (bool, error) {
	if !m.opts.TrackPresent {
		return false, ErrAttributeDisabled
	}
	if !m.presentSet {
		return false, ErrAttributeUnset
	}
	return m.present, nil
}

// SetAvailable records whether the chassis's inventory state is available
// (e.g. its D-Bus object has been populated), if tracking is enabled.
func (m *ChassisStatusMonitor) SetAvailable(available bool) {
	if !m.opts.TrackAvailable {
		return
	}
	m.available = available
	m.availableSet = true
}

// Available returns the last recorded availability.
func (m *ChassisStatusMonitor) Available() (bool, error) {
	if !m.opts.TrackAvailable {
		return false, ErrAttributeDisabled
	}
	if !m.availableSet {
		return false, ErrAttributeUnset
	}
	return m.available, nil
}

// SetEnabled records whether power control is administratively enabled for
// the chassis, if tracking is enabled.
func (m *ChassisStatusMonitor) SetEnabled(enabled bool) {
	if !m.opts.TrackEnabled {
		return
	}
	m.enabled = enabled
	m.enabledSet = true
}

// Enabled returns the last recorded enablement.
func (m *ChassisStatusMonitor) Enabled() (bool, error) {
	if !m.opts.TrackEnabled {
		return false, ErrAttributeDisabled
	}
	if !m.enabledSet {
		return false, ErrAttributeUnset
	}
	return m.enabled, nil
}

// SetPowerState records the current desired/observed power state, if tracking
// is enabled.
func (m *ChassisStatusMonitor) SetPowerState(s PowerState) {
	if !m.opts.TrackPowerState {
		return
	}
	m.powerState = s
	m.powerStateSet = true
}

// PowerState returns the last recorded power state.
func (m *ChassisStatusMonitor) PowerState() (PowerState, error) {
	if !m.opts.TrackPowerState {
		return PowerStateUndefined, ErrAttributeDisabled
	}
	if !m.powerStateSet {
		return PowerStateUndefined, ErrAttributeUnset
	}
	return m.powerState, nil
}

// SetPowerGood records the current aggregate power-good signal, if tracking
// is enabled.
func (m *ChassisStatusMonitor) SetPowerGood(g PowerGood) {
	if !m.opts.TrackPowerGood {
		return
	}
	m.powerGood = g
	m.powerGoodSet = true
}

// PowerGood returns the last recorded aggregate power-good signal.
func (m *ChassisStatusMonitor) PowerGood() (PowerGood, error) {
	if !m.opts.TrackPowerGood {
		return PowerGoodUndefined, ErrAttributeDisabled
	}
	if !m.powerGoodSet {
		return PowerGoodUndefined, ErrAttributeUnset
	}
	return m.powerGood, nil
}

// SetInputPowerGood records the upstream input power status, if tracking is
// enabled.
func (m *ChassisStatusMonitor) SetInputPowerGood(g PowerGood) {
	if !m.opts.TrackInputPowerGood {
		return
	}
	m.inputPowerGood = g
	m.inputPowerGoodSet = true
}

// InputPowerGood returns the last recorded input power status.
func (m *ChassisStatusMonitor) InputPowerGood() (PowerGood, error) {
	if !m.opts.TrackInputPowerGood {
		return PowerGoodUndefined, ErrAttributeDisabled
	}
	if !m.inputPowerGoodSet {
		return PowerGoodUndefined, ErrAttributeUnset
	}
	return m.inputPowerGood, nil
}

// SetPowerSuppliesStatus records the status of the power supplies backing
// the chassis, if tracking is enabled.
func (m *ChassisStatusMonitor) SetPowerSuppliesStatus(g PowerGood) {
	if !m.opts.TrackPowerSuppliesStatus {
		return
	}
	m.powerSuppliesStatus = g
	m.powerSuppliesStatusSet = true
}

// PowerSuppliesStatus returns the last recorded power supplies status.
func (m *ChassisStatusMonitor) PowerSuppliesStatus() (PowerGood, error) {
	if !m.opts.TrackPowerSuppliesStatus {
		return PowerGoodUndefined, ErrAttributeDisabled
	}
	if !m.powerSuppliesStatusSet {
		return PowerGoodUndefined, ErrAttributeUnset
	}
	return m.powerSuppliesStatus, nil
}

// SetLastFault records the most recently isolated rail fault, if tracking is
// enabled. A nil fault clears the recorded value without clearing
// lastFaultSet, so LastFault distinguishes "isolation ran and found nothing"
// from "never ran".
func (m *ChassisStatusMonitor) SetLastFault(fault *RailFault, at time.Time) {
	if !m.opts.TrackLastFault {
		return
	}
	m.lastFault = fault
	m.lastFaultAt = at
	m.lastFaultSet = true
}

// LastFault returns the most recently isolated rail fault (nil if isolation
// last ran and found no faulted rail) and the time it was recorded.
func (m *ChassisStatusMonitor) LastFault() (*RailFault, time.Time, error) {
	if !m.opts.TrackLastFault {
		return nil, time.Time{}, ErrAttributeDisabled
	}
	if !m.lastFaultSet {
		return nil, time.Time{}, ErrAttributeUnset
	}
	return m.lastFault, m.lastFaultAt, nil
}

// IsPoweredOn reports whether the chassis is both commanded on and
// observed power-good, mirroring the reference monitor's derived attribute.
func (m *ChassisStatusMonitor) IsPoweredOn() (bool, error) {
	ps, err := m.PowerState()
	if err != nil {
		return false, err
	}
	pg, err := m.PowerGood()
	if err != nil {
		return false, err
	}
	return ps == PowerStateOn && pg == PowerGoodTrue, nil
}

// IsPoweredOff reports whether the chassis is both commanded off and
// observed power-not-good.
func (m *ChassisStatusMonitor) IsPoweredOff() (bool, error) {
	ps, err := m.PowerState()
	if err != nil {
		return false, err
	}
	pg, err := m.PowerGood()
	if err != nil {
		return false, err
	}
	return ps == PowerStateOff && pg == PowerGoodFalse, nil
}
