// SPDX-License-Identifier: BSD-3-Clause

package chassisd

import (
	"context"
	"fmt"
)

// System aggregates the chassis a single BMC instance manages. It routes
// per-chassis operations by ID, broadcasts Monitor across all of them, and
// additionally exposes a system-wide SetPowerState that selects candidate
// chassis automatically rather than requiring a caller-supplied ID.
type System struct {
	chassis map[string]*Chassis
	order   []string

	initialized bool
	selected    map[string]struct{}

	desired  PowerState
	observed PowerGood
}

// NewSystem constructs a System owning the given chassis. Order is
// preserved for Monitor's broadcast.
func NewSystem(chassis ...*Chassis) *System {
	s := &System{
		chassis:  make(map[string]*Chassis, len(chassis)),
		desired:  PowerStateUndefined,
		observed: PowerGoodUndefined,
	}
	for _, c := range chassis {
		s.chassis[c.ID()] = c
		s.order = append(s.order, c.ID())
	}
	return s
}

// Chassis returns the chassis identified by id.
func (s *System) Chassis(id string) (*Chassis, error) {
	c, ok := s.chassis[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrChassisNotFound, id)
	}
	return c, nil
}

// ChassisIDs returns every chassis ID in configured order.
func (s *System) ChassisIDs() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// DesiredPowerState returns the system-wide desired power state, set from
// the aggregate observation the first time Monitor establishes a usable one.
// SetPowerState does not change it.
func (s *System) DesiredPowerState() PowerState { return s.desired }

// ObservedPowerGood returns the system-wide aggregate power-good signal:
// the logical AND of ObservedPowerGood across every selected chassis, or
// PowerGoodUndefined if no chassis is currently selected or any selected
// chassis itself reads undefined.
func (s *System) ObservedPowerGood() PowerGood { return s.observed }

// SetChassisPowerState routes a power state change to the named chassis,
// bypassing system-wide chassis selection. This is the entry point used by
// a caller that already knows which chassis it wants to act on.
func (s *System) SetChassisPowerState(ctx context.Context, chassisID string, state PowerState) error {
	c, err := s.Chassis(chassisID)
	if err != nil {
		return err
	}
	return c.SetPowerState(ctx, state)
}

// SetPowerState requests state for the system as a whole. If no chassis is
// currently selected, every chassis whose status is fully good for state is
// selected automatically (see setInitialSelectedChassisIfNeeded); the
// change is then attempted on every selected chassis. A chassis that fails
// is deselected so the next Monitor tick is free to reconsider it; the last
// failure encountered, if any, is returned after every selected chassis has
// been attempted.
func (s *System) SetPowerState(ctx context.Context, state PowerState) error {
	if !s.initialized {
		return ErrSystemNotInitialized
	}
	if err := s.setInitialSelectedChassisIfNeeded(ctx, state); err != nil {
		return err
	}

	var last error
	for _, id := range s.order {
		if _, ok := s.selected[id]; !ok {
			continue
		}
		if err := s.chassis[id].SetPowerState(ctx, state); err != nil {
			last = fmt.Errorf("chassis %s: %w", id, err)
			delete(s.selected, id)
			continue
		}
	}
	return last
}

// setInitialSelectedChassisIfNeeded populates s.selected, if empty, with
// every chassis currently eligible for state. It fails with
// ErrNoChassisEligible if none qualify, so a system with every chassis
// faulted or disabled cannot silently no-op a power state request.
func (s *System) setInitialSelectedChassisIfNeeded(ctx context.Context, state PowerState) error {
	if len(s.selected) > 0 {
		return nil
	}
	selected := make(map[string]struct{})
	for _, id := range s.order {
		ok, err := s.chassis[id].IsEligibleForPowerState(ctx, state)
		if err != nil || !ok {
			continue
		}
		selected[id] = struct{}{}
	}
	if len(selected) == 0 {
		return ErrNoChassisEligible
	}
	s.selected = selected
	return nil
}

// Monitor runs Monitor on every chassis in configured order, continuing
// past a failing chassis so every chassis gets monitored on each tick, then
// recomputes chassis selection and the system-wide aggregate. It returns
// the last error encountered, if any.
func (s *System) Monitor(ctx context.Context) error {
	var last error
	for _, id := range s.order {
		if err := s.chassis[id].Monitor(ctx); err != nil {
			last = fmt.Errorf("chassis %s: %w", id, err)
		}
	}
	s.recomputeAggregate(ctx)
	s.initialized = true
	return last
}

// recomputeAggregate rebuilds s.selected from every chassis currently
// eligible to be powered on (present, available, input power good), then
// derives the system-wide observed/desired power state from that set.
//
// Selection deliberately reuses the same "fully good" eligibility check as
// setInitialSelectedChassisIfNeeded, not a check of whether each chassis's
// observed power-good happens to be defined: a present-but-unavailable
// chassis can still read a defined (if stale) observed_power_good, and must
// not be selected on that basis alone. See DESIGN.md's system.go entry.
func (s *System) recomputeAggregate(ctx context.Context) {
	selected := make(map[string]struct{})
	for _, id := range s.order {
		ok, err := s.chassis[id].IsEligibleForPowerState(ctx, PowerStateOn)
		if err != nil || !ok {
			continue
		}
		selected[id] = struct{}{}
	}
	s.selected = selected

	if len(selected) == 0 {
		s.observed = PowerGoodUndefined
		return
	}
	allTrue := true
	for id := range selected {
		if s.chassis[id].ObservedPowerGood() != PowerGoodTrue {
			allTrue = false
			break
		}
	}
	if allTrue {
		s.observed = PowerGoodTrue
	} else {
		s.observed = PowerGoodFalse
	}
	if s.desired == PowerStateUndefined && s.observed != PowerGoodUndefined {
		s.desired = s.observed.AsPowerState()
	}
}

// CloseDevices closes every chassis's sequencers, continuing past a
// failing chassis, and returns the last error encountered, if any.
func (s *System) CloseDevices(ctx context.Context) error {
	var last error
	for _, id := range s.order {
		if err := s.chassis[id].CloseDevices(ctx); err != nil {
			last = fmt.Errorf("chassis %s: %w", id, err)
		}
	}
	return last
}
