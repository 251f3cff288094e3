// SPDX-License-Identifier: BSD-3-Clause

package chassisd

import "errors"

var (
	// ErrInvalidConfiguration indicates the chassis/system configuration is invalid.
	ErrInvalidConfiguration = errors.New("invalid chassis configuration")
	// ErrChassisNotFound indicates the requested chassis does not exist in the system.
	ErrChassisNotFound = errors.New("chassis not found")
	// ErrSequencerNotFound indicates the requested power sequencer does not exist.
	ErrSequencerNotFound = errors.New("power sequencer not found")
	// ErrRailNotFound indicates the requested rail does not exist on its sequencer.
	ErrRailNotFound = errors.New("rail not found")

	// ErrChassisNotPresent indicates the chassis is not physically present and
	// cannot accept a power state change.
	ErrChassisNotPresent = errors.New("chassis not present")
	// ErrChassisNotEnabled indicates power control for the chassis has been
	// administratively disabled.
	ErrChassisNotEnabled = errors.New("chassis not enabled")
	// ErrOperationInProgress indicates a power state transition is already
	// in flight for this chassis.
	ErrOperationInProgress = errors.New("power state operation already in progress")
	// ErrAlreadyInRequestedState indicates the requested power state equals
	// the chassis's observed power state.
	ErrAlreadyInRequestedState = errors.New("chassis already in requested power state")
	// ErrInputPowerNotGood indicates upstream input power is not good, so the
	// chassis cannot be powered on.
	ErrInputPowerNotGood = errors.New("input power not good")
	// ErrPowerSuppliesNotGood indicates the power supplies backing this
	// chassis are not in a good state.
	ErrPowerSuppliesNotGood = errors.New("power supplies not good")
	// ErrChassisNotAvailable indicates the chassis's status monitor reports
	// it unavailable (e.g. its inventory object is not yet populated),
	// independent of the requested power state.
	ErrChassisNotAvailable = errors.New("chassis not available")
	// ErrChassisStatusUnknown indicates a chassis status attribute required
	// to evaluate a power state request could not be determined.
	ErrChassisStatusUnknown = errors.New("error determining chassis status")

	// ErrNoChassisEligible indicates a system-wide power state request found
	// no chassis whose status was good enough to select automatically.
	ErrNoChassisEligible = errors.New("no chassis can be set to that state")
	// ErrSystemNotInitialized indicates a system-wide power state request
	// was made before the system had ever been monitored, so no chassis
	// status is available yet to select candidates from.
	ErrSystemNotInitialized = errors.New("system has not been monitored yet")

	// ErrPowerGoodTimeout indicates power-good was not achieved within the
	// configured timeout after a power-on request.
	ErrPowerGoodTimeout = errors.New("power good timeout")
	// ErrPowerGoodLost indicates power-good was lost after having been
	// achieved, outside of a requested power-off.
	ErrPowerGoodLost = errors.New("power good lost")

	// ErrGpioOperationFailed indicates a GPIO request/read/write/release
	// operation failed.
	ErrGpioOperationFailed = errors.New("GPIO operation failed")
	// ErrPmbusOperationFailed indicates a PMBus read/write operation failed.
	ErrPmbusOperationFailed = errors.New("PMBus operation failed")

	// ErrActionFailed indicates an Action tree node failed to evaluate.
	ErrActionFailed = errors.New("regulators action failed")
	// ErrRuleNotFound indicates a run_rule action referenced an undefined rule.
	ErrRuleNotFound = errors.New("rule not found")
	// ErrRuleDepthExceeded indicates run_rule recursion exceeded the maximum
	// allowed depth (cycle protection).
	ErrRuleDepthExceeded = errors.New("rule recursion depth exceeded")
	// ErrDeviceNotFound indicates an action referenced a device id that is
	// not present in the system's device map.
	ErrDeviceNotFound = errors.New("device not found")

	// ErrAttributeDisabled indicates a ChassisStatusMonitor attribute was
	// queried while its monitoring was disabled.
	ErrAttributeDisabled = errors.New("chassis status attribute monitoring disabled")
	// ErrAttributeUnset indicates an enabled ChassisStatusMonitor attribute
	// was queried before any value had been observed.
	ErrAttributeUnset = errors.New("chassis status attribute not yet set")

	// ErrServicesUnavailable indicates a required external collaborator
	// (bus, presence, VPD, ...) was not wired into the Services facade.
	ErrServicesUnavailable = errors.New("required service not available")
)
