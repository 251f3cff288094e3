// SPDX-License-Identifier: BSD-3-Clause

package chassisd

import "time"

// PowerState is the desired or observed chassis power state. The zero value
// is PowerStateUndefined, matching the spec's requirement that an unset
// observed state be distinguishable from a deliberately-set Off.
type PowerState int

const (
	// PowerStateUndefined means no desired or observed state has been
	// established yet.
	PowerStateUndefined PowerState = iota
	// PowerStateOff means the chassis is (or should be) unpowered.
	PowerStateOff
	// PowerStateOn means the chassis is (or should be) powered.
	PowerStateOn
)

// String implements fmt.Stringer.
func (s PowerState) String() string {
	switch s {
	case PowerStateOff:
		return "off"
	case PowerStateOn:
		return "on"
	default:
		return "undefined"
	}
}

// PowerGood is the three-valued observed power-good signal for a chassis or
// rail. PowerGoodUndefined distinguishes "never sampled" from "sampled
// false".
type PowerGood int

const (
	// PowerGoodUndefined means the power-good signal has not been sampled,
	// or its owning sequencer has disappeared.
	PowerGoodUndefined PowerGood = iota
	// PowerGoodFalse means the power-good signal was sampled and is not
	// asserted.
	PowerGoodFalse
	// PowerGoodTrue means the power-good signal was sampled and is
	// asserted.
	PowerGoodTrue
)

// AsPowerState maps an observed power-good reading onto the power state it
// implies: true means the chassis is observably on, false means off, and
// undefined carries no implication either way.
func (g PowerGood) AsPowerState() PowerState {
	switch g {
	case PowerGoodTrue:
		return PowerStateOn
	case PowerGoodFalse:
		return PowerStateOff
	default:
		return PowerStateUndefined
	}
}

// String implements fmt.Stringer.
func (g PowerGood) String() string {
	switch g {
	case PowerGoodFalse:
		return "false"
	case PowerGoodTrue:
		return "true"
	default:
		return "undefined"
	}
}

// RailID identifies a voltage rail within its owning PowerSequencerDevice.
type RailID string

// PgoodFault records the one-shot logging state for a sustained power-good
// mismatch. WasLogged ensures the fault is only logged once per occurrence;
// WasTimeout distinguishes "the pgood timeout elapsed" from "pgood was lost
// after having been achieved". FirstSeenAt anchors the fault-log-delay and
// pgood-timeout windows.
type PgoodFault struct {
	FirstSeenAt time.Time
	WasTimeout  bool
	WasLogged   bool
}

// active reports whether a fault window is currently open.
func (f PgoodFault) active() bool {
	return !f.FirstSeenAt.IsZero()
}
