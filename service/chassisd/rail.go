// SPDX-License-Identifier: BSD-3-Clause

package chassisd

import "context"

// RailConfig describes one voltage rail belonging to a PowerSequencerDevice.
type RailConfig struct {
	// ID identifies the rail within its sequencer.
	ID RailID
	// PresenceFRU, if non-empty, is the FRU name Services.Presence() is
	// queried with to decide whether this rail is physically fitted. A rail
	// with no PresenceFRU is always treated as present.
	PresenceFRU string
	// PgoodGpio, if non-empty, is the chassis-local GPIO line name this rail's
	// power-good signal is wired to. Empty when the sequencer reports this
	// rail's status entirely over PMBus.
	PgoodGpio string
	// PgoodGpioActiveLow inverts the sampled GPIO value before it is treated
	// as asserted.
	PgoodGpioActiveLow bool
	// Page is the PMBus PAGE value addressing this rail on a PMBus-capable
	// sequencer. Ignored for GPIO-only sequencers.
	Page uint8
	// IsPowerSupplyRail marks a rail that represents bulk power-supply output
	// rather than a board regulator, changing the error-log identifier used
	// when this rail is the isolated fault.
	IsPowerSupplyRail bool
	// CheckVoutUVFault enables the READ_VOUT < VOUT_UV_FAULT_LIMIT check for
	// this rail in addition to STATUS_VOUT.
	CheckVoutUVFault bool
}

// Rail is one voltage rail's runtime state.
type Rail struct {
	config RailConfig
}

// NewRail constructs a Rail from its configuration.
func NewRail(cfg RailConfig) *Rail {
	return &Rail{config: cfg}
}

// ID returns the rail's identifier.
func (r *Rail) ID() RailID { return r.config.ID }

// Config returns the rail's static configuration.
func (r *Rail) Config() RailConfig { return r.config }

// IsPresent reports whether this rail is physically fitted. A rail with no
// PresenceFRU configured is always present; otherwise presence is asked of
// svc.Presence() for the configured FRU.
func (r *Rail) IsPresent(ctx context.Context, svc Services) (bool, error) {
	if r.config.PresenceFRU == "" {
		return true, nil
	}
	return svc.Presence().IsPresent(ctx, r.config.PresenceFRU)
}
