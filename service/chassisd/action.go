// SPDX-License-Identifier: BSD-3-Clause

package chassisd

import (
	"context"
	"fmt"
)

// maxRuleDepth bounds run_rule recursion as a cycle-detection backstop.
const maxRuleDepth = 30

// ActionContext carries the state an Action tree evaluates against: the
// device map it may address, the rule set run_rule may invoke, and the
// Services facade for GPIO/PMBus/presence/VPD access.
type ActionContext struct {
	Services Services
	Devices  map[string]PmbusDevice
	Rules    map[string][]Action

	depth int
}

func (c *ActionContext) withDepth() (*ActionContext, error) {
	if c.depth+1 > maxRuleDepth {
		return nil, ErrRuleDepthExceeded
	}
	child := *c
	child.depth++
	return &child, nil
}

// Action is one node of the regulators Action tree. Run evaluates it
// against ctx and reports whether it succeeded, along with a boolean result
// for nodes that produce one (and/or/not/if-then-else/compare_*); nodes
// evaluated purely for effect (set_device/pmbus_write_vout_command/
// i2c_capture_bytes/log_phase_fault) report true on success.
type Action interface {
	Run(ctx context.Context, actx *ActionContext) (bool, error)
	describe() string
}

func wrapActionErr(a Action, err error) error {
	return fmt.Errorf("%w: action %s: %w", ErrActionFailed, a.describe(), err)
}

// AndAction evaluates each child in order, short-circuiting on the first
// false or erroring child.
type AndAction struct{ Children []Action }

func (a *AndAction) describe() string { return "and" }

// Run implements Action.
func (a *AndAction) Run(ctx context.Context, actx *ActionContext) (bool, error) {
	for _, c := range a.Children {
		ok, err := c.Run(ctx, actx)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// OrAction evaluates each child in order, short-circuiting on the first
// true or erroring child.
type OrAction struct{ Children []Action }

func (a *OrAction) describe() string { return "or" }

// Run implements Action.
func (a *OrAction) Run(ctx context.Context, actx *ActionContext) (bool, error) {
	for _, c := range a.Children {
		ok, err := c.Run(ctx, actx)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// NotAction inverts its child's boolean result.
type NotAction struct{ Child Action }

func (a *NotAction) describe() string { return "not" }

// Run implements Action.
func (a *NotAction) Run(ctx context.Context, actx *ActionContext) (bool, error) {
	ok, err := a.Child.Run(ctx, actx)
	if err != nil {
		return false, err
	}
	return !ok, nil
}

// IfAction evaluates Cond; if true it runs Then, else Else (if present), and
// returns that branch's result. A nil Else with a false Cond succeeds
// trivially.
type IfAction struct {
	Cond Action
	Then Action
	Else Action
}

func (a *IfAction) describe() string { return "if" }

// Run implements Action.
func (a *IfAction) Run(ctx context.Context, actx *ActionContext) (bool, error) {
	ok, err := a.Cond.Run(ctx, actx)
	if err != nil {
		return false, err
	}
	if ok {
		return a.Then.Run(ctx, actx)
	}
	if a.Else == nil {
		return true, nil
	}
	return a.Else.Run(ctx, actx)
}

// RunRuleAction invokes a named rule from ActionContext.Rules, running its
// actions as an implicit AndAction. Depth is tracked via ActionContext to
// detect rule recursion cycles.
type RunRuleAction struct{ RuleID string }

func (a *RunRuleAction) describe() string { return fmt.Sprintf("run_rule(%s)", a.RuleID) }

// Run implements Action.
func (a *RunRuleAction) Run(ctx context.Context, actx *ActionContext) (bool, error) {
	actions, found := actx.Rules[a.RuleID]
	if !found {
		return false, wrapActionErr(a, ErrRuleNotFound)
	}
	child, err := actx.withDepth()
	if err != nil {
		return false, wrapActionErr(a, err)
	}
	for _, step := range actions {
		ok, err := step.Run(ctx, child)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// SetDeviceAction selects the device subsequent sibling actions in the same
// rule address implicitly. In this implementation devices are addressed
// explicitly per-action, so SetDeviceAction only validates DeviceID exists.
type SetDeviceAction struct{ DeviceID string }

func (a *SetDeviceAction) describe() string { return fmt.Sprintf("set_device(%s)", a.DeviceID) }

// Run implements Action.
func (a *SetDeviceAction) Run(_ context.Context, actx *ActionContext) (bool, error) {
	if _, ok := actx.Devices[a.DeviceID]; !ok {
		return false, wrapActionErr(a, ErrDeviceNotFound)
	}
	return true, nil
}

// ComparePresenceAction compares a named FRU's presence against Expected.
type ComparePresenceAction struct {
	FRU      string
	Expected bool
}

func (a *ComparePresenceAction) describe() string { return fmt.Sprintf("compare_presence(%s)", a.FRU) }

// Run implements Action.
func (a *ComparePresenceAction) Run(ctx context.Context, actx *ActionContext) (bool, error) {
	present, err := actx.Services.Presence().IsPresent(ctx, a.FRU)
	if err != nil {
		return false, wrapActionErr(a, err)
	}
	return present == a.Expected, nil
}

// CompareVPDAction compares a named FRU's VPD keyword value against Expected.
type CompareVPDAction struct {
	FRU      string
	Keyword  string
	Expected []byte
}

func (a *CompareVPDAction) describe() string {
	return fmt.Sprintf("compare_vpd(%s,%s)", a.FRU, a.Keyword)
}

// Run implements Action.
func (a *CompareVPDAction) Run(ctx context.Context, actx *ActionContext) (bool, error) {
	actual, err := actx.Services.VPD().GetValue(ctx, a.FRU, a.Keyword)
	if err != nil {
		return false, wrapActionErr(a, err)
	}
	if len(actual) != len(a.Expected) {
		return false, nil
	}
	for i := range actual {
		if actual[i] != a.Expected[i] {
			return false, nil
		}
	}
	return true, nil
}

// CompareByteAction selects page Register on a PMBus device, reads its
// STATUS_WORD, and compares the low byte against Expected after masking both
// with Mask (0xFF compares the whole byte; a narrower mask gives compare_bit
// semantics). PmbusDevice offers no raw register read, so no register other
// than STATUS_WORD is read and its high byte is never compared.
type CompareByteAction struct {
	DeviceID string
	Register uint8
	Mask     uint8
	Expected uint8
}

func (a *CompareByteAction) describe() string {
	return fmt.Sprintf("compare_byte(%s,0x%02x)", a.DeviceID, a.Register)
}

// Run implements Action.
func (a *CompareByteAction) Run(ctx context.Context, actx *ActionContext) (bool, error) {
	dev, ok := actx.Devices[a.DeviceID]
	if !ok {
		return false, wrapActionErr(a, ErrDeviceNotFound)
	}
	if err := dev.SetPage(ctx, a.Register); err != nil {
		return false, wrapActionErr(a, err)
	}
	sw, err := dev.StatusWord(ctx)
	if err != nil {
		return false, wrapActionErr(a, err)
	}
	return uint8(sw)&a.Mask == a.Expected&a.Mask, nil
}

// PmbusWriteVoutCommandAction writes VOUT_COMMAND on a device's given page.
type PmbusWriteVoutCommandAction struct {
	DeviceID string
	Page     uint8
	Volts    float64
}

func (a *PmbusWriteVoutCommandAction) describe() string {
	return fmt.Sprintf("pmbus_write_vout_command(%s)", a.DeviceID)
}

// Run implements Action.
func (a *PmbusWriteVoutCommandAction) Run(ctx context.Context, actx *ActionContext) (bool, error) {
	dev, ok := actx.Devices[a.DeviceID]
	if !ok {
		return false, wrapActionErr(a, ErrDeviceNotFound)
	}
	if err := dev.SetPage(ctx, a.Page); err != nil {
		return false, wrapActionErr(a, err)
	}
	if err := dev.WriteVoutCommand(ctx, a.Volts); err != nil {
		return false, wrapActionErr(a, err)
	}
	return true, nil
}

// PmbusReadSensorAction reads a sensor value (READ_VOUT) from a device and
// compares it against a lower bound, used by rules that gate subsequent
// actions on a sensor threshold.
type PmbusReadSensorAction struct {
	DeviceID string
	Page     uint8
	MinVolts float64
}

func (a *PmbusReadSensorAction) describe() string {
	return fmt.Sprintf("pmbus_read_sensor(%s)", a.DeviceID)
}

// Run implements Action.
func (a *PmbusReadSensorAction) Run(ctx context.Context, actx *ActionContext) (bool, error) {
	dev, ok := actx.Devices[a.DeviceID]
	if !ok {
		return false, wrapActionErr(a, ErrDeviceNotFound)
	}
	if err := dev.SetPage(ctx, a.Page); err != nil {
		return false, wrapActionErr(a, err)
	}
	v, err := dev.ReadVout(ctx)
	if err != nil {
		return false, wrapActionErr(a, err)
	}
	return v >= a.MinVolts, nil
}

// I2CCaptureBytesAction selects Page on a device and stores the two bytes of
// its STATUS_WORD (low byte first) in Captured for diagnostic logging. No
// raw register or block read is made, since the Services facade exposes
// PMBus semantics rather than arbitrary I2C block transfers.
type I2CCaptureBytesAction struct {
	DeviceID string
	Page     uint8
	Captured []byte
}

func (a *I2CCaptureBytesAction) describe() string {
	return fmt.Sprintf("i2c_capture_bytes(%s)", a.DeviceID)
}

// Run implements Action.
func (a *I2CCaptureBytesAction) Run(ctx context.Context, actx *ActionContext) (bool, error) {
	dev, ok := actx.Devices[a.DeviceID]
	if !ok {
		return false, wrapActionErr(a, ErrDeviceNotFound)
	}
	if err := dev.SetPage(ctx, a.Page); err != nil {
		return false, wrapActionErr(a, err)
	}
	sw, err := dev.StatusWord(ctx)
	if err != nil {
		return false, wrapActionErr(a, err)
	}
	a.Captured = []byte{byte(sw), byte(sw >> 8)}
	return true, nil
}

// LogPhaseFaultAction records a phase-fault error-log entry for a rail,
// de-glitched by requiring two consecutive detections (Consecutive) before
// logging.
type LogPhaseFaultAction struct {
	ChassisID   string
	RailID      RailID
	MfrStatus   uint16
	Consecutive int
}

func (a *LogPhaseFaultAction) describe() string {
	return fmt.Sprintf("log_phase_fault(%s)", a.RailID)
}

// Run implements Action. It only logs once Consecutive reaches 2, matching
// the two-consecutive-detection de-glitching the original phase-fault
// monitor applies before raising an error-log entry.
func (a *LogPhaseFaultAction) Run(ctx context.Context, actx *ActionContext) (bool, error) {
	if a.Consecutive < 2 {
		return true, nil
	}
	err := actx.Services.ErrorLog().Log(ctx, LogIDPhaseFault, SeverityWarning, map[string]string{
		DataKeyChassisID: a.ChassisID,
		DataKeyRailID:    string(a.RailID),
		DataKeyMfrStatus: fmt.Sprintf("0x%04x", a.MfrStatus),
	})
	if err != nil {
		return false, wrapActionErr(a, err)
	}
	return true, nil
}
