// SPDX-License-Identifier: BSD-3-Clause

package chassisd

import (
	"context"
	"errors"
	"testing"
	"time"
)

// constAction is a fixed-result Action stand-in for testing And/Or/Not/If
// composition without depending on a real leaf action's semantics.
type constAction struct {
	result bool
	err    error
	ran    bool
}

func (a *constAction) describe() string { return "const" }

func (a *constAction) Run(context.Context, *ActionContext) (bool, error) {
	a.ran = true
	return a.result, a.err
}

func TestAndActionShortCircuitsOnFalse(t *testing.T) {
	first := &constAction{result: false}
	second := &constAction{result: true}
	and := &AndAction{Children: []Action{first, second}}

	ok, err := and.Run(context.Background(), &ActionContext{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if ok {
		t.Fatal("AndAction should be false when a child is false")
	}
	if second.ran {
		t.Fatal("AndAction should short-circuit and not run the second child")
	}
}

func TestAndActionShortCircuitsOnError(t *testing.T) {
	errLeaf := errors.New("leaf failed")
	first := &constAction{err: errLeaf}
	second := &constAction{result: true}
	and := &AndAction{Children: []Action{first, second}}

	if _, err := and.Run(context.Background(), &ActionContext{}); !errors.Is(err, errLeaf) {
		t.Fatalf("Run err = %v, want %v", err, errLeaf)
	}
	if second.ran {
		t.Fatal("AndAction should not run subsequent children after an error")
	}
}

func TestOrActionShortCircuitsOnTrue(t *testing.T) {
	first := &constAction{result: true}
	second := &constAction{result: false}
	or := &OrAction{Children: []Action{first, second}}

	ok, err := or.Run(context.Background(), &ActionContext{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !ok {
		t.Fatal("OrAction should be true when a child is true")
	}
	if second.ran {
		t.Fatal("OrAction should short-circuit and not run the second child")
	}
}

func TestNotActionInverts(t *testing.T) {
	not := &NotAction{Child: &constAction{result: true}}
	ok, err := not.Run(context.Background(), &ActionContext{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if ok {
		t.Fatal("NotAction should invert a true child to false")
	}
}

func TestIfActionBranches(t *testing.T) {
	then := &constAction{result: true}
	els := &constAction{result: true}

	ifTrue := &IfAction{Cond: &constAction{result: true}, Then: then, Else: els}
	if _, err := ifTrue.Run(context.Background(), &ActionContext{}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !then.ran || els.ran {
		t.Fatal("IfAction with true Cond should run Then, not Else")
	}

	then2 := &constAction{result: true}
	els2 := &constAction{result: true}
	ifFalse := &IfAction{Cond: &constAction{result: false}, Then: then2, Else: els2}
	if _, err := ifFalse.Run(context.Background(), &ActionContext{}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if then2.ran || !els2.ran {
		t.Fatal("IfAction with false Cond should run Else, not Then")
	}
}

func TestIfActionNilElseSucceedsTrivially(t *testing.T) {
	ifAction := &IfAction{Cond: &constAction{result: false}, Then: &constAction{result: false}}
	ok, err := ifAction.Run(context.Background(), &ActionContext{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !ok {
		t.Fatal("IfAction with false Cond and nil Else should succeed trivially")
	}
}

func TestRunRuleActionNotFound(t *testing.T) {
	actx := &ActionContext{Rules: map[string][]Action{}}
	run := &RunRuleAction{RuleID: "missing"}
	if _, err := run.Run(context.Background(), actx); !errors.Is(err, ErrRuleNotFound) {
		t.Fatalf("Run err = %v, want ErrRuleNotFound", err)
	}
}

func TestRunRuleActionDepthExceeded(t *testing.T) {
	actx := &ActionContext{Rules: map[string][]Action{
		"self": {&RunRuleAction{RuleID: "self"}},
	}}
	run := &RunRuleAction{RuleID: "self"}

	_, err := run.Run(context.Background(), actx)
	if !errors.Is(err, ErrRuleDepthExceeded) {
		t.Fatalf("Run err = %v, want ErrRuleDepthExceeded", err)
	}
}

func TestRunRuleActionWithinDepthSucceeds(t *testing.T) {
	actx := &ActionContext{Rules: map[string][]Action{
		"leaf": {&constAction{result: true}},
	}}
	run := &RunRuleAction{RuleID: "leaf"}
	ok, err := run.Run(context.Background(), actx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !ok {
		t.Fatal("RunRuleAction should succeed when the rule's actions all succeed")
	}
}

func TestComparePresenceAction(t *testing.T) {
	svc := NewMockServices(time.Unix(0, 0))
	svc.SetPresence("fru0", false)
	actx := &ActionContext{Services: svc}

	cmp := &ComparePresenceAction{FRU: "fru0", Expected: true}
	ok, err := cmp.Run(context.Background(), actx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if ok {
		t.Fatal("ComparePresenceAction should be false when actual presence differs from Expected")
	}
}

func TestCompareVPDActionUnconfiguredSource(t *testing.T) {
	svc := NewMockServices(time.Unix(0, 0))
	actx := &ActionContext{Services: svc}
	cmp := &CompareVPDAction{FRU: "fru0", Keyword: "PN", Expected: []byte{1, 2, 3}}

	// MockServices has no VPD source; GetValue returns ErrServicesUnavailable.
	if _, err := cmp.Run(context.Background(), actx); err == nil {
		t.Fatal("expected an error from the unconfigured mock VPD source")
	}
}

func TestSetDeviceActionUnknownDevice(t *testing.T) {
	actx := &ActionContext{Devices: map[string]PmbusDevice{}}
	sd := &SetDeviceAction{DeviceID: "missing"}
	if _, err := sd.Run(context.Background(), actx); !errors.Is(err, ErrDeviceNotFound) {
		t.Fatalf("Run err = %v, want ErrDeviceNotFound", err)
	}
}

func TestPmbusWriteVoutCommandAction(t *testing.T) {
	svc := NewMockServices(time.Unix(0, 0))
	dev, err := svc.I2C().OpenPmbus(context.Background(), "dev0")
	if err != nil {
		t.Fatalf("OpenPmbus: %v", err)
	}
	actx := &ActionContext{Devices: map[string]PmbusDevice{"dev0": dev}}

	write := &PmbusWriteVoutCommandAction{DeviceID: "dev0", Page: 0, Volts: 12.0}
	ok, err := write.Run(context.Background(), actx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !ok {
		t.Fatal("PmbusWriteVoutCommandAction should succeed against a configured device")
	}
}

func TestPmbusReadSensorAction(t *testing.T) {
	svc := NewMockServices(time.Unix(0, 0))
	svc.SetPmbusReadVout("dev0", 11.5)
	dev, err := svc.I2C().OpenPmbus(context.Background(), "dev0")
	if err != nil {
		t.Fatalf("OpenPmbus: %v", err)
	}
	actx := &ActionContext{Devices: map[string]PmbusDevice{"dev0": dev}}

	below := &PmbusReadSensorAction{DeviceID: "dev0", MinVolts: 12.0}
	ok, err := below.Run(context.Background(), actx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if ok {
		t.Fatal("PmbusReadSensorAction should be false when reading is below MinVolts")
	}

	above := &PmbusReadSensorAction{DeviceID: "dev0", MinVolts: 11.0}
	ok, err = above.Run(context.Background(), actx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !ok {
		t.Fatal("PmbusReadSensorAction should be true when reading is above MinVolts")
	}
}

func TestLogPhaseFaultActionDeglitches(t *testing.T) {
	svc := NewMockServices(time.Unix(0, 0))
	actx := &ActionContext{Services: svc}

	first := &LogPhaseFaultAction{RailID: "rail0", Consecutive: 1}
	if _, err := first.Run(context.Background(), actx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(svc.Logs()) != 0 {
		t.Fatal("LogPhaseFaultAction should not log before reaching two consecutive detections")
	}

	second := &LogPhaseFaultAction{RailID: "rail0", Consecutive: 2}
	if _, err := second.Run(context.Background(), actx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	logs := svc.Logs()
	if len(logs) != 1 {
		t.Fatalf("len(Logs()) = %d, want 1 after the second consecutive detection", len(logs))
	}
	if logs[0].Identifier != LogIDPhaseFault {
		t.Fatalf("logged identifier = %q, want %q", logs[0].Identifier, LogIDPhaseFault)
	}
}
