// SPDX-License-Identifier: BSD-3-Clause

package chassisd

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errTestSequencerClose = errors.New("fake sequencer close failure")

func newTestSystem(t *testing.T, svc *MockServices) *System {
	t.Helper()
	seqA := NewGpiosOnlySequencer(GpiosOnlySequencerConfig{
		ID:        "seqA",
		PowerGpio: "a_power",
		PgoodGpio: "a_pgood",
	}, svc)
	seqB := NewGpiosOnlySequencer(GpiosOnlySequencerConfig{
		ID:        "seqB",
		PowerGpio: "b_power",
		PgoodGpio: "b_pgood",
	}, svc)

	chassisA := NewChassis(ChassisConfig{
		ID:             "chassisA",
		Enabled:        true,
		MonitorOptions: DefaultChassisStatusMonitorOptions(),
	}, svc, []PowerSequencerDevice{seqA})
	chassisB := NewChassis(ChassisConfig{
		ID:             "chassisB",
		Enabled:        true,
		MonitorOptions: DefaultChassisStatusMonitorOptions(),
	}, svc, []PowerSequencerDevice{seqB})

	return NewSystem(chassisA, chassisB)
}

func TestSystemChassisIDsOrder(t *testing.T) {
	svc := NewMockServices(time.Unix(0, 0))
	system := newTestSystem(t, svc)
	ids := system.ChassisIDs()
	if len(ids) != 2 || ids[0] != "chassisA" || ids[1] != "chassisB" {
		t.Fatalf("ChassisIDs = %v, want [chassisA chassisB]", ids)
	}
}

func TestSystemChassisNotFound(t *testing.T) {
	svc := NewMockServices(time.Unix(0, 0))
	system := newTestSystem(t, svc)
	if _, err := system.Chassis("nope"); err == nil {
		t.Fatal("expected error for unknown chassis id")
	}
}

func TestSystemSetPowerStateRoutes(t *testing.T) {
	ctx := context.Background()
	svc := NewMockServices(time.Unix(0, 0))
	system := newTestSystem(t, svc)

	if err := system.SetChassisPowerState(ctx, "chassisA", PowerStateOn); err != nil {
		t.Fatalf("SetChassisPowerState(chassisA): %v", err)
	}

	a, err := system.Chassis("chassisA")
	if err != nil {
		t.Fatalf("Chassis(chassisA): %v", err)
	}
	if a.DesiredPowerState() != PowerStateOn {
		t.Fatalf("chassisA desired = %v, want on", a.DesiredPowerState())
	}

	b, err := system.Chassis("chassisB")
	if err != nil {
		t.Fatalf("Chassis(chassisB): %v", err)
	}
	if b.DesiredPowerState() == PowerStateOn {
		t.Fatal("chassisB should be unaffected by chassisA's SetPowerState")
	}
}

func TestSystemMonitorBroadcastsToAll(t *testing.T) {
	ctx := context.Background()
	svc := NewMockServices(time.Unix(0, 0))
	system := newTestSystem(t, svc)

	svc.SetGpioValue("a_pgood", 1)
	svc.SetGpioValue("b_pgood", 1)

	if err := system.Monitor(ctx); err != nil {
		t.Fatalf("Monitor: %v", err)
	}

	a, _ := system.Chassis("chassisA")
	b, _ := system.Chassis("chassisB")
	if a.ObservedPowerGood() != PowerGoodTrue {
		t.Fatalf("chassisA observed = %v, want true", a.ObservedPowerGood())
	}
	if b.ObservedPowerGood() != PowerGoodTrue {
		t.Fatalf("chassisB observed = %v, want true", b.ObservedPowerGood())
	}
}

// System-wide SetPowerState requires at least one Monitor tick before it can
// select candidate chassis: without one, no chassis status is known yet.
func TestSystemSetPowerStateRequiresInitialization(t *testing.T) {
	ctx := context.Background()
	svc := NewMockServices(time.Unix(0, 0))
	system := newTestSystem(t, svc)

	if err := system.SetPowerState(ctx, PowerStateOn); !errors.Is(err, ErrSystemNotInitialized) {
		t.Fatalf("SetPowerState before first Monitor = %v, want ErrSystemNotInitialized", err)
	}
}

// System-wide SetPowerState, with no chassis preselected, picks up every
// eligible chassis automatically.
func TestSystemSetPowerStateSelectsEligibleChassis(t *testing.T) {
	ctx := context.Background()
	svc := NewMockServices(time.Unix(0, 0))
	system := newTestSystem(t, svc)

	if err := system.Monitor(ctx); err != nil {
		t.Fatalf("Monitor: %v", err)
	}
	if err := system.SetPowerState(ctx, PowerStateOn); err != nil {
		t.Fatalf("SetPowerState: %v", err)
	}

	a, _ := system.Chassis("chassisA")
	b, _ := system.Chassis("chassisB")
	if a.DesiredPowerState() != PowerStateOn {
		t.Fatalf("chassisA desired = %v, want on", a.DesiredPowerState())
	}
	if b.DesiredPowerState() != PowerStateOn {
		t.Fatalf("chassisB desired = %v, want on", b.DesiredPowerState())
	}
}

// With no chassis eligible for the requested state (disabled here),
// system-wide SetPowerState fails outright instead of silently no-oping.
func TestSystemSetPowerStateNoChassisEligible(t *testing.T) {
	ctx := context.Background()
	svc := NewMockServices(time.Unix(0, 0))

	seqA := NewGpiosOnlySequencer(GpiosOnlySequencerConfig{ID: "seqA", PowerGpio: "a_power", PgoodGpio: "a_pgood"}, svc)
	chassisA := NewChassis(ChassisConfig{
		ID:             "chassisA",
		Enabled:        false,
		MonitorOptions: DefaultChassisStatusMonitorOptions(),
	}, svc, []PowerSequencerDevice{seqA})
	system := NewSystem(chassisA)

	if err := system.Monitor(ctx); err != nil {
		t.Fatalf("Monitor: %v", err)
	}
	if err := system.SetPowerState(ctx, PowerStateOn); !errors.Is(err, ErrNoChassisEligible) {
		t.Fatalf("SetPowerState = %v, want ErrNoChassisEligible", err)
	}
}

// The system-wide observed power-good signal is the logical AND across every
// selected chassis: one chassis reading bad pulls the aggregate to false.
func TestSystemObservedPowerGoodIsAndAggregate(t *testing.T) {
	ctx := context.Background()
	svc := NewMockServices(time.Unix(0, 0))
	system := newTestSystem(t, svc)

	svc.SetGpioValue("a_pgood", 1)
	svc.SetGpioValue("b_pgood", 0)

	if err := system.Monitor(ctx); err != nil {
		t.Fatalf("Monitor: %v", err)
	}
	if system.ObservedPowerGood() != PowerGoodFalse {
		t.Fatalf("ObservedPowerGood = %v, want false (AND across mixed chassis)", system.ObservedPowerGood())
	}
}

// fakeSequencer is a minimal PowerSequencerDevice stand-in for exercising
// System's continue-on-error broadcast behavior, independent of any real
// sequencer kind's Close semantics.
type fakeSequencer struct {
	id        string
	closeErr  error
	closed    bool
	monErr    error
	monitored bool
}

func (f *fakeSequencer) ID() string                                        { return f.id }
func (f *fakeSequencer) Rails() []*Rail                                    { return nil }
func (f *fakeSequencer) SetPowerState(context.Context, PowerState) error   { return nil }
func (f *fakeSequencer) ReadPowerGood(context.Context) PowerGood           { f.monitored = true; return PowerGoodTrue }
func (f *fakeSequencer) FindFault(context.Context) (*RailFault, error)     { return nil, f.monErr }
func (f *fakeSequencer) Close(context.Context) error                      { f.closed = true; return f.closeErr }

func TestSystemCloseDevicesContinuesPastFailure(t *testing.T) {
	ctx := context.Background()
	svc := NewMockServices(time.Unix(0, 0))

	failing := &fakeSequencer{id: "seqA", closeErr: errTestSequencerClose}
	ok := &fakeSequencer{id: "seqB"}

	chassisA := NewChassis(ChassisConfig{ID: "chassisA", Enabled: true, MonitorOptions: DefaultChassisStatusMonitorOptions()}, svc, []PowerSequencerDevice{failing})
	chassisB := NewChassis(ChassisConfig{ID: "chassisB", Enabled: true, MonitorOptions: DefaultChassisStatusMonitorOptions()}, svc, []PowerSequencerDevice{ok})
	system := NewSystem(chassisA, chassisB)

	err := system.CloseDevices(ctx)
	if err == nil {
		t.Fatal("expected CloseDevices to report chassisA's close failure")
	}
	if !failing.closed {
		t.Fatal("chassisA's sequencer should have been closed (and failed)")
	}
	if !ok.closed {
		t.Fatal("chassisB's sequencer should still be closed despite chassisA's failure")
	}
}
