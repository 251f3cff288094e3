// SPDX-License-Identifier: BSD-3-Clause

package chassisd

import (
	"context"
	"testing"
	"time"
)

func newTestChassis(t *testing.T, cfg ChassisConfig, seqs []PowerSequencerDevice, svc *MockServices) *Chassis {
	t.Helper()
	if cfg.MonitorOptions == (ChassisStatusMonitorOptions{}) {
		cfg.MonitorOptions = DefaultChassisStatusMonitorOptions()
	}
	return NewChassis(cfg, svc, seqs)
}

// newGpioPgoodSequencer builds a GpiosOnlySequencer whose single device-level
// pgood line is pgoodGpio. It carries no rails: FindFault always reports no
// fault, matching this variant's unconditional behavior.
func newGpioPgoodSequencer(svc Services, id, pgoodGpio string) *GpiosOnlySequencer {
	return NewGpiosOnlySequencer(GpiosOnlySequencerConfig{
		ID:        id,
		PgoodGpio: pgoodGpio,
	}, svc)
}

// newRailGpioSequencer builds a PmbusUcdSequencer whose rails carry
// per-rail pgood GPIOs, for tests exercising rail-level fault isolation.
func newRailGpioSequencer(svc Services, id string, rails ...RailConfig) *PmbusUcdSequencer {
	return NewPmbusUcdSequencer(PmbusUcdSequencerConfig{
		ID:          id,
		PmbusDevice: id,
		Rails:       rails,
	}, svc)
}

// Healthy-on: power-on requested, pgood asserted immediately, no fault ever
// logged.
func TestChassisHealthyOn(t *testing.T) {
	ctx := context.Background()
	cfg := ChassisConfig{ID: "chassis0", Enabled: true, PowerGoodTimeout: 5 * time.Second}
	svc := NewMockServices(time.Unix(0, 0))
	seq := newGpioPgoodSequencer(svc, "seq0", "seq0_pgood")
	c := newTestChassis(t, cfg, []PowerSequencerDevice{seq}, svc)

	svc.SetGpioValue("seq0_pgood", 1)

	if err := c.SetPowerState(ctx, PowerStateOn); err != nil {
		t.Fatalf("SetPowerState: %v", err)
	}
	if err := c.Monitor(ctx); err != nil {
		t.Fatalf("Monitor: %v", err)
	}
	if c.ObservedPowerGood() != PowerGoodTrue {
		t.Fatalf("observed = %v, want true", c.ObservedPowerGood())
	}
	if len(svc.Logs()) != 0 {
		t.Fatalf("expected no error-log entries, got %v", svc.Logs())
	}
	if got := c.LifecycleState(); got != lifecycleOn {
		t.Fatalf("LifecycleState() = %q, want %q", got, lifecycleOn)
	}
}

// Lifecycle: the observability FSM tracks off -> transitioning -> on as a
// power-on completes, and on -> transitioning -> off across a subsequent
// power-off.
func TestChassisLifecycleTransitions(t *testing.T) {
	ctx := context.Background()
	cfg := ChassisConfig{ID: "chassis0", Enabled: true, PowerGoodTimeout: 5 * time.Second}
	svc := NewMockServices(time.Unix(0, 0))
	seq := newGpioPgoodSequencer(svc, "seq0", "seq0_pgood")
	c := newTestChassis(t, cfg, []PowerSequencerDevice{seq}, svc)

	if got := c.LifecycleState(); got != lifecycleOff {
		t.Fatalf("initial LifecycleState() = %q, want %q", got, lifecycleOff)
	}

	if err := c.SetPowerState(ctx, PowerStateOn); err != nil {
		t.Fatalf("SetPowerState(on): %v", err)
	}
	if got := c.LifecycleState(); got != lifecycleTransitioning {
		t.Fatalf("LifecycleState() after power-on request = %q, want %q", got, lifecycleTransitioning)
	}

	svc.SetGpioValue("seq0_pgood", 1)
	if err := c.Monitor(ctx); err != nil {
		t.Fatalf("Monitor: %v", err)
	}
	if got := c.LifecycleState(); got != lifecycleOn {
		t.Fatalf("LifecycleState() after pgood asserted = %q, want %q", got, lifecycleOn)
	}

	if err := c.SetPowerState(ctx, PowerStateOff); err != nil {
		t.Fatalf("SetPowerState(off): %v", err)
	}
	if got := c.LifecycleState(); got != lifecycleTransitioning {
		t.Fatalf("LifecycleState() after power-off request = %q, want %q", got, lifecycleTransitioning)
	}
}

// Timeout: power-on requested, pgood never asserted, and no rail can be
// isolated as the specific cause (the sequencer carries no per-rail pgood
// wiring); after PowerGoodTimeout elapses a chassis-level timeout fault is
// logged exactly once.
func TestChassisPowerGoodTimeout(t *testing.T) {
	ctx := context.Background()
	cfg := ChassisConfig{ID: "chassis0", Enabled: true, PowerGoodTimeout: 2 * time.Second}
	svc := NewMockServices(time.Unix(0, 0))
	seq := NewGpiosOnlySequencer(GpiosOnlySequencerConfig{ID: "seq0"}, svc)
	c := newTestChassis(t, cfg, []PowerSequencerDevice{seq}, svc)

	if err := c.SetPowerState(ctx, PowerStateOn); err != nil {
		t.Fatalf("SetPowerState: %v", err)
	}
	if err := c.Monitor(ctx); err != nil {
		t.Fatalf("Monitor: %v", err)
	}
	if len(svc.Logs()) != 0 {
		t.Fatalf("fault logged before timeout elapsed: %v", svc.Logs())
	}

	svc.Advance(3 * time.Second)
	if err := c.Monitor(ctx); err != nil {
		t.Fatalf("Monitor: %v", err)
	}
	logs := svc.Logs()
	if len(logs) != 1 {
		t.Fatalf("expected exactly one error-log entry, got %d: %v", len(logs), logs)
	}
	if logs[0].Identifier != LogIDPowerGoodTimeout {
		t.Fatalf("identifier = %q, want %q", logs[0].Identifier, LogIDPowerGoodTimeout)
	}

	// One-shot: further ticks must not log again.
	svc.Advance(10 * time.Second)
	if err := c.Monitor(ctx); err != nil {
		t.Fatalf("Monitor: %v", err)
	}
	if len(svc.Logs()) != 1 {
		t.Fatalf("fault logged more than once: %v", svc.Logs())
	}
}

// Rail-isolation: two rails on one sequencer, second rail's pgood is
// deasserted; the logged fault must identify that rail specifically.
func TestChassisRailIsolation(t *testing.T) {
	ctx := context.Background()
	cfg := ChassisConfig{ID: "chassis0", Enabled: true, PowerGoodTimeout: 0}
	svc := NewMockServices(time.Unix(0, 0))
	seq := newRailGpioSequencer(svc, "seq0",
		RailConfig{ID: "rail.a", PgoodGpio: "a_pgood"},
		RailConfig{ID: "rail.b", PgoodGpio: "b_pgood"},
	)
	c := NewChassis(cfg, svc, []PowerSequencerDevice{seq})

	svc.SetGpioValue("a_pgood", 1)
	svc.SetGpioValue("b_pgood", 0)

	if err := c.SetPowerState(ctx, PowerStateOn); err != nil {
		t.Fatalf("SetPowerState: %v", err)
	}
	if err := c.Monitor(ctx); err != nil {
		t.Fatalf("Monitor: %v", err)
	}
	svc.Advance(time.Millisecond)
	if err := c.Monitor(ctx); err != nil {
		t.Fatalf("Monitor: %v", err)
	}

	logs := svc.Logs()
	if len(logs) != 1 {
		t.Fatalf("expected exactly one error-log entry, got %d: %v", len(logs), logs)
	}
	if logs[0].AdditionalData[DataKeyRailID] != "rail.b" {
		t.Fatalf("isolated rail = %q, want %q", logs[0].AdditionalData[DataKeyRailID], "rail.b")
	}
}

// Power-supply-attribution: the faulted rail is marked as a power-supply
// rail, so the error-log identifier used differs from a regular rail fault.
func TestChassisPowerSupplyAttribution(t *testing.T) {
	ctx := context.Background()
	cfg := ChassisConfig{ID: "chassis0", Enabled: true, PowerGoodTimeout: 0}
	svc := NewMockServices(time.Unix(0, 0))
	seq := newRailGpioSequencer(svc, "seq0",
		RailConfig{ID: "rail.ps", PgoodGpio: "ps_pgood", IsPowerSupplyRail: true},
	)
	c := NewChassis(cfg, svc, []PowerSequencerDevice{seq})

	svc.SetGpioValue("ps_pgood", 0)

	if err := c.SetPowerState(ctx, PowerStateOn); err != nil {
		t.Fatalf("SetPowerState: %v", err)
	}
	if err := c.Monitor(ctx); err != nil {
		t.Fatalf("Monitor: %v", err)
	}
	svc.Advance(time.Millisecond)
	if err := c.Monitor(ctx); err != nil {
		t.Fatalf("Monitor: %v", err)
	}

	logs := svc.Logs()
	if len(logs) != 1 {
		t.Fatalf("expected exactly one error-log entry, got %d: %v", len(logs), logs)
	}
	if logs[0].Identifier != LogIDPowerSupplyFault {
		t.Fatalf("identifier = %q, want %q", logs[0].Identifier, LogIDPowerSupplyFault)
	}
}

// Mixed-sequencer-pgood-with-in-transition: two sequencers, one reports
// good and one reports bad while a power-on transition is still in flight;
// the aggregate must hold the previous observed value rather than flip to
// false.
func TestChassisMixedSequencerPgoodInTransition(t *testing.T) {
	ctx := context.Background()
	cfg := ChassisConfig{ID: "chassis0", Enabled: true, PowerGoodTimeout: 5 * time.Second}
	svc := NewMockServices(time.Unix(0, 0))
	seqA := newGpioPgoodSequencer(svc, "seqA", "a_pgood")
	seqB := newGpioPgoodSequencer(svc, "seqB", "b_pgood")
	c := NewChassis(cfg, svc, []PowerSequencerDevice{seqA, seqB})

	svc.SetGpioValue("a_pgood", 0)
	svc.SetGpioValue("b_pgood", 0)
	if err := c.SetPowerState(ctx, PowerStateOn); err != nil {
		t.Fatalf("SetPowerState: %v", err)
	}

	previous := c.ObservedPowerGood()
	svc.SetGpioValue("a_pgood", 1)
	// b_pgood still 0: mixed result while in transition.
	if err := c.Monitor(ctx); err != nil {
		t.Fatalf("Monitor: %v", err)
	}
	if c.ObservedPowerGood() != previous {
		t.Fatalf("observed = %v, want unchanged %v while in transition", c.ObservedPowerGood(), previous)
	}
}

// Recovered-set_power_state: after a logged fault, pgood recovers and the
// chassis is powered off; a fresh power-on then clears the fault window so a
// subsequent sustained mismatch can be logged again.
func TestChassisRecoveredSetPowerState(t *testing.T) {
	ctx := context.Background()
	cfg := ChassisConfig{ID: "chassis0", Enabled: true, PowerGoodTimeout: 0}
	svc := NewMockServices(time.Unix(0, 0))
	seq := newGpioPgoodSequencer(svc, "seq0", "seq0_pgood")
	c := NewChassis(cfg, svc, []PowerSequencerDevice{seq})

	svc.SetGpioValue("seq0_pgood", 0)
	if err := c.SetPowerState(ctx, PowerStateOn); err != nil {
		t.Fatalf("SetPowerState: %v", err)
	}
	if err := c.Monitor(ctx); err != nil {
		t.Fatalf("Monitor: %v", err)
	}
	svc.Advance(time.Millisecond)
	if err := c.Monitor(ctx); err != nil {
		t.Fatalf("Monitor: %v", err)
	}
	if len(svc.Logs()) != 1 {
		t.Fatalf("expected one fault logged, got %v", svc.Logs())
	}

	// pgood recovers, so the chassis is observed on and accepts a power-off.
	svc.SetGpioValue("seq0_pgood", 1)
	if err := c.Monitor(ctx); err != nil {
		t.Fatalf("Monitor: %v", err)
	}
	if err := c.SetPowerState(ctx, PowerStateOff); err != nil {
		t.Fatalf("SetPowerState(off): %v", err)
	}
	svc.SetGpioValue("seq0_pgood", 0)
	if err := c.Monitor(ctx); err != nil {
		t.Fatalf("Monitor: %v", err)
	}
	if err := c.SetPowerState(ctx, PowerStateOn); err != nil {
		t.Fatalf("SetPowerState(on) again: %v", err)
	}
	if err := c.Monitor(ctx); err != nil {
		t.Fatalf("Monitor: %v", err)
	}
	svc.Advance(time.Millisecond)
	if err := c.Monitor(ctx); err != nil {
		t.Fatalf("Monitor: %v", err)
	}
	if len(svc.Logs()) != 2 {
		t.Fatalf("expected fault to be logged again after recovery cycle, got %v", svc.Logs())
	}
}

func TestChassisCanSetPowerStateChecks(t *testing.T) {
	ctx := context.Background()

	t.Run("not present", func(t *testing.T) {
		cfg := ChassisConfig{ID: "c0", PresenceFRU: "fru0", Enabled: true}
		svc := NewMockServices(time.Unix(0, 0))
		c := newTestChassis(t, cfg, nil, svc)
		svc.SetPresence("fru0", false)
		if err := c.SetPowerState(ctx, PowerStateOn); err == nil {
			t.Fatal("expected error for absent chassis")
		}
	})

	t.Run("not enabled", func(t *testing.T) {
		cfg := ChassisConfig{ID: "c0", Enabled: false}
		svc := NewMockServices(time.Unix(0, 0))
		c := newTestChassis(t, cfg, nil, svc)
		if err := c.SetPowerState(ctx, PowerStateOn); err == nil {
			t.Fatal("expected error for disabled chassis")
		}
	})

	t.Run("already in requested state", func(t *testing.T) {
		cfg := ChassisConfig{ID: "c0", Enabled: true}
		svc := NewMockServices(time.Unix(0, 0))
		c := newTestChassis(t, cfg, nil, svc)
		if err := c.SetPowerState(ctx, PowerStateOn); err != nil {
			t.Fatalf("first SetPowerState: %v", err)
		}
		// The already-at-state check compares against observed power-good,
		// not the desired state, so a Monitor tick is required to populate it.
		if err := c.Monitor(ctx); err != nil {
			t.Fatalf("Monitor: %v", err)
		}
		if err := c.SetPowerState(ctx, PowerStateOn); err == nil {
			t.Fatal("expected error for redundant request")
		}
	})

	t.Run("input power not good", func(t *testing.T) {
		cfg := ChassisConfig{ID: "c0", Enabled: true, InputPowerGoodGpio: "input_pgood"}
		svc := NewMockServices(time.Unix(0, 0))
		c := newTestChassis(t, cfg, nil, svc)
		svc.SetGpioValue("input_pgood", 0)
		if err := c.SetPowerState(ctx, PowerStateOn); err == nil {
			t.Fatal("expected error when input power not good")
		}
	})

	t.Run("empty sequencer list reports power good true", func(t *testing.T) {
		cfg := ChassisConfig{ID: "c0", Enabled: true}
		svc := NewMockServices(time.Unix(0, 0))
		c := newTestChassis(t, cfg, nil, svc)
		if err := c.SetPowerState(ctx, PowerStateOn); err != nil {
			t.Fatalf("SetPowerState: %v", err)
		}
		if err := c.Monitor(ctx); err != nil {
			t.Fatalf("Monitor: %v", err)
		}
		if c.ObservedPowerGood() != PowerGoodTrue {
			t.Fatalf("observed = %v, want true for empty sequencer list", c.ObservedPowerGood())
		}
	})
}

func TestPgoodFaultActive(t *testing.T) {
	var f PgoodFault
	if f.active() {
		t.Fatal("zero-value PgoodFault must not be active")
	}
	f.FirstSeenAt = time.Unix(1, 0)
	if !f.active() {
		t.Fatal("PgoodFault with FirstSeenAt set must be active")
	}
}
