// SPDX-License-Identifier: BSD-3-Clause

package chassisd

import (
	"context"
	"testing"
	"time"
)

func TestGpiosOnlySequencerReadPowerGood(t *testing.T) {
	ctx := context.Background()
	svc := NewMockServices(time.Unix(0, 0))
	seq := NewGpiosOnlySequencer(GpiosOnlySequencerConfig{
		ID:        "seq0",
		PgoodGpio: "seq0_pgood",
	}, svc)

	svc.SetGpioValue("seq0_pgood", 1)
	if got := seq.ReadPowerGood(ctx); got != PowerGoodTrue {
		t.Fatalf("ReadPowerGood = %v, want true", got)
	}

	svc.SetGpioValue("seq0_pgood", 0)
	if got := seq.ReadPowerGood(ctx); got != PowerGoodFalse {
		t.Fatalf("ReadPowerGood = %v, want false", got)
	}
}

func TestGpiosOnlySequencerActiveLow(t *testing.T) {
	ctx := context.Background()
	svc := NewMockServices(time.Unix(0, 0))
	seq := NewGpiosOnlySequencer(GpiosOnlySequencerConfig{
		ID:                 "seq0",
		PgoodGpio:          "seq0_pgood",
		PgoodGpioActiveLow: true,
	}, svc)

	svc.SetGpioValue("seq0_pgood", 0)
	if got := seq.ReadPowerGood(ctx); got != PowerGoodTrue {
		t.Fatalf("active-low ReadPowerGood = %v, want true when gpio reads 0", got)
	}
}

// A GPIOs-only sequencer carries no PMBus-addressable rails, so FindFault
// must unconditionally report no fault even with pgood deasserted: there is
// nothing for it to isolate to beyond the device itself.
func TestGpiosOnlySequencerFindFaultUnconditional(t *testing.T) {
	ctx := context.Background()
	svc := NewMockServices(time.Unix(0, 0))
	seq := NewGpiosOnlySequencer(GpiosOnlySequencerConfig{
		ID:        "seq0",
		PgoodGpio: "seq0_pgood",
	}, svc)

	svc.SetGpioValue("seq0_pgood", 0)

	fault, err := seq.FindFault(ctx)
	if err != nil {
		t.Fatalf("FindFault: %v", err)
	}
	if fault != nil {
		t.Fatalf("FindFault = %+v, want nil for a gpios-only sequencer", fault)
	}
	if rails := seq.Rails(); rails != nil {
		t.Fatalf("Rails() = %v, want nil for a gpios-only sequencer", rails)
	}
}

func TestBasicSequencerFindFaultStatusVout(t *testing.T) {
	ctx := context.Background()
	svc := NewMockServices(time.Unix(0, 0))
	seq := NewBasicSequencer(BasicSequencerConfig{
		ID:          "seq0",
		PmbusDevice: "dev0",
		Rails: []RailConfig{
			{ID: "vout1", Page: 0},
			{ID: "vout2", Page: 1},
		},
	}, svc)

	svc.SetPmbusStatusVout("dev0", 0x80)

	fault, err := seq.FindFault(ctx)
	if err != nil {
		t.Fatalf("FindFault: %v", err)
	}
	if fault == nil || fault.RailID != "vout1" {
		t.Fatalf("fault = %+v, want rail vout1 isolated", fault)
	}
}

func TestBasicSequencerVoutUVFault(t *testing.T) {
	ctx := context.Background()
	svc := NewMockServices(time.Unix(0, 0))
	seq := NewBasicSequencer(BasicSequencerConfig{
		ID:          "seq0",
		PmbusDevice: "dev0",
		Rails: []RailConfig{
			{ID: "vout1", Page: 0, CheckVoutUVFault: true},
		},
	}, svc)

	svc.SetPmbusReadVout("dev0", 0.7)
	svc.SetPmbusUVFaultLimit("dev0", 0.8)

	fault, err := seq.FindFault(ctx)
	if err != nil {
		t.Fatalf("FindFault: %v", err)
	}
	if fault == nil {
		t.Fatal("expected vout undervoltage fault")
	}
}

func TestPmbusUcdSequencerFindFault(t *testing.T) {
	ctx := context.Background()
	svc := NewMockServices(time.Unix(0, 0))
	seq := NewPmbusUcdSequencer(PmbusUcdSequencerConfig{
		ID:          "seq0",
		PmbusDevice: "dev0",
		OnVoutPage:  0,
		OnVoutVolts: 12.0,
		Rails: []RailConfig{
			{ID: "rail0", Page: 0},
		},
	}, svc)

	const statusWordVoutFault = 1 << 15
	svc.SetPmbusStatusWord("dev0", statusWordVoutFault)

	fault, err := seq.FindFault(ctx)
	if err != nil {
		t.Fatalf("FindFault: %v", err)
	}
	if fault == nil || fault.RailID != "rail0" {
		t.Fatalf("fault = %+v, want rail0 isolated", fault)
	}

	if got := seq.ReadPowerGood(ctx); got != PowerGoodFalse {
		t.Fatalf("ReadPowerGood = %v, want false", got)
	}
}

// A rail whose pgood GPIO is deasserted is isolated before any PMBus
// STATUS_WORD read is consulted.
func TestPmbusUcdSequencerFindFaultGpioDeasserted(t *testing.T) {
	ctx := context.Background()
	svc := NewMockServices(time.Unix(0, 0))
	seq := NewPmbusUcdSequencer(PmbusUcdSequencerConfig{
		ID:          "seq0",
		PmbusDevice: "dev0",
		Rails: []RailConfig{
			{ID: "rail0", Page: 0, PgoodGpio: "rail0_pgood"},
			{ID: "rail1", Page: 1, PgoodGpio: "rail1_pgood"},
		},
	}, svc)

	svc.SetGpioValue("rail0_pgood", 1)
	svc.SetGpioValue("rail1_pgood", 0)

	fault, err := seq.FindFault(ctx)
	if err != nil {
		t.Fatalf("FindFault: %v", err)
	}
	if fault == nil || fault.RailID != "rail1" {
		t.Fatalf("fault = %+v, want rail1 isolated via its pgood gpio", fault)
	}
	if fault.Reason != "pgood gpio deasserted" {
		t.Fatalf("Reason = %q, want pgood gpio deasserted", fault.Reason)
	}
}

// A rail that is not present is skipped entirely by both ReadPowerGood and
// FindFault, regardless of what its pgood gpio or PMBus status reports.
func TestPmbusUcdSequencerSkipsAbsentRail(t *testing.T) {
	ctx := context.Background()
	svc := NewMockServices(time.Unix(0, 0))
	seq := NewPmbusUcdSequencer(PmbusUcdSequencerConfig{
		ID:          "seq0",
		PmbusDevice: "dev0",
		Rails: []RailConfig{
			{ID: "rail0", Page: 0, PresenceFRU: "rail0_fru", PgoodGpio: "rail0_pgood"},
		},
	}, svc)

	svc.SetPresence("rail0_fru", false)
	svc.SetGpioValue("rail0_pgood", 0)

	fault, err := seq.FindFault(ctx)
	if err != nil {
		t.Fatalf("FindFault: %v", err)
	}
	if fault != nil {
		t.Fatalf("FindFault = %+v, want nil for an absent rail", fault)
	}
	if got := seq.ReadPowerGood(ctx); got != PowerGoodTrue {
		t.Fatalf("ReadPowerGood = %v, want true when the only rail is absent", got)
	}
}

// BasicSequencer also skips a rail that is not present, the way
// PmbusUcdSequencer does.
func TestBasicSequencerSkipsAbsentRail(t *testing.T) {
	ctx := context.Background()
	svc := NewMockServices(time.Unix(0, 0))
	seq := NewBasicSequencer(BasicSequencerConfig{
		ID:          "seq0",
		PmbusDevice: "dev0",
		Rails: []RailConfig{
			{ID: "vout1", Page: 0, PresenceFRU: "vout1_fru"},
		},
	}, svc)

	svc.SetPresence("vout1_fru", false)
	svc.SetPmbusStatusVout("dev0", 0x80)

	fault, err := seq.FindFault(ctx)
	if err != nil {
		t.Fatalf("FindFault: %v", err)
	}
	if fault != nil {
		t.Fatalf("FindFault = %+v, want nil for an absent rail", fault)
	}
	if got := seq.ReadPowerGood(ctx); got != PowerGoodTrue {
		t.Fatalf("ReadPowerGood = %v, want true when the only rail is absent", got)
	}
}

func TestPmbusUcdSequencerSetPowerState(t *testing.T) {
	ctx := context.Background()
	svc := NewMockServices(time.Unix(0, 0))
	seq := NewPmbusUcdSequencer(PmbusUcdSequencerConfig{
		ID:          "seq0",
		PmbusDevice: "dev0",
		OnVoutPage:  0,
		OnVoutVolts: 12.0,
	}, svc)

	if err := seq.SetPowerState(ctx, PowerStateOn); err != nil {
		t.Fatalf("SetPowerState(on): %v", err)
	}
	if err := seq.SetPowerState(ctx, PowerStateOff); err != nil {
		t.Fatalf("SetPowerState(off): %v", err)
	}
}
