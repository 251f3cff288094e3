// SPDX-License-Identifier: BSD-3-Clause

package chassisd

import (
	"strings"
	"testing"
	"time"
)

func TestLoadConfigValid(t *testing.T) {
	const raw = `{
		"monitorIntervalMs": 500,
		"chassis": [
			{
				"id": "chassis0",
				"enabled": true,
				"powerGoodTimeoutMs": 1000,
				"faultLogDelayMs": 100,
				"sequencers": [
					{
						"id": "seq0",
						"kind": "gpiosOnly",
						"powerGpio": "chassis0_power",
						"pgoodGpio": "rail0_pgood"
					}
				]
			}
		]
	}`

	cfg, err := LoadConfig(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.MonitorInterval != 500*time.Millisecond {
		t.Fatalf("MonitorInterval = %v, want 500ms", cfg.MonitorInterval)
	}
	if len(cfg.Chassis) != 1 || cfg.Chassis[0].ID != "chassis0" {
		t.Fatalf("Chassis = %+v", cfg.Chassis)
	}

	svc := NewMockServices(time.Unix(0, 0))
	system, err := cfg.BuildSystem(svc)
	if err != nil {
		t.Fatalf("BuildSystem: %v", err)
	}
	if ids := system.ChassisIDs(); len(ids) != 1 || ids[0] != "chassis0" {
		t.Fatalf("ChassisIDs = %v", ids)
	}
}

func TestConfigValidateEmptyChassis(t *testing.T) {
	cfg := NewConfig(WithMonitorInterval(time.Second))
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for empty chassis list")
	}
}

func TestConfigValidateDuplicateID(t *testing.T) {
	cfg := NewConfig(
		WithMonitorInterval(time.Second),
		WithChassis(ChassisSpec{ID: "c0", Enabled: true}),
		WithChassis(ChassisSpec{ID: "c0", Enabled: true}),
	)
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for duplicate chassis id")
	}
}

func TestConfigValidateNonPositiveInterval(t *testing.T) {
	cfg := NewConfig(WithChassis(ChassisSpec{ID: "c0", Enabled: true}))
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-positive monitor interval")
	}
}

func TestConfigValidateEmptyChassisID(t *testing.T) {
	cfg := NewConfig(
		WithMonitorInterval(time.Second),
		WithChassis(ChassisSpec{ID: "", Enabled: true}),
	)
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for empty chassis id")
	}
}

func TestSequencerSpecUnknownKind(t *testing.T) {
	svc := NewMockServices(time.Unix(0, 0))
	cfg := NewConfig(
		WithMonitorInterval(time.Second),
		WithChassis(ChassisSpec{
			ID:      "c0",
			Enabled: true,
			Sequencers: []SequencerSpec{
				{ID: "seq0", Kind: "bogus"},
			},
		}),
	)
	if _, err := cfg.BuildSystem(svc); err == nil {
		t.Fatal("expected error for unknown sequencer kind")
	}
}

func TestNewConfigFunctionalOptions(t *testing.T) {
	cfg := NewConfig(
		WithMonitorInterval(2*time.Second),
		WithChassis(ChassisSpec{ID: "a", Enabled: true}),
		WithChassis(ChassisSpec{ID: "b", Enabled: true}),
	)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(cfg.Chassis) != 2 {
		t.Fatalf("Chassis = %+v, want 2 entries", cfg.Chassis)
	}
}
