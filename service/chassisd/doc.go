// SPDX-License-Identifier: BSD-3-Clause

// Package chassisd implements chassis power-state control and power-good
// fault isolation for BMC-managed systems.
//
// # Overview
//
// A Chassis owns a desired power state, an observed power-good signal, and
// zero or more PowerSequencerDevices. Setting the desired state drives a set
// of GPIO lines (or, for PMBus-capable sequencers, issues PMBus commands);
// the monitor loop polls the sequencers' pgood lines and, on a sustained
// mismatch between desired and observed state, walks each rail in sequencer
// order to find and log the first rail responsible for the fault.
//
// A System aggregates one or more Chassis and routes operations to the
// chassis identified by the caller, or to all chassis for broadcast
// operations such as Monitor.
//
// # Architecture
//
//	System
//	  └── Chassis (one per physical/logical chassis)
//	        ├── PowerSequencerDevice (one or more, in configured order)
//	        │     └── Rail (each rail belongs to exactly one sequencer)
//	        └── ChassisStatusMonitor (cached, selectively-enabled status)
//
// # Concurrency
//
// The core types in this package are not safe for concurrent use by more
// than one goroutine. The service wrapper in this package (Service, see
// service.go) serializes all calls into a System onto a single goroutine:
// NATS request handlers and the monitor ticker post work items onto one
// channel rather than calling into the System directly. This mirrors the
// single-threaded, cooperative-suspension model the state machine's timing
// logic (pgood timeout, fault log delay) assumes.
//
// # Configuration
//
// Config is built from a JSON document via LoadConfig, or programmatically via
// functional options (WithChassis, WithMonitorInterval, ...). See config.go.
//
// # Logging and telemetry
//
// The Services facade's ErrorLog.Log method is backed by log/slog; spans are
// opened with go.opentelemetry.io/otel around SetPowerState and Monitor, with
// no SDK/exporter wiring performed by this package -- that is left to the
// process that embeds it.
package chassisd
