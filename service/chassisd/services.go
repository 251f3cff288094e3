// SPDX-License-Identifier: BSD-3-Clause

package chassisd

import (
	"context"
	"time"
)

// Severity classifies an error-log entry.
type Severity int

const (
	// SeverityInformational marks an entry that is informational only.
	SeverityInformational Severity = iota
	// SeverityWarning marks a recoverable or expected fault condition.
	SeverityWarning
	// SeverityCritical marks a fault that prevents normal chassis operation.
	SeverityCritical
)

// Gpio is the abstract contract for a single requested GPIO line: request
// for read or write, sample or drive its value, and release it. Concrete
// implementations (pkg/gpio-backed, or an in-memory mock) are injected
// through Services.
type Gpio interface {
	// GetValue samples the current value of the line (0 or 1).
	GetValue(ctx context.Context) (int, error)
	// SetValue drives the line to the given value (0 or 1). Valid only for
	// lines requested for output.
	SetValue(ctx context.Context, value int) error
	// Release gives up ownership of the line. Safe to call more than once.
	Release(ctx context.Context) error
}

// GpioService requests GPIO lines by chassis-local name.
type GpioService interface {
	// RequestRead acquires name for reading.
	RequestRead(ctx context.Context, name string) (Gpio, error)
	// RequestWrite acquires name for writing, driving the given initial value.
	RequestWrite(ctx context.Context, name string, initial int) (Gpio, error)
}

// PmbusDevice is the abstract contract for a PMBus-capable power sequencer
// chip: page selection plus the small set of status/telemetry reads the
// fault-isolation algorithm needs.
type PmbusDevice interface {
	// SetPage selects the PMBus page (rail) subsequent commands address.
	SetPage(ctx context.Context, page uint8) error
	// StatusWord reads STATUS_WORD for the currently selected page.
	StatusWord(ctx context.Context) (uint16, error)
	// StatusVout reads STATUS_VOUT for the currently selected page.
	StatusVout(ctx context.Context) (uint8, error)
	// ReadVout reads READ_VOUT, in volts, for the currently selected page.
	ReadVout(ctx context.Context) (float64, error)
	// VoutUVFaultLimit reads VOUT_UV_FAULT_LIMIT, in volts, for the
	// currently selected page.
	VoutUVFaultLimit(ctx context.Context) (float64, error)
	// MfrStatus reads the manufacturer-specific MFR_STATUS register for the
	// currently selected page.
	MfrStatus(ctx context.Context) (uint16, error)
	// WriteVoutCommand writes VOUT_COMMAND, in volts, for the currently
	// selected page.
	WriteVoutCommand(ctx context.Context, volts float64) error
}

// I2CService opens PMBus device handles by chassis-local name.
type I2CService interface {
	// OpenPmbus opens the PMBus device identified by name.
	OpenPmbus(ctx context.Context, name string) (PmbusDevice, error)
}

// ErrorLogService persists a structured fault record.
type ErrorLogService interface {
	// Log records identifier at the given severity, with key/value
	// additional data for diagnosis.
	Log(ctx context.Context, identifier string, severity Severity, additionalData map[string]string) error
}

// JournalService emits a free-text operational trace message.
type JournalService interface {
	// Info logs an informational trace message.
	Info(ctx context.Context, message string)
	// Warn logs a warning trace message.
	Warn(ctx context.Context, message string)
}

// PresenceService answers whether a named FRU is physically present.
type PresenceService interface {
	// IsPresent reports whether the FRU identified by name is present.
	IsPresent(ctx context.Context, name string) (bool, error)
}

// VPDService reads vital product data keywords from a named FRU's EEPROM.
type VPDService interface {
	// GetValue returns the raw bytes of keyword on the FRU identified by name.
	GetValue(ctx context.Context, name, keyword string) ([]byte, error)
}

// Clock supplies the current time, injected so tests can control it.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// RealClock is a Clock backed by time.Now.
type RealClock struct{}

// Now implements Clock.
func (RealClock) Now() time.Time { return time.Now() }

// Services is the facade through which Chassis, PowerSequencerDevice, and
// the Action tree reach every external collaborator:
// GPIO, I2C/PMBus, the system journal, the error log, FRU presence, VPD,
// and the wall clock. Production code wires a concrete implementation
// backed by pkg/gpio, pkg/i2c, and pkg/log; tests wire NewMockServices.
type Services interface {
	Gpio() GpioService
	I2C() I2CService
	ErrorLog() ErrorLogService
	Journal() JournalService
	Presence() PresenceService
	VPD() VPDService
	Clock() Clock
}
