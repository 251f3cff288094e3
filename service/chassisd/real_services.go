// SPDX-License-Identifier: BSD-3-Clause

//go:build linux
// +build linux

package chassisd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openbmc-go/chassisd/pkg/gpio"
	"github.com/openbmc-go/chassisd/pkg/i2c"
)

// RealServicesConfig maps chassis-local GPIO and PMBus device names onto
// the physical resources a production deployment exposes them through.
type RealServicesConfig struct {
	// GpioChip is the gpiocdev chip device (e.g. "/dev/gpiochip0") every
	// GPIO line name is requested against.
	GpioChip string
	// I2CBuses maps a PMBus device name to the I2C bus number and address
	// it is reachable on.
	I2CBuses map[string]I2CDeviceConfig
	// Logger receives operational trace messages. A nil Logger discards
	// them.
	Logger *slog.Logger
}

// I2CDeviceConfig identifies a PMBus device's I2C bus and address.
type I2CDeviceConfig struct {
	Bus     int
	Address uint16
}

// RealServices is the production Services implementation, backed by
// pkg/gpio and pkg/i2c.
type RealServices struct {
	cfg RealServicesConfig
}

// NewRealServices constructs a RealServices from cfg.
func NewRealServices(cfg RealServicesConfig) *RealServices {
	return &RealServices{cfg: cfg}
}

// Gpio implements Services.
func (s *RealServices) Gpio() GpioService { return realGpioService{s} }

// I2C implements Services.
func (s *RealServices) I2C() I2CService { return realI2CService{s} }

// ErrorLog implements Services.
func (s *RealServices) ErrorLog() ErrorLogService { return realErrorLogService{s} }

// Journal implements Services.
func (s *RealServices) Journal() JournalService { return realJournalService{s} }

// Presence implements Services.
func (s *RealServices) Presence() PresenceService { return realPresenceService{} }

// VPD implements Services.
func (s *RealServices) VPD() VPDService { return realVPDService{} }

// Clock implements Services.
func (s *RealServices) Clock() Clock { return RealClock{} }

func (s *RealServices) logger() *slog.Logger { return s.cfg.Logger }

type realGpioLine struct{ line *gpio.Line }

func (l realGpioLine) GetValue(context.Context) (int, error) { return l.line.GetValue() }

func (l realGpioLine) SetValue(_ context.Context, value int) error { return l.line.SetValue(value) }

func (l realGpioLine) Release(context.Context) error { return l.line.Release() }

type realGpioService struct{ s *RealServices }

func (g realGpioService) RequestRead(_ context.Context, name string) (Gpio, error) {
	line, err := gpio.RequestRead(g.s.cfg.GpioChip, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGpioOperationFailed, err)
	}
	return realGpioLine{line}, nil
}

func (g realGpioService) RequestWrite(_ context.Context, name string, initial int) (Gpio, error) {
	line, err := gpio.RequestWrite(g.s.cfg.GpioChip, name, initial)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGpioOperationFailed, err)
	}
	return realGpioLine{line}, nil
}

type realPmbusDevice struct{ conn *i2c.Conn }

func (d realPmbusDevice) SetPage(_ context.Context, page uint8) error {
	if err := d.conn.SetPage(page); err != nil {
		return fmt.Errorf("%w: %w", ErrPmbusOperationFailed, err)
	}
	return nil
}

func (d realPmbusDevice) StatusWord(context.Context) (uint16, error) {
	v, err := d.conn.ReadStatusWord()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrPmbusOperationFailed, err)
	}
	return v, nil
}

func (d realPmbusDevice) StatusVout(context.Context) (uint8, error) {
	v, err := d.conn.ReadStatusVout()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrPmbusOperationFailed, err)
	}
	return v, nil
}

func (d realPmbusDevice) ReadVout(context.Context) (float64, error) {
	v, err := d.conn.ReadVout()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrPmbusOperationFailed, err)
	}
	return v, nil
}

func (d realPmbusDevice) VoutUVFaultLimit(context.Context) (float64, error) {
	v, err := d.conn.ReadVoutUVFaultLimit()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrPmbusOperationFailed, err)
	}
	return v, nil
}

func (d realPmbusDevice) MfrStatus(context.Context) (uint16, error) {
	v, err := d.conn.ReadMfrStatus()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrPmbusOperationFailed, err)
	}
	return v, nil
}

func (d realPmbusDevice) WriteVoutCommand(_ context.Context, volts float64) error {
	if err := d.conn.WriteVout(volts); err != nil {
		return fmt.Errorf("%w: %w", ErrPmbusOperationFailed, err)
	}
	return nil
}

type realI2CService struct{ s *RealServices }

func (svc realI2CService) OpenPmbus(_ context.Context, name string) (PmbusDevice, error) {
	dc, ok := svc.s.cfg.I2CBuses[name]
	if !ok {
		return nil, fmt.Errorf("%w: no I2C mapping for %q", ErrDeviceNotFound, name)
	}
	conn, err := i2c.Open(i2c.NewConfig(
		i2c.WithBus(dc.Bus),
		i2c.WithAddress(dc.Address),
		i2c.WithProtocol(i2c.ProtocolPMBus),
	))
	if err != nil {
		return nil, fmt.Errorf("%w: open %q: %w", ErrPmbusOperationFailed, name, err)
	}
	return realPmbusDevice{conn}, nil
}

type realErrorLogService struct{ s *RealServices }

func (e realErrorLogService) Log(ctx context.Context, identifier string, severity Severity, additionalData map[string]string) error {
	logger := e.s.logger()
	if logger == nil {
		return nil
	}
	args := make([]any, 0, 2+2*len(additionalData))
	args = append(args, "identifier", identifier, "severity", severity)
	for k, v := range additionalData {
		args = append(args, k, v)
	}
	switch severity {
	case SeverityCritical:
		logger.ErrorContext(ctx, "chassis error-log entry", args...)
	case SeverityWarning:
		logger.WarnContext(ctx, "chassis error-log entry", args...)
	default:
		logger.InfoContext(ctx, "chassis error-log entry", args...)
	}
	return nil
}

type realJournalService struct{ s *RealServices }

func (j realJournalService) Info(ctx context.Context, message string) {
	if logger := j.s.logger(); logger != nil {
		logger.InfoContext(ctx, message)
	}
}

func (j realJournalService) Warn(ctx context.Context, message string) {
	if logger := j.s.logger(); logger != nil {
		logger.WarnContext(ctx, message)
	}
}

// realPresenceService has no FRU presence source wired in this build; every
// FRU reports present. A deployment with real presence detection (e.g. GPIO
// hotplug pins, IPMI FRU data) should provide its own PresenceService.
type realPresenceService struct{}

func (realPresenceService) IsPresent(context.Context, string) (bool, error) { return true, nil }

// realVPDService has no VPD source wired in this build.
type realVPDService struct{}

func (realVPDService) GetValue(_ context.Context, name, keyword string) ([]byte, error) {
	return nil, fmt.Errorf("%w: no VPD source configured for %s/%s", ErrServicesUnavailable, name, keyword)
}
