// SPDX-License-Identifier: BSD-3-Clause

package chassisd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/openbmc-go/chassisd/pkg/log"
)

// request to set a chassis's power state, sent to the service goroutine.
type setPowerStateRequest struct {
	chassisID string
	state     PowerState
	done      chan error
}

// request to set the system-wide power state, sent to the service goroutine.
type setSystemPowerStateRequest struct {
	state PowerState
	done  chan error
}

// ServiceOption configures a Service.
type ServiceOption func(*serviceConfig)

type serviceConfig struct {
	name string
}

// WithServiceName overrides the service's NATS-visible name.
func WithServiceName(name string) ServiceOption {
	return func(c *serviceConfig) { c.name = name }
}

// Service wraps a System as a service.Service: it owns the single goroutine
// that calls into System/Chassis, exposes NATS micro endpoints to set and
// read power state, and drives Monitor on a fixed interval.
type Service struct {
	cfg    serviceConfig
	config *Config
	svc    Services

	system *System
	logger *slog.Logger
	tracer trace.Tracer
	meter  metric.Meter

	requests       chan setPowerStateRequest
	systemRequests chan setSystemPowerStateRequest

	operationsTotal  metric.Int64Counter
	operationFailures metric.Int64Counter
	monitorDuration  metric.Float64Histogram
}

// New constructs a Service from a validated Config and a Services facade.
// The System is built lazily, on Run, so that a fresh set of sequencer
// handles is acquired on every start.
func New(config *Config, svc Services, opts ...ServiceOption) (*Service, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	cfg := serviceConfig{name: "chassisd"}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Service{
		cfg:            cfg,
		config:         config,
		svc:            svc,
		requests:       make(chan setPowerStateRequest),
		systemRequests: make(chan setSystemPowerStateRequest),
	}, nil
}

// Name implements service.Service.
func (s *Service) Name() string { return s.cfg.name }

// Run implements service.Service. It builds the System, registers NATS
// micro endpoints, and serializes all System/Chassis access onto this
// goroutine: endpoint handlers and the monitor ticker post work items onto
// s.requests/an internal ticker channel rather than calling the System
// directly from another goroutine.
func (s *Service) Run(ctx context.Context, ipcConn nats.InProcessConnProvider) error {
	s.tracer = otel.Tracer(s.cfg.name)
	s.meter = otel.Meter(s.cfg.name)
	s.logger = log.GetGlobalLogger().With("service", s.cfg.name)

	ctx, span := s.tracer.Start(ctx, "chassisd.Run")
	defer span.End()

	if err := s.initializeMetrics(); err != nil {
		return fmt.Errorf("%w: initialize metrics: %w", ErrInvalidConfiguration, err)
	}

	system, err := s.config.BuildSystem(s.svc)
	if err != nil {
		return fmt.Errorf("%w: build system: %w", ErrInvalidConfiguration, err)
	}
	s.system = system
	defer func() {
		closeCtx := context.WithoutCancel(ctx)
		if err := s.system.CloseDevices(closeCtx); err != nil {
			s.logger.WarnContext(closeCtx, "failed to close one or more sequencers", "error", err)
		}
	}()

	nc, err := nats.Connect("", nats.InProcessServer(ipcConn))
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	defer nc.Drain() //nolint:errcheck

	microService, err := micro.AddService(nc, micro.Config{
		Name:        s.cfg.name,
		Description: "chassis power-state control and power-good fault isolation",
		Version:     "0.1.0",
	})
	if err != nil {
		return fmt.Errorf("failed to register micro service: %w", err)
	}
	defer microService.Stop() //nolint:errcheck

	group := microService.AddGroup("chassis")
	if err := group.AddEndpoint("set-power-state", micro.HandlerFunc(s.handleSetPowerState(ctx))); err != nil {
		return fmt.Errorf("failed to register set-power-state endpoint: %w", err)
	}
	if err := group.AddEndpoint("get-power-state", micro.HandlerFunc(s.handleGetPowerState(ctx))); err != nil {
		return fmt.Errorf("failed to register get-power-state endpoint: %w", err)
	}

	systemGroup := microService.AddGroup("system")
	if err := systemGroup.AddEndpoint("power.set", micro.HandlerFunc(s.handleSetSystemPowerState(ctx))); err != nil {
		return fmt.Errorf("failed to register system.power.set endpoint: %w", err)
	}
	if err := systemGroup.AddEndpoint("power.get", micro.HandlerFunc(s.handleGetSystemPowerState(ctx))); err != nil {
		return fmt.Errorf("failed to register system.power.get endpoint: %w", err)
	}

	ticker := time.NewTicker(s.config.MonitorInterval)
	defer ticker.Stop()

	s.logger.InfoContext(ctx, "chassisd started", "chassis_count", len(s.system.ChassisIDs()))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runMonitor(ctx)
		case req := <-s.requests:
			req.done <- s.runSetPowerState(ctx, req.chassisID, req.state)
		case req := <-s.systemRequests:
			req.done <- s.runSetSystemPowerState(ctx, req.state)
		}
	}
}

func (s *Service) initializeMetrics() error {
	var err error
	s.operationsTotal, err = s.meter.Int64Counter("chassisd.operations_total",
		metric.WithDescription("total number of power state operations attempted"))
	if err != nil {
		return err
	}
	s.operationFailures, err = s.meter.Int64Counter("chassisd.operation_failures_total",
		metric.WithDescription("total number of power state operations that failed"))
	if err != nil {
		return err
	}
	s.monitorDuration, err = s.meter.Float64Histogram("chassisd.monitor_duration_seconds",
		metric.WithDescription("duration of each Monitor sweep"), metric.WithUnit("s"))
	return err
}

func (s *Service) runMonitor(ctx context.Context) {
	ctx, span := s.tracer.Start(ctx, "chassisd.Monitor")
	defer span.End()
	start := time.Now()
	if err := s.system.Monitor(ctx); err != nil {
		s.logger.WarnContext(ctx, "monitor sweep reported an error", "error", err)
	}
	s.monitorDuration.Record(ctx, time.Since(start).Seconds())
}

func (s *Service) runSetPowerState(ctx context.Context, chassisID string, state PowerState) error {
	ctx, span := s.tracer.Start(ctx, "chassisd.SetPowerState")
	defer span.End()
	span.SetAttributes(attribute.String("chassis_id", chassisID), attribute.String("state", state.String()))

	s.operationsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("chassis_id", chassisID)))
	err := s.system.SetChassisPowerState(ctx, chassisID, state)
	if err != nil {
		s.operationFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("chassis_id", chassisID)))
		s.logger.ErrorContext(ctx, "set power state failed", "chassis_id", chassisID, "state", state.String(), "error", err)
	}
	return err
}

func (s *Service) runSetSystemPowerState(ctx context.Context, state PowerState) error {
	ctx, span := s.tracer.Start(ctx, "chassisd.System.SetPowerState")
	defer span.End()
	span.SetAttributes(attribute.String("state", state.String()))

	s.operationsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("chassis_id", "")))
	err := s.system.SetPowerState(ctx, state)
	if err != nil {
		s.operationFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("chassis_id", "")))
		s.logger.ErrorContext(ctx, "system set power state failed", "state", state.String(), "error", err)
	}
	return err
}

type setPowerStateWireRequest struct {
	ChassisID string `json:"chassisId"`
	State     string `json:"state"`
}

type setPowerStateWireResponse struct {
	RequestID string `json:"requestId"`
	Error     string `json:"error,omitempty"`
}

func (s *Service) handleSetPowerState(parentCtx context.Context) micro.HandlerFunc {
	return func(req micro.Request) {
		var wire setPowerStateWireRequest
		if err := json.Unmarshal(req.Data(), &wire); err != nil {
			_ = req.Error("400", fmt.Sprintf("invalid request: %v", err), nil)
			return
		}
		var state PowerState
		switch wire.State {
		case "on":
			state = PowerStateOn
		case "off":
			state = PowerStateOff
		default:
			_ = req.Error("400", fmt.Sprintf("invalid state %q", wire.State), nil)
			return
		}

		done := make(chan error, 1)
		select {
		case s.requests <- setPowerStateRequest{chassisID: wire.ChassisID, state: state, done: done}:
		case <-parentCtx.Done():
			_ = req.Error("503", "service shutting down", nil)
			return
		}

		resp := setPowerStateWireResponse{RequestID: uuid.NewString()}
		if err := <-done; err != nil {
			resp.Error = err.Error()
		}
		data, err := json.Marshal(resp)
		if err != nil {
			_ = req.Error("500", fmt.Sprintf("failed to marshal response: %v", err), nil)
			return
		}
		if err := req.Respond(data); err != nil && s.logger != nil {
			s.logger.WarnContext(parentCtx, "failed to respond to set-power-state request", "error", err)
		}
	}
}

type setSystemPowerStateWireRequest struct {
	State string `json:"state"`
}

type setSystemPowerStateWireResponse struct {
	RequestID string `json:"requestId"`
	Error     string `json:"error,omitempty"`
}

func (s *Service) handleSetSystemPowerState(parentCtx context.Context) micro.HandlerFunc {
	return func(req micro.Request) {
		var wire setSystemPowerStateWireRequest
		if err := json.Unmarshal(req.Data(), &wire); err != nil {
			_ = req.Error("400", fmt.Sprintf("invalid request: %v", err), nil)
			return
		}
		var state PowerState
		switch wire.State {
		case "on":
			state = PowerStateOn
		case "off":
			state = PowerStateOff
		default:
			_ = req.Error("400", fmt.Sprintf("invalid state %q", wire.State), nil)
			return
		}

		done := make(chan error, 1)
		select {
		case s.systemRequests <- setSystemPowerStateRequest{state: state, done: done}:
		case <-parentCtx.Done():
			_ = req.Error("503", "service shutting down", nil)
			return
		}

		resp := setSystemPowerStateWireResponse{RequestID: uuid.NewString()}
		if err := <-done; err != nil {
			resp.Error = err.Error()
		}
		data, err := json.Marshal(resp)
		if err != nil {
			_ = req.Error("500", fmt.Sprintf("failed to marshal response: %v", err), nil)
			return
		}
		if err := req.Respond(data); err != nil && s.logger != nil {
			s.logger.WarnContext(parentCtx, "failed to respond to system.power.set request", "error", err)
		}
	}
}

type getSystemPowerStateWireResponse struct {
	Desired  string `json:"desired"`
	Observed string `json:"observed"`
}

func (s *Service) handleGetSystemPowerState(parentCtx context.Context) micro.HandlerFunc {
	return func(req micro.Request) {
		data, err := json.Marshal(getSystemPowerStateWireResponse{
			Desired:  s.system.DesiredPowerState().String(),
			Observed: s.system.ObservedPowerGood().String(),
		})
		if err != nil {
			_ = req.Error("500", fmt.Sprintf("failed to marshal response: %v", err), nil)
			return
		}
		if err := req.Respond(data); err != nil && s.logger != nil {
			s.logger.WarnContext(parentCtx, "failed to respond to system.power.get request", "error", err)
		}
	}
}

type getPowerStateWireResponse struct {
	ChassisID string `json:"chassisId"`
	Desired   string `json:"desired"`
	Observed  string `json:"observed"`
}

func (s *Service) handleGetPowerState(parentCtx context.Context) micro.HandlerFunc {
	return func(req micro.Request) {
		chassisID := string(req.Data())
		c, err := s.system.Chassis(chassisID)
		if err != nil {
			_ = req.Error("404", err.Error(), nil)
			return
		}
		data, err := json.Marshal(getPowerStateWireResponse{
			ChassisID: chassisID,
			Desired:   c.DesiredPowerState().String(),
			Observed:  c.ObservedPowerGood().String(),
		})
		if err != nil {
			_ = req.Error("500", fmt.Sprintf("failed to marshal response: %v", err), nil)
			return
		}
		if err := req.Respond(data); err != nil && s.logger != nil {
			s.logger.WarnContext(parentCtx, "failed to respond to get-power-state request", "error", err)
		}
	}
}
