// SPDX-License-Identifier: BSD-3-Clause

// Command chassisd runs the chassis power sequencing service: it loads a
// chassis configuration file, starts an embedded NATS server for
// in-process transport, and serves the "chassis" request/reply API over
// it until interrupted.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/openbmc-go/chassisd/internal/ipc"
	"github.com/openbmc-go/chassisd/pkg/log"
	"github.com/openbmc-go/chassisd/service/chassisd"
)

func main() {
	configPath := flag.String("config", "/etc/chassisd/chassis.json", "path to the chassis configuration file")
	i2cMapPath := flag.String("i2c-map", "", "path to a JSON file mapping PMBus device names to I2C bus/address (optional)")
	gpioChip := flag.String("gpio-chip", "/dev/gpiochip0", "gpiocdev chip device backing every configured GPIO line")
	storeDir := flag.String("store-dir", ipc.DefaultStoreDir, "JetStream storage directory for the embedded NATS server")
	flag.Parse()

	logger := log.GetGlobalLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath, *i2cMapPath, *gpioChip, *storeDir, logger); err != nil {
		logger.Error("chassisd exited with error", "error", err)
		os.Exit(1)
	}
}

// i2cDeviceEntry is the JSON shape of one entry in the optional I2C bus
// map file: a PMBus device name to the bus number and address it is
// reachable on.
type i2cDeviceEntry struct {
	Bus     int    `json:"bus"`
	Address uint16 `json:"address"`
}

func loadI2CMap(path string) (map[string]chassisd.I2CDeviceConfig, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading I2C map %q: %w", path, err)
	}
	var entries map[string]i2cDeviceEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parsing I2C map %q: %w", path, err)
	}
	out := make(map[string]chassisd.I2CDeviceConfig, len(entries))
	for name, e := range entries {
		out[name] = chassisd.I2CDeviceConfig{Bus: e.Bus, Address: e.Address}
	}
	return out, nil
}

func run(ctx context.Context, configPath, i2cMapPath, gpioChip, storeDir string, logger *slog.Logger) error {
	f, err := os.Open(configPath)
	if err != nil {
		return fmt.Errorf("opening config %q: %w", configPath, err)
	}
	cfg, err := chassisd.LoadConfig(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("loading config %q: %w", configPath, err)
	}

	i2cMap, err := loadI2CMap(i2cMapPath)
	if err != nil {
		return err
	}

	svc := chassisd.NewRealServices(chassisd.RealServicesConfig{
		GpioChip: gpioChip,
		I2CBuses: i2cMap,
		Logger:   logger,
	})

	chassisSvc, err := chassisd.New(cfg, svc)
	if err != nil {
		return fmt.Errorf("constructing chassisd service: %w", err)
	}

	bus := ipc.New(ipc.WithServerName("chassisd-ipc"), ipc.WithStoreDir(storeDir))

	// busCtx is canceled the moment either the bus or the service exits,
	// so one side's failure doesn't leave the other running forever.
	busCtx, cancelBus := context.WithCancel(ctx)
	defer cancelBus()

	busErrCh := make(chan error, 1)
	go func() { busErrCh <- bus.Run(busCtx) }()

	conn := bus.ConnProvider()

	svcErrCh := make(chan error, 1)
	go func() {
		defer cancelBus()
		svcErrCh <- chassisSvc.Run(busCtx, conn)
	}()

	svcErr := <-svcErrCh
	cancelBus()
	busErr := <-busErrCh

	if svcErr != nil && !errors.Is(svcErr, context.Canceled) {
		return svcErr
	}
	if busErr != nil && !errors.Is(busErr, context.Canceled) {
		return busErr
	}
	return nil
}
