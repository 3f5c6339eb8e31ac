package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"i4.energy/across/ltem/action"
	"i4.energy/across/ltem/bridge"
	"i4.energy/across/ltem/device"
	"i4.energy/across/ltem/network"
)

func main() {
	configFile := flag.String("config", os.Getenv("LTEM_CONFIG"), "YAML configuration file")
	flag.String("serial-port", "/dev/ttySC0", "Serial port of the UART bridge")
	flag.Int("baud-rate", 115200, "Baud rate of the bridge UART")
	flag.String("bind-address", "0.0.0.0:8080", "Bind address for the HTTP server")
	flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.String("board", "rpi", "Pin profile of the modem board (rpi, feather)")
	flag.String("gpio-chip", "", "GPIO chip overriding the board profile")
	flag.String("level", "full", "Functional level (base, iop, atcmd, full)")
	flag.String("apn", "", "APN for PDP context 1")
	flag.Bool("console", false, "Run the interactive AT console")
	flag.Parse()

	config, err := LoadConfig(WithDefaults(), WithFile(*configFile), WithEnv(), WithFlags(flag.CommandLine))
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	var console *Console
	var logOut io.Writer = os.Stderr
	if config.Console {
		if console, err = NewConsole(); err != nil {
			slog.Error("Failed to start console", "error", err)
			os.Exit(1)
		}
		logOut = console.Stderr()
	}

	logLevel := slog.LevelInfo
	switch config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{Level: logLevel}))

	pinConfig, err := config.PinConfig()
	if err != nil {
		logger.Error("Invalid pin configuration", "error", err)
		os.Exit(1)
	}
	pins, err := openPins(pinConfig.Chip)
	if err != nil {
		logger.Error("Failed to open GPIO", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancelCause(context.Background())
	defer cancel(nil)

	deviceConfig, err := device.NewConfigBuilder().
		WithDialer(bridge.SerialDialer{
			PortName: config.SerialPort,
			BaudRate: config.BaudRate,
		}).
		WithPins(pins).
		WithPinConfig(pinConfig).
		WithLevel(config.Level).
		WithLogger(logger.With("component", "device")).
		WithInitCommands(config.InitCommands...).
		WithURCHandler(func(line string) {
			logger.Info("Unsolicited result", "urc", line)
		}).
		WithFaultHandler(func(err error) {
			cancel(err)
		}).
		Build()
	if err != nil {
		logger.Error("Failed to create device config", "error", err)
		os.Exit(1)
	}

	dev, err := device.New(ctx, deviceConfig)
	if err != nil {
		logger.Error("Failed to create device", "error", err)
		os.Exit(1)
	}

	var mu sync.Mutex
	if err := startDevice(ctx, dev, &mu, config, logger); err != nil {
		logger.Error("Failed to start device", "error", err)
		dev.Destroy()
		os.Exit(1)
	}

	logger.Info("Starting LTE modem daemon", "level", config.Level.String(), "serial_port", config.SerialPort)

	go pump(ctx, dev, &mu, config.PumpInterval)

	httpServer := &http.Server{
		Addr: config.BindAddress,
		Handler: &Server{
			Logger: logger.With("component", "server"),
			Modem:  dev,
			Lock:   &mu,
		},
	}

	if console != nil {
		console.Modem = dev
		console.Lock = &mu
		go console.Run(ctx, func() { cancel(nil) })
	}

	// Channel to listen for interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info("Starting HTTP server", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", "error", err)
			cancel(err)
		}
	}()

	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", "signal", sig)
	case <-ctx.Done():
		logger.Info("Shutting down", "cause", context.Cause(ctx))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	logger.Info("Closing HTTP server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to gracefully shutdown server", "error", err)
	}

	logger.Info("Powering modem down")
	mu.Lock()
	if err := dev.Destroy(); err != nil {
		logger.Error("Failed to destroy device", "error", err)
	}
	mu.Unlock()

	if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
		os.Exit(1)
	}
}

// startDevice starts the modem and applies the configured APN. A modem
// that rejects the APN is logged, not treated as a start failure.
func startDevice(ctx context.Context, dev *device.Device, mu *sync.Mutex, config *Config, logger *slog.Logger) error {
	mu.Lock()
	defer mu.Unlock()

	if err := dev.Start(ctx, config.Level); err != nil {
		return err
	}
	if config.APN == "" || config.Level < device.Full {
		return nil
	}
	inv, err := dev.Invoker()
	if err != nil {
		return err
	}
	err = network.SetAPN(ctx, inv, 1, config.APN)
	switch action.CodeOf(err) {
	case action.Success:
		logger.Info("APN configured", "apn", config.APN)
	case action.BadRequest, action.Fatal:
		return err
	default:
		logger.Warn("Failed to configure APN", "apn", config.APN, "error", err)
	}
	return nil
}

// pump runs the device pump until ctx is done.
func pump(ctx context.Context, dev *device.Device, mu sync.Locker, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			mu.Lock()
			dev.DoWork()
			mu.Unlock()
		}
	}
}
