// Command vitalink-gateway connects to nearby health sensors and
// streams their measurements.
//
// The gateway scans for devices advertising supported capabilities,
// connects to the first candidate, initializes a session (identification
// reads, clock synchronization, measurement subscriptions) and prints
// every decoded measurement. Lost links are retried indefinitely with a
// fixed delay.
//
// Usage:
//
//	vitalink-gateway [flags]
//
// Flags:
//
//	-config string      Configuration file path (YAML)
//	-log-level string   Log level: debug, info, warn, error (default from config)
//	-log-file string    Protocol event log path (.vlog)
//	-scan string        Comma-separated capability filter override
//
// Examples:
//
//	# Scan for every supported capability
//	vitalink-gateway
//
//	# Only blood pressure monitors, with a protocol log
//	vitalink-gateway -scan blood_pressure -log-file session.vlog
//
//	# Verbose operational logging
//	vitalink-gateway -log-level debug
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/vitalink-protocol/vitalink-go/pkg/ble"
	"github.com/vitalink-protocol/vitalink-go/pkg/central"
	"github.com/vitalink-protocol/vitalink-go/pkg/config"
	"github.com/vitalink-protocol/vitalink-go/pkg/event"
	"github.com/vitalink-protocol/vitalink-go/pkg/log"
)

func main() {
	var (
		configFile string
		logLevel   string
		logFile    string
		scanList   string
	)

	flag.StringVar(&configFile, "config", "", "Configuration file path (YAML)")
	flag.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flag.StringVar(&logFile, "log-file", "", "Protocol event log path")
	flag.StringVar(&scanList, "scan", "", "Comma-separated capability filter override")
	flag.Parse()

	cfg, err := config.Load(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if logFile != "" {
		cfg.LogFile = logFile
	}
	if scanList != "" {
		cfg.Scan = strings.Split(scanList, ",")
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	level, _ := cfg.SlogLevel()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	filter, _ := cfg.ScanFilter()

	var plog log.Logger = log.NoopLogger{}
	if cfg.LogFile != "" {
		fileLog, err := log.NewFileLogger(cfg.LogFile)
		if err != nil {
			logger.Error("opening protocol log failed", "path", cfg.LogFile, "error", err)
			os.Exit(1)
		}
		defer fileLog.Close()
		plog = log.NewMultiLogger(fileLog, log.NewSlogAdapter(logger))
	}

	adapter, err := ble.NewAdapter(plog, logger)
	if err != nil {
		logger.Error("bluetooth adapter unavailable", "error", err)
		os.Exit(1)
	}

	bus := event.NewBus(cfg.EventBuffer)
	defer bus.Shutdown()

	svc := central.NewService(central.Config{
		Transport:      adapter,
		Publisher:      bus,
		ProtocolLog:    plog,
		Logger:         logger,
		Quirk:          cfg.Quirk(),
		ReconnectDelay: cfg.Delay,
	})
	defer svc.Close()

	sub := bus.Subscribe(event.TypeBloodPressure, event.TypeTemperature, event.TypeHeartRate)
	defer sub.Unsubscribe()
	go printMeasurements(sub)

	scanner := central.NewScanController(adapter, svc, plog, logger)
	if err := scanner.Begin(filter); err != nil {
		logger.Error("starting discovery failed", "error", err)
		os.Exit(1)
	}
	defer scanner.Stop()

	logger.Info("gateway running", "capabilities", len(filter))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutting down", "signal", sig.String())
}

func printMeasurements(sub event.Subscription) {
	for data := range sub.C {
		switch m := data.(type) {
		case event.BloodPressureMeasurement:
			fmt.Printf("[%s] %s: blood pressure %.0f/%.0f %s (MAP %.0f)",
				m.ReceivedAt.Format("15:04:05"), m.DeviceName,
				m.Systolic, m.Diastolic, m.Unit, m.MeanArterial)
			if m.PulseRate != nil {
				fmt.Printf(", pulse %.0f bpm", *m.PulseRate)
			}
			fmt.Println()

		case event.TemperatureMeasurement:
			fmt.Printf("[%s] %s: temperature %.1f %s\n",
				m.ReceivedAt.Format("15:04:05"), m.DeviceName,
				m.Value, m.Unit)

		case event.HeartRateMeasurement:
			fmt.Printf("[%s] %s: heart rate %d bpm (contact: %s)\n",
				m.ReceivedAt.Format("15:04:05"), m.DeviceName,
				m.BPM, m.Contact)
		}
	}
}
