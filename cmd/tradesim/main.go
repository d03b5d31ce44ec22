// tradesim runs the trading-stack simulator: synthetic (or replayed)
// market data through the matching, strategy, risk, and execution
// pipeline, printing a latency and P&L summary on exit.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wojciech-wais/low-latency-trading-system/internal/config"
	"github.com/wojciech-wais/low-latency-trading-system/internal/engine"
	"github.com/wojciech-wais/low-latency-trading-system/internal/logging"
	"github.com/wojciech-wais/low-latency-trading-system/internal/monitoring"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "tradesim:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath  = flag.String("config", "", "path to YAML config file")
		durationMs  = flag.Uint64("duration", 0, "simulation duration in ms (overrides config)")
		metricsAddr = flag.String("metrics-addr", "", "Prometheus listen address, e.g. :9100 (overrides config)")
		logLevel    = flag.String("log-level", "", "log level: debug, info, warn, error (overrides config)")
		replayPath  = flag.String("replay", "", "CSV file to replay instead of the synthetic feed")
		latencyCSV  = flag.String("latency-csv", "", "write risk-check latency samples to this CSV on exit")
	)
	flag.Parse()
	if flag.NArg() > 0 && *configPath == "" {
		*configPath = flag.Arg(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *durationMs > 0 {
		cfg.SimulationDurationMs = *durationMs
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	fmt.Println("=== Low-Latency Trading Simulator ===")
	fmt.Printf("config: %s  duration: %dms  exchanges: %d  instruments: %d\n",
		orDefault(cfg.ConfigPath), cfg.SimulationDurationMs, cfg.NumExchanges, cfg.NumInstruments)

	sink := logging.NewBackend(cfg.LogLevel)
	sim, err := engine.New(cfg, sink)
	if err != nil {
		return err
	}
	if *replayPath != "" {
		if err := sim.UseReplay(*replayPath); err != nil {
			return err
		}
	}

	stop := make(chan struct{})
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		close(stop)
	}()

	sim.Run(time.Duration(cfg.SimulationDurationMs)*time.Millisecond, stop)

	fmt.Println(sim.Summary())

	if *latencyCSV != "" {
		tracker := sim.Metrics().StageTracker(monitoring.StageRiskCheck)
		if err := tracker.WriteCSV(*latencyCSV); err != nil {
			fmt.Fprintln(os.Stderr, "tradesim:", err)
		}
	}
	return nil
}

func orDefault(path string) string {
	if path == "" {
		return "(defaults)"
	}
	return path
}
