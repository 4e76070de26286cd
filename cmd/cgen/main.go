package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/23skdu/longbow-cgen/internal/export"
	"github.com/23skdu/longbow-cgen/internal/gguf"
	"github.com/23skdu/longbow-cgen/internal/logger"
	"github.com/23skdu/longbow-cgen/internal/metrics"
	"github.com/23skdu/longbow-cgen/internal/samples"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	opts, err := parseFlags(args, os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	cfg := opts.cfg
	logger.Setup(cfg.LogLevel, cfg.LogFormat)

	if opts.inspect != "" {
		if err := inspect(opts.inspect); err != nil {
			logger.Log.Error("Inspect failed", "path", opts.inspect, "error", err)
			return 1
		}
		return 0
	}

	if err := cfg.Validate(); err != nil {
		logger.Log.Error("Invalid configuration", "error", err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	exp, err := export.New(cfg, logger.Log)
	if err != nil {
		logger.Log.Error("Failed to load templates", "dir", cfg.TemplatesDir, "error", err)
		return 1
	}

	if cfg.FlightAddr != "" {
		client := samples.NewFlightClient(cfg.FlightAddr, cfg.FlightTimeout)
		if err := client.Connect(ctx); err != nil {
			logger.Log.Error("Failed to connect to sample service", "addr", cfg.FlightAddr, "error", err)
			return 1
		}
		defer func() { _ = client.Close() }()
		exp.WithFetcher(client)
		logger.Log.Info("Samples from Flight service", "addr", cfg.FlightAddr)
	}

	targets := cfg.Resolved()
	logger.Log.Info("Exporting", "targets", len(targets), "save_dir", cfg.SaveDir)
	reports, runErr := exp.Run(ctx, targets)
	for _, r := range reports {
		logger.Log.Info("Exported",
			"target", r.Target,
			"layers", r.Info.NLayers,
			"params", r.Info.Parameters,
			"samples", r.Info.Samples,
			"samples_source", r.SamplesSource,
			"bytes", r.Bytes,
		)
	}

	if cfg.MetricsFile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
			logger.Log.Warn("Metrics not written", "path", cfg.MetricsFile, "error", err)
		}
	}
	if runErr != nil {
		return 1
	}
	return 0
}

func inspect(path string) error {
	f, err := gguf.LoadFile(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	fmt.Print(gguf.Analyze(f).String())
	fmt.Println()
	for _, t := range f.Tensors {
		stats, err := gguf.ComputeStats(f, t.Name)
		if err != nil {
			fmt.Printf("%-20s %-5s %v (%v)\n", t.Name, t.Type, t.Dimensions, err)
			continue
		}
		fmt.Printf("%-20s %-5s %v min=%g max=%g mean=%g nan=%v inf=%v\n",
			stats.Name, stats.Type, stats.Dimensions, stats.MinValue, stats.MaxValue, stats.MeanValue, stats.HasNaN, stats.HasInf)
	}
	return nil
}
