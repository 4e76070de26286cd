package main

import (
	"flag"
	"io"

	"github.com/23skdu/longbow-cgen/internal/config"
)

type options struct {
	configPath string
	inspect    string
	cfg        config.Config
}

// parseFlags loads -config (when given) and lays every explicitly set flag
// over it, so flags always win over the file.
func parseFlags(args []string, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("cgen", flag.ContinueOnError)
	fs.SetOutput(stderr)

	def := config.Default()
	var (
		configPath   = fs.String("config", "", "YAML config file")
		inspect      = fs.String("inspect", "", "Print a GGUF file report and exit")
		modelPath    = fs.String("model", "", "Path to dense GGUF model file")
		templatesDir = fs.String("templates", "", "Directory with model.h/model.c/data.h/data.c (default: built-in)")
		saveDir      = fs.String("save-dir", def.SaveDir, "Output directory")
		dataName     = fs.String("data-name", def.DataName, "Base name of the sample files")
		samplesPath  = fs.String("samples", "", "Arrow IPC stream with sample columns x (and y)")
		flightAddr   = fs.String("flight", "", "Arrow Flight service address (host:port) serving samples")
		ticket       = fs.String("ticket", "", "Flight ticket (default: target name)")
		timeout      = fs.Duration("flight-timeout", def.FlightTimeout, "Timeout of one Flight call")
		n            = fs.Int("n", def.EqCheckSamples, "Number of equivalence-check samples")
		seed         = fs.Uint64("seed", def.RandomSeed, "Seed for random sample inputs")
		strict       = fs.Bool("strict", false, "Fail on placeholders left in templates")
		atomic       = fs.Bool("atomic", false, "Write each file through a temp file and rename")
		noInfo       = fs.Bool("no-model-info", false, "Skip model_info.yaml")
		cont         = fs.Bool("continue", false, "Keep exporting remaining targets after a failure")
		logLevel     = fs.String("log-level", def.LogLevel, "Log level (debug, info, warn, error)")
		logFormat    = fs.String("log-format", def.LogFormat, "Log format (console, json)")
		metricsFile  = fs.String("metrics-file", "", "Write Prometheus metrics to this textfile on exit")
	)
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	opts := options{configPath: *configPath, inspect: *inspect, cfg: def}
	if *configPath != "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			return options{}, err
		}
		opts.cfg = cfg
	}

	set := map[string]func(c *config.Config){
		"model":          func(c *config.Config) { c.ModelPath = *modelPath },
		"templates":      func(c *config.Config) { c.TemplatesDir = *templatesDir },
		"save-dir":       func(c *config.Config) { c.SaveDir = *saveDir },
		"data-name":      func(c *config.Config) { c.DataName = *dataName },
		"samples":        func(c *config.Config) { c.SamplesPath = *samplesPath },
		"flight":         func(c *config.Config) { c.FlightAddr = *flightAddr },
		"ticket":         func(c *config.Config) { c.FlightTicket = *ticket },
		"flight-timeout": func(c *config.Config) { c.FlightTimeout = *timeout },
		"n":              func(c *config.Config) { c.EqCheckSamples = *n },
		"seed":           func(c *config.Config) { c.RandomSeed = *seed },
		"strict":         func(c *config.Config) { c.StrictTemplates = *strict },
		"atomic":         func(c *config.Config) { c.AtomicWrites = *atomic },
		"no-model-info":  func(c *config.Config) { c.WriteModelInfo = !*noInfo },
		"continue":       func(c *config.Config) { c.ContinueOnError = *cont },
		"log-level":      func(c *config.Config) { c.LogLevel = *logLevel },
		"log-format":     func(c *config.Config) { c.LogFormat = *logFormat },
		"metrics-file":   func(c *config.Config) { c.MetricsFile = *metricsFile },
	}
	fs.Visit(func(f *flag.Flag) {
		if apply, ok := set[f.Name]; ok {
			apply(&opts.cfg)
		}
	})
	return opts, nil
}
