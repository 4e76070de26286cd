package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultDataName is the base name of the sample files written next to the model.
const DefaultDataName = "eqcheck_data"

// dataNamePattern keeps data_name usable inside C identifiers and include guards.
var dataNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Target is one model to export. Empty fields inherit from the top-level Config;
// an inherited save_dir gets the target name appended.
type Target struct {
	Name         string `yaml:"name"`
	ModelPath    string `yaml:"model_path"`
	SaveDir      string `yaml:"save_dir"`
	SamplesPath  string `yaml:"samples_path"`
	FlightTicket string `yaml:"flight_ticket"`
}

// Config is built once per run and passed by value; nothing mutates it after Validate.
type Config struct {
	ModelPath    string `yaml:"model_path"`
	TemplatesDir string `yaml:"templates_dir"`
	SaveDir      string `yaml:"save_dir"`
	DataName     string `yaml:"data_name"`

	SamplesPath    string        `yaml:"samples_path"`
	FlightAddr     string        `yaml:"flight_addr"`
	FlightTicket   string        `yaml:"flight_ticket"`
	FlightTimeout  time.Duration `yaml:"flight_timeout"`
	EqCheckSamples int           `yaml:"n_eqcheck_data"`
	RandomSeed     uint64        `yaml:"random_seed"`

	StrictTemplates bool `yaml:"strict_templates"`
	AtomicWrites    bool `yaml:"atomic_writes"`
	WriteModelInfo  bool `yaml:"write_model_info"`
	ContinueOnError bool `yaml:"continue_on_error"`

	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	MetricsFile string `yaml:"metrics_file"`

	Targets []Target `yaml:"targets"`
}

func Default() Config {
	return Config{
		SaveDir:        "c_files",
		DataName:       DefaultDataName,
		FlightTimeout:  30 * time.Second,
		EqCheckSamples: 10,
		RandomSeed:     42,
		WriteModelInfo: true,
		LogLevel:       "info",
		LogFormat:      "console",
	}
}

// Load reads a YAML config file on top of Default. The result is not validated,
// so callers can apply flag overrides first.
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if len(c.Targets) == 0 && c.ModelPath == "" {
		return fmt.Errorf("no model: set model_path or at least one target")
	}
	if c.SaveDir == "" {
		for i, t := range c.Targets {
			if t.SaveDir == "" {
				return fmt.Errorf("target %d: no save_dir and no default save_dir", i)
			}
		}
		if len(c.Targets) == 0 {
			return fmt.Errorf("invalid save_dir: must not be empty")
		}
	}
	if !dataNamePattern.MatchString(c.DataName) {
		return fmt.Errorf("invalid data_name: %q (must be a C identifier)", c.DataName)
	}
	if c.EqCheckSamples < 0 {
		return fmt.Errorf("invalid n_eqcheck_data: %d (must be non-negative)", c.EqCheckSamples)
	}
	if c.FlightAddr != "" && c.FlightTimeout <= 0 {
		return fmt.Errorf("invalid flight_timeout: %v (must be positive)", c.FlightTimeout)
	}
	if c.SamplesPath != "" && c.FlightAddr != "" {
		return fmt.Errorf("samples_path and flight_addr are mutually exclusive")
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "console", "json":
	default:
		return fmt.Errorf("invalid log_format: %q (want console or json)", c.LogFormat)
	}
	seen := make(map[string]bool, len(c.Targets))
	for i, t := range c.Targets {
		if t.ModelPath == "" && c.ModelPath == "" {
			return fmt.Errorf("target %d: no model_path", i)
		}
		name := c.TargetName(i)
		if seen[name] {
			return fmt.Errorf("target %d: duplicate name %q", i, name)
		}
		seen[name] = true
	}
	dirs := make(map[string]string, len(c.Targets))
	for _, t := range c.Resolved() {
		dir := filepath.Clean(t.SaveDir)
		if other, ok := dirs[dir]; ok {
			return fmt.Errorf("targets %q and %q share save_dir %q", other, t.Name, dir)
		}
		dirs[dir] = t.Name
	}
	return nil
}

// Resolved returns the export targets with top-level defaults filled in.
// A config without targets yields a single target built from the top-level fields.
func (c *Config) Resolved() []Target {
	if len(c.Targets) == 0 {
		return []Target{{
			Name:         "default",
			ModelPath:    c.ModelPath,
			SaveDir:      c.SaveDir,
			SamplesPath:  c.SamplesPath,
			FlightTicket: c.FlightTicket,
		}}
	}
	out := make([]Target, len(c.Targets))
	for i, t := range c.Targets {
		t.Name = c.TargetName(i)
		if t.ModelPath == "" {
			t.ModelPath = c.ModelPath
		}
		if t.SaveDir == "" {
			t.SaveDir = filepath.Join(c.SaveDir, t.Name)
		}
		if t.SamplesPath == "" {
			t.SamplesPath = c.SamplesPath
		}
		if t.FlightTicket == "" {
			t.FlightTicket = c.FlightTicket
		}
		out[i] = t
	}
	return out
}

func (c *Config) TargetName(i int) string {
	if c.Targets[i].Name != "" {
		return c.Targets[i].Name
	}
	return fmt.Sprintf("target_%d", i)
}
