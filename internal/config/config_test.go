package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	cfg := Default()
	cfg.ModelPath = "model.gguf"
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"no model", func(c *Config) { c.ModelPath = "" }, "no model"},
		{"empty save dir", func(c *Config) { c.SaveDir = "" }, "save_dir"},
		{"empty data name", func(c *Config) { c.DataName = "" }, "data_name"},
		{"data name with slash", func(c *Config) { c.DataName = "a/b" }, "data_name"},
		{"data name with dash", func(c *Config) { c.DataName = "eqcheck-data" }, "data_name"},
		{"data name with dot", func(c *Config) { c.DataName = "my.data" }, "data_name"},
		{"data name with leading digit", func(c *Config) { c.DataName = "2data" }, "data_name"},
		{"data name identifier", func(c *Config) { c.DataName = "_data_2" }, ""},
		{"negative samples", func(c *Config) { c.EqCheckSamples = -1 }, "n_eqcheck_data"},
		{"flight without timeout", func(c *Config) {
			c.FlightAddr = "localhost:3000"
			c.FlightTimeout = 0
		}, "flight_timeout"},
		{"samples and flight", func(c *Config) {
			c.FlightAddr = "localhost:3000"
			c.SamplesPath = "x.arrows"
		}, "mutually exclusive"},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, "log_format"},
		{"targets inherit model", func(c *Config) {
			c.Targets = []Target{{Name: "a"}, {Name: "b"}}
		}, ""},
		{"explicit save dirs collide", func(c *Config) {
			c.Targets = []Target{{Name: "a", SaveDir: "out"}, {Name: "b", SaveDir: "out/"}}
		}, "share save_dir"},
		{"explicit save dir shadows inherited one", func(c *Config) {
			c.Targets = []Target{{Name: "a", SaveDir: filepath.Join("c_files", "b")}, {Name: "b"}}
		}, "share save_dir"},
		{"duplicate target names", func(c *Config) {
			c.Targets = []Target{{Name: "a"}, {Name: "a"}}
		}, "duplicate"},
		{"target without model", func(c *Config) {
			c.ModelPath = ""
			c.Targets = []Target{{Name: "a", ModelPath: "m.gguf"}, {Name: "b"}}
		}, "target 1"},
		{"targets carry their own save dirs", func(c *Config) {
			c.SaveDir = ""
			c.Targets = []Target{{Name: "a", SaveDir: "out/a"}}
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.SaveDir != "c_files" {
		t.Errorf("SaveDir = %q", cfg.SaveDir)
	}
	if cfg.DataName != DefaultDataName {
		t.Errorf("DataName = %q", cfg.DataName)
	}
	if cfg.EqCheckSamples != 10 {
		t.Errorf("EqCheckSamples = %d", cfg.EqCheckSamples)
	}
	if !cfg.WriteModelInfo {
		t.Error("expected WriteModelInfo by default")
	}
}

func TestResolvedSingleTarget(t *testing.T) {
	cfg := validConfig()
	cfg.SamplesPath = "s.arrows"
	targets := cfg.Resolved()
	if len(targets) != 1 {
		t.Fatalf("expected 1 target, got %d", len(targets))
	}
	got := targets[0]
	if got.Name != "default" || got.ModelPath != "model.gguf" || got.SaveDir != "c_files" || got.SamplesPath != "s.arrows" {
		t.Errorf("unexpected target: %+v", got)
	}
}

func TestResolvedInheritsDefaults(t *testing.T) {
	cfg := validConfig()
	cfg.Targets = []Target{
		{Name: "sinus", SaveDir: "out/sinus"},
		{ModelPath: "boston.gguf"},
	}
	targets := cfg.Resolved()
	if targets[0].ModelPath != "model.gguf" || targets[0].SaveDir != "out/sinus" {
		t.Errorf("target 0: %+v", targets[0])
	}
	if targets[1].Name != "target_1" || targets[1].ModelPath != "boston.gguf" || targets[1].SaveDir != filepath.Join("c_files", "target_1") {
		t.Errorf("target 1: %+v", targets[1])
	}
	if cfg.Targets[1].Name != "" {
		t.Error("Resolved must not modify the config")
	}
}

func TestResolvedTargetsGetOwnSaveDirs(t *testing.T) {
	cfg := validConfig()
	cfg.Targets = []Target{{Name: "a"}, {Name: "b"}}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	targets := cfg.Resolved()
	if targets[0].SaveDir != filepath.Join("c_files", "a") || targets[1].SaveDir != filepath.Join("c_files", "b") {
		t.Errorf("save dirs = %q, %q", targets[0].SaveDir, targets[1].SaveDir)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cgen.yaml")
	body := `
model_path: models/sinus.gguf
save_dir: build/c
n_eqcheck_data: 4
flight_timeout: 5s
strict_templates: true
targets:
  - name: sinus
  - name: boston
    model_path: models/boston.gguf
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ModelPath != "models/sinus.gguf" || cfg.SaveDir != "build/c" {
		t.Errorf("paths not loaded: %+v", cfg)
	}
	if cfg.EqCheckSamples != 4 {
		t.Errorf("EqCheckSamples = %d", cfg.EqCheckSamples)
	}
	if cfg.FlightTimeout != 5*time.Second {
		t.Errorf("FlightTimeout = %v", cfg.FlightTimeout)
	}
	if !cfg.StrictTemplates {
		t.Error("StrictTemplates not loaded")
	}
	if cfg.DataName != DefaultDataName || cfg.LogLevel != "info" {
		t.Error("defaults should survive fields absent from the file")
	}
	if len(cfg.Targets) != 2 || cfg.Targets[1].ModelPath != "models/boston.gguf" {
		t.Errorf("targets = %+v", cfg.Targets)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("loaded config invalid: %v", err)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("unknown_field: 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for unknown field")
	}
}
