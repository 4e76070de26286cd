package main

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseFlagsDefaults(t *testing.T) {
	opts, err := parseFlags([]string{"-model", "m.gguf"}, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	cfg := opts.cfg
	if cfg.ModelPath != "m.gguf" || cfg.SaveDir != "c_files" || cfg.EqCheckSamples != 10 || !cfg.WriteModelInfo {
		t.Errorf("cfg = %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestParseFlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cgen.yaml")
	yaml := "model_path: from_file.gguf\nsave_dir: out\nn_eqcheck_data: 3\nflight_timeout: 5s\nstrict_templates: true\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	opts, err := parseFlags([]string{"-config", path, "-n", "7", "-no-model-info", "-atomic"}, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	cfg := opts.cfg
	if cfg.ModelPath != "from_file.gguf" || cfg.SaveDir != "out" {
		t.Errorf("file values lost: %+v", cfg)
	}
	if cfg.EqCheckSamples != 7 {
		t.Errorf("flag should override file: n=%d", cfg.EqCheckSamples)
	}
	if cfg.FlightTimeout != 5*time.Second || !cfg.StrictTemplates {
		t.Errorf("file values lost: %+v", cfg)
	}
	if cfg.WriteModelInfo || !cfg.AtomicWrites {
		t.Errorf("bool flags not applied: %+v", cfg)
	}
}

func TestParseFlagsErrors(t *testing.T) {
	if _, err := parseFlags([]string{"-bogus"}, io.Discard); err == nil {
		t.Error("expected error for unknown flag")
	}
	if _, err := parseFlags([]string{"-config", filepath.Join(t.TempDir(), "missing.yaml")}, io.Discard); err == nil {
		t.Error("expected error for missing config file")
	}
}
