package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.SequenceLength != 19 || cfg.Epochs != 10 || cfg.BatchSize != 512 {
		t.Fatalf("training defaults wrong: %+v", cfg)
	}
	if cfg.MainsMean != 1800 || cfg.MainsStd != 600 {
		t.Fatalf("mains defaults wrong: %+v", cfg)
	}
	if cfg.Store != "memory" || cfg.DBPath != "wattsplit.db" {
		t.Fatalf("store defaults wrong: %+v", cfg)
	}
}

func TestLoadConfigFileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
sequence_length: 9
n_epochs: 3
store: sqlite
db_path: /tmp/run.db
quiet: true
appliance_params:
  fridge:
    mean: 90
    std: 120
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.SequenceLength != 9 || cfg.Epochs != 3 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.BatchSize != 512 {
		t.Fatal("unset keys should keep defaults")
	}
	if cfg.Store != "sqlite" || cfg.DBPath != "/tmp/run.db" || !cfg.Quiet {
		t.Fatalf("store overrides not applied: %+v", cfg)
	}
	if st := cfg.ApplianceParams["fridge"]; st["mean"] != 90 || st["std"] != 120 {
		t.Fatalf("appliance params not parsed: %+v", cfg.ApplianceParams)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestConfigOptions(t *testing.T) {
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg.ApplianceParams = map[string]map[string]float64{
		"fridge": {"mean": 90, "std": 120},
	}
	cfg.Quiet = true

	opts := cfg.options()
	if opts.SequenceLength != 19 || opts.Epochs != 10 {
		t.Fatalf("options mapping wrong: %+v", opts)
	}
	if st := opts.ApplianceParams["fridge"]; st.Mean != 90 || st.Std != 120 {
		t.Fatalf("appliance params mapping wrong: %+v", st)
	}
	if opts.Progress != nil {
		t.Fatal("quiet config must disable progress output")
	}

	cfg.Quiet = false
	if cfg.options().Progress == nil {
		t.Fatal("non-quiet config should report progress")
	}
}

func TestConfigOptionsKeepZeroMainsMean(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "mains_mean: 0\nmains_std: 1\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	opts := cfg.options()
	if opts.MainsMean == nil || *opts.MainsMean != 0 {
		t.Fatalf("mains mean = %v, want explicit 0", opts.MainsMean)
	}
	if opts.MainsStd == nil || *opts.MainsStd != 1 {
		t.Fatalf("mains std = %v, want explicit 1", opts.MainsStd)
	}
}
