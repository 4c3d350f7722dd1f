package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoadFrom_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Fatalf("cfg = %+v, want defaults", cfg)
	}
}

func TestSaveTo_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")
	cfg := DefaultConfig()
	cfg.General.Tune = false
	cfg.Forecast.Weights.XGBoost = 0
	cfg.Alerts.Brokers = []string{"localhost:9092"}
	cfg.Fraud.TopN = 25

	if err := SaveTo(path, cfg); err != nil {
		t.Fatal(err)
	}
	got, err := LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, cfg) {
		t.Fatalf("round trip = %+v, want %+v", got, cfg)
	}
}

func TestLoadFrom_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := "[fraud]\nflag_threshold = 60.0\n\n[forecast.weights]\nlinear = 0.5\nridge = 0.5\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Fraud.FlagThreshold != 60 {
		t.Errorf("FlagThreshold = %v, want 60", cfg.Fraud.FlagThreshold)
	}
	if cfg.Fraud.TopN != 10 {
		t.Errorf("TopN = %d, want default 10", cfg.Fraud.TopN)
	}
	if cfg.Forecast.Weights.Linear != 0.5 || cfg.Forecast.Weights.RandomForest != 0.25 {
		t.Errorf("weights = %+v", cfg.Forecast.Weights)
	}
}

func TestLoadFrom_RejectsBadWeights(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[forecast.weights]\nridge = -1.0\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Fatal("expected error for negative weight")
	}
}

func TestGetPostgresDSN_EnvWins(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Postgres.DSN = "postgres://file"
	t.Setenv("LEDGERSCOPE_PG_DSN", "postgres://env")
	if got := GetPostgresDSN(cfg); got != "postgres://env" {
		t.Fatalf("GetPostgresDSN = %q, want env value", got)
	}
}

func TestDBPath_UsesXDGDataHome(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dir)
	if got, want := DBPath(DefaultConfig()), filepath.Join(dir, "ledgerscope", "ledger.db"); got != want {
		t.Fatalf("DBPath = %q, want %q", got, want)
	}
}
