package store

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadConfigDefaults(t *testing.T) {
	p := writeConfig(t, "mode: DRY_RUN\norder_size: 0.01\n")
	cfg, err := LoadConfig(p)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Symbol != "BTC_JPY" {
		t.Fatalf("symbol = %q", cfg.Symbol)
	}
	if cfg.Interval != "1hour" {
		t.Fatalf("interval = %q", cfg.Interval)
	}
	if cfg.Risk.HaltRatio != -0.20 {
		t.Fatalf("halt_ratio = %v", cfg.Risk.HaltRatio)
	}
	if cfg.DayStartHour != 6 {
		t.Fatalf("day_start_hour = %v", cfg.DayStartHour)
	}
	if cfg.Signal.Provider != "NOOP" {
		t.Fatalf("provider = %q", cfg.Signal.Provider)
	}
	if cfg.Signal.ReflectionWindow != 6 {
		t.Fatalf("reflection_window = %v", cfg.Signal.ReflectionWindow)
	}
}

func TestLoadConfigKeepsExplicitZeroDayStart(t *testing.T) {
	p := writeConfig(t, "mode: DRY_RUN\norder_size: 0.01\nday_start_hour: 0\n")
	cfg, err := LoadConfig(p)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DayStartHour != 0 {
		t.Fatalf("day_start_hour = %d, explicit zero must survive", cfg.DayStartHour)
	}
}

func TestLoadConfigRejectsBadMode(t *testing.T) {
	p := writeConfig(t, "mode: YOLO\norder_size: 0.01\n")
	if _, err := LoadConfig(p); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadConfigRejectsZeroOrderSize(t *testing.T) {
	p := writeConfig(t, "mode: LIVE\n")
	if _, err := LoadConfig(p); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestValidateRejectsPositiveHaltRatio(t *testing.T) {
	p := writeConfig(t, "mode: DRY_RUN\norder_size: 0.01\nrisk:\n  halt_ratio: 0.20\n")
	if _, err := LoadConfig(p); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLocationFallsBackToJST(t *testing.T) {
	cfg := &Config{Timezone: "Not/AZone"}
	loc := cfg.Location()
	if loc == nil {
		t.Fatal("nil location")
	}
	if loc.String() != "JST" {
		t.Fatalf("loc = %s", loc)
	}
}
