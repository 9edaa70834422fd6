package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("SERVICE_NAME", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("SYMBOL", "")
	t.Setenv("CUSUM_THRESHOLD", "")
	t.Setenv("N_ESTIMATORS", "")

	cfg := Load()
	if cfg.ServiceName != "sequoia" {
		t.Fatalf("expected default service name, got %q", cfg.ServiceName)
	}
	if cfg.RedisURL != "localhost:6379" {
		t.Fatalf("expected redis default, got %q", cfg.RedisURL)
	}
	if cfg.Symbol != "SPX" {
		t.Fatalf("expected default symbol, got %q", cfg.Symbol)
	}
	if cfg.CusumThreshold != 0.001 || cfg.VolLookback != 50 || cfg.VerticalBarrierDays != 2 {
		t.Fatalf("unexpected labeling defaults: %+v", cfg)
	}
	if cfg.ProfitTake != 4 || cfg.StopLoss != 4 || cfg.MinRet != 0.005 {
		t.Fatalf("unexpected barrier defaults: %+v", cfg)
	}
	if cfg.NumEstimators != 100 || cfg.StandardEstimators != 50 {
		t.Fatalf("unexpected ensemble defaults: %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SYMBOL", "ES")
	t.Setenv("CUSUM_THRESHOLD", "0.002")
	t.Setenv("N_ESTIMATORS", "25")
	t.Setenv("TRAIN_HOUR_UTC", "6")
	t.Setenv("MAX_FEATURES", "0.5")

	cfg := Load()
	if cfg.Symbol != "ES" {
		t.Fatalf("expected symbol override, got %q", cfg.Symbol)
	}
	if cfg.CusumThreshold != 0.002 || cfg.NumEstimators != 25 {
		t.Fatalf("expected overrides applied: %+v", cfg)
	}
	if cfg.TrainHourUTC != 6 || cfg.MaxFeatures != 0.5 {
		t.Fatalf("expected train hour and feature fraction overrides: %+v", cfg)
	}
}

func TestLoadIgnoresInvalidValues(t *testing.T) {
	t.Setenv("N_ESTIMATORS", "-5")
	t.Setenv("CUSUM_THRESHOLD", "nope")
	t.Setenv("TRAIN_HOUR_UTC", "99")

	cfg := Load()
	if cfg.NumEstimators != 100 || cfg.CusumThreshold != 0.001 || cfg.TrainHourUTC != 0 {
		t.Fatalf("expected invalid values to fall back to defaults: %+v", cfg)
	}
}
