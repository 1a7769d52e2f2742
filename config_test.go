package alloppnet

import (
	"errors"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.InitialTipPop != 1 || cfg.InitialRootPop != 1 || cfg.InitialHybPop != 1 {
		t.Errorf("initial populations = %g,%g,%g, want 1 each", cfg.InitialTipPop, cfg.InitialRootPop, cfg.InitialHybPop)
	}
	if cfg.OneHybridization || cfg.DiploidRootIsRoot || cfg.Debug {
		t.Error("DefaultConfig enables an optional behavior")
	}
	if err := validateConfig(&cfg); err != nil {
		t.Errorf("validateConfig(DefaultConfig()) = %v", err)
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative tip population", func(c *Config) { c.InitialTipPop = -1 }},
		{"zero root population", func(c *Config) { c.InitialRootPop = 0 }},
		{"negative hybrid population", func(c *Config) { c.InitialHybPop = -0.5 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			if err := validateConfig(&cfg); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("err = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	applyDefaults(&cfg)
	if cfg.InitialTipPop != 1 || cfg.InitialRootPop != 1 || cfg.InitialHybPop != 1 {
		t.Errorf("initial populations = %g,%g,%g, want 1 each", cfg.InitialTipPop, cfg.InitialRootPop, cfg.InitialHybPop)
	}
	if cfg.Logger == nil {
		t.Error("Logger not defaulted")
	}
	if cfg.Source != nil {
		t.Error("Source set without a seed")
	}

	seeded := Config{Seed: 7}
	applyDefaults(&seeded)
	if seeded.Source == nil {
		t.Fatal("Seed did not produce a Source")
	}
	again := Config{Seed: 7}
	applyDefaults(&again)
	if seeded.Source.Uint64() != again.Source.Uint64() {
		t.Error("equal seeds gave different sources")
	}

	src := testSource(1)
	explicit := Config{Seed: 7, Source: src}
	applyDefaults(&explicit)
	if explicit.Source != src {
		t.Error("Seed replaced an explicit Source")
	}
}
