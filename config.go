package alloppnet

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
)

// Config controls construction of a Network.
// Start with [DefaultConfig] and override the fields you need.
type Config struct {
	// OneHybridization puts every tetraploid species in one legged tree, so
	// the initial network has a single hybridization. Otherwise tetraploids
	// are grouped by a Chinese restaurant process. Default: false.
	OneHybridization bool

	// DiploidRootIsRoot requires both subtrees of the diploid history root
	// to hold a diploid species. Default: false.
	DiploidRootIsRoot bool

	// InitialTipPop, InitialRootPop and InitialHybPop fill the population
	// vectors of the initial network. Must be > 0. Default: 1.0 each.
	InitialTipPop  float64
	InitialRootPop float64
	InitialHybPop  float64

	// Seed seeds the PCG source used when Source is nil. 0 picks a random
	// seed.
	Seed uint64

	// Source drives every random draw the network makes. Overrides Seed.
	Source rand.Source

	// Debug runs the full invariant checks on construction and on every
	// EndEdit, returning the first violation as an error. Default: false.
	Debug bool

	// Logger receives debug traces of commits, snapshots and rejected gene
	// trees. Default: a logger that discards everything.
	Logger *slog.Logger
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		InitialTipPop:  1.0,
		InitialRootPop: 1.0,
		InitialHybPop:  1.0,
	}
}

// validateConfig checks that cfg fields are valid and returns a descriptive error if not.
func validateConfig(cfg *Config) error {
	if cfg.InitialTipPop <= 0 {
		return fmt.Errorf("%w: InitialTipPop must be > 0, got %f", ErrInvalidConfig, cfg.InitialTipPop)
	}
	if cfg.InitialRootPop <= 0 {
		return fmt.Errorf("%w: InitialRootPop must be > 0, got %f", ErrInvalidConfig, cfg.InitialRootPop)
	}
	if cfg.InitialHybPop <= 0 {
		return fmt.Errorf("%w: InitialHybPop must be > 0, got %f", ErrInvalidConfig, cfg.InitialHybPop)
	}
	return nil
}

// applyDefaults fills in zero-valued config fields with their defaults.
func applyDefaults(cfg *Config) {
	if cfg.InitialTipPop == 0 {
		cfg.InitialTipPop = 1.0
	}
	if cfg.InitialRootPop == 0 {
		cfg.InitialRootPop = 1.0
	}
	if cfg.InitialHybPop == 0 {
		cfg.InitialHybPop = 1.0
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Source == nil && cfg.Seed != 0 {
		cfg.Source = rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)
	}
}
