// Command alloppnet builds a random allopolyploid species network from a
// YAML description of species and gene trees, and scores it.
package main

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat/distuv"
	"gopkg.in/yaml.v3"

	"github.com/TrevorS/alloppnet"
)

// gammaPrior is a Gamma(shape, rate) population prior.
type gammaPrior struct {
	Shape float64 `yaml:"shape"`
	Rate  float64 `yaml:"rate"`
}

// input is the YAML file read by every command.
type input struct {
	Species   []alloppnet.Species  `yaml:"species"`
	MinHeight float64              `yaml:"min_height"`
	GeneTrees []alloppnet.GeneNode `yaml:"gene_trees"`
	Prior     struct {
		Rate    *float64    `yaml:"rate"`
		TipPop  *gammaPrior `yaml:"tip_pop"`
		RootPop *gammaPrior `yaml:"root_pop"`
		HybPop  *gammaPrior `yaml:"hyb_pop"`
	} `yaml:"prior"`
}

var (
	speciesPath string
	seed        uint64
	oneHyb      bool
	diploidRoot bool
	debug       bool
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "alloppnet",
		Short: "Allopolyploid species networks under the multispecies coalescent",
	}
	root.PersistentFlags().StringVar(&speciesPath, "species", "species.yaml", "YAML file of species, gene trees and priors")
	root.PersistentFlags().Uint64Var(&seed, "seed", 0, "random seed, 0 for a random one")
	root.PersistentFlags().BoolVar(&oneHyb, "one-hyb", false, "put all tetraploids in one hybridization")
	root.PersistentFlags().BoolVar(&diploidRoot, "diploid-root", false, "require diploids on both sides of the root")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "check invariants and log to stderr")

	root.AddCommand(&cobra.Command{
		Use:   "network",
		Short: "Build a random initial network and print it",
		RunE:  runNetwork,
	})
	root.AddCommand(&cobra.Command{
		Use:   "score",
		Short: "Print the prior and coalescent log likelihood of a random initial network",
		RunE:  runScore,
	})
	return root
}

func load() (*input, *alloppnet.SpeciesBindings, *alloppnet.Network, error) {
	data, err := os.ReadFile(speciesPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("reading %s: %w", speciesPath, err)
	}
	var in input
	if err := yaml.Unmarshal(data, &in); err != nil {
		return nil, nil, nil, fmt.Errorf("parsing %s: %w", speciesPath, err)
	}
	if err := in.validate(); err != nil {
		return nil, nil, nil, fmt.Errorf("%s: %w", speciesPath, err)
	}

	logger := slog.New(slog.DiscardHandler)
	if debug {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	cfg := alloppnet.DefaultConfig()
	cfg.OneHybridization = oneHyb
	cfg.DiploidRootIsRoot = diploidRoot
	cfg.Seed = seed
	cfg.Debug = debug
	cfg.Logger = logger

	genes := make([]alloppnet.GeneTree, 0, len(in.GeneTrees))
	for g, gn := range in.GeneTrees {
		gt, err := alloppnet.NewSimpleGeneTree(gn)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("gene tree %d: %w", g, err)
		}
		genes = append(genes, gt)
	}
	opts := alloppnet.BindingsOptions{MinHeight: in.MinHeight, Logger: logger}
	if seed != 0 {
		opts.Source = newSource(seed)
	}
	b, err := alloppnet.NewSpeciesBindings(in.Species, genes, opts)
	if err != nil {
		return nil, nil, nil, err
	}
	net, err := alloppnet.NewNetwork(b, cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	return &in, b, net, nil
}

func runNetwork(cmd *cobra.Command, args []string) error {
	_, _, net, err := load()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprint(out, net.AsText())
	fmt.Fprintln(out, net.Newick())
	return nil
}

func runScore(cmd *cobra.Command, args []string) error {
	in, b, net, err := load()
	if err != nil {
		return err
	}
	prior := alloppnet.NetworkPrior{
		Rate:         1,
		TipPopPrior:  in.Prior.TipPop.dist(),
		RootPopPrior: in.Prior.RootPop.dist(),
		HybPopPrior:  in.Prior.HybPop.dist(),
	}
	if in.Prior.Rate != nil {
		prior.Rate = *in.Prior.Rate
	}
	lik := alloppnet.NewCoalescentLikelihood(b, net)
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, net.Newick())
	fmt.Fprintf(out, "log prior      %.10g\n", prior.LogPrior(net))
	for g, ll := range lik.GeneLogLikelihoods() {
		fmt.Fprintf(out, "gene tree %-4d %.10g\n", g, ll)
	}
	fmt.Fprintf(out, "log likelihood %.10g\n", lik.LogLikelihood())
	return nil
}

// validate rejects prior settings that would score every network -Inf. An
// absent rate defaults to 1; a present one must be positive.
func (in *input) validate() error {
	if r := in.Prior.Rate; r != nil && !(*r > 0) {
		return fmt.Errorf("%w: prior rate must be > 0, got %g", alloppnet.ErrInvalidConfig, *r)
	}
	for _, g := range []struct {
		name  string
		prior *gammaPrior
	}{
		{"tip_pop", in.Prior.TipPop},
		{"root_pop", in.Prior.RootPop},
		{"hyb_pop", in.Prior.HybPop},
	} {
		if g.prior == nil {
			continue
		}
		if !(g.prior.Shape > 0) || !(g.prior.Rate > 0) {
			return fmt.Errorf("%w: %s prior needs shape and rate > 0, got %g and %g",
				alloppnet.ErrInvalidConfig, g.name, g.prior.Shape, g.prior.Rate)
		}
	}
	return nil
}

func newSource(seed uint64) rand.Source {
	return rand.NewPCG(seed, ^seed)
}

func (g *gammaPrior) dist() alloppnet.PopulationPrior {
	if g == nil {
		return nil
	}
	return distuv.Gamma{Alpha: g.Shape, Beta: g.Rate}
}
