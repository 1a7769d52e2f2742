// Package alloppnet implements an allopolyploid species network for
// Bayesian phylogenetic inference under the multispecies coalescent.
//
// A network is held as a diploid history (a binary tree of diploid species
// plus paired hybridization feet) and a set of legged trees, one per group
// of tetraploid species that share a hybridization event. On every committed
// edit the network is flattened into a multiply labelled tree (MUL-tree) in
// which each tetraploid species appears twice, once per parental genome.
// Gene trees are scored against that MUL-tree with a coalescent model whose
// population sizes vary linearly along each branch.
//
// Basic usage:
//
//	b, err := alloppnet.NewSpeciesBindings(species, geneTrees, alloppnet.BindingsOptions{MinHeight: 0.01})
//	net, err := alloppnet.NewNetwork(b, alloppnet.DefaultConfig())
//	lik := alloppnet.NewCoalescentLikelihood(b, net)
//	ll := lik.LogLikelihood() // -Inf when a gene tree does not fit
//
// # Edits
//
// All mutation happens inside an edit bracket. Proposals follow the usual
// store/mutate/accept-or-restore cycle:
//
//	net.StoreState()
//	_ = net.BeginEdit()
//	_ = net.FlipLegs(0)
//	_ = net.EndEdit()
//	if reject {
//		_ = net.RestoreState()
//	} else {
//		net.AcceptState()
//	}
package alloppnet
