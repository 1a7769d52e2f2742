package alloppnet

import "errors"

var (
	// ErrInvalidConfig is returned for out-of-range Config or BindingsOptions fields.
	ErrInvalidConfig = errors.New("alloppnet: invalid config")

	// ErrUnknownSpecies is returned when a name matches no species or taxon.
	ErrUnknownSpecies = errors.New("alloppnet: unknown species or taxon")

	// ErrPloidy is returned for an odd or unsupported ploidy, or an
	// individual whose taxon count does not match its species' ploidy.
	ErrPloidy = errors.New("alloppnet: bad ploidy")

	// ErrPopulationCount means the MUL-tree used a different number of
	// populations than the network holds.
	ErrPopulationCount = errors.New("alloppnet: population count mismatch")

	ErrNotEditing     = errors.New("alloppnet: not inside an edit")
	ErrEditInProgress = errors.New("alloppnet: edit already in progress")

	// ErrInvalidMove is returned by a structural move whose arguments do
	// not describe a legal change to the current network.
	ErrInvalidMove = errors.New("alloppnet: invalid move")
)
