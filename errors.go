// Package rebop implements the core of a stochastic simulator for
// well-mixed chemical reaction networks: exact trajectories of the
// continuous-time Markov chain defined by Gillespie's Direct Method SSA.
//
// A caller builds an Engine, registers reactions (with either a
// law-of-mass-action constant or a free-form rate expression), sets initial
// species counts, and drives the simulation with AdvanceUntil,
// AdvanceOneReaction, or the higher-level Run sampling driver.
package rebop

import (
	"fmt"

	"github.com/molsim/rebop/parser"
	"github.com/molsim/rebop/rate"
)

// The following are re-exported for ergonomic single-import error handling
// with errors.As; their definitions live in the packages that raise them.
type (
	// ParseError reports a malformed rate expression (spec §4.1, §7).
	ParseError = parser.ParseError
	// UndefinedSymbolError is raised when a rate expression references an
	// unresolved name at evaluation time (spec §4.1, §7).
	UndefinedSymbolError = rate.UndefinedSymbolError
	// AmbiguousNameError is raised when an identifier resolves to both a
	// parameter and a species (spec §6, §7).
	AmbiguousNameError = rate.AmbiguousNameError
	// RateNegativeError is raised when a rate expression evaluates to a
	// negative propensity (spec §4.1, §7).
	RateNegativeError = rate.RateNegativeError
	// DomainError is raised on a non-finite or out-of-domain evaluation,
	// e.g. log of a non-positive number (spec §4.1, §7).
	DomainError = rate.DomainError
	// DivisionByZeroError is raised when a `/` node evaluates a zero
	// divisor (spec §4.1, §7).
	DivisionByZeroError = rate.DivisionByZeroError
)

// RateNegativeAtInitError reports a law-of-mass-action rate constant that
// is negative at AddReaction time (spec §6's add_reaction table names this
// case distinctly from the generic InvalidArgumentError, reserving
// InvalidArgument for tmax/n_steps/count validation instead).
type RateNegativeAtInitError struct {
	Value float64
}

func (e *RateNegativeAtInitError) Error() string {
	return fmt.Sprintf("rebop: rate constant negative at initialization: %g", e.Value)
}

// InvalidArgumentError reports a caller-supplied argument outside its
// documented domain (spec §6, §7): a negative count, tmax < t, n_steps < 0.
type InvalidArgumentError struct {
	Message string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("rebop: invalid argument: %s", e.Message)
}

// InvalidStateError reports an attempt to mutate the network (add a
// reaction or change a parameter) while a run is in progress (spec §5, §7).
type InvalidStateError struct {
	Message string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("rebop: invalid state: %s", e.Message)
}
