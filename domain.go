package pathwalk

import (
	"fmt"
	"time"
)

// Domain represents the value domain of a symbolic variable.
type Domain int

// Available value domains. Seq & Map are only usable when the corresponding
// feature is enabled on the budget.
const (
	DomainAny Domain = iota
	DomainInt
	DomainBool
	DomainReal
	DomainString
	DomainSeq
	DomainMap
)

var domainNames = [...]string{
	DomainAny:    "any",
	DomainInt:    "int",
	DomainBool:   "bool",
	DomainReal:   "real",
	DomainString: "string",
	DomainSeq:    "seq",
	DomainMap:    "map",
}

// String returns the string representation of the domain.
func (d Domain) String() string {
	if d >= 0 && int(d) < len(domainNames) {
		return domainNames[d]
	}
	return fmt.Sprintf("Domain<%d>", int(d))
}

// FeatureSet gates the optional solver theories.
type FeatureSet uint

const (
	// FeatureSeq enables the sequence theory for list values.
	FeatureSeq FeatureSet = 1 << iota

	// FeatureMap enables the array theory for mapping values.
	FeatureMap
)

// Enabled returns true if all features in f are enabled.
func (fs FeatureSet) Enabled(f FeatureSet) bool {
	return fs&f == f
}

// Budget bounds a single exploration run. It is immutable configuration
// threaded through the run; the engine never reads process-wide state.
type Budget struct {
	// Maximum call-inlining depth. A state that would exceed it terminates
	// as budget-exceeded instead of entering the callee.
	MaxDepth int

	// Per-loop-header unrolling limit. Once a state reaches it the loop's
	// continue edge is removed, forcing exit.
	MaxLoopIters int

	// Maximum number of assembled paths. The scheduler stops admitting new
	// states once reached and flags the batch truncated.
	MaxPaths int

	// Session deadline for the whole run, checked before admitting each
	// state. Zero means no deadline.
	Timeout time.Duration

	// Time box for each individual solver check. Zero uses the adapter's
	// default.
	SolverTimeout time.Duration

	// Optional theories available to the translator.
	Features FeatureSet
}

// DefaultBudget returns a budget with conservative defaults.
func DefaultBudget() Budget {
	return Budget{
		MaxDepth:      8,
		MaxLoopIters:  10,
		MaxPaths:      256,
		Timeout:       30 * time.Second,
		SolverTimeout: 2 * time.Second,
		Features:      FeatureSeq,
	}
}
