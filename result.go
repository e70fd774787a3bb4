package pathwalk

import (
	"fmt"
	"math/big"
	"time"
)

// ValueKind identifies the domain of a portable value.
type ValueKind string

// Portable value kinds.
const (
	ValueInt    = ValueKind("int")
	ValueReal   = ValueKind("real")
	ValueBool   = ValueKind("bool")
	ValueString = ValueKind("string")
)

// Value is a portable concrete value: integers as exact decimal strings,
// reals as exact decimal strings when terminating and reduced fractions
// otherwise. It round-trips through JSON without loss.
type Value struct {
	Kind ValueKind `json:"kind"`
	Int  string    `json:"int,omitempty"`
	Real string    `json:"real,omitempty"`
	Bool bool      `json:"bool,omitempty"`
	Str  string    `json:"str,omitempty"`
}

// String returns the string representation of the value.
func (v Value) String() string {
	switch v.Kind {
	case ValueInt:
		return v.Int
	case ValueReal:
		return v.Real
	case ValueBool:
		return fmt.Sprintf("%v", v.Bool)
	case ValueString:
		return fmt.Sprintf("%q", v.Str)
	default:
		return fmt.Sprintf("Value<%s>", string(v.Kind))
	}
}

// IntValue returns an integer value from its decimal representation.
func IntValue(s string) Value { return Value{Kind: ValueInt, Int: s} }

// RealValue returns a real value from its decimal or fractional
// representation.
func RealValue(s string) Value { return Value{Kind: ValueReal, Real: s} }

// BoolValue returns a boolean value.
func BoolValue(b bool) Value { return Value{Kind: ValueBool, Bool: b} }

// StringValue returns a string value.
func StringValue(s string) Value { return Value{Kind: ValueString, Str: s} }

// TermValue converts a constant term to a portable value.
func TermValue(t Term) (Value, bool) {
	switch t := t.(type) {
	case *IntTerm:
		return IntValue(t.Value.String()), true
	case *RealTerm:
		return RealValue(FormatRat(t.Value)), true
	case *BoolTerm:
		return BoolValue(t.Value), true
	case *StrTerm:
		return StringValue(t.Value), true
	default:
		return Value{}, false
	}
}

// ConstTerm converts a portable value back to a constant term.
func ConstTerm(v Value) (Term, error) {
	switch v.Kind {
	case ValueInt:
		i, ok := new(big.Int).SetString(v.Int, 10)
		if !ok {
			return nil, fmt.Errorf("invalid integer value: %q", v.Int)
		}
		return &IntTerm{Value: i}, nil
	case ValueReal:
		r, ok := new(big.Rat).SetString(v.Real)
		if !ok {
			return nil, fmt.Errorf("invalid real value: %q", v.Real)
		}
		return &RealTerm{Value: r}, nil
	case ValueBool:
		return NewBoolTerm(v.Bool), nil
	case ValueString:
		return NewStrTerm(v.Str), nil
	default:
		return nil, fmt.Errorf("invalid value kind: %q", string(v.Kind))
	}
}

// FormatRat renders a rational exactly: a plain decimal string when the
// expansion terminates, a reduced fraction otherwise.
func FormatRat(r *big.Rat) string {
	if scale, ok := decimalScale(r.Denom()); ok {
		return r.FloatString(scale)
	}
	return r.RatString()
}

// decimalScale returns the number of fractional digits needed to write a
// fraction with denominator d exactly, or false when no finite expansion
// exists. d must be positive and reduced.
func decimalScale(d *big.Int) (int, bool) {
	two, five := big.NewInt(2), big.NewInt(5)
	rem := new(big.Int).Set(d)
	var twos, fives int
	m := new(big.Int)
	for new(big.Int).Mod(rem, two).Sign() == 0 {
		rem.DivMod(rem, two, m)
		twos++
	}
	for new(big.Int).Mod(rem, five).Sign() == 0 {
		rem.DivMod(rem, five, m)
		fives++
	}
	if rem.Cmp(big.NewInt(1)) != 0 {
		return 0, false
	}
	if twos > fives {
		return twos, true
	}
	return fives, true
}

// Path terminal kinds.
const (
	TerminalReturn    = "return"
	TerminalError     = "error"
	TerminalTruncated = "truncated"
)

// Path feasibility statuses.
const (
	StatusSat     = "sat"
	StatusUnknown = "unknown"
)

// Path is the record of one explored feasible path.
type Path struct {
	// Position in discovery order, starting at zero.
	ID int `json:"id"`

	// How the path ended: return, error, or truncated at a bound.
	Terminal string `json:"terminal"`

	// Error kind for error terminals: a raised kind or a hazard kind.
	ErrorKind string `json:"error_kind,omitempty"`

	// Ordered human-readable path condition.
	Constraints []string `json:"constraints"`

	// Concrete triggering inputs keyed by entry parameter name. Nil when
	// the status is unknown.
	Model map[string]Value `json:"model,omitempty"`

	// Concrete return value when one is derivable from the model.
	Return *Value `json:"return,omitempty"`

	// Feasibility status: sat, or unknown after a solver timeout.
	Status string `json:"status"`

	// Constructs that degraded to opaque values along this path.
	Notes []string `json:"notes,omitempty"`
}

// Truncation reasons.
const (
	ReasonPathCount = "path-count"
	ReasonTimeout   = "timeout"
)

// Batch is the result of one exploration run.
type Batch struct {
	// Entry function name.
	Func string `json:"func"`

	// Feasible paths in deterministic discovery order.
	Paths []*Path `json:"paths"`

	// Total candidate paths discovered, including pruned ones.
	Discovered int `json:"discovered"`

	// Candidate paths proven unreachable and dropped.
	Pruned int `json:"pruned"`

	// True when a budget cut exploration short.
	Truncated bool `json:"truncated"`

	// Which budget was hit: path-count or timeout. Empty when complete.
	Reason string `json:"reason,omitempty"`

	// Wall-clock duration of the run.
	Elapsed time.Duration `json:"elapsed"`
}

// assembler builds Path records in discovery order.
type assembler struct {
	params map[string]Domain // entry parameter names
	paths  []*Path
}

func newAssembler(params []Param) *assembler {
	m := make(map[string]Domain, len(params))
	for _, p := range params {
		m[p.Name] = p.Domain
	}
	return &assembler{params: m}
}

// add appends a path record built from a terminal state. The model is
// filtered down to entry parameters; a return term is concretized against the
// model when possible.
func (a *assembler) add(state *State, terminal, errKind string, ret Term, model map[string]Value, status string, notes []string) *Path {
	p := &Path{
		ID:          len(a.paths),
		Terminal:    terminal,
		ErrorKind:   errKind,
		Constraints: renderConstraints(state.Constraints()),
		Status:      status,
		Notes:       notes,
	}

	if model != nil {
		p.Model = make(map[string]Value, len(a.params))
		for name, v := range model {
			if _, ok := a.params[name]; ok {
				p.Model[name] = v
			}
		}
	}

	if ret != nil {
		if v, ok := concretize(ret, model); ok {
			p.Return = &v
		}
	}

	a.paths = append(a.paths, p)
	return p
}

func renderConstraints(pc []Term) []string {
	a := make([]string, len(pc))
	for i, t := range pc {
		a[i] = t.String()
	}
	return a
}

// concretize evaluates a term to a portable value using model bindings for
// its free variables.
func concretize(t Term, model map[string]Value) (Value, bool) {
	if IsConstTerm(t) {
		return TermValue(t)
	}
	if model == nil {
		return Value{}, false
	}

	m := make(map[string]Term, len(model))
	for symbol, v := range model {
		ct, err := ConstTerm(v)
		if err != nil {
			return Value{}, false
		}
		m[symbol] = ct
	}
	result, err := NewTermEvaluator(m).Evaluate(t)
	if err != nil {
		return Value{}, false
	}
	return TermValue(result)
}
