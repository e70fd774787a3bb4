package z3

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"
	"unsafe"

	"github.com/pathwalk/pathwalk"
)

/*
#cgo LDFLAGS: -lz3
#include <z3.h>
#include <stdlib.h>
#include <stdio.h>
*/
import "C"

// Ensure solver implements interface.
var _ pathwalk.Solver = (*Solver)(nil)

// DefaultTimeout is the per-check time box applied when none is configured.
const DefaultTimeout = 2 * time.Second

// Solver decides path feasibility with an embedded Z3 solver over the
// integer, real, boolean and sequence theories.
type Solver struct {
	ctx   *Context
	stats Stats

	// Timeout is the time box for each individual check.
	Timeout time.Duration
}

// NewSolver returns a new instance of Solver.
func NewSolver() *Solver {
	return &Solver{
		ctx:     NewContext(),
		Timeout: DefaultTimeout,
	}
}

// Close deletes the underlying Z3 context.
func (s *Solver) Close() error {
	return s.ctx.Close()
}

// Stats returns statistics for the solver.
func (s *Solver) Stats() Stats {
	return s.stats
}

// Check reports whether the conjunction of constraints is satisfiable and,
// when it is, returns a portable value per requested variable. An expired
// time box returns pathwalk.ErrSolverTimeout.
func (s *Solver) Check(ctx context.Context, constraints []pathwalk.Term, vars []*pathwalk.VarTerm) (satisfiable bool, model map[string]pathwalk.Value, err error) {
	t := time.Now()
	defer func() {
		s.stats.CheckN++
		s.stats.CheckTime += time.Since(t)
	}()

	solver := C.Z3_mk_solver(s.ctx.raw)
	if err := s.ctx.err("Z3_mk_solver"); err != nil {
		return false, nil, err
	}
	C.Z3_solver_inc_ref(s.ctx.raw, solver)
	defer C.Z3_solver_dec_ref(s.ctx.raw, solver)

	if err := s.setTimeout(ctx, solver); err != nil {
		return false, nil, err
	}

	// Assert constraints.
	for _, constraint := range constraints {
		z3Constraint, err := s.ctx.toAST(constraint)
		if err != nil {
			return false, nil, err
		}
		C.Z3_solver_assert(s.ctx.raw, solver, z3Constraint)
		if err := s.ctx.err("Z3_solver_assert"); err != nil {
			return false, nil, err
		}
	}

	// Check equations with the solver.
	// Exit immediately if unsatisfiable or the solver encountered an error.
	ret := C.Z3_solver_check(s.ctx.raw, solver)
	if err := s.ctx.err("Z3_solver_check"); err != nil {
		return false, nil, err
	} else if ret == C.Z3_L_FALSE {
		return false, nil, nil
	} else if ret == C.Z3_L_UNDEF {
		reason := C.GoString(C.Z3_solver_get_reason_unknown(s.ctx.raw, solver))
		switch {
		case strings.Contains(reason, "timeout"):
			return false, nil, pathwalk.ErrSolverTimeout
		case strings.Contains(reason, "canceled"):
			return false, nil, pathwalk.ErrSolverCanceled
		case strings.Contains(reason, "(resource limits reached)"):
			return false, nil, pathwalk.ErrSolverResourceLimit
		case strings.Contains(reason, "unknown"):
			return false, nil, pathwalk.ErrSolverUnknown
		default:
			return false, nil, fmt.Errorf("z3: %s", reason)
		}
	} else if len(vars) == 0 {
		return true, map[string]pathwalk.Value{}, nil // no symbolics, ignore model
	}

	// Calculate a model for the given formula.
	z3Model := C.Z3_solver_get_model(s.ctx.raw, solver)
	if err := s.ctx.err("Z3_solver_get_model"); err != nil {
		return true, nil, err
	}
	C.Z3_model_inc_ref(s.ctx.raw, z3Model)
	defer C.Z3_model_dec_ref(s.ctx.raw, z3Model)

	model, err = s.ctx.eval(z3Model, vars)
	if err != nil {
		return true, nil, err
	}
	return true, model, nil
}

// setTimeout applies the tighter of the configured time box and the context
// deadline as the solver's per-check timeout.
func (s *Solver) setTimeout(ctx context.Context, solver C.Z3_solver) error {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		timeout = time.Millisecond
	}

	params := C.Z3_mk_params(s.ctx.raw)
	if err := s.ctx.err("Z3_mk_params"); err != nil {
		return err
	}
	C.Z3_params_inc_ref(s.ctx.raw, params)
	defer C.Z3_params_dec_ref(s.ctx.raw, params)

	cname := C.CString("timeout")
	defer C.free(unsafe.Pointer(cname))
	symbol := C.Z3_mk_string_symbol(s.ctx.raw, cname)
	C.Z3_params_set_uint(s.ctx.raw, params, symbol, C.uint(timeout.Milliseconds()))
	if err := s.ctx.err("Z3_params_set_uint"); err != nil {
		return err
	}

	C.Z3_solver_set_params(s.ctx.raw, solver, params)
	return s.ctx.err("Z3_solver_set_params")
}

// Context represents a Z3 context object that is used for constructing terms.
type Context struct {
	raw C.Z3_context
}

// NewContext returns a new instance of Context.
func NewContext() *Context {
	config := C.Z3_mk_config()
	defer C.Z3_del_config(config)

	raw := C.Z3_mk_context(config)
	C.Z3_set_error_handler(raw, nil)
	C.Z3_set_ast_print_mode(raw, C.Z3_PRINT_SMTLIB2_COMPLIANT)
	return &Context{raw: raw}
}

// Close deletes the underlying Z3 context.
func (ctx *Context) Close() error {
	C.Z3_del_context(ctx.raw)
	return ctx.err("Z3_del_context")
}

// err returns the error for the last API call. Returns nil if last call was successful.
func (ctx *Context) err(op string) error {
	if code := C.Z3_get_error_code(ctx.raw); code != C.Z3_OK {
		return &Error{Code: int(code), Op: op, Message: C.GoString(C.Z3_get_error_msg(ctx.raw, code))}
	}
	return nil
}

// toAST returns a new instance of Z3_ast from a pathwalk term.
func (ctx *Context) toAST(t pathwalk.Term) (C.Z3_ast, error) {
	switch t := t.(type) {
	case *pathwalk.IntTerm:
		return ctx.makeIntNumeral(t.Value)
	case *pathwalk.RealTerm:
		return ctx.makeRealNumeral(t.Value)
	case *pathwalk.BoolTerm:
		if t.Value {
			return ctx.makeTrue()
		}
		return ctx.makeFalse()
	case *pathwalk.StrTerm:
		return ctx.makeString(t.Value)
	case *pathwalk.VarTerm:
		return ctx.makeVar(t)
	case *pathwalk.SeqTerm:
		return ctx.toSeqAST(t)
	case *pathwalk.LenTerm:
		return ctx.toLenAST(t)
	case *pathwalk.AtTerm:
		return ctx.toAtAST(t)
	case *pathwalk.ToRealTerm:
		return ctx.toToRealAST(t)
	case *pathwalk.NotTerm:
		return ctx.toNotAST(t)
	case *pathwalk.IteTerm:
		return ctx.toIteAST(t)
	case *pathwalk.BinaryTerm:
		return ctx.toBinaryAST(t)
	default:
		return nil, fmt.Errorf("z3.Context.toAST: invalid term type: %T", t)
	}
}

func (ctx *Context) toSeqAST(t *pathwalk.SeqTerm) (C.Z3_ast, error) {
	elemSort, err := ctx.makeSort(t.Elem)
	if err != nil {
		return nil, err
	}
	seqSort := C.Z3_mk_seq_sort(ctx.raw, elemSort)
	if err := ctx.err("Z3_mk_seq_sort"); err != nil {
		return nil, err
	}

	if len(t.Elems) == 0 {
		return C.Z3_mk_seq_empty(ctx.raw, seqSort), ctx.err("Z3_mk_seq_empty")
	}

	units := make([]C.Z3_ast, len(t.Elems))
	for i, e := range t.Elems {
		ast, err := ctx.toAST(e)
		if err != nil {
			return nil, err
		}
		units[i] = C.Z3_mk_seq_unit(ctx.raw, ast)
		if err := ctx.err("Z3_mk_seq_unit"); err != nil {
			return nil, err
		}
	}
	if len(units) == 1 {
		return units[0], nil
	}
	return C.Z3_mk_seq_concat(ctx.raw, C.uint(len(units)), &units[0]), ctx.err("Z3_mk_seq_concat")
}

func (ctx *Context) toLenAST(t *pathwalk.LenTerm) (C.Z3_ast, error) {
	src, err := ctx.toAST(t.X)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_seq_length(ctx.raw, src), ctx.err("Z3_mk_seq_length")
}

func (ctx *Context) toAtAST(t *pathwalk.AtTerm) (C.Z3_ast, error) {
	seq, err := ctx.toAST(t.Seq)
	if err != nil {
		return nil, err
	}
	index, err := ctx.toAST(t.Index)
	if err != nil {
		return nil, err
	}

	// Selecting from a string yields the one-element string; selecting from
	// any other sequence yields the element itself.
	if t.Elem == pathwalk.DomainString {
		return C.Z3_mk_seq_at(ctx.raw, seq, index), ctx.err("Z3_mk_seq_at")
	}
	return C.Z3_mk_seq_nth(ctx.raw, seq, index), ctx.err("Z3_mk_seq_nth")
}

func (ctx *Context) toToRealAST(t *pathwalk.ToRealTerm) (C.Z3_ast, error) {
	src, err := ctx.toAST(t.X)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_int2real(ctx.raw, src), ctx.err("Z3_mk_int2real")
}

func (ctx *Context) toNotAST(t *pathwalk.NotTerm) (C.Z3_ast, error) {
	src, err := ctx.toAST(t.X)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_not(ctx.raw, src), ctx.err("Z3_mk_not")
}

func (ctx *Context) toIteAST(t *pathwalk.IteTerm) (C.Z3_ast, error) {
	cond, err := ctx.toAST(t.Cond)
	if err != nil {
		return nil, err
	}
	then, err := ctx.toAST(t.Then)
	if err != nil {
		return nil, err
	}
	els, err := ctx.toAST(t.Else)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_ite(ctx.raw, cond, then, els), ctx.err("Z3_mk_ite")
}

func (ctx *Context) toBinaryAST(t *pathwalk.BinaryTerm) (C.Z3_ast, error) {
	lhs, err := ctx.toAST(t.LHS)
	if err != nil {
		return nil, err
	}
	rhs, err := ctx.toAST(t.RHS)
	if err != nil {
		return nil, err
	}

	switch t.Op {
	case pathwalk.ADD:
		args := [2]C.Z3_ast{lhs, rhs}
		return C.Z3_mk_add(ctx.raw, 2, &args[0]), ctx.err("Z3_mk_add")
	case pathwalk.SUB:
		args := [2]C.Z3_ast{lhs, rhs}
		return C.Z3_mk_sub(ctx.raw, 2, &args[0]), ctx.err("Z3_mk_sub")
	case pathwalk.MUL:
		args := [2]C.Z3_ast{lhs, rhs}
		return C.Z3_mk_mul(ctx.raw, 2, &args[0]), ctx.err("Z3_mk_mul")
	case pathwalk.DIV:
		return C.Z3_mk_div(ctx.raw, lhs, rhs), ctx.err("Z3_mk_div")
	case pathwalk.MOD:
		return C.Z3_mk_mod(ctx.raw, lhs, rhs), ctx.err("Z3_mk_mod")

	case pathwalk.EQ:
		return C.Z3_mk_eq(ctx.raw, lhs, rhs), ctx.err("Z3_mk_eq")
	case pathwalk.LT:
		if pathwalk.TermDomain(t.LHS) == pathwalk.DomainString {
			return C.Z3_mk_str_lt(ctx.raw, lhs, rhs), ctx.err("Z3_mk_str_lt")
		}
		return C.Z3_mk_lt(ctx.raw, lhs, rhs), ctx.err("Z3_mk_lt")
	case pathwalk.LE:
		if pathwalk.TermDomain(t.LHS) == pathwalk.DomainString {
			return C.Z3_mk_str_le(ctx.raw, lhs, rhs), ctx.err("Z3_mk_str_le")
		}
		return C.Z3_mk_le(ctx.raw, lhs, rhs), ctx.err("Z3_mk_le")
	case pathwalk.GT:
		return C.Z3_mk_gt(ctx.raw, lhs, rhs), ctx.err("Z3_mk_gt")
	case pathwalk.GE:
		return C.Z3_mk_ge(ctx.raw, lhs, rhs), ctx.err("Z3_mk_ge")

	case pathwalk.AND:
		args := [2]C.Z3_ast{lhs, rhs}
		return C.Z3_mk_and(ctx.raw, 2, &args[0]), ctx.err("Z3_mk_and")
	case pathwalk.OR:
		args := [2]C.Z3_ast{lhs, rhs}
		return C.Z3_mk_or(ctx.raw, 2, &args[0]), ctx.err("Z3_mk_or")

	case pathwalk.CONCAT:
		args := [2]C.Z3_ast{lhs, rhs}
		return C.Z3_mk_seq_concat(ctx.raw, 2, &args[0]), ctx.err("Z3_mk_seq_concat")
	case pathwalk.CONTAINS:
		return C.Z3_mk_seq_contains(ctx.raw, lhs, rhs), ctx.err("Z3_mk_seq_contains")
	case pathwalk.HASPREFIX:
		return C.Z3_mk_seq_prefix(ctx.raw, rhs, lhs), ctx.err("Z3_mk_seq_prefix")
	case pathwalk.HASSUFFIX:
		return C.Z3_mk_seq_suffix(ctx.raw, rhs, lhs), ctx.err("Z3_mk_seq_suffix")

	default:
		return nil, fmt.Errorf("z3.Context.toBinaryAST: unexpected operation: %s", t.Op)
	}
}

func (ctx *Context) makeTrue() (C.Z3_ast, error) {
	return C.Z3_mk_true(ctx.raw), ctx.err("Z3_mk_true")
}

func (ctx *Context) makeFalse() (C.Z3_ast, error) {
	return C.Z3_mk_false(ctx.raw), ctx.err("Z3_mk_false")
}

// makeIntNumeral returns an integer numeral of unbounded magnitude.
func (ctx *Context) makeIntNumeral(v *big.Int) (C.Z3_ast, error) {
	sort, err := ctx.makeSort(pathwalk.DomainInt)
	if err != nil {
		return nil, err
	}
	cstr := C.CString(v.String())
	defer C.free(unsafe.Pointer(cstr))
	return C.Z3_mk_numeral(ctx.raw, cstr, sort), ctx.err("Z3_mk_numeral")
}

// makeRealNumeral returns an exact rational numeral.
func (ctx *Context) makeRealNumeral(v *big.Rat) (C.Z3_ast, error) {
	sort, err := ctx.makeSort(pathwalk.DomainReal)
	if err != nil {
		return nil, err
	}
	cstr := C.CString(v.RatString())
	defer C.free(unsafe.Pointer(cstr))
	return C.Z3_mk_numeral(ctx.raw, cstr, sort), ctx.err("Z3_mk_numeral")
}

func (ctx *Context) makeString(v string) (C.Z3_ast, error) {
	cstr := C.CString(v)
	defer C.free(unsafe.Pointer(cstr))
	return C.Z3_mk_lstring(ctx.raw, C.uint(len(v)), cstr), ctx.err("Z3_mk_lstring")
}

// makeVar declares an uninterpreted constant for a symbolic variable.
func (ctx *Context) makeVar(t *pathwalk.VarTerm) (C.Z3_ast, error) {
	sort, err := ctx.makeSort(t.Domain)
	if err != nil {
		return nil, err
	}
	cname := C.CString(t.Symbol())
	defer C.free(unsafe.Pointer(cname))
	symbol := C.Z3_mk_string_symbol(ctx.raw, cname)
	return C.Z3_mk_const(ctx.raw, symbol, sort), ctx.err("Z3_mk_const")
}

func (ctx *Context) makeSort(domain pathwalk.Domain) (C.Z3_sort, error) {
	switch domain {
	case pathwalk.DomainInt, pathwalk.DomainAny:
		return C.Z3_mk_int_sort(ctx.raw), ctx.err("Z3_mk_int_sort")
	case pathwalk.DomainReal:
		return C.Z3_mk_real_sort(ctx.raw), ctx.err("Z3_mk_real_sort")
	case pathwalk.DomainBool:
		return C.Z3_mk_bool_sort(ctx.raw), ctx.err("Z3_mk_bool_sort")
	case pathwalk.DomainString:
		return C.Z3_mk_string_sort(ctx.raw), ctx.err("Z3_mk_string_sort")
	case pathwalk.DomainSeq:
		elem := C.Z3_mk_int_sort(ctx.raw)
		if err := ctx.err("Z3_mk_int_sort"); err != nil {
			return nil, err
		}
		return C.Z3_mk_seq_sort(ctx.raw, elem), ctx.err("Z3_mk_seq_sort")
	default:
		return nil, fmt.Errorf("z3.Context.makeSort: invalid domain: %s", domain)
	}
}

// eval extracts portable values for the given variables from a model.
// Variables whose domain has no portable form are omitted.
func (ctx *Context) eval(model C.Z3_model, vars []*pathwalk.VarTerm) (map[string]pathwalk.Value, error) {
	values := make(map[string]pathwalk.Value, len(vars))
	for _, v := range vars {
		value, ok, err := ctx.evalVar(model, v)
		if err != nil {
			return nil, err
		} else if ok {
			values[v.Symbol()] = value
		}
	}
	return values, nil
}

// evalVar evaluates a single variable against the model with completion, so
// unconstrained variables still receive a concrete value.
func (ctx *Context) evalVar(model C.Z3_model, v *pathwalk.VarTerm) (pathwalk.Value, bool, error) {
	ast, err := ctx.makeVar(v)
	if err != nil {
		return pathwalk.Value{}, false, err
	}

	var out C.Z3_ast
	C.Z3_model_eval(ctx.raw, model, ast, C.bool(true), &out)
	if err := ctx.err("Z3_model_eval"); err != nil {
		return pathwalk.Value{}, false, err
	}

	switch v.Domain {
	case pathwalk.DomainInt, pathwalk.DomainAny:
		s := C.GoString(C.Z3_get_numeral_string(ctx.raw, out))
		if err := ctx.err("Z3_get_numeral_string"); err != nil {
			return pathwalk.Value{}, false, err
		}
		return pathwalk.IntValue(s), true, nil

	case pathwalk.DomainReal:
		s := C.GoString(C.Z3_get_numeral_string(ctx.raw, out))
		if err := ctx.err("Z3_get_numeral_string"); err != nil {
			return pathwalk.Value{}, false, err
		}
		r, ok := new(big.Rat).SetString(s)
		if !ok {
			return pathwalk.Value{}, false, fmt.Errorf("z3: invalid real numeral: %q", s)
		}
		return pathwalk.RealValue(pathwalk.FormatRat(r)), true, nil

	case pathwalk.DomainBool:
		ret := C.Z3_get_bool_value(ctx.raw, out)
		if err := ctx.err("Z3_get_bool_value"); err != nil {
			return pathwalk.Value{}, false, err
		}
		return pathwalk.BoolValue(ret == C.Z3_L_TRUE), true, nil

	case pathwalk.DomainString:
		s := C.GoString(C.Z3_get_string(ctx.raw, out))
		if err := ctx.err("Z3_get_string"); err != nil {
			return pathwalk.Value{}, false, err
		}
		return pathwalk.StringValue(s), true, nil

	default:
		return pathwalk.Value{}, false, nil
	}
}

func (ctx *Context) astToString(ast C.Z3_ast) string {
	return C.GoString(C.Z3_ast_to_string(ctx.raw, ast))
}

func (ctx *Context) sortToString(t C.Z3_sort) string {
	return C.GoString(C.Z3_sort_to_string(ctx.raw, t))
}

func (ctx *Context) modelToString(model C.Z3_model) string {
	return C.GoString(C.Z3_model_to_string(ctx.raw, model))
}

// Error represents an error from the Z3 API.
type Error struct {
	Code    int
	Op      string
	Message string
}

// Error returns the error as a string.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s (%d)", e.Op, e.Message, e.Code)
}

// Possible error codes.
const (
	ErrorCodeOK = iota
	ErrorCodeSortError
	ErrorCodeIOB
	ErrorCodeInvalidArg
	ErrorCodeParserError
	ErrorCodeNoParser
	ErrorCodeInvalidPattern
	ErrorCodeMemoutFail
	ErrorCodeFileAccessError
	ErrorCodeInternalFatal
	ErrorCodeInvalidUsage
	ErrorCodeDecRefError
	ErrorCodeException
)

// Stats records aggregate solver usage for a run.
type Stats struct {
	CheckN    int
	CheckTime time.Duration
}
