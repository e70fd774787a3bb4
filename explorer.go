package pathwalk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"
)

// Solver decides satisfiability of a conjunction of boolean terms and, when
// satisfiable, produces a concrete value per requested variable keyed by its
// symbol. Implementations time-box each check and return ErrSolverTimeout
// when the box expires.
type Solver interface {
	Check(ctx context.Context, constraints []Term, vars []*VarTerm) (sat bool, model map[string]Value, err error)
}

// PathState is one pending exploration state: the symbolic state plus the
// stack of call frames positioned inside the IR.
type PathState struct {
	state  *State
	frames []*frame
	notes  []string
}

func (ps *PathState) top() *frame { return ps.frames[len(ps.frames)-1] }

// fork returns two independent copies of ps.
func (ps *PathState) fork() (*PathState, *PathState) {
	a, b := &PathState{}, &PathState{}
	a.state, b.state = ps.state.Fork()
	a.frames = cloneFrames(ps.frames)
	b.frames = cloneFrames(ps.frames)
	a.notes = append([]string(nil), ps.notes...)
	b.notes = append([]string(nil), ps.notes...)
	return a, b
}

// frame is one level of call inlining: a function, the scope prefix its
// variables are stored under, the current position, and where the caller
// wants the return value bound.
type frame struct {
	fn     *Func
	prefix string
	block  int
	stmt   int
	retVar string // qualified caller variable, empty to discard
}

func cloneFrames(frames []*frame) []*frame {
	a := make([]*frame, len(frames))
	for i, fr := range frames {
		dup := *fr
		a[i] = &dup
	}
	return a
}

// Explorer enumerates the feasible paths of one function under a budget.
type Explorer struct {
	prog *Program
	fn   *Func

	// Budget bounds the run. Defaults to DefaultBudget().
	Budget Budget

	// Solver decides path feasibility. Must be set before Explore.
	Solver Solver

	// Searcher fixes the path discovery order. Defaults to depth-first.
	Searcher Searcher

	// Translator lowers expressions to terms. When nil, Explore derives one
	// from Budget.Features so feature changes made after construction hold.
	Translator *Translator

	// LogOutput receives progress logging. Defaults to discard.
	LogOutput io.Writer
}

// NewExplorer returns an explorer for fn. The program is consulted to
// resolve call sites for inlining and may be nil.
func NewExplorer(prog *Program, fn *Func) *Explorer {
	return &Explorer{
		prog:      prog,
		fn:        fn,
		Budget:    DefaultBudget(),
		Searcher:  NewDFSSearcher(),
		LogOutput: io.Discard,
	}
}

// errBudget unwinds a run once a batch-level budget is exhausted.
var errBudget = errors.New("budget exhausted")

// Explore runs the function with all parameters symbolic and returns the
// assembled batch. Identical budgets and inputs always produce an identical
// batch.
func (e *Explorer) Explore(ctx context.Context) (*Batch, error) {
	if e.fn == nil {
		return nil, &BuildError{Reason: "no function to explore"}
	} else if e.Solver == nil {
		return nil, &BuildError{Func: e.fn.Name, Reason: "no solver configured"}
	}

	run := &exploration{
		e:          e,
		asm:        newAssembler(e.fn.Params),
		searcher:   e.Searcher,
		translator: e.Translator,
		logger:     log.New(e.LogOutput, "", log.LstdFlags),
		start:      time.Now(),
	}
	if run.searcher == nil {
		run.searcher = NewDFSSearcher()
	}
	if run.translator == nil {
		run.translator = NewTranslator(TranslateOptions{Features: e.Budget.Features})
	}
	if e.Budget.Timeout > 0 {
		run.deadline = run.start.Add(e.Budget.Timeout)
	}

	// All entry parameters start symbolic at generation zero so their model
	// symbols match the source names.
	state := NewState()
	for _, p := range e.fn.Params {
		domain := p.Domain
		if domain == DomainAny {
			domain = DomainInt
		}
		var v *VarTerm
		v, state = state.FreshVar(p.Name, domain)
		run.paramVars = append(run.paramVars, v)
	}

	run.searcher.AddState(&PathState{
		state:  state,
		frames: []*frame{{fn: e.fn}},
	})
	run.discovered = 1

	for {
		ps := run.searcher.SelectState()
		if ps == nil {
			break
		}
		if err := run.admit(ctx); err != nil {
			if err == errBudget {
				break
			}
			return nil, err
		}
		if err := run.processState(ctx, ps); err != nil {
			if err == errBudget {
				break
			}
			return nil, err
		}
	}

	return &Batch{
		Func:       e.fn.Name,
		Paths:      run.asm.paths,
		Discovered: run.discovered,
		Pruned:     run.pruned,
		Truncated:  run.truncated,
		Reason:     run.reason,
		Elapsed:    time.Since(run.start),
	}, nil
}

// exploration is the mutable state of one Explore call.
type exploration struct {
	e          *Explorer
	asm        *assembler
	searcher   Searcher
	translator *Translator
	logger     *log.Logger

	start    time.Time
	deadline time.Time

	paramVars []*VarTerm

	discovered int
	pruned     int
	truncated  bool
	reason     string
	callSeq    int
}

// admit enforces the batch budgets before work is done on a state.
func (run *exploration) admit(ctx context.Context) error {
	if len(run.asm.paths) >= run.e.Budget.MaxPaths {
		return run.truncate(ReasonPathCount)
	}
	if ctx.Err() != nil || (!run.deadline.IsZero() && time.Now().After(run.deadline)) {
		return run.truncate(ReasonTimeout)
	}
	return nil
}

func (run *exploration) truncate(reason string) error {
	if !run.truncated {
		run.truncated = true
		run.reason = reason
		run.logger.Printf("[explore] truncated: %s", reason)
	}
	return errBudget
}

// processState runs ps until it forks, terminates, or is pruned.
func (run *exploration) processState(ctx context.Context, ps *PathState) error {
	for {
		fr := ps.top()
		blk := fr.fn.Blocks[fr.block]

		if fr.stmt < len(blk.Stmts) {
			stmt := blk.Stmts[fr.stmt]
			fr.stmt++
			done, err := run.execStmt(ctx, ps, stmt)
			if err != nil || done {
				return err
			}
			continue
		}

		done, err := run.execTerminator(ctx, ps, blk.Term)
		if err != nil || done {
			return err
		}
	}
}

// execStmt executes one straight-line statement. Returns done when the path
// reached a terminal or was handed back to the searcher.
func (run *exploration) execStmt(ctx context.Context, ps *PathState, stmt Stmt) (bool, error) {
	fr := ps.top()

	switch stmt := stmt.(type) {
	case *AssignStmt:
		if call, ok := stmt.Value.(*CallExpr); ok && run.e.prog.Resolve(call.Func) != nil {
			return run.inlineCall(ctx, ps, call, fr.prefix+stmt.Name)
		}
		out, err := run.translate(ctx, ps, stmt.Value, false)
		if err != nil || out == nil {
			return out == nil, err
		}
		ps.state = ps.state.Assign(fr.prefix+stmt.Name, out.Term)
		return false, nil

	case *ExprStmt:
		if call, ok := stmt.X.(*CallExpr); ok && run.e.prog.Resolve(call.Func) != nil {
			return run.inlineCall(ctx, ps, call, "")
		}
		// Evaluated for hazards only.
		out, err := run.translate(ctx, ps, stmt.X, false)
		if err != nil || out == nil {
			return out == nil, err
		}
		return false, nil

	case *OpaqueStmt:
		ps.notes = append(ps.notes, (&UnsupportedConstruct{Construct: stmt.Text}).Error())
		return false, nil

	default:
		return false, &BuildError{Func: fr.fn.Name, Reason: fmt.Sprintf("cannot execute statement: %T", stmt)}
	}
}

// execTerminator executes a block terminator. Returns done when the path
// reached a terminal or forked back to the searcher.
func (run *exploration) execTerminator(ctx context.Context, ps *PathState, term Terminator) (bool, error) {
	fr := ps.top()

	switch term := term.(type) {
	case *Jump:
		fr.block, fr.stmt = term.To, 0
		return false, nil

	case *Branch:
		return run.branch(ctx, ps, term.Cond, term.True, term.False, "")

	case *LoopTest:
		key := fmt.Sprintf("%s#b%d", fr.prefix, fr.block)
		if ps.state.LoopIter(key) >= run.e.Budget.MaxLoopIters {
			// Continue edge removed at the unrolling limit. The exit is taken
			// without the negated condition so the surviving path stays sound.
			ps.notes = append(ps.notes, fmt.Sprintf("loop at b%d unrolled to limit", fr.block))
			fr.block, fr.stmt = term.Exit, 0
			return false, nil
		}
		return run.branch(ctx, ps, term.Cond, term.Body, term.Exit, key)

	case *Return:
		var ret Term
		if term.Value != nil {
			out, err := run.translate(ctx, ps, term.Value, false)
			if err != nil || out == nil {
				return out == nil, err
			}
			ret = out.Term
		}

		if len(ps.frames) > 1 {
			// Pop the inlined frame and hand the value to the caller.
			retVar := fr.retVar
			ps.frames = ps.frames[:len(ps.frames)-1]
			ps.state = ps.state.DecDepth()
			if retVar != "" {
				if ret == nil {
					// A bare return binds an unconstrained value.
					var v *VarTerm
					v, ps.state = ps.state.NewVar("opaque!", DomainInt)
					ret = v
				}
				ps.state = ps.state.Assign(retVar, ret)
			}
			return false, nil
		}
		return true, run.finalize(ctx, ps.state, TerminalReturn, "", ret, ps.notes)

	case *Raise:
		return true, run.finalize(ctx, ps.state, TerminalError, term.Kind, nil, ps.notes)

	default:
		return false, &BuildError{Func: fr.fn.Name, Reason: fmt.Sprintf("cannot execute terminator: %T", term)}
	}
}

// branch forks on a condition. The loop key, when set, marks the true side
// as another loop iteration. Infeasible sides are pruned before they are
// ever scheduled.
func (run *exploration) branch(ctx context.Context, ps *PathState, cond Expr, trueTo, falseTo int, loopKey string) (bool, error) {
	fr := ps.top()
	out, err := run.translateBool(ctx, ps, cond)
	if err != nil || out == nil {
		return out == nil, err
	}

	// Constant conditions follow their edge without forking.
	if IsTrueTerm(out.Term) {
		if loopKey != "" {
			ps.state = ps.state.IncLoopIter(loopKey)
		}
		fr.block, fr.stmt = trueTo, 0
		return false, nil
	} else if IsFalseTerm(out.Term) {
		fr.block, fr.stmt = falseTo, 0
		return false, nil
	}

	trueState := ps.state.AddConstraint(out.Term)
	falseState := ps.state.AddConstraint(NewNotTerm(out.Term))
	if loopKey != "" {
		trueState = trueState.IncLoopIter(loopKey)
	}

	run.discovered++
	trueFeasible, err := run.feasible(ctx, trueState)
	if err != nil {
		return false, err
	}
	falseFeasible, err := run.feasible(ctx, falseState)
	if err != nil {
		return false, err
	}

	switch {
	case trueFeasible && falseFeasible:
		truePS, falsePS := ps.fork()
		truePS.state, falsePS.state = trueState, falseState
		truePS.top().block, truePS.top().stmt = trueTo, 0
		falsePS.top().block, falsePS.top().stmt = falseTo, 0
		// False side first; the depth-first searcher pops the true side next.
		run.searcher.AddState(falsePS)
		run.searcher.AddState(truePS)
		return true, nil

	case trueFeasible:
		run.pruned++
		ps.state = trueState
		fr.block, fr.stmt = trueTo, 0
		return false, nil

	case falseFeasible:
		run.pruned++
		ps.state = falseState
		fr.block, fr.stmt = falseTo, 0
		return false, nil

	default:
		run.pruned += 2
		run.logger.Printf("[explore] both branch sides infeasible at b%d", fr.block)
		return true, nil
	}
}

// inlineCall enters a resolvable call site. retVar is the qualified caller
// variable receiving the result, empty to discard it.
func (run *exploration) inlineCall(ctx context.Context, ps *PathState, call *CallExpr, retVar string) (bool, error) {
	callee := run.e.prog.Resolve(call.Func)

	if ps.state.Depth()+1 > run.e.Budget.MaxDepth {
		ps.notes = append(ps.notes, fmt.Sprintf("call to %s exceeds depth limit", call.Func))
		return true, run.finalize(ctx, ps.state, TerminalTruncated, "", nil, ps.notes)
	}
	if len(call.Args) != len(callee.Params) {
		// Arity mismatches degrade like any unsupported construct.
		ps.notes = append(ps.notes, (&UnsupportedConstruct{Construct: call.String()}).Error())
		if retVar != "" {
			var v *VarTerm
			v, ps.state = ps.state.NewVar("opaque!", DomainInt)
			ps.state = ps.state.Assign(retVar, v)
		}
		return false, nil
	}

	args := make([]Term, len(call.Args))
	for i, arg := range call.Args {
		out, err := run.translate(ctx, ps, arg, false)
		if err != nil || out == nil {
			return out == nil, err
		}
		args[i] = out.Term
	}

	run.callSeq++
	prefix := fmt.Sprintf("%s!%d.", call.Func, run.callSeq)
	for i, p := range callee.Params {
		ps.state = ps.state.Assign(prefix+p.Name, args[i])
	}
	ps.state = ps.state.IncDepth()
	ps.frames = append(ps.frames, &frame{fn: callee, prefix: prefix, retVar: retVar})
	return false, nil
}

// translate lowers an expression in the current frame's scope and settles
// its hazards. A nil result with nil error means the path terminated while
// settling a hazard.
func (run *exploration) translate(ctx context.Context, ps *PathState, x Expr, boolCtx bool) (*Translation, error) {
	fr := ps.top()
	var out *Translation
	var err error
	if boolCtx {
		out, err = run.translator.TranslateBoolIn(ps.state, fr.prefix, x)
	} else {
		out, err = run.translator.TranslateIn(ps.state, fr.prefix, x)
	}
	if err != nil {
		return nil, err
	}

	ps.state = out.State
	ps.notes = append(ps.notes, out.Notes...)
	for _, h := range out.Hazards {
		terminal, err := run.settleHazard(ctx, ps, h)
		if err != nil {
			return nil, err
		} else if terminal {
			return nil, nil
		}
	}
	return out, nil
}

func (run *exploration) translateBool(ctx context.Context, ps *PathState, x Expr) (*Translation, error) {
	return run.translate(ctx, ps, x, true)
}

// settleHazard splits off the error path on which the hazard fires and
// constrains the surviving path with its negation. Returns true when the
// surviving path itself became infeasible.
func (run *exploration) settleHazard(ctx context.Context, ps *PathState, h Hazard) (bool, error) {
	errState := ps.state.AddConstraint(h.Cond)
	run.discovered++
	if err := run.finalize(ctx, errState, TerminalError, h.Kind, nil, ps.notes); err != nil {
		return false, err
	}

	ps.state = ps.state.AddConstraint(NewNotTerm(h.Cond))
	feasible, err := run.feasible(ctx, ps.state)
	if err != nil {
		return false, err
	}
	if !feasible {
		// The fault is unavoidable here; only the error path survives.
		run.pruned++
		return true, nil
	}
	return false, nil
}

// finalize runs the terminal solver check for a completed path and assembles
// its record. Infeasible terminals are pruned silently; a solver timeout
// keeps the path with status unknown and no model.
func (run *exploration) finalize(ctx context.Context, state *State, terminal, errKind string, ret Term, notes []string) error {
	if err := run.admit(ctx); err != nil {
		return err
	}

	sat, model, err := run.check(ctx, state)
	if err != nil {
		switch err {
		case ErrSolverTimeout, ErrSolverUnknown, ErrSolverResourceLimit:
			p := run.asm.add(state, terminal, errKind, ret, nil, StatusUnknown, notes)
			run.logger.Printf("[explore] path %d: %s (%s)", p.ID, terminal, StatusUnknown)
			return nil
		default:
			return err
		}
	}
	if !sat {
		run.pruned++
		return nil
	}

	p := run.asm.add(state, terminal, errKind, ret, model, StatusSat, notes)
	run.logger.Printf("[explore] path %d: %s", p.ID, terminal)
	return nil
}

// feasible reports whether a state's path condition is satisfiable. Solver
// timeouts count as feasible so no reachable path is lost.
func (run *exploration) feasible(ctx context.Context, state *State) (bool, error) {
	sat, _, err := run.check(ctx, state)
	if err != nil {
		switch err {
		case ErrSolverTimeout, ErrSolverUnknown, ErrSolverResourceLimit:
			return true, nil
		default:
			return false, err
		}
	}
	return sat, nil
}

// check runs one solver query over a state's path condition. Entry
// parameters are always requested so every model names complete triggering
// inputs even when a parameter is unconstrained.
func (run *exploration) check(ctx context.Context, state *State) (bool, map[string]Value, error) {
	if state.HasFalseConstraint() {
		return false, nil, nil
	}

	vars := append([]*VarTerm(nil), run.paramVars...)
	seen := make(map[string]struct{}, len(vars))
	for _, v := range vars {
		seen[v.Symbol()] = struct{}{}
	}
	for _, v := range state.Vars() {
		if _, ok := seen[v.Symbol()]; !ok {
			vars = append(vars, v)
		}
	}
	return run.e.Solver.Check(ctx, state.Constraints(), vars)
}
