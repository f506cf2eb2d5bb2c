package piece

// ArgSource resolves to a concrete [ExprArg] at materialize time. Lit32,
// VarArg, and InputArg sources resolve to themselves immediately; Expected defers to the
// live simulator state — it is the only source that actually needs the
// two-phase split.
type ArgSource interface {
	resolve(*State) ExprArg
}

type litSource TVal

func (a litSource) resolve(*State) ExprArg { return Lit(a) }

// Lit32 is a build-time-fixed literal argument.
func Lit32(v TVal) ArgSource { return litSource(v) }

type varSource string

func (a varSource) resolve(*State) ExprArg { return VarRef(a) }

// VarArg names a state variable read as an argument.
func VarArg(name string) ArgSource { return varSource(name) }

type inputSource InputValue

func (a inputSource) resolve(*State) ExprArg { return InputValue(a) }

// InputArg reads a mutated-input byte as an argument.
func InputArg(index int, fallback TVal) ArgSource { return inputSource{Index: index, Fallback: fallback} }

// expectedSource is the lazy "expected" value: at materialize time it
// captures the simulator's current value of name, freezing it into a Lit
// so the guard it appears in compares against the value written by the
// schedule entries that ran before materialization (see after_order in
// bugmodel.LazyPiece).
type expectedSource string

func (a expectedSource) resolve(s *State) ExprArg { return Lit(s.Get(string(a))) }

// Expected defers reading name's current value to materialize time.
func Expected(name string) ArgSource { return expectedSource(name) }

// ReservedExpr builds an [Expression] lazily: every argument is resolved
// against the live state exactly once, at materialization.
type ReservedExpr struct {
	Op   string
	Args []ArgSource
}

func NewReservedExpr(op string, args ...ArgSource) ReservedExpr {
	return ReservedExpr{Op: op, Args: args}
}

func (r ReservedExpr) resolve(s *State) ExprArg {
	return r.Materialize(s)
}

func (r ReservedExpr) Materialize(s *State) *Expression {
	args := make([]ExprArg, len(r.Args))
	for i, a := range r.Args {
		args[i] = a.resolve(s)
	}
	return &Expression{Op: r.Op, Args: args}
}

// ReservedPiece is the generator half of a [bugmodel.LazyPiece]: it defers
// building a concrete Piece until the simulator reaches it, because some
// reserved pieces embed a [ReservedExpr] that reads live state.
//
// Four kinds cover everything appended to a CodeSite: Reserved (any piece
// with wholly build-time-known args), ReservedIfCond and
// ReservedAssignExpr/ReservedAssignControl (the three piece shapes that
// carry a ReservedExpr and so may read Expected at materialize time). The
// pattern library also emits [ReservedAssume], which the bug builder
// expands into those kinds first.
type ReservedPiece interface {
	Materialize(*State) Piece
	UsedVars() VarSet
	EditVars() VarSet
}

func usedEditOf(rp ReservedPiece) (VarSet, VarSet) {
	p := rp.Materialize(NewState())
	return p.UsedVars(), p.EditVars()
}

// Reserved wraps a piece whose args are already fully known at build time
// (AssignImm, AssignVar, AssignInput, LockAcquire, LockRelease, Wait,
// Notify, Sleep, Crash, IfdefBug, IfdefEnd, BlockEnd).
type Reserved struct {
	Build func() Piece
}

func NewReserved(p Piece) Reserved { return Reserved{Build: func() Piece { return p }} }

func (r Reserved) Materialize(*State) Piece { return r.Build() }
func (r Reserved) UsedVars() VarSet         { u, _ := usedEditOf(r); return u }
func (r Reserved) EditVars() VarSet         { _, e := usedEditOf(r); return e }

// ReservedIfCond wraps IfCond's expression, and is singled out from the
// generic Reserved so the bug builder can record the schedule index at
// which its guard was appended — the after_order barrier that defers
// materialization of the pre_cond guard until every earlier write in the
// schedule has executed.
type ReservedIfCond struct {
	Cond ReservedExpr
}

func (r ReservedIfCond) Materialize(s *State) Piece { return IfCond{Cond: *r.Cond.Materialize(s)} }
func (r ReservedIfCond) UsedVars() VarSet           { u, _ := usedEditOf(r); return u }
func (r ReservedIfCond) EditVars() VarSet           { _, e := usedEditOf(r); return e }

// ReservedAssignExpr wraps AssignExpr's RHS expression.
type ReservedAssignExpr struct {
	Var  string
	Expr ReservedExpr
}

func (r ReservedAssignExpr) Materialize(s *State) Piece {
	return AssignExpr{Var: r.Var, Expr: *r.Expr.Materialize(s)}
}
func (r ReservedAssignExpr) UsedVars() VarSet { u, _ := usedEditOf(r); return u }
func (r ReservedAssignExpr) EditVars() VarSet { _, e := usedEditOf(r); return e }

// ReservedAssignControl wraps AssignControl's guard expression.
type ReservedAssignControl struct {
	Var  string
	Cond ReservedExpr
	RVar string
}

func (r ReservedAssignControl) Materialize(s *State) Piece {
	return AssignControl{Var: r.Var, Cond: *r.Cond.Materialize(s), RVar: r.RVar}
}
func (r ReservedAssignControl) UsedVars() VarSet { u, _ := usedEditOf(r); return u }
func (r ReservedAssignControl) EditVars() VarSet { _, e := usedEditOf(r); return e }

// ReservedAssume wraps Assume's predicate: it never reaches a CodeSite
// directly. The bug builder expands it into a concrete ReservedPiece
// sequence (direct crash, a chained guard variable, or a nested pattern)
// before anything is appended to a site; UsedVars is consulted beforehand
// to drive the pattern-location-selection variable-collision check.
type ReservedAssume struct {
	Cond ReservedExpr
}

func (r ReservedAssume) Materialize(s *State) Piece { return Assume{Cond: *r.Cond.Materialize(s)} }
func (r ReservedAssume) UsedVars() VarSet           { u, _ := usedEditOf(r); return u }
func (r ReservedAssume) EditVars() VarSet           { _, e := usedEditOf(r); return e }

// Negate returns the logical negation of a ReservedExpr, used when
// expanding an Assume (the concrete code must guard against the predicate
// being false).
func Negate(e ReservedExpr) ReservedExpr {
	return ReservedExpr{Op: "!", Args: []ArgSource{nestedSource{e}}}
}

type nestedSource struct{ e ReservedExpr }

func (n nestedSource) resolve(s *State) ExprArg { return n.e.resolve(s) }

// Nested embeds a ReservedExpr as an argument of an outer ReservedExpr,
// so it materializes into a parenthesized sub-[Expression] rather than a
// bare literal or variable reference.
func Nested(e ReservedExpr) ArgSource { return nestedSource{e} }
