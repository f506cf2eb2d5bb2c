package piece

import "fmt"

// TVal is the 32-bit word the abstract evaluator operates on. All arithmetic
// wraps modulo 2^32, matching the injected C's uint32_t semantics.
type TVal = uint32

// BugMacro is the ifdef macro guarding a single bug's injected code groups.
func BugMacro(bugID int) string {
	return fmt.Sprintf("RACEBENCH_BUG_%d", bugID)
}

// VarSet is the used/edited-variable-name set a Piece exposes.
type VarSet map[string]bool

func NewVarSet(names ...string) VarSet {
	s := make(VarSet, len(names))
	for _, n := range names {
		if n != "" {
			s[n] = true
		}
	}
	return s
}

func (s VarSet) Union(other VarSet) VarSet {
	out := make(VarSet, len(s)+len(other))
	for k := range s {
		out[k] = true
	}
	for k := range other {
		out[k] = true
	}
	return out
}

// Piece is a single injected C statement or block delimiter.
type Piece interface {
	Render() string
	UsedVars() VarSet
	EditVars() VarSet
}

// AssignImm writes a build-time-fixed literal into Var.
type AssignImm struct {
	Var string
	Imm TVal
}

func (p AssignImm) Render() string     { return fmt.Sprintf("%s = 0x%x;", p.Var, p.Imm) }
func (p AssignImm) UsedVars() VarSet   { return NewVarSet(p.Var) }
func (p AssignImm) EditVars() VarSet   { return NewVarSet(p.Var) }

// AssignVar copies the value of RVar into Var.
type AssignVar struct {
	Var  string
	RVar string
}

func (p AssignVar) Render() string   { return fmt.Sprintf("%s = %s;", p.Var, p.RVar) }
func (p AssignVar) UsedVars() VarSet { return NewVarSet(p.Var, p.RVar) }
func (p AssignVar) EditVars() VarSet { return NewVarSet(p.Var) }

// AssignInput reads a mutated input byte into Var, leaving Var unchanged if
// Index is out of range of the input.
type AssignInput struct {
	Var   string
	Index int
}

func (p AssignInput) Render() string {
	return fmt.Sprintf("if (%d < rb_input_size) { %s = rb_input[%d]; }", p.Index, p.Var, p.Index)
}
func (p AssignInput) UsedVars() VarSet { return NewVarSet(p.Var) }
func (p AssignInput) EditVars() VarSet { return NewVarSet(p.Var) }

// AssignExpr assigns the value of Expr to Var. The pattern generator and
// DUA chains build Expr as `var OP rhs`, so those assignments modify rather
// than overwrite Var — earlier abstract state written to Var stays
// reachable through it. The builder's Chain expansion of an Assume instead
// assigns a negated predicate to its variable outright.
type AssignExpr struct {
	Var  string
	Expr Expression
}

func (p AssignExpr) Render() string   { return fmt.Sprintf("%s = %s;", p.Var, p.Expr.Render()) }
func (p AssignExpr) UsedVars() VarSet { return NewVarSet(p.Var).Union(p.Expr.UsedVars()) }
func (p AssignExpr) EditVars() VarSet { return NewVarSet(p.Var) }

// AssignControl assigns RVar into Var only when Cond evaluates non-zero.
type AssignControl struct {
	Var  string
	Cond Expression
	RVar string
}

func (p AssignControl) Render() string {
	return fmt.Sprintf("if (%s) { %s = %s; }", p.Cond.Render(), p.Var, p.RVar)
}
func (p AssignControl) UsedVars() VarSet {
	return NewVarSet(p.Var, p.RVar).Union(p.Cond.UsedVars())
}
func (p AssignControl) EditVars() VarSet { return NewVarSet(p.Var) }

// IfCond opens a conditional block; the evaluator's skip depth tracks how
// many such blocks the current schedule position is nested inside.
type IfCond struct {
	Cond Expression
}

func (p IfCond) Render() string   { return fmt.Sprintf("if (%s) {", p.Cond.Render()) }
func (p IfCond) UsedVars() VarSet { return p.Cond.UsedVars() }
func (p IfCond) EditVars() VarSet { return nil }

// BlockEnd closes the nearest open IfCond block.
type BlockEnd struct{}

func (BlockEnd) Render() string   { return "}" }
func (BlockEnd) UsedVars() VarSet { return nil }
func (BlockEnd) EditVars() VarSet { return nil }

// LockAcquire models pthread_mutex_lock on the named lock variable.
type LockAcquire struct{ Var string }

func (p LockAcquire) Render() string   { return fmt.Sprintf("pthread_mutex_lock(&(%s));", p.Var) }
func (p LockAcquire) UsedVars() VarSet { return NewVarSet(p.Var) }
func (p LockAcquire) EditVars() VarSet { return NewVarSet(p.Var) }

// LockRelease models pthread_mutex_unlock on the named lock variable.
type LockRelease struct{ Var string }

func (p LockRelease) Render() string   { return fmt.Sprintf("pthread_mutex_unlock(&(%s));", p.Var) }
func (p LockRelease) UsedVars() VarSet { return NewVarSet(p.Var) }
func (p LockRelease) EditVars() VarSet { return NewVarSet(p.Var) }

// Wait models pthread_cond_wait on a condition-variable/lock pair.
type Wait struct {
	CondVar string
	Lock    string
}

func (p Wait) Render() string {
	return fmt.Sprintf("pthread_cond_wait(&(%s), &(%s));", p.CondVar, p.Lock)
}
func (p Wait) UsedVars() VarSet { return NewVarSet(p.CondVar, p.Lock) }
func (p Wait) EditVars() VarSet { return NewVarSet(p.CondVar, p.Lock) }

// Notify models pthread_cond_signal on a condition variable.
type Notify struct{ CondVar string }

func (p Notify) Render() string   { return fmt.Sprintf("pthread_cond_signal(&(%s));", p.CondVar) }
func (p Notify) UsedVars() VarSet { return NewVarSet(p.CondVar) }
func (p Notify) EditVars() VarSet { return NewVarSet(p.CondVar) }

// Sleep models usleep(TimeUS) — used by the OV.Sleep order-violation pattern
// to widen the race window instead of relying purely on interleave order.
type Sleep struct{ TimeUS int }

func (p Sleep) Render() string   { return fmt.Sprintf("usleep(%d);", p.TimeUS) }
func (p Sleep) UsedVars() VarSet { return nil }
func (p Sleep) EditVars() VarSet { return nil }

// Crash is the observable trigger: racebench_trigger records, in the
// checker pass, that this bug's crash site was reached.
type Crash struct{ BugID int }

func (p Crash) Render() string   { return fmt.Sprintf("racebench_trigger(%d);", p.BugID) }
func (p Crash) UsedVars() VarSet { return nil }
func (p Crash) EditVars() VarSet { return nil }

// IfdefBug opens the `#ifdef RACEBENCH_BUG_<id>` fence every non-empty
// CodeSite must begin with.
type IfdefBug struct{ BugID int }

func (p IfdefBug) Render() string   { return "#ifdef " + BugMacro(p.BugID) }
func (p IfdefBug) UsedVars() VarSet { return nil }
func (p IfdefBug) EditVars() VarSet { return nil }

// IfdefEnd closes the IfdefBug fence.
type IfdefEnd struct{}

func (IfdefEnd) Render() string   { return "#endif" }
func (IfdefEnd) UsedVars() VarSet { return nil }
func (IfdefEnd) EditVars() VarSet { return nil }

// Assume is a build-time-only marker piece: a pattern template's code
// column holds it in place of a concrete statement until the bug builder
// expands it (crash, chain, or nest) into real pieces — see spec.md §4.5.
// It is never committed to a CodeSite, so Render is unreachable.
type Assume struct{ Cond Expression }

func (p Assume) Render() string   { panic("piece: Assume is never rendered directly") }
func (p Assume) UsedVars() VarSet { return p.Cond.UsedVars() }
func (p Assume) EditVars() VarSet { return nil }
