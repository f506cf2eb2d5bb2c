package variable

import (
	"math"

	"github.com/concuject/concuject/internal/piece"
)

// NewAssign builds a single AssignExpr piece that mutates var by one of five
// strategies, chosen uniformly among those whose argument appetite the
// given use_vars can satisfy: literal (consumes none), input byte (none),
// single variable (at most one), control-conditional (at most two), or a
// multi-term expression (any number).
func (r *Registry) NewAssign(varName string, useVars []string) piece.ReservedPiece {
	type method struct {
		maxUse int
		build  func([]string) piece.ArgSource
	}
	methods := []method{
		{0, r.assignImmArg},
		{0, r.assignInputArg},
		{1, r.assignVarArg},
		{2, r.assignControlArg},
		{math.MaxInt, r.assignExprArg},
	}
	var avail []method
	for _, m := range methods {
		if len(useVars) <= m.maxUse {
			avail = append(avail, m)
		}
	}
	m := avail[r.rng.Intn(len(avail))]
	rhs := m.build(useVars)
	op := r.randomOp()
	return piece.ReservedAssignExpr{
		Var:  varName,
		Expr: piece.NewReservedExpr(op, piece.VarArg(varName), rhs),
	}
}

func (r *Registry) assignImmArg([]string) piece.ArgSource {
	return piece.Lit32(r.randomValue())
}

func (r *Registry) assignInputArg([]string) piece.ArgSource {
	index := r.rng.Intn(len(r.input))
	return piece.InputArg(index, r.randomValue())
}

func (r *Registry) assignVarArg(useVars []string) piece.ArgSource {
	if len(useVars) == 1 {
		return piece.VarArg(useVars[0])
	}
	return piece.VarArg(r.OldVar(false))
}

func (r *Registry) assignControlArg(useVars []string) piece.ArgSource {
	rest := append([]string{}, useVars...)
	pop := func() string {
		if len(rest) == 0 {
			return r.OldVar(false)
		}
		v := rest[len(rest)-1]
		rest = rest[:len(rest)-1]
		return v
	}
	rvar := pop()
	cvar := pop()
	cond := piece.NewReservedExpr("==", piece.VarArg(cvar), piece.Expected(cvar))
	fallback := r.randomValue()
	return piece.Nested(piece.NewReservedExpr("?:", piece.Nested(cond), piece.VarArg(rvar), piece.Lit32(fallback)))
}

func (r *Registry) assignExprArg(useVars []string) piece.ArgSource {
	extra := len(useVars)
	if extra < 1 {
		extra = 1
	}
	args := make([]piece.ArgSource, 0, len(useVars)+extra)
	for _, v := range useVars {
		args = append(args, piece.VarArg(v))
	}
	for i := 0; i < extra; i++ {
		if r.rng.Float64() < ProbRandImm {
			args = append(args, piece.Lit32(r.randomValue()))
		} else {
			args = append(args, piece.VarArg(r.OldVar(false)))
		}
	}
	r.rng.Shuffle(len(args), func(i, j int) { args[i], args[j] = args[j], args[i] })

	cur := piece.ArgSource(piece.Lit32(r.randomValue()))
	for _, a := range args {
		op := r.randomOp()
		cur = piece.Nested(piece.NewReservedExpr(op, cur, a))
	}
	return cur
}

// NewAssignMany produces a define-use chain: minLen seed values (each
// either a fresh immediate, which emits an assignment, or a read of an
// existing variable, which emits nothing), then repeatedly assigns a fresh
// variable from zero to two values taken off the front of the in-flight
// list (useVars first, then the seeds) and appends it, until a single value
// remains, which is finally merged into var. This is what gives each
// pattern column a code block long enough to make the race window
// observable.
func (r *Registry) NewAssignMany(varName string, minLen int, useVars []string) []piece.ReservedPiece {
	var ans []piece.ReservedPiece

	seen := make(map[string]bool, len(useVars)+minLen)
	var use []string
	addUse := func(v string) {
		if !seen[v] {
			seen[v] = true
			use = append(use, v)
		}
	}
	for _, v := range useVars {
		addUse(v)
	}
	for i := 0; i < minLen; i++ {
		var v string
		if r.rng.Float64() < ProbRandImm {
			v = r.NewVar(Normal, false)
			ans = append(ans, piece.NewReserved(piece.AssignImm{Var: v, Imm: r.randomValue()}))
		} else {
			v = r.OldVar(false)
		}
		addUse(v)
	}

	for len(use) > 1 {
		num := r.rng.Intn(min(len(use), 2) + 1)
		if num == 0 && len(use) >= 1 && len(ans) > minLen {
			num = 1
		}
		curUse := append([]string{}, use[:num]...)
		v := r.NewVar(Normal, true)
		ans = append(ans, r.NewAssign(v, curUse))
		use = append(append([]string{}, use[num:]...), v)
	}

	v := use[0]
	op := r.randomOp()
	ans = append(ans, piece.ReservedAssignExpr{
		Var:  varName,
		Expr: piece.NewReservedExpr(op, piece.VarArg(varName), piece.VarArg(v)),
	})
	return ans
}
