package pattern

import (
	"math/rand"

	"github.com/concuject/concuject/internal/domclient"
	"github.com/concuject/concuject/internal/piece"
	"github.com/concuject/concuject/internal/variable"
)

// AccType selects which atomicity-violation shape to build.
type AccType int

const (
	WWA AccType = iota
	RWA
	WAW
)

func (a AccType) String() string {
	switch a {
	case WWA:
		return "WWA"
	case RWA:
		return "RWA"
	case WAW:
		return "WAW"
	default:
		return "AccType(?)"
	}
}

// AtomicityViolation builds the three accumulate-then-overwrite shapes: one
// thread reads-or-derives a value across a multi-instruction window while
// assuming it stays stable, and a second thread's single write slips in
// during that window.
type AtomicityViolation struct {
	Reg *variable.Registry
	Rng *rand.Rand
}

// Generate builds one fully-parameterized AtomicityViolation instance.
func (a AtomicityViolation) Generate(accType AccType) *BugPattern {
	var code0, code1 []CodeGroup
	var lock0, lock1 []bool
	var order []int
	var domMode domclient.Mode

	switch accType {
	case WWA:
		// code0: v1{ tvar=...; var=tvar }; assume var==tvar
		// code1: v2{ var=... }
		varName := a.Reg.NewVar(variable.Normal, false)
		tvar := a.Reg.NewVar(variable.Normal, false)
		v1 := a.Reg.NewAssignMany(tvar, MinAssignLen, nil)
		v1 = append(v1, piece.NewReserved(piece.AssignVar{Var: varName, RVar: tvar}))
		v2 := a.Reg.NewAssignMany(varName, MinAssignLen, nil)
		ck := piece.ReservedAssume{Cond: piece.NewReservedExpr("==", piece.VarArg(varName), piece.VarArg(tvar))}
		code0 = []CodeGroup{CodeGroup(v1), {ck}}
		code1 = []CodeGroup{CodeGroup(v2)}
		lock0 = []bool{true, false}
		lock1 = []bool{false}
		order = []int{0, 1, 0}
		domMode = domclient.PreOnly

	case RWA:
		// code0: tmp=var; assume var==tmp
		// code1: v2{ var=... }
		varName := a.Reg.OldVar(true)
		a.Reg.SetEditable(varName, false)
		tmp := a.Reg.NewVar(variable.Normal, false)
		v1 := piece.NewReserved(piece.AssignVar{Var: tmp, RVar: varName})
		v2 := a.Reg.NewAssignMany(varName, MinAssignLen, nil)
		ck := piece.ReservedAssume{Cond: piece.NewReservedExpr("==", piece.VarArg(varName), piece.VarArg(tmp))}
		code0 = []CodeGroup{{v1}, {ck}}
		code1 = []CodeGroup{CodeGroup(v2)}
		lock0 = []bool{false, false}
		lock1 = []bool{false}
		order = []int{0, 1, 0}
		domMode = domclient.PreOnly

	case WAW:
		// code0: v1{ tmp1=...; var=tmp1 }; v2{ tmp2=...; var=tmp2 }
		// code1: if (var != 0) assume var==tmp2
		varName := a.Reg.NewVar(variable.Normal, false)
		tmp1 := a.Reg.NewVar(variable.Normal, true)
		v1 := a.Reg.NewAssignMany(tmp1, MinAssignLen, nil)
		v1 = append(v1, piece.NewReserved(piece.AssignVar{Var: varName, RVar: tmp1}))
		tmp2 := a.Reg.NewVar(variable.Normal, false)
		v2 := a.Reg.NewAssignMany(tmp2, MinAssignLen, nil)
		v2 = append(v2, piece.NewReserved(piece.AssignVar{Var: varName, RVar: tmp2}))
		ck0 := piece.NewReserved(piece.IfCond{Cond: piece.Expression{Op: "!=", Args: []piece.ExprArg{piece.VarRef(varName), piece.Lit(0)}}})
		ck1 := piece.ReservedAssume{Cond: piece.NewReservedExpr("==", piece.VarArg(varName), piece.VarArg(tmp2))}
		code0 = []CodeGroup{CodeGroup(v1), CodeGroup(v2)}
		code1 = []CodeGroup{{ck0, ck1, piece.NewReserved(piece.BlockEnd{})}}
		lock0 = []bool{false, true}
		lock1 = []bool{false}
		order = []int{0, 1, 0}
		domMode = domclient.PostOnly
	}

	AddLocks(a.Rng, a.Reg, code0, lock0, code1, lock1)
	return newBugPattern(accType.String(), code0, code1, order, domMode)
}

// Generators lists a closure per accumulate-type, in the fixed order
// WWA/RWA/WAW, for the pattern generator's uniform-random selection.
func (a AtomicityViolation) Generators() []func() *BugPattern {
	return []func() *BugPattern{
		func() *BugPattern { return a.Generate(WWA) },
		func() *BugPattern { return a.Generate(RWA) },
		func() *BugPattern { return a.Generate(WAW) },
	}
}
