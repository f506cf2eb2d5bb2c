package pattern

import (
	"math/rand"

	"github.com/concuject/concuject/internal/domclient"
	"github.com/concuject/concuject/internal/piece"
	"github.com/concuject/concuject/internal/variable"
)

// OpType selects which order-violation shape to build.
type OpType int

const (
	NoWait OpType = iota
	Disorder
	Sleep
)

func (o OpType) String() string {
	switch o {
	case NoWait:
		return "NoWait"
	case Disorder:
		return "Disorder"
	case Sleep:
		return "Sleep"
	default:
		return "OpType(?)"
	}
}

// OrderViolation builds the three shapes where one thread assumes a
// producer has already run, while the actual producer-to-consumer
// ordering is left to the schedule rather than enforced by synchronization.
type OrderViolation struct {
	Reg *variable.Registry
	Rng *rand.Rand
}

// Generate builds one fully-parameterized OrderViolation instance.
func (o OrderViolation) Generate(opType OpType) *BugPattern {
	var code0, code1 []CodeGroup
	var lock0, lock1 []bool
	var order []int
	var domMode domclient.Mode

	switch opType {
	case NoWait:
		// code0: assume var==tmp
		// code1: v1{ tmp=...; var=tmp }
		tmp := o.Reg.NewVar(variable.Normal, false)
		varName := o.Reg.NewVar(variable.Normal, false)
		v1 := o.Reg.NewAssignMany(tmp, MinAssignLen, nil)
		v1 = append(v1, piece.NewReserved(piece.AssignVar{Var: varName, RVar: tmp}))
		ck := piece.ReservedAssume{Cond: piece.NewReservedExpr("==", piece.VarArg(varName), piece.VarArg(tmp))}
		code0 = []CodeGroup{{ck}}
		code1 = []CodeGroup{CodeGroup(v1)}
		lock0 = []bool{false}
		lock1 = []bool{true}
		order = []int{0, 1}
		domMode = domclient.Any

	case Disorder:
		// code0: if (cvar) { assume var==tmp }
		// code1: c1{ cvar=1 }; v1{ tmp=...; var=tmp }
		varName := o.Reg.NewVar(variable.Normal, false)
		tmp := o.Reg.NewVar(variable.Normal, false)
		cvar := o.Reg.NewVar(variable.Normal, false)
		cond := piece.NewReserved(piece.IfCond{Cond: piece.Expression{Op: "!=", Args: []piece.ExprArg{piece.VarRef(cvar), piece.Lit(0)}}})
		c1 := piece.NewReserved(piece.AssignImm{Var: cvar, Imm: 1})
		v1 := o.Reg.NewAssignMany(tmp, MinAssignLen, nil)
		v1 = append(v1, piece.NewReserved(piece.AssignVar{Var: varName, RVar: tmp}))
		ck := piece.ReservedAssume{Cond: piece.NewReservedExpr("==", piece.VarArg(varName), piece.VarArg(tmp))}
		code0 = []CodeGroup{{cond, ck, piece.NewReserved(piece.BlockEnd{})}}
		code1 = []CodeGroup{{c1}, CodeGroup(v1)}
		lock0 = []bool{false}
		lock1 = []bool{false, true}
		order = []int{1, 0, 1}
		domMode = domclient.PostOnly

	case Sleep:
		// code0: v0{ sleep() }; assume var==tmp
		// code1: v1{ tmp=...; var=tmp }
		tmp := o.Reg.NewVar(variable.Normal, false)
		varName := o.Reg.NewVar(variable.Normal, false)
		v1 := o.Reg.NewAssignMany(tmp, MinAssignLen, nil)
		v1 = append(v1, piece.NewReserved(piece.AssignVar{Var: varName, RVar: tmp}))
		ck := piece.ReservedAssume{Cond: piece.NewReservedExpr("==", piece.VarArg(varName), piece.VarArg(tmp))}
		v0 := piece.NewReserved(piece.Sleep{TimeUS: variable.SleepTimeUS})
		code0 = []CodeGroup{{v0}, {ck}}
		code1 = []CodeGroup{CodeGroup(v1)}
		lock0 = []bool{false, false}
		lock1 = []bool{true}
		order = []int{0, 1, 0}
		domMode = domclient.PreOnly
	}

	AddLocks(o.Rng, o.Reg, code0, lock0, code1, lock1)
	return newBugPattern(opType.String(), code0, code1, order, domMode)
}

// Generators lists a closure per op-type, in the fixed order
// NoWait/Disorder/Sleep.
func (o OrderViolation) Generators() []func() *BugPattern {
	return []func() *BugPattern{
		func() *BugPattern { return o.Generate(NoWait) },
		func() *BugPattern { return o.Generate(Disorder) },
		func() *BugPattern { return o.Generate(Sleep) },
	}
}
