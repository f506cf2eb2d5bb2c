package pattern

import (
	"math/rand"

	"github.com/concuject/concuject/internal/domclient"
	"github.com/concuject/concuject/internal/piece"
	"github.com/concuject/concuject/internal/variable"
)

// MinAssignLen is the minimum DUA-chain length new_assign_many builds for
// every pattern's generator blocks.
const MinAssignLen = 3

// CodeGroup is every piece queued at a single injection site within one
// pattern column.
type CodeGroup []piece.ReservedPiece

// BugPattern is a fully parameterized, not-yet-placed instance of one of
// the six templates: two per-thread code columns (each one or two site
// groups long), the thread-interleave order those groups execute in, and
// the dominance constraint between a two-group column's sites.
type BugPattern struct {
	Name    string
	Code0   []CodeGroup
	Code1   []CodeGroup
	Order   []int
	DomMode domclient.Mode

	usedVars piece.VarSet
}

func newBugPattern(name string, code0, code1 []CodeGroup, order []int, mode domclient.Mode) *BugPattern {
	used := piece.VarSet{}
	for _, col := range [][]CodeGroup{code0, code1} {
		for _, grp := range col {
			for _, c := range grp {
				used = used.Union(c.UsedVars())
			}
		}
	}
	return &BugPattern{Name: name, Code0: code0, Code1: code1, Order: order, DomMode: mode, usedVars: used}
}

// UsedVars is every variable read or written anywhere in the pattern,
// consulted by the location search to avoid colliding with existing
// injected code.
func (p *BugPattern) UsedVars() piece.VarSet {
	return p.usedVars
}

// Codes returns the code column for part (0 or 1) at the given group
// index.
func (p *BugPattern) Codes(part, index int) CodeGroup {
	if part == 0 {
		return p.Code0[index]
	}
	return p.Code1[index]
}

// PartLen is len(Code0) or len(Code1).
func (p *BugPattern) PartLen(part int) int {
	if part == 0 {
		return len(p.Code0)
	}
	return len(p.Code1)
}

// LockProb is the probability add_locks wraps a code group that wasn't
// already forced to carry a lock.
const LockProb = 0.2

// AddLocks wraps some of code0/code1's groups in acquire/release of one
// freshly allocated lock variable. lock0[i]/lock1[i] force that group to
// be wrapped regardless of the random draw — used by patterns whose race
// only manifests when one side is serialized against itself.
func AddLocks(rng *rand.Rand, reg *variable.Registry, code0 []CodeGroup, lock0 []bool, code1 []CodeGroup, lock1 []bool) {
	lvar := reg.NewVar(variable.Lock, false)
	cols := []struct {
		code []CodeGroup
		lock []bool
	}{
		{code0, lock0},
		{code1, lock1},
	}
	for _, col := range cols {
		for i := range col.code {
			if !(col.lock[i] || rng.Float64() < LockProb) {
				continue
			}
			grp := make(CodeGroup, 0, len(col.code[i])+2)
			grp = append(grp, piece.NewReserved(piece.LockAcquire{Var: lvar}))
			grp = append(grp, col.code[i]...)
			grp = append(grp, piece.NewReserved(piece.LockRelease{Var: lvar}))
			col.code[i] = grp
		}
	}
}
