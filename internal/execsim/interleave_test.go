package execsim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/concuject/concuject/internal/bugmodel"
	"github.com/concuject/concuject/internal/piece"
)

// Schedule causality: the generator pass never materializes a piece whose
// after_order barrier is still ahead of the current schedule index.
func TestExecWrap_Execute_RespectsAfterOrderBarrier(t *testing.T) {
	bug := bugmodel.NewBug(0, "in")
	fl := bugmodel.FileLine{Filename: "src.c", Line: 10}

	lp := bug.AppendCode(fl, piece.ReservedIfCond{
		Cond: piece.NewReservedExpr("==", piece.Lit32(1), piece.Lit32(1)),
	})
	lp.SetAfterOrder(5)

	ex := piece.NewExecutor(nil)
	wrap := NewExecWrap(bug, ex)
	wrap.SetGenerate(true)

	// codePtr 0 is the IfdefBug fence AppendCode opened automatically;
	// codePtr 1 is the ReservedIfCond itself.
	require.NoError(t, wrap.Execute(0, fl, 0))

	// orderIndex (2) < AfterOrder (5): must not materialize yet.
	require.NoError(t, wrap.Execute(2, fl, 1))
	assert.Nil(t, lp.Code, "piece must stay un-materialized before its after_order index")
	assert.Equal(t, 1, ex.State.SkipDepth(), "a not-yet-materialized IfCond still opens a skip level")

	ex2 := piece.NewExecutor(nil)
	wrap2 := NewExecWrap(bug, ex2)
	wrap2.SetGenerate(true)
	lp.Code = nil
	require.NoError(t, wrap2.Execute(0, fl, 0))
	require.NoError(t, wrap2.Execute(5, fl, 1))
	assert.NotNil(t, lp.Code, "piece must materialize once its after_order index is reached")
}

func TestInterleaveExec_ReplaysEveryCrossedCodePointerInOrder(t *testing.T) {
	bug := bugmodel.NewBug(0, "in")
	fl := bugmodel.FileLine{Filename: "src.c", Line: 1}

	var seen []int
	for i := 0; i < 3; i++ {
		bug.AppendCode(fl, piece.NewReserved(piece.AssignImm{Var: "v", Imm: piece.TVal(i)}))
	}
	site := bug.GetSite(fl)

	bug.AppendOrder(bugmodel.NewThreadPointer(0, site.ExlocStart(), bugmodel.Before))
	i3 := 4 // past the IfdefBug fence + 3 assigns
	bug.AppendOrder(bugmodel.NewThreadPointer(0, &bugmodel.LocBeforeLine{Site: site, CodePtr: &i3}, bugmodel.Before))

	execute := func(orderIndex int, fl bugmodel.FileLine, codePtr int) error {
		seen = append(seen, codePtr)
		return nil
	}
	maxCodePtr := func(bugmodel.FileLine) int { return len(bug.GetCode(fl)) }

	ie := NewInterleaveExec(bug.Order, execute, maxCodePtr)
	require.NoError(t, ie.Run())

	assert.Equal(t, []int{0, 1, 2, 3}, seen)
}
