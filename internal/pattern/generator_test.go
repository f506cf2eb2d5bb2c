package pattern

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/concuject/concuject/internal/bugmodel"
	"github.com/concuject/concuject/internal/domclient"
	"github.com/concuject/concuject/internal/trace"
	"github.com/concuject/concuject/internal/variable"
)

// recordingOracle answers every query with a fixed set of "good" lines for
// a single tracked file, and records the arguments of its last call.
type recordingOracle struct {
	goodLines      []int
	lastFile       string
	lastLine       int
	lastMode       domclient.Mode
	calls          int
}

func (o *recordingOracle) Query(_ context.Context, sourceFile string, line int, mode domclient.Mode) ([]int, error) {
	o.calls++
	o.lastFile, o.lastLine, o.lastMode = sourceFile, line, mode
	return o.goodLines, nil
}

func buildDominanceTrace(t *testing.T) *trace.Trace {
	t.Helper()
	mk := func(tid int, line int) trace.ThreadPos {
		fl := bugmodel.FileLine{Filename: "src.c", Line: line}
		return trace.ThreadPos{Tid: tid, LineLoc: bugmodel.Before, FileLine: &fl}
	}
	positions := []trace.ThreadPos{
		mk(0, 1),  // index 1
		mk(1, 2),  // index 2
		mk(0, 30), // index 3: candidate second location
		mk(1, 2),  // index 4: repeats thread 1's line, stopping the search
	}
	return trace.NewTrace(positions, trace.Blacklist{}, "/src")
}

// Dominator conformance: for patterns whose dom_mode asks for a dominance
// relation, the second site chosen for a two-group column is always one
// the dominator oracle reported for the pattern's first site.
func TestGenerator_Generate_SecondLocationAlwaysOracleApproved(t *testing.T) {
	tr := buildDominanceTrace(t)
	allow := func(bugmodel.FileLine) bool { return true }
	oracle := &recordingOracle{goodLines: []int{30}}

	foundSecondLocation := false
	for seed := int64(1); seed <= 200; seed++ {
		rng := rand.New(rand.NewSource(seed))
		reg := variable.NewRegistry(0, []byte{1, 2, 3, 4}, rng)
		bug := bugmodel.NewBug(0, "in")
		walker := trace.NewWalker(tr, bug, allow, rng)
		walker.MoveTo(2)

		av := AtomicityViolation{Reg: reg, Rng: rng}
		g := &Generator{Reg: reg, Rng: rng, Dom: oracle, generators: []func() *BugPattern{
			func() *BugPattern { return av.Generate(WWA) },
		}}

		bp, locs0, _, err := g.Generate(context.Background(), walker)
		require.NoError(t, err)
		require.Equal(t, domclient.PreOnly, bp.DomMode)
		require.Len(t, locs0, 2)

		if locs0[1].FileLine != locs0[0].FileLine {
			foundSecondLocation = true
			assert.Contains(t, oracle.goodLines, locs0[1].FileLine.Line)
			assert.Equal(t, "src.c", locs0[1].FileLine.Filename)
			assert.Equal(t, domclient.PreOnly, oracle.lastMode)
			assert.Equal(t, locs0[0].FileLine.Line, oracle.lastLine)
		}
	}

	assert.True(t, foundSecondLocation, "expected at least one seed to exercise the dominator-filtered second location")
}
