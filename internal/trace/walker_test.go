package trace

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/concuject/concuject/internal/bugmodel"
)

func buildAlternatingTrace(t *testing.T, n int, blacklistLine int) *Trace {
	t.Helper()
	positions := make([]ThreadPos, 0, n)
	for i := 0; i < n; i++ {
		fl := bugmodel.FileLine{Filename: "src.c", Line: 10 + i}
		positions = append(positions, ThreadPos{Tid: i % 2, LineLoc: bugmodel.Before, FileLine: &fl})
	}
	bl := Blacklist{}
	if blacklistLine != 0 {
		bl["src.c"] = map[int]bool{blacklistLine: true}
	}
	return NewTrace(positions, bl, "/src")
}

// Eligibility: every FileLine the walker ever hands out as an injection
// site is accepted by the injection checker and absent from the trace
// blacklist.
func TestWalker_AvailablePos_NeverYieldsBlacklistedOrRejectedLines(t *testing.T) {
	blacklistLine := 11
	tr := buildAlternatingTrace(t, 6, blacklistLine)
	bug := bugmodel.NewBug(0, "in")
	rejectedLine := 13

	checker := func(fl bugmodel.FileLine) bool {
		if tr.InBlacklist(fl) {
			return false
		}
		return fl.Line != rejectedLine
	}
	rng := rand.New(rand.NewSource(1))
	w := NewWalker(tr, bug, checker, rng)

	for idx := 1; idx < tr.Len(); idx++ {
		w.MoveTo(idx)
		for _, tp := range w.AvailablePos() {
			fl := tp.Location.FileLine()
			assert.False(t, tr.InBlacklist(fl), "walker offered blacklisted line %v", fl)
			assert.NotEqual(t, rejectedLine, fl.Line, "walker offered a line the checker rejects")
			assert.True(t, checker(fl))
		}
	}
}

func TestWalker_GetOnePos_ReturnsErrWhenExhausted(t *testing.T) {
	tr := buildAlternatingTrace(t, 2, 0)
	bug := bugmodel.NewBug(0, "in")
	rng := rand.New(rand.NewSource(1))
	w := NewWalker(tr, bug, func(bugmodel.FileLine) bool { return false }, rng)
	w.MoveTo(1)

	_, err := w.GetOnePos()
	require.ErrorIs(t, err, ErrNoAvailablePosition)
}

func TestWalker_MarkUse_ExcludesThreadUntilNextAdvance(t *testing.T) {
	tr := buildAlternatingTrace(t, 4, 0)
	bug := bugmodel.NewBug(0, "in")
	rng := rand.New(rand.NewSource(1))
	w := NewWalker(tr, bug, func(bugmodel.FileLine) bool { return true }, rng)
	w.MoveTo(2)

	first, err := w.GetOnePos()
	require.NoError(t, err)
	for _, tp := range w.AvailablePos() {
		assert.NotEqual(t, first.Tid, tp.Tid)
	}
}
