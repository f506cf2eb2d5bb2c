package builder

import (
	"context"
	"math/rand"

	"github.com/concuject/concuject/internal/bugmodel"
	"github.com/concuject/concuject/internal/domclient"
	"github.com/concuject/concuject/internal/execsim"
	"github.com/concuject/concuject/internal/pattern"
	"github.com/concuject/concuject/internal/piece"
	"github.com/concuject/concuject/internal/trace"
	"github.com/concuject/concuject/internal/variable"
)

// State is one bug-extraction attempt in progress: the trace being walked,
// the variable registry and pattern generator drawing from the same *rand.Rand
// as the walker, and the bug being assembled.
type State struct {
	trace      *trace.Trace
	inputBytes []byte
	rng        *rand.Rand

	Reg        *variable.Registry
	Bug        *bugmodel.Bug
	Walker     *trace.Walker
	PatternGen *pattern.Generator
}

// NewState builds a fresh attempt. locChecker should already fold in the
// trace's own blacklist — callers compose it with Trace.InBlacklist before
// passing it in, the way Extractor.Extract does.
func NewState(bugID int, tr *trace.Trace, dom domclient.Oracle, locChecker trace.LocationChecker, inputFile string, inputBytes []byte, rng *rand.Rand) *State {
	reg := variable.NewRegistry(bugID, inputBytes, rng)
	bug := bugmodel.NewBug(bugID, inputFile)
	walker := trace.NewWalker(tr, bug, locChecker, rng)
	patternGen := pattern.NewGenerator(reg, rng, dom)
	return &State{
		trace:      tr,
		inputBytes: inputBytes,
		rng:        rng,
		Reg:        reg,
		Bug:        bug,
		Walker:     walker,
		PatternGen: patternGen,
	}
}

// TraceLen is the number of recorded events in the underlying trace.
func (s *State) TraceLen() int { return s.trace.Len() }

// RandomIndex samples indexes uniformly from [start, stop) until it finds
// one with at least count available positions, giving up after (stop-start)
// attempts.
func (s *State) RandomIndex(count, start, stop int) (int, error) {
	total := stop - start
	for i := 0; i < total; i++ {
		index := start + s.rng.Intn(total)
		if len(s.Walker.AvailablePosAt(index)) >= count {
			return index, nil
		}
	}
	return 0, ErrNoPosition
}

// probOld weights the preference for an old, already-edited variable over
// a fresh one: the weight is 2*x/pathLen, where x is the number of editable
// variables so far, so it rises as more variables become editable, falls as
// pathLen grows, and saturates at 1.
func probOld(x, pathLen int) float64 {
	p := float64(x) * (2.0 / float64(pathLen))
	if p > 1.0 {
		return 1.0
	}
	return p
}

// SelectEditVar picks the variable the next DUA-chain step mutates, biased
// toward reusing an already-editable variable the more of them exist
// relative to pathLen.
func (s *State) SelectEditVar(pathLen int) string {
	varCount := s.Reg.CountEditableVars()
	if probOld(varCount, pathLen) > s.rng.Float64() {
		return s.Reg.OldVar(true)
	}
	return s.Reg.NewVar(variable.Normal, true)
}

// AddBug builds one DUA chain of pathLen mutation steps ending in a pattern
// placement, recursing (via a Chain-expanded Assume) to extend the bug
// further when the pattern's guard asks for it.
func (s *State) AddBug(ctx context.Context, pathLen int) error {
	startIndex := s.Walker.Current()
	traceLen := s.TraceLen()
	if max := (traceLen - startIndex) / 2; pathLen > max {
		pathLen = max
	}
	startIndex2 := startIndex + 1 + pathLen
	if limit := traceLen - 1; startIndex2 > limit {
		startIndex2 = limit
	}
	bugIndex, err := s.RandomIndex(2, startIndex2, traceLen)
	if err != nil {
		return err
	}

	preIndexes := make(map[int]bool, pathLen)
	for len(preIndexes) != pathLen {
		index, err := s.RandomIndex(1, startIndex, bugIndex)
		if err != nil {
			return err
		}
		preIndexes[index] = true
	}
	sorted := make([]int, 0, len(preIndexes))
	for idx := range preIndexes {
		sorted = append(sorted, idx)
	}
	sortInts(sorted)

	for i := 0; i < pathLen; i++ {
		s.Walker.MoveTo(sorted[i])
		varName := s.SelectEditVar(pathLen)
		tpos, err := s.Walker.GetOnePos()
		if err != nil {
			return err
		}
		a := s.Reg.NewAssign(varName, nil)
		fl := tpos.Location.FileLine()
		s.Bug.AppendCode(fl, a)
		site := s.Bug.GetSite(fl)
		s.Bug.AppendOrder(bugmodel.NewThreadPointer(tpos.Tid, site.ExlocCurrent(), bugmodel.Before))
		s.Bug.Log.AddLocation(tpos.Tid, fl)
	}

	s.Walker.MoveTo(bugIndex)
	condVar := s.Reg.OldVar(false)
	s.Reg.SetEditable(condVar, false)
	cond := piece.NewReservedExpr("==", piece.VarArg(condVar), piece.Expected(condVar))
	nextBug, err := s.AddPattern(ctx, cond)
	if err != nil {
		return err
	}

	if nextBug {
		return s.AddBug(ctx, (pathLen+1)/2)
	}
	return nil
}

func sortInts(xs []int) {
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j-1] > xs[j]; j-- {
			xs[j-1], xs[j] = xs[j], xs[j-1]
		}
	}
}

// AddPattern instantiates one pattern template against the walker's current
// position, prepending the caller's guard to every code group and expanding
// any Assume placeholder the pattern's shape carries. It reports whether
// the expansion asks the caller to chain another bug onto this one.
func (s *State) AddPattern(ctx context.Context, preCond piece.ReservedExpr) (bool, error) {
	bp, marks0, marks1, err := s.PatternGen.Generate(ctx, s.Walker)
	if err != nil {
		return false, err
	}

	type step struct {
		part   int
		codes  pattern.CodeGroup
		tid    int
		fl     bugmodel.FileLine
		stepAt int
	}
	cnt := [2]int{}
	steps := make([]step, 0, len(bp.Order))
	for _, part := range bp.Order {
		codes := bp.Codes(part, cnt[part])
		marker := marks0[cnt[part]]
		if part == 1 {
			marker = marks1[cnt[part]]
		}
		cnt[part]++
		steps = append(steps, step{part: part, codes: codes, tid: marker.Tid, fl: marker.FileLine, stepAt: marker.Step})
	}

	bugLocs := make([]bugmodel.PatternLocRef, 0, len(steps))
	for _, st := range steps {
		bugLocs = append(bugLocs, bugmodel.PatternLocRef{Tid: st.tid, Loc: st.fl})
	}
	s.Bug.Log.AddPattern(bp.Name, bugLocs)

	initIndex := s.Walker.Current()
	nextBug := false
	for _, st := range steps {
		if target := initIndex + st.stepAt; target > s.Walker.Current() {
			s.Walker.MoveTo(target)
		}

		codes := make(pattern.CodeGroup, 0, len(st.codes)+2)
		codes = append(codes, piece.ReservedIfCond{Cond: preCond})
		codes = append(codes, st.codes...)
		codes = append(codes, piece.NewReserved(piece.BlockEnd{}))

		for i, code := range codes {
			if assume, ok := code.(piece.ReservedAssume); ok {
				weights := s.assumeWeights()
				implType := weightedChoice(s.rng, []ImplType{ImplCrash, ImplChain, ImplNest}, weights)
				chained, err := s.expandAssume(ctx, assume, st.tid, st.fl, implType)
				if err != nil {
					return false, err
				}
				nextBug = nextBug || chained
				continue
			}
			site := s.Bug.GetSite(st.fl)
			lp := s.Bug.AppendCode(st.fl, code)
			orderIndex := s.Bug.AppendOrder(bugmodel.NewThreadPointer(st.tid, site.ExlocCurrent(), bugmodel.Before))
			if i == 0 {
				if _, ok := code.(piece.ReservedIfCond); ok {
					lp.SetAfterOrder(orderIndex)
				}
			}
		}
		s.Walker.MarkUse(st.tid)
	}

	return nextBug, nil
}

// ImplType selects how an Assume placeholder is expanded into concrete
// code once a pattern's code column reaches it.
type ImplType int

const (
	ImplCrash ImplType = iota
	ImplChain
	ImplNest
)

func (t ImplType) String() string {
	switch t {
	case ImplCrash:
		return "Crash"
	case ImplChain:
		return "Chain"
	case ImplNest:
		return "Nest"
	default:
		return "ImplType(?)"
	}
}

// assumeWeights gives Crash, Chain, and Nest their relative selection
// weights, zeroing Nest once fewer than two positions remain available
// (nesting needs room for its own pattern's two columns).
func (s *State) assumeWeights() []int {
	weights := []int{10, 3, 2}
	if len(s.Walker.AvailablePos()) < 2 {
		weights[2] = 0
	}
	return weights
}

func weightedChoice[T any](rng *rand.Rand, options []T, weights []int) T {
	total := 0
	for _, w := range weights {
		total += w
	}
	pick := rng.Intn(total)
	for i, w := range weights {
		if pick < w {
			return options[i]
		}
		pick -= w
	}
	return options[len(options)-1]
}

// expandAssume turns one Assume placeholder into concrete code: a direct
// crash guarded by the predicate's negation, a chained guard variable that
// hands the negation on to another AddBug call, or a fully nested pattern
// guarded by the same negation.
func (s *State) expandAssume(ctx context.Context, assume piece.ReservedAssume, tid int, fl bugmodel.FileLine, implType ImplType) (bool, error) {
	cond := piece.Negate(assume.Cond)
	nextBug := false
	s.Bug.Log.AddAssume(implType.String())
	site := s.Bug.GetSite(fl)

	switch implType {
	case ImplCrash:
		s.Bug.AppendCode(fl, piece.ReservedIfCond{Cond: cond})
		s.Bug.AppendCode(fl, piece.NewReserved(piece.Crash{BugID: s.Bug.BugID}))
		s.Bug.AppendCode(fl, piece.NewReserved(piece.BlockEnd{}))
	case ImplChain:
		varName := s.Reg.NewVar(variable.Normal, false)
		s.Bug.AppendCode(fl, piece.ReservedAssignExpr{Var: varName, Expr: cond})
		nextBug = true
	case ImplNest:
		chained, err := s.AddPattern(ctx, cond)
		if err != nil {
			return false, err
		}
		nextBug = chained
	default:
		panic("builder: invalid assume impl_type")
	}
	s.Bug.AppendOrder(bugmodel.NewThreadPointer(tid, site.ExlocCurrent(), bugmodel.Before))
	return nextBug, nil
}

// Implement closes every touched site's #ifdef fence, declares the
// allocated variables, and runs the schedule twice: once in generate mode
// (materializing every lazy piece as the schedule reaches it) and once in
// checking mode (replaying what was generated, watching for the crash
// piece to actually fire).
func (s *State) Implement() error {
	s.Bug.AppendIfdefEnd()
	s.Bug.AddVars(s.Reg.ListAllVars())

	genEx := piece.NewExecutor(s.inputBytes)
	genWrap := execsim.NewExecWrap(s.Bug, genEx)
	genWrap.SetGenerate(true)
	genRun := execsim.NewInterleaveExec(s.Bug.Order, genWrap.Execute, genWrap.MaxCodePtr)
	for {
		more, err := genRun.Next()
		if err != nil {
			return err
		}
		if !more {
			break
		}
		if genEx.State.ShouldSkip() {
			return ErrCantFollowOrder
		}
	}

	chkEx := piece.NewExecutor(s.inputBytes)
	triggered := false
	chkExecute := func(orderIndex int, fl bugmodel.FileLine, codePtr int) error {
		fired, err := chkEx.Run(s.Bug.GetCode(fl)[codePtr].Code, true)
		if err != nil {
			return err
		}
		if fired {
			triggered = true
		}
		return nil
	}
	maxCodePtr := func(fl bugmodel.FileLine) int { return len(s.Bug.GetCode(fl)) }
	chkRun := execsim.NewInterleaveExec(s.Bug.Order, chkExecute, maxCodePtr)
	for {
		more, err := chkRun.Next()
		if err != nil {
			return err
		}
		if !more {
			break
		}
		if chkEx.State.ShouldSkip() {
			return ErrCantFollowOrder
		}
	}
	if !triggered {
		return ErrCantTrigger
	}
	return nil
}
