package bugmodel

import (
	"fmt"

	"github.com/concuject/concuject/internal/piece"
)

// LazyPiece is a single queued piece of injected code at a CodeSite. It
// stays un-materialized (Code == nil) until the generator pass reaches it;
// AfterOrder is the schedule index that must have already executed before
// materialization may proceed — see the walker-cursor note in spec.md §9.
type LazyPiece struct {
	Reserved   piece.ReservedPiece
	Code       piece.Piece
	AfterOrder int
}

// SetAfterOrder records the schedule index this piece must not be
// materialized before.
func (lp *LazyPiece) SetAfterOrder(index int) {
	lp.AfterOrder = index
}

// Generate materializes the piece against the given live state. Calling it
// twice overwrites Code with a freshly materialized value; callers that
// need idempotence should check Code == nil themselves, the way
// execsim.ExecWrap does.
func (lp *LazyPiece) Generate(s *piece.State) {
	lp.Code = lp.Reserved.Materialize(s)
}

// ResultLineGetter resolves the 1-based output-file line a queued code
// index (or, for nil, the end of the whole insertion) lands at once the
// injector has committed every edit. It is wired in by the injector at
// commit time; before that it always reports 0.
type ResultLineGetter func(index *int) int

func zeroResultLineGetter(*int) int { return 0 }

// CodeSite is the ordered queue of injected code at one source location.
type CodeSite struct {
	FileLine         FileLine
	Codes            []*LazyPiece
	resultLineGetter ResultLineGetter
}

func NewCodeSite(fl FileLine) *CodeSite {
	return &CodeSite{FileLine: fl, resultLineGetter: zeroResultLineGetter}
}

func (cs *CodeSite) AppendCode(lp *LazyPiece) {
	cs.Codes = append(cs.Codes, lp)
}

// ExlocStart is the insertion point immediately before the first queued
// piece, used for trace positions the walker has already stepped past.
func (cs *CodeSite) ExlocStart() *LocBeforeLine {
	i := 0
	return &LocBeforeLine{Site: cs, CodePtr: &i}
}

// ExlocMiddle marks a position the tracer matched mid-statement, not tied
// to any queued-code index.
func (cs *CodeSite) ExlocMiddle() *LocBeforeLine {
	return &LocBeforeLine{Site: cs, CodePtr: nil}
}

// ExlocCurrent snapshots the site's current queue length as an insertion
// point: the position just past every piece queued at this site so far.
func (cs *CodeSite) ExlocCurrent() *LocBeforeLine {
	i := len(cs.Codes)
	return &LocBeforeLine{Site: cs, CodePtr: &i}
}

func (cs *CodeSite) SetResultLineGetter(g ResultLineGetter) {
	cs.resultLineGetter = g
}

func (cs *CodeSite) GetResultLine(index *int) int {
	return cs.resultLineGetter(index)
}

// LocBeforeLine is a resolved position within a CodeSite's queue: CodePtr
// nil means "middle of the line, no fixed index". NewLine is filled in by
// the injector once the surrounding file has actually been rewritten.
type LocBeforeLine struct {
	Site    *CodeSite
	CodePtr *int
	NewLine int
}

func (l *LocBeforeLine) FileLine() FileLine {
	return l.Site.FileLine
}

func (l *LocBeforeLine) SetNewLine(n int) {
	l.NewLine = n
}

// ThreadPointer is one thread's position at a point in the schedule being
// assembled: a location (nil once the thread has run off the end of the
// trace) and which side of the statement it sits on.
type ThreadPointer struct {
	Tid      int
	Location *LocBeforeLine
	LineLoc  LineLoc
}

func NewThreadPointer(tid int, loc *LocBeforeLine, lineLoc LineLoc) ThreadPointer {
	return ThreadPointer{Tid: tid, Location: loc, LineLoc: lineLoc}
}

// StrNewLine renders the order-file line for this thread pointer: "<tid>
// <sign> <file>:<line>" or "<tid> <sign> None" once the thread has no more
// recorded position.
func (tp ThreadPointer) StrNewLine() string {
	var fileLine string
	if tp.Location == nil {
		fileLine = "None"
	} else {
		fileLine = FileLine{Filename: tp.Location.FileLine().Filename, Line: tp.Location.NewLine}.String()
	}
	return fmt.Sprintf("%d %s %s", tp.Tid, tp.LineLoc.Sign(), fileLine)
}

// Interleave is the append-only thread schedule assembled for a bug.
type Interleave struct {
	Data []ThreadPointer
}

func (il *Interleave) Append(tp ThreadPointer) int {
	index := len(il.Data)
	il.Data = append(il.Data, tp)
	return index
}

func (il *Interleave) Len() int {
	return len(il.Data)
}

// NumThreads is one more than the highest thread id referenced anywhere in
// the schedule.
func (il *Interleave) NumThreads() int {
	max := -1
	for _, tp := range il.Data {
		if tp.Tid > max {
			max = tp.Tid
		}
	}
	return max + 1
}
