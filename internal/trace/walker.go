package trace

import (
	"errors"
	"math/rand"

	"github.com/concuject/concuject/internal/bugmodel"
)

// ErrNoAvailablePosition is returned by Walker.GetOnePos when every thread
// is either exhausted or already marked used this step.
var ErrNoAvailablePosition = errors.New("trace: no available position")

// LocationChecker reports whether a source line is a legal injection
// target — line kind, blacklist, and the file-scope checks a caller layers
// on top all collapse into this one predicate.
type LocationChecker func(bugmodel.FileLine) bool

// Walker is the cursor the bug builder advances through a Trace, tracking
// which schedule index has been reached and which threads have already
// contributed a position since the last advance.
type Walker struct {
	trace    *Trace
	bug      *bugmodel.Bug
	checker  LocationChecker
	rng      *rand.Rand
	current  int
	usedTnum map[int]bool
}

func NewWalker(tr *Trace, bug *bugmodel.Bug, checker LocationChecker, rng *rand.Rand) *Walker {
	return &Walker{
		trace:    tr,
		bug:      bug,
		checker:  checker,
		rng:      rng,
		usedTnum: make(map[int]bool),
	}
}

func (w *Walker) Current() int { return w.current }

// TraceLen is the number of recorded events in the underlying trace.
func (w *Walker) TraceLen() int { return w.trace.Len() }

// TraceAt returns the raw recorded event at an absolute trace index,
// without regard to the cursor or per-thread "last known position"
// projection ThreadPos/AvailablePosAt use.
func (w *Walker) TraceAt(index int) ThreadPos { return w.trace.At(index) }

// Check applies this walker's injection-location checker to fl.
func (w *Walker) Check(fl bugmodel.FileLine) bool { return w.checker(fl) }

// Bug returns the bug this walker is building a schedule for, so callers
// (the pattern location search) can inspect already-queued sites.
func (w *Walker) Bug() *bugmodel.Bug { return w.bug }

// MoveTo advances the cursor to index, recording every intervening trace
// entry into the bug's schedule as it goes. index must be >= the current
// position.
func (w *Walker) MoveTo(index int) {
	if index < w.current {
		panic("trace: MoveTo must not move backwards")
	}
	if index == w.current {
		return
	}
	for i := w.current + 1; i <= index; i++ {
		tpos := w.trace.At(i)
		var exloc *bugmodel.LocBeforeLine
		if tpos.FileLine != nil {
			site := w.bug.GetSite(*tpos.FileLine)
			if tpos.LineLoc == bugmodel.Middle {
				exloc = site.ExlocMiddle()
			} else {
				exloc = site.ExlocStart()
			}
		}
		w.bug.AppendOrder(bugmodel.NewThreadPointer(tpos.Tid, exloc, tpos.LineLoc))
	}
	w.current = index
	w.usedTnum = make(map[int]bool)
}

func (w *Walker) threadPos(tnum int) (ThreadPos, bool) {
	pos := w.trace.ThreadPos(tnum, w.current)
	if pos.FileLine != nil && w.checker(*pos.FileLine) {
		return pos, true
	}
	return ThreadPos{}, false
}

// AvailablePos lists every thread, not already used this step, currently
// paused immediately before a legal injection line.
func (w *Walker) AvailablePos() []bugmodel.ThreadPointer {
	if w.current >= w.trace.Len() {
		return nil
	}
	var out []bugmodel.ThreadPointer
	for tnum := 0; tnum < w.trace.NumThreads(); tnum++ {
		if w.usedTnum[tnum] {
			continue
		}
		pos, ok := w.threadPos(tnum)
		if !ok || pos.LineLoc != bugmodel.Before {
			continue
		}
		site := w.bug.GetSite(*pos.FileLine)
		out = append(out, bugmodel.NewThreadPointer(tnum, site.ExlocCurrent(), bugmodel.Before))
	}
	return out
}

// AvailablePosAt is AvailablePos evaluated at an arbitrary schedule index
// instead of the current cursor, used by the pattern location search to
// look ahead without moving the cursor.
func (w *Walker) AvailablePosAt(index int) []ThreadLoc {
	if index >= w.trace.Len() {
		return nil
	}
	var out []ThreadLoc
	for tnum := 0; tnum < w.trace.NumThreads(); tnum++ {
		if index == w.current && w.usedTnum[tnum] {
			continue
		}
		pos := w.trace.ThreadPos(tnum, index)
		if pos.FileLine == nil || pos.LineLoc != bugmodel.Before {
			continue
		}
		if !w.checker(*pos.FileLine) {
			continue
		}
		out = append(out, ThreadLoc{Tid: pos.Tid, FileLine: *pos.FileLine})
	}
	return out
}

// ThreadLoc is a (thread, location) pair returned by AvailablePosAt.
type ThreadLoc struct {
	Tid      int
	FileLine bugmodel.FileLine
}

func (w *Walker) MarkUse(tnum int) {
	w.usedTnum[tnum] = true
}

// GetOnePos picks a uniformly random available position, marks its thread
// used, and returns it.
func (w *Walker) GetOnePos() (bugmodel.ThreadPointer, error) {
	tpos := w.AvailablePos()
	if len(tpos) == 0 {
		return bugmodel.ThreadPointer{}, ErrNoAvailablePosition
	}
	chosen := tpos[w.rng.Intn(len(tpos))]
	w.MarkUse(chosen.Tid)
	return chosen, nil
}
