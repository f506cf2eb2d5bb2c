package execsim

import (
	"github.com/concuject/concuject/internal/bugmodel"
)

// ExecuteFunc runs the queued piece at fl[codePtr], having reached it by
// way of schedule index orderIndex.
type ExecuteFunc func(orderIndex int, fl bugmodel.FileLine, codePtr int) error

// MaxCodePtrFunc is the number of pieces queued at fl.
type MaxCodePtrFunc func(fl bugmodel.FileLine) int

// InterleaveExec walks a bug's Interleave and, for every thread that moves
// between two schedule entries, replays every piece its code pointer
// crosses — in queue order, never skipping or re-running one.
type InterleaveExec struct {
	interleave *bugmodel.Interleave
	execute    ExecuteFunc
	maxCodePtr MaxCodePtrFunc
	threads    []bugmodel.ThreadPointer
	curIndex   int
}

func NewInterleaveExec(il *bugmodel.Interleave, execute ExecuteFunc, maxCodePtr MaxCodePtrFunc) *InterleaveExec {
	n := il.NumThreads()
	threads := make([]bugmodel.ThreadPointer, n)
	for tid := range threads {
		threads[tid] = bugmodel.NewThreadPointer(tid, nil, bugmodel.Before)
	}
	return &InterleaveExec{interleave: il, execute: execute, maxCodePtr: maxCodePtr, threads: threads}
}

// Next advances to the next schedule entry, replaying whatever code the
// moving thread's position crosses. It returns false once the schedule is
// exhausted.
func (ie *InterleaveExec) Next() (bool, error) {
	if ie.curIndex >= ie.interleave.Len() {
		return false, nil
	}
	tp := ie.interleave.Data[ie.curIndex]
	ie.curIndex++
	old := ie.threads[tp.Tid]
	if err := ie.moveExec(old.Location, tp.Location); err != nil {
		return false, err
	}
	ie.threads[tp.Tid] = tp
	return true, nil
}

// Run drains the schedule to completion.
func (ie *InterleaveExec) Run() error {
	for {
		more, err := ie.Next()
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
}

func (ie *InterleaveExec) moveExec(oldLoc, newLoc *bugmodel.LocBeforeLine) error {
	if oldLoc == nil {
		return nil
	}
	oldPtr := ie.codePtrOrMax(oldLoc)
	if newLoc == nil {
		return ie.execRange(oldLoc.FileLine(), oldPtr, ie.maxCodePtr(oldLoc.FileLine()))
	}
	newPtr := ie.codePtrOrMax(newLoc)
	switch {
	case newPtr == 0:
		return ie.execRange(oldLoc.FileLine(), oldPtr, ie.maxCodePtr(oldLoc.FileLine()))
	case oldLoc.FileLine() != newLoc.FileLine():
		if err := ie.execRange(oldLoc.FileLine(), oldPtr, ie.maxCodePtr(oldLoc.FileLine())); err != nil {
			return err
		}
		return ie.execRange(newLoc.FileLine(), 0, newPtr)
	default:
		return ie.execRange(newLoc.FileLine(), oldPtr, newPtr)
	}
}

func (ie *InterleaveExec) codePtrOrMax(loc *bugmodel.LocBeforeLine) int {
	if loc.CodePtr != nil {
		return *loc.CodePtr
	}
	return ie.maxCodePtr(loc.FileLine())
}

func (ie *InterleaveExec) execRange(fl bugmodel.FileLine, oldPtr, newPtr int) error {
	if oldPtr > newPtr {
		panic("execsim: exec range runs backwards")
	}
	for ptr := oldPtr; ptr < newPtr; ptr++ {
		if err := ie.execute(ie.curIndex-1, fl, ptr); err != nil {
			return err
		}
	}
	return nil
}
