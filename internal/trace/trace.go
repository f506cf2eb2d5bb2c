package trace

import "github.com/concuject/concuject/internal/bugmodel"

// Trace is a recorded execution: a flat table of every observed pause plus,
// for each table index, a per-thread index of the most recent pause that
// thread had reached by then. Index 0 is a synthetic start-of-time entry
// for every thread.
type Trace struct {
	srcdir     string
	blacklist  Blacklist
	numThreads int
	posTable   []ThreadPos
	posIndex   [][]int
}

// NewTrace builds a Trace from parsed positions and a blacklist. positions
// must be non-empty and every Tid must be >= 0.
func NewTrace(positions []ThreadPos, blacklist Blacklist, srcdir string) *Trace {
	tmax := -1
	for _, p := range positions {
		if p.Tid > tmax {
			tmax = p.Tid
		}
	}
	numThreads := tmax + 1

	t := &Trace{
		srcdir:     srcdir,
		blacklist:  blacklist,
		numThreads: numThreads,
		posTable:   make([]ThreadPos, 1, len(positions)+1),
		posIndex:   make([][]int, 1, len(positions)+1),
	}
	t.posTable[0] = ThreadPos{Tid: -1}
	t.posIndex[0] = make([]int, numThreads)

	for _, p := range positions {
		idx := len(t.posTable)
		t.posTable = append(t.posTable, p)
		cur := append([]int(nil), t.posIndex[len(t.posIndex)-1]...)
		cur[p.Tid] = idx
		t.posIndex = append(t.posIndex, cur)
	}
	return t
}

func (t *Trace) Len() int { return len(t.posTable) }

func (t *Trace) At(index int) ThreadPos { return t.posTable[index] }

func (t *Trace) NumThreads() int { return t.numThreads }

func (t *Trace) Srcdir() string { return t.srcdir }

// ThreadPos returns where thread tnum had most recently paused as of
// schedule index idx.
func (t *Trace) ThreadPos(tnum, idx int) ThreadPos {
	return t.posTable[t.posIndex[idx][tnum]]
}

func (t *Trace) InBlacklist(fl bugmodel.FileLine) bool {
	return t.blacklist.Contains(fl)
}
