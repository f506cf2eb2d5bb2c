package pattern

import (
	"context"
	"math/rand"

	"github.com/concuject/concuject/internal/bugmodel"
	"github.com/concuject/concuject/internal/domclient"
	"github.com/concuject/concuject/internal/piece"
	"github.com/concuject/concuject/internal/trace"
	"github.com/concuject/concuject/internal/variable"
)

// MarkLocationSteps bounds how far past the cursor GetLocations scans
// looking for a second site for a pattern's longer column.
const MarkLocationSteps = 50

// StepMarker is a candidate (or chosen) injection site for one pattern
// column: how many trace steps past the cursor it sits at, which thread
// reaches it, and its location.
type StepMarker struct {
	Step     int
	Tid      int
	FileLine bugmodel.FileLine
}

// Generator owns the closed set of pattern constructors and picks one
// uniformly at random per bug, then locates it against the trace.
type Generator struct {
	Reg *variable.Registry
	Rng *rand.Rand
	Dom domclient.Oracle

	generators []func() *BugPattern
}

func NewGenerator(reg *variable.Registry, rng *rand.Rand, dom domclient.Oracle) *Generator {
	av := AtomicityViolation{Reg: reg, Rng: rng}
	ov := OrderViolation{Reg: reg, Rng: rng}
	var all []func() *BugPattern
	all = append(all, av.Generators()...)
	all = append(all, ov.Generators()...)
	return &Generator{Reg: reg, Rng: rng, Dom: dom, generators: all}
}

// Generate picks a random pattern template, locates it against the
// walker's current cursor, and pads each column's marker list out to the
// column's own length by repeating the last marker (so a 1-group column
// still gets one marker per group it needs).
func (g *Generator) Generate(ctx context.Context, walker *trace.Walker) (*BugPattern, []StepMarker, []StepMarker, error) {
	generator := g.generators[g.Rng.Intn(len(g.generators))]
	bp := generator()
	locs0, locs1, err := g.getLocations(ctx, bp, walker)
	if err != nil {
		return nil, nil, nil, err
	}

	for part := 0; part < 2; part++ {
		locs := &locs0
		if part == 1 {
			locs = &locs1
		}
		for bp.PartLen(part) > len(*locs) {
			*locs = append(*locs, (*locs)[len(*locs)-1])
		}
	}
	return bp, locs0, locs1, nil
}

// getLocations picks the two trace positions a pattern's columns anchor
// on. Callers only ever request patterns whose longer column is 1 or 2
// steps, so the multi-location search below only extends the longer
// column by one further step past the shared start: the chosen site is
// appended to locs0, and the two lists are returned swapped when Code1 is
// the longer column. A branch handling a third distinct location never
// triggers and is omitted.
func (g *Generator) getLocations(ctx context.Context, pattern *BugPattern, walker *trace.Walker) ([]StepMarker, []StepMarker, error) {
	locsInit := walker.AvailablePos()
	g.Rng.Shuffle(len(locsInit), func(i, j int) { locsInit[i], locsInit[j] = locsInit[j], locsInit[i] })

	locs0 := []StepMarker{{Step: 0, Tid: locsInit[0].Tid, FileLine: locsInit[0].Location.FileLine()}}
	locs1 := []StepMarker{{Step: 0, Tid: locsInit[1].Tid, FileLine: locsInit[1].Location.FileLine()}}

	avoidVars := pattern.UsedVars()
	maxPartLen := max(len(pattern.Code0), len(pattern.Code1))
	if maxPartLen == 1 {
		return locs0, locs1, nil
	}

	var nextLocs []StepMarker
	for step := 1; step < MarkLocationSteps; step++ {
		curIndex := walker.Current() + step
		if curIndex == walker.TraceLen() {
			break
		}
		tpos := walker.TraceAt(curIndex)
		if tpos.LineLoc != bugmodel.Before || tpos.FileLine == nil {
			continue
		}
		if !walker.Check(*tpos.FileLine) {
			continue
		}

		keep1 := false
		for _, tl := range walker.AvailablePosAt(curIndex) {
			if tl.FileLine == locs1[len(locs1)-1].FileLine {
				keep1 = true
			}
		}
		if !keep1 {
			break
		}

		pos := *tpos.FileLine
		if pos == locs1[len(locs1)-1].FileLine {
			break
		}
		existCode := walker.Bug().GetCode(pos)
		collides := false
		for _, lp := range existCode {
			if intersects(avoidVars, lp.Reserved.EditVars()) {
				collides = true
				break
			}
		}
		if collides {
			break
		}
		nextLocs = append(nextLocs, StepMarker{Step: step, Tid: tpos.Tid, FileLine: pos})
	}

	firstLoc := locs0[0].FileLine
	goodLines, err := g.Dom.Query(ctx, firstLoc.Filename, firstLoc.Line, pattern.DomMode)
	if err != nil {
		return nil, nil, err
	}
	good := make(map[int]bool, len(goodLines))
	for _, l := range goodLines {
		good[l] = true
	}
	filtered := nextLocs[:0:0]
	for _, nl := range nextLocs {
		if nl.FileLine.Filename == firstLoc.Filename && good[nl.FileLine.Line] {
			filtered = append(filtered, nl)
		}
	}

	if len(filtered) == 0 {
		return locs0, locs1, nil
	}
	chosen := filtered[g.Rng.Intn(len(filtered))]
	locs0 = append(locs0, chosen)
	if len(pattern.Code0) == maxPartLen {
		return locs0, locs1, nil
	}
	return locs1, locs0, nil
}

func intersects(a, b piece.VarSet) bool {
	for k := range a {
		if b[k] {
			return true
		}
	}
	return false
}
