package bugmodel

import (
	"encoding/json"
	"io"

	"github.com/concuject/concuject/internal/piece"
	"github.com/concuject/concuject/internal/variable"
)

// Bug is one extraction attempt in progress: the injected code queued at
// every touched site, the schedule it will be reproduced under, and the
// variables it allocated.
type Bug struct {
	BugID     int
	InputFile string

	sites     map[FileLine]*CodeSite
	siteOrder []FileLine

	Log   *BugLog
	Order *Interleave

	AllVars []variable.Variable
}

func NewBug(bugID int, inputFile string) *Bug {
	return &Bug{
		BugID:     bugID,
		InputFile: inputFile,
		sites:     make(map[FileLine]*CodeSite),
		Log:       NewBugLog(),
		Order:     &Interleave{},
	}
}

// GetSite returns the CodeSite for loc, creating an empty one on first
// reference. Creation order is preserved for deterministic iteration in
// AppendIfdefEnd and AllFiles.
func (b *Bug) GetSite(loc FileLine) *CodeSite {
	if cs, ok := b.sites[loc]; ok {
		return cs
	}
	cs := NewCodeSite(loc)
	b.sites[loc] = cs
	b.siteOrder = append(b.siteOrder, loc)
	return cs
}

// GetCode returns the queued pieces at loc, or nil if the site has never
// been referenced.
func (b *Bug) GetCode(loc FileLine) []*LazyPiece {
	cs, ok := b.sites[loc]
	if !ok {
		return nil
	}
	return cs.Codes
}

// AppendCode queues a piece at loc, opening the site's `#ifdef
// RACEBENCH_BUG_<id>` fence first if this is the site's first piece.
func (b *Bug) AppendCode(loc FileLine, reserved piece.ReservedPiece) *LazyPiece {
	cs := b.GetSite(loc)
	if len(cs.Codes) == 0 {
		cs.AppendCode(&LazyPiece{Reserved: piece.NewReserved(piece.IfdefBug{BugID: b.BugID})})
	}
	lp := &LazyPiece{Reserved: reserved}
	cs.AppendCode(lp)
	return lp
}

// AppendIfdefEnd closes the `#ifdef` fence at every touched site. Unlike
// AppendCode's opening fence, the closing one is materialized immediately
// — it is stateless, and doing so here (rather than leaving it to the
// generator pass) mirrors the reference tool's own asymmetry.
func (b *Bug) AppendIfdefEnd() {
	for _, loc := range b.siteOrder {
		cs := b.sites[loc]
		if len(cs.Codes) == 0 {
			continue
		}
		lp := &LazyPiece{Reserved: piece.NewReserved(piece.IfdefEnd{})}
		lp.Generate(piece.NewState())
		cs.AppendCode(lp)
	}
}

// AllFiles returns every source file touched by this bug's sites, each
// name appearing once, in the order its first site was created.
func (b *Bug) AllFiles() []string {
	seen := make(map[string]bool, len(b.siteOrder))
	var files []string
	for _, loc := range b.siteOrder {
		if !seen[loc.Filename] {
			seen[loc.Filename] = true
			files = append(files, loc.Filename)
		}
	}
	return files
}

// IterSites visits every touched site in creation order.
func (b *Bug) IterSites(fn func(FileLine, *CodeSite)) {
	for _, loc := range b.siteOrder {
		fn(loc, b.sites[loc])
	}
}

func (b *Bug) AddVars(vars []variable.Variable) {
	b.AllVars = append(b.AllVars, vars...)
}

func (b *Bug) AppendOrder(tp ThreadPointer) int {
	return b.Order.Append(tp)
}

// ResolveOrderLines fills in every scheduled thread pointer's post-commit
// line number, once the injector has rewritten every touched file and
// each CodeSite's ResultLineGetter reports real line numbers instead of 0.
// Call this after Injector.Commit, before DumpOrder — see spec.md §9's
// post-commit line resolution invariant.
func (b *Bug) ResolveOrderLines() {
	for _, tp := range b.Order.Data {
		if tp.Location == nil {
			continue
		}
		tp.Location.SetNewLine(tp.Location.Site.GetResultLine(tp.Location.CodePtr))
	}
}

// DumpOrder writes the bug's schedule in order-file format: one "<tid>
// <sign> <file>:<line>" line per thread pointer.
func (b *Bug) DumpOrder(w io.Writer) error {
	for _, tp := range b.Order.Data {
		if _, err := io.WriteString(w, tp.StrNewLine()+"\n"); err != nil {
			return err
		}
	}
	return nil
}

// BugLog accumulates the human-readable narrative of how a bug was built:
// trace positions visited, patterns placed, and assume outcomes chosen. It
// backs the bug-<id>.json artifact.
type BugLog struct {
	Items []LogItem
}

func NewBugLog() *BugLog {
	return &BugLog{}
}

// LogItem is one BugLog entry. Exactly one of its optional fields is
// populated, selected by Type.
type LogItem struct {
	Type string // "next", "pattern", or "assume"

	// Type == "next"
	Thread int
	File   string
	Line   int

	// Type == "pattern"
	Name      string
	Locations []PatternLocation

	// Type == "assume"
	Outcome string
}

type PatternLocation struct {
	Thread int    `json:"thread"`
	File   string `json:"file"`
	Line   int    `json:"line"`
}

func (l *BugLog) AddLocation(tid int, fl FileLine) {
	l.Items = append(l.Items, LogItem{Type: "next", Thread: tid, File: fl.Filename, Line: fl.Line})
}

// PatternLocRef names the thread and site a pattern was placed at, as
// passed in by the caller before being flattened into a PatternLocation.
type PatternLocRef struct {
	Tid int
	Loc FileLine
}

func (l *BugLog) AddPattern(name string, locs []PatternLocRef) {
	out := make([]PatternLocation, len(locs))
	for i, loc := range locs {
		out[i] = PatternLocation{Thread: loc.Tid, File: loc.Loc.Filename, Line: loc.Loc.Line}
	}
	l.Items = append(l.Items, LogItem{Type: "pattern", Name: name, Locations: out})
}

func (l *BugLog) AddAssume(outcome string) {
	l.Items = append(l.Items, LogItem{Type: "assume", Outcome: outcome})
}

// MarshalJSON renders only the fields relevant to Type, matching the
// bug-<id>.json array shape: {"type":"next",...}, {"type":"pattern",...},
// or {"type":"assume","outcome":...}.
func (i LogItem) MarshalJSON() ([]byte, error) {
	switch i.Type {
	case "next":
		return json.Marshal(struct {
			Type   string `json:"type"`
			Thread int    `json:"thread"`
			File   string `json:"file"`
			Line   int    `json:"line"`
		}{i.Type, i.Thread, i.File, i.Line})
	case "pattern":
		return json.Marshal(struct {
			Type      string             `json:"type"`
			Name      string             `json:"name"`
			Locations []PatternLocation `json:"locations"`
		}{i.Type, i.Name, i.Locations})
	case "assume":
		return json.Marshal(struct {
			Type    string `json:"type"`
			Outcome string `json:"outcome"`
		}{i.Type, i.Outcome})
	default:
		return json.Marshal(struct {
			Type string `json:"type"`
		}{i.Type})
	}
}
