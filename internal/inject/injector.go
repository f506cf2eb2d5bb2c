package inject

import (
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/google/renameio/v2"

	"github.com/concuject/concuject/internal/bugmodel"
)

var patternIndent = regexp.MustCompile(`^(\s*)`)

func indentOf(line string) string {
	return patternIndent.FindString(line)
}

// InsertionPoint is every rendered code line queued at one source location,
// plus the output-file line number each one lands at once Injector.Commit
// has run.
type InsertionPoint struct {
	Loc     bugmodel.FileLine
	LineLoc bugmodel.LineLoc
	Codes   []string

	resultLines []int
}

func newInsertionPoint(loc bugmodel.FileLine, lineLoc bugmodel.LineLoc, codes []string) *InsertionPoint {
	lines := make([]int, len(codes)+1)
	for i := range lines {
		lines[i] = -1
	}
	return &InsertionPoint{Loc: loc, LineLoc: lineLoc, Codes: codes, resultLines: lines}
}

func (ip *InsertionPoint) setResultLine(i, line int) { ip.resultLines[i] = line }

func (ip *InsertionPoint) getResultLine(i int) int { return ip.resultLines[i] }

// CodeAccumulator collects the rewritten file contents, one logical line at
// a time, tracking the 1-based output line number each addition lands at.
type CodeAccumulator struct {
	lines []string
}

func (a *CodeAccumulator) AddCodeLine(line string) int {
	lineno := a.CurrentLine()
	a.lines = append(a.lines, line)
	return lineno
}

func (a *CodeAccumulator) CurrentLine() int { return len(a.lines) + 1 }

func (a *CodeAccumulator) String() string { return strings.Join(a.lines, "\n") }

// Injector batches every rewrite queued against the real source tree and
// commits them together, one atomic write per touched file, so a crash or
// an aborted extraction never leaves a file half-rewritten.
type Injector struct {
	ops map[string][]*InsertionPoint
}

func NewInjector() *Injector {
	return &Injector{ops: make(map[string][]*InsertionPoint)}
}

// AddSite queues every rendered line of one CodeSite's code — all of it
// inserted immediately before the site's source line — and returns the
// ResultLineGetter the site's CodeSite.SetResultLineGetter should be wired
// to, so later artifact rendering can resolve queued-code indexes to
// output-file line numbers.
func (inj *Injector) AddSite(fl bugmodel.FileLine, codes []string) bugmodel.ResultLineGetter {
	ip := newInsertionPoint(fl, bugmodel.Before, codes)
	inj.ops[fl.Filename] = append(inj.ops[fl.Filename], ip)
	return func(index *int) int {
		if index == nil {
			return ip.getResultLine(len(ip.Codes))
		}
		return ip.getResultLine(*index)
	}
}

// Commit rewrites every file with queued insertions and clears the queue.
// Each file's original lines are folded in as single-line, Middle-ordered
// insertion points so the merge sort naturally interleaves injected code
// around the lines it surrounds.
func (inj *Injector) Commit() error {
	for filename, insertions := range inj.ops {
		if err := inj.commitFile(filename, insertions); err != nil {
			return err
		}
	}
	inj.ops = make(map[string][]*InsertionPoint)
	return nil
}

func (inj *Injector) commitFile(filename string, insertions []*InsertionPoint) error {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	rawLines := strings.Split(strings.TrimSuffix(string(raw), "\n"), "\n")

	all := append([]*InsertionPoint{}, insertions...)
	for i, line := range rawLines {
		loc := bugmodel.FileLine{Filename: filename, Line: i + 1}
		all = append(all, newInsertionPoint(loc, bugmodel.Middle, []string{line}))
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Loc.Line != all[j].Loc.Line {
			return all[i].Loc.Line < all[j].Loc.Line
		}
		return all[i].LineLoc < all[j].LineLoc
	})

	var acc CodeAccumulator
	lastLineno := -1
	indent := ""
	for _, ins := range all {
		lineno := ins.Loc.Line
		if lineno != lastLineno {
			lastLineno = lineno
			var rawLine string
			if lineno >= 1 && lineno <= len(rawLines) {
				rawLine = rawLines[lineno-1]
			}
			indent = indentOf(rawLine)
		}
		for i, code := range ins.Codes {
			if ins.LineLoc != bugmodel.Middle {
				code = indent + code
			}
			newLineno := acc.AddCodeLine(code)
			ins.setResultLine(i, newLineno)
		}
		ins.setResultLine(len(ins.Codes), acc.CurrentLine())
	}

	return renameio.WriteFile(filename, []byte(acc.String()), 0o644)
}
