package inject

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/concuject/concuject/internal/bugmodel"
	"github.com/concuject/concuject/internal/piece"
)

// Post-commit line resolution: once Injector.Commit has rewritten the
// source tree, every scheduled thread pointer's resolved line number in the
// order file matches the line the piece actually landed on in the rewritten
// file — not the pre-injection line it was queued against.
func TestInjector_Commit_ResolvesScheduleToActualPostCommitLines(t *testing.T) {
	dir := t.TempDir()
	filename := filepath.Join(dir, "src.c")
	original := "int main() {\n    int x;\n    return 0;\n}\n"
	require.NoError(t, os.WriteFile(filename, []byte(original), 0o644))

	fl := bugmodel.FileLine{Filename: filename, Line: 2}
	bug := bugmodel.NewBug(3, "in")

	bug.AppendCode(fl, piece.NewReserved(piece.AssignImm{Var: "a", Imm: 1})) // index 1 (index 0 is the ifdef fence)
	bug.AppendCode(fl, piece.NewReserved(piece.AssignImm{Var: "b", Imm: 2})) // index 2
	bug.AppendIfdefEnd()

	for _, lp := range bug.GetCode(fl) {
		lp.Generate(piece.NewState())
	}

	site := bug.GetSite(fl)
	secondIndex := 2
	bug.AppendOrder(bugmodel.NewThreadPointer(0, &bugmodel.LocBeforeLine{Site: site, CodePtr: &secondIndex}, bugmodel.Before))
	bug.AppendOrder(bugmodel.NewThreadPointer(0, site.ExlocCurrent(), bugmodel.Before))

	injector := NewInjector()
	QueueBug(injector, bug)
	require.NoError(t, injector.Commit())

	bug.ResolveOrderLines()

	var orderBuf bytes.Buffer
	require.NoError(t, bug.DumpOrder(&orderBuf))
	orderLines := strings.Split(strings.TrimRight(orderBuf.String(), "\n"), "\n")
	require.Len(t, orderLines, 2)

	committed, err := os.ReadFile(filename)
	require.NoError(t, err)
	committedLines := strings.Split(strings.TrimSuffix(string(committed), "\n"), "\n")

	// First entry points before index 2 (the "b = 0x2;" assignment): its
	// resolved line must be where that exact text sits in the new file.
	resolvedLine := parseOrderFileLine(t, orderLines[0])
	require.True(t, resolvedLine >= 1 && resolvedLine <= len(committedLines))
	assert.Equal(t, "    b = 0x2;", committedLines[resolvedLine-1])

	// Second entry is ExlocCurrent — the end of the queued codes, i.e. the
	// original statement ("int x;") that followed them.
	resolvedLine2 := parseOrderFileLine(t, orderLines[1])
	require.True(t, resolvedLine2 >= 1 && resolvedLine2 <= len(committedLines))
	assert.Equal(t, "    int x;", committedLines[resolvedLine2-1])

	assert.Less(t, resolvedLine, resolvedLine2)
}

// parseOrderFileLine extracts the <line> component of a "<tid> <sign>
// <file>:<line>" order-file record.
func parseOrderFileLine(t *testing.T, record string) int {
	t.Helper()
	idx := strings.LastIndex(record, ":")
	require.NotEqual(t, -1, idx, "malformed order-file record: %q", record)
	n, err := strconv.Atoi(record[idx+1:])
	require.NoError(t, err)
	return n
}
