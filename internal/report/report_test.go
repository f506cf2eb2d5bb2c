package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/concuject/concuject/internal/bugmodel"
)

func TestSummary(t *testing.T) {
	log := bugmodel.NewBugLog()
	log.AddLocation(0, bugmodel.FileLine{Filename: "a.c", Line: 10})
	log.AddPattern("AV.WWA", []bugmodel.PatternLocRef{{Tid: 0, Loc: bugmodel.FileLine{Filename: "a.c", Line: 11}}})
	log.AddAssume("Crash")

	md := Summary(7, log)
	assert.Contains(t, md, "# Bug 7")
	assert.Contains(t, md, "thread 0 reaches `a.c:10`")
	assert.Contains(t, md, "pattern **AV.WWA**")
	assert.Contains(t, md, "assume resolved to **Crash**")
}

func TestRenderHTML(t *testing.T) {
	html, err := RenderHTML("# Bug 1\n\n- hello\n")
	require.NoError(t, err)
	assert.Contains(t, html, "<h1>Bug 1</h1>")
	assert.Contains(t, html, "<li>hello</li>")
}

func TestUnifiedDiff(t *testing.T) {
	diff := UnifiedDiff("a.c", "int x;\n", "int x;\nint y;\n")
	assert.Contains(t, diff, "--- a.c.orig")
	assert.Contains(t, diff, "+++ a.c")
	assert.Contains(t, diff, "+int y;")
}
