package report

import (
	"fmt"

	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/hexops/gotextdiff/span"
)

// UnifiedDiff renders the textual diff between a source file's
// pre-injection and post-injection contents.
func UnifiedDiff(filename, before, after string) string {
	edits := myers.ComputeEdits(span.URIFromPath(filename), before, after)
	return fmt.Sprint(gotextdiff.ToUnified(filename+".orig", filename, before, edits))
}
