package builder

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/concuject/concuject/internal/bugmodel"
	"github.com/concuject/concuject/internal/domclient"
	"github.com/concuject/concuject/internal/trace"
)

// BugChecker inspects a fully implemented bug and returns a non-nil (soft)
// error if it should be rejected and retried — e.g. the too-easy check
// extractor callers run across a sample of alternate interleavings.
type BugChecker func(*bugmodel.Bug) error

// Extractor retries State.AddBug/State.Implement against fresh randomness
// until one attempt survives every check, or the soft-failure budget runs
// out.
type Extractor struct {
	LocChecker trace.LocationChecker
	Dom        domclient.Oracle
	BugChecker BugChecker
}

// FailLimit bounds how many soft failures one Extract call tolerates before
// giving up and returning the last failure seen.
const FailLimit = 20

func NewExtractor(locChecker trace.LocationChecker, dom domclient.Oracle, bugChecker BugChecker) *Extractor {
	return &Extractor{LocChecker: locChecker, Dom: dom, BugChecker: bugChecker}
}

// Extract builds one bug against tr, retrying from scratch on every soft
// failure (no available position, an unreachable schedule point, a checker
// pass that never triggered, a lock mismatch) up to FailLimit times. A hard
// error — anything IsSoft doesn't recognize — aborts immediately.
func (e *Extractor) Extract(ctx context.Context, bugID int, tr *trace.Trace, inputFile string, inputBytes []byte, pathLen int, rng *rand.Rand) (*bugmodel.Bug, error) {
	locChecker := func(fl bugmodel.FileLine) bool {
		return e.LocChecker(fl) && !tr.InBlacklist(fl)
	}

	var lastErr error
	for failCount := 0; ; {
		state := NewState(bugID, tr, e.Dom, locChecker, inputFile, inputBytes, rng)

		err := state.AddBug(ctx, pathLen)
		if err == nil {
			err = state.Implement()
		}
		if err == nil && e.BugChecker != nil {
			err = e.BugChecker(state.Bug)
		}
		if err == nil {
			return state.Bug, nil
		}

		if !IsSoft(err) {
			return nil, err
		}
		lastErr = err
		failCount++
		if failCount >= FailLimit {
			return nil, fmt.Errorf("builder: giving up after %d retries: %w", failCount, lastErr)
		}
	}
}
