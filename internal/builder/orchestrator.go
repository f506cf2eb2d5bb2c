package builder

import (
	"context"
	"math/rand"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/concuject/concuject/internal/bugmodel"
	"github.com/concuject/concuject/internal/trace"
)

// Orchestrator fans a whole run's bug_num independent extractions out
// across a bounded worker pool. Each bug gets its own PRNG stream seeded
// deterministically from the run seed and its bug id, so the set of
// extracted bugs (though not the order extraction goroutines finish in)
// is reproducible independent of scheduling.
type Orchestrator struct {
	Extractor *Extractor
	// Concurrency bounds how many Extract calls run at once. <= 0 means 1.
	Concurrency int
}

func NewOrchestrator(extractor *Extractor, concurrency int) *Orchestrator {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Orchestrator{Extractor: extractor, Concurrency: concurrency}
}

// Result pairs one bug_id's outcome; Err is non-nil when the id's
// extraction exhausted its retry budget or hit a hard error.
type Result struct {
	BugID int
	Bug   *bugmodel.Bug
	Err   error
}

// ExtractAll runs bugNum independent extractions against tr, each seeded
// from seed XOR'd with its bug id. It returns one Result per bug id, in
// bug-id order, regardless of completion order. A ctx cancellation (from
// one goroutine's errgroup-propagated hard error, or the caller) stops
// any extraction not yet started; in-flight ones still run to completion
// so their Result reflects what actually happened.
func (o *Orchestrator) ExtractAll(ctx context.Context, bugNum int, tr *trace.Trace, inputFile string, inputBytes []byte, pathLen int, seed int64) ([]Result, error) {
	results := make([]Result, bugNum)
	sem := semaphore.NewWeighted(int64(o.Concurrency))
	g, ctx := errgroup.WithContext(ctx)

	for bugID := 0; bugID < bugNum; bugID++ {
		bugID := bugID
		if err := sem.Acquire(ctx, 1); err != nil {
			results[bugID] = Result{BugID: bugID, Err: err}
			continue
		}
		g.Go(func() error {
			defer sem.Release(1)
			rng := rand.New(rand.NewSource(seed ^ int64(bugID)))
			bug, err := o.Extractor.Extract(ctx, bugID, tr, inputFile, inputBytes, pathLen, rng)
			results[bugID] = Result{BugID: bugID, Bug: bug, Err: err}
			if err != nil && !IsSoft(err) {
				return err
			}
			return nil
		})
	}

	err := g.Wait()
	return results, err
}
