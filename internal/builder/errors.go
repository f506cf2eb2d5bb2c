package builder

import (
	"errors"

	"github.com/concuject/concuject/internal/piece"
	"github.com/concuject/concuject/internal/trace"
)

// Soft errors: the caller retries the whole attempt with a fresh State.
var (
	ErrNoPosition      = errors.New("builder: no position satisfies the requested thread count")
	ErrCantFollowOrder = errors.New("builder: schedule reached a point the injected control flow made unreachable")
	ErrCantTrigger     = errors.New("builder: checker pass completed without the crash piece firing")
	ErrTooEasy         = errors.New("builder: bug accepted under every sampled interleaving, not just the intended one")
)

// IsSoft reports whether err is one of the retryable extraction failures —
// no-position, cannot-follow-order, cannot-trigger, too-easy, or a lock
// acquired-twice/released-unheld violation — as opposed to a programming
// error that should abort the whole run.
func IsSoft(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, ErrNoPosition),
		errors.Is(err, ErrCantFollowOrder),
		errors.Is(err, ErrCantTrigger),
		errors.Is(err, ErrTooEasy),
		errors.Is(err, trace.ErrNoAvailablePosition):
		return true
	}
	var lockErr *piece.LockError
	return errors.As(err, &lockErr)
}
