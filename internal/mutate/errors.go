package mutate

import "errors"

// errInvalidInput is returned when Mutate is called with an input that
// fails the Checker before any mutation has been applied.
var errInvalidInput = errors.New("mutate: initial input rejected by checker")
