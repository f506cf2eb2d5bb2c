// Package mutate is a thin byte-level mutation helper used to seed an
// extraction attempt's input file: it flips, inserts, or deletes single
// bytes under a caller-supplied validity check, retrying until the
// requested number of accepted mutations have been applied.
package mutate
