// Package bugmodel holds the data model a single bug extraction attempt is
// built from: source locations (FileLine, CodeSite), the lazily-materialized
// code queued at each site (LazyPiece), the thread schedule being assembled
// (Interleave, ThreadPointer), and the bug itself (Bug, BugLog) — see
// spec.md §3.
package bugmodel
