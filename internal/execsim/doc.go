// Package execsim replays a bug's assembled Interleave against its queued
// CodeSites, in one of two modes: a generator pass that materializes each
// LazyPiece in schedule order and applies it to live state, and a checker
// pass that additionally observes whether the bug's Crash piece actually
// fires. See spec.md §4.7.
package execsim
