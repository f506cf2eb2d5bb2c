// Package piece implements the closed set of injected C code pieces the
// bug-extraction engine emits — immediate/var/input/expression/conditional
// assignments, if/block delimiters, lock and condition-variable operations,
// sleep, crash, and ifdef fences — together with an abstract evaluator over
// 32-bit words that drives both the generator pass and the checker pass of
// the interleave simulator.
//
// Pieces are immutable once constructed. The lazy, per-schedule-entry
// generation step that builds a Piece from a [ReservedPiece] against the
// simulator's live [State] lives in this package too, since it is the
// expression layer (specifically [Expected]) that needs to read that
// state at materialize time rather than at build time.
package piece
