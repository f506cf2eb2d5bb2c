// Package tracer shells out to the external GDB-based tracer that records
// a target program's execution as a sequence of thread pause points, then
// loads the resulting log and blacklist into a trace.Trace. See spec.md §6.
package tracer
