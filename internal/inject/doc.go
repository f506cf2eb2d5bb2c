// Package inject turns a Bug's queued, rendered code into edits against the
// real source tree: it decides which lines are legal injection targets
// (InjectChecker), accumulates rendered output per file (CodeAccumulator),
// and commits every queued insertion atomically (Injector) — see spec.md §6
// and §4.8's "commit" step.
package inject
