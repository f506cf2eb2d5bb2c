// Package variable manages the per-bug pool of state variables (normal,
// lock, condvar) and generates randomized assignment sequences over the
// piece IR, biased to reuse the least-used existing variable and to mix in
// input-dependent reads — see spec.md §4.2.
package variable
