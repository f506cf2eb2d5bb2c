// Package reproduce is a thin collaborator that replays a bug's recorded
// schedule against the target under GDB, as a post-extraction sanity
// check that the synthesized crash actually fires outside the builder's
// own checking pass. See spec.md §6/§7's CantReproduce outcome.
package reproduce
