// Package domclient is the thin subprocess client for the dominator
// oracle: an external source-analysis tool that, given a file/line and a
// Mode, reports every line that pre-dominates, post-dominates, both, or
// is otherwise unconstrained relative to it within the same function — see
// spec.md §6 and the GLOSSARY entry for "Dominator oracle".
package domclient
