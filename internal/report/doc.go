// Package report renders a human-readable summary of a completed
// extraction — pattern name, touched locations, assume outcome — as
// Markdown/HTML, alongside a unified diff of the source before and after
// injection, to sit next to the machine-readable bug-<id>.json artifact.
package report
