// Package artifact persists one bug's output files — the JSON bug log,
// mutated input, schedule, and reproducer answer named in spec.md §6 — to
// a local directory and, optionally, an S3 bucket, writing each file
// atomically so a retried or aborted run never leaves a half-written
// artifact behind.
package artifact
