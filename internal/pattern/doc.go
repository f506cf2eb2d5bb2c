// Package pattern implements the closed library of concurrency-bug
// templates — three atomicity-violation shapes (WWA, RWA, WAW) and three
// order-violation shapes (NoWait, Disorder, Sleep) — plus the location
// search that places each template's code columns onto trace positions.
// See spec.md §4.3 and §4.6.
package pattern
