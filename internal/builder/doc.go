// Package builder drives one bug-extraction attempt end to end: the
// pre-bug DUA chain, pattern instantiation and assume expansion, schedule
// assembly, and the generator/checker simulation passes that either accept
// or reject the attempt — see spec.md §4.5 and §4.8. Extractor wraps State
// in the retry loop soft failures are expected to hit routinely.
package builder
