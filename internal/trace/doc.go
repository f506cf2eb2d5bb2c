// Package trace parses a recorded multithreaded execution (one "<tid> <loc>
// <file>:<line>" entry per observed pause) and the blacklist of lines no
// injection may target, and exposes both through a per-thread random-access
// Trace and the Walker cursor the bug builder steps forward with — see
// spec.md §4.4 and the GLOSSARY entries for "Walker cursor" and "Trace".
package trace
