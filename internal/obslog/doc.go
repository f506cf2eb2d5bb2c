// Package obslog is the structured-logging façade every other package
// narrates through: a thin alias over github.com/joeycumines/logiface's
// generic Logger, defaulted to github.com/joeycumines/stumpy's zero-
// dependency JSON sink. Library code that logs (internal/tracer,
// internal/reproduce) takes a *Logger as an argument of its Run function;
// only cmd/concuject/main.go builds the process-wide default and threads it
// through.
package obslog
