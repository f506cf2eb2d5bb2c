// Package config loads the TOML document that drives a whole extraction
// run: how many bugs to extract, how hard to retry each one, how far to
// mutate the seed input, and where generated artifacts land.
package config
