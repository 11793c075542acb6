// Package logs tails the daemon log file for `bleeparr logs`.
//
// Last reads the trailing lines with bounded memory; Follow polls for
// appended lines and restarts from the beginning when the file is truncated.
package logs
