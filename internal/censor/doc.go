// Package censor runs the external censoring tool against a single media file
// and interprets its Mute Summary report.
//
// The argument list and the summary format form a fixed contract with the
// tool. Invocations are serialized process-wide and bounded by a timeout.
package censor
