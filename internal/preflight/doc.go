// Package preflight provides readiness checks for the directories and
// services bleeparr depends on.
//
// The daemon logs the results at startup and the status command renders them.
// Checks never fail hard; each reports a Result with a short detail.
package preflight
