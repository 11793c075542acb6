// Package settings provides a typed view over the runtime settings table.
//
// Settings are edited while the daemon runs, so every accessor reads the
// store again. Missing or malformed values fall back to documented defaults
// and never fail the caller.
package settings
