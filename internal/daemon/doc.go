// Package daemon hosts the long-running bleeparr process: it enforces a
// single instance through a lock file, owns the workflow manager, and serves
// the control HTTP API on paths.api_bind.
package daemon
