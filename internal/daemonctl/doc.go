// Package daemonctl is the client side of the daemon control API. The CLI
// uses it to reach a running daemon and falls back to direct store access
// when none answers.
package daemonctl
