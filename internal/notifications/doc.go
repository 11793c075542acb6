// Package notifications delivers censoring events via ntfy.
//
// NewService returns a no-op notifier when no topic is configured. Each event
// type can be switched off in the [notifications] config section; suppressed
// events are dropped silently.
package notifications
