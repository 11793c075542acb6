// Command bleeparr runs the censoring daemon and provides operator commands
// for its queue, history, opt-in flags and settings.
//
// Commands talk to a running daemon over its control API when one answers on
// paths.api_bind and otherwise open the database directly.
package main
