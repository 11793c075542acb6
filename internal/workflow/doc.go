// Package workflow runs the background poll cycle.
//
// A Manager wakes on a fixed tick and starts a cycle once the configured poll
// interval has elapsed. Each cycle fetches import events from every configured
// source, admits matching files into the queue, then drains the queue: every
// pending item is resolved to a local path, handed to the censoring tool and
// recorded in history. Cycles never overlap; the manual trigger shares the
// same lock as the background loop.
package workflow
