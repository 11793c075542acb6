// Package api implements the operations exposed to operators through the
// daemon HTTP surface and the CLI, and the wire-format types they return.
//
// # Operations
//
// Service.Enqueue admits one explicit item. Manual requests must resolve to
// a local file first and report services.ErrNotFound otherwise.
//
// Service.EnqueueEntity queues every file of a series or movie. Files that
// do not resolve are skipped and listed in the response.
//
// Service.EnqueueFile queues a bare path, guessing the media kind from the
// path and deriving a stable synthetic identifier.
//
// Service.Status, History, ResetQueue, ResetHistory, SetFiltered, Flags,
// Preflight and TriggerSync round out the surface. TriggerSync runs one poll
// cycle synchronously and is the only caller that surfaces source failures.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Timestamps use RFC3339 with milliseconds.
// Validation failures are tagged with services.ErrValidation so transports
// can map them to client errors.
package api
