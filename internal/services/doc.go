// Package services defines shared utilities consumed by the workflow and the
// external integrations (Sonarr, Radarr, the censoring tool).
//
// Key responsibilities:
//   - Context helpers that stamp queue item identity, media kind, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper so callers can classify
//     failures with errors.Is instead of matching strings.
//
// Use these helpers when wiring new integration code so error handling and
// observability stay uniform across the daemon.
package services
