// Package arr implements source adapters for the Sonarr and Radarr v3 REST
// APIs.
//
// Connection details are looked up on every request so edits to the settings
// table apply without a restart. Only entities flagged for censoring are
// reported by ListFilteredEntities.
package arr
