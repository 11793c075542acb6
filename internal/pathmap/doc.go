// Package pathmap translates file paths reported by Sonarr and Radarr into
// paths reachable from this host.
//
// Translation tries the configured prefix mappings first and then falls back
// to searching a fixed set of media roots: a direct basename check, a bounded
// recursive walk for the exact basename, and finally a walk comparing
// punctuation-stripped names. Mappings are supplied by a MappingSource and are
// read again on every call.
package pathmap
