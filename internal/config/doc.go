// Package config loads, normalizes, and validates bleeparr configuration.
//
// The TOML file carries bootstrap settings: directories, workflow timing, the
// fallback roots the path resolver searches, admission dedup policy, the
// censoring tool binary, notification routing, and logging. Runtime tool
// parameters and path mappings live in the settings table instead, so they can
// change while the daemon runs; fields here that overlap (Sonarr/Radarr
// connection details) only act as fallbacks for those settings.
//
// Call Load to obtain a ready-to-use Config with home directories expanded and
// environment overrides applied, and EnsureDirectories before opening the
// database.
package config
