package settings

import (
	"context"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"bleeparr/internal/censor"
	"bleeparr/internal/config"
	"bleeparr/internal/logging"
	"bleeparr/internal/pathmap"
)

// Source is the persisted key/value store backing settings.
type Source interface {
	GetSetting(ctx context.Context, key string) (string, bool, error)
	SetSetting(ctx context.Context, key, value string) error
	AllSettings(ctx context.Context) (map[string]string, error)
}

// Connection holds the address and credentials for a library manager.
type Connection struct {
	URL    string
	APIKey string
}

// Configured reports whether both values are present.
func (c Connection) Configured() bool {
	return c.URL != "" && c.APIKey != ""
}

// Reader resolves typed settings against the store, config and environment.
type Reader struct {
	source Source
	cfg    *config.Config
	logger *slog.Logger
}

// NewReader builds a reader. cfg supplies fallbacks for connection details and
// the tool binary; it may be nil.
func NewReader(source Source, cfg *config.Config, logger *slog.Logger) *Reader {
	return &Reader{
		source: source,
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "settings"),
	}
}

func (r *Reader) raw(ctx context.Context, key string) (string, bool) {
	if r.source == nil {
		return "", false
	}
	value, ok, err := r.source.GetSetting(ctx, key)
	if err != nil {
		logging.WarnWithContext(r.logger, "setting read failed; using default", "setting_read_failed",
			logging.String("key", key),
			logging.Error(err),
		)
		return "", false
	}
	return value, ok
}

// String returns the stored value for key, or def when unset.
func (r *Reader) String(ctx context.Context, key, def string) string {
	value, ok := r.raw(ctx, key)
	if !ok {
		return def
	}
	return strings.TrimSpace(value)
}

// Int returns the stored integer for key. Missing, malformed or negative
// values yield def.
func (r *Reader) Int(ctx context.Context, key string, def int) int {
	value, ok := r.raw(ctx, key)
	if !ok || strings.TrimSpace(value) == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 0 {
		r.logger.Debug("malformed integer setting", logging.String("key", key), logging.String("value", value))
		return def
	}
	return n
}

// Bool returns the stored boolean for key, or def when unset or unparseable.
func (r *Reader) Bool(ctx context.Context, key string, def bool) bool {
	value, ok := r.raw(ctx, key)
	if !ok {
		return def
	}
	b, ok := parseBool(value)
	if !ok {
		return def
	}
	return b
}

// PollInterval returns the delay between poll cycles.
func (r *Reader) PollInterval(ctx context.Context) time.Duration {
	seconds := r.Int(ctx, KeyPollInterval, defaultPollIntervalSeconds)
	if seconds <= 0 {
		seconds = defaultPollIntervalSeconds
	}
	return time.Duration(seconds) * time.Second
}

// AutoProcessing reports whether the poller fetches new imports.
func (r *Reader) AutoProcessing(ctx context.Context) bool {
	return r.Bool(ctx, KeyAutoProcessing, true)
}

// DryRun reports whether polled items are processed without output.
func (r *Reader) DryRun(ctx context.Context) bool {
	return r.Bool(ctx, KeyDryRun, false)
}

// Sonarr returns the Sonarr connection.
func (r *Reader) Sonarr(ctx context.Context) Connection {
	var fallback config.Arr
	if r.cfg != nil {
		fallback = r.cfg.Sonarr
	}
	return r.connection(ctx, KeySonarrURL, KeySonarrAPIKey, fallback, "SONARR_URL", "SONARR_API_KEY")
}

// Radarr returns the Radarr connection.
func (r *Reader) Radarr(ctx context.Context) Connection {
	var fallback config.Arr
	if r.cfg != nil {
		fallback = r.cfg.Radarr
	}
	return r.connection(ctx, KeyRadarrURL, KeyRadarrAPIKey, fallback, "RADARR_URL", "RADARR_API_KEY")
}

func (r *Reader) connection(ctx context.Context, urlKey, apiKey string, fallback config.Arr, urlEnv, keyEnv string) Connection {
	pick := func(key, cfgValue, env string) string {
		if v := r.String(ctx, key, ""); v != "" {
			return v
		}
		if cfgValue != "" {
			return cfgValue
		}
		return strings.TrimSpace(os.Getenv(env))
	}
	return Connection{
		URL:    strings.TrimRight(pick(urlKey, fallback.URL, urlEnv), "/"),
		APIKey: pick(apiKey, fallback.APIKey, keyEnv),
	}
}

// ToolConfig returns the tool parameters for the next invocation.
func (r *Reader) ToolConfig(ctx context.Context) censor.Config {
	binary := r.String(ctx, KeyToolBinary, "")
	if binary == "" && r.cfg != nil {
		binary = r.cfg.Tool.Binary
	}
	pass := strings.ToLower(r.String(ctx, KeyPassSelection, censor.PassBoth))
	switch pass {
	case censor.PassBoth, censor.PassFirst, censor.PassSecond:
	default:
		pass = censor.PassBoth
	}
	beepMode := r.String(ctx, KeyBeepMode, censor.DefaultBeep)
	if beepMode == "" {
		beepMode = censor.DefaultBeep
	}
	swears := r.String(ctx, KeySwearsFile, censor.DefaultSwear)
	if swears == "" {
		swears = censor.DefaultSwear
	}
	outputDir := r.String(ctx, KeyOutputDirectory, "")
	if outputDir != "" {
		if expanded, err := config.ExpandPath(outputDir); err == nil {
			outputDir = expanded
		}
	}
	return censor.Config{
		Binary:          binary,
		SwearsFile:      swears,
		OutputPrefix:    r.String(ctx, KeyOutputPrefix, defaultOutputPrefix),
		OutputDirectory: outputDir,
		BoostDB:         r.Int(ctx, KeyBoostDB, defaultBoostDB),
		PreBufferMS:     r.Int(ctx, KeyPreBuffer, defaultBufferMS),
		PostBufferMS:    r.Int(ctx, KeyPostBuffer, defaultBufferMS),
		PassSelection:   pass,
		UseBeep:         r.Bool(ctx, KeyUseBeep, false),
		BeepMode:        beepMode,
		TempDir:         r.String(ctx, KeyTempDir, ""),
		RetainClips:     r.Bool(ctx, KeyRetainClips, false),
	}
}

// PathMappings returns the configured prefix mappings, or the defaults when
// the stored value is missing, malformed or holds no valid entry.
func (r *Reader) PathMappings(ctx context.Context) []pathmap.Mapping {
	value, ok := r.raw(ctx, KeyPathMappings)
	if !ok || strings.TrimSpace(value) == "" {
		return pathmap.DefaultMappings()
	}
	mappings, err := parseMappings(value)
	if err != nil {
		logging.WarnWithContext(r.logger, "invalid path mappings; using defaults", "path_mappings_invalid",
			logging.Error(err),
			logging.String(logging.FieldImpact, "default mappings applied"),
		)
		return pathmap.DefaultMappings()
	}
	return mappings
}

// Set validates and stores value under key.
func (r *Reader) Set(ctx context.Context, key, value string) (string, error) {
	normalized, err := Normalize(key, value)
	if err != nil {
		return "", err
	}
	if err := r.source.SetSetting(ctx, strings.TrimSpace(key), normalized); err != nil {
		return "", err
	}
	r.logger.Info("setting updated",
		logging.String(logging.FieldEventType, "setting_updated"),
		logging.String("key", key),
	)
	return normalized, nil
}

// Entry is one effective setting as shown to operators.
type Entry struct {
	Key     string
	Value   string
	Stored  bool
	Unknown bool
	Secret  bool
}

// Entries lists every known setting with its effective value followed by any
// unknown stored keys.
func (r *Reader) Entries(ctx context.Context) ([]Entry, error) {
	stored := map[string]string{}
	if r.source != nil {
		all, err := r.source.AllSettings(ctx)
		if err != nil {
			return nil, err
		}
		stored = all
	}
	entries := make([]Entry, 0, len(definitions)+len(stored))
	for _, def := range definitions {
		value, ok := stored[def.Key]
		if !ok {
			value = def.Default
		}
		entries = append(entries, Entry{Key: def.Key, Value: value, Stored: ok, Secret: def.Type == TypeSecret})
	}
	var extra []string
	for key := range stored {
		if _, known := Lookup(key); !known {
			extra = append(extra, key)
		}
	}
	sort.Strings(extra)
	for _, key := range extra {
		entries = append(entries, Entry{Key: key, Value: stored[key], Stored: true, Unknown: true})
	}
	return entries, nil
}
