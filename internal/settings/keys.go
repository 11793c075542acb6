package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"bleeparr/internal/censor"
	"bleeparr/internal/pathmap"
)

// Setting keys stored in the settings table.
const (
	KeySonarrURL       = "sonarr_url"
	KeySonarrAPIKey    = "sonarr_api_key"
	KeyRadarrURL       = "radarr_url"
	KeyRadarrAPIKey    = "radarr_api_key"
	KeySwearsFile      = "swears_file"
	KeyOutputPrefix    = "output_prefix"
	KeyOutputDirectory = "output_directory"
	KeyAutoProcessing  = "enable_auto_processing"
	KeyPollInterval    = "poll_interval_seconds"
	KeyBoostDB         = "boost_db"
	KeyPreBuffer       = "pre_buffer"
	KeyPostBuffer      = "post_buffer"
	KeyToolBinary      = "bleeptool"
	KeyUseBeep         = "use_beep"
	KeyBeepMode        = "beep_mode"
	KeyTempDir         = "temp_dir"
	KeyRetainClips     = "retain_clips"
	KeyPassSelection   = "pass_selection"
	KeyDryRun          = "dry_run"
	KeyPathMappings    = "path_mappings"
)

const (
	defaultPollIntervalSeconds = 300
	defaultBoostDB             = 6
	defaultBufferMS            = 100
	defaultOutputPrefix        = "clean_"
)

// Type describes how a setting value is interpreted.
type Type string

const (
	TypeString Type = "string"
	TypeInt    Type = "int"
	TypeBool   Type = "bool"
	TypeJSON   Type = "json"
	TypeSecret Type = "secret"
)

// Definition documents one known setting.
type Definition struct {
	Key         string
	Type        Type
	Default     string
	Description string
}

var definitions = []Definition{
	{KeySonarrURL, TypeString, "", "Sonarr base URL"},
	{KeySonarrAPIKey, TypeSecret, "", "Sonarr API key"},
	{KeyRadarrURL, TypeString, "", "Radarr base URL"},
	{KeyRadarrAPIKey, TypeSecret, "", "Radarr API key"},
	{KeyAutoProcessing, TypeBool, "1", "poll Sonarr and Radarr for new imports"},
	{KeyPollInterval, TypeInt, strconv.Itoa(defaultPollIntervalSeconds), "seconds between poll cycles"},
	{KeyDryRun, TypeBool, "0", "run polled items without writing output"},
	{KeySwearsFile, TypeString, censor.DefaultSwear, "word list passed to the tool"},
	{KeyOutputPrefix, TypeString, defaultOutputPrefix, "prefix for cleaned files"},
	{KeyOutputDirectory, TypeString, "", "directory for cleaned files (empty keeps the input directory)"},
	{KeyToolBinary, TypeString, "", "censoring tool override"},
	{KeyBoostDB, TypeInt, strconv.Itoa(defaultBoostDB), "dialog boost in dB"},
	{KeyPreBuffer, TypeInt, strconv.Itoa(defaultBufferMS), "milliseconds muted before a word"},
	{KeyPostBuffer, TypeInt, strconv.Itoa(defaultBufferMS), "milliseconds muted after a word"},
	{KeyPassSelection, TypeString, censor.PassBoth, "transcription passes: both, first or second"},
	{KeyUseBeep, TypeBool, "0", "beep instead of muting"},
	{KeyBeepMode, TypeString, censor.DefaultBeep, "beep placement mode"},
	{KeyTempDir, TypeString, "", "scratch directory for clips"},
	{KeyRetainClips, TypeBool, "0", "keep intermediate clips"},
	{KeyPathMappings, TypeJSON, "", "host to local path prefix mappings"},
}

// Definitions returns the known settings in display order.
func Definitions() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

// Lookup returns the definition for key.
func Lookup(key string) (Definition, bool) {
	for _, def := range definitions {
		if def.Key == key {
			return def, true
		}
	}
	return Definition{}, false
}

// Normalize validates value for key and returns the canonical stored form.
// Booleans are stored as "1" or "0". Unknown keys are rejected.
func Normalize(key, value string) (string, error) {
	key = strings.TrimSpace(key)
	def, ok := Lookup(key)
	if !ok {
		return "", fmt.Errorf("unknown setting %q", key)
	}
	value = strings.TrimSpace(value)
	switch def.Type {
	case TypeBool:
		b, ok := parseBool(value)
		if !ok {
			return "", fmt.Errorf("%s: expected a boolean, got %q", key, value)
		}
		if b {
			return "1", nil
		}
		return "0", nil
	case TypeInt:
		n, err := strconv.Atoi(value)
		if err != nil {
			return "", fmt.Errorf("%s: expected an integer, got %q", key, value)
		}
		if n < 0 || (key == KeyPollInterval && n == 0) {
			return "", fmt.Errorf("%s: value %d out of range", key, n)
		}
		return strconv.Itoa(n), nil
	case TypeJSON:
		mappings, err := parseMappings(value)
		if err != nil {
			return "", fmt.Errorf("%s: %w", key, err)
		}
		encoded, err := json.Marshal(mappings)
		if err != nil {
			return "", fmt.Errorf("%s: encode: %w", key, err)
		}
		return string(encoded), nil
	}

	switch key {
	case KeyPassSelection:
		switch strings.ToLower(value) {
		case censor.PassBoth, censor.PassFirst, censor.PassSecond:
			return strings.ToLower(value), nil
		}
		return "", fmt.Errorf("%s: expected both, first or second, got %q", key, value)
	case KeySonarrURL, KeyRadarrURL:
		if value != "" && !strings.HasPrefix(value, "http://") && !strings.HasPrefix(value, "https://") {
			return "", fmt.Errorf("%s: expected an http or https URL, got %q", key, value)
		}
		return strings.TrimRight(value, "/"), nil
	case KeyBeepMode:
		if value == "" || strings.ContainsAny(value, " \t") {
			return "", fmt.Errorf("%s: expected a single mode token, got %q", key, value)
		}
	}
	return value, nil
}

func parseBool(value string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	}
	return false, false
}

func parseMappings(value string) ([]pathmap.Mapping, error) {
	var raw []pathmap.Mapping
	if err := json.Unmarshal([]byte(value), &raw); err != nil {
		return nil, fmt.Errorf("decode mappings: %w", err)
	}
	valid := make([]pathmap.Mapping, 0, len(raw))
	for _, m := range raw {
		m.HostPrefix = strings.TrimSpace(m.HostPrefix)
		m.ContainerPrefix = strings.TrimSpace(m.ContainerPrefix)
		if m.Valid() {
			valid = append(valid, m)
		}
	}
	if len(valid) == 0 {
		return nil, errors.New("no valid mappings")
	}
	return valid, nil
}
