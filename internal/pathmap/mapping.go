package pathmap

import (
	"context"
	"path/filepath"
	"strings"
)

// Mapping rewrites paths under HostPrefix to the same suffix under ContainerPrefix.
type Mapping struct {
	HostPrefix      string `json:"host_path"`
	ContainerPrefix string `json:"container_path"`
}

// Valid reports whether both prefixes are set.
func (m Mapping) Valid() bool {
	return strings.TrimSpace(m.HostPrefix) != "" && strings.TrimSpace(m.ContainerPrefix) != ""
}

// MappingSource supplies the current ordered mapping list.
type MappingSource interface {
	PathMappings(ctx context.Context) []Mapping
}

// Static is a fixed MappingSource.
type Static []Mapping

// PathMappings returns the fixed list.
func (s Static) PathMappings(context.Context) []Mapping { return s }

// DefaultMappings returns the mappings used when none are configured.
func DefaultMappings() []Mapping {
	return []Mapping{
		{HostPrefix: "/mnt/storagepool/TV", ContainerPrefix: "/app/media/tv"},
		{HostPrefix: "/mnt/storagepool/CleanVid", ContainerPrefix: "/app/CleanVid"},
		{HostPrefix: "/mnt/storagepool/Movies", ContainerPrefix: "/app/media/movies"},
	}
}

// Apply translates reported using the first mapping that matches. An exact
// string prefix match keeps the remaining suffix verbatim. Failing that, both
// sides are cleaned and the prefix must end on a path boundary. When nothing
// matches, reported is returned unchanged with false.
func Apply(mappings []Mapping, reported string) (string, bool) {
	if reported == "" {
		return reported, false
	}
	for _, m := range mappings {
		if !m.Valid() {
			continue
		}
		if strings.HasPrefix(reported, m.HostPrefix) {
			return m.ContainerPrefix + reported[len(m.HostPrefix):], true
		}
	}

	cleaned := filepath.Clean(reported)
	for _, m := range mappings {
		if !m.Valid() {
			continue
		}
		rel, ok := relativeTo(cleaned, filepath.Clean(m.HostPrefix))
		if !ok {
			continue
		}
		return filepath.Join(filepath.Clean(m.ContainerPrefix), rel), true
	}
	return reported, false
}

func relativeTo(target, prefix string) (string, bool) {
	if target == prefix {
		return ".", true
	}
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	if !strings.HasPrefix(target, prefix) {
		return "", false
	}
	return target[len(prefix):], true
}
