package api

import (
	"hash/fnv"
	"path/filepath"
	"strings"

	"bleeparr/internal/queue"
)

var videoExtensions = map[string]struct{}{
	".mp4":  {},
	".mkv":  {},
	".avi":  {},
	".mov":  {},
	".wmv":  {},
	".m4v":  {},
	".ts":   {},
	".mpg":  {},
	".mpeg": {},
	".webm": {},
}

var episodeMarkers = []string{"S01E", "S02E", "1x", "2x"}

// IsVideoFile reports whether path carries a known video extension.
func IsVideoFile(path string) bool {
	_, ok := videoExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// GuessKind classifies a bare path: a "Season" directory or an episode marker
// in the file name means a show, anything else a movie.
func GuessKind(path string) queue.Kind {
	if strings.Contains(path, "Season") {
		return queue.KindShow
	}
	name := filepath.Base(path)
	for _, marker := range episodeMarkers {
		if strings.Contains(name, marker) {
			return queue.KindShow
		}
	}
	return queue.KindMovie
}

// SyntheticID derives a stable positive identifier for a file that has no
// library-manager identity. The top bit range is reserved so synthetic ids do
// not collide with the small sequential ids Sonarr and Radarr hand out.
func SyntheticID(path string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(filepath.Clean(path)))
	return int64(h.Sum64()>>2) | 1<<61
}

// ManualTitle derives a display title from a bare path.
func ManualTitle(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
