package queue

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind distinguishes the two media variants bleeparr processes.
type Kind string

const (
	// KindShow is an episode file belonging to a series.
	KindShow Kind = "show"
	// KindMovie is a standalone movie file.
	KindMovie Kind = "movie"
)

// ParseKind converts user or API input into a Kind.
func ParseKind(value string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "show", "tv", "series", "episode":
		return KindShow, nil
	case "movie", "film":
		return KindMovie, nil
	default:
		return "", fmt.Errorf("unknown media kind %q", value)
	}
}

// Valid reports whether k is a recognized kind.
func (k Kind) Valid() bool {
	return k == KindShow || k == KindMovie
}

func (k Kind) String() string { return string(k) }

// Media identifies one media file by kind and library-manager identifier. Shows
// carry the parent series; movies never do.
type Media struct {
	Kind     Kind
	ItemID   int64
	SeriesID int64
}

// Show builds the identity of an episode within a series.
func Show(episodeID, seriesID int64) Media {
	return Media{Kind: KindShow, ItemID: episodeID, SeriesID: seriesID}
}

// Movie builds the identity of a movie.
func Movie(movieID int64) Media {
	return Media{Kind: KindMovie, ItemID: movieID}
}

// Validate checks the variant is well formed.
func (m Media) Validate() error {
	if !m.Kind.Valid() {
		return fmt.Errorf("invalid media kind %q", m.Kind)
	}
	if m.ItemID <= 0 {
		return errors.New("item id must be positive")
	}
	if m.Kind == KindMovie && m.SeriesID != 0 {
		return errors.New("movies cannot reference a series")
	}
	if m.SeriesID < 0 {
		return errors.New("series id must not be negative")
	}
	return nil
}

// Item is a pending unit of work in the admission queue.
type Item struct {
	ID int64
	Media
	FilePath  string
	Title     string
	Detail    string
	Manual    bool
	DryRun    bool
	CreatedAt time.Time
}

// Label renders a short human-readable description.
func (i *Item) Label() string {
	if i == nil {
		return ""
	}
	parts := make([]string, 0, 2)
	if t := strings.TrimSpace(i.Title); t != "" {
		parts = append(parts, t)
	}
	if d := strings.TrimSpace(i.Detail); d != "" {
		parts = append(parts, d)
	}
	if len(parts) == 0 {
		return fmt.Sprintf("%s #%d", i.Kind, i.ItemID)
	}
	return strings.Join(parts, " ")
}

// HistoryRecord is the immutable outcome of processing one item.
type HistoryRecord struct {
	ID int64
	Media
	FilePath    string
	Title       string
	Detail      string
	Success     bool
	SwearsFound int
	Error       string
	OutputPath  string
	DryRun      bool
	ProcessedAt time.Time
}

// HistoryQuery selects a page of history ordered newest first. An empty Kind
// returns all kinds.
type HistoryQuery struct {
	Kind   Kind
	Limit  int
	Offset int
}

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 1000
)

func (q HistoryQuery) normalized() HistoryQuery {
	if q.Limit <= 0 {
		q.Limit = defaultHistoryLimit
	}
	if q.Limit > maxHistoryLimit {
		q.Limit = maxHistoryLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return q
}

// FilteredFlag marks whether a series or movie opts into censoring.
type FilteredFlag struct {
	Kind      Kind
	EntityID  int64
	Filtered  bool
	UpdatedAt time.Time
}

// DedupMode selects which existing rows block a new admission.
type DedupMode string

const (
	// DedupIdentity rejects an identity that is pending or was ever processed.
	DedupIdentity DedupMode = "identity"
	// DedupPath rejects a file path that is pending or was ever processed.
	DedupPath DedupMode = "path"
	// DedupWindow rejects an identity processed within Policy.Window.
	DedupWindow DedupMode = "window"
)

// Policy configures admission dedup.
type Policy struct {
	Mode   DedupMode
	Window time.Duration
}

// ParseDedupMode converts a config value into a DedupMode.
func ParseDedupMode(value string) (DedupMode, error) {
	switch mode := DedupMode(strings.ToLower(strings.TrimSpace(value))); mode {
	case "":
		return DedupIdentity, nil
	case DedupIdentity, DedupPath, DedupWindow:
		return mode, nil
	default:
		return "", fmt.Errorf("unknown dedup policy %q", value)
	}
}
