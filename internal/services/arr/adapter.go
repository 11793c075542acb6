package arr

import (
	"context"
	"time"

	"bleeparr/internal/queue"
)

// Entity is a series (Sonarr) or movie (Radarr).
type Entity struct {
	ID        int64
	Title     string
	Year      int
	Path      string
	Monitored bool
}

// ImportEvent reports a file imported by the library manager. For Sonarr the
// child is an episode; for Radarr the child is the movie itself.
type ImportEvent struct {
	EntityID    int64
	ChildID     int64
	SourceTitle string
	ImportedAt  time.Time
}

// ChildFile is the file backing an episode or movie.
type ChildFile struct {
	ChildID  int64
	EntityID int64
	FileID   int64
	Path     string
	Detail   string
}

// Adapter is the contract shared by the Sonarr and Radarr clients.
type Adapter interface {
	Kind() queue.Kind
	Name() string
	Enabled(ctx context.Context) bool
	ListFilteredEntities(ctx context.Context) ([]Entity, error)
	RecentImportEvents(ctx context.Context, since time.Time) ([]ImportEvent, error)
	GetEntity(ctx context.Context, id int64) (Entity, error)
	GetChildFile(ctx context.Context, childID int64) (ChildFile, error)
	EntityFiles(ctx context.Context, entityID int64) ([]ChildFile, error)
	Ping(ctx context.Context) error
}

// FlagSource lists entities opted into censoring.
type FlagSource interface {
	FilteredIDs(ctx context.Context, kind queue.Kind) ([]int64, error)
}

// Endpoint is the base URL and API key of one library manager.
type Endpoint struct {
	URL    string
	APIKey string
}

// EndpointFunc returns the current endpoint.
type EndpointFunc func(ctx context.Context) Endpoint

// Fixed returns an EndpointFunc that always yields the same endpoint.
func Fixed(url, apiKey string) EndpointFunc {
	return func(context.Context) Endpoint { return Endpoint{URL: url, APIKey: apiKey} }
}

const importEventType = "downloadFolderImported"
