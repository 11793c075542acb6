package arr

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"bleeparr/internal/queue"
	"bleeparr/internal/services"
)

// Radarr adapts the Radarr v3 API. Entities and children are both movies.
type Radarr struct {
	client
}

// NewRadarr constructs a Radarr adapter.
func NewRadarr(endpoint EndpointFunc, flags FlagSource, opts ...Option) *Radarr {
	return &Radarr{client: newClient("radarr", queue.KindMovie, endpoint, flags, opts)}
}

type radarrMovie struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Year      int    `json:"year"`
	Path      string `json:"path"`
	Monitored bool   `json:"monitored"`
	HasFile   bool   `json:"hasFile"`
	MovieFile *struct {
		ID int64 `json:"id"`
	} `json:"movieFile"`
}

func (m radarrMovie) entity() Entity {
	return Entity{ID: m.ID, Title: m.Title, Year: m.Year, Path: m.Path, Monitored: m.Monitored}
}

func (m radarrMovie) detail() string {
	if m.Year > 0 {
		return strconv.Itoa(m.Year)
	}
	return ""
}

type radarrMovieFile struct {
	ID      int64  `json:"id"`
	MovieID int64  `json:"movieId"`
	Path    string `json:"path"`
}

// ListFilteredEntities returns the movies flagged for censoring.
func (r *Radarr) ListFilteredEntities(ctx context.Context) ([]Entity, error) {
	filtered, err := r.filteredSet(ctx)
	if err != nil {
		return nil, err
	}
	if len(filtered) == 0 {
		return nil, nil
	}
	var movies []radarrMovie
	if err := r.getJSON(ctx, "/api/v3/movie", nil, &movies); err != nil {
		return nil, err
	}
	var out []Entity
	for _, m := range movies {
		if _, ok := filtered[m.ID]; ok {
			out = append(out, m.entity())
		}
	}
	return out, nil
}

// RecentImportEvents returns movie imports since the given time.
func (r *Radarr) RecentImportEvents(ctx context.Context, since time.Time) ([]ImportEvent, error) {
	records, err := r.history(ctx, since)
	if err != nil {
		return nil, err
	}
	events := make([]ImportEvent, 0, len(records))
	for _, rec := range records {
		if rec.MovieID <= 0 {
			continue
		}
		events = append(events, ImportEvent{
			EntityID:    rec.MovieID,
			ChildID:     rec.MovieID,
			SourceTitle: rec.SourceTitle,
			ImportedAt:  rec.Date,
		})
	}
	return events, nil
}

// GetEntity fetches one movie.
func (r *Radarr) GetEntity(ctx context.Context, id int64) (Entity, error) {
	movie, err := r.movie(ctx, id)
	if err != nil {
		return Entity{}, err
	}
	return movie.entity(), nil
}

func (r *Radarr) movie(ctx context.Context, id int64) (radarrMovie, error) {
	var movie radarrMovie
	err := r.getJSON(ctx, "/api/v3/movie/"+strconv.FormatInt(id, 10), nil, &movie)
	return movie, err
}

// GetChildFile resolves a movie to its file.
func (r *Radarr) GetChildFile(ctx context.Context, movieID int64) (ChildFile, error) {
	movie, err := r.movie(ctx, movieID)
	if err != nil {
		return ChildFile{}, err
	}
	if movie.MovieFile == nil || movie.MovieFile.ID == 0 {
		return ChildFile{}, services.Wrap(services.ErrNotFound, r.name, "movie file", fmt.Sprintf("movie %d has no file", movieID), nil)
	}
	var file radarrMovieFile
	if err := r.getJSON(ctx, "/api/v3/moviefile/"+strconv.FormatInt(movie.MovieFile.ID, 10), nil, &file); err != nil {
		return ChildFile{}, err
	}
	return ChildFile{
		ChildID:  movie.ID,
		EntityID: movie.ID,
		FileID:   file.ID,
		Path:     file.Path,
		Detail:   movie.detail(),
	}, nil
}

// EntityFiles returns the single file of a movie, or none when it has no file.
func (r *Radarr) EntityFiles(ctx context.Context, movieID int64) ([]ChildFile, error) {
	movie, err := r.movie(ctx, movieID)
	if err != nil {
		return nil, err
	}
	if movie.MovieFile == nil || movie.MovieFile.ID == 0 {
		return nil, nil
	}
	file, err := r.GetChildFile(ctx, movieID)
	if err != nil {
		return nil, err
	}
	return []ChildFile{file}, nil
}
