package arr

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"time"

	"bleeparr/internal/queue"
	"bleeparr/internal/services"
)

// Sonarr adapts the Sonarr v3 API. Entities are series; children are episodes.
type Sonarr struct {
	client
}

// NewSonarr constructs a Sonarr adapter.
func NewSonarr(endpoint EndpointFunc, flags FlagSource, opts ...Option) *Sonarr {
	return &Sonarr{client: newClient("sonarr", queue.KindShow, endpoint, flags, opts)}
}

type sonarrSeries struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Year      int    `json:"year"`
	Path      string `json:"path"`
	Monitored bool   `json:"monitored"`
}

func (s sonarrSeries) entity() Entity {
	return Entity{ID: s.ID, Title: s.Title, Year: s.Year, Path: s.Path, Monitored: s.Monitored}
}

type sonarrEpisode struct {
	ID            int64  `json:"id"`
	SeriesID      int64  `json:"seriesId"`
	EpisodeFileID int64  `json:"episodeFileId"`
	SeasonNumber  int    `json:"seasonNumber"`
	EpisodeNumber int    `json:"episodeNumber"`
	Title         string `json:"title"`
	HasFile       bool   `json:"hasFile"`
}

func (e sonarrEpisode) detail() string {
	code := fmt.Sprintf("S%02dE%02d", e.SeasonNumber, e.EpisodeNumber)
	if e.Title == "" {
		return code
	}
	return code + " - " + e.Title
}

type sonarrEpisodeFile struct {
	ID       int64  `json:"id"`
	SeriesID int64  `json:"seriesId"`
	Path     string `json:"path"`
}

// ListFilteredEntities returns the series flagged for censoring.
func (s *Sonarr) ListFilteredEntities(ctx context.Context) ([]Entity, error) {
	filtered, err := s.filteredSet(ctx)
	if err != nil {
		return nil, err
	}
	if len(filtered) == 0 {
		return nil, nil
	}
	var series []sonarrSeries
	if err := s.getJSON(ctx, "/api/v3/series", nil, &series); err != nil {
		return nil, err
	}
	var out []Entity
	for _, item := range series {
		if _, ok := filtered[item.ID]; ok {
			out = append(out, item.entity())
		}
	}
	return out, nil
}

// RecentImportEvents returns episode imports since the given time.
func (s *Sonarr) RecentImportEvents(ctx context.Context, since time.Time) ([]ImportEvent, error) {
	records, err := s.history(ctx, since)
	if err != nil {
		return nil, err
	}
	events := make([]ImportEvent, 0, len(records))
	for _, rec := range records {
		if rec.SeriesID <= 0 || rec.EpisodeID <= 0 {
			continue
		}
		events = append(events, ImportEvent{
			EntityID:    rec.SeriesID,
			ChildID:     rec.EpisodeID,
			SourceTitle: rec.SourceTitle,
			ImportedAt:  rec.Date,
		})
	}
	return events, nil
}

// GetEntity fetches one series.
func (s *Sonarr) GetEntity(ctx context.Context, id int64) (Entity, error) {
	var series sonarrSeries
	if err := s.getJSON(ctx, "/api/v3/series/"+strconv.FormatInt(id, 10), nil, &series); err != nil {
		return Entity{}, err
	}
	return series.entity(), nil
}

// GetChildFile resolves an episode to its file.
func (s *Sonarr) GetChildFile(ctx context.Context, episodeID int64) (ChildFile, error) {
	var episode sonarrEpisode
	if err := s.getJSON(ctx, "/api/v3/episode/"+strconv.FormatInt(episodeID, 10), nil, &episode); err != nil {
		return ChildFile{}, err
	}
	if !episode.HasFile && episode.EpisodeFileID == 0 {
		return ChildFile{}, services.Wrap(services.ErrNotFound, s.name, "episode file", fmt.Sprintf("episode %d has no file", episodeID), nil)
	}
	var file sonarrEpisodeFile
	if err := s.getJSON(ctx, "/api/v3/episodefile/"+strconv.FormatInt(episode.EpisodeFileID, 10), nil, &file); err != nil {
		return ChildFile{}, err
	}
	return ChildFile{
		ChildID:  episode.ID,
		EntityID: episode.SeriesID,
		FileID:   file.ID,
		Path:     file.Path,
		Detail:   episode.detail(),
	}, nil
}

// EntityFiles lists every episode of a series that has a file, in season and
// episode order.
func (s *Sonarr) EntityFiles(ctx context.Context, seriesID int64) ([]ChildFile, error) {
	query := url.Values{}
	query.Set("seriesId", strconv.FormatInt(seriesID, 10))

	var episodes []sonarrEpisode
	if err := s.getJSON(ctx, "/api/v3/episode", query, &episodes); err != nil {
		return nil, err
	}
	var files []sonarrEpisodeFile
	if err := s.getJSON(ctx, "/api/v3/episodefile", query, &files); err != nil {
		return nil, err
	}
	paths := make(map[int64]string, len(files))
	for _, f := range files {
		paths[f.ID] = f.Path
	}

	sort.Slice(episodes, func(i, j int) bool {
		if episodes[i].SeasonNumber != episodes[j].SeasonNumber {
			return episodes[i].SeasonNumber < episodes[j].SeasonNumber
		}
		return episodes[i].EpisodeNumber < episodes[j].EpisodeNumber
	})
	out := make([]ChildFile, 0, len(files))
	for _, ep := range episodes {
		path, ok := paths[ep.EpisodeFileID]
		if ep.EpisodeFileID == 0 || !ok {
			continue
		}
		out = append(out, ChildFile{
			ChildID:  ep.ID,
			EntityID: seriesID,
			FileID:   ep.EpisodeFileID,
			Path:     path,
			Detail:   ep.detail(),
		})
	}
	return out, nil
}
