package arr_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bleeparr/internal/queue"
	"bleeparr/internal/services"
	"bleeparr/internal/services/arr"
)

type flagSource map[queue.Kind][]int64

func (f flagSource) FilteredIDs(_ context.Context, kind queue.Kind) ([]int64, error) {
	return f[kind], nil
}

func newServer(t *testing.T, routes map[string]string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if key := r.Header.Get("X-Api-Key"); key != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		body, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestSonarrListFilteredEntities(t *testing.T) {
	server := newServer(t, map[string]string{
		"/api/v3/series": `[{"id":1,"title":"Alpha","year":2001},{"id":2,"title":"Beta"},{"id":3,"title":"Gamma"}]`,
	})
	s := arr.NewSonarr(arr.Fixed(server.URL, "secret"), flagSource{queue.KindShow: {2, 3, 99}})

	got, err := s.ListFilteredEntities(context.Background())
	if err != nil {
		t.Fatalf("ListFilteredEntities: %v", err)
	}
	if len(got) != 2 || got[0].ID != 2 || got[1].Title != "Gamma" {
		t.Fatalf("unexpected entities %+v", got)
	}
	if s.Kind() != queue.KindShow || s.Name() != "sonarr" {
		t.Fatalf("unexpected identity %s/%s", s.Kind(), s.Name())
	}
}

func TestSonarrNoFlagsSkipsRequest(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	s := arr.NewSonarr(arr.Fixed(server.URL, "secret"), flagSource{})
	got, err := s.ListFilteredEntities(context.Background())
	if err != nil || len(got) != 0 {
		t.Fatalf("expected no entities, got %v %v", got, err)
	}
	if called {
		t.Fatal("expected no request when nothing is flagged")
	}
}

func TestSonarrRecentImportEvents(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`[
			{"seriesId":2,"episodeId":20,"sourceTitle":"Beta.S01E01","eventType":"downloadFolderImported","date":"2026-01-01T10:00:00Z"},
			{"seriesId":2,"episodeId":21,"eventType":"grabbed","date":"2026-01-01T10:00:00Z"},
			{"seriesId":0,"episodeId":22,"eventType":"downloadFolderImported","date":"2026-01-01T10:00:00Z"}
		]`))
	}))
	defer server.Close()

	since := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	s := arr.NewSonarr(arr.Fixed(server.URL, "secret"), nil)
	events, err := s.RecentImportEvents(context.Background(), since)
	if err != nil {
		t.Fatalf("RecentImportEvents: %v", err)
	}
	if len(events) != 1 || events[0].EntityID != 2 || events[0].ChildID != 20 {
		t.Fatalf("unexpected events %+v", events)
	}
	if gotQuery != "date=2026-01-01T09%3A00%3A00Z&eventType=downloadFolderImported" {
		t.Fatalf("unexpected query %q", gotQuery)
	}
}

func TestSonarrGetChildFile(t *testing.T) {
	server := newServer(t, map[string]string{
		"/api/v3/episode/20":      `{"id":20,"seriesId":2,"episodeFileId":200,"seasonNumber":1,"episodeNumber":3,"title":"Pilot","hasFile":true}`,
		"/api/v3/episodefile/200": `{"id":200,"seriesId":2,"path":"/mnt/storagepool/TV/Beta/Season 1/ep3.mkv"}`,
		"/api/v3/episode/21":      `{"id":21,"seriesId":2,"episodeFileId":0,"hasFile":false}`,
	})
	s := arr.NewSonarr(arr.Fixed(server.URL, "secret"), nil)

	file, err := s.GetChildFile(context.Background(), 20)
	if err != nil {
		t.Fatalf("GetChildFile: %v", err)
	}
	if file.Path != "/mnt/storagepool/TV/Beta/Season 1/ep3.mkv" || file.EntityID != 2 || file.Detail != "S01E03 - Pilot" {
		t.Fatalf("unexpected file %+v", file)
	}

	if _, err := s.GetChildFile(context.Background(), 21); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found for episode without file, got %v", err)
	}
	if _, err := s.GetChildFile(context.Background(), 404); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found for missing episode, got %v", err)
	}
}

func TestSonarrEntityFilesOrdered(t *testing.T) {
	server := newServer(t, map[string]string{
		"/api/v3/episode": `[
			{"id":3,"seriesId":7,"episodeFileId":30,"seasonNumber":2,"episodeNumber":1},
			{"id":2,"seriesId":7,"episodeFileId":0,"seasonNumber":1,"episodeNumber":2},
			{"id":1,"seriesId":7,"episodeFileId":10,"seasonNumber":1,"episodeNumber":1}
		]`,
		"/api/v3/episodefile": `[{"id":10,"path":"/tv/a.mkv"},{"id":30,"path":"/tv/c.mkv"}]`,
	})
	s := arr.NewSonarr(arr.Fixed(server.URL, "secret"), nil)

	files, err := s.EntityFiles(context.Background(), 7)
	if err != nil {
		t.Fatalf("EntityFiles: %v", err)
	}
	if len(files) != 2 || files[0].ChildID != 1 || files[1].ChildID != 3 {
		t.Fatalf("unexpected files %+v", files)
	}
	if files[1].Detail != "S02E01" {
		t.Fatalf("unexpected detail %q", files[1].Detail)
	}
}

func TestRadarrChildFileAndEntityFiles(t *testing.T) {
	server := newServer(t, map[string]string{
		"/api/v3/movie/5":      `{"id":5,"title":"Film","year":2020,"hasFile":true,"movieFile":{"id":50}}`,
		"/api/v3/moviefile/50": `{"id":50,"movieId":5,"path":"/mnt/storagepool/Movies/Film (2020)/film.mkv"}`,
		"/api/v3/movie/6":      `{"id":6,"title":"Unreleased","hasFile":false}`,
	})
	r := arr.NewRadarr(arr.Fixed(server.URL, "secret"), nil)
	ctx := context.Background()

	file, err := r.GetChildFile(ctx, 5)
	if err != nil {
		t.Fatalf("GetChildFile: %v", err)
	}
	if file.Path != "/mnt/storagepool/Movies/Film (2020)/film.mkv" || file.ChildID != 5 || file.Detail != "2020" {
		t.Fatalf("unexpected file %+v", file)
	}

	files, err := r.EntityFiles(ctx, 6)
	if err != nil || len(files) != 0 {
		t.Fatalf("expected no files for movie without file, got %v %v", files, err)
	}
	if _, err := r.EntityFiles(ctx, 7); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found for unknown movie, got %v", err)
	}
}

func TestRadarrRecentImportEvents(t *testing.T) {
	server := newServer(t, map[string]string{
		"/api/v3/history/since": `[{"movieId":5,"sourceTitle":"Film.2020","eventType":"downloadFolderImported","date":"2026-01-01T10:00:00Z"},{"movieId":0}]`,
	})
	r := arr.NewRadarr(arr.Fixed(server.URL, "secret"), nil)

	events, err := r.RecentImportEvents(context.Background(), time.Time{})
	if err != nil {
		t.Fatalf("RecentImportEvents: %v", err)
	}
	if len(events) != 1 || events[0].EntityID != 5 || events[0].ChildID != 5 {
		t.Fatalf("unexpected events %+v", events)
	}
}

func TestAdapterErrorsClassified(t *testing.T) {
	server := newServer(t, map[string]string{"/api/v3/system/status": `{"version":"4.0"}`})
	ctx := context.Background()

	if err := arr.NewRadarr(arr.Fixed(server.URL, "secret"), nil).Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if err := arr.NewRadarr(arr.Fixed(server.URL, "wrong"), nil).Ping(ctx); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error for bad key, got %v", err)
	}

	unconfigured := arr.NewSonarr(arr.Fixed("", ""), nil)
	if unconfigured.Enabled(ctx) {
		t.Fatal("expected adapter without endpoint to be disabled")
	}
	if err := unconfigured.Ping(ctx); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer broken.Close()
	if err := arr.NewSonarr(arr.Fixed(broken.URL, "k"), nil).Ping(ctx); !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
}

func TestEndpointReadEachRequest(t *testing.T) {
	server := newServer(t, map[string]string{"/api/v3/system/status": `{}`})
	key := "wrong"
	s := arr.NewSonarr(func(context.Context) arr.Endpoint {
		return arr.Endpoint{URL: server.URL + "/", APIKey: key}
	}, nil)

	if err := s.Ping(context.Background()); err == nil {
		t.Fatal("expected failure with wrong key")
	}
	key = "secret"
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("expected updated key to apply: %v", err)
	}
}
