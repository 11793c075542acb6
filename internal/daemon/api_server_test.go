package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"bleeparr/internal/api"
	"bleeparr/internal/queue"
	"bleeparr/internal/testsupport"
	"bleeparr/internal/workflow"
)

type routeFixture struct {
	store   *queue.Store
	root    string
	handler http.Handler
}

func newRouteFixture(t *testing.T, token string) *routeFixture {
	t.Helper()
	root := t.TempDir()
	cfg := testsupport.NewConfig(t, testsupport.WithFallbackRoots(root))
	store := testsupport.MustOpenStore(t, cfg)
	d, _ := newDaemon(t, cfg, store)
	srv := newAPIServer("", token, d, nil)
	return &routeFixture{store: store, root: root, handler: srv.routes(token)}
}

func (f *routeFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func TestEnqueueAndQueueRoutes(t *testing.T) {
	f := newRouteFixture(t, "")
	testsupport.WriteFile(t, filepath.Join(f.root, "film.mkv"))

	w := f.do(t, http.MethodPost, "/api/queue", api.EnqueueRequest{Kind: "movie", ItemID: 5, FilePath: "/m/film.mkv", Manual: true})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	w = f.do(t, http.MethodPost, "/api/queue", api.EnqueueRequest{Kind: "movie", ItemID: 5, FilePath: "/m/film.mkv", Manual: true})
	if w.Code != http.StatusOK || decode[api.EnqueueResponse](t, w).Admitted {
		t.Fatalf("duplicate should not be admitted: %d %s", w.Code, w.Body.String())
	}

	w = f.do(t, http.MethodPost, "/api/queue", api.EnqueueRequest{Kind: "movie", ItemID: 6, FilePath: "/m/missing.mkv", Manual: true})
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unresolved manual item, got %d", w.Code)
	}

	w = f.do(t, http.MethodPost, "/api/queue", map[string]any{"filePath": "/m/film.mkv"})
	if w.Code != http.StatusCreated {
		t.Fatalf("bare path enqueue expected 201, got %d: %s", w.Code, w.Body.String())
	}

	w = f.do(t, http.MethodGet, "/api/queue", nil)
	if got := decode[api.QueueStatus](t, w); got.Pending != 2 {
		t.Fatalf("expected 2 pending, got %+v", got)
	}

	w = f.do(t, http.MethodDelete, "/api/queue", nil)
	if got := decode[api.ResetResponse](t, w); got.Removed != 2 {
		t.Fatalf("expected 2 removed, got %+v", got)
	}
}

func TestHistoryRoutes(t *testing.T) {
	f := newRouteFixture(t, "")
	ctx := context.Background()
	for _, media := range []queue.Media{queue.Movie(1), queue.Show(2, 9)} {
		if err := f.store.AppendHistory(ctx, &queue.HistoryRecord{Media: media, FilePath: "/x.mkv", Success: true}); err != nil {
			t.Fatalf("AppendHistory: %v", err)
		}
	}

	w := f.do(t, http.MethodGet, "/api/history?kind=show&limit=5", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	page := decode[api.HistoryResponse](t, w)
	if page.Total != 1 || len(page.Items) != 1 || page.Items[0].SeriesID != 9 {
		t.Fatalf("unexpected page: %+v", page)
	}

	if w := f.do(t, http.MethodGet, "/api/history?kind=album", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	w = f.do(t, http.MethodDelete, "/api/history", nil)
	if got := decode[api.ResetResponse](t, w); got.Removed != 2 {
		t.Fatalf("expected 2 removed, got %+v", got)
	}
}

func TestFilteredRoutes(t *testing.T) {
	f := newRouteFixture(t, "")

	w := f.do(t, http.MethodPut, "/api/filtered/show/4", api.FilterRequest{Filtered: true})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	filtered, err := f.store.IsFiltered(context.Background(), queue.KindShow, 4)
	if err != nil || !filtered {
		t.Fatalf("IsFiltered = %v, %v", filtered, err)
	}

	if w := f.do(t, http.MethodPut, "/api/filtered/show/abc", api.FilterRequest{Filtered: true}); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad id, got %d", w.Code)
	}

	w = f.do(t, http.MethodGet, "/api/filtered", nil)
	if flags := decode[[]api.FilterItem](t, w); len(flags) != 1 || flags[0].Kind != "show" {
		t.Fatalf("unexpected flags: %+v", flags)
	}
}

func TestEntityEnqueueRouteWithoutSource(t *testing.T) {
	f := newRouteFixture(t, "")
	if w := f.do(t, http.MethodPost, "/api/queue/movie/3", nil); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	if w := f.do(t, http.MethodPost, "/api/queue/album/3", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestSyncRouteWithoutWorkflow(t *testing.T) {
	f := newRouteFixture(t, "")
	if w := f.do(t, http.MethodPost, "/api/sync", nil); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

// blockingCycle holds RunCycle open until released and records whether its
// context was cancelled by then.
type blockingCycle struct {
	started chan struct{}
	release chan struct{}
	ctxErr  chan error
}

func newBlockingCycle() *blockingCycle {
	return &blockingCycle{
		started: make(chan struct{}),
		release: make(chan struct{}),
		ctxErr:  make(chan error, 1),
	}
}

func (b *blockingCycle) RunCycle(ctx context.Context) (workflow.CycleSummary, error) {
	close(b.started)
	select {
	case <-b.release:
	case <-ctx.Done():
	}
	b.ctxErr <- ctx.Err()
	return workflow.CycleSummary{ID: "cycle"}, nil
}

func (b *blockingCycle) Status(context.Context) workflow.StatusSummary {
	return workflow.StatusSummary{}
}

func newSyncServer(t *testing.T, cycle *blockingCycle) *apiServer {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	svc := api.NewService(api.Dependencies{Config: cfg, Store: store, Workflow: cycle}, nil)
	d, err := New(cfg, store, &stubWorkflow{}, svc, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return newAPIServer("", "", d, nil)
}

func waitCycleErr(t *testing.T, cycle *blockingCycle) error {
	t.Helper()
	select {
	case err := <-cycle.ctxErr:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("cycle did not finish")
		return nil
	}
}

func TestSyncRouteSurvivesCallerDisconnect(t *testing.T) {
	cycle := newBlockingCycle()
	srv := newSyncServer(t, cycle)
	handler := srv.routes("")

	reqCtx, cancelReq := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodPost, "/api/sync", nil).WithContext(reqCtx)
	w := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		handler.ServeHTTP(w, req)
		close(done)
	}()

	<-cycle.started
	cancelReq()
	time.Sleep(50 * time.Millisecond)
	close(cycle.release)

	if err := waitCycleErr(t, cycle); err != nil {
		t.Fatalf("cycle context cancelled by caller: %v", err)
	}
	<-done
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestSyncRouteCancelledByDaemonShutdown(t *testing.T) {
	cycle := newBlockingCycle()
	srv := newSyncServer(t, cycle)
	daemonCtx, stopDaemon := context.WithCancel(context.Background())
	defer stopDaemon()
	if err := srv.start(daemonCtx); err != nil {
		t.Fatalf("start: %v", err)
	}
	handler := srv.routes("")

	done := make(chan struct{})
	go func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/sync", nil))
		close(done)
	}()

	<-cycle.started
	stopDaemon()
	if err := waitCycleErr(t, cycle); err == nil {
		t.Fatal("expected daemon shutdown to cancel the cycle")
	}
	<-done
}

func TestAuthMiddleware(t *testing.T) {
	f := newRouteFixture(t, "secret")

	if w := f.do(t, http.MethodGet, "/api/queue", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/queue", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/queue", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong token, got %d", w.Code)
	}
}
