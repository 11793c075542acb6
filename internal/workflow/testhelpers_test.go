package workflow_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"bleeparr/internal/censor"
	"bleeparr/internal/config"
	"bleeparr/internal/notifications"
	"bleeparr/internal/pathmap"
	"bleeparr/internal/queue"
	"bleeparr/internal/services"
	"bleeparr/internal/services/arr"
	"bleeparr/internal/settings"
	"bleeparr/internal/testsupport"
	"bleeparr/internal/workflow"
)

type fakeAdapter struct {
	kind     queue.Kind
	name     string
	disabled bool
	entities []arr.Entity
	events   []arr.ImportEvent
	files    map[int64]arr.ChildFile
	listErr  error

	mu    sync.Mutex
	calls int
}

func (f *fakeAdapter) Kind() queue.Kind             { return f.kind }
func (f *fakeAdapter) Name() string                 { return f.name }
func (f *fakeAdapter) Enabled(context.Context) bool { return !f.disabled }
func (f *fakeAdapter) Ping(context.Context) error   { return nil }

func (f *fakeAdapter) GetEntity(_ context.Context, id int64) (arr.Entity, error) {
	for _, e := range f.entities {
		if e.ID == id {
			return e, nil
		}
	}
	return arr.Entity{}, services.ErrNotFound
}

func (f *fakeAdapter) ListFilteredEntities(context.Context) ([]arr.Entity, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.entities, nil
}

func (f *fakeAdapter) RecentImportEvents(context.Context, time.Time) ([]arr.ImportEvent, error) {
	return f.events, nil
}

func (f *fakeAdapter) GetChildFile(_ context.Context, childID int64) (arr.ChildFile, error) {
	file, ok := f.files[childID]
	if !ok {
		return arr.ChildFile{}, errors.New("no file")
	}
	return file, nil
}

func (f *fakeAdapter) EntityFiles(_ context.Context, entityID int64) ([]arr.ChildFile, error) {
	var out []arr.ChildFile
	for _, file := range f.files {
		if file.EntityID == entityID {
			out = append(out, file)
		}
	}
	return out, nil
}

func (f *fakeAdapter) listCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeRunner struct {
	mu      sync.Mutex
	paths   []string
	outcome func(path string, dryRun bool) censor.Outcome
}

func (r *fakeRunner) Run(_ context.Context, path string, _ censor.Metadata, _ censor.Config, dryRun bool) censor.Outcome {
	r.mu.Lock()
	r.paths = append(r.paths, path)
	r.mu.Unlock()
	if r.outcome != nil {
		return r.outcome(path, dryRun)
	}
	out := censor.Outcome{Success: true, SwearsFound: 3}
	if !dryRun {
		out.OutputPath = filepath.Join(filepath.Dir(path), "clean_"+filepath.Base(path))
	}
	return out
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notifications.Event
}

func (n *recordingNotifier) Publish(_ context.Context, event notifications.Event, _ notifications.Payload) error {
	n.mu.Lock()
	n.events = append(n.events, event)
	n.mu.Unlock()
	return nil
}

func (n *recordingNotifier) count(event notifications.Event) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	total := 0
	for _, e := range n.events {
		if e == event {
			total++
		}
	}
	return total
}

type harness struct {
	cfg      *config.Config
	store    *queue.Store
	reader   *settings.Reader
	runner   *fakeRunner
	notifier *recordingNotifier
	mediaDir string
	manager  *workflow.Manager
}

const hostTV = "/mnt/storagepool/TV"

// newHarness maps hostTV onto a temp media directory so reported paths
// resolve to files created with writeMedia.
func newHarness(t *testing.T, sources ...arr.Adapter) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	reader := settings.NewReader(store, cfg, nil)
	mediaDir := filepath.Join(testsupport.BaseDir(cfg), "media")

	mappings := `[{"host_path":"` + hostTV + `","container_path":"` + mediaDir + `"}]`
	if err := store.SetSetting(context.Background(), settings.KeyPathMappings, mappings); err != nil {
		t.Fatalf("set mappings: %v", err)
	}

	h := &harness{
		cfg:      cfg,
		store:    store,
		reader:   reader,
		runner:   &fakeRunner{},
		notifier: &recordingNotifier{},
		mediaDir: mediaDir,
	}
	h.manager = workflow.NewManager(cfg, store, workflow.Dependencies{
		Sources:  sources,
		Resolver: pathmap.NewResolver(cfg, reader, nil),
		Runner:   h.runner,
		Settings: reader,
		Notifier: h.notifier,
	}, nil)
	return h
}

func (h *harness) writeMedia(t *testing.T, rel string) string {
	t.Helper()
	testsupport.WriteFile(t, filepath.Join(h.mediaDir, rel))
	return filepath.Join(hostTV, rel)
}

func (h *harness) history(t *testing.T) []*queue.HistoryRecord {
	t.Helper()
	records, err := h.store.QueryHistory(context.Background(), queue.HistoryQuery{Limit: 100})
	if err != nil {
		t.Fatalf("QueryHistory: %v", err)
	}
	return records
}

func (h *harness) pending(t *testing.T) []*queue.Item {
	t.Helper()
	items, err := h.store.Pending(context.Background())
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	return items
}
