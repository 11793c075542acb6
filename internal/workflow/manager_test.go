package workflow_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"bleeparr/internal/censor"
	"bleeparr/internal/notifications"
	"bleeparr/internal/pathmap"
	"bleeparr/internal/queue"
	"bleeparr/internal/services/arr"
	"bleeparr/internal/settings"
	"bleeparr/internal/testsupport"
	"bleeparr/internal/workflow"
)

func sonarrWith(files map[int64]arr.ChildFile, events []arr.ImportEvent, entities ...arr.Entity) *fakeAdapter {
	return &fakeAdapter{
		kind:     queue.KindShow,
		name:     "sonarr",
		entities: entities,
		events:   events,
		files:    files,
	}
}

func TestRunCycleAdmitsAndProcessesFlaggedImports(t *testing.T) {
	sonarr := sonarrWith(map[int64]arr.ChildFile{}, []arr.ImportEvent{
		{EntityID: 2, ChildID: 20, ImportedAt: time.Now()},
		{EntityID: 3, ChildID: 30, ImportedAt: time.Now()},
	}, arr.Entity{ID: 2, Title: "The Show"})
	h := newHarness(t, sonarr)

	reported := h.writeMedia(t, "The Show/Season 01/ep.mkv")
	sonarr.files[20] = arr.ChildFile{ChildID: 20, EntityID: 2, Path: reported, Detail: "S01E01 - Pilot"}
	sonarr.files[30] = arr.ChildFile{ChildID: 30, EntityID: 3, Path: h.writeMedia(t, "Other/ep.mkv")}

	summary, err := h.manager.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if !summary.Fetched || summary.Admitted != 1 || summary.Processed != 1 || summary.Failed != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(h.pending(t)) != 0 {
		t.Fatal("expected queue to be drained")
	}

	records := h.history(t)
	if len(records) != 1 {
		t.Fatalf("expected one history row, got %d", len(records))
	}
	rec := records[0]
	if rec.Kind != queue.KindShow || rec.ItemID != 20 || rec.SeriesID != 2 {
		t.Fatalf("unexpected identity: %+v", rec.Media)
	}
	if !rec.Success || rec.SwearsFound != 3 {
		t.Fatalf("expected success with 3 swears, got %+v", rec)
	}
	if rec.FilePath != reported {
		t.Fatalf("history should keep the reported path, got %q", rec.FilePath)
	}
	wantOut := filepath.Join(h.mediaDir, "The Show", "Season 01", "clean_ep.mkv")
	if rec.OutputPath != wantOut {
		t.Fatalf("output path = %q, want %q", rec.OutputPath, wantOut)
	}
	if rec.Title != "The Show" || rec.Detail != "S01E01 - Pilot" {
		t.Fatalf("unexpected labels: %q %q", rec.Title, rec.Detail)
	}
	if got := h.runner.paths; len(got) != 1 || got[0] != filepath.Join(h.mediaDir, "The Show", "Season 01", "ep.mkv") {
		t.Fatalf("runner should receive the resolved path, got %v", got)
	}
	if h.notifier.count(notifications.EventCensored) != 1 {
		t.Fatal("expected a censored notification")
	}
	if h.notifier.count(notifications.EventCycleCompleted) != 1 {
		t.Fatal("expected a cycle notification")
	}
}

func TestRunCycleDoesNotReprocessHistory(t *testing.T) {
	sonarr := sonarrWith(map[int64]arr.ChildFile{}, []arr.ImportEvent{
		{EntityID: 2, ChildID: 20},
		{EntityID: 2, ChildID: 20},
	}, arr.Entity{ID: 2, Title: "The Show"})
	h := newHarness(t, sonarr)
	sonarr.files[20] = arr.ChildFile{ChildID: 20, EntityID: 2, Path: h.writeMedia(t, "ep.mkv")}

	first, err := h.manager.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("first cycle: %v", err)
	}
	if first.Admitted != 1 {
		t.Fatalf("repeated events should admit once, got %d", first.Admitted)
	}

	second, err := h.manager.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("second cycle: %v", err)
	}
	if second.Admitted != 0 || second.Duplicates != 1 || second.Processed != 0 {
		t.Fatalf("unexpected second summary: %+v", second)
	}
	if len(h.history(t)) != 1 {
		t.Fatal("item should be processed exactly once")
	}
	if len(h.runner.paths) != 1 {
		t.Fatalf("runner invoked %d times", len(h.runner.paths))
	}
}

func TestRunCycleSourceErrorSkipsOnlyThatSource(t *testing.T) {
	sonarr := &fakeAdapter{kind: queue.KindShow, name: "sonarr", listErr: errors.New("connection refused")}
	radarr := &fakeAdapter{
		kind:     queue.KindMovie,
		name:     "radarr",
		entities: []arr.Entity{{ID: 5, Title: "A Movie", Year: 1999}},
		events:   []arr.ImportEvent{{EntityID: 5, ChildID: 5}},
		files:    map[int64]arr.ChildFile{},
	}
	h := newHarness(t, sonarr, radarr)
	radarr.files[5] = arr.ChildFile{ChildID: 5, EntityID: 5, Path: h.writeMedia(t, "A Movie (1999)/movie.mkv"), Detail: "1999"}

	summary, err := h.manager.RunCycle(context.Background())
	if err == nil || !strings.Contains(err.Error(), "sonarr") {
		t.Fatalf("expected sonarr error, got %v", err)
	}
	if _, ok := summary.SourceErrors["sonarr"]; !ok {
		t.Fatalf("summary should record sonarr failure: %+v", summary.SourceErrors)
	}
	if summary.Processed != 1 {
		t.Fatalf("radarr item should still be processed, got %+v", summary)
	}
	records := h.history(t)
	if len(records) != 1 || records[0].Kind != queue.KindMovie || records[0].SeriesID != 0 {
		t.Fatalf("unexpected history: %+v", records)
	}

	status := h.manager.Status(context.Background())
	if len(status.Sources) != 2 {
		t.Fatalf("expected two sources in status, got %d", len(status.Sources))
	}
	for _, state := range status.Sources {
		switch state.Name {
		case "sonarr":
			if state.Available || state.LastError == "" {
				t.Fatalf("sonarr should be unavailable: %+v", state)
			}
		case "radarr":
			if !state.Available || state.LastError != "" {
				t.Fatalf("radarr should be available: %+v", state)
			}
		}
	}
	if h.notifier.count(notifications.EventError) != 1 {
		t.Fatal("expected one error notification")
	}
}

func TestRunCycleSkipsDisabledSource(t *testing.T) {
	sonarr := &fakeAdapter{kind: queue.KindShow, name: "sonarr", disabled: true}
	h := newHarness(t, sonarr)

	if _, err := h.manager.RunCycle(context.Background()); err != nil {
		t.Fatalf("disabled source should not error: %v", err)
	}
	if sonarr.listCalls() != 0 {
		t.Fatal("disabled source should not be queried")
	}
}

func TestRunCycleAutoProcessingDisabledStillDrains(t *testing.T) {
	sonarr := sonarrWith(map[int64]arr.ChildFile{}, []arr.ImportEvent{{EntityID: 2, ChildID: 20}}, arr.Entity{ID: 2})
	h := newHarness(t, sonarr)
	ctx := context.Background()
	if _, err := h.reader.Set(ctx, settings.KeyAutoProcessing, "false"); err != nil {
		t.Fatalf("set auto processing: %v", err)
	}

	testsupport.MustAdmit(t, h.store, &queue.Item{
		Media:    queue.Movie(9),
		FilePath: h.writeMedia(t, "manual.mkv"),
		Manual:   true,
	})

	summary, err := h.manager.RunCycle(ctx)
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if summary.Fetched {
		t.Fatal("fetch should be skipped")
	}
	if sonarr.listCalls() != 0 {
		t.Fatal("sources should not be polled")
	}
	if summary.Processed != 1 {
		t.Fatalf("manual item should be drained, got %+v", summary)
	}
}

func TestDrainRecordsUnresolvedFileAndContinues(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	missing := filepath.Join(hostTV, "gone.mkv")
	testsupport.MustAdmit(t, h.store, &queue.Item{Media: queue.Movie(1), FilePath: missing})
	testsupport.MustAdmit(t, h.store, &queue.Item{Media: queue.Movie(2), FilePath: h.writeMedia(t, "here.mkv")})

	processed, failed := h.manager.Drain(ctx)
	if processed != 1 || failed != 1 {
		t.Fatalf("processed=%d failed=%d", processed, failed)
	}
	if len(h.pending(t)) != 0 {
		t.Fatal("both items should leave the queue")
	}

	var failure *queue.HistoryRecord
	for _, rec := range h.history(t) {
		if rec.ItemID == 1 {
			failure = rec
		}
	}
	if failure == nil {
		t.Fatal("missing history for unresolved item")
	}
	if failure.Success || failure.Error != "file not found: "+missing {
		t.Fatalf("unexpected failure record: %+v", failure)
	}
	if h.notifier.count(notifications.EventFailed) != 1 {
		t.Fatal("expected a failure notification")
	}
}

func TestDrainRecordsToolFailure(t *testing.T) {
	h := newHarness(t)
	h.runner.outcome = func(string, bool) censor.Outcome {
		return censor.Outcome{Success: false, SwearsFound: 4, OutputPath: "/ignored", Error: "transcribe failed"}
	}
	testsupport.MustAdmit(t, h.store, &queue.Item{Media: queue.Movie(3), FilePath: h.writeMedia(t, "m.mkv")})

	if _, failed := h.manager.Drain(context.Background()); failed != 1 {
		t.Fatalf("expected one failure, got %d", failed)
	}
	rec := h.history(t)[0]
	if rec.Success || rec.Error != "transcribe failed" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.SwearsFound != 0 || rec.OutputPath != "" {
		t.Fatalf("failed runs should not report swears or output: %+v", rec)
	}
}

func TestDrainRecoversRunnerPanic(t *testing.T) {
	h := newHarness(t)
	first := h.writeMedia(t, "boom.mkv")
	h.runner.outcome = func(path string, _ bool) censor.Outcome {
		if filepath.Base(path) == "boom.mkv" {
			panic("runner exploded")
		}
		return censor.Outcome{Success: true}
	}
	testsupport.MustAdmit(t, h.store, &queue.Item{Media: queue.Movie(1), FilePath: first})
	testsupport.MustAdmit(t, h.store, &queue.Item{Media: queue.Movie(2), FilePath: h.writeMedia(t, "fine.mkv")})

	processed, failed := h.manager.Drain(context.Background())
	if processed != 1 || failed != 1 {
		t.Fatalf("processed=%d failed=%d", processed, failed)
	}
	for _, rec := range h.history(t) {
		if rec.ItemID == 1 && !strings.Contains(rec.Error, "runner exploded") {
			t.Fatalf("panic should be recorded, got %q", rec.Error)
		}
	}
}

func TestRunCycleCancelledLeavesItemQueued(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.runner.outcome = func(string, bool) censor.Outcome {
		cancel()
		return censor.Outcome{Error: "signal: killed"}
	}
	testsupport.MustAdmit(t, h.store, &queue.Item{Media: queue.Movie(1), FilePath: h.writeMedia(t, "first.mkv")})
	testsupport.MustAdmit(t, h.store, &queue.Item{Media: queue.Movie(2), FilePath: h.writeMedia(t, "second.mkv")})

	summary, _ := h.manager.RunCycle(ctx)
	if summary.Processed != 0 || summary.Failed != 0 {
		t.Fatalf("interrupted items should count as neither processed nor failed: %+v", summary)
	}
	if got := len(h.pending(t)); got != 2 {
		t.Fatalf("expected both items still queued, got %d", got)
	}
	if got := len(h.history(t)); got != 0 {
		t.Fatalf("expected no history rows, got %d", got)
	}
	if len(h.runner.paths) != 1 {
		t.Fatalf("runner should stop after cancellation, ran %d times", len(h.runner.paths))
	}
}

func TestRunCycleClearsLastErrorAfterCleanCycle(t *testing.T) {
	sonarr := &fakeAdapter{kind: queue.KindShow, name: "sonarr", listErr: errors.New("connection refused")}
	h := newHarness(t, sonarr)
	ctx := context.Background()

	if _, err := h.manager.RunCycle(ctx); err == nil {
		t.Fatal("expected source error")
	}
	if h.manager.Status(ctx).LastError == "" {
		t.Fatal("expected last error after failed cycle")
	}

	sonarr.listErr = nil
	if _, err := h.manager.RunCycle(ctx); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if got := h.manager.Status(ctx).LastError; got != "" {
		t.Fatalf("expected last error cleared, got %q", got)
	}
}

func TestDryRunPolledItemsHaveNoOutput(t *testing.T) {
	sonarr := sonarrWith(map[int64]arr.ChildFile{}, []arr.ImportEvent{{EntityID: 2, ChildID: 20}}, arr.Entity{ID: 2})
	h := newHarness(t, sonarr)
	sonarr.files[20] = arr.ChildFile{ChildID: 20, EntityID: 2, Path: h.writeMedia(t, "ep.mkv")}
	if _, err := h.reader.Set(context.Background(), settings.KeyDryRun, "true"); err != nil {
		t.Fatalf("set dry run: %v", err)
	}

	if _, err := h.manager.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	rec := h.history(t)[0]
	if !rec.DryRun || rec.OutputPath != "" || !rec.Success {
		t.Fatalf("unexpected dry-run record: %+v", rec)
	}
}

func TestDrainWithCensorRunner(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubTool(`
echo "processing $*"
echo "Mute summary"
echo "Total words muted: 2"
`))
	store := testsupport.MustOpenStore(t, cfg)
	reader := settings.NewReader(store, cfg, nil)
	root := filepath.Join(testsupport.BaseDir(cfg), "library")
	cfg.Resolver.FallbackRoots = []string{root}
	media := testsupport.WriteFile(t, filepath.Join(root, "movie.mkv"))

	manager := workflow.NewManager(cfg, store, workflow.Dependencies{
		Resolver: pathmap.NewResolver(cfg, reader, nil),
		Runner:   censor.New(cfg.Tool.Binary, 10*time.Second),
		Settings: reader,
	}, nil)

	testsupport.MustAdmit(t, store, &queue.Item{Media: queue.Movie(4), FilePath: "/elsewhere/movie.mkv"})
	if processed, _ := manager.Drain(context.Background()); processed != 1 {
		t.Fatalf("expected success, processed=%d", processed)
	}
	records, err := store.QueryHistory(context.Background(), queue.HistoryQuery{})
	if err != nil {
		t.Fatalf("QueryHistory: %v", err)
	}
	if len(records) != 1 || records[0].SwearsFound != 2 {
		t.Fatalf("unexpected history: %+v", records)
	}
	want := filepath.Join(root, "clean_movie.mkv")
	if records[0].OutputPath != want {
		t.Fatalf("output = %q, want %q (input %s)", records[0].OutputPath, want, media)
	}
}

func TestStartRunsInitialCycle(t *testing.T) {
	h := newHarness(t)
	testsupport.MustAdmit(t, h.store, &queue.Item{Media: queue.Movie(1), FilePath: h.writeMedia(t, "start.mkv")})

	if err := h.manager.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(h.manager.Stop)
	if err := h.manager.Start(context.Background()); err == nil {
		t.Fatal("second Start should fail")
	}

	deadline := time.Now().Add(5 * time.Second)
	for h.manager.Status(context.Background()).LastCycle == nil {
		if time.Now().After(deadline) {
			t.Fatal("initial cycle did not run")
		}
		time.Sleep(20 * time.Millisecond)
	}
	status := h.manager.Status(context.Background())
	if !status.Running {
		t.Fatal("expected running status")
	}
	if status.LastCycle.Processed != 1 {
		t.Fatalf("expected queued item processed, got %+v", status.LastCycle)
	}
	if status.NextCycleAt.Before(status.LastCycle.StartedAt) {
		t.Fatal("next cycle should follow the last one")
	}

	h.manager.Stop()
	if h.manager.Running() {
		t.Fatal("expected stopped manager")
	}
}

func TestStartRequiresDependencies(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	manager := workflow.NewManager(cfg, store, workflow.Dependencies{}, nil)
	if err := manager.Start(context.Background()); err == nil {
		t.Fatal("expected error without dependencies")
	}
}
