package main

import (
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bleeparr/internal/api"
	"bleeparr/internal/config"
	"bleeparr/internal/daemon"
	"bleeparr/internal/daemonrun"
	"bleeparr/internal/logging"
	"bleeparr/internal/queue"
)

func TestConfigInitWritesSampleOnce(t *testing.T) {
	env := setupCLITestEnv(t, "")
	target := filepath.Join(env.baseDir, "fresh", "config.toml")

	out, err := runCLI(t, env, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample not written: %v", err)
	}

	if _, err := runCLI(t, env, "config", "init", "--path", target); err == nil {
		t.Fatal("expected error when config already exists")
	}
}

func TestConfigShowMasksSecrets(t *testing.T) {
	env := setupCLITestEnv(t, "")
	t.Setenv("SONARR_URL", "http://sonarr:8989")
	t.Setenv("SONARR_API_KEY", "super-secret")

	out, err := runCLI(t, env, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if strings.Contains(out, "super-secret") {
		t.Fatalf("api key leaked: %s", out)
	}
	requireContains(t, out, env.dataDir)
}

func TestEnqueueFileLocalThenQueueList(t *testing.T) {
	env := setupCLITestEnv(t, "")
	path := env.writeMedia(t, "Movies/Heat (1995)/heat.mkv")

	out, err := runCLI(t, env, "enqueue", path)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	requireContains(t, out, "Queued movie")

	out, err = runCLI(t, env, "enqueue", path)
	if err != nil {
		t.Fatalf("second enqueue: %v", err)
	}
	requireContains(t, out, "Already queued or processed")

	out, err = runCLI(t, env, "--json", "queue", "list")
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	var queueStatus api.QueueStatus
	if err := json.Unmarshal([]byte(out), &queueStatus); err != nil {
		t.Fatalf("decode queue list: %v\n%s", err, out)
	}
	if queueStatus.Pending != 1 || queueStatus.Items[0].FilePath != path || !queueStatus.Items[0].Manual {
		t.Fatalf("unexpected queue: %+v", queueStatus)
	}
}

func TestEnqueueRejectsMissingAndUnsupportedFiles(t *testing.T) {
	env := setupCLITestEnv(t, "")

	if _, err := runCLI(t, env, "enqueue", filepath.Join(env.mediaRoot, "absent.mkv")); err == nil {
		t.Fatal("expected error for missing file")
	}
	notes := env.writeMedia(t, "notes.txt")
	if _, err := runCLI(t, env, "enqueue", notes); err == nil {
		t.Fatal("expected error for unsupported extension")
	}
	if _, err := runCLI(t, env, "enqueue", "--entity", "--kind", "show"); err == nil {
		t.Fatal("expected error for --entity without --id")
	}
	if _, err := runCLI(t, env, "enqueue", "--dry-run", "--no-dry-run", notes); err == nil {
		t.Fatal("expected error for conflicting dry-run flags")
	}
}

func TestSyncLocalDrainsQueueIntoHistory(t *testing.T) {
	env := setupCLITestEnv(t, "")
	path := env.writeMedia(t, "Show/Season 1/Show - S01E01.mkv")

	if _, err := runCLI(t, env, "enqueue", path); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	out, err := runCLI(t, env, "sync")
	if err != nil {
		t.Fatalf("sync: %v\n%s", err, out)
	}
	requireContains(t, out, "1 processed")

	out, err = runCLI(t, env, "--json", "history", "list")
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	var page api.HistoryResponse
	if err := json.Unmarshal([]byte(out), &page); err != nil {
		t.Fatalf("decode history: %v\n%s", err, out)
	}
	if page.Total != 1 || len(page.Items) != 1 {
		t.Fatalf("unexpected history page: %+v", page)
	}
	item := page.Items[0]
	if !item.Success || item.Kind != string(queue.KindShow) || item.SwearsFound != 4 {
		t.Fatalf("unexpected history item: %+v", item)
	}
	if want := filepath.Join(filepath.Dir(path), "clean_Show - S01E01.mkv"); item.OutputPath != want {
		t.Fatalf("output = %q, want %q", item.OutputPath, want)
	}

	out, err = runCLI(t, env, "queue", "list")
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	requireContains(t, out, "Queue is empty")
}

func TestResetRequiresConfirmation(t *testing.T) {
	env := setupCLITestEnv(t, "")
	env.writeMedia(t, "a.mkv")
	if _, err := runCLI(t, env, "enqueue", filepath.Join(env.mediaRoot, "a.mkv")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	if _, err := runCLI(t, env, "queue", "reset"); err == nil {
		t.Fatal("expected refusal without --yes")
	}
	out, err := runCLI(t, env, "queue", "reset", "--yes")
	if err != nil {
		t.Fatalf("queue reset: %v", err)
	}
	requireContains(t, out, "Removed 1 queued item")

	out, err = runCLI(t, env, "history", "reset", "-y")
	if err != nil {
		t.Fatalf("history reset: %v", err)
	}
	requireContains(t, out, "Removed 0 history records")
}

func TestFilterCommands(t *testing.T) {
	env := setupCLITestEnv(t, "")

	out, err := runCLI(t, env, "filter", "on", "show", "44")
	if err != nil {
		t.Fatalf("filter on: %v", err)
	}
	requireContains(t, out, "show 44 is now filtered")

	if _, err := runCLI(t, env, "filter", "off", "movie", "9"); err != nil {
		t.Fatalf("filter off: %v", err)
	}
	if _, err := runCLI(t, env, "filter", "on", "podcast", "1"); err == nil {
		t.Fatal("expected error for invalid kind")
	}
	if _, err := runCLI(t, env, "filter", "on", "show", "x"); err == nil {
		t.Fatal("expected error for invalid id")
	}

	out, err = runCLI(t, env, "--json", "filter", "list")
	if err != nil {
		t.Fatalf("filter list: %v", err)
	}
	var flags []api.FilterItem
	if err := json.Unmarshal([]byte(out), &flags); err != nil {
		t.Fatalf("decode flags: %v\n%s", err, out)
	}
	if len(flags) != 2 || flags[0].Kind != "movie" || flags[0].Filtered || !flags[1].Filtered {
		t.Fatalf("unexpected flags: %+v", flags)
	}
}

func TestSettingsCommands(t *testing.T) {
	env := setupCLITestEnv(t, "")

	out, err := runCLI(t, env, "settings", "set", "dry_run", "yes")
	if err != nil {
		t.Fatalf("settings set: %v", err)
	}
	requireContains(t, out, "dry_run = 1")

	out, err = runCLI(t, env, "settings", "get", "dry_run")
	if err != nil {
		t.Fatalf("settings get: %v", err)
	}
	if strings.TrimSpace(out) != "1" {
		t.Fatalf("dry_run = %q", out)
	}

	out, err = runCLI(t, env, "settings", "set", "sonarr_api_key", "abc123")
	if err != nil {
		t.Fatalf("settings set secret: %v", err)
	}
	if strings.Contains(out, "abc123") {
		t.Fatalf("secret echoed: %s", out)
	}
	out, err = runCLI(t, env, "settings", "list")
	if err != nil {
		t.Fatalf("settings list: %v", err)
	}
	if strings.Contains(out, "abc123") {
		t.Fatalf("secret listed: %s", out)
	}
	out, err = runCLI(t, env, "settings", "get", "sonarr_api_key", "--reveal")
	if err != nil {
		t.Fatalf("settings get --reveal: %v", err)
	}
	requireContains(t, out, "abc123")

	if _, err := runCLI(t, env, "settings", "set", "poll_interval_seconds", "often"); err == nil {
		t.Fatal("expected validation error")
	}
	if _, err := runCLI(t, env, "settings", "set", "no_such_key", "1"); err == nil {
		t.Fatal("expected unknown key error")
	}

	if _, err := runCLI(t, env, "settings", "unset", "dry_run"); err != nil {
		t.Fatalf("settings unset: %v", err)
	}
	out, err = runCLI(t, env, "settings", "get", "dry_run")
	if err != nil {
		t.Fatalf("settings get: %v", err)
	}
	if strings.TrimSpace(out) != "0" {
		t.Fatalf("dry_run after unset = %q", out)
	}
}

func TestResolveCommand(t *testing.T) {
	env := setupCLITestEnv(t, "")
	local := env.writeMedia(t, "TV/Show/Season 2/Show - S02E03.mkv")

	out, err := runCLI(t, env, "--json", "resolve", "/mnt/storagepool/TV/Show/Season 2/Show - S02E03.mkv")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	var view resolveView
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if !view.Found || view.Resolved != local {
		t.Fatalf("unexpected resolution: %+v", view)
	}

	if _, err := runCLI(t, env, "resolve", "/nowhere/missing.mkv"); err == nil {
		t.Fatal("expected error for unresolvable path")
	}
}

func TestLogsPrintsTail(t *testing.T) {
	env := setupCLITestEnv(t, "")
	cfg, _, _, err := config.Load(env.configPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.LogPath()), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(cfg.LogPath(), []byte("one\ntwo\nthree\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := runCLI(t, env, "logs", "-n", "2")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if out != "two\nthree\n" {
		t.Fatalf("unexpected logs output %q", out)
	}
}

func TestStopWithoutDaemon(t *testing.T) {
	env := setupCLITestEnv(t, "")
	out, err := runCLI(t, env, "stop")
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	requireContains(t, out, "Daemon is not running")
}

func freeAddress(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()
	return addr
}

func startDaemon(t *testing.T, env *cliTestEnv) *daemon.Daemon {
	t.Helper()
	cfg, _, _, err := config.Load(env.configPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure dirs: %v", err)
	}
	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	logger := logging.NewNop()
	components := daemonrun.Build(cfg, store, logger)
	d, err := daemon.New(cfg, store, components.Workflow, components.Service, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon start: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
		store.Close()
	})
	return d
}

func TestCommandsUseRunningDaemon(t *testing.T) {
	env := setupCLITestEnv(t, freeAddress(t))
	startDaemon(t, env)

	out, err := runCLI(t, env, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "polling")
	requireContains(t, out, "sonarr")

	path := env.writeMedia(t, "Movies/m.mkv")
	out, err = runCLI(t, env, "--json", "enqueue", "--dry-run", path)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	var resp api.EnqueueResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if !resp.Admitted || resp.Item == nil || !resp.Item.DryRun {
		t.Fatalf("unexpected response: %+v", resp)
	}

	out, err = runCLI(t, env, "--json", "status")
	if err != nil {
		t.Fatalf("status json: %v", err)
	}
	var status api.Status
	if err := json.Unmarshal([]byte(out), &status); err != nil {
		t.Fatalf("decode status: %v\n%s", err, out)
	}
	if !status.Running {
		t.Fatalf("expected running daemon: %+v", status)
	}
}
