package preflight_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bleeparr/internal/preflight"
	"bleeparr/internal/services"
	"bleeparr/internal/testsupport"
)

type fakeSource struct {
	name    string
	enabled bool
	err     error
}

func (f fakeSource) Name() string                 { return f.name }
func (f fakeSource) Enabled(context.Context) bool { return f.enabled }
func (f fakeSource) Ping(context.Context) error   { return f.err }

func TestCheckDirectoryAccess(t *testing.T) {
	dir := t.TempDir()
	if res := preflight.CheckDirectoryAccess("Data", dir, true); !res.Passed {
		t.Fatalf("expected writable temp dir to pass: %s", res.Detail)
	}
	if res := preflight.CheckDirectoryAccess("Data", filepath.Join(dir, "missing"), false); res.Passed || !strings.Contains(res.Detail, "does not exist") {
		t.Fatalf("expected missing dir failure, got %+v", res)
	}
	file := testsupport.WriteFile(t, filepath.Join(dir, "file.txt"))
	if res := preflight.CheckDirectoryAccess("Data", file, false); res.Passed || !strings.Contains(res.Detail, "not a directory") {
		t.Fatalf("expected not-a-directory failure, got %+v", res)
	}
	if res := preflight.CheckDirectoryAccess("Output", "", true); res.Passed {
		t.Fatal("expected empty path to fail")
	}
}

func TestCheckDirectoryAccessReadOnly(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
	dir := filepath.Join(t.TempDir(), "ro")
	if err := os.Mkdir(dir, 0o555); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chmod(dir, 0o755) })

	if res := preflight.CheckDirectoryAccess("Root", dir, false); !res.Passed {
		t.Fatalf("expected read-only dir to pass a read check: %s", res.Detail)
	}
	if res := preflight.CheckDirectoryAccess("Output", dir, true); res.Passed {
		t.Fatal("expected read-only dir to fail a write check")
	}
}

func TestCheckSource(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		source preflight.Pinger
		passed bool
		detail string
	}{
		{fakeSource{name: "sonarr"}, false, "not configured"},
		{fakeSource{name: "sonarr", enabled: true}, true, "reachable"},
		{fakeSource{name: "radarr", enabled: true, err: services.Wrap(services.ErrConfiguration, "radarr", "GET", "rejected", nil)}, false, "auth failed"},
		{fakeSource{name: "radarr", enabled: true, err: errors.New("dial tcp: refused")}, false, "unreachable"},
	}
	for _, tc := range cases {
		res := preflight.CheckSource(ctx, tc.source)
		if res.Passed != tc.passed || !strings.Contains(res.Detail, tc.detail) {
			t.Errorf("CheckSource(%s) = %+v, want passed=%v detail~%q", tc.source.Name(), res, tc.passed, tc.detail)
		}
	}
}

func TestRunAll(t *testing.T) {
	root := t.TempDir()
	cfg := testsupport.NewConfig(t, testsupport.WithFallbackRoots(root, filepath.Join(root, "absent")), testsupport.WithStubTool("exit 0\n"))
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	results := preflight.RunAll(context.Background(), cfg, preflight.Inputs{
		ToolBinary: cfg.Tool.Binary,
		Sources:    []preflight.Pinger{fakeSource{name: "sonarr", enabled: true}},
	})
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d: %+v", len(results), results)
	}
	failed := preflight.Failed(results)
	if len(failed) != 1 || failed[0].Name != fmt.Sprintf("Fallback root %d", 2) {
		t.Fatalf("expected only the absent root to fail, got %+v", failed)
	}
}
