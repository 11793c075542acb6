package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type cliTestEnv struct {
	baseDir    string
	dataDir    string
	logDir     string
	mediaRoot  string
	configPath string
	toolPath   string
}

// setupCLITestEnv writes a config with api_bind set to bind; an empty bind
// forces direct database access.
func setupCLITestEnv(t *testing.T, bind string) *cliTestEnv {
	t.Helper()
	for _, key := range []string{"SONARR_URL", "SONARR_API_KEY", "RADARR_URL", "RADARR_API_KEY"} {
		t.Setenv(key, "")
	}

	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	env := &cliTestEnv{
		baseDir:    base,
		dataDir:    filepath.Join(base, "data"),
		logDir:     filepath.Join(base, "logs"),
		mediaRoot:  filepath.Join(base, "media"),
		configPath: filepath.Join(base, "bleeparr.toml"),
	}
	if err := os.MkdirAll(env.mediaRoot, 0o755); err != nil {
		t.Fatalf("mkdir media: %v", err)
	}
	env.toolPath = filepath.Join(base, "bin", "bleeparr-tool")
	if err := os.MkdirAll(filepath.Dir(env.toolPath), 0o755); err != nil {
		t.Fatalf("mkdir bin: %v", err)
	}
	script := "#!/bin/sh\necho \"Mute summary\"\necho \"Total words muted: 4\"\n"
	if err := os.WriteFile(env.toolPath, []byte(script), 0o755); err != nil {
		t.Fatalf("write tool: %v", err)
	}

	content := fmt.Sprintf(`[paths]
data_dir = %q
log_dir = %q
api_bind = %q

[resolver]
fallback_roots = [%q]

[tool]
binary = %q
timeout_seconds = 30
`, env.dataDir, env.logDir, bind, env.mediaRoot, env.toolPath)
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

func (e *cliTestEnv) writeMedia(t *testing.T, rel string) string {
	t.Helper()
	path := filepath.Join(e.mediaRoot, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("media"), 0o644); err != nil {
		t.Fatalf("write media: %v", err)
	}
	return path
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
