package censor_test

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"bleeparr/internal/censor"
	"bleeparr/internal/testsupport"
)

const summaryScript = `echo "Transcribing..."
echo "=== Mute Summary ==="
echo "Total Words Muted: 7"
echo "  damn: 4"
echo "  hell: 3"
`

func newInput(t *testing.T) string {
	t.Helper()
	return testsupport.WriteFile(t, filepath.Join(t.TempDir(), "media", "Movie (2020).mkv"))
}

func TestRunParsesTotal(t *testing.T) {
	tool := testsupport.WriteScript(t, t.TempDir(), "tool", summaryScript)
	runner := censor.New(tool, time.Minute)
	input := newInput(t)

	out := runner.Run(context.Background(), input, censor.Metadata{Kind: "movie", ItemID: 1}, censor.Config{OutputPrefix: "clean_"}, false)
	if !out.Success {
		t.Fatalf("expected success, got error %q", out.Error)
	}
	if out.SwearsFound != 7 {
		t.Fatalf("expected 7 swears, got %d", out.SwearsFound)
	}
	want := filepath.Join(filepath.Dir(input), "clean_Movie (2020).mkv")
	if out.OutputPath != want {
		t.Fatalf("expected output %q, got %q", want, out.OutputPath)
	}
}

func TestRunGarbledSummaryCountsZero(t *testing.T) {
	tool := testsupport.WriteScript(t, t.TempDir(), "tool", "echo 'nothing useful here'\necho 'Total Words Muted: lots'\n")
	runner := censor.New(tool, time.Minute)

	out := runner.Run(context.Background(), newInput(t), censor.Metadata{}, censor.Config{}, false)
	if !out.Success {
		t.Fatalf("expected success, got %q", out.Error)
	}
	if out.SwearsFound != 0 {
		t.Fatalf("expected 0 swears, got %d", out.SwearsFound)
	}
}

func TestRunReportedOutputWins(t *testing.T) {
	tool := testsupport.WriteScript(t, t.TempDir(), "tool", "echo 'Output: /clean/elsewhere.mkv'\n"+summaryScript)
	runner := censor.New(tool, time.Minute)

	out := runner.Run(context.Background(), newInput(t), censor.Metadata{}, censor.Config{OutputPrefix: "clean_"}, false)
	if out.OutputPath != "/clean/elsewhere.mkv" {
		t.Fatalf("expected reported output path, got %q", out.OutputPath)
	}
}

func TestRunDryRunHasNoOutputPath(t *testing.T) {
	dir := t.TempDir()
	argsFile := filepath.Join(dir, "args")
	tool := testsupport.WriteScript(t, dir, "tool", `echo "$@" > `+argsFile+"\necho 'Output: /clean/x.mkv'\n"+summaryScript)
	runner := censor.New(tool, time.Minute)

	out := runner.Run(context.Background(), newInput(t), censor.Metadata{}, censor.Config{OutputPrefix: "clean_"}, true)
	if !out.Success {
		t.Fatalf("expected success, got %q", out.Error)
	}
	if out.OutputPath != "" {
		t.Fatalf("expected no output path for dry run, got %q", out.OutputPath)
	}
	args := readFile(t, argsFile)
	if !strings.Contains(args, "--dry-run") {
		t.Fatalf("expected --dry-run in %q", args)
	}
}

func TestRunNonzeroExitCapturesStderr(t *testing.T) {
	tool := testsupport.WriteScript(t, t.TempDir(), "tool", "echo 'ffmpeg: invalid stream' >&2\nexit 3\n")
	runner := censor.New(tool, time.Minute)

	out := runner.Run(context.Background(), newInput(t), censor.Metadata{}, censor.Config{}, false)
	if out.Success {
		t.Fatal("expected failure")
	}
	if out.Error != "ffmpeg: invalid stream" {
		t.Fatalf("expected stderr as error, got %q", out.Error)
	}
	if out.SwearsFound != 0 || out.OutputPath != "" {
		t.Fatalf("unexpected outcome %+v", out)
	}
}

func TestRunNonzeroExitWithoutStderr(t *testing.T) {
	tool := testsupport.WriteScript(t, t.TempDir(), "tool", "exit 2\n")
	runner := censor.New(tool, time.Minute)

	out := runner.Run(context.Background(), newInput(t), censor.Metadata{}, censor.Config{}, false)
	if out.Success || !strings.Contains(out.Error, "exit status 2") {
		t.Fatalf("expected exit status in error, got %+v", out)
	}
}

func TestRunTimeout(t *testing.T) {
	tool := testsupport.WriteScript(t, t.TempDir(), "tool", "exec sleep 10\n")
	runner := censor.New(tool, 200*time.Millisecond)

	started := time.Now()
	out := runner.Run(context.Background(), newInput(t), censor.Metadata{}, censor.Config{}, false)
	if out.Success {
		t.Fatal("expected timeout failure")
	}
	if !strings.Contains(out.Error, "timeout") {
		t.Fatalf("expected timeout error, got %q", out.Error)
	}
	if time.Since(started) > 8*time.Second {
		t.Fatal("runner did not stop the tool at the deadline")
	}
}

func TestRunMissingInput(t *testing.T) {
	runner := censor.New("/bin/true", time.Minute)
	out := runner.Run(context.Background(), filepath.Join(t.TempDir(), "gone.mkv"), censor.Metadata{}, censor.Config{}, false)
	if out.Success || !strings.Contains(out.Error, "not found") {
		t.Fatalf("expected not found failure, got %+v", out)
	}
}

func TestRunMissingBinary(t *testing.T) {
	runner := censor.New("", time.Minute)
	out := runner.Run(context.Background(), newInput(t), censor.Metadata{}, censor.Config{}, false)
	if out.Success || !strings.Contains(out.Error, "configuration") {
		t.Fatalf("expected configuration failure, got %+v", out)
	}
}

type recordingExecutor struct {
	binary string
	args   []string
	result censor.Result
	err    error
}

func (r *recordingExecutor) Run(_ context.Context, binary string, args []string) (censor.Result, error) {
	r.binary = binary
	r.args = args
	return r.result, r.err
}

func TestRunConfigBinaryOverridesDefault(t *testing.T) {
	exec := &recordingExecutor{}
	runner := censor.New("default-tool", time.Minute, censor.WithExecutor(exec))

	runner.Run(context.Background(), newInput(t), censor.Metadata{}, censor.Config{Binary: "custom-tool"}, false)
	if exec.binary != "custom-tool" {
		t.Fatalf("expected custom-tool, got %q", exec.binary)
	}
}

func TestRunExecutorErrorIsFailure(t *testing.T) {
	exec := &recordingExecutor{err: errors.New("fork failed")}
	runner := censor.New("tool", time.Minute, censor.WithExecutor(exec))

	out := runner.Run(context.Background(), newInput(t), censor.Metadata{}, censor.Config{}, false)
	if out.Success || !strings.Contains(out.Error, "fork failed") {
		t.Fatalf("expected executor failure, got %+v", out)
	}
}

func TestBuildArgs(t *testing.T) {
	cfg := censor.Config{
		SwearsFile:      "/etc/swears.txt",
		OutputPrefix:    "clean_",
		OutputDirectory: "/out",
		BoostDB:         6,
		PreBufferMS:     100,
		PostBufferMS:    150,
		PassSelection:   censor.PassSecond,
		UseBeep:         true,
		TempDir:         "/tmp/clips",
		RetainClips:     true,
	}
	got := censor.BuildArgs("/media/a.mkv", cfg, true)
	want := []string{
		"--input", "/media/a.mkv",
		"--swears", "/etc/swears.txt",
		"--boost-db", "6",
		"--pre-buffer", "100",
		"--post-buffer", "150",
		"--pass", "second",
		"--output-prefix", "clean_",
		"--output-dir", "/out",
		"--beep", "--beep-mode", "words",
		"--temp-dir", "/tmp/clips",
		"--retain-clips",
		"--dry-run",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("args mismatch\n got: %v\nwant: %v", got, want)
	}

	minimal := censor.BuildArgs("/media/a.mkv", censor.Config{}, false)
	wantMinimal := []string{
		"--input", "/media/a.mkv",
		"--swears", "swears.txt",
		"--boost-db", "0",
		"--pre-buffer", "0",
		"--post-buffer", "0",
		"--pass", "both",
	}
	if !reflect.DeepEqual(minimal, wantMinimal) {
		t.Fatalf("minimal args mismatch\n got: %v\nwant: %v", minimal, wantMinimal)
	}
}

func TestExpectedOutputUsesOutputDirectory(t *testing.T) {
	got := censor.ExpectedOutput("/media/tv/ep.mkv", censor.Config{OutputPrefix: "clean_", OutputDirectory: "/clean"})
	if got != "/clean/clean_ep.mkv" {
		t.Fatalf("unexpected output %q", got)
	}
}
