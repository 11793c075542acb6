package censor

import (
	"path/filepath"
	"strconv"
)

// Pass selections understood by the tool.
const (
	PassBoth     = "both"
	PassFirst    = "first"
	PassSecond   = "second"
	DefaultBeep  = "words"
	DefaultSwear = "swears.txt"
)

// Config carries the tool parameters read from settings for one invocation.
type Config struct {
	Binary          string
	SwearsFile      string
	OutputPrefix    string
	OutputDirectory string
	BoostDB         int
	PreBufferMS     int
	PostBufferMS    int
	PassSelection   string
	UseBeep         bool
	BeepMode        string
	TempDir         string
	RetainClips     bool
}

// Metadata describes the media being processed for log context.
type Metadata struct {
	Kind   string
	ItemID int64
	Title  string
	Detail string
}

// BuildArgs returns the tool arguments for input.
func BuildArgs(input string, cfg Config, dryRun bool) []string {
	swears := cfg.SwearsFile
	if swears == "" {
		swears = DefaultSwear
	}
	pass := cfg.PassSelection
	if pass == "" {
		pass = PassBoth
	}
	args := []string{
		"--input", input,
		"--swears", swears,
		"--boost-db", strconv.Itoa(cfg.BoostDB),
		"--pre-buffer", strconv.Itoa(cfg.PreBufferMS),
		"--post-buffer", strconv.Itoa(cfg.PostBufferMS),
		"--pass", pass,
	}
	if cfg.OutputPrefix != "" {
		args = append(args, "--output-prefix", cfg.OutputPrefix)
	}
	if cfg.OutputDirectory != "" {
		args = append(args, "--output-dir", cfg.OutputDirectory)
	}
	if cfg.UseBeep {
		mode := cfg.BeepMode
		if mode == "" {
			mode = DefaultBeep
		}
		args = append(args, "--beep", "--beep-mode", mode)
	}
	if cfg.TempDir != "" {
		args = append(args, "--temp-dir", cfg.TempDir)
	}
	if cfg.RetainClips {
		args = append(args, "--retain-clips")
	}
	if dryRun {
		args = append(args, "--dry-run")
	}
	return args
}

// ExpectedOutput returns where the tool writes the cleaned copy of input when
// it does not report a location itself.
func ExpectedOutput(input string, cfg Config) string {
	dir := cfg.OutputDirectory
	if dir == "" {
		dir = filepath.Dir(input)
	}
	return filepath.Join(dir, cfg.OutputPrefix+filepath.Base(input))
}
