package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"bleeparr/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Sonarr = config.Arr{}
	cfgVal.Radarr = config.Arr{}
	cfgVal.Resolver.FallbackRoots = nil
	cfgVal.Workflow.TickSeconds = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithFallbackRoots sets the resolver fallback roots.
func WithFallbackRoots(roots ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Resolver.FallbackRoots = roots
	}
}

// WithDedupPolicy overrides the admission dedup policy.
func WithDedupPolicy(policy string, windowSeconds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Admission.DedupPolicy = policy
		if windowSeconds > 0 {
			b.cfg.Admission.WindowSeconds = windowSeconds
		}
	}
}

// WithSonarr points the Sonarr fallback connection at url.
func WithSonarr(url, apiKey string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Sonarr = config.Arr{URL: url, APIKey: apiKey}
	}
}

// WithRadarr points the Radarr fallback connection at url.
func WithRadarr(url, apiKey string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Radarr = config.Arr{URL: url, APIKey: apiKey}
	}
}

// WithStubTool writes a shell script as the censoring tool and points the
// config at it.
func WithStubTool(script string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Tool.Binary = WriteScript(b.t, filepath.Join(b.baseDir, "bin"), "bleeparr-tool", script)
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the censoring tool is stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{b.cfg.Tool.Binary}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		for _, name := range names {
			WriteScript(b.t, binDir, name, "exit 0\n")
		}

		oldPath := os.Getenv("PATH")
		b.t.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath)
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
