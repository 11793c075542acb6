package preflight

import (
	"context"
	"fmt"

	"bleeparr/internal/config"
)

// Inputs collects what RunAll needs beyond the static config.
type Inputs struct {
	ToolBinary      string
	OutputDirectory string
	Sources         []Pinger
}

// RunAll executes every check. Fallback roots that do not exist are reported
// but do not block processing; the resolver skips them.
func RunAll(ctx context.Context, cfg *config.Config, in Inputs) []Result {
	if cfg == nil {
		return nil
	}
	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir, true),
		CheckTool(in.ToolBinary),
	}
	if in.OutputDirectory != "" {
		results = append(results, CheckDirectoryAccess("Output directory", in.OutputDirectory, true))
	}
	for i, root := range cfg.Resolver.FallbackRoots {
		results = append(results, CheckDirectoryAccess(fmt.Sprintf("Fallback root %d", i+1), root, false))
	}
	for _, source := range in.Sources {
		if source != nil {
			results = append(results, CheckSource(ctx, source))
		}
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
