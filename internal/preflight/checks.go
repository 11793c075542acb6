package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"bleeparr/internal/deps"
	"bleeparr/internal/services"
)

// Result reports the outcome of a single check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// CheckDirectoryAccess verifies that path is a directory the process can
// traverse and read, and also write when write is set.
func CheckDirectoryAccess(name, path string, write bool) Result {
	if path == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	mode := uint32(unix.R_OK | unix.X_OK)
	label := "read ok"
	if write {
		mode |= unix.W_OK
		label = "read/write ok"
	}
	if err := unix.Access(path, mode); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", path, label)}
}

// Pinger is a library manager that can be probed.
type Pinger interface {
	Name() string
	Enabled(ctx context.Context) bool
	Ping(ctx context.Context) error
}

// CheckSource probes a library manager with a short timeout.
func CheckSource(ctx context.Context, source Pinger) Result {
	name := source.Name()
	if !source.Enabled(ctx) {
		return Result{Name: name, Detail: "not configured"}
	}
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := source.Ping(checkCtx)
	switch {
	case err == nil:
		return Result{Name: name, Passed: true, Detail: "reachable"}
	case errors.Is(err, services.ErrConfiguration):
		return Result{Name: name, Detail: "auth failed (check api key)"}
	case errors.Is(err, context.DeadlineExceeded):
		return Result{Name: name, Detail: "timed out"}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("unreachable (%v)", err)}
	}
}

// CheckTool reports whether the censoring tool can be executed.
func CheckTool(binary string) Result {
	status := deps.ToolRequirements(binary)[0].Check()
	if !status.Available {
		return Result{Name: status.Name, Detail: status.Detail}
	}
	return Result{Name: status.Name, Passed: true, Detail: status.Path}
}
