// Package deps reports whether the external programs bleeparr shells out to
// are installed.
package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement defines an external program bleeparr relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a requirement.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Path        string
	Detail      string
}

// Check resolves the requirement against PATH or an explicit location.
func (r Requirement) Check() Status {
	cmd := strings.TrimSpace(r.Command)
	status := Status{
		Name:        r.Name,
		Command:     cmd,
		Description: strings.TrimSpace(r.Description),
		Optional:    r.Optional,
	}
	if cmd == "" {
		status.Detail = "command not configured"
		return status
	}
	resolved, err := exec.LookPath(cmd)
	if err != nil {
		status.Detail = fmt.Sprintf("binary %q not found", cmd)
		return status
	}
	status.Available = true
	status.Path = resolved
	return status
}

// CheckBinaries evaluates the provided requirements in order.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		results = append(results, req.Check())
	}
	return results
}

// Missing returns the unavailable statuses that are not optional.
func Missing(statuses []Status) []Status {
	var out []Status
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			out = append(out, s)
		}
	}
	return out
}

// ToolRequirements lists the censoring tool and the media programs it drives.
func ToolRequirements(toolBinary string) []Requirement {
	return []Requirement{
		{
			Name:        "Censoring tool",
			Command:     toolBinary,
			Description: "Required to mute or beep profanity",
		},
		{
			Name:        "FFmpeg",
			Command:     "ffmpeg",
			Description: "Used by the censoring tool to remux audio",
			Optional:    true,
		},
		{
			Name:        "FFprobe",
			Command:     "ffprobe",
			Description: "Used by the censoring tool to inspect streams",
			Optional:    true,
		},
	}
}
