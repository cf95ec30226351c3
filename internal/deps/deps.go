package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"stemdeck/internal/config"
)

// Requirement defines an external binary stemdeck may run.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// OutputRequirements lists the binaries the configured audio output needs.
// A disabled output (empty command or "null") needs none.
func OutputRequirements(cfg *config.Config) []Requirement {
	if cfg == nil {
		return nil
	}
	command := strings.TrimSpace(cfg.Output.Command)
	if command == "" || command == "null" {
		return nil
	}
	return []Requirement{{
		Name:        "Audio output",
		Command:     command,
		Description: "Receives mixed float32 PCM on stdin",
	}}
}
