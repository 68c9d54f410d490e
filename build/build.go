// Package build parses build metadata embedded at compile time. Release
// builds of the waitfor binary inject a JSON blob via -ldflags; everything
// here degrades gracefully when the blob is absent, so a plain `go build`
// binary still works.
package build

import (
	"encoding/json"
	"log/slog"
)

// Info is the build metadata injected via -ldflags.
type Info struct {
	GitCommit string `json:"git_commit"` //nolint:tagliatelle
	GitBranch string `json:"git_branch"` //nolint:tagliatelle
	BuildTime string `json:"build_time"` //nolint:tagliatelle
	GoVersion string `json:"go_version"` //nolint:tagliatelle
}

// Parse deserializes a JSON string into build Info.
// Returns (nil, false) if the input is empty, "{}", or fails to parse.
func Parse(js string) (*Info, bool) {
	if len(js) == 0 {
		return nil, false
	}

	if js == "{}" {
		return nil, false
	}

	var info Info

	err := json.Unmarshal([]byte(js), &info)
	if err != nil {
		slog.Warn("Failed to parse build info from JSON",
			"data", js,
			"error", err)

		return nil, false
	}

	return &info, true
}
