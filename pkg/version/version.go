// Package version exposes build metadata injected at link time.
package version

import "runtime"

var (
	// Version is the semantic version, set via -ldflags at build time.
	Version = "dev"
	// GitCommit is the git commit hash, set via -ldflags at build time.
	GitCommit = "unknown"
	// BuildDate is the build timestamp, set via -ldflags at build time.
	BuildDate = "unknown"
)

// BuildInfo is the build metadata reported by the gateway.
type BuildInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"gitCommit"`
	BuildDate string `json:"buildDate"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
}

// Get returns the current build metadata.
func Get() BuildInfo {
	return BuildInfo{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}
