// Package version exposes build metadata injected at link time.
package version

import "fmt"

// Set via -ldflags at build time, e.g.:
//
//	go build -ldflags "-X github.com/HerbHall/netweave/internal/version.Version=0.3.0"
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Short returns the bare version string.
func Short() string {
	return Version
}

// Info returns a human-readable version line.
func Info() string {
	return fmt.Sprintf("netweave %s (commit %s, built %s)", Version, Commit, Date)
}

// Map returns version fields for JSON responses.
func Map() map[string]string {
	return map[string]string{
		"version": Version,
		"commit":  Commit,
		"date":    Date,
	}
}
