package config

import (
	"fmt"
	"runtime"
)

// Version information set at build time
var (
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
	GoVersion = runtime.Version()
)

// VersionString returns the one-line version banner
func VersionString() string {
	return fmt.Sprintf("guzel %s (commit %s, built %s, %s)", Version, GitCommit, BuildDate, GoVersion)
}
