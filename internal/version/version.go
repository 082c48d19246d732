package version

import "fmt"

// Name is the application name used in logs, health output and outbound requests.
const Name = "logwarden"

var (
	Version = "0.1.0"
	// BuildTime and GitCommit are set during build via ldflags.
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Full returns the version with build metadata when it is known.
func Full() string {
	if BuildTime == "unknown" || GitCommit == "unknown" {
		return Version
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime)
}

// UserAgent is sent with every request to an analysis provider.
func UserAgent() string {
	return Name + "/" + Version
}
