// Package version carries build metadata stamped in at link time via
// -ldflags "-X".
package version

import "fmt"

var (
	// Version is the current application version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String renders the one-line version report.
func String() string {
	return fmt.Sprintf("biodock %s (%s, built %s)", Version, GitSHA, BuildTime)
}
