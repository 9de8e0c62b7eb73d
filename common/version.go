package common

// Version is overridden at build time via -ldflags "-X
// github.com/aodn/pipeline/common.Version=...", the same mechanism the
// teacher's own build tooling stamps a version string into GetVersion's
// result.
var Version = "dev"

// GetVersion returns the build-stamped version string, used in Sentry
// client tags and the cmd/pipelined --version flag.
func GetVersion() string {
	return Version
}
