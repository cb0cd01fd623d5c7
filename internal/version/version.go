// Package version carries build identification, populated via -ldflags.
package version

var (
	// Version is the release tag of this build, "dev" when built locally
	Version = "dev"
	// GitSHA identifies the commit the binary was built from
	GitSHA = "unknown"
	// BuildTime records when the binary was produced
	BuildTime = "unknown"
)
