// Package version carries build identification, populated through
// -ldflags at release time.
package version

var (
	// Version is the release tag of this build, or "dev" for local builds.
	Version = "dev"
	// GitSHA pins the exact commit the binary was built from.
	GitSHA = "unknown"
	// BuildTime records when the binary was produced.
	BuildTime = "unknown"
)
