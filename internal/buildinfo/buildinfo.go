// Package buildinfo holds build-time metadata injected via -ldflags, e.g.
//
//	-X github.com/garyellow/regionstat/internal/buildinfo.Version=v1.2.0
package buildinfo

import "runtime/debug"

var (
	// Version is the semantic version or tag for this build.
	Version = ""
	// Commit is the git commit SHA for this build.
	Commit = ""
	// BuildDate is the RFC3339 build timestamp.
	BuildDate = ""
)

// Release returns Version, falling back to the module version recorded by
// `go install` and then to "dev".
func Release() string {
	if Version != "" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		if v := info.Main.Version; v != "" && v != "(devel)" {
			return v
		}
	}
	return "dev"
}
