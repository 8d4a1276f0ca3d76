// Package buildinfo provides build-time version information.
//
// Variables are set via ldflags during build:
//
//	go build -ldflags "-X github.com/matzehuels/stickersmash/pkg/buildinfo.Version=v1.0.0 \
//	    -X github.com/matzehuels/stickersmash/pkg/buildinfo.Commit=$(git rev-parse HEAD) \
//	    -X github.com/matzehuels/stickersmash/pkg/buildinfo.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
//
// A binary built without ldflags reports Version "dev" and counts as a
// development build, which relaxes the position accuracy requested on
// simulated hosts.
package buildinfo

import "fmt"

// devVersion is the version reported by binaries built without ldflags.
const devVersion = "dev"

var (
	// Version is the semantic version (e.g., "v1.2.3").
	// Set via ldflags: -X github.com/matzehuels/stickersmash/pkg/buildinfo.Version=...
	Version = devVersion

	// Commit is the git commit SHA.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// IsDev reports whether this is a development build.
func IsDev() bool {
	return Version == devVersion || Version == ""
}

// String returns the formatted build information.
func String() string {
	return fmt.Sprintf("version: %s\ncommit: %s\nbuilt: %s", Version, Commit, Date)
}

// Template returns the version template string for cobra.
func Template() string {
	return fmt.Sprintf("{{.Name}} version %s\ncommit: %s\nbuilt: %s\n", Version, Commit, Date)
}
