// Package version holds build identification stamped in at link time.
// The mage Build target passes -X flags for each variable; a plain
// `go build` leaves the defaults.
package version

var (
	// Version is the release tag, or "dev" for local builds.
	Version = "dev"

	// GitSHA is the short commit hash the binary was built from.
	GitSHA = "unknown"

	// BuildTime is the UTC build timestamp in RFC 3339 form.
	BuildTime = "unknown"
)
