// Package version holds build-time identification for the qubecsim
// binary. Version, Commit, and Date are overridden at build time via
// -ldflags; for local builds Version defaults to "dev" and Commit and Date
// to "unknown".
package version

var (
	// Version is the released version tag, or "dev" outside a release
	// build.
	Version = "dev"

	// Commit is the VCS commit hash the binary was built from.
	Commit = "unknown"

	// Date is the build timestamp, in RFC 3339.
	Date = "unknown"
)

// String renders the build identification the "version" CLI subcommand
// prints.
func String() string {
	return "qubecsim " + Version + " (" + Commit + ", built " + Date + ")"
}
