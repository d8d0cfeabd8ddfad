package app

// Build information populated via -ldflags at build time.
// Defaults are meaningful for local development and tests.
var (
    // BuildVersion is the semantic version of the built binary.
    BuildVersion = "0.0.0-dev"
    // BuildCommit is the VCS commit SHA associated with the build.
    BuildCommit  = "unknown"
)

// VersionString formats the build information for the version command.
func VersionString() string {
    return "filmstats " + BuildVersion + " (" + BuildCommit + ")"
}
