// Package version holds build metadata stamped via ldflags; both the chat
// server and the ingest CLI log it at startup.
package version

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)
