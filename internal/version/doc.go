// Package version exposes build metadata for installer-uploader.
//
// Version, Commit and BuildTime are injected with -ldflags and default to
// development values. The version subcommand prints them.
package version
