// Package version holds the build version, overridable with
// -ldflags "-X passages/pkg/version.Version=...".
package version

// Version is the current release.
var Version = "v0.3.0"
