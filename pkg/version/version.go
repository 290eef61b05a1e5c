// Package version exposes build metadata stamped in via ldflags.
package version

import "runtime"

// Overridden at build time, e.g.
// -ldflags "-X github.com/shoal-chat/shoal/pkg/version.Version=v0.2.0".
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// GoVersion reports the toolchain that produced the binary.
var GoVersion = runtime.Version()
