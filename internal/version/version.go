package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	// Version is the semantic version of the build. It can be overridden via ldflags.
	Version = "0.1.0-dev"
	// Commit is the short git SHA embedded at build time (or "none").
	Commit = "none"
	// BuildTime is the UTC build timestamp embedded at build time.
	BuildTime = "unknown"
)

// shortCommitLength is the number of hex digits shown for a commit read from build info.
const shortCommitLength = 12

// Short returns only the semantic version string.
func Short() string {
	return Version
}

// Full returns a human-readable version string with commit, build time and toolchain.
func Full() string {
	return fmt.Sprintf("distpack version: %s, commit: %s, built at: %s, %s",
		Version, commit(), BuildTime, runtime.Version())
}

// commit falls back to the VCS revision recorded by the Go toolchain when ldflags did not set one.
func commit() string {
	if Commit != "none" && Commit != "" {
		return Commit
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return Commit
	}

	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" && setting.Value != "" {
			if len(setting.Value) > shortCommitLength {
				return setting.Value[:shortCommitLength]
			}

			return setting.Value
		}
	}

	return Commit
}
