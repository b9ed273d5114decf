// Package version exposes build metadata for distpack.
//
// Version, Commit and BuildTime are injected at build time via Go ldflags.
// When Commit is not injected, the VCS revision recorded by the toolchain is used.
package version
