// Package vcstest provides test doubles for the version-control gateway:
// Repository, an in-memory implementation of vcs.Repository, and GitFixture,
// which builds a real on-disk git repository with go-git.
package vcstest
