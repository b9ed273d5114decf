// Package packager turns two revisions of a repository into a release package.
//
// A run validates its preconditions (tools, revisions, a clean working tree),
// computes the file change set and the dependency delta, downloads the new
// binary distributions, filters the shipped files through the ignore list and,
// unless there is nothing to ship, writes a deterministic tar.gz archive to the
// output path. Run wires the real git and pip gateways; Packager.Build accepts
// injected collaborators.
package packager
