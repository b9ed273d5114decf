// Package vcs is the gateway to version control.
//
// Every query the packager makes about revisions, trees, file contents and
// the working tree goes through the Repository interface. CLI implements it
// by invoking the git executable with NUL-terminated output, so paths are
// never quoted or mangled. Nothing above this package talks to git directly.
package vcs
