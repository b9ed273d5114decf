// Package pypi downloads binary distributions (wheels) through pip.
//
// Each pin is fetched with its own pip invocation, binary-only and without
// dependency resolution, so a single unavailable package never prevents the
// rest of a module from being fetched.
package pypi
