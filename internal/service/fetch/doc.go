// Package fetch downloads binary distributions for a dependency delta into a
// staging tree laid out by module directory.
//
// A package that cannot be fetched never aborts the run: its failure is
// reported as a warning and collected in the Result. Only staging filesystem
// errors and cancellation are fatal.
package fetch
