// Package archive builds the deterministic tar.gz release package and
// publishes it atomically at its output path.
//
// Layout of a package:
//
//	app/<path>        content of every added or updated file at the target revision
//	delete.list       paths the target must remove, one per line (only when non-empty)
//	wheels/...        downloaded binary distributions, laid out by module directory
//
// Two builds from identical inputs produce byte-identical output: members are
// written in a fixed order and every header carries fixed ownership and
// modification time, as does the gzip container.
package archive
