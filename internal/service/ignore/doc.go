// Package ignore excludes paths from the package add-set using gitignore-style
// patterns read from a plain-text document (one pattern per line).
package ignore
