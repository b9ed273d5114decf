// Package release contains the data model shared by the packaging pipeline.
//
// It defines revisions, change sets (the add and delete sets computed between
// two revisions), dependency pins and deltas, git tree entries, the fixed
// archive metadata and the error taxonomy. Reporter is the narrow observer
// contract the core uses instead of logging directly.
package release
