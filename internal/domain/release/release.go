package release

import (
	"fmt"
	"path"
	"slices"
	"strings"
	"time"
)

// Revision is an opaque identifier of a point-in-time file tree (commit, tag or branch).
type Revision string

// Mode selects how the package content is computed.
type Mode int

const (
	// ModeDelta compares two revisions and packages the difference.
	ModeDelta Mode = iota
	// ModeSnapshot packages a single revision in full.
	ModeSnapshot
)

// String returns a human-readable mode name.
func (m Mode) String() string {
	if m == ModeSnapshot {
		return "snapshot"
	}

	return "delta"
}

// RootModule is the module directory of a manifest located at the repository root.
const RootModule = "."

// ModuleDisplayName renders a module directory for humans.
func ModuleDisplayName(module string) string {
	if module == RootModule || module == "" {
		return "<root>"
	}

	return module
}

// ModuleOf returns the module directory of a manifest path.
func ModuleOf(manifestPath string) string {
	return path.Dir(NormalizePath(manifestPath))
}

// NormalizePath converts a path to forward-slash, repository-root-relative form.
func NormalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")

	return strings.TrimPrefix(p, "./")
}

// Target describes the interpreter and platform binary distributions are fetched for.
type Target struct {
	// PythonVersion is passed to pip as --python-version, e.g. "3.10".
	PythonVersion string
	// Platform is passed to pip as --platform, e.g. "manylinux2014_x86_64".
	Platform string
}

// Pin is an exact name==version dependency specifier.
type Pin struct {
	Name    string
	Version string
}

// String renders the pin as a pip requirement.
func (p Pin) String() string {
	return p.Name + "==" + p.Version
}

// DependencyDelta maps a module directory to its new or changed pins.
// Modules without entries are never present.
type DependencyDelta map[string][]Pin

// Add appends pins for a module, skipping empty input so that the map never holds empty entries.
func (d DependencyDelta) Add(module string, pins ...Pin) {
	if len(pins) == 0 {
		return
	}

	d[module] = append(d[module], pins...)
}

// Modules returns module directories in lexical order.
func (d DependencyDelta) Modules() []string {
	modules := make([]string, 0, len(d))
	for module, pins := range d {
		if len(pins) > 0 {
			modules = append(modules, module)
		}
	}

	slices.Sort(modules)

	return modules
}

// Count returns the total number of pins across modules.
func (d DependencyDelta) Count() int {
	total := 0
	for _, pins := range d {
		total += len(pins)
	}

	return total
}

// Empty reports whether no module has any pin.
func (d DependencyDelta) Empty() bool {
	return d.Count() == 0
}

// ChangeSet is the pair of add/update and delete path sets between two revisions.
type ChangeSet struct {
	// Add lists paths whose content must be shipped, in discovery order.
	Add []string
	// Delete lists paths the target must remove, in discovery order.
	Delete []string
}

// Empty reports whether both sets are empty.
func (c ChangeSet) Empty() bool {
	return len(c.Add) == 0 && len(c.Delete) == 0
}

// Validate checks that no path appears twice and that the two sets are disjoint.
func (c ChangeSet) Validate() error {
	seen := make(map[string]string, len(c.Add)+len(c.Delete))

	check := func(set string, paths []string) error {
		for _, p := range paths {
			if prev, ok := seen[p]; ok {
				return fmt.Errorf("%w: %q in %s and %s sets", ErrPartitionViolation, p, prev, set)
			}

			seen[p] = set
		}

		return nil
	}

	if err := check("add", c.Add); err != nil {
		return err
	}

	return check("delete", c.Delete)
}

// DiffStatus is the change kind reported by a tree diff.
type DiffStatus byte

const (
	// StatusAdded marks a new path.
	StatusAdded DiffStatus = 'A'
	// StatusCopied marks a path copied from another one.
	StatusCopied DiffStatus = 'C'
	// StatusModified marks changed content or mode.
	StatusModified DiffStatus = 'M'
	// StatusRenamed marks a path moved to NewPath.
	StatusRenamed DiffStatus = 'R'
	// StatusDeleted marks a removed path.
	StatusDeleted DiffStatus = 'D'
	// StatusTypeChanged marks a path whose type changed, e.g. a file replaced by a symlink.
	StatusTypeChanged DiffStatus = 'T'
)

// DiffRecord is one entry of a tree diff.
type DiffRecord struct {
	Status DiffStatus
	// Path is the affected path; for renames and copies it is the source path.
	Path string
	// NewPath is the destination of a rename or copy.
	NewPath string
}

// FileMode is a git tree entry mode such as 100644.
type FileMode uint32

const (
	// ModeRegular is a non-executable blob.
	ModeRegular FileMode = 0o100644
	// ModeExecutable is an executable blob.
	ModeExecutable FileMode = 0o100755
	// ModeSymlink is a symbolic link blob holding the link target.
	ModeSymlink FileMode = 0o120000
	// ModeSubmodule is a gitlink to a commit in another repository.
	ModeSubmodule FileMode = 0o160000
)

// IsSymlink reports whether the entry is a symbolic link.
func (m FileMode) IsSymlink() bool {
	return m&0o170000 == 0o120000
}

// IsSubmodule reports whether the entry is a gitlink.
func (m FileMode) IsSubmodule() bool {
	return m&0o170000 == 0o160000
}

// Perm returns the permission bits.
func (m FileMode) Perm() int64 {
	return int64(m & 0o7777)
}

// TreeEntry is a path listed in a revision's tree together with its mode.
type TreeEntry struct {
	Path string
	Mode FileMode
}

// Paths returns the entry paths in order.
func Paths(entries []TreeEntry) []string {
	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		paths = append(paths, e.Path)
	}

	return paths
}

// Fixed archive metadata applied to every member and to the gzip container.
var (
	// FixedModTime is 2025-01-01 00:00:00 UTC.
	FixedModTime = time.Unix(1735689600, 0).UTC()
)

const (
	// FixedOwnerID is the numeric uid and gid of every archive member.
	FixedOwnerID = 0
	// FixedOwnerName is the symbolic user and group name of every archive member.
	FixedOwnerName = "root"
)
