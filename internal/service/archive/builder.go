package archive

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"slices"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/oshokin/distpack/internal/domain/release"
)

const (
	// AppDir prefixes the content of added or updated files.
	AppDir = "app"
	// WheelsDir prefixes the staged binary distributions.
	WheelsDir = "wheels"
	// DeleteListName is the member listing paths to remove.
	DeleteListName = "delete.list"

	filePermissions    = 0o644
	dirPermissions     = 0o755
	symlinkPermissions = 0o777

	// gzipUnknownOS is the RFC 1952 "unknown" operating system byte.
	gzipUnknownOS = 255
)

var errMissingAtRevision = errors.New("path does not exist at revision")

// Source provides file content and modes at a revision.
type Source interface {
	ReadFile(ctx context.Context, rev release.Revision, path string) ([]byte, bool, error)
	FileModes(ctx context.Context, rev release.Revision, paths []string) (map[string]release.FileMode, error)
}

// Input describes what goes into one package.
type Input struct {
	// Revision is the revision file content is read at.
	Revision release.Revision
	// Add lists repository paths shipped under app/.
	Add []string
	// Delete lists repository paths written to delete.list, in order.
	Delete []string
	// StagingRoot is the directory streamed under wheels/.
	StagingRoot string
	// IncludeArtifacts enables the wheels/ tree.
	IncludeArtifacts bool
}

// Stats counts what a build wrote.
type Stats struct {
	Files    int
	Symlinks int
	Skipped  int
	Deleted  int
	Wheels   int
}

// Builder writes packages.
type Builder struct {
	source   Source
	reporter release.Reporter
}

// ShouldBuild reports whether a package has any content.
func ShouldBuild(add, del []string, fetched bool) bool {
	return len(add) > 0 || len(del) > 0 || fetched
}

// New returns a builder reading repository content from source.
func New(source Source, reporter release.Reporter) *Builder {
	if reporter == nil {
		reporter = release.Discard
	}

	return &Builder{source: source, reporter: reporter}
}

// member is one archive entry of the app/ and delete.list section.
type member struct {
	name    string
	mode    release.FileMode
	content []byte
}

// Build writes the gzip-compressed tar package to w.
func (b *Builder) Build(ctx context.Context, w io.Writer, in Input) (*Stats, error) {
	stats := &Stats{}

	members, err := b.collect(ctx, in, stats)
	if err != nil {
		return nil, err
	}

	zw, err := gzip.NewWriterLevel(w, gzip.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip writer: %w", err)
	}

	zw.Header.ModTime = release.FixedModTime
	zw.Header.Name = ""
	zw.Header.OS = gzipUnknownOS

	tw := tar.NewWriter(zw)

	for _, m := range members {
		if err = writeMember(tw, m); err != nil {
			return nil, err
		}
	}

	if in.IncludeArtifacts {
		if stats.Wheels, err = b.writeStaging(ctx, tw, in.StagingRoot); err != nil {
			return nil, err
		}
	}

	if err = tw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish tar stream: %w", err)
	}

	if err = zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish gzip stream: %w", err)
	}

	b.reporter.Report(ctx, release.LevelInfo, "Package content written",
		"files", stats.Files, "symlinks", stats.Symlinks, "deleted", stats.Deleted,
		"wheels", stats.Wheels, "skipped", stats.Skipped)

	return stats, nil
}

// collect reads every app/ member and delete.list, sorted by member name.
func (b *Builder) collect(ctx context.Context, in Input, stats *Stats) ([]member, error) {
	members := make([]member, 0, len(in.Add)+1)

	if len(in.Add) > 0 {
		modes, err := b.source.FileModes(ctx, in.Revision, in.Add)
		if err != nil {
			return nil, fmt.Errorf("failed to read file modes: %w", err)
		}

		for _, p := range in.Add {
			mode, ok := modes[p]
			if !ok {
				return nil, fmt.Errorf("%s at %s: %w", p, in.Revision, errMissingAtRevision)
			}

			if mode.IsSubmodule() {
				b.reporter.Report(ctx, release.LevelWarn, "Skipping submodule entry", "path", p)
				stats.Skipped++

				continue
			}

			content, found, err := b.source.ReadFile(ctx, in.Revision, p)
			if err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", p, err)
			}

			if !found {
				return nil, fmt.Errorf("%s at %s: %w", p, in.Revision, errMissingAtRevision)
			}

			if mode.IsSymlink() {
				stats.Symlinks++
			} else {
				stats.Files++
			}

			members = append(members, member{
				name:    path.Join(AppDir, release.NormalizePath(p)),
				mode:    mode,
				content: content,
			})
		}
	}

	if len(in.Delete) > 0 {
		members = append(members, member{
			name:    DeleteListName,
			mode:    release.ModeRegular,
			content: []byte(strings.Join(in.Delete, "\n")),
		})
		stats.Deleted = len(in.Delete)
	}

	slices.SortFunc(members, func(a, b member) int {
		return strings.Compare(a.name, b.name)
	})

	return members, nil
}

func writeMember(tw *tar.Writer, m member) error {
	hdr := fixedHeader(m.name)

	if m.mode.IsSymlink() {
		hdr.Typeflag = tar.TypeSymlink
		hdr.Linkname = string(m.content)
		hdr.Mode = symlinkPermissions

		if err := tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("failed to write header for %s: %w", m.name, err)
		}

		return nil
	}

	hdr.Typeflag = tar.TypeReg
	hdr.Size = int64(len(m.content))
	hdr.Mode = m.mode.Perm()

	if hdr.Mode == 0 {
		hdr.Mode = filePermissions
	}

	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("failed to write header for %s: %w", m.name, err)
	}

	if _, err := tw.Write(m.content); err != nil {
		return fmt.Errorf("failed to write %s: %w", m.name, err)
	}

	return nil
}

// writeStaging streams the staging tree in lexical walk order and returns the number of files written.
func (b *Builder) writeStaging(ctx context.Context, tw *tar.Writer, root string) (int, error) {
	fsys := os.DirFS(root)
	files := 0

	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if err = ctx.Err(); err != nil {
			return err
		}

		name := WheelsDir
		if p != "." {
			name = path.Join(WheelsDir, p)
		}

		switch {
		case d.IsDir():
			hdr := fixedHeader(name + "/")
			hdr.Typeflag = tar.TypeDir
			hdr.Mode = dirPermissions

			return tw.WriteHeader(hdr)
		case d.Type().IsRegular():
			files++

			return writeStagedFile(fsys, tw, p, name)
		default:
			b.reporter.Report(ctx, release.LevelWarn, "Skipping non-regular staged file", "path", p)

			return nil
		}
	})
	if err != nil {
		return 0, fmt.Errorf("failed to add staged artifacts: %w", err)
	}

	return files, nil
}

func writeStagedFile(fsys fs.FS, tw *tar.Writer, p, name string) error {
	f, err := fsys.Open(p)
	if err != nil {
		return err
	}

	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	hdr := fixedHeader(name)
	hdr.Typeflag = tar.TypeReg
	hdr.Mode = filePermissions
	hdr.Size = info.Size()

	if err = tw.WriteHeader(hdr); err != nil {
		return err
	}

	_, err = io.Copy(tw, f)

	return err
}

// fixedHeader returns a header carrying the fixed ownership and modification time.
func fixedHeader(name string) *tar.Header {
	return &tar.Header{
		Name:    name,
		ModTime: release.FixedModTime,
		Uid:     release.FixedOwnerID,
		Gid:     release.FixedOwnerID,
		Uname:   release.FixedOwnerName,
		Gname:   release.FixedOwnerName,
		Format:  tar.FormatPAX,
	}
}
