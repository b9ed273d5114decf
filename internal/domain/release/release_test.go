package release

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestChangeSetValidate verifies the add/delete partition invariant.
func TestChangeSetValidate(t *testing.T) {
	t.Parallel()

	ok := ChangeSet{Add: []string{"y.txt"}, Delete: []string{"x.txt"}}
	require.NoError(t, ok.Validate())

	overlap := ChangeSet{Add: []string{"a.txt"}, Delete: []string{"a.txt"}}
	require.ErrorIs(t, overlap.Validate(), ErrPartitionViolation)

	duplicate := ChangeSet{Add: []string{"a.txt", "a.txt"}}
	require.ErrorIs(t, duplicate.Validate(), ErrPartitionViolation)

	require.True(t, ChangeSet{}.Empty())
	require.False(t, ok.Empty())
}

// TestDependencyDelta checks that empty modules are never stored and modules are sorted.
func TestDependencyDelta(t *testing.T) {
	t.Parallel()

	delta := DependencyDelta{}
	delta.Add("services/api")
	require.True(t, delta.Empty())
	require.NotContains(t, delta, "services/api")

	delta.Add("services/api", Pin{Name: "b", Version: "1.0"})
	delta.Add(RootModule, Pin{Name: "a", Version: "2.0"}, Pin{Name: "c", Version: "3"})

	require.Equal(t, []string{".", "services/api"}, delta.Modules())
	require.Equal(t, 3, delta.Count())
	require.Equal(t, "a==2.0", delta[RootModule][0].String())
}

// TestModuleHelpers covers path normalization and module naming.
func TestModuleHelpers(t *testing.T) {
	t.Parallel()

	require.Equal(t, "a/b/c.txt", NormalizePath(`a\b\c.txt`))
	require.Equal(t, "a.txt", NormalizePath("./a.txt"))
	require.Equal(t, RootModule, ModuleOf("requirements.txt"))
	require.Equal(t, "svc/api", ModuleOf("svc/api/requirements.txt"))
	require.Equal(t, "<root>", ModuleDisplayName(RootModule))
	require.Equal(t, "svc", ModuleDisplayName("svc"))
}

// TestFileMode checks git mode classification.
func TestFileMode(t *testing.T) {
	t.Parallel()

	require.Equal(t, int64(0o644), ModeRegular.Perm())
	require.Equal(t, int64(0o755), ModeExecutable.Perm())
	require.True(t, ModeSymlink.IsSymlink())
	require.False(t, ModeRegular.IsSymlink())
	require.True(t, ModeSubmodule.IsSubmodule())
	require.Equal(t, int64(1735689600), FixedModTime.Unix())
}

// TestRecorder ensures events are captured in order and counted by level.
func TestRecorder(t *testing.T) {
	t.Parallel()

	var rec Recorder

	ctx := context.Background()
	rec.Report(ctx, LevelInfo, "one", "k", 1)
	rec.Report(ctx, LevelWarn, "two")

	events := rec.Events()
	require.Len(t, events, 2)
	require.Equal(t, "one", events[0].Message)
	require.Equal(t, []any{"k", 1}, events[0].KVs)
	require.Equal(t, 1, rec.Count(LevelWarn))
	require.Equal(t, "warn", LevelWarn.String())

	Discard.Report(ctx, LevelError, "ignored")
}
