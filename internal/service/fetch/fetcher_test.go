package fetch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/oshokin/distpack/internal/domain/release"
)

var testTarget = release.Target{PythonVersion: "3.10", Platform: "manylinux2014_x86_64"}

// fakeDownloader writes "<name>-<version>.whl" and fails for the configured names.
type fakeDownloader struct {
	mu       sync.Mutex
	calls    []string
	failures map[string]bool
	active   atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
}

func (d *fakeDownloader) Download(_ context.Context, pin release.Pin, dest string, _ release.Target) error {
	n := d.active.Add(1)
	defer d.active.Add(-1)

	for {
		peak := d.peak.Load()
		if n <= peak || d.peak.CompareAndSwap(peak, n) {
			break
		}
	}

	time.Sleep(d.delay)

	d.mu.Lock()
	d.calls = append(d.calls, pin.String())
	d.mu.Unlock()

	if d.failures[pin.Name] {
		return errors.New("no matching distribution for " + pin.String())
	}

	return os.WriteFile(filepath.Join(dest, pin.Name+"-"+pin.Version+"-py3-none-any.whl"), nil, 0o644)
}

// TestFetchEmptyDelta does no directory work.
func TestFetchEmptyDelta(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "wheels")
	d := &fakeDownloader{}

	result, err := New(d, 1, nil).Fetch(context.Background(), release.DependencyDelta{}, root, testTarget)
	require.NoError(t, err)
	require.False(t, result.Fetched)
	require.Empty(t, d.calls)

	_, err = os.Stat(root)
	require.True(t, os.IsNotExist(err))
}

// TestFetchStagesByModule places root module wheels directly under the staging root.
func TestFetchStagesByModule(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	delta := release.DependencyDelta{
		release.RootModule: {{Name: "a", Version: "2.0"}, {Name: "b", Version: "1.0"}},
		"services/api":     {{Name: "flask", Version: "3.0.0"}},
	}

	result, err := New(&fakeDownloader{}, 2, nil).Fetch(context.Background(), delta, root, testTarget)
	require.NoError(t, err)
	require.True(t, result.Fetched)
	require.Empty(t, result.Failures)
	require.Zero(t, result.FailedPackages())
	require.ElementsMatch(t, []string{
		"a-2.0-py3-none-any.whl",
		"b-1.0-py3-none-any.whl",
		"services/api/flask-3.0.0-py3-none-any.whl",
	}, result.Wheels)
}

// TestFetchFailureIsNotFatal continues past a failing package and records it.
func TestFetchFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	d := &fakeDownloader{failures: map[string]bool{"broken": true}}
	delta := release.DependencyDelta{
		"svc": {{Name: "broken", Version: "1"}, {Name: "ok", Version: "2"}},
	}

	var rec release.Recorder

	result, err := New(d, 1, &rec).Fetch(context.Background(), delta, root, testTarget)
	require.NoError(t, err)
	require.True(t, result.Fetched)
	require.Equal(t, []string{"broken==1", "ok==2"}, d.calls)
	require.Len(t, multierr.Errors(result.Failures["svc"]), 1)
	require.Equal(t, 1, result.FailedPackages())
	require.Equal(t, 1, rec.Count(release.LevelWarn))
}

// TestFetchNothingDownloaded reports Fetched=false when every package fails.
func TestFetchNothingDownloaded(t *testing.T) {
	t.Parallel()

	d := &fakeDownloader{failures: map[string]bool{"x": true, "y": true}}
	delta := release.DependencyDelta{release.RootModule: {{Name: "x", Version: "1"}, {Name: "y", Version: "1"}}}

	var rec release.Recorder

	result, err := New(d, 1, &rec).Fetch(context.Background(), delta, t.TempDir(), testTarget)
	require.NoError(t, err)
	require.False(t, result.Fetched)
	require.Len(t, multierr.Errors(result.Failures[release.RootModule]), 2)
	require.Equal(t, 2, result.FailedPackages())
	require.Equal(t, 3, rec.Count(release.LevelWarn))
}

// TestFetchHonoursConcurrency never runs more modules at once than allowed.
func TestFetchHonoursConcurrency(t *testing.T) {
	t.Parallel()

	d := &fakeDownloader{delay: 20 * time.Millisecond}
	delta := release.DependencyDelta{}

	for _, module := range []string{"a", "b", "c", "d", "e", "f"} {
		delta.Add(module, release.Pin{Name: module, Version: "1"})
	}

	result, err := New(d, 2, nil).Fetch(context.Background(), delta, t.TempDir(), testTarget)
	require.NoError(t, err)
	require.Len(t, result.Wheels, 6)
	require.LessOrEqual(t, d.peak.Load(), int32(2))
}

// TestFetchCancelled aborts with the context error.
func TestFetchCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	delta := release.DependencyDelta{"m": {{Name: "a", Version: "1"}}}

	_, err := New(&fakeDownloader{}, 1, nil).Fetch(ctx, delta, t.TempDir(), testTarget)
	require.ErrorIs(t, err, context.Canceled)
}
