package release

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkRelease(t *testing.T, releasesDir, name string) string {
	t.Helper()
	path := filepath.Join(releasesDir, name)
	require.NoError(t, os.MkdirAll(path, 0o755))
	return path
}

func TestPruneOldReleasesMissingDirIsNoop(t *testing.T) {
	p := New()
	n, err := p.PruneOldReleases(filepath.Join(t.TempDir(), "missing"), 3)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestPruneOldReleasesKeepsMostRecentN(t *testing.T) {
	base := t.TempDir()
	releasesDir := filepath.Join(base, "releases")
	require.NoError(t, os.MkdirAll(releasesDir, 0o755))

	names := []string{
		"20260101000000",
		"20260102000000",
		"20260103000000",
		"20260104000000",
	}
	for _, n := range names {
		mkRelease(t, releasesDir, n)
	}

	p := New()
	deleted, err := p.PruneOldReleases(releasesDir, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	_, err = os.Stat(filepath.Join(releasesDir, names[0]))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(releasesDir, names[3]))
	assert.NoError(t, err)
}

func TestPruneOldReleasesSkipsActiveRelease(t *testing.T) {
	base := t.TempDir()
	releasesDir := filepath.Join(base, "releases")
	require.NoError(t, os.MkdirAll(releasesDir, 0o755))

	oldest := mkRelease(t, releasesDir, "20260101000000")
	mkRelease(t, releasesDir, "20260102000000")
	mkRelease(t, releasesDir, "20260103000000")

	require.NoError(t, os.Symlink(oldest, filepath.Join(base, "current")))

	p := New()
	deleted, err := p.PruneOldReleases(releasesDir, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	_, err = os.Stat(oldest)
	assert.NoError(t, err, "active release must survive pruning even though it is the oldest")
}

func TestPruneOldReleasesIgnoresNonTimestampDirs(t *testing.T) {
	base := t.TempDir()
	releasesDir := filepath.Join(base, "releases")
	require.NoError(t, os.MkdirAll(releasesDir, 0o755))

	mkRelease(t, releasesDir, "not-a-timestamp")
	mkRelease(t, releasesDir, "20260101000000")
	mkRelease(t, releasesDir, "20260102000000")
	mkRelease(t, releasesDir, "20260103000000")

	p := New()
	deleted, err := p.PruneOldReleases(releasesDir, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	_, err = os.Stat(filepath.Join(releasesDir, "not-a-timestamp"))
	assert.NoError(t, err)
}
