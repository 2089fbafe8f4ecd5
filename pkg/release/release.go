/*
Package release prunes old deployment release directories, keeping the most
recent N and whichever one the "current" symlink physically resolves to,
regardless of where it falls in that ordering.
*/
package release

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/irgordon/kari/pkg/agenterr"
	"github.com/irgordon/kari/pkg/log"
)

// timestampLen is the fixed width of a release directory name: YYYYMMDDHHMMSS.
const timestampLen = 14

// Pruner deletes old release directories under an app's releases/ tree.
type Pruner struct{}

// New returns a Pruner.
func New() *Pruner { return &Pruner{} }

// PruneOldReleases keeps the keepCount most recent valid release directories
// under releasesDir, plus the release "current" physically resolves to even
// if it falls outside that window, and deletes the rest. It returns the
// number of directories actually deleted. Individual deletion failures are
// logged and skipped rather than aborting the run.
func (p *Pruner) PruneOldReleases(releasesDir string, keepCount int) (int, error) {
	if _, err := os.Stat(releasesDir); os.IsNotExist(err) {
		return 0, nil
	}

	baseDir := filepath.Dir(releasesDir)
	currentSymlink := filepath.Join(baseDir, "current")
	activeTarget, err := filepath.EvalSymlinks(currentSymlink)
	if err != nil {
		activeTarget = "/dev/null/invalid"
	}

	entries, err := os.ReadDir(releasesDir)
	if err != nil {
		return 0, agenterr.Io(err, "failed to read releases directory %s", releasesDir)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if isValidTimestamp(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	total := len(names)
	if total <= keepCount {
		return 0, nil
	}

	pruneCount := total - keepCount
	candidates := names[:pruneCount]

	deleted := 0
	for _, name := range candidates {
		path := filepath.Join(releasesDir, name)

		targetCanonical, err := filepath.EvalSymlinks(path)
		if err != nil {
			targetCanonical = path
		}

		if targetCanonical == activeTarget {
			log.Logger.Info().Str("path", path).Msg("skipping active release directory from pruning")
			continue
		}

		if err := os.RemoveAll(path); err != nil {
			log.Logger.Warn().Str("path", path).Err(err).Msg("failed to delete old release")
			continue
		}
		deleted++
	}

	return deleted, nil
}

func isValidTimestamp(name string) bool {
	if len(name) != timestampLen {
		return false
	}
	for _, c := range name {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
