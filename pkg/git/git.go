/*
Package git clones a remote repository shallowly, optionally authenticating
with an ephemeral SSH key the caller owns. The key, if any, touches disk for
the minimum time necessary and is zero-overwritten before its temp file is
unlinked, regardless of clone outcome.
*/
package git

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"

	"github.com/irgordon/kari/pkg/agenterr"
	"github.com/irgordon/kari/pkg/secret"
)

var credentialScrubber = regexp.MustCompile(`(://|git@)([^@]+)@`)

// Fetcher clones repositories.
type Fetcher struct{}

// New returns a Fetcher.
func New() *Fetcher { return &Fetcher{} }

// CloneRepo clones repoURL at branch into targetDir. If sshKey is non-nil,
// its bytes are written to a 0o600 temp file exactly once, the clone runs
// with GIT_SSH_COMMAND pointed at it, and the temp file is zero-overwritten
// and unlinked afterward regardless of outcome.
func (f *Fetcher) CloneRepo(ctx context.Context, repoURL, branch, targetDir string, sshKey *secret.Secret) error {
	if strings.HasPrefix(repoURL, "-") || strings.HasPrefix(branch, "-") {
		return agenterr.Security("suspicious git arguments detected")
	}

	gitSSHCmd := "ssh -o StrictHostKeyChecking=accept-new -o IdentitiesOnly=yes"

	var keyPath string
	if sshKey != nil {
		tmp, err := os.CreateTemp("", "kari-ssh-key-*")
		if err != nil {
			return agenterr.Io(err, "failed to create temp file for ssh key")
		}
		keyPath = tmp.Name()
		defer scrubAndUnlink(keyPath, tmp)

		if err := tmp.Chmod(0o600); err != nil {
			return agenterr.Io(err, "failed to chmod ssh key temp file")
		}

		writeErr := sshKey.Use(func(b []byte) error {
			_, err := tmp.Write(b)
			return err
		})
		sshKey.Destroy()
		if writeErr != nil {
			return agenterr.Io(writeErr, "failed to write ssh key")
		}
		if err := tmp.Sync(); err != nil {
			return agenterr.Io(err, "failed to sync ssh key temp file")
		}

		gitSSHCmd = fmt.Sprintf("%s -i '%s'", gitSSHCmd, keyPath)
	}

	args := []string{
		"-c", "core.hooksPath=/dev/null",
		"clone",
		"--depth", "1",
		"--branch", branch,
		"--recurse-submodules",
		"--shallow-submodules",
		"--",
		repoURL,
		targetDir,
	}

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Env = append(os.Environ(),
		"GIT_TERMINAL_PROMPT=0",
		"GIT_SSH_COMMAND="+gitSSHCmd,
	)

	out, err := cmd.CombinedOutput()
	if err != nil {
		sanitized := scrubCredentials(strings.ReplaceAll(string(out), repoURL, "[REPO_URL]"))
		return agenterr.Exit("git clone failed: %s", sanitized)
	}
	return nil
}

// scrubAndUnlink zero-overwrites the key file's first 4 KiB, syncs, closes,
// and unlinks it. Called via defer so it runs regardless of clone outcome.
func scrubAndUnlink(path string, f *os.File) {
	defer os.Remove(path)
	defer f.Close()

	if _, err := f.Seek(0, 0); err != nil {
		return
	}
	zeroes := make([]byte, 4096)
	_, _ = f.Write(zeroes)
	_ = f.Sync()
}

func scrubCredentials(s string) string {
	return credentialScrubber.ReplaceAllString(s, "$1[REDACTED]@")
}
