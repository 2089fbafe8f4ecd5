/*
Package jail provisions the unprivileged Linux users that isolate each
deployment's build and runtime from every other deployment and from the
agent itself, and hardens the ownership/mode of the directories those users
are confined to.
*/
package jail

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"os/user"
	"path/filepath"
	"regexp"

	"github.com/irgordon/kari/pkg/agenterr"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9-]+$`)

// Manager provisions app users and hardens directories.
type Manager struct{}

// New returns a Manager.
func New() *Manager { return &Manager{} }

// ProvisionAppUser creates a system user with no login shell and no home.
// Idempotent: if the user already exists, it succeeds without modifying it.
func (m *Manager) ProvisionAppUser(username string) error {
	if !usernamePattern.MatchString(username) {
		return agenterr.InvalidArg("invalid username %q", username)
	}

	if _, err := user.Lookup(username); err == nil {
		return nil // already exists, idempotent success
	}

	cmd := exec.Command("useradd", "--system", "--shell", "/bin/false", username)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			return agenterr.Exit("failed to create user %s: %s", username, stderr.String())
		}
		return agenterr.Spawn(err, "failed to execute useradd")
	}
	return nil
}

// DeprovisionAppUser removes a system user created by ProvisionAppUser.
// Idempotent: a user that is already gone is a success, not an error.
func (m *Manager) DeprovisionAppUser(username string) error {
	if !usernamePattern.MatchString(username) {
		return agenterr.InvalidArg("invalid username %q", username)
	}

	if _, err := user.Lookup(username); err != nil {
		return nil // already gone, idempotent success
	}

	cmd := exec.Command("userdel", "--force", username)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			return agenterr.Exit("failed to delete user %s: %s", username, stderr.String())
		}
		return agenterr.Spawn(err, "failed to execute userdel")
	}
	return nil
}

// SecureDirectory ensures path exists, recursively chowns it to
// username:username, and chmods its top level to 0750. Idempotent.
func (m *Manager) SecureDirectory(path, username string) error {
	if !usernamePattern.MatchString(username) {
		return agenterr.InvalidArg("invalid username %q", username)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(path, 0o750); err != nil {
			return agenterr.Io(err, "failed to create directory %s", path)
		}
	}

	u, err := user.Lookup(username)
	if err != nil {
		return agenterr.InvalidArg("user %s does not exist", username)
	}
	uid, gid, err := parseIDs(u)
	if err != nil {
		return agenterr.Spawn(err, "failed to parse uid/gid for %s", username)
	}

	walkErr := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		return os.Chown(p, uid, gid)
	})
	if walkErr != nil {
		return agenterr.Io(walkErr, "failed to chown %s recursively", path)
	}

	if err := os.Chmod(path, 0o750); err != nil {
		return agenterr.Io(err, "failed to chmod %s", path)
	}
	return nil
}

func parseIDs(u *user.User) (uid, gid int, err error) {
	if _, err = fmt.Sscanf(u.Uid, "%d", &uid); err != nil {
		return 0, 0, err
	}
	if _, err = fmt.Sscanf(u.Gid, "%d", &gid); err != nil {
		return 0, 0, err
	}
	return uid, gid, nil
}
