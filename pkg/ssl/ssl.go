/*
Package ssl installs Brain-supplied certificate material onto disk. The
Muscle never issues certificates; it only writes the PEMs it is handed, with
the private key opened at inception-time permissions so there is no window
in which it exists world-readable.
*/
package ssl

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/irgordon/kari/pkg/agenterr"
	"github.com/irgordon/kari/pkg/types"
)

var domainPattern = regexp.MustCompile(`^[A-Za-z0-9.-]+$`)

// Manager installs certificates under StorageDir (typically KARI_SSL_DIR).
type Manager struct {
	StorageDir string
}

// New returns a Manager.
func New(storageDir string) *Manager {
	return &Manager{StorageDir: storageDir}
}

// InstallCertificate validates payload.Domain, creates its storage
// directory, writes fullchain.pem at 0o644, and writes privkey.pem with
// create+truncate+write flags and mode 0o600 in the same syscall — there is
// no intermediate state where the key is readable by anyone but its owner.
func (m *Manager) InstallCertificate(payload types.SSLPayload) error {
	if payload.Domain == "" || strings.Contains(payload.Domain, "..") ||
		strings.Contains(payload.Domain, "/") || !domainPattern.MatchString(payload.Domain) {
		return agenterr.InvalidArg("invalid domain name %q", payload.Domain)
	}

	dir := filepath.Join(m.StorageDir, payload.Domain)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return agenterr.Io(err, "failed to create ssl directory %s", dir)
	}
	if err := os.Chmod(dir, 0o750); err != nil {
		return agenterr.Io(err, "failed to chmod ssl directory %s", dir)
	}

	fullchainPath := filepath.Join(dir, "fullchain.pem")
	if err := os.WriteFile(fullchainPath, []byte(payload.FullChain), 0o644); err != nil {
		return agenterr.Io(err, "failed to write fullchain.pem")
	}
	if err := os.Chmod(fullchainPath, 0o644); err != nil {
		return agenterr.Io(err, "failed to chmod fullchain.pem")
	}

	privkeyPath := filepath.Join(dir, "privkey.pem")
	fd, err := unix.Open(privkeyPath, unix.O_CREAT|unix.O_TRUNC|unix.O_WRONLY, 0o600)
	if err != nil {
		return agenterr.Io(err, "failed to open privkey.pem at inception-time permissions")
	}

	f := os.NewFile(uintptr(fd), privkeyPath)
	writeErr := payload.PrivateKey.Use(func(b []byte) error {
		_, err := f.Write(b)
		return err
	})
	syncErr := f.Sync()
	closeErr := f.Close()

	if writeErr != nil || syncErr != nil || closeErr != nil {
		os.Remove(privkeyPath)
		if writeErr != nil {
			return agenterr.Io(writeErr, "failed to write privkey.pem")
		}
		if syncErr != nil {
			return agenterr.Io(syncErr, "failed to sync privkey.pem")
		}
		return agenterr.Io(closeErr, "failed to close privkey.pem")
	}

	return nil
}
