/*
Package boundary owns the agent's one trust boundary: the Unix domain socket
the Brain process connects to. It binds the socket at the configured mode,
hands kernel-verified peer credentials to gRPC's transport-credentials
layer, and unlinks the socket on shutdown.
*/
package boundary

import (
	"net"
	"os"
	"path/filepath"

	"github.com/irgordon/kari/pkg/agenterr"
)

// BindSocket creates the socket's parent directory if necessary, removes any
// stale socket file left by a prior crashed run, binds a new Unix listener,
// sets its mode to 0o660, and then applies ownership (uid, gid) with os.Chown,
// since net.Listen has no uid/gid knob of its own; gid of -1 leaves the group
// unchanged.
func BindSocket(path string, uid, gid int) (net.Listener, error) {
	dir := filepath.Dir(path)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, agenterr.Io(err, "failed to create socket directory %s", dir)
		}
	}

	if _, err := os.Stat(path); err == nil {
		if err := os.Remove(path); err != nil {
			return nil, agenterr.Io(err, "failed to remove stale socket %s", path)
		}
	}

	l, err := net.Listen("unix", path)
	if err != nil {
		return nil, agenterr.Spawn(err, "failed to bind socket %s", path)
	}

	if err := os.Chmod(path, 0o660); err != nil {
		l.Close()
		return nil, agenterr.Io(err, "failed to chmod socket %s", path)
	}

	if err := os.Chown(path, uid, gid); err != nil {
		l.Close()
		return nil, agenterr.Io(err, "failed to chown socket %s", path)
	}

	return l, nil
}

// Unlink removes the socket file, tolerating it already being gone.
func Unlink(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return agenterr.Io(err, "failed to unlink socket %s", path)
	}
	return nil
}
