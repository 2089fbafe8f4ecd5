package boundary

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
)

func TestBindSocketSetsModeAndOwnership(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "agent.sock")

	l, err := BindSocket(path, os.Getuid(), -1)
	require.NoError(t, err)
	defer l.Close()

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o660), info.Mode().Perm())
	assert.Equal(t, uint32(os.Getuid()), info.Sys().(*syscall.Stat_t).Uid)
}

func TestBindSocketRemovesStaleSocket(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agent.sock")

	first, err := net.Listen("unix", path)
	require.NoError(t, err)
	first.Close()

	l, err := BindSocket(path, os.Getuid(), -1)
	require.NoError(t, err)
	defer l.Close()
}

func TestUnlinkMissingSocketIsNotAnError(t *testing.T) {
	err := Unlink(filepath.Join(t.TempDir(), "missing.sock"))
	assert.NoError(t, err)
}

func TestPeerCredentialsAcceptsOwnUID(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agent.sock")

	l, err := net.Listen("unix", path)
	require.NoError(t, err)
	defer l.Close()

	creds := NewPeerCredentials(uint32(os.Getuid()))

	client, err := net.Dial("unix", path)
	require.NoError(t, err)
	defer client.Close()

	server, err := l.Accept()
	require.NoError(t, err)
	defer server.Close()

	_, info, err := creds.ServerHandshake(server)
	require.NoError(t, err)
	assert.Equal(t, uint32(os.Getuid()), info.(PeerInfo).UID)
}

func TestPeerCredentialsRejectsMismatchedUID(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agent.sock")

	l, err := net.Listen("unix", path)
	require.NoError(t, err)
	defer l.Close()

	creds := NewPeerCredentials(uint32(os.Getuid()) + 1)

	client, err := net.Dial("unix", path)
	require.NoError(t, err)
	defer client.Close()

	server, err := l.Accept()
	require.NoError(t, err)
	defer server.Close()

	_, _, err = creds.ServerHandshake(server)
	assert.Error(t, err)
}

func TestServerGracefulStopUnlinksSocket(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agent.sock")

	s, err := New(path, os.Getuid(), -1, uint32(os.Getuid()), func(gs *grpc.Server) {})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not return promptly after shutdown")
	}

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}
