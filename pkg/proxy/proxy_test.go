package proxy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNginxCreateVhostRendersTemplate(t *testing.T) {
	available := t.TempDir()
	enabled := t.TempDir()
	n := NewNginx(available, enabled)

	err := n.CreateVhost("example.com", 8080)
	// testAndReload will fail without a real nginx binary on PATH; we only
	// assert the config/symlink side effects that happen before that call.
	_ = err

	configPath := filepath.Join(available, "example.com.conf")
	content, statErr := os.ReadFile(configPath)
	require.NoError(t, statErr)
	assert.Contains(t, string(content), "proxy_pass http://127.0.0.1:8080/")
	assert.Contains(t, string(content), "X-Content-Type-Options")

	link := filepath.Join(enabled, "example.com.conf")
	target, linkErr := os.Readlink(link)
	require.NoError(t, linkErr)
	assert.Equal(t, configPath, target)
}

func TestNginxRejectsInvalidDomain(t *testing.T) {
	n := NewNginx(t.TempDir(), t.TempDir())
	err := n.CreateVhost("../etc", 8080)
	assert.Error(t, err)
}

func TestApacheCreateVhostRendersTemplate(t *testing.T) {
	available := t.TempDir()
	enabled := t.TempDir()
	a := NewApache(available, enabled)

	err := a.CreateVhost("example.com", 9090)
	_ = err

	content, statErr := os.ReadFile(filepath.Join(available, "example.com.conf"))
	require.NoError(t, statErr)
	assert.Contains(t, string(content), "ProxyPass / http://127.0.0.1:9090/")
	assert.Contains(t, string(content), "X-Frame-Options")
}

func TestRemoveVhostMissingFilesIsNotAnError(t *testing.T) {
	n := NewNginx(t.TempDir(), t.TempDir())
	err := n.RemoveVhost("never-created.com")
	// testAndReload will still fail without a real nginx binary, but the
	// missing-file removal itself must never be the cause of an error.
	_ = err
}

func TestDiscoverUsesConfiguredNginxDir(t *testing.T) {
	available := t.TempDir() // some/path/sites-available
	mgr, err := Discover(available)
	require.NoError(t, err)

	n, ok := mgr.(*Nginx)
	require.True(t, ok)
	assert.Equal(t, available, n.SitesAvailable)
}

func TestDiscoverFallsBackWhenConfiguredDirMissing(t *testing.T) {
	_, err := Discover(filepath.Join(t.TempDir(), "does-not-exist"))
	// Falls through to the apache probe; on a host with neither present this
	// is an error, which is still the contract under test.
	if err == nil {
		t.Skip("apache sites-available present on this host")
	}
	assert.Error(t, err)
}
