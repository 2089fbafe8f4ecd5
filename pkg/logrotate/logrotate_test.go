package logrotate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureRendersReloadCommand(t *testing.T) {
	dir := t.TempDir()
	m := New(dir, "systemctl reload nginx")

	err := m.Configure("example.com", "/var/log/kari/example.com")
	require.NoError(t, err)

	path := filepath.Join(dir, "kari-example.com")
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	body := string(content)
	assert.Contains(t, body, "systemctl reload nginx")
	assert.Contains(t, body, "rotate 14")
	assert.Contains(t, body, "create 640 root root")
	assert.NotContains(t, body, "nginx.pid")
}

func TestConfigureRejectsInvalidDomain(t *testing.T) {
	m := New(t.TempDir(), "systemctl reload nginx")
	err := m.Configure("../etc", "/var/log/kari/x")
	assert.Error(t, err)
}

func TestConfigureRejectsDirectiveInjection(t *testing.T) {
	m := New(t.TempDir(), "systemctl reload nginx")
	err := m.Configure("example.com", "/var/log/kari/x\n}\nevil {")
	assert.Error(t, err)
}
