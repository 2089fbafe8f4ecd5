package supervisor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irgordon/kari/pkg/types"
)

func TestWriteUnitRendersSecurityDirectives(t *testing.T) {
	dir := t.TempDir()
	m := New(dir)

	err := m.WriteUnit(types.ServiceUnitDescriptor{
		ServiceName:      "kari-example.com",
		RunAsUser:        "kari-app-a1",
		WorkingDirectory: "/var/www/kari/example.com/current",
		StartCommand:     "/usr/bin/true",
		Env:              map[string]string{"FOO": "bar"},
	})
	require.NoError(t, err)

	path := filepath.Join(dir, "kari-example.com.service")
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	body := string(content)

	for _, want := range []string{
		"NoNewPrivileges=true",
		"ProtectSystem=full",
		"PrivateTmp=true",
		"ProtectHome=true",
		"ProtectKernelTunables=true",
		"ProtectKernelModules=true",
		"ProtectControlGroups=true",
		"PrivateDevices=true",
		"RestrictAddressFamilies=AF_INET AF_INET6 AF_UNIX",
		"CPUAccounting=true",
		"MemoryAccounting=true",
		"TasksMax=512",
		`Environment="FOO=bar"`,
	} {
		assert.Contains(t, body, want)
	}
}

func TestWriteUnitRejectsInvalidServiceName(t *testing.T) {
	m := New(t.TempDir())
	err := m.WriteUnit(types.ServiceUnitDescriptor{ServiceName: "../../etc/passwd"})
	assert.Error(t, err)
}

func TestWriteUnitSanitizesEnvInjection(t *testing.T) {
	dir := t.TempDir()
	m := New(dir)

	err := m.WriteUnit(types.ServiceUnitDescriptor{
		ServiceName: "kari-test",
		RunAsUser:   "kari-app-a1",
		Env: map[string]string{
			"EVIL": "value\nExecStart=/bin/rm -rf /",
		},
	})
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(dir, "kari-test.service"))
	require.NoError(t, err)
	assert.NotContains(t, string(content), "value\nExecStart")
}

func TestRemoveUnitMissingIsNotError(t *testing.T) {
	m := New(t.TempDir())
	err := m.RemoveUnit("does-not-exist")
	assert.NoError(t, err)
}

func TestDispatchRejectsInvalidServiceName(t *testing.T) {
	m := New(t.TempDir())
	_, err := m.Dispatch("bad name", types.ActionStart)
	assert.Error(t, err)
}
