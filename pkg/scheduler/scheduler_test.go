package scheduler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irgordon/kari/pkg/types"
)

func TestScheduleRejectsBadName(t *testing.T) {
	m := New(t.TempDir())
	err := m.Schedule(types.JobIntent{Name: "bad name", Schedule: "daily"})
	assert.Error(t, err)
}

func TestScheduleRejectsScheduleInjection(t *testing.T) {
	m := New(t.TempDir())
	err := m.Schedule(types.JobIntent{Name: "backup", Schedule: "daily\nExecStart=evil"})
	assert.Error(t, err)
}

func TestScheduleWritesUnitAndTimer(t *testing.T) {
	dir := t.TempDir()
	m := New(dir)

	err := m.Schedule(types.JobIntent{
		Name:       "backup",
		BinaryPath: "/usr/local/bin/backup.sh",
		Args:       []string{"--full"},
		Schedule:   "daily",
		RunAsUser:  "kari-app-a1",
	})
	// ReloadDaemon/EnableAndStart will fail in a test sandbox without
	// systemctl; we only assert the files were rendered before that point.
	_ = err

	svcPath := filepath.Join(dir, "kari-job-backup.service")
	timerPath := filepath.Join(dir, "kari-job-backup.timer")

	svcInfo, statErr := os.Stat(svcPath)
	require.NoError(t, statErr)
	assert.Equal(t, os.FileMode(0o644), svcInfo.Mode().Perm())

	timerInfo, statErr := os.Stat(timerPath)
	require.NoError(t, statErr)
	assert.Equal(t, os.FileMode(0o644), timerInfo.Mode().Perm())

	svcContent, _ := os.ReadFile(svcPath)
	assert.Contains(t, string(svcContent), `"--full"`)

	timerContent, _ := os.ReadFile(timerPath)
	assert.Contains(t, string(timerContent), "OnCalendar=daily")
}

func TestUnscheduleMissingIsNotError(t *testing.T) {
	m := New(t.TempDir())
	assert.NoError(t, m.Unschedule("does-not-exist"))
}
