/*
Package scheduler translates a JobIntent into a systemd-equivalent unit +
timer pair, the host-native analogue of a cron entry, and drives it through
the supervisor.
*/
package scheduler

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"

	"github.com/irgordon/kari/pkg/agenterr"
	"github.com/irgordon/kari/pkg/supervisor"
	"github.com/irgordon/kari/pkg/types"
)

var jobNamePattern = regexp.MustCompile(`^[A-Za-z0-9-]+$`)

const serviceTemplate = `[Unit]
Description=Kari scheduled job {{.Name}}

[Service]
Type=oneshot
User={{.RunAsUser}}
Group={{.RunAsUser}}
ExecStart={{.ExecStart}}
`

const timerTemplate = `[Unit]
Description=Timer for Kari scheduled job {{.Name}}

[Timer]
OnCalendar={{.Schedule}}
Persistent=true

[Install]
WantedBy=timers.target
`

var (
	serviceTmpl = template.Must(template.New("job-service").Parse(serviceTemplate))
	timerTmpl   = template.Must(template.New("job-timer").Parse(timerTemplate))
)

// Manager writes job unit/timer pairs under UnitDir and drives them through
// a supervisor.Manager rooted at the same directory.
type Manager struct {
	UnitDir    string
	Supervisor *supervisor.Manager
}

// New returns a Manager rooted at unitDir.
func New(unitDir string) *Manager {
	return &Manager{UnitDir: unitDir, Supervisor: supervisor.New(unitDir)}
}

// Schedule validates intent, renders its unit+timer pair, reloads the
// supervisor, and enables the timer immediately.
func (m *Manager) Schedule(intent types.JobIntent) error {
	if !jobNamePattern.MatchString(intent.Name) {
		return agenterr.InvalidArg("invalid job name %q", intent.Name)
	}
	if strings.ContainsAny(intent.Schedule, "\n=") {
		return agenterr.InvalidArg("schedule must not contain newline or '=': %q", intent.Schedule)
	}

	execStart := quoteArgs(append([]string{intent.BinaryPath}, intent.Args...))

	var svcBuf bytes.Buffer
	if err := serviceTmpl.Execute(&svcBuf, struct {
		Name      string
		RunAsUser string
		ExecStart string
	}{intent.Name, intent.RunAsUser, execStart}); err != nil {
		return agenterr.Spawn(err, "failed to render job service template")
	}

	var timerBuf bytes.Buffer
	if err := timerTmpl.Execute(&timerBuf, struct {
		Name     string
		Schedule string
	}{intent.Name, intent.Schedule}); err != nil {
		return agenterr.Spawn(err, "failed to render job timer template")
	}

	unitName := "kari-job-" + intent.Name
	servicePath := filepath.Join(m.UnitDir, unitName+".service")
	timerPath := filepath.Join(m.UnitDir, unitName+".timer")

	if err := os.WriteFile(servicePath, svcBuf.Bytes(), 0o644); err != nil {
		return agenterr.Io(err, "failed to write job service %s", servicePath)
	}
	if err := os.Chmod(servicePath, 0o644); err != nil {
		return agenterr.Io(err, "failed to chmod job service %s", servicePath)
	}
	if err := os.WriteFile(timerPath, timerBuf.Bytes(), 0o644); err != nil {
		return agenterr.Io(err, "failed to write job timer %s", timerPath)
	}
	if err := os.Chmod(timerPath, 0o644); err != nil {
		return agenterr.Io(err, "failed to chmod job timer %s", timerPath)
	}

	if err := m.Supervisor.ReloadDaemon(); err != nil {
		return err
	}
	return m.Supervisor.EnableAndStart(unitName + ".timer")
}

// Unschedule removes a job's unit+timer pair. Missing is not an error.
func (m *Manager) Unschedule(name string) error {
	unitName := "kari-job-" + name
	for _, suffix := range []string{".service", ".timer"} {
		path := filepath.Join(m.UnitDir, unitName+suffix)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return agenterr.Io(err, "failed to remove %s", path)
		}
	}
	return nil
}

// quoteArgs wraps each token in double quotes with inner quotes escaped, so
// that an argument containing whitespace or shell metacharacters cannot
// split into multiple ExecStart tokens.
func quoteArgs(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = fmt.Sprintf(`"%s"`, strings.ReplaceAll(a, `"`, `\"`))
	}
	return strings.Join(quoted, " ")
}
