/*
Package supervisor models the host's systemd-equivalent service manager: it
renders ".service" unit files for deployments and drives them through
systemctl-style start/stop/restart/reload/enable operations.
*/
package supervisor

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"

	"github.com/irgordon/kari/pkg/agenterr"
	"github.com/irgordon/kari/pkg/types"
)

var serviceNamePattern = regexp.MustCompile(`^[A-Za-z0-9.@-]+$`)

const unitTemplate = `[Unit]
Description=Kari-managed service {{.ServiceName}}
After=network.target

[Service]
Type=simple
User={{.RunAsUser}}
Group={{.RunAsUser}}
WorkingDirectory={{.WorkingDirectory}}
ExecStart={{.StartCommand}}
{{- range $k, $v := .Env}}
Environment="{{$k}}={{$v}}"
{{- end}}
CPUAccounting=true
CPUQuota=100%
MemoryAccounting=true
MemoryMax=512M
TasksMax=512
NoNewPrivileges=true
ProtectSystem=full
PrivateTmp=true
ProtectHome=true
ProtectKernelTunables=true
ProtectKernelModules=true
ProtectControlGroups=true
PrivateDevices=true
RestrictAddressFamilies=AF_INET AF_INET6 AF_UNIX

[Install]
WantedBy=multi-user.target
`

var unitTmpl = template.Must(template.New("unit").Parse(unitTemplate))

// Manager writes unit files under UnitDir and drives systemctl.
type Manager struct {
	UnitDir string
}

// New returns a Manager rooted at unitDir (typically KARI_SYSTEMD_DIR).
func New(unitDir string) *Manager {
	return &Manager{UnitDir: unitDir}
}

// WriteUnit renders and writes a unit file for desc, sanitizing environment
// keys/values so a value containing a newline cannot introduce a new
// directive. The file is set to mode 0o644 via a direct syscall, never by
// forking a chmod child.
func (m *Manager) WriteUnit(desc types.ServiceUnitDescriptor) error {
	if !serviceNamePattern.MatchString(desc.ServiceName) {
		return agenterr.InvalidArg("invalid service name %q", desc.ServiceName)
	}

	sanitizedEnv := make(map[string]string, len(desc.Env))
	for k, v := range desc.Env {
		sanitizedEnv[sanitizeEnvField(k)] = sanitizeEnvField(v)
	}

	rendered := types.ServiceUnitDescriptor{
		ServiceName:      desc.ServiceName,
		RunAsUser:        desc.RunAsUser,
		WorkingDirectory: desc.WorkingDirectory,
		StartCommand:     desc.StartCommand,
		Env:              sanitizedEnv,
	}

	var buf bytes.Buffer
	if err := unitTmpl.Execute(&buf, struct {
		ServiceName      string
		RunAsUser        string
		WorkingDirectory string
		StartCommand     string
		Env              map[string]string
	}{rendered.ServiceName, rendered.RunAsUser, rendered.WorkingDirectory, rendered.StartCommand, rendered.Env}); err != nil {
		return agenterr.Spawn(err, "failed to render unit template")
	}

	path := filepath.Join(m.UnitDir, desc.ServiceName+".service")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return agenterr.Io(err, "failed to write unit file %s", path)
	}
	if err := os.Chmod(path, 0o644); err != nil {
		return agenterr.Io(err, "failed to chmod unit file %s", path)
	}
	return nil
}

// RemoveUnit deletes a unit file. Missing is not an error.
func (m *Manager) RemoveUnit(serviceName string) error {
	path := filepath.Join(m.UnitDir, serviceName+".service")
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return agenterr.Io(err, "failed to remove unit file %s", path)
	}
	return nil
}

// sanitizeEnvField strips newlines and escapes double quotes, so a value
// cannot inject a new systemd directive.
func sanitizeEnvField(s string) string {
	s = strings.ReplaceAll(s, "\n", "")
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}

func (m *Manager) run(args ...string) error {
	cmd := exec.Command("systemctl", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			return agenterr.Exit("systemctl %s: %s", strings.Join(args, " "), strings.TrimSpace(stderr.String()))
		}
		return agenterr.Spawn(err, "failed to execute systemctl")
	}
	return nil
}

// Start starts a service.
func (m *Manager) Start(name string) error { return m.run("start", name) }

// Stop stops a service.
func (m *Manager) Stop(name string) error { return m.run("stop", name) }

// Restart restarts a service.
func (m *Manager) Restart(name string) error { return m.run("restart", name) }

// ReloadDaemon reloads systemd's unit file cache.
func (m *Manager) ReloadDaemon() error { return m.run("daemon-reload") }

// EnableAndStart enables a unit to start on boot and starts it now.
func (m *Manager) EnableAndStart(name string) error { return m.run("enable", "--now", name) }

// Dispatch translates a types.ServiceAction into the corresponding
// operation, returning a human-readable success message on success.
func (m *Manager) Dispatch(serviceName string, action types.ServiceAction) (string, error) {
	if !serviceNamePattern.MatchString(serviceName) {
		return "", agenterr.InvalidArg("invalid service name %q", serviceName)
	}

	switch action {
	case types.ActionStart:
		if err := m.Start(serviceName); err != nil {
			return "", err
		}
		return fmt.Sprintf("service %s started", serviceName), nil
	case types.ActionStop:
		if err := m.Stop(serviceName); err != nil {
			return "", err
		}
		return fmt.Sprintf("service %s stopped", serviceName), nil
	case types.ActionRestart:
		if err := m.Restart(serviceName); err != nil {
			return "", err
		}
		return fmt.Sprintf("service %s restarted", serviceName), nil
	case types.ActionReloadDaemon:
		if err := m.ReloadDaemon(); err != nil {
			return "", err
		}
		return "daemon reloaded", nil
	case types.ActionEnableAndStart:
		if err := m.EnableAndStart(serviceName); err != nil {
			return "", err
		}
		return fmt.Sprintf("service %s enabled and started", serviceName), nil
	default:
		return "", agenterr.InvalidArg("unknown service action %v", action)
	}
}
