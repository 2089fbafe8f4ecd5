/*
Package logrotate writes logrotate stanzas for deployed domains. Unlike the
original draft this system is modeled on, the postrotate hook does not signal
a hardcoded PID file: it invokes the supervisor's own reload command, so the
agent never hardcodes a path that belongs to whichever proxy implementation
happens to be installed.
*/
package logrotate

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"

	"github.com/irgordon/kari/pkg/agenterr"
)

var domainPattern = regexp.MustCompile(`^[A-Za-z0-9.-]+$`)

const stanzaTemplate = `{{.LogDir}}/*.log {
    daily
    missingok
    rotate 14
    compress
    delaycompress
    notifempty
    create 640 root root
    sharedscripts
    postrotate
        {{.ReloadCommand}}
    endscript
}
`

var stanzaTmpl = template.Must(template.New("logrotate").Parse(stanzaTemplate))

// Manager writes logrotate stanzas under Dir (typically KARI_LOGROTATE_DIR).
type Manager struct {
	Dir string
	// ReloadCommand is run from the postrotate hook, e.g.
	// "systemctl reload nginx" — supplied by whichever proxy manager was
	// discovered at startup, never a hardcoded PID file.
	ReloadCommand string
}

// New returns a Manager.
func New(dir, reloadCommand string) *Manager {
	return &Manager{Dir: dir, ReloadCommand: reloadCommand}
}

// Configure validates domain and logDir, then renders and writes the
// logrotate stanza at mode 0o644.
func (m *Manager) Configure(domain, logDir string) error {
	if !domainPattern.MatchString(domain) {
		return agenterr.InvalidArg("invalid domain name %q", domain)
	}
	if strings.ContainsAny(logDir, "\n{};") {
		return agenterr.Security("log_dir contains forbidden characters: %q", logDir)
	}

	var buf bytes.Buffer
	if err := stanzaTmpl.Execute(&buf, struct {
		LogDir        string
		ReloadCommand string
	}{logDir, m.ReloadCommand}); err != nil {
		return agenterr.Spawn(err, "failed to render logrotate template")
	}

	path := filepath.Join(m.Dir, "kari-"+domain)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return agenterr.Io(err, "failed to write logrotate config %s", path)
	}
	if err := os.Chmod(path, 0o644); err != nil {
		return agenterr.Io(err, "failed to chmod logrotate config %s", path)
	}
	return nil
}
