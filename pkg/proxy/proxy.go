/*
Package proxy manages reverse-proxy virtual hosts for an external nginx or
apache process. The agent never terminates HTTP traffic itself: it renders
config files, symlinks them into the server's enabled-sites directory, and
reloads the server — always after a config test that must pass first.
*/
package proxy

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"

	"github.com/irgordon/kari/pkg/agenterr"
)

var domainPattern = regexp.MustCompile(`^[A-Za-z0-9.-]+$`)

// Manager renders vhost configs and drives the external proxy server.
type Manager interface {
	CreateVhost(domain string, targetPort uint16) error
	RemoveVhost(domain string) error
}

// Discover probes nginxConfDir (KARI_PROXY_CONF_DIR, defaulted by
// pkg/config) first, falling back to the well-known apache directory, and
// returns the matching Manager. Absence of both is a fatal startup error,
// per the boundary server's startup contract.
func Discover(nginxConfDir string) (Manager, error) {
	if _, err := os.Stat(nginxConfDir); err == nil {
		enabledDir := strings.Replace(nginxConfDir, "sites-available", "sites-enabled", 1)
		return NewNginx(nginxConfDir, enabledDir), nil
	}
	if _, err := os.Stat("/etc/apache2/sites-available"); err == nil {
		return NewApache("/etc/apache2/sites-available", "/etc/apache2/sites-enabled"), nil
	}
	return nil, agenterr.InvalidArg("no supported reverse proxy found (checked %s, apache)", nginxConfDir)
}

func validateDomain(domain string) error {
	if domain == "" || !domainPattern.MatchString(domain) {
		return agenterr.InvalidArg("invalid domain name %q", domain)
	}
	return nil
}

func writeAndEnable(configPath, enabledLink, content string) error {
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		return agenterr.Io(err, "failed to write vhost config %s", configPath)
	}
	if _, err := os.Lstat(enabledLink); os.IsNotExist(err) {
		if err := os.Symlink(configPath, enabledLink); err != nil {
			return agenterr.Io(err, "failed to symlink %s", enabledLink)
		}
	}
	return nil
}

func removeQuietly(path string) {
	_ = os.Remove(path)
}

// --- nginx ---

const nginxTemplate = `server {
    listen 80;
    server_name {{.Domain}};

    location / {
        proxy_pass http://127.0.0.1:{{.Port}}/;
        proxy_set_header Host $host;
        proxy_set_header X-Real-IP $remote_addr;
        proxy_set_header X-Forwarded-For $proxy_add_x_forwarded_for;
        proxy_set_header X-Forwarded-Proto $scheme;
    }

    add_header X-Content-Type-Options "nosniff" always;
    add_header X-Frame-Options "SAMEORIGIN" always;
}
`

var nginxTmpl = template.Must(template.New("nginx-vhost").Parse(nginxTemplate))

// Nginx is a Manager backed by an external nginx process.
type Nginx struct {
	SitesAvailable string
	SitesEnabled   string
}

// NewNginx returns an Nginx manager rooted at the given directories.
func NewNginx(sitesAvailable, sitesEnabled string) *Nginx {
	return &Nginx{SitesAvailable: sitesAvailable, SitesEnabled: sitesEnabled}
}

func (n *Nginx) paths(domain string) (configPath, enabledLink string) {
	configPath = filepath.Join(n.SitesAvailable, domain+".conf")
	enabledLink = filepath.Join(n.SitesEnabled, domain+".conf")
	return
}

// CreateVhost renders, enables, and (test-then-)reloads a vhost for domain.
func (n *Nginx) CreateVhost(domain string, targetPort uint16) error {
	if err := validateDomain(domain); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := nginxTmpl.Execute(&buf, struct {
		Domain string
		Port   uint16
	}{domain, targetPort}); err != nil {
		return agenterr.Spawn(err, "failed to render nginx vhost template")
	}

	configPath, enabledLink := n.paths(domain)
	if err := writeAndEnable(configPath, enabledLink, buf.String()); err != nil {
		return err
	}
	return n.testAndReload()
}

// RemoveVhost deletes both vhost files (missing is not an error), then
// test-and-reloads.
func (n *Nginx) RemoveVhost(domain string) error {
	if err := validateDomain(domain); err != nil {
		return err
	}
	configPath, enabledLink := n.paths(domain)
	removeQuietly(enabledLink)
	removeQuietly(configPath)
	return n.testAndReload()
}

func (n *Nginx) testAndReload() error {
	if err := exec.Command("nginx", "-t").Run(); err != nil {
		return agenterr.Exit("nginx config test failed, not reloading: %v", err)
	}
	if err := exec.Command("systemctl", "reload", "nginx").Run(); err != nil {
		return agenterr.Exit("failed to reload nginx: %v", err)
	}
	return nil
}

// --- apache ---

const apacheTemplate = `<VirtualHost *:80>
    ServerName {{.Domain}}

    ProxyPreserveHost On
    ProxyPass / http://127.0.0.1:{{.Port}}/
    ProxyPassReverse / http://127.0.0.1:{{.Port}}/

    Header always set X-Content-Type-Options "nosniff"
    Header always set X-Frame-Options "SAMEORIGIN"

    ErrorLog ${APACHE_LOG_DIR}/{{.Domain}}_error.log
    CustomLog ${APACHE_LOG_DIR}/{{.Domain}}_access.log combined
</VirtualHost>
`

var apacheTmpl = template.Must(template.New("apache-vhost").Parse(apacheTemplate))

// Apache is a Manager backed by an external apache2 process.
type Apache struct {
	SitesAvailable string
	SitesEnabled   string
}

// NewApache returns an Apache manager rooted at the given directories.
func NewApache(sitesAvailable, sitesEnabled string) *Apache {
	return &Apache{SitesAvailable: sitesAvailable, SitesEnabled: sitesEnabled}
}

func (a *Apache) paths(domain string) (configPath, enabledLink string) {
	configPath = filepath.Join(a.SitesAvailable, domain+".conf")
	enabledLink = filepath.Join(a.SitesEnabled, domain+".conf")
	return
}

// CreateVhost renders, enables, and (test-then-)reloads a vhost for domain.
func (a *Apache) CreateVhost(domain string, targetPort uint16) error {
	if err := validateDomain(domain); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := apacheTmpl.Execute(&buf, struct {
		Domain string
		Port   uint16
	}{domain, targetPort}); err != nil {
		return agenterr.Spawn(err, "failed to render apache vhost template")
	}

	configPath, enabledLink := a.paths(domain)
	if err := writeAndEnable(configPath, enabledLink, buf.String()); err != nil {
		return err
	}
	return a.testAndReload()
}

// RemoveVhost deletes both vhost files (missing is not an error), then
// test-and-reloads.
func (a *Apache) RemoveVhost(domain string) error {
	if err := validateDomain(domain); err != nil {
		return err
	}
	configPath, enabledLink := a.paths(domain)
	removeQuietly(enabledLink)
	removeQuietly(configPath)
	return a.testAndReload()
}

func (a *Apache) testAndReload() error {
	if err := exec.Command("apache2ctl", "configtest").Run(); err != nil {
		return agenterr.Exit("apache config test failed, not reloading: %v", err)
	}
	if err := exec.Command("systemctl", "reload", "apache2").Run(); err != nil {
		return agenterr.Exit("failed to reload apache2: %v", err)
	}
	return nil
}
