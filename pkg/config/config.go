/*
Package config loads the agent's process-wide configuration from the
environment exactly once at startup. Every field is immutable after Load
returns; there is no hot-reload — a fresh process picks up new environment
values, the same way a value type would.
*/
package config

import (
	"fmt"
	"os"
	"strconv"
)

// AgentConfig holds every value the agent needs to operate, loaded from
// KARI_-prefixed environment variables.
type AgentConfig struct {
	// SocketPath is where the boundary server binds its local stream socket.
	SocketPath string

	// ExpectedPeerUID is the only non-root uid the boundary server accepts
	// connections from. Required; boot is fatal if it is missing or not
	// numeric.
	ExpectedPeerUID uint32

	// ExpectedPeerGID is optional. When unset (HasPeerGID false), the boundary server
	// leaves the socket's group ownership unchanged rather than guessing at
	// a gid — peer authentication itself is enforced by uid comparison at
	// accept time, not by the socket's filesystem group.
	ExpectedPeerGID uint32
	HasPeerGID      bool

	WebRoot       string
	SystemdDir    string
	LogrotateDir  string
	SSLStorageDir string
	ProxyConfDir  string
	MetricsAddr   string
}

// Load reads AgentConfig from the environment. It returns an error if
// KARI_API_UID is missing or not a valid uint32 (cmd/kari-agent then exits
// non-zero) — the deployment environment must explicitly state the uid of the
// Brain; there is no default that would let the agent boot unconfigured.
func Load() (*AgentConfig, error) {
	uidStr, ok := os.LookupEnv("KARI_API_UID")
	if !ok || uidStr == "" {
		return nil, fmt.Errorf("KARI_API_UID environment variable is strictly required")
	}
	uid, err := strconv.ParseUint(uidStr, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("KARI_API_UID must be a valid numeric user id: %w", err)
	}

	cfg := &AgentConfig{
		SocketPath:      envOr("KARI_SOCKET_PATH", "/var/run/kari/agent.sock"),
		ExpectedPeerUID: uint32(uid),
		WebRoot:         envOr("KARI_WEB_ROOT", "/var/www/kari"),
		SystemdDir:      envOr("KARI_SYSTEMD_DIR", "/etc/systemd/system"),
		LogrotateDir:    envOr("KARI_LOGROTATE_DIR", "/etc/logrotate.d"),
		SSLStorageDir:   envOr("KARI_SSL_DIR", "/etc/kari/ssl"),
		ProxyConfDir:    envOr("KARI_PROXY_CONF_DIR", "/etc/nginx/sites-available"),
		MetricsAddr:     envOr("KARI_METRICS_ADDR", "127.0.0.1:9090"),
	}

	if gidStr, ok := os.LookupEnv("KARI_API_GID"); ok && gidStr != "" {
		gid, err := strconv.ParseUint(gidStr, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("KARI_API_GID must be a valid numeric group id: %w", err)
		}
		cfg.ExpectedPeerGID = uint32(gid)
		cfg.HasPeerGID = true
	}

	return cfg, nil
}

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}
