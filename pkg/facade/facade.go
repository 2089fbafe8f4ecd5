/*
Package facade implements the RPC surface described by pkg/rpc against the
agent's manager packages: package commands, service orchestration,
deployment teardown, streaming deployment, read-only system status, firewall
policy, certificate installation, job scheduling, and log rotation.
*/
package facade

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/irgordon/kari/pkg/agenterr"
	"github.com/irgordon/kari/pkg/build"
	"github.com/irgordon/kari/pkg/deploy"
	"github.com/irgordon/kari/pkg/firewall"
	"github.com/irgordon/kari/pkg/git"
	"github.com/irgordon/kari/pkg/jail"
	"github.com/irgordon/kari/pkg/log"
	"github.com/irgordon/kari/pkg/logrotate"
	"github.com/irgordon/kari/pkg/proxy"
	"github.com/irgordon/kari/pkg/release"
	"github.com/irgordon/kari/pkg/rpc"
	"github.com/irgordon/kari/pkg/scheduler"
	"github.com/irgordon/kari/pkg/secret"
	"github.com/irgordon/kari/pkg/ssl"
	"github.com/irgordon/kari/pkg/supervisor"
	"github.com/irgordon/kari/pkg/types"
)

// allowedPkgCommands is the whitelist ExecutePackageCommand enforces; no
// other binary name may be invoked through this RPC.
var allowedPkgCommands = map[string]bool{
	"apt-get": true,
	"apt":     true,
	"dnf":     true,
	"yum":     true,
	"zypper":  true,
}

// Service implements rpc.SystemAgentServer, composing every manager package
// into the agent's ten RPC operations.
type Service struct {
	WebRoot    string
	Jail       *jail.Manager
	Supervisor *supervisor.Manager
	Git        *git.Fetcher
	Build      *build.Runner
	Deploy     *deploy.Orchestrator
	Proxy      proxy.Manager
	Firewall   *firewall.Manager
	Scheduler  *scheduler.Manager
	Logrotate  *logrotate.Manager
	SSL        *ssl.Manager
	Release    *release.Pruner
}

// New composes a Service out of already-constructed manager handles.
func New(webRoot string, jailMgr *jail.Manager, supervisorMgr *supervisor.Manager, gitMgr *git.Fetcher, buildMgr *build.Runner, proxyMgr proxy.Manager, firewallMgr *firewall.Manager, schedulerMgr *scheduler.Manager, logrotateMgr *logrotate.Manager, sslMgr *ssl.Manager, releaseMgr *release.Pruner) *Service {
	return &Service{
		WebRoot:    webRoot,
		Jail:       jailMgr,
		Supervisor: supervisorMgr,
		Git:        gitMgr,
		Build:      buildMgr,
		Deploy:     deploy.New(webRoot, gitMgr, jailMgr, buildMgr, supervisorMgr),
		Proxy:      proxyMgr,
		Firewall:   firewallMgr,
		Scheduler:  schedulerMgr,
		Logrotate:  logrotateMgr,
		SSL:        sslMgr,
		Release:    releaseMgr,
	}
}

// secureJoin joins base with suffix, refusing any suffix that could escape
// base via a traversal, absolute path, or path separator.
func secureJoin(base, suffix string) (string, error) {
	if suffix == "" || strings.Contains(suffix, "..") || strings.ContainsAny(suffix, `/\`) {
		return "", agenterr.InvalidArg("path traversal detected in domain or app id")
	}
	return filepath.Join(base, suffix), nil
}

// ExecutePackageCommand runs req.Command with req.Args if and only if the
// command is in the package-manager whitelist and no argument carries a
// shell metacharacter; Command.Start never invokes a shell, but the
// whitelist and metacharacter check are defense in depth regardless.
func (s *Service) ExecutePackageCommand(ctx context.Context, req *rpc.PackageCommandRequest) (*types.AgentResponse, error) {
	if !allowedPkgCommands[req.Command] {
		log.Logger.Warn().Str("command", req.Command).Msg("blocked unauthorized package command")
		return nil, agenterr.Permission("command %q is not in the security whitelist", req.Command)
	}
	for _, arg := range req.Args {
		if strings.ContainsAny(arg, ";&|") {
			return nil, agenterr.InvalidArg("invalid characters in arguments")
		}
	}

	cmd := exec.CommandContext(ctx, req.Command, req.Args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	resp := &types.AgentResponse{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err == nil {
		resp.Success = true
		resp.ExitCode = 0
		return resp, nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		resp.Success = false
		resp.ExitCode = int32(exitErr.ExitCode())
		resp.ErrorMessage = exitErr.Error()
		return resp, nil
	}
	return nil, agenterr.Spawn(err, "failed to execute package command")
}

// ManageService dispatches a systemd action against req.ServiceName.
func (s *Service) ManageService(ctx context.Context, req *rpc.ServiceRequest) (*types.AgentResponse, error) {
	msg, err := s.Supervisor.Dispatch(req.ServiceName, req.Action)
	if err != nil {
		return nil, err
	}
	return &types.AgentResponse{Success: true, Stdout: msg}, nil
}

// DeleteDeployment tears down everything a deployment owns: stops and
// removes its service unit, deprovisions its unprivileged user, and deletes
// its web root. Errors at any stage abort the teardown rather than being
// swallowed, matching the deterministic-teardown contract.
func (s *Service) DeleteDeployment(ctx context.Context, req *rpc.DeleteRequest) (*types.AgentResponse, error) {
	appDir, err := secureJoin(s.WebRoot, req.DomainName)
	if err != nil {
		return nil, err
	}

	serviceName := "kari-" + req.DomainName
	appUser := "kari-app-" + req.AppID

	log.WithDomain(req.DomainName).Info().Str("app_id", req.AppID).Msg("initiating teardown")

	if err := s.Supervisor.Stop(serviceName); err != nil {
		return nil, err
	}
	if err := s.Supervisor.RemoveUnit(serviceName); err != nil {
		return nil, err
	}
	if err := s.Supervisor.ReloadDaemon(); err != nil {
		return nil, err
	}
	if err := s.Jail.DeprovisionAppUser(appUser); err != nil {
		return nil, err
	}
	if err := os.RemoveAll(appDir); err != nil {
		return nil, agenterr.Io(err, "failed to delete app directory %s", appDir)
	}

	return &types.AgentResponse{Success: true}, nil
}

// StreamDeployment converts req into a types.DeploymentIntent and runs the
// fetch -> jail -> build -> restart pipeline, forwarding every log chunk to
// stream until the pipeline reaches a terminal stage.
func (s *Service) StreamDeployment(req *rpc.DeploymentRequest, stream rpc.SystemAgent_StreamDeploymentServer) error {
	var sshKey *secret.Secret
	if len(req.SSHKeyBytes) > 0 {
		sshKey = secret.New(req.SSHKeyBytes)
	}

	intent := types.DeploymentIntent{
		TraceID:      req.TraceID,
		AppID:        req.AppID,
		DomainName:   req.DomainName,
		RepoURL:      req.RepoURL,
		Branch:       req.Branch,
		BuildCommand: req.BuildCommand,
		EnvVars:      req.EnvVars,
		SSHKey:       sshKey,
	}

	ctx := stream.Context()
	timestamp := time.Now().UTC().Format("20060102150405")

	for chunk := range s.Deploy.Run(ctx, intent, timestamp) {
		c := chunk
		if err := stream.Send(&c); err != nil {
			return err
		}
	}
	return nil
}

// SystemStatus reports host identity, a fixed set of well-known service
// states, and whether the firewall is active. It performs no mutation.
func (s *Service) SystemStatus(ctx context.Context, req *rpc.SystemStatusRequest) (*types.SystemStatusResponse, error) {
	distro, version := readOSRelease()

	services := []types.ServiceStatus{
		queryService("nginx"),
		queryService("php-fpm"),
	}

	return &types.SystemStatusResponse{
		Distro:         distro,
		DistroVersion:  version,
		Services:       services,
		FirewallActive: queryFirewallActive(),
	}, nil
}

// ApplyFirewallPolicy translates req.Policy into a host firewall CLI
// invocation. The agent keeps no record of applied policies.
func (s *Service) ApplyFirewallPolicy(ctx context.Context, req *rpc.FirewallRequest) (*types.AgentResponse, error) {
	if err := s.Firewall.Apply(req.Policy); err != nil {
		return nil, err
	}
	return &types.AgentResponse{Success: true}, nil
}

// InstallCertificate writes req's certificate material to the SSL engine's
// storage directory at inception-time permissions.
func (s *Service) InstallCertificate(ctx context.Context, req *rpc.CertificateRequest) (*types.AgentResponse, error) {
	log.WithDomain(req.Domain).Info().Msg("installing certificate")

	payload := types.SSLPayload{
		Domain:     req.Domain,
		FullChain:  req.FullChain,
		PrivateKey: secret.New(req.PrivateKeyPEM),
	}
	if err := s.SSL.InstallCertificate(payload); err != nil {
		return nil, err
	}
	return &types.AgentResponse{Success: true}, nil
}

// ScheduleJob emits a unit + timer pair for req.Job.
func (s *Service) ScheduleJob(ctx context.Context, req *rpc.JobRequest) (*types.AgentResponse, error) {
	if err := s.Scheduler.Schedule(req.Job); err != nil {
		return nil, err
	}
	return &types.AgentResponse{Success: true}, nil
}

// UnscheduleJob removes a previously scheduled unit + timer pair.
func (s *Service) UnscheduleJob(ctx context.Context, req *rpc.UnscheduleRequest) (*types.AgentResponse, error) {
	if err := s.Scheduler.Unschedule(req.Name); err != nil {
		return nil, err
	}
	return &types.AgentResponse{Success: true}, nil
}

// ConfigureLogRotation writes a logrotate stanza for req.Domain.
func (s *Service) ConfigureLogRotation(ctx context.Context, req *rpc.LogRotationRequest) (*types.AgentResponse, error) {
	if err := s.Logrotate.Configure(req.Domain, req.LogDir); err != nil {
		return nil, err
	}
	return &types.AgentResponse{Success: true}, nil
}

func readOSRelease() (distro, version string) {
	data, err := os.ReadFile("/etc/os-release")
	if err != nil {
		return "unknown", "unknown"
	}
	for _, line := range strings.Split(string(data), "\n") {
		switch {
		case strings.HasPrefix(line, "ID="):
			distro = strings.Trim(strings.TrimPrefix(line, "ID="), `"`)
		case strings.HasPrefix(line, "VERSION_ID="):
			version = strings.Trim(strings.TrimPrefix(line, "VERSION_ID="), `"`)
		}
	}
	if distro == "" {
		distro = "unknown"
	}
	if version == "" {
		version = "unknown"
	}
	return distro, version
}

func queryService(name string) types.ServiceStatus {
	active := exec.Command("systemctl", "is-active", "--quiet", name).Run() == nil
	enabled := exec.Command("systemctl", "is-enabled", "--quiet", name).Run() == nil
	return types.ServiceStatus{Name: name, Active: active, Enabled: enabled}
}

func queryFirewallActive() bool {
	out, err := exec.Command("ufw", "status").Output()
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(string(out)), "status: active")
}
