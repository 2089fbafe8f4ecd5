/*
Package deploy drives the streaming deployment state machine: fetch source,
harden its ownership, build it as an unprivileged user, and restart the
service that serves it, with every stage's output streamed to the caller as
it happens.
*/
package deploy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/irgordon/kari/pkg/agenterr"
	"github.com/irgordon/kari/pkg/log"
	"github.com/irgordon/kari/pkg/secret"
	"github.com/irgordon/kari/pkg/types"
)

// channelCapacity is the fixed size of the log-chunk channel returned to
// every StreamDeployment caller.
const channelCapacity = 512

var pathSegmentPattern = regexp.MustCompile(`^[^/\\]+$`)

// GitFetcher clones the deployment's source.
type GitFetcher interface {
	CloneRepo(ctx context.Context, repoURL, branch, targetDir string, sshKey *secret.Secret) error
}

// JailManager hardens the release directory's ownership.
type JailManager interface {
	ProvisionAppUser(username string) error
	SecureDirectory(path, username string) error
}

// BuildRunner executes the build command as the app's unprivileged user.
type BuildRunner interface {
	Execute(ctx context.Context, buildCommand, workingDir, runAsUser string, env map[string]string, sink chan<- types.LogChunk, traceID string) error
}

// ServiceRestarter restarts the systemd unit serving the deployment.
type ServiceRestarter interface {
	Restart(name string) error
}

// Orchestrator runs one StreamDeployment call end to end.
type Orchestrator struct {
	WebRoot string
	Git     GitFetcher
	Jail    JailManager
	Build   BuildRunner
	Svc     ServiceRestarter
}

// New returns an Orchestrator rooted at webRoot (typically KARI_WEB_ROOT).
func New(webRoot string, git GitFetcher, jail JailManager, build BuildRunner, svc ServiceRestarter) *Orchestrator {
	return &Orchestrator{WebRoot: webRoot, Git: git, Jail: jail, Build: build, Svc: svc}
}

// secureJoin joins base with suffix, refusing any suffix that could escape
// base via a traversal or path separator.
func secureJoin(base, suffix string) (string, error) {
	if suffix == "" || !pathSegmentPattern.MatchString(suffix) || suffix == "." || suffix == ".." {
		return "", agenterr.InvalidArg("path traversal detected in domain or app id")
	}
	return filepath.Join(base, suffix), nil
}

// nowTimestamp is supplied by the caller (typically time.Now().UTC()) so the
// orchestrator itself performs no wall-clock reads, keeping it trivially
// testable.
type nowTimestamp = string

// Run executes the fetch -> jail -> build -> restart pipeline for intent,
// writing one or more types.LogChunk per stage to the returned channel. The
// channel is closed when the pipeline reaches a terminal state (Done or
// Failed). Callers should read until the channel closes; closing ctx
// (client disconnect) causes the next blocked send to unblock via ctx.Done()
// and the in-flight stage's child process to be killed.
func (o *Orchestrator) Run(ctx context.Context, intent types.DeploymentIntent, timestamp nowTimestamp) <-chan types.LogChunk {
	out := make(chan types.LogChunk, channelCapacity)

	go func() {
		defer close(out)
		o.run(ctx, intent, timestamp, out)
	}()

	return out
}

func (o *Orchestrator) run(ctx context.Context, intent types.DeploymentIntent, timestamp nowTimestamp, out chan<- types.LogChunk) {
	traceLog := log.WithTraceID(intent.TraceID)
	traceLog.Info().Str("domain", intent.DomainName).Msg("deployment started")

	send := func(content string) bool {
		select {
		case out <- types.LogChunk{TraceID: intent.TraceID, Content: content}:
			return true
		case <-ctx.Done():
			return false
		}
	}

	baseDir, err := secureJoin(o.WebRoot, intent.DomainName)
	if err != nil {
		traceLog.Warn().Err(err).Msg("deployment rejected")
		send(fmt.Sprintf("❌ Invalid request: %v\n", err))
		return
	}
	releaseDir := filepath.Join(baseDir, "releases", timestamp)
	appUser := fmt.Sprintf("kari-app-%s", intent.AppID)
	serviceName := fmt.Sprintf("kari-%s", intent.DomainName)

	// -- Fetching --
	if !send("\U0001F4E6 Pulling source from repository...\n") {
		return
	}
	if err := o.Git.CloneRepo(ctx, intent.RepoURL, intent.Branch, releaseDir, intent.SSHKey); err != nil {
		traceLog.Warn().Err(err).Msg("deployment failed during fetch")
		send(fmt.Sprintf("❌ Git Error: %v\n", err))
		return
	}

	// -- Jailing --
	if !send("\U0001F512 Hardening filesystem permissions...\n") {
		return
	}
	if err := o.Jail.SecureDirectory(releaseDir, appUser); err != nil {
		traceLog.Warn().Err(err).Msg("deployment failed during jailing")
		send(fmt.Sprintf("❌ Security Error: %v\n", err))
		return
	}

	// -- Building --
	if !send("\U0001F3D7 Executing build in isolated jail...\n") {
		return
	}
	env := types.EnvMap(intent.EnvVars)
	if err := o.Build.Execute(ctx, intent.BuildCommand, releaseDir, appUser, env, out, intent.TraceID); err != nil {
		traceLog.Warn().Err(err).Msg("deployment failed during build")
		send(fmt.Sprintf("❌ Build Error: %v\n", err))
		_ = os.RemoveAll(releaseDir)
		return
	}

	// -- Restarting --
	if !send("\U0001F504 Swapping binaries and restarting service...\n") {
		return
	}
	if err := o.Svc.Restart(serviceName); err != nil {
		traceLog.Warn().Err(err).Msg("deployment failed during restart")
		send(fmt.Sprintf("❌ Restart Error: %v\n", err))
		return
	}

	// -- Done --
	traceLog.Info().Msg("deployment complete")
	send("✅ Deployment Complete. System Healthy.\n")
}
