/*
Package build executes a caller-supplied shell command as an unprivileged
user and streams its output back through a bounded channel, prefixed by
stream of origin, with no shell ever invoked except inside the privilege
drop itself.
*/
package build

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"regexp"

	"github.com/irgordon/kari/pkg/agenterr"
	"github.com/irgordon/kari/pkg/types"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9-]+$`)

// Runner executes builds.
type Runner struct{}

// New returns a Runner.
func New() *Runner { return &Runner{} }

// Execute runs buildCommand as runAsUser in workingDir with env, streaming
// output to sink as it arrives. sink is owned by the caller: Execute never
// closes it. Cancelling ctx kills the child process; both reader goroutines
// are always awaited before Execute returns, so no line is ever lost after
// the process exits.
func (r *Runner) Execute(
	ctx context.Context,
	buildCommand, workingDir, runAsUser string,
	env map[string]string,
	sink chan<- types.LogChunk,
	traceID string,
) error {
	if runAsUser == "" || !usernamePattern.MatchString(runAsUser) {
		return agenterr.Security("suspicious username format %q", runAsUser)
	}

	args := []string{"-u", runAsUser, "--", "sh", "-c", buildCommand}
	cmd := exec.Command("runuser", args...)
	cmd.Dir = workingDir

	envList := make([]string, 0, len(env))
	for k, v := range env {
		envList = append(envList, fmt.Sprintf("%s=%s", k, v))
	}
	cmd.Env = envList

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return agenterr.Spawn(err, "stdout pipe unavailable")
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return agenterr.Spawn(err, "stderr pipe unavailable")
	}

	if err := cmd.Start(); err != nil {
		return agenterr.Spawn(err, "failed to initiate build process")
	}

	killed := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = cmd.Process.Kill()
		case <-killed:
		}
	}()
	defer close(killed)

	done := make(chan struct{}, 2)
	go streamLines(ctx, stdout, "[OUT] ", sink, traceID, done)
	go streamLines(ctx, stderr, "[ERR] ", sink, traceID, done)
	<-done
	<-done

	err = cmd.Wait()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			if exitErr.ProcessState.ExitCode() == -1 {
				return agenterr.Exit("build process terminated by signal")
			}
			return agenterr.Exit("build process failed: exit code %d", exitErr.ProcessState.ExitCode())
		}
		return agenterr.Spawn(err, "failed to wait on build process")
	}
	return nil
}

func streamLines(ctx context.Context, r interface {
	Read([]byte) (int, error)
}, prefix string, sink chan<- types.LogChunk, traceID string, done chan<- struct{}) {
	defer func() { done <- struct{}{} }()

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		chunk := types.LogChunk{TraceID: traceID, Content: prefix + scanner.Text() + "\n"}
		select {
		case sink <- chunk:
		case <-ctx.Done():
			return
		}
	}
}
