package deploy

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irgordon/kari/pkg/secret"
	"github.com/irgordon/kari/pkg/types"
)

type fakeGit struct {
	err error
}

func (f *fakeGit) CloneRepo(ctx context.Context, repoURL, branch, targetDir string, sshKey *secret.Secret) error {
	return f.err
}

type fakeJail struct {
	err error
}

func (f *fakeJail) ProvisionAppUser(username string) error { return nil }
func (f *fakeJail) SecureDirectory(path, username string) error {
	return f.err
}

type fakeBuild struct {
	err error
}

func (f *fakeBuild) Execute(ctx context.Context, buildCommand, workingDir, runAsUser string, env map[string]string, sink chan<- types.LogChunk, traceID string) error {
	sink <- types.LogChunk{TraceID: traceID, Content: "[OUT] building\n"}
	return f.err
}

type fakeSvc struct {
	err     error
	calls   []string
}

func (f *fakeSvc) Restart(name string) error {
	f.calls = append(f.calls, name)
	return f.err
}

func drain(t *testing.T, ch <-chan types.LogChunk) []string {
	t.Helper()
	var lines []string
	timeout := time.After(2 * time.Second)
	for {
		select {
		case chunk, ok := <-ch:
			if !ok {
				return lines
			}
			lines = append(lines, chunk.Content)
		case <-timeout:
			t.Fatal("timed out draining deployment log stream")
		}
	}
}

func TestRunHappyPathReachesDone(t *testing.T) {
	svc := &fakeSvc{}
	o := New(t.TempDir(), &fakeGit{}, &fakeJail{}, &fakeBuild{}, svc)

	intent := types.DeploymentIntent{
		TraceID:      "trace-1",
		AppID:        "42",
		DomainName:   "example.com",
		RepoURL:      "https://example.com/o/r.git",
		Branch:       "main",
		BuildCommand: "make build",
	}

	lines := drain(t, o.Run(context.Background(), intent, "20260101000000"))
	joined := strings.Join(lines, "")
	assert.Contains(t, joined, "Pulling source")
	assert.Contains(t, joined, "Hardening filesystem")
	assert.Contains(t, joined, "[OUT] building")
	assert.Contains(t, joined, "Swapping binaries")
	assert.Contains(t, joined, "Deployment Complete")
	require.Equal(t, []string{"kari-example.com"}, svc.calls)
}

func TestRunRejectsPathTraversalInDomain(t *testing.T) {
	o := New(t.TempDir(), &fakeGit{}, &fakeJail{}, &fakeBuild{}, &fakeSvc{})
	intent := types.DeploymentIntent{DomainName: "../../etc", TraceID: "t"}

	lines := drain(t, o.Run(context.Background(), intent, "20260101000000"))
	assert.Contains(t, strings.Join(lines, ""), "Invalid request")
}

func TestRunStopsAtGitFailure(t *testing.T) {
	svc := &fakeSvc{}
	o := New(t.TempDir(), &fakeGit{err: errors.New("clone failed")}, &fakeJail{}, &fakeBuild{}, svc)
	intent := types.DeploymentIntent{DomainName: "example.com", AppID: "1", TraceID: "t"}

	lines := drain(t, o.Run(context.Background(), intent, "20260101000000"))
	joined := strings.Join(lines, "")
	assert.Contains(t, joined, "Git Error")
	assert.NotContains(t, joined, "Deployment Complete")
	assert.Empty(t, svc.calls)
}

func TestRunStopsAtBuildFailureAndDoesNotRestart(t *testing.T) {
	svc := &fakeSvc{}
	o := New(t.TempDir(), &fakeGit{}, &fakeJail{}, &fakeBuild{err: errors.New("build failed")}, svc)
	intent := types.DeploymentIntent{DomainName: "example.com", AppID: "1", TraceID: "t"}

	lines := drain(t, o.Run(context.Background(), intent, "20260101000000"))
	joined := strings.Join(lines, "")
	assert.Contains(t, joined, "Build Error")
	assert.Empty(t, svc.calls)
}
