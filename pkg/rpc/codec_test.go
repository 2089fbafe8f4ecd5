package rpc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irgordon/kari/pkg/types"
)

func TestCodecRoundTripsDeploymentRequest(t *testing.T) {
	c := Codec{}
	in := &DeploymentRequest{
		AppID:        "42",
		DomainName:   "example.com",
		RepoURL:      "https://example.com/o/r.git",
		Branch:       "main",
		BuildCommand: "make build",
		EnvVars:      []types.EnvVar{{Key: "FOO", Value: "bar"}},
		TraceID:      "trace-1",
		SSHKeyBytes:  []byte("ssh-key-material"),
	}

	data, err := c.Marshal(in)
	require.NoError(t, err)

	out := new(DeploymentRequest)
	require.NoError(t, c.Unmarshal(data, out))
	assert.Equal(t, in, out)
}

func TestCodecRoundTripsAgentResponse(t *testing.T) {
	c := Codec{}
	in := &types.AgentResponse{Success: true, ExitCode: 0, Stdout: "ok"}

	data, err := c.Marshal(in)
	require.NoError(t, err)

	out := new(types.AgentResponse)
	require.NoError(t, c.Unmarshal(data, out))
	assert.Equal(t, in, out)
}

func TestCodecName(t *testing.T) {
	assert.Equal(t, "gob", Codec{}.Name())
}
