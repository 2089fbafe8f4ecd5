package firewall

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irgordon/kari/pkg/types"
)

func TestBuildArgsAllowTCP(t *testing.T) {
	args, err := buildArgs(types.FirewallPolicy{
		Action:   types.FirewallAllow,
		Port:     443,
		Protocol: types.ProtoTCP,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"allow", "443/tcp"}, args)
}

func TestBuildArgsDenyWithSource(t *testing.T) {
	args, err := buildArgs(types.FirewallPolicy{
		Action:   types.FirewallDeny,
		Port:     22,
		Protocol: types.ProtoTCP,
		SourceIP: "10.0.0.5",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"deny", "from", "10.0.0.5", "to", "any", "port", "22", "proto", "tcp"}, args)
}

func TestBuildArgsRejectsUnknownAction(t *testing.T) {
	_, err := buildArgs(types.FirewallPolicy{Action: types.FirewallAction(99), Port: 80})
	assert.Error(t, err)
}

func TestBuildArgsBothProtocols(t *testing.T) {
	args, err := buildArgs(types.FirewallPolicy{
		Action:   types.FirewallAllow,
		Port:     53,
		Protocol: types.ProtoBoth,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"allow", "53"}, args)
}
