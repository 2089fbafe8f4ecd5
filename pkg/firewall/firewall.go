/*
Package firewall translates a typed FirewallPolicy value into a host
firewall CLI invocation. It is contract-level only: no state is kept in the
agent, and every call re-derives its argv from the policy it is given.
*/
package firewall

import (
	"bytes"
	"fmt"
	"os/exec"
	"strconv"

	"github.com/irgordon/kari/pkg/agenterr"
	"github.com/irgordon/kari/pkg/types"
)

// Manager drives ufw (the convention chosen for this implementation; any
// host firewall CLI that accepts allow/deny/reject-by-port rules fits the
// same shape).
type Manager struct{}

// New returns a Manager.
func New() *Manager { return &Manager{} }

// Apply translates policy into a firewall CLI invocation and runs it.
func (m *Manager) Apply(policy types.FirewallPolicy) error {
	args, err := buildArgs(policy)
	if err != nil {
		return err
	}

	cmd := exec.Command("ufw", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			return agenterr.Exit("ufw %v: %s", args, stderr.String())
		}
		return agenterr.Spawn(err, "failed to execute ufw")
	}
	return nil
}

func buildArgs(policy types.FirewallPolicy) ([]string, error) {
	var action string
	switch policy.Action {
	case types.FirewallAllow:
		action = "allow"
	case types.FirewallDeny:
		action = "deny"
	case types.FirewallReject:
		action = "reject"
	default:
		return nil, agenterr.InvalidArg("unknown firewall action %v", policy.Action)
	}

	var proto string
	switch policy.Protocol {
	case types.ProtoTCP:
		proto = "tcp"
	case types.ProtoUDP:
		proto = "udp"
	case types.ProtoBoth:
		proto = ""
	default:
		return nil, agenterr.InvalidArg("unknown firewall protocol %v", policy.Protocol)
	}

	rule := strconv.Itoa(int(policy.Port))
	if proto != "" {
		rule = fmt.Sprintf("%s/%s", rule, proto)
	}

	args := []string{action}
	if policy.SourceIP != "" {
		args = append(args, "from", policy.SourceIP, "to", "any", "port", strconv.Itoa(int(policy.Port)))
		if proto != "" {
			args = append(args, "proto", proto)
		}
		return args, nil
	}

	args = append(args, rule)
	return args, nil
}
