/*
Package types holds the domain structs shared across every manager package
and the RPC façade: deployment intents, unit descriptors, policy values, and
the uniform response/log-chunk shapes the façade returns.
*/
package types

import "github.com/irgordon/kari/pkg/secret"

// ServiceAction enumerates the operations ManageService accepts.
type ServiceAction int

const (
	ActionStart ServiceAction = iota
	ActionStop
	ActionRestart
	ActionReloadDaemon
	ActionEnableAndStart
)

func (a ServiceAction) String() string {
	switch a {
	case ActionStart:
		return "Start"
	case ActionStop:
		return "Stop"
	case ActionRestart:
		return "Restart"
	case ActionReloadDaemon:
		return "ReloadDaemon"
	case ActionEnableAndStart:
		return "EnableAndStart"
	default:
		return "Unknown"
	}
}

// DeploymentIntent is the input to StreamDeployment.
type DeploymentIntent struct {
	TraceID      string
	AppID        string
	DomainName   string
	RepoURL      string
	Branch       string
	BuildCommand string
	EnvVars      []EnvVar
	SSHKey       *secret.Secret // optional
}

// EnvVar is one ordered key/value pair.
type EnvVar struct {
	Key   string
	Value string
}

// EnvMap converts an ordered EnvVar list into a map, discarding order (used
// once validation of the ordered form is complete and a lookup is needed).
func EnvMap(vars []EnvVar) map[string]string {
	m := make(map[string]string, len(vars))
	for _, v := range vars {
		m[v.Key] = v.Value
	}
	return m
}

// ServiceUnitDescriptor is derived from a deployment and rendered into a
// systemd unit file.
type ServiceUnitDescriptor struct {
	ServiceName      string
	RunAsUser        string
	WorkingDirectory string
	StartCommand     string
	Env              map[string]string
}

// JobIntent describes one scheduled job: a unit + timer pair.
type JobIntent struct {
	Name       string
	BinaryPath string
	Args       []string
	Schedule   string
	RunAsUser  string
}

// FirewallAction enumerates the allowed firewall dispositions.
type FirewallAction int

const (
	FirewallAllow FirewallAction = iota
	FirewallDeny
	FirewallReject
)

// FirewallProtocol enumerates the protocols a FirewallPolicy can target.
type FirewallProtocol int

const (
	ProtoTCP FirewallProtocol = iota
	ProtoUDP
	ProtoBoth
)

// FirewallPolicy is a stateless value translated directly into a host
// firewall CLI invocation; the agent keeps no record of applied policies.
type FirewallPolicy struct {
	Action   FirewallAction
	Port     uint16
	Protocol FirewallProtocol
	SourceIP string // optional
}

// SSLPayload is the input to InstallCertificate.
type SSLPayload struct {
	Domain      string
	FullChain   string
	PrivateKey  *secret.Secret
}

// AgentResponse is the uniform result shape for every unary façade
// operation.
type AgentResponse struct {
	Success      bool
	ExitCode     int32
	Stdout       string
	Stderr       string
	ErrorMessage string
}

// LogChunk is one line of output from a streaming deployment.
type LogChunk struct {
	TraceID string
	Content string
}

// ServiceStatus is one entry of SystemStatusResponse.Services.
type ServiceStatus struct {
	Name    string
	Active  bool
	Enabled bool
}

// SystemStatusResponse is the result of the read-only SystemStatus RPC.
type SystemStatusResponse struct {
	Distro         string
	DistroVersion  string
	Services       []ServiceStatus
	FirewallActive bool
}

// DeploymentStage enumerates the streaming deployment pipeline's states.
type DeploymentStage int

const (
	StageFetching DeploymentStage = iota
	StageJailing
	StageBuilding
	StageRestarting
	StageDone
	StageFailed
)

func (s DeploymentStage) String() string {
	switch s {
	case StageFetching:
		return "Fetching"
	case StageJailing:
		return "Jailing"
	case StageBuilding:
		return "Building"
	case StageRestarting:
		return "Restarting"
	case StageDone:
		return "Done"
	case StageFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}
