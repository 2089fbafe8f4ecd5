package rpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/irgordon/kari/pkg/types"
)

// PackageCommandRequest is the wire shape of ExecutePackageCommand's input.
type PackageCommandRequest struct {
	Command string
	Args    []string
}

// ServiceRequest is the wire shape of ManageService's input.
type ServiceRequest struct {
	ServiceName string
	Action      types.ServiceAction
}

// DeleteRequest is the wire shape of DeleteDeployment's input.
type DeleteRequest struct {
	AppID      string
	DomainName string
}

// DeploymentRequest is the wire shape of StreamDeployment's input. SSH key
// material travels as a raw byte slice rather than *secret.Secret, since
// gob cannot encode the latter's unexported backing array; the façade wraps
// SSHKeyBytes in a secret.Secret immediately upon receipt and the slice that
// held it is never retained past that call.
type DeploymentRequest struct {
	AppID        string
	DomainName   string
	RepoURL      string
	Branch       string
	BuildCommand string
	EnvVars      []types.EnvVar
	TraceID      string
	SSHKeyBytes  []byte
}

// SystemStatusRequest is the wire shape of SystemStatus's input (empty).
type SystemStatusRequest struct{}

// FirewallRequest is the wire shape of ApplyFirewallPolicy's input.
type FirewallRequest struct {
	Policy types.FirewallPolicy
}

// CertificateRequest is the wire shape of InstallCertificate's input. The
// private key travels as a raw byte slice for the same reason
// DeploymentRequest.SSHKeyBytes does: gob cannot encode *secret.Secret's
// unexported field.
type CertificateRequest struct {
	Domain        string
	FullChain     string
	PrivateKeyPEM []byte
}

// JobRequest is the wire shape of ScheduleJob's input.
type JobRequest struct {
	Job types.JobIntent
}

// UnscheduleRequest is the wire shape of UnscheduleJob's input.
type UnscheduleRequest struct {
	Name string
}

// LogRotationRequest is the wire shape of ConfigureLogRotation's input.
type LogRotationRequest struct {
	Domain string
	LogDir string
}

// SystemAgentServer is the interface a façade implementation must satisfy
// to be registered against SystemAgent_ServiceDesc.
type SystemAgentServer interface {
	ExecutePackageCommand(context.Context, *PackageCommandRequest) (*types.AgentResponse, error)
	ManageService(context.Context, *ServiceRequest) (*types.AgentResponse, error)
	DeleteDeployment(context.Context, *DeleteRequest) (*types.AgentResponse, error)
	StreamDeployment(*DeploymentRequest, SystemAgent_StreamDeploymentServer) error
	SystemStatus(context.Context, *SystemStatusRequest) (*types.SystemStatusResponse, error)
	ApplyFirewallPolicy(context.Context, *FirewallRequest) (*types.AgentResponse, error)
	InstallCertificate(context.Context, *CertificateRequest) (*types.AgentResponse, error)
	ScheduleJob(context.Context, *JobRequest) (*types.AgentResponse, error)
	UnscheduleJob(context.Context, *UnscheduleRequest) (*types.AgentResponse, error)
	ConfigureLogRotation(context.Context, *LogRotationRequest) (*types.AgentResponse, error)
}

// SystemAgent_StreamDeploymentServer is the server-side streaming handle
// passed to StreamDeployment, mirroring what protoc-gen-go-grpc would
// generate for a server-streaming RPC.
type SystemAgent_StreamDeploymentServer interface {
	Send(*types.LogChunk) error
	grpc.ServerStream
}

type systemAgentStreamDeploymentServer struct {
	grpc.ServerStream
}

func (x *systemAgentStreamDeploymentServer) Send(m *types.LogChunk) error {
	return x.ServerStream.SendMsg(m)
}

func _SystemAgent_ExecutePackageCommand_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(PackageCommandRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SystemAgentServer).ExecutePackageCommand(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/kari.agent.v1.SystemAgent/ExecutePackageCommand"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SystemAgentServer).ExecutePackageCommand(ctx, req.(*PackageCommandRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _SystemAgent_ManageService_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ServiceRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SystemAgentServer).ManageService(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/kari.agent.v1.SystemAgent/ManageService"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SystemAgentServer).ManageService(ctx, req.(*ServiceRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _SystemAgent_DeleteDeployment_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(DeleteRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SystemAgentServer).DeleteDeployment(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/kari.agent.v1.SystemAgent/DeleteDeployment"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SystemAgentServer).DeleteDeployment(ctx, req.(*DeleteRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _SystemAgent_SystemStatus_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(SystemStatusRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SystemAgentServer).SystemStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/kari.agent.v1.SystemAgent/SystemStatus"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SystemAgentServer).SystemStatus(ctx, req.(*SystemStatusRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _SystemAgent_ApplyFirewallPolicy_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(FirewallRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SystemAgentServer).ApplyFirewallPolicy(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/kari.agent.v1.SystemAgent/ApplyFirewallPolicy"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SystemAgentServer).ApplyFirewallPolicy(ctx, req.(*FirewallRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _SystemAgent_InstallCertificate_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(CertificateRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SystemAgentServer).InstallCertificate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/kari.agent.v1.SystemAgent/InstallCertificate"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SystemAgentServer).InstallCertificate(ctx, req.(*CertificateRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _SystemAgent_ScheduleJob_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(JobRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SystemAgentServer).ScheduleJob(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/kari.agent.v1.SystemAgent/ScheduleJob"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SystemAgentServer).ScheduleJob(ctx, req.(*JobRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _SystemAgent_UnscheduleJob_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(UnscheduleRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SystemAgentServer).UnscheduleJob(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/kari.agent.v1.SystemAgent/UnscheduleJob"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SystemAgentServer).UnscheduleJob(ctx, req.(*UnscheduleRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _SystemAgent_ConfigureLogRotation_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(LogRotationRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SystemAgentServer).ConfigureLogRotation(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/kari.agent.v1.SystemAgent/ConfigureLogRotation"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SystemAgentServer).ConfigureLogRotation(ctx, req.(*LogRotationRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _SystemAgent_StreamDeployment_Handler(srv interface{}, stream grpc.ServerStream) error {
	m := new(DeploymentRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(SystemAgentServer).StreamDeployment(m, &systemAgentStreamDeploymentServer{stream})
}

// SystemAgent_ServiceDesc is the hand-authored equivalent of what
// protoc-gen-go-grpc would generate from a kari.agent.v1.SystemAgent
// service definition.
var SystemAgent_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "kari.agent.v1.SystemAgent",
	HandlerType: (*SystemAgentServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ExecutePackageCommand", Handler: _SystemAgent_ExecutePackageCommand_Handler},
		{MethodName: "ManageService", Handler: _SystemAgent_ManageService_Handler},
		{MethodName: "DeleteDeployment", Handler: _SystemAgent_DeleteDeployment_Handler},
		{MethodName: "SystemStatus", Handler: _SystemAgent_SystemStatus_Handler},
		{MethodName: "ApplyFirewallPolicy", Handler: _SystemAgent_ApplyFirewallPolicy_Handler},
		{MethodName: "InstallCertificate", Handler: _SystemAgent_InstallCertificate_Handler},
		{MethodName: "ScheduleJob", Handler: _SystemAgent_ScheduleJob_Handler},
		{MethodName: "UnscheduleJob", Handler: _SystemAgent_UnscheduleJob_Handler},
		{MethodName: "ConfigureLogRotation", Handler: _SystemAgent_ConfigureLogRotation_Handler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "StreamDeployment", Handler: _SystemAgent_StreamDeployment_Handler, ServerStreams: true},
	},
	Metadata: "kari/agent/v1/agent.go",
}

// RegisterSystemAgentServer attaches srv to s under SystemAgent_ServiceDesc.
func RegisterSystemAgentServer(s grpc.ServiceRegistrar, srv SystemAgentServer) {
	s.RegisterService(&SystemAgent_ServiceDesc, srv)
}
