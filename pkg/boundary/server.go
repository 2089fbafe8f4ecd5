package boundary

import (
	"context"
	"net"

	"google.golang.org/grpc"

	"github.com/irgordon/kari/pkg/log"
	"github.com/irgordon/kari/pkg/rpc"
)

// Server binds the agent's Unix socket and drives a gRPC server over it,
// authenticating every connection via PeerCredentials before any RPC is
// dispatched.
type Server struct {
	SocketPath string
	listener   net.Listener
	grpcServer *grpc.Server
}

// New binds path with the given ownership, wires a PeerCredentials
// authenticator for expectedUID, and lets register attach services to the
// resulting *grpc.Server.
func New(path string, uid, gid int, expectedUID uint32, register func(*grpc.Server)) (*Server, error) {
	listener, err := BindSocket(path, uid, gid)
	if err != nil {
		return nil, err
	}

	grpcServer := grpc.NewServer(
		grpc.Creds(NewPeerCredentials(expectedUID)),
		grpc.ForceServerCodec(rpc.Codec{}),
		grpc.ChainUnaryInterceptor(metricsInterceptor, errorMappingInterceptor),
	)
	register(grpcServer)

	return &Server{SocketPath: path, listener: listener, grpcServer: grpcServer}, nil
}

// Serve blocks, accepting connections until ctx is cancelled. On
// cancellation it stops accepting new connections, lets in-flight RPCs
// drain (GracefulStop), and unlinks the socket before returning.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.grpcServer.Serve(s.listener)
	}()

	select {
	case err := <-errCh:
		_ = Unlink(s.SocketPath)
		return err
	case <-ctx.Done():
		log.Info("shutdown signal received, draining in-flight streams")
		s.grpcServer.GracefulStop()
		<-errCh
		if err := Unlink(s.SocketPath); err != nil {
			return err
		}
		log.Info("agent shutdown complete")
		return nil
	}
}
