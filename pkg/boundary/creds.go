package boundary

import (
	"context"
	"net"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"
	"google.golang.org/grpc/credentials"

	"github.com/irgordon/kari/pkg/agenterr"
	"github.com/irgordon/kari/pkg/log"
	"github.com/irgordon/kari/pkg/metrics"
)

// PeerInfo carries the kernel-verified peer uid, plus a connection id minted
// at handshake time for log correlation, into gRPC's AuthInfo slot.
type PeerInfo struct {
	UID    uint32
	ConnID string
}

// AuthType identifies this package's credentials.AuthInfo implementation.
func (PeerInfo) AuthType() string { return "peercred" }

// PeerCredentials is a server-only credentials.TransportCredentials that
// authenticates each new connection by reading its SO_PEERCRED ancillary
// data straight from the kernel, rather than trusting anything the peer
// sends over the wire. Connections from any uid other than ExpectedUID or
// root (0) are rejected before the gRPC handshake proceeds.
type PeerCredentials struct {
	ExpectedUID uint32
}

// NewPeerCredentials returns server-side transport credentials that accept
// only expectedUID and root.
func NewPeerCredentials(expectedUID uint32) *PeerCredentials {
	return &PeerCredentials{ExpectedUID: expectedUID}
}

// ClientHandshake is unsupported: this socket has exactly one accepting
// side.
func (c *PeerCredentials) ClientHandshake(ctx context.Context, authority string, conn net.Conn) (net.Conn, credentials.AuthInfo, error) {
	return nil, nil, agenterr.Security("peer-credential transport is server-only")
}

// ServerHandshake reads the kernel's SO_PEERCRED record for conn and accepts
// it only if the peer uid is ExpectedUID or 0 (root).
func (c *PeerCredentials) ServerHandshake(conn net.Conn) (net.Conn, credentials.AuthInfo, error) {
	unixConn, ok := conn.(*net.UnixConn)
	if !ok {
		return nil, nil, agenterr.Security("connection is not a unix socket")
	}

	raw, err := unixConn.SyscallConn()
	if err != nil {
		return nil, nil, agenterr.Security("unable to access raw connection for peer-credential lookup")
	}

	var cred *unix.Ucred
	var credErr error
	ctrlErr := raw.Control(func(fd uintptr) {
		cred, credErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	})
	if ctrlErr != nil {
		return nil, nil, agenterr.Security("peer-credential syscall control failed")
	}
	if credErr != nil {
		return nil, nil, agenterr.Security("peer-credential lookup failed: %v", credErr)
	}

	connID := uuid.NewString()

	uid := cred.Uid
	if uid != c.ExpectedUID && uid != 0 {
		metrics.PeerRejectionsTotal.Inc()
		log.Logger.Warn().Uint32("uid", uid).Str("conn_id", connID).Msg("rejected connection from unauthorized peer uid")
		return nil, nil, agenterr.Security("unauthorized peer uid %d", uid)
	}

	log.Logger.Debug().Uint32("uid", uid).Str("conn_id", connID).Msg("verified peer connection")
	return conn, PeerInfo{UID: uid, ConnID: connID}, nil
}

// Info describes the security properties of this credentials implementation.
func (c *PeerCredentials) Info() credentials.ProtocolInfo {
	return credentials.ProtocolInfo{
		ProtocolVersion:  "",
		SecurityProtocol: "peercred",
		ServerName:       "",
	}
}

// Clone returns a copy of c.
func (c *PeerCredentials) Clone() credentials.TransportCredentials {
	return &PeerCredentials{ExpectedUID: c.ExpectedUID}
}

// OverrideServerName is a no-op; peer-credential auth has no server name
// concept.
func (c *PeerCredentials) OverrideServerName(string) error { return nil }
