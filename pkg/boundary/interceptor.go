package boundary

import (
	"context"
	"path"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/irgordon/kari/pkg/agenterr"
	"github.com/irgordon/kari/pkg/log"
	"github.com/irgordon/kari/pkg/metrics"
)

// errorMappingInterceptor converts a handler's agenterr.Error into a gRPC
// status carrying the taxonomy's matching code, so a façade method never
// has to know about gRPC status codes itself.
func errorMappingInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	resp, err := handler(ctx, req)
	if err != nil {
		return resp, status.Error(agenterr.KindOf(err).Code(), err.Error())
	}
	return resp, nil
}

// metricsInterceptor records a count and a latency observation for every
// unary call, labeled by the bare method name (not the full service path).
func metricsInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	method := path.Base(info.FullMethod)
	start := time.Now()

	resp, err := handler(ctx, req)

	metrics.RPCRequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.RPCRequestsTotal.WithLabelValues(method, result).Inc()

	logger := log.Logger
	if pr, ok := peer.FromContext(ctx); ok {
		if info, ok := pr.AuthInfo.(PeerInfo); ok {
			logger = log.WithConnID(info.ConnID)
		}
	}
	logger.Debug().Str("method", method).Dur("latency", time.Since(start)).Msg("rpc call completed")

	return resp, err
}
