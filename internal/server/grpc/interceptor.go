package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/dmitrijs2005/authkeeper/internal/requestctx"
)

// requestContextInterceptor gives every unary call its own request context,
// reusing the caller's x-trace-id when present, and returns both ids as
// response headers.
func (s *HealthServer) requestContextInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	var traceID string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(requestctx.TraceIDHeader); len(values) > 0 {
			traceID = values[0]
		}
	}

	rc := requestctx.New(traceID)
	ctx = requestctx.WithContext(ctx, rc)

	// fails only outside a real server stream
	_ = grpc.SetHeader(ctx, metadata.Pairs(
		requestctx.TraceIDHeader, rc.TraceID,
		requestctx.RequestIDHeader, rc.RequestID,
	))

	s.logger.Debug(ctx, "grpc call", "method", info.FullMethod)

	return handler(ctx, req)
}
