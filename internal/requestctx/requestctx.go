// Package requestctx carries per-request correlation identifiers through a
// context.Context so that any layer can read them without extra parameters.
package requestctx

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// Header names used to exchange correlation ids with clients.
const (
	TraceIDHeader   = "x-trace-id"
	RequestIDHeader = "x-request-id"
)

// Context is the correlation tuple of one in-flight request.
// UserID stays empty until the request is authenticated.
type Context struct {
	TraceID   string
	RequestID string
	UserID    string
}

type contextKey struct{}

// New starts a request context. traceID is reused when non-blank,
// otherwise a fresh one is generated. RequestID is always fresh.
func New(traceID string) Context {
	traceID = strings.TrimSpace(traceID)
	if traceID == "" {
		traceID = uuid.NewString()
	}
	return Context{
		TraceID:   traceID,
		RequestID: uuid.NewString(),
	}
}

// WithContext stores rc in ctx.
func WithContext(ctx context.Context, rc Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, contextKey{}, rc)
}

// FromContext returns the request context stored in ctx, if any.
func FromContext(ctx context.Context) (Context, bool) {
	if ctx == nil {
		return Context{}, false
	}
	rc, ok := ctx.Value(contextKey{}).(Context)
	return rc, ok
}

// Merge returns a child of ctx whose request context has the non-empty
// fields of partial applied over the current ones.
func Merge(ctx context.Context, partial Context) context.Context {
	rc, _ := FromContext(ctx)
	if partial.TraceID != "" {
		rc.TraceID = partial.TraceID
	}
	if partial.RequestID != "" {
		rc.RequestID = partial.RequestID
	}
	if partial.UserID != "" {
		rc.UserID = partial.UserID
	}
	return WithContext(ctx, rc)
}

// UserID is a shortcut for the authenticated user id, empty when anonymous.
func UserID(ctx context.Context) string {
	rc, _ := FromContext(ctx)
	return rc.UserID
}

// Fields returns the populated ids as alternating key/value pairs suitable
// for structured loggers.
func Fields(ctx context.Context) []any {
	rc, ok := FromContext(ctx)
	if !ok {
		return nil
	}
	out := make([]any, 0, 6)
	if rc.TraceID != "" {
		out = append(out, "trace_id", rc.TraceID)
	}
	if rc.RequestID != "" {
		out = append(out, "request_id", rc.RequestID)
	}
	if rc.UserID != "" {
		out = append(out, "user_id", rc.UserID)
	}
	return out
}
