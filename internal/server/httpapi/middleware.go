package httpapi

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmitrijs2005/authkeeper/internal/requestctx"
	"github.com/dmitrijs2005/authkeeper/internal/telemetry"
)

// requestContext attaches a fresh request context, reusing an inbound trace
// id, and echoes both ids on the response.
func (s *Server) requestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		rc := requestctx.New(c.GetHeader(requestctx.TraceIDHeader))
		c.Request = c.Request.WithContext(requestctx.WithContext(c.Request.Context(), rc))

		c.Header(requestctx.TraceIDHeader, rc.TraceID)
		c.Header(requestctx.RequestIDHeader, rc.RequestID)
		c.Next()
	}
}

func (s *Server) tracing() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		ctx, span := telemetry.StartSpan(c.Request.Context(), c.Request.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", c.Request.Method),
				attribute.String("http.route", route),
			))
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.response.status_code", status))
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}

// requestLogger writes one line per request. Probe endpoints are skipped.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.Request.URL.Path
		if path == "/health" || path == "/metrics" {
			return
		}

		status := c.Writer.Status()
		args := []any{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}

		ctx := c.Request.Context()
		switch {
		case status >= http.StatusInternalServerError:
			s.log.Error(ctx, "Request completed", args...)
		case status >= http.StatusBadRequest:
			s.log.Warn(ctx, "Request completed", args...)
		default:
			s.log.Info(ctx, "Request completed", args...)
		}
	}
}

// recovery turns a panic into the 500 envelope.
func (s *Server) recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				s.log.Error(c.Request.Context(), "Panic recovered",
					"panic", fmt.Sprintf("%v", r),
					"stack", string(debug.Stack()))
				s.abortWithError(c, fmt.Errorf("panic: %v", r))
			}
		}()
		c.Next()
	}
}

// requireAuth runs the guard on the access cookie. A tampered or expired
// cookie is treated like a missing one.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, _, err := s.guard.Authenticate(c.Request.Context(), s.cookies.accessToken(c))
		if err != nil {
			s.abortWithError(c, err)
			return
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// cors allows a single origin to call the API with credentials.
func cors(origin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Add("Vary", "Origin")

		if o := c.GetHeader("Origin"); o != "" && o == origin {
			h.Set("Access-Control-Allow-Origin", o)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, "+requestctx.TraceIDHeader)
			h.Set("Access-Control-Expose-Headers", requestctx.TraceIDHeader+", "+requestctx.RequestIDHeader)
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
