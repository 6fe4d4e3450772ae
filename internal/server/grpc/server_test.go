package grpc

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
)

type nopLogger struct{}

func (n nopLogger) Debug(context.Context, string, ...any) {}
func (n nopLogger) Info(context.Context, string, ...any)  {}
func (n nopLogger) Warn(context.Context, string, ...any)  {}
func (n nopLogger) Error(context.Context, string, ...any) {}
func (n nopLogger) With(...any) logging.Logger            { return n }

// flakyStore fails pings while down is set.
type flakyStore struct {
	down atomic.Bool
}

func (f *flakyStore) PingContext(context.Context) error {
	if f.down.Load() {
		return errors.New("connection refused")
	}
	return nil
}

func startServer(t *testing.T, store Pinger, interval time.Duration) (healthpb.HealthClient, context.CancelFunc, <-chan error) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	srv := NewHealthServer(ln.Addr().String(), nopLogger{}, store, interval)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.Serve(ctx, ln)
	}()

	conn, err := grpc.NewClient(ln.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		cancel()
		t.Fatalf("grpc.NewClient: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	return healthpb.NewHealthClient(conn), cancel, done
}

func check(t *testing.T, c healthpb.HealthClient, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	resp, err := c.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		t.Fatalf("Check(%q): %v", service, err)
	}
	return resp.GetStatus()
}

func TestHealth_ServingWhenStoreUp(t *testing.T) {
	client, cancel, _ := startServer(t, &flakyStore{}, time.Hour)
	defer cancel()

	if got := check(t, client, ""); got != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("overall status = %v, want SERVING", got)
	}
	if got := check(t, client, ServiceName); got != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("%s status = %v, want SERVING", ServiceName, got)
	}
}

func TestHealth_FollowsStorePings(t *testing.T) {
	store := &flakyStore{}
	store.down.Store(true)

	client, cancel, _ := startServer(t, store, 20*time.Millisecond)
	defer cancel()

	if got := check(t, client, ServiceName); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("status = %v, want NOT_SERVING", got)
	}

	store.down.Store(false)

	deadline := time.Now().Add(2 * time.Second)
	for check(t, client, ServiceName) != healthpb.HealthCheckResponse_SERVING {
		if time.Now().After(deadline) {
			t.Fatal("status did not recover to SERVING")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHealth_EchoesTraceID(t *testing.T) {
	client, cancel, _ := startServer(t, &flakyStore{}, time.Hour)
	defer cancel()

	ctx, done := context.WithTimeout(context.Background(), 2*time.Second)
	defer done()
	ctx = metadata.AppendToOutgoingContext(ctx, "x-trace-id", "trace-123")

	var header metadata.MD
	if _, err := client.Check(ctx, &healthpb.HealthCheckRequest{}, grpc.Header(&header)); err != nil {
		t.Fatalf("Check: %v", err)
	}

	if got := header.Get("x-trace-id"); len(got) != 1 || got[0] != "trace-123" {
		t.Fatalf("x-trace-id header = %v, want [trace-123]", got)
	}
	if got := header.Get("x-request-id"); len(got) != 1 || got[0] == "" {
		t.Fatalf("x-request-id header = %v, want a generated id", got)
	}
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	srv := NewHealthServer("127.0.0.1:0", nopLogger{}, &flakyStore{}, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx)
	}()

	select {
	case err := <-done:
		t.Fatalf("server exited too early: %v", err)
	case <-time.After(150 * time.Millisecond):
	}

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error on graceful stop: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop within timeout after context cancel")
	}
}

func TestRun_ReturnsErrorOnBadAddress(t *testing.T) {
	t.Parallel()

	srv := NewHealthServer("127.0.0.1:99999", nopLogger{}, &flakyStore{}, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := srv.Run(ctx); err == nil {
		t.Fatal("expected error from Run on bad address, got nil")
	}
}
