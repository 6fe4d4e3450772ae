package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/authkeeper/internal/server/config"
)

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Port:                  freePort(t),
		Environment:           config.EnvTest,
		DatabaseDSN:           "sqlite:" + filepath.Join(t.TempDir(), "app.db"),
		JWTSecret:             "jwt-secret",
		CookieSecret:          "0123456789abcdef0123456789abcdef",
		CORSOrigin:            "http://localhost:3000",
		LogLevel:              "error",
		LogFormat:             "json",
		TraceExporter:         "none",
		MetricsEnabled:        true,
		BcryptCost:            4,
		AccessTokenExpiresIn:  "15m",
		RefreshTokenExpiresIn: "7d",
		AccessTokenTTL:        15 * time.Minute,
		RefreshTokenTTL:       7 * 24 * time.Hour,
	}
}

func waitHealthy(t *testing.T, base string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get(base + "/health")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("server at %s never became healthy: %v", base, err)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestApp_RunServesAndStops(t *testing.T) {
	cfg := testConfig(t)
	app, err := newApp(context.Background(), cfg, io.Discard)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	base := "http://127.0.0.1:" + strconv.Itoa(cfg.Port)
	waitHealthy(t, base)

	resp, err := http.Post(base+"/auth/register", "application/json",
		strings.NewReader(`{"name":"Jane Roe","email":"jane@x.com","password":"Secret12"}`))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = http.Get(base + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), `auth_operations_total{`)
	assert.Contains(t, string(body), `operation="register"`)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("app did not stop")
	}
}

func TestNewApp_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"bad log format", func(c *config.Config) { c.LogFormat = "xml" }, "logger init error"},
		{"unsupported dsn", func(c *config.Config) { c.DatabaseDSN = "mysql://localhost/db" }, "db init error"},
		{"unknown exporter", func(c *config.Config) { c.TraceExporter = "zipkin" }, "telemetry init error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(cfg)

			_, err := newApp(context.Background(), cfg, io.Discard)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestApp_PortInUse(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer ln.Close()

	cfg := testConfig(t)
	cfg.Port = ln.Addr().(*net.TCPAddr).Port

	app, err := newApp(context.Background(), cfg, io.Discard)
	require.NoError(t, err)

	err = app.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http server")
}
