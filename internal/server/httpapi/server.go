// Package httpapi is the HTTP surface of the auth service: gin routes for
// register, login, me, refresh and logout, signed token cookies and the
// uniform error envelope.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
)

const shutdownTimeout = 5 * time.Second

// SessionManager is the session logic behind the auth routes.
type SessionManager interface {
	Register(ctx context.Context, in services.RegisterInput) (*services.RegisterResult, error)
	Login(ctx context.Context, email, password string) (*services.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error)
	Logout(ctx context.Context) string
}

// Authenticator resolves the identity behind an access token.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (context.Context, *auth.Identity, error)
}

// Pinger reports store health. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Options struct {
	Addr         string
	CORSOrigin   string
	Production   bool
	CookieSecret []byte
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
	// Metrics is mounted on GET /metrics when not nil.
	Metrics http.Handler
}

type Server struct {
	opts     Options
	sessions SessionManager
	guard    Authenticator
	store    Pinger
	log      logging.Logger
	cookies  *cookieManager
	validate *validator.Validate
	engine   *gin.Engine
	srv      *http.Server
	now      func() time.Time
}

func NewServer(opts Options, sessions SessionManager, guard Authenticator, store Pinger, log logging.Logger) *Server {
	s := &Server{
		opts:     opts,
		sessions: sessions,
		guard:    guard,
		store:    store,
		log:      log.With("module", "http_server"),
		cookies:  newCookieManager(opts.CookieSecret, opts.AccessTTL, opts.RefreshTTL, opts.Production),
		validate: newValidator(),
		now:      time.Now,
	}
	s.engine = s.routes()
	s.srv = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("http listen %s: %w", s.opts.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then drains
// in-flight requests for up to shutdownTimeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.srv.Serve(ln)
	}()

	s.log.Info(ctx, "Starting HTTP server", "address", ln.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info(ctx, "Stopping HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
