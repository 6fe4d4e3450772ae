package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/dmitrijs2005/authkeeper/internal/client/client"
)

func stubInputs(t *testing.T, lines []string, password []byte) {
	t.Helper()
	origST, origGP := getSimpleText, getPassword
	getSimpleText = func(_ *bufio.Reader, _ string, _ io.Writer) (string, error) {
		if len(lines) == 0 {
			return "", io.EOF
		}
		l := lines[0]
		lines = lines[1:]
		return l, nil
	}
	getPassword = func(_ io.Writer) ([]byte, error) { return password, nil }
	t.Cleanup(func() {
		getSimpleText = origST
		getPassword = origGP
	})
}

type fakeAPI struct {
	regName, regEmail, regPass string
	regErr                     error

	loginEmail, loginPass string
	loginErr              error

	meErrs     []error
	meCalls    int
	refreshErr error
	refreshed  int
	logoutErr  error
	loggedOut  bool
}

func (f *fakeAPI) Register(_ context.Context, name, email, password string) (*client.User, error) {
	f.regName, f.regEmail, f.regPass = name, email, password
	if f.regErr != nil {
		return nil, f.regErr
	}
	return &client.User{ID: "u1", Name: name, Email: email}, nil
}

func (f *fakeAPI) Login(_ context.Context, email, password string) (*client.User, error) {
	f.loginEmail, f.loginPass = email, password
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &client.User{ID: "u1", Name: "Jane Roe", Email: email}, nil
}

func (f *fakeAPI) Me(context.Context) (*client.Profile, error) {
	i := f.meCalls
	f.meCalls++
	if i < len(f.meErrs) && f.meErrs[i] != nil {
		return nil, f.meErrs[i]
	}
	return &client.Profile{Name: "Jane Roe", Email: "jane@x.com"}, nil
}

func (f *fakeAPI) Refresh(context.Context) error {
	f.refreshed++
	return f.refreshErr
}

func (f *fakeAPI) Logout(context.Context) error {
	f.loggedOut = true
	return f.logoutErr
}

func newTestApp(api client.Client) (*App, *bytes.Buffer) {
	var out bytes.Buffer
	return &App{api: api, out: &out}, &out
}

var unauthorized = &client.APIError{StatusCode: http.StatusUnauthorized, Message: "Invalid or expired token"}

func TestRegister_Success(t *testing.T) {
	f := &fakeAPI{}
	a, out := newTestApp(f)
	stubInputs(t, []string{"Jane Roe", "jane@x.com"}, []byte("Secret12"))

	if err := a.Register(context.Background()); err != nil {
		t.Fatalf("Register err: %v", err)
	}
	if f.regName != "Jane Roe" || f.regEmail != "jane@x.com" || f.regPass != "Secret12" {
		t.Fatalf("Register args mismatch: %q %q %q", f.regName, f.regEmail, f.regPass)
	}
	if !a.isLoggedIn() || a.userName != "jane@x.com" {
		t.Fatalf("expected signed-in user, got %q", a.userName)
	}
	if !strings.Contains(out.String(), "Registered Jane Roe") {
		t.Fatalf("unexpected output: %q", out.String())
	}
}

func TestRegister_ServerMessageShown(t *testing.T) {
	f := &fakeAPI{regErr: &client.APIError{StatusCode: http.StatusConflict, Message: "Registration failed, please contact support"}}
	a, out := newTestApp(f)
	stubInputs(t, []string{"Jane Roe", "jane@x.com"}, []byte("Secret12"))

	if err := a.Register(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if a.isLoggedIn() {
		t.Fatal("must not be signed in after a failed registration")
	}
	if !strings.Contains(out.String(), "please contact support") {
		t.Fatalf("unexpected output: %q", out.String())
	}
}

func TestLogin_SuccessAndFailure(t *testing.T) {
	f := &fakeAPI{}
	a, _ := newTestApp(f)
	stubInputs(t, []string{"jane@x.com"}, []byte("Secret12"))

	if err := a.Login(context.Background()); err != nil {
		t.Fatalf("Login err: %v", err)
	}
	if f.loginEmail != "jane@x.com" || f.loginPass != "Secret12" {
		t.Fatalf("Login args mismatch: %q %q", f.loginEmail, f.loginPass)
	}
	if a.userName != "jane@x.com" {
		t.Fatalf("userName = %q", a.userName)
	}

	f2 := &fakeAPI{loginErr: fmt.Errorf("%w: dial tcp: refused", client.ErrUnavailable)}
	b, out := newTestApp(f2)
	stubInputs(t, []string{"jane@x.com"}, []byte("Secret12"))

	if err := b.Login(context.Background()); !errors.Is(err, client.ErrUnavailable) {
		t.Fatalf("want ErrUnavailable, got %v", err)
	}
	if !strings.Contains(out.String(), "server unavailable") {
		t.Fatalf("unexpected output: %q", out.String())
	}
}

func TestMe_RefreshesOnceOnUnauthorized(t *testing.T) {
	f := &fakeAPI{meErrs: []error{unauthorized}}
	a, out := newTestApp(f)
	a.userName = "jane@x.com"

	if err := a.Me(context.Background()); err != nil {
		t.Fatalf("Me err: %v", err)
	}
	if f.refreshed != 1 || f.meCalls != 2 {
		t.Fatalf("refreshed=%d meCalls=%d, want 1 and 2", f.refreshed, f.meCalls)
	}
	if !strings.Contains(out.String(), "Email: jane@x.com") {
		t.Fatalf("unexpected output: %q", out.String())
	}
}

func TestMe_RefreshFailsSignsOut(t *testing.T) {
	f := &fakeAPI{meErrs: []error{unauthorized}, refreshErr: unauthorized}
	a, _ := newTestApp(f)
	a.userName = "jane@x.com"

	if err := a.Me(context.Background()); !errors.Is(err, client.ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized, got %v", err)
	}
	if a.isLoggedIn() {
		t.Fatal("expected to be signed out")
	}
}

func TestMe_AnonymousDoesNotRefresh(t *testing.T) {
	f := &fakeAPI{meErrs: []error{unauthorized}}
	a, _ := newTestApp(f)

	_ = a.Me(context.Background())
	if f.refreshed != 0 {
		t.Fatalf("refresh must not be attempted without a session, got %d", f.refreshed)
	}
}

func TestLogout(t *testing.T) {
	f := &fakeAPI{}
	a, _ := newTestApp(f)
	a.userName = "jane@x.com"

	if err := a.Logout(context.Background()); err != nil {
		t.Fatalf("Logout err: %v", err)
	}
	if !f.loggedOut {
		t.Fatal("Logout not called")
	}
	if a.isLoggedIn() {
		t.Fatal("userName not cleared")
	}
}

func TestLogout_ErrorPropagates(t *testing.T) {
	f := &fakeAPI{logoutErr: errors.New("boom")}
	a, _ := newTestApp(f)
	a.userName = "jane@x.com"

	if err := a.Logout(context.Background()); err == nil {
		t.Fatal("want error from Logout")
	}
	if !a.isLoggedIn() {
		t.Fatal("a failed logout must keep the session")
	}
}

func TestGetStatus(t *testing.T) {
	a := &App{}
	if got := a.getStatus(); got != "" {
		t.Fatalf("want empty status, got %q", got)
	}
	a.userName = "alice@x.com"
	if got, want := a.getStatus(), "(alice@x.com) "; got != want {
		t.Fatalf("want %q, got %q", want, got)
	}
}
