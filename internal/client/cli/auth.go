package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/authkeeper/internal/client/client"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts for name, email and password and creates the account.
// The server signs the new user in, so the session starts right away.
func (a *App) Register(ctx context.Context) error {
	name, err := getSimpleText(a.reader, "Enter name", a.out)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer wipe(password)

	u, err := a.api.Register(ctx, name, email, string(password))
	if err != nil {
		a.report("Registration failed", err)
		return err
	}

	a.userName = u.Email
	fmt.Fprintf(a.out, "Registered %s (%s)\n", u.Name, u.Email)
	return nil
}

// Login prompts for credentials and starts a session.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer wipe(password)

	u, err := a.api.Login(ctx, email, string(password))
	if err != nil {
		a.report("Login unsuccessful", err)
		return err
	}

	a.userName = u.Email
	fmt.Fprintf(a.out, "Welcome, %s\n", u.Name)
	return nil
}

// Me prints the current user. An expired access token is refreshed once
// before giving up.
func (a *App) Me(ctx context.Context) error {
	p, err := a.api.Me(ctx)
	if errors.Is(err, client.ErrUnauthorized) && a.isLoggedIn() {
		if rerr := a.api.Refresh(ctx); rerr == nil {
			p, err = a.api.Me(ctx)
		}
	}
	if err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			a.userName = ""
		}
		a.report("Not signed in", err)
		return err
	}

	fmt.Fprintf(a.out, "Name:  %s\nEmail: %s\n", p.Name, p.Email)
	return nil
}

// Refresh rotates the session tokens.
func (a *App) Refresh(ctx context.Context) error {
	if err := a.api.Refresh(ctx); err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			a.userName = ""
		}
		a.report("Refresh failed", err)
		return err
	}
	fmt.Fprintln(a.out, "Session refreshed")
	return nil
}

// Logout asks the server to clear the session cookies and forgets the user.
func (a *App) Logout(ctx context.Context) error {
	if err := a.api.Logout(ctx); err != nil {
		a.report("Logout failed", err)
		return err
	}
	a.userName = ""
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *App) report(prefix string, err error) {
	var apiErr *client.APIError
	switch {
	case errors.As(err, &apiErr) && apiErr.Message != "":
		fmt.Fprintf(a.out, "%s: %s\n", prefix, apiErr.Message)
	case errors.Is(err, client.ErrUnavailable):
		fmt.Fprintf(a.out, "%s: server unavailable\n", prefix)
	default:
		fmt.Fprintf(a.out, "%s: %v\n", prefix, err)
	}
}
