// Package cli provides authctl, the interactive command-line client for the
// auth server.
//
// A session lives for the lifetime of the process: the cookies set on
// register or login are kept by the HTTP client and sent on later commands.
// Passwords are read from the terminal without echo.
//
// The REPL is started via App.Root(ctx), which blocks until the user exits.
// See runREPL for the command list.
package cli
