// Package client is the HTTP client authctl uses to talk to the auth server.
//
// HTTPClient keeps the access and refresh cookies the server sets in a
// cookie jar, so calls made through one client share one session. Every
// request carries a fresh x-trace-id for correlation with server logs.
//
// Transport failures wrap ErrUnavailable. Error responses are returned as
// *APIError; a 401 also matches ErrUnauthorized with errors.Is.
package client
