// Package client talks to the gophauth HTTP API.
//
// HTTPClient implements Client over net/http. It unwraps the {"data": ...}
// envelope, turns {"error": ...} replies into *APIError and keeps the bearer
// token of the current session. Transport failures are reported as
// ErrUnavailable; 401 replies match ErrUnauthorized with errors.Is.
package client
