// Package cli provides the interactive gophauth command-line client.
//
// It wires configuration, the HTTP API client and an interactive REPL.
// A background watcher polls /health and shows whether the server is
// reachable in the prompt.
//
// Commands:
//   - signup / login / logout
//   - me, passwd, rename, delete (require a session)
//   - otp, verify, reset (one-time password flows)
//   - help, exit
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
