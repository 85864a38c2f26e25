// Package cli provides the interactive Orbit command-line client.
//
// It wires configuration, the encrypted local session storage, the backend
// API client and the route gate into a small REPL. The user obtains a
// provider consent URL with "url", pastes the authorization code back with
// "login", and the gate announces which screen the client would show next.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
