// Package client talks to the Orbit auth backend and bootstraps local
// persistence for the CLI.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic API contract (see AuthAPI): ExchangeCode, Refresh,
//     Logout, Me and AuthorizeURL.
//  2. A JSON-over-HTTP implementation (see HTTPClient). Code exchange and
//     refresh are sent exactly once since authorization codes and refresh
//     tokens are single-use; Me, Logout and AuthorizeURL go through a
//     retrying transport.
//  3. Local persistence bootstrap utilities (InitDatabase, RunMigrations),
//     wiring an SQLite database and applying embedded goose migrations.
//
// # Error Handling
//
// Failures are exposed as sentinel errors matched with errors.Is:
// ErrInvalidInput (rejected before any network access), ErrUnauthorized
// (401/403), ErrBadRequest (other 4xx), ErrUnavailable (5xx, transport or
// undecodable responses). Non-2xx responses are returned as *APIError,
// which carries the server's {error, code} body and unwraps to the matching
// sentinel.
//
// Concurrency & Contexts
//
// HTTPClient is safe for concurrent use. All operations accept
// context.Context and honor cancellation/timeouts.
package client
