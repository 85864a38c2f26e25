// Package session owns the authenticated-session state of the client.
//
// Store is the single owner of AuthState: the current user and session,
// the one-shot new-user flag, and the loading/refreshing/error status
// shown to the UI. Every successful authentication or refresh enters
// through SetUserAndSession, and every logout path ends in ClearAuth. Both
// write through to a metadata.Repository before listeners are notified, so
// storage and memory agree whenever an observer runs.
//
// RefreshAccessToken rotates the session. At most one refresh request is in
// flight per Store; concurrent callers share its outcome.
//
// A Store is created per process and passed explicitly to the components
// that need it. All methods are safe for concurrent use.
package session
