package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	AuthorizeURL(ctx context.Context, provider string) error
	Login(ctx context.Context, provider string) error
	Status(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Token(ctx context.Context) error
	Refresh(ctx context.Context) error
	ProfileDone(ctx context.Context) error
	Logout(ctx context.Context) error
}

// runREPL starts a simple read–eval–print loop for the Orbit CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command and dispatches to methods on 'a'. The loop exits on scanner EOF
// or when the user types "exit" or "quit".
//
//	Not logged in:
//	  - url <provider>    print the consent URL for google or apple
//	  - login [provider]  paste an authorization code
//	  - status            show session state
//
//	Logged in:
//	  - whoami            fetch the current user from the server
//	  - token             print a valid access token
//	  - refresh           rotate the session tokens
//	  - profile-done      finish new-user profile setup
//	  - logout            end the session
//
// Errors returned by command handlers are ignored here; handlers report
// their own errors.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("orbit> %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: status, whoami, token, refresh, profile-done, logout, exit")
			} else {
				printlnFn("Available commands: url <google|apple>, login [provider], status, exit")
			}

		case "url":
			if len(args) == 0 {
				printlnFn("Usage: url <google|apple>")
				continue
			}
			_ = a.AuthorizeURL(ctx, args[0])

		case "login":
			provider := ""
			if len(args) > 0 {
				provider = args[0]
			}
			_ = a.Login(ctx, provider)

		case "status":
			_ = a.Status(ctx)

		case "whoami":
			_ = a.WhoAmI(ctx)

		case "token":
			_ = a.Token(ctx)

		case "refresh":
			_ = a.Refresh(ctx)

		case "profile-done":
			_ = a.ProfileDone(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
