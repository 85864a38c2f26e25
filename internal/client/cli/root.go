package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/orbit/internal/client/gate"
	"github.com/dmitrijs2005/orbit/internal/client/models"
)

func (a *App) getStatus() string {
	s := ""
	if a.store != nil {
		if u, ok := a.store.User(); ok {
			s = u.DisplayName() + " "
		}
	}
	if a.nav != nil {
		s = s + string(a.nav.Current())
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

// onNavigate announces the screen the gate moved to.
func (a *App) onNavigate(r gate.Route) {
	switch r {
	case gate.RouteLogin:
		printlnFn("You are logged out. Use 'url <google|apple>' and then 'login <provider>'.")
	case gate.RouteProfileSetup:
		printlnFn("Welcome! Finish setting up your profile, then type 'profile-done'.")
	case gate.RouteMain:
		name := ""
		if u, ok := a.store.User(); ok {
			name = u.DisplayName()
		}
		printlnFn(fmt.Sprintf("Signed in as %s.", name))
	}
}

func (a *App) Root(ctx context.Context) {
	printlnFn("Welcome to Orbit CLI (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.getStatus, scanner)
}

func describeSession(s models.Session) string {
	return fmt.Sprintf("expires %s", s.Expiry().Format("2006-01-02 15:04:05 MST"))
}
