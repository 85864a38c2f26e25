package gate

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/orbit/internal/client/session"
	"github.com/dmitrijs2005/orbit/internal/logging"
)

// Source is the part of session.Store the navigator observes.
type Source interface {
	State() session.Snapshot
	Subscribe(l session.Listener) (unsubscribe func())
}

// Navigator re-evaluates Decide on every state change or route change and
// calls navigate only when the decision asks for it.
type Navigator struct {
	mu       sync.Mutex
	current  Route
	last     session.Snapshot
	navigate func(Route)
	log      logging.Logger

	unsubscribe func()
}

// NewNavigator starts observing src from the initial route. navigate is
// called synchronously from the goroutine that changed the state.
func NewNavigator(src Source, initial Route, navigate func(Route), log logging.Logger) *Navigator {
	n := &Navigator{
		current:  initial,
		navigate: navigate,
		log:      log.With("module", "gate"),
	}
	n.unsubscribe = src.Subscribe(n.onState)
	n.onState(src.State())
	return n
}

// Current returns the route the navigator last moved to.
func (n *Navigator) Current() Route {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// SetRoute records a route change made outside the navigator and
// re-evaluates the decision against the latest state.
func (n *Navigator) SetRoute(r Route) {
	n.mu.Lock()
	n.current = r
	d := n.decideLocked()
	n.mu.Unlock()

	n.follow(d)
}

// Close stops observing the store.
func (n *Navigator) Close() {
	n.unsubscribe()
}

func (n *Navigator) onState(snap session.Snapshot) {
	n.mu.Lock()
	n.last = snap
	d := n.decideLocked()
	n.mu.Unlock()

	n.follow(d)
}

// decideLocked evaluates the current route against the last snapshot and
// moves current when a navigation is due. n.mu must be held so the route
// and snapshot are read together.
func (n *Navigator) decideLocked() Decision {
	d := Decide(n.last, n.current)
	if d.Navigate {
		n.current = d.Target
	}
	return d
}

func (n *Navigator) follow(d Decision) {
	if d.Navigate {
		n.log.Debug(context.Background(), "navigating", "to", string(d.Target))
		n.navigate(d.Target)
	}
}
