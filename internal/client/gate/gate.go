// Package gate decides which screen the client should show for the current
// session state and drives navigation when that decision changes.
package gate

import (
	"github.com/dmitrijs2005/orbit/internal/client/models"
	"github.com/dmitrijs2005/orbit/internal/client/session"
)

// Route identifies a screen.
type Route string

const (
	RouteRoot         Route = "/"
	RouteLogin        Route = "/login"
	RouteProfileSetup Route = "/profile"
	RouteMain         Route = "/(tabs)"
)

// Decision is the outcome of Decide. Navigate is false when the client
// should stay where it is.
type Decision struct {
	Target   Route
	Navigate bool
}

func stay(current Route) Decision {
	return Decision{Target: current}
}

func goTo(current, target Route) Decision {
	if current == target {
		return stay(current)
	}
	return Decision{Target: target, Navigate: true}
}

// unauthenticatedOnly lists routes a signed-in user is moved away from.
func unauthenticatedOnly(r Route) bool {
	return r == RouteRoot || r == RouteLogin
}

// Decide is a pure function of the snapshot and the current route.
// Evaluating it again after navigating to Target yields Navigate=false.
func Decide(snap session.Snapshot, current Route) Decision {
	if snap.IsLoading {
		return stay(current)
	}

	if user, ok := models.UserOf(snap.Auth); ok {
		newUser := snap.IsNewUser != nil && *snap.IsNewUser
		if !user.ProfileExists || newUser {
			return goTo(current, RouteProfileSetup)
		}
		if unauthenticatedOnly(current) {
			return goTo(current, RouteMain)
		}
		return stay(current)
	}

	return goTo(current, RouteLogin)
}
