package session

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/orbit/internal/client/models"
)

const refreshKey = "refresh"

var errNoRefresher = errors.New("no refresher configured")

// RefreshAccessToken rotates the session and returns the new access token.
//
// Only one refresh request is in flight at a time; callers arriving while
// it runs wait for and share its result. The store is updated and persisted
// before any caller is released. A failed refresh logs the user out and
// records the reason in State().Error.
//
// Cancelling ctx releases this caller with ("", false) but never cancels
// the shared request.
func (s *Store) RefreshAccessToken(ctx context.Context) (string, bool) {
	s.mu.RLock()
	authenticated := models.IsAuthenticated(s.auth)
	sess, _ := models.SessionOf(s.auth)
	s.mu.RUnlock()

	if !authenticated || sess.RefreshToken == "" {
		if authenticated {
			s.ClearAuth(ctx)
		}
		return "", false
	}

	ch := s.group.DoChan(refreshKey, func() (any, error) {
		return s.doRefresh(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", false
		}
		return res.Val.(string), true
	case <-ctx.Done():
		return "", false
	}
}

func (s *Store) doRefresh(ctx context.Context) (string, error) {
	var (
		refreshToken string
		isNewUser    *bool
		epoch        uint64
	)
	s.mutate(func() {
		if sess, ok := models.SessionOf(s.auth); ok {
			refreshToken = sess.RefreshToken
		}
		isNewUser = copyBool(s.isNewUser)
		epoch = s.epoch
		s.refreshing = true
		s.loading = true
		s.err = ""
	}, nil)

	if refreshToken == "" {
		s.ClearAuth(ctx)
		return "", errors.New("no refresh token")
	}

	if s.refresher == nil {
		s.fail(ctx, errNoRefresher, epoch)
		return "", errNoRefresher
	}

	res, err := s.refresher.Refresh(ctx, refreshToken)
	if err == nil {
		err = s.setSession(ctx, res.User, res.Session, isNewUser, &epoch)
	}
	if errors.Is(err, errSuperseded) {
		s.log.Info(ctx, "discarding refresh result, store was cleared meanwhile")
		return "", err
	}
	if err != nil {
		s.fail(ctx, err, epoch)
		return "", err
	}

	s.log.Info(ctx, "session refreshed", "user_id", res.User.ID, "expires_at", res.Session.ExpiresAt)
	return res.Session.AccessToken, nil
}

// fail logs out with the refresh error unless the store was already
// cleared after the refresh started.
func (s *Store) fail(ctx context.Context, err error, epoch uint64) {
	s.log.Warn(ctx, "token refresh failed", "error", err)
	s.clearAt(ctx, "Refresh failed: "+err.Error(), &epoch)
}
