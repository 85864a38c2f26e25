package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/orbit/internal/client/client"
	"github.com/dmitrijs2005/orbit/internal/client/models"
	"github.com/dmitrijs2005/orbit/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/orbit/internal/logging"
	"golang.org/x/sync/singleflight"
)

var (
	ErrIncompleteSession = errors.New("session must carry both tokens")
	ErrExpiredSession    = errors.New("session already expired")

	// errSuperseded reports a write dropped because the store was cleared
	// after the write was started.
	errSuperseded = errors.New("auth state changed while refreshing")
)

// Refresher performs the network half of a token refresh.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*client.AuthResult, error)
}

// Snapshot is a read-only copy of the store state.
type Snapshot struct {
	Auth         models.AuthState
	IsNewUser    *bool
	IsLoading    bool
	IsRefreshing bool
	Error        string
}

func (s Snapshot) IsAuthenticated() bool {
	return models.IsAuthenticated(s.Auth)
}

// Listener receives a Snapshot after every state change. Listeners run
// synchronously and must not mutate the store.
type Listener func(Snapshot)

type Store struct {
	// writeMu serializes mutations together with their persistence and
	// notification so listeners observe changes in order.
	writeMu sync.Mutex

	mu         sync.RWMutex
	auth       models.AuthState
	isNewUser  *bool
	loading    bool
	refreshing bool
	err        string
	// epoch is bumped by every clear so in-flight refreshes can tell
	// whether the session they started from still exists.
	epoch uint64

	subsMu  sync.Mutex
	subs    map[uint64]Listener
	nextSub uint64

	repo      metadata.Repository
	refresher Refresher
	group     singleflight.Group
	now       func() time.Time
	log       logging.Logger
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithLogger(log logging.Logger) Option {
	return func(s *Store) { s.log = log }
}

func WithRefresher(r Refresher) Option {
	return func(s *Store) { s.refresher = r }
}

// NewStore returns an empty, logged-out store persisting to repo. Call
// Hydrate to restore a previous session.
func NewStore(repo metadata.Repository, opts ...Option) *Store {
	s := &Store{
		auth: models.LoggedOut{},
		subs: make(map[uint64]Listener),
		repo: repo,
		now:  time.Now,
		log:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("module", "session")
	return s
}

func copyBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Auth:         s.auth,
		IsNewUser:    copyBool(s.isNewUser),
		IsLoading:    s.loading,
		IsRefreshing: s.refreshing,
		Error:        s.err,
	}
}

// State returns a copy of the current state.
func (s *Store) State() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) User() (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.UserOf(s.auth)
}

func (s *Store) Session() (models.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.SessionOf(s.auth)
}

func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.IsAuthenticated(s.auth)
}

// AccessToken returns the access token only while authenticated and before
// expiry. It never triggers a refresh.
func (s *Store) AccessToken() (string, bool) {
	sess, ok := s.Session()
	if !ok || sess.ExpiresAt <= s.now().UnixMilli() {
		return "", false
	}
	return sess.AccessToken, true
}

// RefreshToken returns the refresh token while authenticated.
func (s *Store) RefreshToken() (string, bool) {
	sess, ok := s.Session()
	if !ok || sess.RefreshToken == "" {
		return "", false
	}
	return sess.RefreshToken, true
}

// mutate applies fn under the state lock, then runs after (persistence)
// and notifies listeners, all while holding writeMu.
func (s *Store) mutate(fn func(), after func()) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	fn()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if after != nil {
		after()
	}
	s.notify(snap)
}

// SetUserAndSession replaces the user and session, marks the store
// authenticated and clears error, loading and refreshing. isNewUser nil
// means unset. A session missing a token or already expired is rejected.
func (s *Store) SetUserAndSession(ctx context.Context, user models.User, sess models.Session, isNewUser *bool) error {
	return s.setSession(ctx, user, sess, isNewUser, nil)
}

// setSession installs sess. When epoch is non-nil the write only applies
// if no clear happened since epoch was read.
func (s *Store) setSession(ctx context.Context, user models.User, sess models.Session, isNewUser *bool, epoch *uint64) error {
	if !sess.Complete() {
		return ErrIncompleteSession
	}
	if !sess.Valid(s.now()) {
		return ErrExpiredSession
	}

	flag := copyBool(isNewUser)
	stale := false
	s.mutate(func() {
		if epoch != nil && *epoch != s.epoch {
			stale = true
			return
		}
		s.auth = models.LoggedIn{User: user, Session: sess}
		s.isNewUser = flag
		s.loading = false
		s.refreshing = false
		s.err = ""
	}, func() {
		if !stale {
			s.persist(ctx, user, sess, flag)
		}
	})
	if stale {
		return errSuperseded
	}
	return nil
}

// ClearAuth resets the store to its initial state and deletes the
// persisted keys. Calling it while logged out is safe.
func (s *Store) ClearAuth(ctx context.Context) {
	s.clearAt(ctx, "", nil)
}

// clearAt logs out unless epoch is non-nil and another clear already ran
// since it was read.
func (s *Store) clearAt(ctx context.Context, errMsg string, epoch *uint64) {
	stale := false
	s.mutate(func() {
		if epoch != nil && *epoch != s.epoch {
			stale = true
			return
		}
		s.epoch++
		s.auth = models.LoggedOut{}
		s.isNewUser = nil
		s.loading = false
		s.refreshing = false
		s.err = errMsg
	}, func() {
		if !stale {
			s.deleteKeys(ctx)
		}
	})
}

// SetError records a user-visible error and stops any loading indicator.
func (s *Store) SetError(msg string) {
	s.mutate(func() {
		s.err = msg
		s.loading = false
		s.refreshing = false
	}, nil)
}

func (s *Store) SetLoading(loading bool) {
	s.mutate(func() { s.loading = loading }, nil)
}

// ClearNewUser drops the one-shot new-user flag once profile setup is done.
func (s *Store) ClearNewUser(ctx context.Context) {
	s.mutate(func() { s.isNewUser = nil }, func() {
		if err := s.repo.Delete(ctx, KeyIsNewUser); err != nil {
			s.log.Warn(ctx, "failed to delete persisted key", "key", KeyIsNewUser, "error", err)
		}
	})
}

// Subscribe registers l for change notifications. The returned function
// removes it and may be called more than once.
func (s *Store) Subscribe(l Listener) (unsubscribe func()) {
	s.subsMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = l
	s.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subsMu.Lock()
			delete(s.subs, id)
			s.subsMu.Unlock()
		})
	}
}

func (s *Store) listenerCount() int {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	return len(s.subs)
}

func (s *Store) notify(snap Snapshot) {
	s.subsMu.Lock()
	ls := make([]Listener, 0, len(s.subs))
	for _, l := range s.subs {
		ls = append(ls, l)
	}
	s.subsMu.Unlock()

	for _, l := range ls {
		l(snap)
	}
}

// Hydrate restores a persisted session. Expired, partial or undecodable
// data is deleted and leaves the store logged out. A storage read failure
// is returned wrapped in client.ErrLocalDataNotAvailable.
func (s *Store) Hydrate(ctx context.Context) error {
	user, sess, flag, err := s.load(ctx)
	switch {
	case errors.Is(err, errCorrupt):
		s.log.Warn(ctx, "discarding persisted session", "error", err)
		s.ClearAuth(ctx)
		return nil
	case err != nil:
		return fmt.Errorf("%w: %v", client.ErrLocalDataNotAvailable, err)
	case user == nil:
		return nil
	}

	if !sess.Valid(s.now()) {
		s.log.Info(ctx, "persisted session expired", "user_id", user.ID)
		s.ClearAuth(ctx)
		return nil
	}

	s.mutate(func() {
		s.auth = models.LoggedIn{User: *user, Session: *sess}
		s.isNewUser = flag
	}, nil)
	s.log.Debug(ctx, "session restored", "user_id", user.ID)
	return nil
}

var errCorrupt = errors.New("corrupt persisted session")

func (s *Store) load(ctx context.Context) (*models.User, *models.Session, *bool, error) {
	rawUser, err := s.repo.Get(ctx, KeyUser)
	if err != nil {
		return nil, nil, nil, err
	}
	rawSession, err := s.repo.Get(ctx, KeySession)
	if err != nil {
		return nil, nil, nil, err
	}

	if rawUser == nil && rawSession == nil {
		return nil, nil, nil, nil
	}
	if rawUser == nil || rawSession == nil {
		return nil, nil, nil, fmt.Errorf("%w: partial", errCorrupt)
	}

	var user models.User
	if err := json.Unmarshal(rawUser, &user); err != nil {
		return nil, nil, nil, fmt.Errorf("%w: decode %s: %v", errCorrupt, KeyUser, err)
	}
	var sess models.Session
	if err := json.Unmarshal(rawSession, &sess); err != nil {
		return nil, nil, nil, fmt.Errorf("%w: decode %s: %v", errCorrupt, KeySession, err)
	}

	var flag *bool
	rawFlag, err := s.repo.Get(ctx, KeyIsNewUser)
	if err != nil {
		return nil, nil, nil, err
	}
	if rawFlag != nil {
		var v bool
		if err := json.Unmarshal(rawFlag, &v); err != nil {
			return nil, nil, nil, fmt.Errorf("%w: decode %s: %v", errCorrupt, KeyIsNewUser, err)
		}
		flag = &v
	}

	return &user, &sess, flag, nil
}

// persist writes user, session and the new-user flag in that order.
// Failures are logged; memory stays authoritative.
func (s *Store) persist(ctx context.Context, user models.User, sess models.Session, flag *bool) {
	set := func(key string, v any) bool {
		b, err := json.Marshal(v)
		if err == nil {
			err = s.repo.Set(ctx, key, b)
		}
		if err != nil {
			s.log.Error(ctx, "failed to persist session data", "key", key, "error", err)
			return false
		}
		return true
	}

	if !set(KeyUser, user) || !set(KeySession, sess) {
		return
	}
	if flag != nil {
		set(KeyIsNewUser, *flag)
		return
	}
	if err := s.repo.Delete(ctx, KeyIsNewUser); err != nil {
		s.log.Warn(ctx, "failed to delete persisted key", "key", KeyIsNewUser, "error", err)
	}
}

func (s *Store) deleteKeys(ctx context.Context) {
	for _, key := range persistedKeys {
		if err := s.repo.Delete(ctx, key); err != nil {
			s.log.Warn(ctx, "failed to delete persisted key", "key", key, "error", err)
		}
	}
}
