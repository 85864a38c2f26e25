package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/orbit/internal/client/client"
	"github.com/dmitrijs2005/orbit/internal/client/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okResult(access, refresh string, profileExists bool) func(string) (*client.AuthResult, error) {
	return func(string) (*client.AuthResult, error) {
		u := testUser()
		u.ProfileExists = profileExists
		return &client.AuthResult{
			User:    u,
			Session: testSession(access, refresh, 2*time.Hour),
		}, nil
	}
}

func loggedInStore(t *testing.T, ref *fakeRefresher, isNewUser *bool) (*Store, *memRepo) {
	t.Helper()
	s, repo, _ := newTestStore(t, WithRefresher(ref))
	require.NoError(t, s.SetUserAndSession(context.Background(), testUser(), testSession("a1", "r1", time.Hour), isNewUser))
	repo.takeOps()
	return s, repo
}

func TestRefresh_Success(t *testing.T) {
	ref := &fakeRefresher{tokens: make(chan string, 1), fn: okResult("a2", "r2", true)}
	s, repo := loggedInStore(t, ref, nil)

	tok, ok := s.RefreshAccessToken(context.Background())
	require.True(t, ok)
	assert.Equal(t, "a2", tok)
	assert.Equal(t, "r1", <-ref.tokens)

	at, ok := s.AccessToken()
	require.True(t, ok)
	assert.Equal(t, "a2", at)
	rt, _ := s.RefreshToken()
	assert.Equal(t, "r2", rt)

	u, _ := s.User()
	assert.True(t, u.ProfileExists)

	st := s.State()
	assert.False(t, st.IsRefreshing)
	assert.False(t, st.IsLoading)
	assert.Empty(t, st.Error)

	var persisted models.Session
	raw, _ := repo.Get(context.Background(), KeySession)
	require.NoError(t, json.Unmarshal(raw, &persisted))
	assert.Equal(t, "a2", persisted.AccessToken)
	assert.Equal(t, "r2", persisted.RefreshToken)
}

func TestRefresh_ConcurrentCallersShareOneRequest(t *testing.T) {
	ref := &fakeRefresher{
		entered: make(chan struct{}, 1),
		gate:    make(chan struct{}),
		fn:      okResult("a2", "r2", false),
	}
	s, _ := loggedInStore(t, ref, nil)

	const n = 10
	results := make(chan string, n)
	var ready sync.WaitGroup
	ready.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			ready.Done()
			tok, ok := s.RefreshAccessToken(context.Background())
			if !ok {
				tok = ""
			}
			results <- tok
		}()
	}

	<-ref.entered
	ready.Wait()
	assert.True(t, s.State().IsRefreshing)
	assert.True(t, s.State().IsLoading)
	time.Sleep(20 * time.Millisecond)
	close(ref.gate)

	for i := 0; i < n; i++ {
		assert.Equal(t, "a2", <-results)
	}
	assert.Equal(t, int32(1), ref.count(), "exactly one network refresh")
	assert.False(t, s.State().IsRefreshing)
}

func TestRefresh_TwoSimultaneousCallsOneFetch(t *testing.T) {
	ref := &fakeRefresher{
		entered: make(chan struct{}, 1),
		gate:    make(chan struct{}),
		fn:      okResult("a2", "r2", false),
	}
	s, _ := loggedInStore(t, ref, nil)

	first := make(chan string, 1)
	second := make(chan string, 1)
	go func() { tok, _ := s.RefreshAccessToken(context.Background()); first <- tok }()
	<-ref.entered
	go func() { tok, _ := s.RefreshAccessToken(context.Background()); second <- tok }()
	time.Sleep(20 * time.Millisecond)
	close(ref.gate)

	assert.Equal(t, "a2", <-first)
	assert.Equal(t, "a2", <-second)
	assert.Equal(t, int32(1), ref.count())
}

func TestRefresh_WaitersSeeUpdatedStoreOnRelease(t *testing.T) {
	ref := &fakeRefresher{
		entered: make(chan struct{}, 1),
		gate:    make(chan struct{}),
		fn:      okResult("a2", "r2", false),
	}
	s, repo := loggedInStore(t, ref, nil)

	type seen struct {
		token     string
		current   string
		persisted bool
	}
	out := make(chan seen, 3)
	for i := 0; i < 3; i++ {
		go func() {
			tok, _ := s.RefreshAccessToken(context.Background())
			cur, _ := s.AccessToken()
			raw, _ := repo.Get(context.Background(), KeySession)
			out <- seen{token: tok, current: cur, persisted: strings.Contains(string(raw), `"a2"`)}
		}()
	}
	<-ref.entered
	time.Sleep(20 * time.Millisecond)
	close(ref.gate)

	for i := 0; i < 3; i++ {
		got := <-out
		assert.Equal(t, "a2", got.token)
		assert.Equal(t, "a2", got.current)
		assert.True(t, got.persisted)
	}
}

func TestRefresh_UnauthorizedLogsOut(t *testing.T) {
	ref := &fakeRefresher{fn: func(string) (*client.AuthResult, error) {
		return nil, &client.APIError{Status: 401, Message: "Invalid or expired refresh token", Code: "auth/invalid-refresh-token"}
	}}
	s, repo := loggedInStore(t, ref, boolPtr(true))

	tok, ok := s.RefreshAccessToken(context.Background())
	assert.False(t, ok)
	assert.Empty(t, tok)

	_, ok = s.AccessToken()
	assert.False(t, ok)
	_, ok = s.User()
	assert.False(t, ok)
	_, ok = s.Session()
	assert.False(t, ok)
	assert.False(t, s.IsAuthenticated())

	st := s.State()
	assert.True(t, strings.HasPrefix(st.Error, "Refresh failed: "), st.Error)
	assert.False(t, st.IsRefreshing)
	assert.False(t, st.IsLoading)
	for _, k := range persistedKeys {
		assert.False(t, repo.has(k))
	}
}

func TestRefresh_TransportFailureLogsOut(t *testing.T) {
	ref := &fakeRefresher{fn: func(string) (*client.AuthResult, error) {
		return nil, fmt.Errorf("%w: dial tcp: connection refused", client.ErrUnavailable)
	}}
	s, _ := loggedInStore(t, ref, nil)

	_, ok := s.RefreshAccessToken(context.Background())
	assert.False(t, ok)
	assert.False(t, s.IsAuthenticated())
	assert.Contains(t, s.State().Error, "connection refused")
}

func TestRefresh_ConcurrentFailureSharedByAll(t *testing.T) {
	ref := &fakeRefresher{
		entered: make(chan struct{}, 1),
		gate:    make(chan struct{}),
		fn: func(string) (*client.AuthResult, error) {
			return nil, &client.APIError{Status: 401}
		},
	}
	s, _ := loggedInStore(t, ref, nil)

	const n = 5
	oks := make(chan bool, n)
	for i := 0; i < n; i++ {
		go func() {
			_, ok := s.RefreshAccessToken(context.Background())
			oks <- ok
		}()
	}
	<-ref.entered
	time.Sleep(20 * time.Millisecond)
	close(ref.gate)

	for i := 0; i < n; i++ {
		assert.False(t, <-oks)
	}
	assert.Equal(t, int32(1), ref.count())
	assert.False(t, s.IsAuthenticated())
}

func TestRefresh_NotAuthenticatedSkipsNetwork(t *testing.T) {
	ref := &fakeRefresher{fn: okResult("a2", "r2", false)}
	s, repo, _ := newTestStore(t, WithRefresher(ref))

	_, ok := s.RefreshAccessToken(context.Background())
	assert.False(t, ok)
	assert.Equal(t, int32(0), ref.count())
	assert.Empty(t, repo.takeOps())
}

func TestRefresh_RotatesAndNeverReusesOldToken(t *testing.T) {
	var n int
	ref := &fakeRefresher{tokens: make(chan string, 2), fn: func(string) (*client.AuthResult, error) {
		n++
		return okResult(fmt.Sprintf("a%d", n+1), fmt.Sprintf("r%d", n+1), false)("")
	}}
	s, _ := loggedInStore(t, ref, nil)

	before, _ := s.Session()

	tok, ok := s.RefreshAccessToken(context.Background())
	require.True(t, ok)
	assert.Equal(t, "a2", tok)

	after, _ := s.Session()
	assert.NotEqual(t, before.AccessToken, after.AccessToken)
	assert.NotEqual(t, before.RefreshToken, after.RefreshToken)

	_, ok = s.RefreshAccessToken(context.Background())
	require.True(t, ok)

	assert.Equal(t, "r1", <-ref.tokens)
	assert.Equal(t, "r2", <-ref.tokens)
}

func TestRefresh_PreservesNewUserFlag(t *testing.T) {
	ref := &fakeRefresher{fn: okResult("a2", "r2", false)}
	s, repo := loggedInStore(t, ref, boolPtr(true))

	_, ok := s.RefreshAccessToken(context.Background())
	require.True(t, ok)

	require.NotNil(t, s.State().IsNewUser)
	assert.True(t, *s.State().IsNewUser)
	raw, _ := repo.Get(context.Background(), KeyIsNewUser)
	assert.Equal(t, "true", string(raw))
}

func TestRefresh_CancelledWaiterDoesNotCancelRequest(t *testing.T) {
	ref := &fakeRefresher{
		entered: make(chan struct{}, 1),
		gate:    make(chan struct{}),
		fn:      okResult("a2", "r2", false),
	}
	s, _ := loggedInStore(t, ref, nil)

	first := make(chan string, 1)
	go func() { tok, _ := s.RefreshAccessToken(context.Background()); first <- tok }()
	<-ref.entered

	ctx, cancel := context.WithCancel(context.Background())
	waiterDone := make(chan bool, 1)
	go func() {
		_, ok := s.RefreshAccessToken(ctx)
		waiterDone <- ok
	}()
	cancel()
	assert.False(t, <-waiterDone)

	close(ref.gate)
	assert.Equal(t, "a2", <-first)

	tok, ok := s.AccessToken()
	require.True(t, ok)
	assert.Equal(t, "a2", tok)
}

func TestRefresh_NoRefresherConfigured(t *testing.T) {
	s, _, _ := newTestStore(t)
	require.NoError(t, s.SetUserAndSession(context.Background(), testUser(), testSession("a1", "r1", time.Hour), nil))

	_, ok := s.RefreshAccessToken(context.Background())
	assert.False(t, ok)
	assert.False(t, s.IsAuthenticated())
	assert.Contains(t, s.State().Error, "Refresh failed")
}

func TestRefresh_ListenersSeeRefreshingThenIdle(t *testing.T) {
	ref := &fakeRefresher{fn: okResult("a2", "r2", false)}
	s, _ := loggedInStore(t, ref, nil)

	var flags []bool
	s.Subscribe(func(snap Snapshot) { flags = append(flags, snap.IsRefreshing) })

	_, ok := s.RefreshAccessToken(context.Background())
	require.True(t, ok)
	assert.Equal(t, []bool{true, false}, flags)
}

func TestRefresh_ClearAuthDuringRefreshWins(t *testing.T) {
	ref := &fakeRefresher{
		entered: make(chan struct{}, 1),
		gate:    make(chan struct{}),
		fn:      okResult("a2", "r2", false),
	}
	s, repo := loggedInStore(t, ref, boolPtr(true))

	done := make(chan bool, 1)
	go func() {
		_, ok := s.RefreshAccessToken(context.Background())
		done <- ok
	}()
	<-ref.entered

	s.ClearAuth(context.Background())
	repo.takeOps()
	close(ref.gate)

	assert.False(t, <-done)
	assert.False(t, s.IsAuthenticated())
	_, ok := s.AccessToken()
	assert.False(t, ok)

	st := s.State()
	assert.Empty(t, st.Error, "a deliberate logout is not a refresh failure")
	assert.False(t, st.IsRefreshing)
	assert.Nil(t, st.IsNewUser)
	assert.Empty(t, repo.takeOps(), "discarded result must not be persisted")
	for _, k := range persistedKeys {
		assert.False(t, repo.has(k))
	}
}

func TestRefresh_FailureAfterClearDoesNotLogOutNewLogin(t *testing.T) {
	ref := &fakeRefresher{
		entered: make(chan struct{}, 1),
		gate:    make(chan struct{}),
		fn: func(string) (*client.AuthResult, error) {
			return nil, &client.APIError{Status: 401}
		},
	}
	s, _ := loggedInStore(t, ref, nil)
	ctx := context.Background()

	done := make(chan bool, 1)
	go func() {
		_, ok := s.RefreshAccessToken(ctx)
		done <- ok
	}()
	<-ref.entered

	s.ClearAuth(ctx)
	u := testUser()
	u.ID = "u2"
	require.NoError(t, s.SetUserAndSession(ctx, u, testSession("b1", "q1", time.Hour), nil))
	close(ref.gate)

	assert.False(t, <-done)
	got, ok := s.User()
	require.True(t, ok)
	assert.Equal(t, "u2", got.ID)
	assert.Empty(t, s.State().Error)
}

func TestRefresh_ExpiredResultLogsOut(t *testing.T) {
	for name, ttl := range map[string]time.Duration{
		"already expired": -time.Minute,
		"expires now":     0,
	} {
		t.Run(name, func(t *testing.T) {
			ref := &fakeRefresher{fn: func(string) (*client.AuthResult, error) {
				return &client.AuthResult{User: testUser(), Session: testSession("a2", "r2", ttl)}, nil
			}}
			s, repo := loggedInStore(t, ref, nil)

			tok, ok := s.RefreshAccessToken(context.Background())
			assert.False(t, ok)
			assert.Empty(t, tok)
			assert.False(t, s.IsAuthenticated())
			assert.Contains(t, s.State().Error, ErrExpiredSession.Error())
			for _, k := range persistedKeys {
				assert.False(t, repo.has(k))
			}
		})
	}
}

func TestRefresh_ZeroExpiryLogsOut(t *testing.T) {
	ref := &fakeRefresher{fn: func(string) (*client.AuthResult, error) {
		return &client.AuthResult{User: testUser(), Session: models.Session{AccessToken: "a2", RefreshToken: "r2"}}, nil
	}}
	s, _ := loggedInStore(t, ref, nil)

	_, ok := s.RefreshAccessToken(context.Background())
	assert.False(t, ok)
	assert.False(t, s.IsAuthenticated())
	assert.True(t, strings.HasPrefix(s.State().Error, "Refresh failed: "))
}
