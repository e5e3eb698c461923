package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"inkwell/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSession(id, email string) *models.Session {
	return &models.Session{
		Identity:    &models.Identity{ID: id, Email: email},
		AccessToken: "token-" + id,
		ExpiresAt:   time.Now().Add(time.Hour),
	}
}

func TestSessionSignInLifecycle(t *testing.T) {
	t.Parallel()

	auth := newStubAuth()
	auth.signInFn = func(_ context.Context, email, password string) (*models.Session, error) {
		assert.Equal(t, "user@example.com", email)
		assert.Equal(t, "hunter2hunter2", password)
		return testSession("u-1", email), nil
	}
	s := NewSessionStore(auth, nil)
	assert.Equal(t, PhaseIdle, s.Phase())

	session, err := s.SignIn(context.Background(), "user@example.com", "hunter2hunter2")
	require.NoError(t, err)
	require.NotNil(t, session)

	assert.Equal(t, PhaseReady, s.Phase())
	require.NotNil(t, s.Identity())
	assert.Equal(t, "u-1", s.Identity().ID)
	assert.Empty(t, s.Err())
}

func TestSessionSignInFailureKeepsIdentity(t *testing.T) {
	t.Parallel()

	auth := newStubAuth()
	auth.signInFn = func(context.Context, string, string) (*models.Session, error) {
		return nil, errors.New("invalid credentials")
	}
	s := NewSessionStore(auth, nil)
	s.session = testSession("u-1", "existing@example.com")

	_, err := s.SignIn(context.Background(), "typo@example.com", "wrongwrong")
	require.Error(t, err)

	assert.Equal(t, PhaseError, s.Phase())
	assert.Equal(t, "Sign in failed", s.Err())
	require.NotNil(t, s.Identity(), "a failed attempt leaves the signed-in identity alone")
	assert.Equal(t, "u-1", s.Identity().ID)
}

func TestSessionSignOutClearsLocallyEvenOnRemoteFailure(t *testing.T) {
	t.Parallel()

	auth := newStubAuth()
	auth.signOutFn = func(context.Context) error {
		return errors.New("network gone")
	}
	s := NewSessionStore(auth, nil)
	s.session = testSession("u-1", "user@example.com")

	err := s.SignOut(context.Background())
	require.Error(t, err)

	assert.Nil(t, s.Session(), "local state is logged out regardless of the remote result")
	assert.Equal(t, PhaseError, s.Phase())
}

func TestSessionRestoreOnce(t *testing.T) {
	t.Parallel()

	calls := 0
	auth := newStubAuth()
	auth.currentSessionFn = func(context.Context) (*models.Session, error) {
		calls++
		return testSession("u-1", "user@example.com"), nil
	}
	s := NewSessionStore(auth, nil)

	s.Restore(context.Background())
	s.Restore(context.Background())

	assert.Equal(t, 1, calls, "restore runs at most once")
	assert.Equal(t, PhaseReady, s.Phase())
	require.NotNil(t, s.Identity())
}

func TestSessionRestoreFailureMeansLoggedOut(t *testing.T) {
	t.Parallel()

	auth := newStubAuth()
	auth.currentSessionFn = func(context.Context) (*models.Session, error) {
		return nil, errors.New("no persisted session")
	}
	s := NewSessionStore(auth, nil)

	s.Restore(context.Background())

	assert.Equal(t, PhaseReady, s.Phase(), "a failed restore is logged out, not an error state")
	assert.Nil(t, s.Identity())
	assert.Empty(t, s.Err())
}

func TestSessionWatchOverwrites(t *testing.T) {
	t.Parallel()

	auth := newStubAuth()
	s := NewSessionStore(auth, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Watch(ctx)

	auth.changes <- testSession("u-external", "elsewhere@example.com")
	require.Eventually(t, func() bool {
		id := s.Identity()
		return id != nil && id.ID == "u-external"
	}, time.Second, 10*time.Millisecond)

	// A refresh elsewhere clearing the session logs this one out too.
	auth.changes <- nil
	require.Eventually(t, func() bool {
		return s.Identity() == nil
	}, time.Second, 10*time.Millisecond)
}
