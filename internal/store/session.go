package store

import (
	"context"
	"log/slog"
	"sync"

	"inkwell/internal/gateway"
	"inkwell/internal/models"
)

// Phase is the lifecycle phase of the session state machine.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseReady   Phase = "ready"
	PhaseError   Phase = "error"
)

// SessionStore tracks the authentication identity and token. It is fed from
// three sources: explicit sign-up/sign-in/sign-out, a one-time restore at
// startup, and the gateway's out-of-band change stream. Change events
// overwrite the session unconditionally, last write wins.
type SessionStore struct {
	auth gateway.Auth
	log  *slog.Logger

	mu      sync.Mutex
	session *models.Session
	phase   Phase
	errMsg  string

	restoreOnce sync.Once
	watchOnce   sync.Once
}

// NewSessionStore creates a session store in the idle phase.
func NewSessionStore(auth gateway.Auth, log *slog.Logger) *SessionStore {
	if log == nil {
		log = slog.Default()
	}
	return &SessionStore{auth: auth, log: log, phase: PhaseIdle}
}

// Watch starts consuming the gateway's session change stream until ctx is
// done. Events are applied as they arrive, never queued behind an in-flight
// auth operation: operations hold no lock across their network calls.
func (s *SessionStore) Watch(ctx context.Context) {
	s.watchOnce.Do(func() {
		go func() {
			changes := s.auth.SessionChanges()
			for {
				select {
				case <-ctx.Done():
					return
				case session, ok := <-changes:
					if !ok {
						return
					}
					s.mu.Lock()
					s.session = session
					s.mu.Unlock()
				}
			}
		}()
	})
}

// SignUp registers a new identity and stores the resulting session.
func (s *SessionStore) SignUp(ctx context.Context, email, password string) (*models.Session, error) {
	s.begin()
	session, err := s.auth.SignUp(ctx, email, password)
	if err != nil {
		// Identity and token stay as they were.
		s.fail("Sign up failed", err)
		return nil, err
	}
	s.ready(session)
	return session, nil
}

// SignIn authenticates with password credentials and stores the session.
func (s *SessionStore) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	s.begin()
	session, err := s.auth.SignIn(ctx, email, password)
	if err != nil {
		s.fail("Sign in failed", err)
		return nil, err
	}
	s.ready(session)
	return session, nil
}

// SignOut clears the session. Even when the remote call fails the local
// state is treated as logged out.
func (s *SessionStore) SignOut(ctx context.Context) error {
	s.begin()
	err := s.auth.SignOut(ctx)
	s.mu.Lock()
	s.session = nil
	if err != nil {
		s.phase = PhaseError
		s.errMsg = "Sign out failed"
	} else {
		s.phase = PhaseReady
	}
	s.mu.Unlock()
	return err
}

// Restore loads any persisted session from the gateway. Called once at
// startup; later calls are no-ops. A failed restore is treated as logged out
// without surfacing an error message.
func (s *SessionStore) Restore(ctx context.Context) {
	s.restoreOnce.Do(func() {
		s.begin()
		session, err := s.auth.CurrentSession(ctx)
		if err != nil {
			s.log.Warn("session restore failed", "error", err)
			s.ready(nil)
			return
		}
		s.ready(session)
	})
}

// Session returns the current session, or nil when logged out.
func (s *SessionStore) Session() *models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// Identity returns the current identity, or nil when logged out.
func (s *SessionStore) Identity() *models.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil
	}
	return s.session.Identity
}

// Phase returns the current lifecycle phase.
func (s *SessionStore) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Err returns the last error message, empty when the last operation succeeded.
func (s *SessionStore) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

func (s *SessionStore) begin() {
	s.mu.Lock()
	s.phase = PhaseLoading
	s.errMsg = ""
	s.mu.Unlock()
}

func (s *SessionStore) ready(session *models.Session) {
	s.mu.Lock()
	s.phase = PhaseReady
	s.session = session
	s.mu.Unlock()
}

func (s *SessionStore) fail(msg string, err error) {
	s.log.Warn(msg, "error", err)
	s.mu.Lock()
	s.phase = PhaseError
	s.errMsg = msg
	s.mu.Unlock()
}
