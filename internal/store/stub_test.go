package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"inkwell/internal/gateway"
	"inkwell/internal/models"
)

// stubRows is a function-field Rows implementation. Unset fields fail the
// call loudly.
type stubRows struct {
	selectFn     func(ctx context.Context, table string, q gateway.Query) (json.RawMessage, int64, error)
	selectByIDFn func(ctx context.Context, table, id string) (json.RawMessage, error)
	insertFn     func(ctx context.Context, table string, values any) (json.RawMessage, error)
	updateFn     func(ctx context.Context, table, id string, values any) (json.RawMessage, error)
	deleteFn     func(ctx context.Context, table, id string) error
}

func (s *stubRows) Select(ctx context.Context, table string, q gateway.Query) (json.RawMessage, int64, error) {
	if s.selectFn == nil {
		return nil, 0, fmt.Errorf("unexpected Select on %s", table)
	}
	return s.selectFn(ctx, table, q)
}

func (s *stubRows) SelectByID(ctx context.Context, table, id string) (json.RawMessage, error) {
	if s.selectByIDFn == nil {
		return nil, fmt.Errorf("unexpected SelectByID on %s", table)
	}
	return s.selectByIDFn(ctx, table, id)
}

func (s *stubRows) Insert(ctx context.Context, table string, values any) (json.RawMessage, error) {
	if s.insertFn == nil {
		return nil, fmt.Errorf("unexpected Insert on %s", table)
	}
	return s.insertFn(ctx, table, values)
}

func (s *stubRows) Update(ctx context.Context, table, id string, values any) (json.RawMessage, error) {
	if s.updateFn == nil {
		return nil, fmt.Errorf("unexpected Update on %s", table)
	}
	return s.updateFn(ctx, table, id, values)
}

func (s *stubRows) Delete(ctx context.Context, table, id string) error {
	if s.deleteFn == nil {
		return fmt.Errorf("unexpected Delete on %s", table)
	}
	return s.deleteFn(ctx, table, id)
}

// stubStorage is a function-field Storage implementation. When uploadFn is
// nil every upload succeeds; public URLs are deterministic from the key.
type stubStorage struct {
	uploadFn func(ctx context.Context, bucket, key, contentType string, data []byte) error

	mu       sync.Mutex
	uploaded []string
}

func (s *stubStorage) Upload(ctx context.Context, bucket, key, contentType string, data []byte) error {
	if s.uploadFn != nil {
		if err := s.uploadFn(ctx, bucket, key, contentType, data); err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.uploaded = append(s.uploaded, bucket+"/"+key)
	s.mu.Unlock()
	return nil
}

func (s *stubStorage) PublicURL(bucket, key string) string {
	return "https://cdn.test/" + bucket + "/" + key
}

func (s *stubStorage) uploadedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.uploaded)
}

// stubAuth is a function-field Auth implementation with a buffered change
// stream tests can feed directly.
type stubAuth struct {
	signUpFn         func(ctx context.Context, email, password string) (*models.Session, error)
	signInFn         func(ctx context.Context, email, password string) (*models.Session, error)
	signOutFn        func(ctx context.Context) error
	currentSessionFn func(ctx context.Context) (*models.Session, error)
	changes          chan *models.Session
}

func newStubAuth() *stubAuth {
	return &stubAuth{changes: make(chan *models.Session, 16)}
}

func (s *stubAuth) SignUp(ctx context.Context, email, password string) (*models.Session, error) {
	if s.signUpFn == nil {
		return nil, fmt.Errorf("unexpected SignUp")
	}
	return s.signUpFn(ctx, email, password)
}

func (s *stubAuth) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	if s.signInFn == nil {
		return nil, fmt.Errorf("unexpected SignIn")
	}
	return s.signInFn(ctx, email, password)
}

func (s *stubAuth) SignOut(ctx context.Context) error {
	if s.signOutFn == nil {
		return nil
	}
	return s.signOutFn(ctx)
}

func (s *stubAuth) CurrentSession(ctx context.Context) (*models.Session, error) {
	if s.currentSessionFn == nil {
		return nil, nil
	}
	return s.currentSessionFn(ctx)
}

func (s *stubAuth) SessionChanges() <-chan *models.Session {
	return s.changes
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

func testAttachment(name string) *models.Attachment {
	return models.NewAttachment(name, "image/png", []byte("png-bytes"), nil)
}
