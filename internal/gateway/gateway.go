// Package gateway defines the interfaces through which the application talks
// to its backend-as-a-service: password auth, generic row operations against
// logical tables, and object storage with public URL issuance.
package gateway

import (
	"context"
	"encoding/json"
	"errors"

	"inkwell/internal/models"
)

// Logical tables owned by the backend.
const (
	TableBlogs    = "blogs"
	TableComments = "blog_comments"
)

// Buckets holding uploaded images.
const (
	BucketBlogImages    = "blog-images"
	BucketCommentImages = "comment-images"
)

// ErrNotFound is returned by row lookups that match no row.
var ErrNotFound = errors.New("gateway: row not found")

// Query shapes a Select call: optional equality filters, ordering, and an
// inclusive zero-indexed range. Count requests an exact total alongside the
// page of rows.
type Query struct {
	Filters    map[string]string
	OrderBy    string
	Descending bool
	From       int
	To         int
	Ranged     bool
	Count      bool
}

// Auth is the password-credential surface of the backend.
type Auth interface {
	SignUp(ctx context.Context, email, password string) (*models.Session, error)
	SignIn(ctx context.Context, email, password string) (*models.Session, error)
	SignOut(ctx context.Context) error
	// CurrentSession returns the restorable session, or nil when logged out.
	CurrentSession(ctx context.Context) (*models.Session, error)
	// SessionChanges delivers out-of-band session updates for the lifetime of
	// the process. Events may arrive at any time, including while an auth
	// operation is in flight.
	SessionChanges() <-chan *models.Session
}

// Rows exposes generic row operations. Payloads are raw JSON documents in the
// backend's representation; callers unmarshal into their own types.
type Rows interface {
	Select(ctx context.Context, table string, q Query) (json.RawMessage, int64, error)
	SelectByID(ctx context.Context, table, id string) (json.RawMessage, error)
	Insert(ctx context.Context, table string, values any) (json.RawMessage, error)
	Update(ctx context.Context, table, id string, values any) (json.RawMessage, error)
	Delete(ctx context.Context, table, id string) error
}

// Storage exposes object upload and public URL issuance.
type Storage interface {
	Upload(ctx context.Context, bucket, key, contentType string, data []byte) error
	PublicURL(bucket, key string) string
}

// Gateway bundles the three backend surfaces.
type Gateway interface {
	Auth
	Rows
	Storage
}
