package store

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"inkwell/internal/gateway"
	"inkwell/internal/models"
)

// CreateCommentInput carries a new comment and its attachments. Content and
// files may both be present, or either alone; when both are empty the create
// is a no-op rather than an error.
type CreateCommentInput struct {
	BlogID    string
	UserID    string
	UserEmail string
	Content   string
	Files     []*models.Attachment
}

// CommentStore owns the in-memory comment list for one blog post at a time.
// Failures never partially mutate the list.
type CommentStore struct {
	rows     gateway.Rows
	uploader *Uploader
	log      *slog.Logger

	mu       sync.Mutex
	comments []models.Comment
	loading  bool
	errMsg   string
}

// NewCommentStore creates an empty comment store.
func NewCommentStore(rows gateway.Rows, uploader *Uploader, log *slog.Logger) *CommentStore {
	if log == nil {
		log = slog.Default()
	}
	return &CommentStore{rows: rows, uploader: uploader, log: log}
}

// List fetches the comments of one post, newest first, and replaces the
// local list wholesale.
func (s *CommentStore) List(ctx context.Context, blogID string) ([]models.Comment, error) {
	s.begin()

	raw, _, err := s.rows.Select(ctx, gateway.TableComments, gateway.Query{
		Filters:    map[string]string{"blog_id": blogID},
		OrderBy:    "created_at",
		Descending: true,
	})
	if err != nil {
		s.fail("Failed to fetch comments", err)
		return nil, err
	}
	var comments []models.Comment
	if err := json.Unmarshal(raw, &comments); err != nil {
		err = models.NewInternalError(err)
		s.fail("Failed to fetch comments", err)
		return nil, err
	}
	if comments == nil {
		comments = []models.Comment{}
	}

	s.mu.Lock()
	s.comments = comments
	s.loading = false
	s.mu.Unlock()
	return comments, nil
}

// Create uploads the attachments best-effort, inserts one row with whatever
// URLs survived, and prepends the canonical row to the local list. An empty
// comment with no files returns (nil, nil) without touching the backend.
func (s *CommentStore) Create(ctx context.Context, in CreateCommentInput) (*models.Comment, error) {
	if in.Content == "" && len(in.Files) == 0 {
		return nil, nil
	}
	s.begin()

	urls := s.uploader.UploadBestEffort(ctx, in.Files, in.UserID, gateway.BucketCommentImages)

	raw, err := s.rows.Insert(ctx, gateway.TableComments, map[string]any{
		"blog_id":    in.BlogID,
		"user_id":    in.UserID,
		"user_email": in.UserEmail,
		"content":    in.Content,
		"image_urls": urls,
	})
	if err != nil {
		s.fail("Failed to post comment", err)
		return nil, err
	}
	var comment models.Comment
	if err := json.Unmarshal(raw, &comment); err != nil {
		err = models.NewInternalError(err)
		s.fail("Failed to post comment", err)
		return nil, err
	}

	s.mu.Lock()
	s.comments = prepend(s.comments, comment)
	s.loading = false
	s.mu.Unlock()
	return &comment, nil
}

// Update replaces the row's content and full image URL list. The caller
// assembles the final list from retained URLs plus newly uploaded ones,
// within the image quota. On success the matching local item is replaced in
// place, keeping its position.
func (s *CommentStore) Update(ctx context.Context, id, content string, imageURLs []string) (*models.Comment, error) {
	s.begin()

	if imageURLs == nil {
		imageURLs = []string{}
	}
	raw, err := s.rows.Update(ctx, gateway.TableComments, id, map[string]any{
		"content":    content,
		"image_urls": imageURLs,
	})
	if err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			err = models.NewNotFoundError("Comment", id)
		}
		s.fail("Failed to update comment", err)
		return nil, err
	}
	var comment models.Comment
	if err := json.Unmarshal(raw, &comment); err != nil {
		err = models.NewInternalError(err)
		s.fail("Failed to update comment", err)
		return nil, err
	}

	s.mu.Lock()
	s.comments, _ = replaceBy(s.comments, func(c models.Comment) bool { return c.ID == comment.ID }, comment)
	s.loading = false
	s.mu.Unlock()
	return &comment, nil
}

// Delete removes the row remotely then filters it out of the local list.
// Deleting an already-gone comment is a no-op.
func (s *CommentStore) Delete(ctx context.Context, id string) error {
	s.begin()

	if err := s.rows.Delete(ctx, gateway.TableComments, id); err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			s.mu.Lock()
			s.loading = false
			s.mu.Unlock()
			return nil
		}
		s.fail("Failed to delete comment", err)
		return err
	}

	s.mu.Lock()
	s.comments = removeBy(s.comments, func(c models.Comment) bool { return c.ID == id })
	s.loading = false
	s.mu.Unlock()
	return nil
}

// Comments returns a copy of the current list.
func (s *CommentStore) Comments() []models.Comment {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Comment, len(s.comments))
	copy(out, s.comments)
	return out
}

// Loading reports whether an operation is in flight.
func (s *CommentStore) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Err returns the last error message.
func (s *CommentStore) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

func (s *CommentStore) begin() {
	s.mu.Lock()
	s.loading = true
	s.errMsg = ""
	s.mu.Unlock()
}

func (s *CommentStore) fail(msg string, err error) {
	s.log.Warn(msg, "error", err)
	s.mu.Lock()
	s.loading = false
	s.errMsg = msg
	s.mu.Unlock()
}
