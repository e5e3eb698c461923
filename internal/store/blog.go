package store

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"inkwell/internal/cache"
	"inkwell/internal/gateway"
	"inkwell/internal/models"
)

// DefaultPageSize is the fixed page size of the blog list.
const DefaultPageSize = 10

// CreateBlogInput carries a new post and its attachments.
type CreateBlogInput struct {
	Title    string
	Content  string
	AuthorID string
	Files    []*models.Attachment
}

// UpdateBlogInput carries an edit: the retained image URLs plus any newly
// attached files. The caller is responsible for having verified that
// AuthorID owns the post; this operation does not re-check it.
type UpdateBlogInput struct {
	ID           string
	Title        string
	Content      string
	AuthorID     string
	RetainedURLs []string
	Files        []*models.Attachment
}

// cachedBlogPage is the cache representation of one list page.
type cachedBlogPage struct {
	Blogs []models.Blog `json:"blogs"`
	Count int64         `json:"count"`
}

// BlogStore owns the in-memory blog list for the current page, the single
// viewed/edited post, and the pagination cursors. Every operation sets a
// transient loading flag; local state changes happen only on the success
// path, so a failure leaves the previously loaded state intact.
type BlogStore struct {
	rows     gateway.Rows
	uploader *Uploader
	log      *slog.Logger

	mu         sync.Mutex
	blogs      []models.Blog
	current    *models.Blog
	loading    bool
	errMsg     string
	totalCount int64
	page       int
	pageSize   int
}

// NewBlogStore creates an empty blog store positioned on page 1.
func NewBlogStore(rows gateway.Rows, uploader *Uploader, log *slog.Logger) *BlogStore {
	if log == nil {
		log = slog.Default()
	}
	return &BlogStore{
		rows:     rows,
		uploader: uploader,
		log:      log,
		page:     1,
		pageSize: DefaultPageSize,
	}
}

// List fetches one page, newest-created first, and on success replaces the
// local list and total count wholesale. The zero-indexed inclusive range is
// [(page-1)*pageSize, page*pageSize-1].
func (s *BlogStore) List(ctx context.Context, page, pageSize int) ([]models.Blog, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	s.begin()

	from := (page - 1) * pageSize
	q := gateway.Query{
		OrderBy:    "created_at",
		Descending: true,
		From:       from,
		To:         from + pageSize - 1,
		Ranged:     true,
		Count:      true,
	}

	var fetched cachedBlogPage
	fetch := func() error {
		raw, count, err := s.rows.Select(ctx, gateway.TableBlogs, q)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(raw, &fetched.Blogs); err != nil {
			return models.NewInternalError(err)
		}
		fetched.Count = count
		return nil
	}

	var err error
	if page == 1 && pageSize == DefaultPageSize {
		err = cache.Aside(ctx, cache.BlogListKey(page, pageSize), &fetched, cache.ListTTL, fetch)
	} else {
		err = fetch()
	}
	if err != nil {
		s.fail("Failed to fetch blogs", err)
		return nil, 0, err
	}
	if fetched.Blogs == nil {
		fetched.Blogs = []models.Blog{}
	}

	s.mu.Lock()
	s.blogs = fetched.Blogs
	s.totalCount = fetched.Count
	s.page = page
	s.pageSize = pageSize
	s.loading = false
	s.mu.Unlock()
	return fetched.Blogs, fetched.Count, nil
}

// Get fetches a single post into the current slot.
func (s *BlogStore) Get(ctx context.Context, id string) (*models.Blog, error) {
	s.begin()

	var blog models.Blog
	fetch := func() error {
		raw, err := s.rows.SelectByID(ctx, gateway.TableBlogs, id)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(raw, &blog); err != nil {
			return models.NewInternalError(err)
		}
		return nil
	}
	err := cache.Aside(ctx, cache.BlogKey(id), &blog, cache.ItemTTL, fetch)
	if err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			err = models.NewNotFoundError("Blog", id)
		}
		s.fail("Failed to fetch blog", err)
		return nil, err
	}

	s.mu.Lock()
	s.current = &blog
	s.loading = false
	s.mu.Unlock()
	return &blog, nil
}

// Create uploads the attachments all-or-nothing, inserts one row, and on
// success prepends the canonical row to the local list and bumps the count.
// A single failed upload fails the whole operation and no row is inserted.
func (s *BlogStore) Create(ctx context.Context, in CreateBlogInput) (*models.Blog, error) {
	s.begin()

	urls, err := s.uploader.UploadAll(ctx, in.Files, in.AuthorID, gateway.BucketBlogImages)
	if err != nil {
		s.fail("Failed to create blog", err)
		return nil, err
	}

	raw, err := s.rows.Insert(ctx, gateway.TableBlogs, map[string]any{
		"title":      in.Title,
		"content":    in.Content,
		"author_id":  in.AuthorID,
		"image_urls": urls,
	})
	if err != nil {
		s.fail("Failed to create blog", err)
		return nil, err
	}
	var blog models.Blog
	if err := json.Unmarshal(raw, &blog); err != nil {
		err = models.NewInternalError(err)
		s.fail("Failed to create blog", err)
		return nil, err
	}

	s.mu.Lock()
	s.blogs = prepend(s.blogs, blog)
	s.totalCount++
	s.loading = false
	s.mu.Unlock()
	cache.Invalidate(ctx, cache.BlogListKey(1, DefaultPageSize))
	return &blog, nil
}

// Update uploads the new attachments all-or-nothing, submits the final image
// URL list (retained first, newly uploaded after) with a fresh updated_at,
// and on success replaces the matching item in the list and the current slot.
func (s *BlogStore) Update(ctx context.Context, in UpdateBlogInput) (*models.Blog, error) {
	s.begin()

	newURLs, err := s.uploader.UploadAll(ctx, in.Files, in.AuthorID, gateway.BucketBlogImages)
	if err != nil {
		s.fail("Failed to update blog", err)
		return nil, err
	}
	finalURLs := make([]string, 0, len(in.RetainedURLs)+len(newURLs))
	finalURLs = append(finalURLs, in.RetainedURLs...)
	finalURLs = append(finalURLs, newURLs...)

	raw, err := s.rows.Update(ctx, gateway.TableBlogs, in.ID, map[string]any{
		"title":      in.Title,
		"content":    in.Content,
		"image_urls": finalURLs,
		"updated_at": time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			err = models.NewNotFoundError("Blog", in.ID)
		}
		s.fail("Failed to update blog", err)
		return nil, err
	}
	var blog models.Blog
	if err := json.Unmarshal(raw, &blog); err != nil {
		err = models.NewInternalError(err)
		s.fail("Failed to update blog", err)
		return nil, err
	}

	s.mu.Lock()
	s.blogs, _ = replaceBy(s.blogs, func(b models.Blog) bool { return b.ID == blog.ID }, blog)
	if s.current != nil && s.current.ID == blog.ID {
		s.current = &blog
	}
	s.loading = false
	s.mu.Unlock()
	cache.Invalidate(ctx, cache.BlogListKey(1, DefaultPageSize), cache.BlogKey(blog.ID))
	return &blog, nil
}

// Delete removes the row remotely, then from the local list, decrements the
// count and clears the current slot if it matched. Deleting an already-gone
// row is a no-op; the count never goes negative.
func (s *BlogStore) Delete(ctx context.Context, id string) error {
	s.begin()

	if err := s.rows.Delete(ctx, gateway.TableBlogs, id); err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			s.mu.Lock()
			s.loading = false
			s.mu.Unlock()
			return nil
		}
		s.fail("Failed to delete blog", err)
		return err
	}

	s.mu.Lock()
	s.blogs = removeBy(s.blogs, func(b models.Blog) bool { return b.ID == id })
	if s.totalCount > 0 {
		s.totalCount--
	}
	if s.current != nil && s.current.ID == id {
		s.current = nil
	}
	s.loading = false
	s.mu.Unlock()
	cache.Invalidate(ctx, cache.BlogListKey(1, DefaultPageSize), cache.BlogKey(id))
	return nil
}

// SetPage moves the pagination cursor without fetching. Navigating past
// either end is a no-op.
func (s *BlogStore) SetPage(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n < 1 {
		return
	}
	if total := totalPages(s.totalCount, s.pageSize); total > 0 && n > total {
		return
	}
	s.page = n
}

// SetPageSize changes the page size without fetching.
func (s *BlogStore) SetPageSize(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n < 1 {
		return
	}
	s.pageSize = n
}

// ClearCurrent drops the current slot when the viewing/editing context is
// torn down.
func (s *BlogStore) ClearCurrent() {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
}

// ClearError drops the last error message.
func (s *BlogStore) ClearError() {
	s.mu.Lock()
	s.errMsg = ""
	s.mu.Unlock()
}

// Blogs returns a copy of the current page's items.
func (s *BlogStore) Blogs() []models.Blog {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Blog, len(s.blogs))
	copy(out, s.blogs)
	return out
}

// Current returns the currently viewed/edited post, or nil.
func (s *BlogStore) Current() *models.Blog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Loading reports whether an operation is in flight.
func (s *BlogStore) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Err returns the last error message, empty after a successful operation.
func (s *BlogStore) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

// TotalCount returns the server-reported total number of posts.
func (s *BlogStore) TotalCount() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalCount
}

// Page returns the 1-based pagination cursor.
func (s *BlogStore) Page() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// PageSize returns the current page size.
func (s *BlogStore) PageSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pageSize
}

// TotalPages returns ceil(totalCount / pageSize).
func (s *BlogStore) TotalPages() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return totalPages(s.totalCount, s.pageSize)
}

func totalPages(count int64, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	return int((count + int64(pageSize) - 1) / int64(pageSize))
}

func (s *BlogStore) begin() {
	s.mu.Lock()
	s.loading = true
	s.errMsg = ""
	s.mu.Unlock()
}

func (s *BlogStore) fail(msg string, err error) {
	s.log.Warn(msg, "error", err)
	s.mu.Lock()
	s.loading = false
	s.errMsg = msg
	s.mu.Unlock()
}
