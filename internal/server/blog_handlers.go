package server

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"inkwell/internal/models"
	"inkwell/internal/notifications"
	"inkwell/internal/store"
)

func blogListResponse(s *store.BlogStore) fiber.Map {
	return fiber.Map{
		"blogs":       s.Blogs(),
		"total_count": s.TotalCount(),
		"page":        s.Page(),
		"page_size":   s.PageSize(),
		"total_pages": s.TotalPages(),
	}
}

// ListBlogs returns one page of posts, newest first.
func (s *Server) ListBlogs(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	pageSize := c.QueryInt("page_size", store.DefaultPageSize)

	if _, _, err := s.blogs.List(c.Context(), page, pageSize); err != nil {
		return fail(c, err)
	}
	return c.JSON(blogListResponse(s.blogs))
}

// GetBlog returns a single post.
func (s *Server) GetBlog(c *fiber.Ctx) error {
	blog, err := s.blogs.Get(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"blog": blog})
}

// CreateBlog creates a post from a multipart form: title, content and any
// number of image files under "images". Every image must upload for the post
// to be created.
func (s *Server) CreateBlog(c *fiber.Ctx) error {
	identity := identityFromCtx(c)

	title := strings.TrimSpace(c.FormValue("title"))
	content := strings.TrimSpace(c.FormValue("content"))
	if title == "" || content == "" {
		return fail(c, models.NewValidationError("Title and content are required"))
	}

	files, err := formAttachments(c, "images")
	if err != nil {
		return fail(c, err)
	}
	defer models.ReleaseAll(files)

	blog, err := s.blogs.Create(c.Context(), store.CreateBlogInput{
		Title:    title,
		Content:  content,
		AuthorID: identity.ID,
		Files:    files,
	})
	if err != nil {
		return fail(c, err)
	}

	s.hub.Publish(notifications.EventBlogCreated, blog)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"blog": blog})
}

// UpdateBlog edits a post. The multipart form carries title, content, the
// image URLs kept from the existing post (repeated "retained_urls" fields)
// and any newly attached files under "images". Only the author may edit.
func (s *Server) UpdateBlog(c *fiber.Ctx) error {
	identity := identityFromCtx(c)
	id := c.Params("id")

	existing, err := s.fetchBlog(c.Context(), id)
	if err != nil {
		return fail(c, err)
	}
	if existing.AuthorID != identity.ID {
		return fail(c, models.NewUnauthorizedError("You can only edit your own posts"))
	}

	title := strings.TrimSpace(c.FormValue("title"))
	content := strings.TrimSpace(c.FormValue("content"))
	if title == "" || content == "" {
		return fail(c, models.NewValidationError("Title and content are required"))
	}

	var retained []string
	if form, err := c.MultipartForm(); err == nil {
		retained = form.Value["retained_urls"]
	}

	files, err := formAttachments(c, "images")
	if err != nil {
		return fail(c, err)
	}
	defer models.ReleaseAll(files)

	blog, err := s.blogs.Update(c.Context(), store.UpdateBlogInput{
		ID:           id,
		Title:        title,
		Content:      content,
		AuthorID:     identity.ID,
		RetainedURLs: retained,
		Files:        files,
	})
	if err != nil {
		return fail(c, err)
	}

	s.hub.Publish(notifications.EventBlogUpdated, blog)
	return c.JSON(fiber.Map{"blog": blog})
}

// DeleteBlog removes a post. Only the author may delete; deleting a post
// that is already gone succeeds.
func (s *Server) DeleteBlog(c *fiber.Ctx) error {
	identity := identityFromCtx(c)
	id := c.Params("id")

	existing, err := s.fetchBlog(c.Context(), id)
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code == "NOT_FOUND" {
			// Already gone; treat the delete as done.
			return c.JSON(fiber.Map{"message": "Blog deleted"})
		}
		return fail(c, err)
	}
	if existing.AuthorID != identity.ID {
		return fail(c, models.NewUnauthorizedError("You can only delete your own posts"))
	}

	if err := s.blogs.Delete(c.Context(), id); err != nil {
		return fail(c, err)
	}

	s.hub.Publish(notifications.EventBlogDeleted, fiber.Map{"id": id})
	return c.JSON(fiber.Map{"message": "Blog deleted"})
}
