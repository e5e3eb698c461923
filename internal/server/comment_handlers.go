package server

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"inkwell/internal/models"
	"inkwell/internal/notifications"
	"inkwell/internal/store"
)

// GetComments returns every comment of one post, newest first.
func (s *Server) GetComments(c *fiber.Ctx) error {
	comments, err := s.comments.List(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"comments": comments})
}

// CreateComment posts a comment on a blog from a multipart form: content plus
// up to five image files under "images"; extra selections beyond the quota
// are dropped. Failed image uploads do not block the comment. Submitting with
// neither content nor files is silently suppressed.
func (s *Server) CreateComment(c *fiber.Ctx) error {
	identity := identityFromCtx(c)
	blogID := c.Params("id")

	content := strings.TrimSpace(c.FormValue("content"))

	files, err := formAttachments(c, "images")
	if err != nil {
		return fail(c, err)
	}
	files = models.ClampImageQuota(0, files)
	defer models.ReleaseAll(files)

	comment, err := s.comments.Create(c.Context(), store.CreateCommentInput{
		BlogID:    blogID,
		UserID:    identity.ID,
		UserEmail: identity.Email,
		Content:   content,
		Files:     files,
	})
	if err != nil {
		return fail(c, err)
	}
	if comment == nil {
		// Empty submission, nothing happened.
		return c.SendStatus(fiber.StatusNoContent)
	}

	s.hub.Publish(notifications.EventCommentCreated, comment)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"comment": comment})
}

type updateCommentRequest struct {
	Content   string   `json:"content"`
	ImageURLs []string `json:"image_urls"`
}

// UpdateComment replaces a comment's content and image URL list. The list is
// capped at the image quota. Only the comment's author may edit it.
func (s *Server) UpdateComment(c *fiber.Ctx) error {
	identity := identityFromCtx(c)
	id := c.Params("id")

	existing, err := s.fetchComment(c.Context(), id)
	if err != nil {
		return fail(c, err)
	}
	if existing.UserID != identity.ID {
		return fail(c, models.NewUnauthorizedError("You can only edit your own comments"))
	}

	var req updateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, models.NewValidationError("Invalid request body"))
	}
	content := strings.TrimSpace(req.Content)
	if content == "" && len(req.ImageURLs) == 0 {
		return fail(c, models.NewValidationError("Comment cannot be empty"))
	}
	if len(req.ImageURLs) > models.MaxCommentImages {
		req.ImageURLs = req.ImageURLs[:models.MaxCommentImages]
	}

	comment, err := s.comments.Update(c.Context(), id, content, req.ImageURLs)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"comment": comment})
}

// DeleteComment removes a comment. Only the author may delete; deleting one
// that is already gone succeeds.
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	identity := identityFromCtx(c)
	id := c.Params("id")

	existing, err := s.fetchComment(c.Context(), id)
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code == "NOT_FOUND" {
			return c.JSON(fiber.Map{"message": "Comment deleted"})
		}
		return fail(c, err)
	}
	if existing.UserID != identity.ID {
		return fail(c, models.NewUnauthorizedError("You can only delete your own comments"))
	}

	if err := s.comments.Delete(c.Context(), id); err != nil {
		return fail(c, err)
	}

	s.hub.Publish(notifications.EventCommentDeleted, fiber.Map{"id": id, "blog_id": existing.BlogID})
	return c.JSON(fiber.Map{"message": "Comment deleted"})
}
