package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"

	"inkwell/internal/gateway"
	"inkwell/internal/models"

	"github.com/gofiber/fiber/v2"
)

// identityFromCtx returns the identity placed in locals by RequireSession.
func identityFromCtx(c *fiber.Ctx) *models.Identity {
	if id, ok := c.Locals("identity").(*models.Identity); ok {
		return id
	}
	return nil
}

// formAttachments reads every file under the given multipart field, sniffs
// each one as an image, and returns them as attachments. On any invalid file
// the already-read attachments are released and the validation error is
// returned.
func formAttachments(c *fiber.Ctx, field string) ([]*models.Attachment, error) {
	form, err := c.MultipartForm()
	if err != nil {
		// Not a multipart request; treat as no attachments.
		return nil, nil
	}
	headers := form.File[field]
	attachments := make([]*models.Attachment, 0, len(headers))
	for _, header := range headers {
		att, err := readAttachment(header)
		if err != nil {
			models.ReleaseAll(attachments)
			return nil, err
		}
		if err := att.SniffImage(); err != nil {
			att.Release()
			models.ReleaseAll(attachments)
			return nil, err
		}
		attachments = append(attachments, att)
	}
	return attachments, nil
}

func readAttachment(header *multipart.FileHeader) (*models.Attachment, error) {
	file, err := header.Open()
	if err != nil {
		return nil, models.NewValidationError("Could not read uploaded file")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, models.NewValidationError("Could not read uploaded file")
	}
	if len(data) == 0 {
		return nil, models.NewValidationError("No file uploaded")
	}
	return models.NewAttachment(header.Filename, header.Header.Get("Content-Type"), data, nil), nil
}

// fetchBlog loads one row straight from the gateway, bypassing stores and
// cache, for ownership checks before a mutation.
func (s *Server) fetchBlog(ctx context.Context, id string) (*models.Blog, error) {
	raw, err := s.gw.SelectByID(ctx, gateway.TableBlogs, id)
	if err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			return nil, models.NewNotFoundError("Blog", id)
		}
		return nil, err
	}
	var blog models.Blog
	if err := json.Unmarshal(raw, &blog); err != nil {
		return nil, models.NewInternalError(err)
	}
	return &blog, nil
}

func (s *Server) fetchComment(ctx context.Context, id string) (*models.Comment, error) {
	raw, err := s.gw.SelectByID(ctx, gateway.TableComments, id)
	if err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			return nil, models.NewNotFoundError("Comment", id)
		}
		return nil, err
	}
	var comment models.Comment
	if err := json.Unmarshal(raw, &comment); err != nil {
		return nil, models.NewInternalError(err)
	}
	return &comment, nil
}

// fail maps an error to its HTTP status and writes the standard error body.
func fail(c *fiber.Ctx, err error) error {
	return models.RespondWithError(c, models.StatusForError(err), err)
}
