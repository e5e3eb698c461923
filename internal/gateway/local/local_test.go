package local

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"inkwell/internal/config"
	"inkwell/internal/gateway"
	"inkwell/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestGateway(t *testing.T) *Gateway {
	t.Helper()
	g, err := Open(&config.Config{
		DBDriver:     "sqlite",
		DBPath:       ":memory:",
		JWTSecret:    "test-secret-key",
		MediaDir:     t.TempDir(),
		MediaBaseURL: "http://localhost:8480",
	}, nil)
	require.NoError(t, err)
	return g
}

func TestSignUpSignInRoundTrip(t *testing.T) {
	t.Parallel()

	g := openTestGateway(t)
	ctx := context.Background()
	email := gofakeit.Email()

	session, err := g.SignUp(ctx, email, "hunter2hunter2")
	require.NoError(t, err)
	require.NotNil(t, session.Identity)
	assert.NotEmpty(t, session.Identity.ID)
	assert.NotEmpty(t, session.AccessToken)
	assert.False(t, session.Expired())

	// The minted token names the same identity.
	identity, err := g.ParseToken(session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, session.Identity.ID, identity.ID)

	// Same credentials sign back in.
	again, err := g.SignIn(ctx, email, "hunter2hunter2")
	require.NoError(t, err)
	assert.Equal(t, session.Identity.ID, again.Identity.ID)
}

func TestSignUpDuplicateEmail(t *testing.T) {
	t.Parallel()

	g := openTestGateway(t)
	ctx := context.Background()
	email := gofakeit.Email()

	_, err := g.SignUp(ctx, email, "hunter2hunter2")
	require.NoError(t, err)

	_, err = g.SignUp(ctx, email, "otherpassword")
	require.Error(t, err)

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
}

func TestSignInWrongPassword(t *testing.T) {
	t.Parallel()

	g := openTestGateway(t)
	ctx := context.Background()
	email := gofakeit.Email()

	_, err := g.SignUp(ctx, email, "hunter2hunter2")
	require.NoError(t, err)

	_, err = g.SignIn(ctx, email, "not-the-password")
	require.Error(t, err)

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "UNAUTHORIZED", appErr.Code)
}

func TestBlogRowLifecycle(t *testing.T) {
	t.Parallel()

	g := openTestGateway(t)
	ctx := context.Background()

	raw, err := g.Insert(ctx, gateway.TableBlogs, map[string]any{
		"title":      "First post",
		"content":    "Hello there",
		"author_id":  "author-1",
		"image_urls": []string{"http://img/one.png"},
	})
	require.NoError(t, err)

	var created models.Blog
	require.NoError(t, json.Unmarshal(raw, &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, created.CreatedAt, created.UpdatedAt, "fresh rows are unedited")
	assert.False(t, created.Edited())

	// Fetch it back by id.
	raw, err = g.SelectByID(ctx, gateway.TableBlogs, created.ID)
	require.NoError(t, err)
	var fetched models.Blog
	require.NoError(t, json.Unmarshal(raw, &fetched))
	assert.Equal(t, "First post", fetched.Title)
	assert.Equal(t, []string{"http://img/one.png"}, fetched.ImageURLs)

	// Patch it; only the named columns change.
	raw, err = g.Update(ctx, gateway.TableBlogs, created.ID, map[string]any{
		"title": "Retitled",
	})
	require.NoError(t, err)
	var updated models.Blog
	require.NoError(t, json.Unmarshal(raw, &updated))
	assert.Equal(t, "Retitled", updated.Title)
	assert.Equal(t, "Hello there", updated.Content)

	// Delete, then again: the second is not found.
	require.NoError(t, g.Delete(ctx, gateway.TableBlogs, created.ID))
	assert.ErrorIs(t, g.Delete(ctx, gateway.TableBlogs, created.ID), gateway.ErrNotFound)
	_, err = g.SelectByID(ctx, gateway.TableBlogs, created.ID)
	assert.ErrorIs(t, err, gateway.ErrNotFound)
}

func TestSelectRangeAndCount(t *testing.T) {
	t.Parallel()

	g := openTestGateway(t)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		_, err := g.Insert(ctx, gateway.TableBlogs, map[string]any{
			"title":     gofakeit.Sentence(3),
			"content":   gofakeit.Paragraph(1, 2, 5, " "),
			"author_id": "author-1",
		})
		require.NoError(t, err)
	}

	raw, count, err := g.Select(ctx, gateway.TableBlogs, gateway.Query{
		OrderBy:    "created_at",
		Descending: true,
		From:       10,
		To:         19,
		Ranged:     true,
		Count:      true,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(12), count)

	var rows []models.Blog
	require.NoError(t, json.Unmarshal(raw, &rows))
	assert.Len(t, rows, 2, "page 2 holds the two overflow rows")
}

func TestSelectFilterByBlog(t *testing.T) {
	t.Parallel()

	g := openTestGateway(t)
	ctx := context.Background()

	for _, blogID := range []string{"b-1", "b-1", "b-2"} {
		_, err := g.Insert(ctx, gateway.TableComments, map[string]any{
			"blog_id":    blogID,
			"user_id":    "u-1",
			"user_email": gofakeit.Email(),
			"content":    gofakeit.Sentence(4),
		})
		require.NoError(t, err)
	}

	raw, _, err := g.Select(ctx, gateway.TableComments, gateway.Query{
		Filters: map[string]string{"blog_id": "b-1"},
	})
	require.NoError(t, err)

	var rows []models.Comment
	require.NoError(t, json.Unmarshal(raw, &rows))
	assert.Len(t, rows, 2)
}

func TestUnknownTable(t *testing.T) {
	t.Parallel()

	g := openTestGateway(t)
	_, _, err := g.Select(context.Background(), "users_secret", gateway.Query{})
	assert.Error(t, err)
}

func TestStorageUploadAndURL(t *testing.T) {
	t.Parallel()

	g := openTestGateway(t)
	ctx := context.Background()

	err := g.Upload(ctx, "blog-images", "u-1/123-abcd.png", "image/png", []byte("png-bytes"))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(g.MediaDir(), "blog-images", "u-1", "123-abcd.png"))
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), data)

	url := g.PublicURL("blog-images", "u-1/123-abcd.png")
	assert.Equal(t, "http://localhost:8480/media/blog-images/u-1/123-abcd.png", url)
}

func TestStorageRejectsTraversal(t *testing.T) {
	t.Parallel()

	g := openTestGateway(t)
	err := g.Upload(context.Background(), "blog-images", "../../etc/passwd", "text/plain", []byte("x"))
	assert.Error(t, err)
}
