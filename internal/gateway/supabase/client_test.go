package supabase

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"inkwell/internal/gateway"
	"inkwell/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAnonKey = "anon-key-for-tests"

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, testAnonKey, nil)
}

func TestSelectSendsRangeAndParsesCount(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/blogs", r.URL.Path)
		assert.Equal(t, testAnonKey, r.Header.Get("apikey"))
		assert.Equal(t, "Bearer "+testAnonKey, r.Header.Get("Authorization"))
		assert.Equal(t, "eq.user-9", r.URL.Query().Get("author_id"))
		assert.Equal(t, "created_at.desc", r.URL.Query().Get("order"))
		assert.Equal(t, "10-19", r.Header.Get("Range"))
		assert.Equal(t, "items", r.Header.Get("Range-Unit"))
		assert.Equal(t, "count=exact", r.Header.Get("Prefer"))

		w.Header().Set("Content-Range", "10-11/42")
		w.WriteHeader(http.StatusPartialContent)
		_, _ = w.Write([]byte(`[{"id":"b-11"},{"id":"b-12"}]`))
	})

	raw, count, err := c.Select(context.Background(), "blogs", gateway.Query{
		Filters:    map[string]string{"author_id": "user-9"},
		OrderBy:    "created_at",
		Descending: true,
		From:       10,
		To:         19,
		Ranged:     true,
		Count:      true,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), count)

	var rows []map[string]string
	require.NoError(t, json.Unmarshal(raw, &rows))
	assert.Len(t, rows, 2)
}

func TestSelectByIDSingularNotFound(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, pgrstObjectJSON, r.Header.Get("Accept"))
		assert.Equal(t, "eq.missing", r.URL.Query().Get("id"))
		w.WriteHeader(http.StatusNotAcceptable)
	})

	_, err := c.SelectByID(context.Background(), "blogs", "missing")
	assert.ErrorIs(t, err, gateway.ErrNotFound)
}

func TestInsertReturnsRepresentation(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "return=representation", r.Header.Get("Prefer"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "hello", body["title"])

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"b-1","title":"hello"}`))
	})

	raw, err := c.Insert(context.Background(), "blogs", map[string]any{"title": "hello"})
	require.NoError(t, err)

	var row map[string]string
	require.NoError(t, json.Unmarshal(raw, &row))
	assert.Equal(t, "b-1", row["id"])
}

func TestDeleteGoneRowIsNotFound(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		// Empty representation: the filter matched nothing.
		_, _ = w.Write([]byte(`[]`))
	})

	err := c.Delete(context.Background(), "blog_comments", "gone")
	assert.ErrorIs(t, err, gateway.ErrNotFound)
}

func TestDeleteExistingRow(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"c-1"}]`))
	})

	assert.NoError(t, c.Delete(context.Background(), "blog_comments", "c-1"))
}

func TestSignInStoresSessionAndEmitsChange(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/token", r.URL.Path)
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
		_, _ = w.Write([]byte(`{
			"access_token": "at-1",
			"refresh_token": "rt-1",
			"expires_in": 3600,
			"user": {"id": "u-1", "email": "user@example.com"}
		}`))
	})

	session, err := c.SignIn(context.Background(), "user@example.com", "hunter2hunter2")
	require.NoError(t, err)
	require.NotNil(t, session.Identity)
	assert.Equal(t, "u-1", session.Identity.ID)
	assert.Equal(t, "at-1", session.AccessToken)
	assert.False(t, session.Expired())

	select {
	case got := <-c.SessionChanges():
		require.NotNil(t, got)
		assert.Equal(t, "u-1", got.Identity.ID)
	default:
		t.Fatal("expected a session change event")
	}
}

func TestSignedInRequestsUseAccessToken(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer at-1", r.Header.Get("Authorization"))
		assert.Equal(t, testAnonKey, r.Header.Get("apikey"))
		_, _ = w.Write([]byte(`[]`))
	})
	c.setSession(&models.Session{
		Identity:    &models.Identity{ID: "u-1"},
		AccessToken: "at-1",
	})
	// Drain the change event from seeding the session.
	<-c.SessionChanges()

	_, _, err := c.Select(context.Background(), "blogs", gateway.Query{})
	require.NoError(t, err)
}

func TestSignOutClearsSessionEvenOnFailure(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"revocation failed"}`))
	})
	c.setSession(&models.Session{AccessToken: "at-1"})
	<-c.SessionChanges()

	err := c.SignOut(context.Background())
	require.Error(t, err)

	// Cleared locally and a logged-out event emitted regardless.
	session, serr := c.CurrentSession(context.Background())
	require.NoError(t, serr)
	assert.Nil(t, session)
	select {
	case got := <-c.SessionChanges():
		assert.Nil(t, got)
	default:
		t.Fatal("expected a logged-out change event")
	}
}

func TestSessionChangeEmitDropsOldestWhenFull(t *testing.T) {
	t.Parallel()

	c := New("http://unused", testAnonKey, nil)
	for i := 0; i < cap(c.changes)+5; i++ {
		c.setSession(&models.Session{AccessToken: "t"})
	}
	// The latest write always lands even with no consumer.
	c.setSession(nil)

	var last *models.Session
	for {
		select {
		case s := <-c.changes:
			last = s
			continue
		default:
		}
		break
	}
	assert.Nil(t, last)
}

func TestStoragePublicURL(t *testing.T) {
	t.Parallel()

	c := New("https://proj.supabase.co/", testAnonKey, nil)
	url := c.PublicURL("blog-images", "u-1/123-abcd.png")
	assert.Equal(t, "https://proj.supabase.co/storage/v1/object/public/blog-images/u-1/123-abcd.png", url)
}

func TestUploadSendsContentType(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/storage/v1/object/comment-images/u-1/key.png", r.URL.Path)
		assert.Equal(t, "image/png", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusOK)
	})

	err := c.Upload(context.Background(), "comment-images", "u-1/key.png", "image/png", []byte("bytes"))
	assert.NoError(t, err)
}

func TestParseContentRangeTotal(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int64(42), parseContentRangeTotal("0-9/42"))
	assert.Equal(t, int64(7), parseContentRangeTotal("*/7"))
	assert.Equal(t, int64(-1), parseContentRangeTotal("0-9/*"))
	assert.Equal(t, int64(-1), parseContentRangeTotal(""))
	assert.Equal(t, int64(-1), parseContentRangeTotal("garbage"))
}
