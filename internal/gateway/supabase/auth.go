package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"inkwell/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// authResponse is GoTrue's token grant payload.
type authResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

// SignUp registers a new identity with password credentials.
func (c *Client) SignUp(ctx context.Context, email, password string) (*models.Session, error) {
	return c.tokenRequest(ctx, "/auth/v1/signup", nil, map[string]string{
		"email":    email,
		"password": password,
	}, "sign up")
}

// SignIn authenticates with password credentials.
func (c *Client) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	q := url.Values{"grant_type": {"password"}}
	return c.tokenRequest(ctx, "/auth/v1/token", q, map[string]string{
		"email":    email,
		"password": password,
	}, "sign in")
}

// SignOut revokes the current session. The local session is cleared and a
// change event emitted even when revocation fails.
func (c *Client) SignOut(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodPost, "/auth/v1/logout", nil, nil, nil)
	c.setSession(nil)
	if err != nil {
		return models.NewGatewayError("sign out", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return apiError("sign out", resp)
	}
	return nil
}

// CurrentSession returns the live session, refreshing it via the refresh
// token when the access token has expired. Returns (nil, nil) when there is
// nothing to restore.
func (c *Client) CurrentSession(ctx context.Context) (*models.Session, error) {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()
	if session == nil {
		return nil, nil
	}
	if !session.Expired() {
		return session, nil
	}
	if session.RefreshToken == "" {
		c.setSession(nil)
		return nil, nil
	}
	q := url.Values{"grant_type": {"refresh_token"}}
	return c.tokenRequest(ctx, "/auth/v1/token", q, map[string]string{
		"refresh_token": session.RefreshToken,
	}, "session refresh")
}

func (c *Client) tokenRequest(ctx context.Context, path string, q url.Values, body map[string]string, op string) (*models.Session, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	resp, err := c.do(ctx, http.MethodPost, path, q, nil, bytes.NewReader(payload))
	if err != nil {
		return nil, models.NewGatewayError(op, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apiError(op, resp)
	}
	defer resp.Body.Close()

	var auth authResponse
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		return nil, models.NewGatewayError(op, err)
	}
	session := c.sessionFromAuth(auth)
	c.setSession(session)
	return session, nil
}

// sessionFromAuth builds a session from a token grant. When the user block
// is absent the identity is recovered from the access token's claims; the
// token is server-signed, so the claims are read without verification here.
func (c *Client) sessionFromAuth(auth authResponse) *models.Session {
	identity := &models.Identity{ID: auth.User.ID, Email: auth.User.Email}
	if identity.ID == "" && auth.AccessToken != "" {
		claims := jwt.MapClaims{}
		if _, _, err := jwt.NewParser().ParseUnverified(auth.AccessToken, claims); err == nil {
			if sub, err := claims.GetSubject(); err == nil {
				identity.ID = sub
			}
			if email, ok := claims["email"].(string); ok {
				identity.Email = email
			}
		}
	}
	return &models.Session{
		Identity:     identity,
		AccessToken:  auth.AccessToken,
		RefreshToken: auth.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(auth.ExpiresIn) * time.Second),
	}
}
