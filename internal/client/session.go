package client

import (
	"context"
	"net/http"
	"net/url"

	"budget-tracker/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// Session is an authenticated context created by Signup, Login or Resume
// and discarded by Logout.
type Session struct {
	client *Client
	token  string
}

// Token returns the bearer token, or "" after Logout.
func (s *Session) Token() string {
	return s.token
}

// Email returns the address embedded in the token. The token is not
// verified here; this is for display only.
func (s *Session) Email() string {
	var claims struct {
		Email string `json:"email"`
		jwt.RegisteredClaims
	}
	if _, _, err := jwt.NewParser().ParseUnverified(s.token, &claims); err != nil {
		return ""
	}
	return claims.Email
}

// Logout clears the stored token and ends the session.
func (s *Session) Logout() error {
	s.token = ""
	return s.client.tokens.Clear()
}

// Entries lists the user's entries in creation order.
func (s *Session) Entries(ctx context.Context) ([]models.Entry, error) {
	var list []models.Entry
	if err := s.do(ctx, http.MethodGet, "/entries", nil, &list); err != nil {
		return nil, err
	}
	if list == nil {
		list = []models.Entry{}
	}
	return list, nil
}

// CreateEntry stores a new entry and returns it as saved by the server.
func (s *Session) CreateEntry(ctx context.Context, in models.EntryInput) (*models.Entry, error) {
	var e models.Entry
	if err := s.do(ctx, http.MethodPost, "/entries", in, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// UpdateEntry sends a partial update and returns the server's copy of the entry.
func (s *Session) UpdateEntry(ctx context.Context, id string, patch models.EntryPatch) (*models.Entry, error) {
	var e models.Entry
	if err := s.do(ctx, http.MethodPut, "/entries/"+url.PathEscape(id), patch, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// DeleteEntry removes an entry.
func (s *Session) DeleteEntry(ctx context.Context, id string) error {
	return s.do(ctx, http.MethodDelete, "/entries/"+url.PathEscape(id), nil, nil)
}

func (s *Session) do(ctx context.Context, method, path string, body, out any) error {
	if s.token == "" {
		return ErrNotAuthenticated
	}
	return s.client.do(ctx, method, path, s.token, body, out)
}
