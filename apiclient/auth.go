package apiclient

import (
	"context"
	"errors"
	"net/http"

	"github.com/educloud/notes/models"
	"github.com/educloud/notes/session"
)

type signUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUp creates an account and keeps its token for later requests.
func (c *Client) SignUp(ctx context.Context, name, email, password string) (models.Session, error) {
	return c.authenticate(ctx, "/auth/signup", signUpRequest{Name: name, Email: email, Password: password})
}

// SignIn keeps the returned token for later requests.
func (c *Client) SignIn(ctx context.Context, email, password string) (models.Session, error) {
	return c.authenticate(ctx, "/auth/signin", signInRequest{Email: email, Password: password})
}

func (c *Client) authenticate(ctx context.Context, path string, body any) (models.Session, error) {
	var sess models.Session
	if err := c.call(ctx, http.MethodPost, path, body, &sess); err != nil {
		return models.Session{}, asAuthError(err)
	}
	c.SetAuthToken(sess.Token)
	return sess, nil
}

// Logout revokes the current token. The local token is dropped either way.
func (c *Client) Logout(ctx context.Context) error {
	err := c.call(ctx, http.MethodPost, "/auth/logout", nil, nil)
	c.SetAuthToken("")
	return err
}

type Me struct {
	Id        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Provider  string `json:"provider"`
	NoteCount int    `json:"noteCount"`
}

func (c *Client) Me(ctx context.Context) (Me, error) {
	var me Me
	err := c.call(ctx, http.MethodGet, "/me", nil, &me)
	return me, err
}

func (c *Client) DeleteAccount(ctx context.Context) error {
	if err := c.call(ctx, http.MethodDelete, "/me", nil, nil); err != nil {
		return err
	}
	c.SetAuthToken("")
	return nil
}

func asAuthError(err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return &session.AuthServiceError{
			Message:    apiErr.Message,
			Status:     apiErr.Status,
			StatusText: apiErr.StatusText,
		}
	}
	return err
}
