package client

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// User is the redacted identity returned by the API.
type User struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	ProfilePic *string   `json:"profilePic,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Note is a single note as returned by the API.
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Pinned    bool      `json:"pinned"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// LoginResult carries the identity plus the bearer token for clients that
// cannot use cookies.
type LoginResult struct {
	User        User   `json:"user"`
	AccessToken string `json:"accessToken"`
}

// Register creates an account and starts a session. The session cookies land
// in the client's jar.
func (c *Client) Register(ctx context.Context, username, email, password string) (User, error) {
	var u User
	err := c.doNoRetry(ctx, http.MethodPost, "/api/v1/users/register", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	}, &u)
	return u, err
}

// Login authenticates with a username or an email plus password.
func (c *Client) Login(ctx context.Context, usernameOrEmail, password string) (LoginResult, error) {
	req := map[string]string{"password": password}
	if strings.Contains(usernameOrEmail, "@") {
		req["email"] = usernameOrEmail
	} else {
		req["username"] = usernameOrEmail
	}

	var res LoginResult
	err := c.doNoRetry(ctx, http.MethodPost, "/api/v1/users/login", req, &res)
	return res, err
}

// Logout ends the session server-side and clears the cookies.
func (c *Client) Logout(ctx context.Context) error {
	return c.Do(ctx, http.MethodPost, "/api/v1/users/logout", nil, nil)
}

// CurrentUser returns the identity behind the session.
func (c *Client) CurrentUser(ctx context.Context) (User, error) {
	var u User
	err := c.Do(ctx, http.MethodGet, "/api/v1/users/current-user", nil, &u)
	return u, err
}

// UpdateAccount changes username and email.
func (c *Client) UpdateAccount(ctx context.Context, username, email string) (User, error) {
	var u User
	err := c.Do(ctx, http.MethodPut, "/api/v1/users/update-account", map[string]string{
		"username": username,
		"email":    email,
	}, &u)
	return u, err
}

// Notes lists the session user's notes, pinned first then newest first.
func (c *Client) Notes(ctx context.Context) ([]Note, error) {
	var list []Note
	err := c.Do(ctx, http.MethodGet, "/api/v1/notes", nil, &list)
	return list, err
}

// CreateNote adds a note.
func (c *Client) CreateNote(ctx context.Context, title, content string) (Note, error) {
	var n Note
	err := c.Do(ctx, http.MethodPost, "/api/v1/notes", map[string]string{
		"title":   title,
		"content": content,
	}, &n)
	return n, err
}

// UpdateNote replaces a note's title and content.
func (c *Client) UpdateNote(ctx context.Context, noteID, title, content string) (Note, error) {
	var n Note
	err := c.Do(ctx, http.MethodPut, "/api/v1/notes/"+noteID, map[string]string{
		"title":   title,
		"content": content,
	}, &n)
	return n, err
}

// DeleteNote removes a note.
func (c *Client) DeleteNote(ctx context.Context, noteID string) error {
	return c.Do(ctx, http.MethodDelete, "/api/v1/notes/"+noteID, nil, nil)
}

// ToggleNotePin flips a note's pinned flag.
func (c *Client) ToggleNotePin(ctx context.Context, noteID string) (Note, error) {
	var n Note
	err := c.Do(ctx, http.MethodPost, "/api/v1/notes/"+noteID+"/toggle-pin", nil, &n)
	return n, err
}
