package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/existflow/ironplan/internal/model"
)

// credentials is the state persisted between runs
type credentials struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
}

// Error is a failure response from the server. Message carries the
// server-supplied text verbatim when the body had one.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.Status)
}

// Client talks to the ironplan API server
type Client struct {
	baseURL    string
	creds      *credentials
	credsPath  string
	httpClient *http.Client
}

// NewClient creates a client for the given API origin and loads any saved
// session.
func NewClient(serverURL string) (*Client, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	c := &Client{
		baseURL:    serverURL,
		credsPath:  filepath.Join(home, ".ironplan", "session.json"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	c.loadCreds()
	return c, nil
}

func (c *Client) loadCreds() {
	c.creds = &credentials{}
	data, err := os.ReadFile(c.credsPath)
	if err != nil {
		return
	}
	json.Unmarshal(data, c.creds)
}

func (c *Client) saveCreds() error {
	if err := os.MkdirAll(filepath.Dir(c.credsPath), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c.creds, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.credsPath, data, 0600)
}

// IsLoggedIn returns true if a session token is present
func (c *Client) IsLoggedIn() bool {
	return c.creds.Token != ""
}

// UserID returns the logged-in user's id
func (c *Client) UserID() string {
	return c.creds.UserID
}

// do issues one request and decodes the response into out (if non-nil).
// Non-2xx responses become *Error with the server's message.
func (c *Client) do(method, path string, body, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.creds.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.creds.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// decodeError extracts the server's message from an error body. The
// project endpoints use a "message" key, the auth endpoints "error".
func decodeError(resp *http.Response) error {
	var body struct {
		Message string `json:"message"`
		Err     string `json:"error"`
	}
	json.NewDecoder(resp.Body).Decode(&body)

	msg := body.Message
	if msg == "" {
		msg = body.Err
	}
	return &Error{Status: resp.StatusCode, Message: msg}
}

// Register creates a new account and stores the session
func (c *Client) Register(username, name, email, password string) error {
	var result struct {
		Token  string `json:"token"`
		UserID string `json:"user_id"`
	}
	err := c.do(http.MethodPost, "/api/auth/register", map[string]string{
		"username": username,
		"name":     name,
		"email":    email,
		"password": password,
	}, &result)
	if err != nil {
		return err
	}

	c.creds.Token = result.Token
	c.creds.UserID = result.UserID
	return c.saveCreds()
}

// Login authenticates with username and password
func (c *Client) Login(username, password string) error {
	var result struct {
		Token  string `json:"token"`
		UserID string `json:"user_id"`
	}
	err := c.do(http.MethodPost, "/api/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, &result)
	if err != nil {
		return err
	}

	c.creds.Token = result.Token
	c.creds.UserID = result.UserID
	return c.saveCreds()
}

// Logout invalidates the server session and clears saved credentials
func (c *Client) Logout() error {
	// Best effort: clear local credentials even if the server is away
	c.do(http.MethodPost, "/api/auth/logout", nil, nil)

	c.creds = &credentials{}
	return c.saveCreds()
}

// UserInfo describes the logged-in account
type UserInfo struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
}

// Me returns the logged-in account
func (c *Client) Me() (*UserInfo, error) {
	var info UserInfo
	if err := c.do(http.MethodGet, "/api/auth/me", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// CreateProjectInput is the body of a create request. Dates travel in the
// calendar form the form fields produce. Status is included because the
// form sends its draft as-is; the server fixes new projects to active.
type CreateProjectInput struct {
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	Status             string   `json:"status"`
	StartDate          string   `json:"startDate"`
	EndDate            string   `json:"endDate"`
	IsPublic           bool     `json:"isPublic,omitempty"`
	Tags               []string `json:"tags,omitempty"`
	TeamMembersByEmail []string `json:"teamMembersByEmail,omitempty"`
}

// ListProjects returns the caller's projects, newest first
func (c *Client) ListProjects() ([]model.ProjectView, error) {
	var views []model.ProjectView
	if err := c.do(http.MethodGet, "/api/projects", nil, &views); err != nil {
		return nil, err
	}
	return views, nil
}

// GetProject returns one owned project
func (c *Client) GetProject(id string) (*model.ProjectView, error) {
	var view model.ProjectView
	if err := c.do(http.MethodGet, "/api/projects/"+id, nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// CreateProject submits a new project
func (c *Client) CreateProject(input CreateProjectInput) (*model.ProjectView, error) {
	var view model.ProjectView
	if err := c.do(http.MethodPost, "/api/projects", input, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// UpdateProject applies a partial update
func (c *Client) UpdateProject(id string, upd model.ProjectUpdate) (*model.ProjectView, error) {
	var view model.ProjectView
	if err := c.do(http.MethodPatch, "/api/projects/"+id, upd, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// DeleteProject removes an owned project
func (c *Client) DeleteProject(id string) error {
	return c.do(http.MethodDelete, "/api/projects/"+id, nil, nil)
}
