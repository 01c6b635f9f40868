// Package authapi is the HTTP client for the remote auth endpoints.
package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"homestead/models"
)

const defaultTimeout = 15 * time.Second

// APIError is a non-2xx response from the auth service. Message carries the
// server's {"message": ...} body verbatim and is shown to the user as-is.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// Credentials is a successful login response.
type Credentials struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// RegisterData carries the new-account fields.
type RegisterData struct {
	Email     string `json:"email"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// Client talks to the auth endpoints. Every call is a single attempt; retry
// policy is left to the caller.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates an auth client for the given base URL, e.g.
// "http://localhost:8080". A nil httpClient gets a default with a timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{baseURL: baseURL, http: httpClient}
}

// Login exchanges credentials for a user and bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (*Credentials, error) {
	body := map[string]string{"email": email, "password": password}
	var creds Credentials
	if err := c.do(ctx, http.MethodPost, "/auth/login", "", body, &creds); err != nil {
		return nil, err
	}
	return &creds, nil
}

// Register creates a new account. The server responds with a token, but the
// caller is expected to send the user through the login flow instead, so the
// response body is discarded.
func (c *Client) Register(ctx context.Context, data RegisterData) error {
	return c.do(ctx, http.MethodPost, "/auth/register", "", data, nil)
}

// Logout revokes the session behind the token.
func (c *Client) Logout(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", token, nil, nil)
}

// Profile fetches the identity behind the token.
func (c *Client) Profile(ctx context.Context, token string) (*models.User, error) {
	var resp struct {
		User *models.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/auth/me", token, nil, &resp); err != nil {
		return nil, err
	}
	if resp.User == nil {
		return nil, fmt.Errorf("profile response missing user")
	}
	return resp.User, nil
}

// do performs one JSON request. Non-2xx responses become *APIError.
func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var reqBody bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&reqBody).Encode(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var wire struct {
			Message string `json:"message"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&wire); err == nil && wire.Message != "" {
			apiErr.Message = wire.Message
		} else {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
