// Package api is the HTTP client for the external auth collaborators: the
// identity-check, login, logout and password-reset endpoints. It owns no
// state; callers (the auth gateway and the login flow) interpret results.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/rapscallion45/tradernet/internal/domain/identity"
)

// ErrUnauthorized marks a 401/403 from the identity-check endpoint. Any
// other failure is a transport or server error.
var ErrUnauthorized = errors.New("unauthorized")

// Status is the closed set of login outcomes the auth collaborator reports.
// The login flow converts it to user feedback in exactly one place.
type Status string

const (
	StatusSuccess                Status = "SUCCESS"
	StatusIncorrectCredentials   Status = "INCORRECT_CREDENTIALS"
	StatusUserNotFound           Status = "USER_NOT_FOUND"
	StatusInvalidRequest         Status = "INVALID_REQUEST"
	StatusAccountPasswordExpired Status = "ACCOUNT_PASSWORD_EXPIRED"
	StatusUnknown                Status = "UNKNOWN"
)

// LoginResult is the parsed login response. Token and User are populated
// only for token-shaped responses.
type LoginResult struct {
	Status Status
	Token  string
	User   identity.Identity
}

// Config configures a Client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// HTTPClient overrides the default cookie-jar client; mainly for tests.
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Client talks JSON to the auth collaborators. The default transport keeps a
// cookie jar so the server's session cookie rides along automatically.
type Client struct {
	http    *http.Client
	baseURL string
	log     zerolog.Logger
}

// NewClient builds a client for the given base URL.
func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		jar, _ := cookiejar.New(nil)
		httpClient = &http.Client{Timeout: timeout, Jar: jar}
	}
	return &Client{
		http:    httpClient,
		baseURL: cfg.BaseURL,
		log:     cfg.Logger.With().Str("component", "api").Logger(),
	}
}

// GetSession asks the identity-check endpoint who is logged in. A 2xx
// returns the identity; 401/403 return ErrUnauthorized; anything else is an
// error the caller may retry.
func (c *Client) GetSession(ctx context.Context) (identity.Identity, error) {
	resp, err := c.do(ctx, http.MethodGet, "/auth/session", nil)
	if err != nil {
		return identity.Identity{}, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return identity.Identity{}, ErrUnauthorized
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return identity.Identity{}, fmt.Errorf("session check: unexpected status %d", resp.StatusCode)
	}

	var id identity.Identity
	if err := json.NewDecoder(resp.Body).Decode(&id); err != nil {
		return identity.Identity{}, fmt.Errorf("decode session response: %w", err)
	}
	return id, nil
}

// Login submits credentials. The collaborator answers in one of two shapes:
// {"status": …} or {"token": …, "user": {…}}; a token response implies
// success. Domain outcomes never surface as Go errors; only transport and
// malformed-response failures do.
func (c *Client) Login(ctx context.Context, username, password string) (LoginResult, error) {
	body := map[string]string{"username": username, "password": password}
	resp, err := c.do(ctx, http.MethodPost, "/auth/login", body)
	if err != nil {
		return LoginResult{}, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return LoginResult{}, fmt.Errorf("read login response: %w", err)
	}
	return parseLoginResponse(payload, resp.StatusCode)
}

// Logout tells the collaborator to end the session. The caller clears local
// session state regardless of what comes back; only transport failures are
// reported.
func (c *Client) Logout(ctx context.Context) (string, error) {
	resp, err := c.do(ctx, http.MethodPost, "/auth/logout", struct{}{})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	payload, _ := io.ReadAll(resp.Body)
	return gjson.GetBytes(payload, "message").String(), nil
}

// ResetPassword changes an expired password. The current password rides
// along for collaborators that require re-authentication.
func (c *Client) ResetPassword(ctx context.Context, username, currentPassword, newPassword string) error {
	body := map[string]string{
		"username":    username,
		"password":    currentPassword,
		"newPassword": newPassword,
	}
	resp, err := c.do(ctx, http.MethodPost, "/auth/password", body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return nil
	}

	payload, _ := io.ReadAll(resp.Body)
	if msg := gjson.GetBytes(payload, "error").String(); msg != "" {
		return fmt.Errorf("password reset rejected: %s", msg)
	}
	return fmt.Errorf("password reset: unexpected status %d", resp.StatusCode)
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s %s: %w", method, path, err)
	}
	return resp, nil
}

// parseLoginResponse handles both observed response shapes. Responses with
// neither shape map to StatusUnknown so a misbehaving server still lands in
// a handled branch.
func parseLoginResponse(payload []byte, httpStatus int) (LoginResult, error) {
	if status := gjson.GetBytes(payload, "status"); status.Exists() {
		return LoginResult{Status: normalizeStatus(status.String())}, nil
	}

	if token := gjson.GetBytes(payload, "token"); token.Exists() {
		user := gjson.GetBytes(payload, "user")
		return LoginResult{
			Status: StatusSuccess,
			Token:  token.String(),
			User: identity.Identity{
				ID:       user.Get("id").Int(),
				Username: user.Get("username").String(),
			},
		}, nil
	}

	if httpStatus == http.StatusUnauthorized || httpStatus == http.StatusForbidden {
		return LoginResult{Status: StatusIncorrectCredentials}, nil
	}
	return LoginResult{Status: StatusUnknown}, nil
}

func normalizeStatus(raw string) Status {
	switch Status(raw) {
	case StatusSuccess, StatusIncorrectCredentials, StatusUserNotFound,
		StatusInvalidRequest, StatusAccountPasswordExpired:
		return Status(raw)
	}
	return StatusUnknown
}
