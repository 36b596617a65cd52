package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrUnavailable means the authority could not be reached or did not
	// answer in time. It is deliberately distinct from any verdict about
	// the token itself.
	ErrUnavailable = errors.New("auth service unavailable")

	// ErrRefreshRejected means the authority refused the refresh token.
	// The session holding it is over; only a fresh login helps.
	ErrRefreshRejected = errors.New("refresh token rejected")
)

const requestTimeout = 5 * time.Second

// Client talks to the auth service over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(authServiceURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(authServiceURL, "/"),
		httpClient: &http.Client{
			Timeout: requestTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// User is the identity block the authority reports for a valid token.
type User struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Exp      int64  `json:"exp"`
	Iat      int64  `json:"iat"`
}

// ValidateResult is the authority's verdict on a presented access token.
type ValidateResult struct {
	Valid   bool   `json:"valid"`
	User    *User  `json:"user,omitempty"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

// ValidateToken asks the authority for a verdict. A transport failure or
// a 5xx from the authority returns ErrUnavailable; a reachable authority
// always yields a ValidateResult, valid or not.
func (c *Client) ValidateToken(ctx context.Context, token string) (*ValidateResult, error) {
	body, status, err := c.post(ctx, "/validate-token", map[string]string{"token": token})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if status >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: authority returned %d", ErrUnavailable, status)
	}

	var result ValidateResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	return &result, nil
}

// LoginResult is what a successful login or refresh hands back.
type LoginResult struct {
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken,omitempty"`
	User         SessionUser `json:"user"`
}

// SessionUser is the profile identity stored alongside the token pair.
type SessionUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	body, status, err := c.post(ctx, "/login", map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("login failed with status %d", status)
	}

	var result LoginResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("login: decode response: %w", err)
	}
	return &result, nil
}

// Refresh exchanges a refresh token for a fresh access token. The
// refresh token itself is not rotated and stays usable.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	body, status, err := c.post(ctx, "/refresh", map[string]string{"refreshToken": refreshToken})
	if err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}
	switch {
	case status == http.StatusOK:
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return nil, ErrRefreshRejected
	default:
		return nil, fmt.Errorf("refresh failed with status %d", status)
	}

	var result LoginResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("refresh: decode response: %w", err)
	}
	return &result, nil
}

// Logout is best-effort on the server side. The caller discards its
// local tokens regardless of what this returns.
func (c *Client) Logout(ctx context.Context, accessToken, refreshToken string) error {
	payload := map[string]string{}
	if refreshToken != "" {
		payload["refreshToken"] = refreshToken
	}
	_, status, err := c.postAuthed(ctx, "/logout", accessToken, payload)
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("logout failed with status %d", status)
	}
	return nil
}

func (c *Client) LogoutAll(ctx context.Context, accessToken string) error {
	_, status, err := c.postAuthed(ctx, "/logout-all", accessToken, map[string]string{})
	if err != nil {
		return fmt.Errorf("logout-all: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("logout-all failed with status %d", status)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, int, error) {
	return c.do(ctx, path, "", payload)
}

func (c *Client) postAuthed(ctx context.Context, path, accessToken string, payload any) ([]byte, int, error) {
	return c.do(ctx, path, accessToken, payload)
}

func (c *Client) do(ctx context.Context, path, accessToken string, payload any) ([]byte, int, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	return buf.Bytes(), resp.StatusCode, nil
}
