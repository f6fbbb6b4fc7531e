// Package client is the terminal client's view of the server: a thin
// typed wrapper over the HTTP contract, including the credential
// encryption step on login.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"igdm/internal/crypto"
	"igdm/internal/errs"
	"igdm/internal/model/api"
)

// DefaultServerURL is where a locally run server listens.
const DefaultServerURL = "http://localhost:8000"

// Client talks to the intermediary server.
type Client struct {
	base string
	http *http.Client
}

// New builds a client for baseURL (DefaultServerURL when empty).
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultServerURL
	}
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: 60 * time.Second},
	}
}

// Health reports server liveness and authentication state.
func (c *Client) Health(ctx context.Context) (api.HealthResponse, error) {
	var out api.HealthResponse
	err := c.get(ctx, "/health", nil, &out)
	return out, err
}

// PublicKey fetches the server's credential-transport public key.
func (c *Client) PublicKey(ctx context.Context) (string, error) {
	var out api.PublicKeyResponse
	if err := c.get(ctx, "/auth/public-key", nil, &out); err != nil {
		return "", err
	}
	return out.PublicKey, nil
}

// Login fetches the server's public key, encrypts the password under it,
// and submits the login. The plaintext never goes on the wire.
func (c *Client) Login(ctx context.Context, username, password string) (api.LoginResponse, error) {
	var out api.LoginResponse

	pemText, err := c.PublicKey(ctx)
	if err != nil {
		return out, err
	}
	pub, err := crypto.ParsePublicKeyPEM(pemText)
	if err != nil {
		return out, err
	}
	encrypted, err := crypto.EncryptCredential(password, pub)
	if err != nil {
		return out, err
	}

	req := api.LoginRequest{Username: username, EncryptedPassword: encrypted}
	err = c.post(ctx, "/auth/login", req, &out)
	return out, err
}

// Logout ends the server's session.
func (c *Client) Logout(ctx context.Context) error {
	return c.post(ctx, "/auth/logout", nil, nil)
}

// Inbox lists conversations.
func (c *Client) Inbox(ctx context.Context, limit int, unreadOnly bool) (api.InboxResponse, error) {
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	if unreadOnly {
		q.Set("unread_only", "true")
	}
	var out api.InboxResponse
	err := c.get(ctx, "/inbox", q, &out)
	return out, err
}

// Thread reads one page of messages; target may be a thread id or @handle.
func (c *Client) Thread(ctx context.Context, target string, limit int) (api.ThreadResponse, error) {
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	var out api.ThreadResponse
	err := c.get(ctx, "/thread/"+url.PathEscape(target), q, &out)
	return out, err
}

// SendToThread posts text to an existing thread.
func (c *Client) SendToThread(ctx context.Context, threadID, text string) (api.SendResponse, error) {
	var out api.SendResponse
	err := c.post(ctx, "/thread/"+url.PathEscape(threadID)+"/send", api.SendRequest{Text: text}, &out)
	return out, err
}

// SendToUser posts text to a user by handle, creating the thread if needed.
func (c *Client) SendToUser(ctx context.Context, handle, text string) (api.SendResponse, error) {
	var out api.SendResponse
	err := c.post(ctx, "/send/"+url.PathEscape(strings.TrimPrefix(handle, "@")), api.SendRequest{Text: text}, &out)
	return out, err
}

// User looks up a profile by handle.
func (c *Client) User(ctx context.Context, handle string) (api.UserResponse, error) {
	var out api.UserResponse
	err := c.get(ctx, "/user/"+url.PathEscape(strings.TrimPrefix(handle, "@")), nil, &out)
	return out, err
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := c.base + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("server unreachable: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp api.ErrorResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Error.Kind != "" {
			e := errs.New(errs.Kind(errResp.Error.Kind), errResp.Error.Message)
			e.RetryAfter = time.Duration(errResp.Error.RetryAfterSeconds) * time.Second
			return e
		}
		return fmt.Errorf("server returned %s", resp.Status)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}
