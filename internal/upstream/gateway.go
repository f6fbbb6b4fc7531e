// Package upstream is the sole component that talks to the remote
// messaging provider. It owns request pacing, bounded retry, failure
// classification, and the write-then-verify discipline for sends.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"igdm/internal/errs"
	"igdm/internal/model/dm"
)

const userAgent = "Instagram 275.0.0.27.98 Android"

// Config tunes the gateway's pacing and retry behavior.
type Config struct {
	BaseURL        string
	MinSpacing     time.Duration
	RequestTimeout time.Duration
	MaxRetries     int
}

// Gateway wraps every upstream call. All methods are safe for concurrent
// use; the pacer serializes request spacing across callers.
type Gateway struct {
	base    string
	http    *http.Client
	pace    *pacer
	log     *zap.Logger
	retries int
	timeout time.Duration

	mu      sync.Mutex
	device  string
	cookies map[string]string
}

// authState is the opaque blob persisted inside the session file.
type authState struct {
	DeviceID string            `json:"device_id"`
	Cookies  map[string]string `json:"cookies"`
}

// NewGateway builds a gateway against cfg.BaseURL.
func NewGateway(cfg Config, log *zap.Logger) *Gateway {
	return &Gateway{
		base:    strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.RequestTimeout},
		pace:    newPacer(cfg.MinSpacing),
		log:     log,
		retries: cfg.MaxRetries,
		timeout: cfg.RequestTimeout,
		cookies: map[string]string{},
	}
}

// Login performs a fresh credential login. Never auto-retried: credential
// and challenge failures must surface immediately.
func (g *Gateway) Login(ctx context.Context, username, password string) (dm.User, error) {
	g.mu.Lock()
	if g.device == "" {
		g.device = uuid.NewString()
	}
	device := g.device
	g.mu.Unlock()

	form := url.Values{
		"username":  {username},
		"password":  {password},
		"device_id": {device},
	}
	body, err := g.doOnce(ctx, http.MethodPost, "/accounts/login/", nil, form)
	if err != nil {
		return dm.User{}, err
	}

	var resp loginResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.LoggedInUser == nil {
		return dm.User{}, errs.New(errs.KindFatal, "unrecognized login response")
	}
	return resp.LoggedInUser.Model(), nil
}

// Inbox fetches one page of the inbox.
func (g *Gateway) Inbox(ctx context.Context, cursor string, limit int) (RawInbox, error) {
	q := url.Values{
		"limit":                {strconv.Itoa(limit)},
		"thread_message_limit": {"1"},
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	body, err := g.doRetry(ctx, http.MethodGet, "/direct_v2/inbox/", q, nil)
	if err != nil {
		return RawInbox{}, err
	}

	var resp inboxResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.Inbox == nil {
		return RawInbox{}, errs.New(errs.KindFatal, "unrecognized inbox response")
	}
	return *resp.Inbox, nil
}

// Thread fetches one page of messages for a thread, newest first.
func (g *Gateway) Thread(ctx context.Context, threadID, cursor string, limit int) (RawThread, error) {
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	body, err := g.doRetry(ctx, http.MethodGet, "/direct_v2/threads/"+url.PathEscape(threadID)+"/", q, nil)
	if err != nil {
		return RawThread{}, err
	}

	var resp threadResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.Thread == nil {
		return RawThread{}, errs.New(errs.KindFatal, "unrecognized thread response")
	}
	return *resp.Thread, nil
}

// UserByUsername resolves a handle to a profile.
func (g *Gateway) UserByUsername(ctx context.Context, handle string) (RawUser, error) {
	body, err := g.doRetry(ctx, http.MethodGet, "/users/"+url.PathEscape(handle)+"/usernameinfo/", nil, nil)
	if err != nil {
		if errs.IsKind(err, errs.KindNotFound) {
			return RawUser{}, errs.Newf(errs.KindUserNotFound, "user %q not found", handle)
		}
		return RawUser{}, err
	}

	var resp userResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.User == nil {
		return RawUser{}, errs.New(errs.KindFatal, "unrecognized user response")
	}
	return *resp.User, nil
}

// ExportState snapshots the cookies and device identity for persistence.
func (g *Gateway) ExportState() (json.RawMessage, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	cookies := make(map[string]string, len(g.cookies))
	for k, v := range g.cookies {
		cookies[k] = v
	}
	return json.Marshal(authState{DeviceID: g.device, Cookies: cookies})
}

// RestoreState loads a previously exported snapshot.
func (g *Gateway) RestoreState(state json.RawMessage) error {
	var st authState
	if err := json.Unmarshal(state, &st); err != nil {
		return fmt.Errorf("restore upstream state: %w", err)
	}
	if st.DeviceID == "" || len(st.Cookies) == 0 {
		return fmt.Errorf("restore upstream state: empty snapshot")
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.device = st.DeviceID
	g.cookies = st.Cookies
	return nil
}

// ClearState drops cookies and device identity.
func (g *Gateway) ClearState() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.device = ""
	g.cookies = map[string]string{}
}

// doRetry runs a request with bounded exponential backoff for transient and
// rate-limited failures. Everything else surfaces immediately.
func (g *Gateway) doRetry(ctx context.Context, method, path string, query, form url.Values) ([]byte, error) {
	var body []byte
	backoff := retry.WithMaxRetries(uint64(g.retries), retry.NewExponential(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		b, err := g.doOnce(ctx, method, path, query, form)
		if err != nil {
			kind := errs.KindOf(err)
			if kind == errs.KindTransient || kind == errs.KindRateLimited {
				g.log.Warn("upstream request will be retried",
					zap.String("path", path), zap.String("kind", string(kind)))
				return retry.RetryableError(err)
			}
			return err
		}
		body = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

// doOnce issues exactly one paced request and classifies the outcome.
func (g *Gateway) doOnce(ctx context.Context, method, path string, query, form url.Values) ([]byte, error) {
	if err := g.pace.wait(ctx); err != nil {
		return nil, errs.Wrap(errs.KindTransient, "request abandoned while pacing", err)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	endpoint := g.base + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	var reqBody io.Reader
	if form != nil {
		reqBody = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, errs.Wrap(errs.KindFatal, "could not build upstream request", err)
	}
	req.Header.Set("User-Agent", userAgent)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	g.attachCookies(req)

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, errs.Wrap(errs.KindTransient, "upstream unreachable", err)
	}
	defer resp.Body.Close()

	g.absorbCookies(resp)

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, errs.Wrap(errs.KindTransient, "upstream response truncated", err)
	}
	if err := classify(resp.StatusCode, body, resp.Header); err != nil {
		return nil, err
	}
	return body, nil
}

func (g *Gateway) attachCookies(req *http.Request) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for name, value := range g.cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}
	if csrf, ok := g.cookies["csrftoken"]; ok {
		req.Header.Set("X-CSRFToken", csrf)
	}
}

func (g *Gateway) absorbCookies(resp *http.Response) {
	set := resp.Cookies()
	if len(set) == 0 {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, c := range set {
		g.cookies[c.Name] = c.Value
	}
}
