package device

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// Poller defines the read-only calls issued on a fixed cadence.
// This interface is implemented by *Client and can be used for testing.
type Poller interface {
	FetchStatus(ctx context.Context) (*SystemStatus, error)
	FetchRelayStatus(ctx context.Context) (*RelayStatus, error)
	FetchClock(ctx context.Context) (*Clock, error)
}

// Ensure Client implements Poller at compile time.
var _ Poller = (*Client)(nil)

// AttemptObserver receives one call per transport attempt.
type AttemptObserver interface {
	ObserveAttempt(command, form string, ok bool)
}

// Client talks to the bell controller HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	username  string
	mu        sync.RWMutex
	password  string
	observer  AttemptObserver
	logger    *log.Logger
}

const (
	defaultAddress   = "192.168.4.1"
	defaultUserAgent = "belfry/0.1"
	requestTimeout   = 5 * time.Second
	maxBodyBytes     = 1 << 20
)

// Option customizes a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithBasicAuth sends HTTP basic credentials on every request.
func WithBasicAuth(username, password string) Option {
	return func(c *Client) {
		c.username = username
		c.password = password
	}
}

// WithObserver reports every transport attempt to o.
func WithObserver(o AttemptObserver) Option {
	return func(c *Client) { c.observer = o }
}

// WithLogger logs attempts and fallbacks to l.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// NewClient builds a Client for the device at address (host[:port] or URL).
func NewClient(address string, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(address)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL: base,
		http: &http.Client{
			Timeout: requestTimeout,
		},
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the normalized device URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// SetPassword replaces the basic auth password used for later requests.
func (c *Client) SetPassword(password string) {
	c.mu.Lock()
	c.password = password
	c.mu.Unlock()
}

// Payload carries the encodings a command may need across its attempts.
type Payload struct {
	Body     any        // JSON body of the primary attempt; nil sends no body
	Query    url.Values // query string for GET attempts
	Fallback any        // alternate JSON body for a second structured attempt
	Raw      []byte     // pre-encoded JSON body
}

// Response is the outcome of the attempt that returned 2xx.
type Response struct {
	Command  Command
	Status   int
	Body     []byte
	Attempts int
}

// Result decodes the body as a confirmation payload.
func (r *Response) Result() (Result, error) {
	var res Result
	if r == nil || len(bytes.TrimSpace(r.Body)) == 0 {
		return res, fmt.Errorf("empty response body")
	}
	if err := json.Unmarshal(r.Body, &res); err != nil {
		return Result{}, fmt.Errorf("decode response: %w", err)
	}
	return res, nil
}

// Send performs cmd following its strategy. It returns the first 2xx response.
// When every attempt fails it returns a *BusinessError if the last response
// carried a success or message field, otherwise a *TransportError.
func (c *Client) Send(ctx context.Context, cmd Command, p Payload) (*Response, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	plan, ok := strategies[cmd]
	if !ok {
		return nil, fmt.Errorf("unknown command %q", cmd)
	}

	var (
		lastResp *Response
		lastErr  error
	)
	for i, a := range plan {
		resp, err := c.attempt(ctx, cmd, a, p)
		success := err == nil && resp.Status >= 200 && resp.Status < 300
		if c.observer != nil {
			c.observer.ObserveAttempt(string(cmd), a.form.String(), success)
		}
		if success {
			resp.Attempts = i + 1
			return resp, nil
		}
		lastResp, lastErr = resp, err
		if ctx.Err() != nil {
			break
		}
		if i+1 < len(plan) {
			c.logf(log.WarnLevel, "primary attempt failed, trying fallback", "command", cmd, "status", statusOf(resp), "err", err)
		}
	}

	if lastResp != nil {
		var res Result
		if json.Unmarshal(lastResp.Body, &res) == nil && (res.Success != nil || res.Message != "") {
			return nil, &BusinessError{Command: cmd, Message: res.Message}
		}
		return nil, &TransportError{Command: cmd, Status: lastResp.Status}
	}
	return nil, &TransportError{Command: cmd, Err: lastErr}
}

// Mutate sends cmd and requires success:true in the response. A missing
// success field counts as failure.
func (c *Client) Mutate(ctx context.Context, cmd Command, p Payload) (Result, error) {
	resp, err := c.Send(ctx, cmd, p)
	if err != nil {
		return Result{}, err
	}
	res, err := resp.Result()
	if err != nil || !res.OK() {
		return res, &BusinessError{Command: cmd, Message: res.Message}
	}
	return res, nil
}

// Control sends cmd and rejects only an explicit success:false.
func (c *Client) Control(ctx context.Context, cmd Command, p Payload) (Result, error) {
	resp, err := c.Send(ctx, cmd, p)
	if err != nil {
		return Result{}, err
	}
	res, decodeErr := resp.Result()
	if decodeErr != nil {
		return Result{}, nil
	}
	if res.Success != nil && !*res.Success {
		return res, &BusinessError{Command: cmd, Message: res.Message}
	}
	return res, nil
}

func (c *Client) attempt(ctx context.Context, cmd Command, a attempt, p Payload) (*Response, error) {
	rel := &url.URL{Path: a.path}
	var body io.Reader
	switch a.form {
	case formJSON:
		if p.Body != nil {
			data, err := json.Marshal(p.Body)
			if err != nil {
				return nil, fmt.Errorf("encode body: %w", err)
			}
			body = bytes.NewReader(data)
		}
	case formFallback:
		data, err := json.Marshal(p.Fallback)
		if err != nil {
			return nil, fmt.Errorf("encode fallback body: %w", err)
		}
		body = bytes.NewReader(data)
	case formRaw:
		body = bytes.NewReader(p.Raw)
	case formQuery:
		rel.RawQuery = p.Query.Encode()
	}

	reqURL := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, a.method, reqURL.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.decorate(req)

	c.logf(log.DebugLevel, "dispatch", "command", cmd, "method", a.method, "url", reqURL.String(), "form", a.form, "request_id", req.Header.Get("X-Request-ID"))
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return &Response{Command: cmd, Status: resp.StatusCode, Body: data}, nil
}

// getJSON issues a read-only GET. HTTP 429 maps to ErrRateLimited.
func (c *Client) getJSON(ctx context.Context, rel *url.URL, dest any) error {
	data, err := c.getRaw(ctx, rel)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) getRaw(ctx context.Context, rel *url.URL) ([]byte, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	reqURL := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.decorate(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Command: Command("GET " + rel.Path), Err: fmt.Errorf("execute request: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TransportError{Command: Command("GET " + rel.Path), Status: resp.StatusCode}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return data, nil
}

func (c *Client) decorate(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	c.mu.RLock()
	password := c.password
	c.mu.RUnlock()
	if c.username != "" || password != "" {
		req.SetBasicAuth(c.username, password)
	}
}

func (c *Client) logf(level log.Level, msg string, keyvals ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Log(level, msg, keyvals...)
}

func statusOf(resp *Response) int {
	if resp == nil {
		return 0
	}
	return resp.Status
}

// IsRateLimited reports whether err is a 429 skip.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

func parseBaseURL(address string) (*url.URL, error) {
	trimmed := strings.TrimSpace(address)
	if trimmed == "" {
		trimmed = defaultAddress
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse device address %q: %w", address, err)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
