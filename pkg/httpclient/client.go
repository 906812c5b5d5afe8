package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/FranksOps/dogbook/internal/fingerprint"
	"github.com/FranksOps/dogbook/pkg/proxy"
)

// maxErrorBody bounds how much of a failed response is kept for diagnostics.
const maxErrorBody = 1024

// Config defines the setup for the HTTP Client.
type Config struct {
	Timeout      time.Duration
	MaxRedirects int
	UserAgent    string
	// TLSProfile selects the ClientHello used when Transport is nil.
	TLSProfile fingerprint.Profile
	// Transport overrides the profile-derived transport, e.g. in tests.
	Transport http.RoundTripper
	// Proxies routes requests through egress proxies. Proxied HTTPS
	// connections use the standard TLS handshake, not TLSProfile.
	Proxies *proxy.Pool
}

// StatusError is a response outside the 2xx range.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// Client wraps a standard http.Client for JSON API calls.
type Client struct {
	*http.Client
	userAgent string
	proxies   *proxy.Pool
}

// New creates a new HTTP client based on the provided configuration.
func New(cfg Config) (*Client, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	c := &http.Client{
		Timeout: cfg.Timeout,
	}

	if cfg.MaxRedirects >= 0 {
		c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			if len(via) >= cfg.MaxRedirects {
				return fmt.Errorf("stopped after %d redirects", cfg.MaxRedirects)
			}
			return nil
		}
	} else {
		c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	if cfg.Transport != nil {
		c.Transport = cfg.Transport
	} else {
		rt, err := fingerprint.Transport(cfg.TLSProfile)
		if err != nil {
			return nil, fmt.Errorf("setup transport: %w", err)
		}
		c.Transport = rt
	}

	if cfg.Proxies != nil && cfg.Proxies.Len() > 0 {
		t, ok := c.Transport.(*http.Transport)
		if !ok {
			return nil, fmt.Errorf("proxies need an *http.Transport, got %T", c.Transport)
		}
		t.Proxy = cfg.Proxies.Proxy
	}

	return &Client{Client: c, userAgent: cfg.UserAgent, proxies: cfg.Proxies}, nil
}

// Do executes an HTTP request. The provided context.Context controls
// cancellation independent of the client timeout.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if ctx == nil {
		return nil, errors.New("context cannot be nil")
	}

	reqWithCtx := req.Clone(ctx)
	if c.userAgent != "" && reqWithCtx.Header.Get("User-Agent") == "" {
		reqWithCtx.Header.Set("User-Agent", c.userAgent)
	}

	if c.proxies == nil {
		resp, err := c.Client.Do(reqWithCtx)
		if err != nil {
			return nil, fmt.Errorf("do request: %w", err)
		}
		return resp, nil
	}

	tracked, picked := proxy.Track(ctx)
	resp, err := c.Client.Do(reqWithCtx.WithContext(tracked))
	c.proxies.Report(picked(), err)
	if err != nil {
		if u := picked(); u != nil {
			return nil, fmt.Errorf("do request via %s: %w", u.Host, err)
		}
		return nil, fmt.Errorf("do request: %w", err)
	}
	return resp, nil
}

// DoJSON executes req and decodes a 2xx JSON body into out. Other statuses
// return a *StatusError carrying the start of the body.
func (c *Client) DoJSON(ctx context.Context, req *http.Request, out any) error {
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
