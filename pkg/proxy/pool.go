// Package proxy rotates outbound API requests across egress proxies and
// benches endpoints that keep failing at the transport level.
package proxy

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"
)

const (
	DefaultMaxFailures = 3
	DefaultCooldown    = 5 * time.Minute
)

// Config tunes a Pool.
type Config struct {
	// MaxFailures consecutive transport errors bench an endpoint.
	MaxFailures int
	// Cooldown is how long a benched endpoint is skipped.
	Cooldown time.Duration
}

type endpoint struct {
	url          *url.URL
	failures     int
	benchedUntil time.Time
}

// Pool is a round-robin set of proxy endpoints. It is safe for concurrent use.
type Pool struct {
	mu          sync.Mutex
	endpoints   []*endpoint
	next        int
	maxFailures int
	cooldown    time.Duration
	now         func() time.Time
}

// NewPool creates an empty pool. Zero config values select the defaults.
func NewPool(cfg Config) *Pool {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = DefaultMaxFailures
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	return &Pool{maxFailures: cfg.MaxFailures, cooldown: cfg.Cooldown, now: time.Now}
}

// Len is the number of configured endpoints, benched or not.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.endpoints)
}

// Add parses proxy URLs. A missing scheme means http; only http, https and
// socks5 are accepted.
func (p *Pool) Add(rawURLs ...string) error {
	parsed := make([]*endpoint, 0, len(rawURLs))
	for _, raw := range rawURLs {
		raw = strings.TrimSpace(raw)
		if !strings.Contains(raw, "://") {
			raw = "http://" + raw
		}
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("parse proxy %q: %w", raw, err)
		}
		switch u.Scheme {
		case "http", "https", "socks5":
		default:
			return fmt.Errorf("proxy %q: unsupported scheme %q", raw, u.Scheme)
		}
		if u.Host == "" {
			return fmt.Errorf("proxy %q: missing host", raw)
		}
		parsed = append(parsed, &endpoint{url: u})
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.endpoints = append(p.endpoints, parsed...)
	return nil
}

// LoadFile adds one proxy URL per line. Blank lines and lines starting with
// '#' are ignored.
func (p *Pool) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open proxy list: %w", err)
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read proxy list: %w", err)
	}
	return p.Add(urls...)
}

// Next returns the next endpoint that is not benched, or nil when there is
// none. A nil result means the request goes out directly.
func (p *Pool) Next() *url.URL {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	for range p.endpoints {
		e := p.endpoints[p.next]
		p.next = (p.next + 1) % len(p.endpoints)

		if !e.benchedUntil.IsZero() && now.Before(e.benchedUntil) {
			continue
		}
		if !e.benchedUntil.IsZero() {
			e.benchedUntil = time.Time{}
			e.failures = 0
		}
		return e.url
	}
	return nil
}

// Report records the outcome of a request sent through u. A nil err clears
// one failure; maxFailures errors in a row bench the endpoint. Unknown or
// nil URLs are ignored.
func (p *Pool) Report(u *url.URL, err error) {
	if u == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var e *endpoint
	for _, cand := range p.endpoints {
		if cand.url.String() == u.String() {
			e = cand
			break
		}
	}
	if e == nil {
		return
	}

	if err == nil {
		if e.failures > 0 {
			e.failures--
		}
		return
	}
	e.failures++
	if e.failures >= p.maxFailures {
		e.benchedUntil = p.now().Add(p.cooldown)
	}
}

type choiceKey struct{}

type choice struct {
	mu  sync.Mutex
	url *url.URL
}

// Track returns a context whose requests remember the proxy the Pool picked
// for them, and a func that reports it after the request finished.
func Track(ctx context.Context) (context.Context, func() *url.URL) {
	c := &choice{}
	return context.WithValue(ctx, choiceKey{}, c), func() *url.URL {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.url
	}
}

// Proxy is an http.Transport Proxy func backed by the pool.
func (p *Pool) Proxy(req *http.Request) (*url.URL, error) {
	u := p.Next()
	if c, ok := req.Context().Value(choiceKey{}).(*choice); ok {
		c.mu.Lock()
		c.url = u
		c.mu.Unlock()
	}
	return u, nil
}
