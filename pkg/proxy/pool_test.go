package proxy

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestPoolAddAndNext(t *testing.T) {
	pool := NewPool(Config{})

	if err := pool.Add("127.0.0.1:8080", "http://127.0.0.1:8081", "socks5://127.0.0.1:9050"); err != nil {
		t.Fatalf("Failed to add proxies: %v", err)
	}

	want := []string{
		"http://127.0.0.1:8080",
		"http://127.0.0.1:8081",
		"socks5://127.0.0.1:9050",
		"http://127.0.0.1:8080",
	}
	for i, w := range want {
		if got := pool.Next(); got == nil || got.String() != w {
			t.Errorf("Call %d: expected %s, got %v", i, w, got)
		}
	}
}

func TestPoolAddRejects(t *testing.T) {
	pool := NewPool(Config{})
	for _, raw := range []string{"ftp://proxy:21", "http://"} {
		if err := pool.Add(raw); err == nil {
			t.Errorf("Expected error for %q", raw)
		}
	}
	if pool.Len() != 0 {
		t.Errorf("Expected empty pool, got %d", pool.Len())
	}
}

func TestPoolEmpty(t *testing.T) {
	if u := NewPool(Config{}).Next(); u != nil {
		t.Errorf("Expected direct connection, got %v", u)
	}
}

func TestPoolBenchesFailingEndpoint(t *testing.T) {
	now := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	pool := NewPool(Config{MaxFailures: 2, Cooldown: time.Minute})
	pool.now = func() time.Time { return now }

	if err := pool.Add("http://a", "http://b"); err != nil {
		t.Fatalf("Failed to add proxies: %v", err)
	}

	a := pool.Next()
	if a.String() != "http://a" {
		t.Fatalf("Expected http://a, got %v", a)
	}
	boom := errors.New("connection refused")
	pool.Report(a, boom)
	pool.Report(a, boom)

	for i := 0; i < 3; i++ {
		if got := pool.Next(); got.String() != "http://b" {
			t.Fatalf("Expected benched a to be skipped, got %v", got)
		}
	}

	now = now.Add(2 * time.Minute)
	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		seen[pool.Next().String()] = true
	}
	if !seen["http://a"] {
		t.Error("Expected a back in rotation after cooldown")
	}
}

func TestPoolAllBenched(t *testing.T) {
	pool := NewPool(Config{MaxFailures: 1})
	if err := pool.Add("http://only"); err != nil {
		t.Fatalf("Failed to add proxy: %v", err)
	}
	pool.Report(pool.Next(), errors.New("timeout"))
	if u := pool.Next(); u != nil {
		t.Errorf("Expected nil with every endpoint benched, got %v", u)
	}
}

func TestPoolSuccessForgivesFailure(t *testing.T) {
	pool := NewPool(Config{MaxFailures: 2})
	if err := pool.Add("http://a"); err != nil {
		t.Fatalf("Failed to add proxy: %v", err)
	}
	a := pool.Next()
	pool.Report(a, errors.New("reset"))
	pool.Report(a, nil)
	pool.Report(a, errors.New("reset"))
	if u := pool.Next(); u == nil {
		t.Error("Expected a to stay in rotation")
	}
}

func TestPoolLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proxies.txt")
	data := "# egress\nhttp://10.0.0.1:3128\n\n10.0.0.2:3128\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("Failed to write proxy list: %v", err)
	}

	pool := NewPool(Config{})
	if err := pool.LoadFile(path); err != nil {
		t.Fatalf("Failed to load proxy list: %v", err)
	}
	if pool.Len() != 2 {
		t.Errorf("Expected 2 proxies, got %d", pool.Len())
	}
	if err := pool.LoadFile(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestProxyRecordsChoice(t *testing.T) {
	pool := NewPool(Config{})
	if err := pool.Add("http://a"); err != nil {
		t.Fatalf("Failed to add proxy: %v", err)
	}

	ctx, picked := Track(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://api.example.com", nil)
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	u, err := pool.Proxy(req)
	if err != nil {
		t.Fatalf("Proxy failed: %v", err)
	}
	if got := picked(); got == nil || got.String() != u.String() {
		t.Errorf("Expected tracked choice %v, got %v", u, got)
	}
}
