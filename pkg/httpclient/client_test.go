package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/FranksOps/dogbook/pkg/proxy"
)

func TestClient_Timeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	client, err := New(Config{Timeout: 10 * time.Millisecond})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL, nil)
	if _, err := client.Do(context.Background(), req); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestClient_Redirects(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/1":
			http.Redirect(w, r, "/2", http.StatusFound)
		case "/2":
			http.Redirect(w, r, "/3", http.StatusFound)
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer ts.Close()

	client, err := New(Config{MaxRedirects: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/1", nil)
	if _, err := client.Do(context.Background(), req); err == nil {
		t.Fatal("expected redirect limit error")
	}

	noRedir, _ := New(Config{MaxRedirects: -1})
	req2, _ := http.NewRequest(http.MethodGet, ts.URL+"/1", nil)
	resp, err := noRedir.Do(context.Background(), req2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusFound {
		t.Errorf("expected 302 StatusFound, got %d", resp.StatusCode)
	}
}

func TestClient_Context(t *testing.T) {
	client, _ := New(Config{})
	req, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)

	_, err := client.Do(nil, req)
	if err == nil || err.Error() != "context cannot be nil" {
		t.Errorf("expected nil context error, got %v", err)
	}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req2, _ := http.NewRequest(http.MethodGet, ts.URL, nil)
	if _, err := client.Do(ctx, req2); err == nil {
		t.Fatal("expected cancellation error")
	}
}

func TestClient_DoJSON(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "dogbook-test" {
			t.Errorf("expected configured user agent, got %q", r.Header.Get("User-Agent"))
		}
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("expected JSON accept header, got %q", r.Header.Get("Accept"))
		}
		if r.URL.Path == "/fail" {
			http.Error(w, strings.Repeat("x", 4096), http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"dogbook"}`))
	}))
	defer ts.Close()

	client, err := New(Config{UserAgent: "dogbook-test"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var out struct {
		Name string `json:"name"`
	}
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/ok", nil)
	if err := client.DoJSON(context.Background(), req, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Name != "dogbook" {
		t.Errorf("expected decoded name, got %q", out.Name)
	}

	req2, _ := http.NewRequest(http.MethodGet, ts.URL+"/fail", nil)
	err = client.DoJSON(context.Background(), req2, &out)
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", se.StatusCode)
	}
	if len(se.Body) > maxErrorBody {
		t.Errorf("expected body truncated to %d bytes, got %d", maxErrorBody, len(se.Body))
	}
}

func TestClient_Proxies(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"via":"direct"}`))
	}))
	defer target.Close()

	var proxied atomic.Int32
	egress := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		proxied.Add(1)
		if !r.URL.IsAbs() {
			t.Errorf("Expected absolute request URI at proxy, got %s", r.URL)
		}
		w.Write([]byte(`{"via":"proxy"}`))
	}))
	defer egress.Close()

	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	pool := proxy.NewPool(proxy.Config{MaxFailures: 1, Cooldown: time.Hour})
	if err := pool.Add(deadURL, egress.URL); err != nil {
		t.Fatalf("Failed to add proxies: %v", err)
	}

	client, err := New(Config{Proxies: pool})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	var out struct {
		Via string `json:"via"`
	}
	req, _ := http.NewRequest(http.MethodGet, target.URL, nil)
	if err := client.DoJSON(context.Background(), req, &out); err == nil {
		t.Fatal("Expected error through dead proxy")
	}

	for i := 0; i < 2; i++ {
		req, _ := http.NewRequest(http.MethodGet, target.URL, nil)
		if err := client.DoJSON(context.Background(), req, &out); err != nil {
			t.Fatalf("Failed request %d: %v", i, err)
		}
		if out.Via != "proxy" {
			t.Errorf("Expected response via proxy, got %q", out.Via)
		}
	}
	if proxied.Load() != 2 {
		t.Errorf("Expected 2 proxied requests, got %d", proxied.Load())
	}
}
