package search

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/FranksOps/dogbook/internal/apperr"
	"github.com/FranksOps/dogbook/pkg/httpclient"
)

func newTestBrave(t *testing.T, handler http.HandlerFunc, key string, quota *Quota) *Brave {
	t.Helper()
	return newLoggedBrave(t, handler, key, quota, nil)
}

func newLoggedBrave(t *testing.T, handler http.HandlerFunc, key string, quota *Quota, logger *slog.Logger) *Brave {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	hc, err := httpclient.New(httpclient.Config{})
	if err != nil {
		t.Fatalf("Failed to create http client: %v", err)
	}
	return NewBrave(BraveConfig{Endpoint: srv.URL, APIKey: key}, hc, quota, logger)
}

func TestBraveSearch(t *testing.T) {
	var gotQuery, gotToken, gotAccept string
	handler := func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotToken = r.Header.Get("X-Subscription-Token")
		gotAccept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"web":{"results":[
			{"title":"Fed <strong>holds</strong> rates","url":"https://www.reuters.com/markets/fed","description":"Rates &amp; inflation","age":"2 days ago"},
			{"title":"Second","url":"https://example.com/b","description":"plain"}
		]}}`))
	}

	quota := NewQuota(0, 0)
	b := newTestBrave(t, handler, "secret", quota)

	results, err := b.Search(context.Background(), "federal reserve", 5, "en")
	if err != nil {
		t.Fatalf("Failed to search: %v", err)
	}

	if gotToken != "secret" {
		t.Errorf("Expected subscription token header, got %q", gotToken)
	}
	if gotAccept != "application/json" {
		t.Errorf("Expected Accept application/json, got %q", gotAccept)
	}
	want := "count=5&freshness=pw&q=federal+reserve&search_lang=en"
	if gotQuery != want {
		t.Errorf("Expected query %q, got %q", want, gotQuery)
	}

	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	if results[0].Title != "Fed holds rates" {
		t.Errorf("Expected HTML stripped title, got %q", results[0].Title)
	}
	if results[0].Description != "Rates & inflation" {
		t.Errorf("Expected entity decoded description, got %q", results[0].Description)
	}
	if results[0].PublishedDate != "2 days ago" {
		t.Errorf("Expected age mapped to PublishedDate, got %q", results[0].PublishedDate)
	}
	if results[1].PublishedDate != "" {
		t.Errorf("Expected empty PublishedDate, got %q", results[1].PublishedDate)
	}
	if quota.Used() != 1 {
		t.Errorf("Expected usage 1, got %d", quota.Used())
	}
}

func TestBraveSearchNoWeb(t *testing.T) {
	b := newTestBrave(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"type":"search"}`))
	}, "k", NewQuota(0, 0))

	results, err := b.Search(context.Background(), "q", 5, "en")
	if err != nil {
		t.Fatalf("Failed to search: %v", err)
	}
	if results == nil || len(results) != 0 {
		t.Errorf("Expected empty non-nil slice, got %v", results)
	}
}

func TestBraveSearchMissingKey(t *testing.T) {
	var calls atomic.Int32
	b := newTestBrave(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}, "", NewQuota(0, 0))

	_, err := b.Search(context.Background(), "q", 5, "en")
	if !errors.Is(err, apperr.ErrConfig) {
		t.Fatalf("Expected ErrConfig, got %v", err)
	}
	if calls.Load() != 0 {
		t.Errorf("Expected no network call, got %d", calls.Load())
	}
}

func TestBraveSearchQuota(t *testing.T) {
	var calls atomic.Int32
	quota := NewQuota(2, 0.5)
	b := newTestBrave(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"web":{"results":[]}}`))
	}, "k", quota)

	for i := 0; i < 2; i++ {
		if _, err := b.Search(context.Background(), "q", 5, "en"); err != nil {
			t.Fatalf("Failed to search on call %d: %v", i+1, err)
		}
	}

	_, err := b.Search(context.Background(), "q", 5, "en")
	if !errors.Is(err, apperr.ErrQuotaExceeded) {
		t.Fatalf("Expected ErrQuotaExceeded, got %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("Expected 2 network calls, got %d", calls.Load())
	}
	if quota.Remaining() != 0 {
		t.Errorf("Expected 0 remaining, got %d", quota.Remaining())
	}

	quota.Reset()
	if quota.Used() != 0 {
		t.Errorf("Expected usage reset to 0, got %d", quota.Used())
	}
}

func TestBraveSearchUsageWarning(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	b := newLoggedBrave(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"web":{"results":[]}}`))
	}, "k", NewQuota(5, 0.8), logger)

	for i := 0; i < 3; i++ {
		if _, err := b.Search(context.Background(), "q", 5, "en"); err != nil {
			t.Fatalf("Failed to search on call %d: %v", i+1, err)
		}
	}
	if strings.Contains(buf.String(), "Brave API usage warning") {
		t.Fatalf("Expected no warning below 80%%, got:\n%s", buf.String())
	}

	if _, err := b.Search(context.Background(), "q", 5, "en"); err != nil {
		t.Fatalf("Failed to search on call 4: %v", err)
	}
	out := buf.String()
	if strings.Count(out, "Brave API usage warning") != 1 {
		t.Fatalf("Expected one warning at 80%%, got:\n%s", out)
	}
	for _, want := range []string{"used=4", "limit=5", "percent=80"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in warning, got:\n%s", want, out)
		}
	}
}

func TestBraveSearchUpstreamError(t *testing.T) {
	quota := NewQuota(0, 0)
	b := newTestBrave(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte("rate limited"))
	}, "k", quota)

	_, err := b.Search(context.Background(), "q", 5, "en")
	var ue *apperr.UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("Expected UpstreamError, got %v", err)
	}
	if ue.StatusCode != http.StatusTooManyRequests || ue.Body != "rate limited" {
		t.Errorf("Unexpected upstream error: %+v", ue)
	}
	if ue.Error() != "Brave API error: 429 - rate limited" {
		t.Errorf("Unexpected message: %q", ue.Error())
	}
	if quota.Used() != 0 {
		t.Errorf("Expected failed call not to count, got %d", quota.Used())
	}
}
