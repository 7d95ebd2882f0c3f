// internal/fetch/client_test.go
package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/wpitallo/crawlee/internal/retry"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	c, err := New(Options{
		Timeout:   5 * time.Second,
		UserAgent: "crawlee-test/1.0",
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return c
}

func TestFetchReturnsBodyAndStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "crawlee-test/1.0" {
			t.Errorf("User-Agent = %q", got)
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html><body><h1>Hello</h1></body></html>"))
	}))
	defer server.Close()

	resp, err := newTestClient(t).Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d", resp.StatusCode)
	}
	if !strings.Contains(string(resp.Body), "<h1>Hello</h1>") {
		t.Errorf("body missing expected content: %s", resp.Body)
	}
	if !resp.IsHTML() {
		t.Errorf("IsHTML() = false for %q", resp.ContentType())
	}
	if resp.FinalURL != server.URL {
		t.Errorf("FinalURL = %s, want %s", resp.FinalURL, server.URL)
	}
}

func TestFetchReportsFinalURLAfterRedirect(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/final", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>landed</body></html>"))
	})

	resp, err := newTestClient(t).Fetch(context.Background(), server.URL+"/start")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if resp.FinalURL != server.URL+"/final" {
		t.Errorf("FinalURL = %s, want %s/final", resp.FinalURL, server.URL)
	}
	if resp.URL != server.URL+"/start" {
		t.Errorf("URL = %s, want the original request URL", resp.URL)
	}
}

func TestFetchErrorStatusReturnsHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	_, err := newTestClient(t).Fetch(context.Background(), server.URL)
	if err == nil {
		t.Fatal("expected error for 404 response")
	}

	var httpErr retry.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected retry.HTTPError, got %T: %v", err, err)
	}
	if httpErr.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d", httpErr.StatusCode)
	}
}

func TestFetchSendsExtraHeaders(t *testing.T) {
	var gotToken string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Api-Token")
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	c, err := New(Options{
		Timeout:   5 * time.Second,
		UserAgent: "crawlee-test/1.0",
		Headers:   map[string]string{"X-Api-Token": "secret"},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := c.Fetch(context.Background(), server.URL); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if gotToken != "secret" {
		t.Errorf("X-Api-Token = %q, want %q", gotToken, "secret")
	}
}

func TestFetchHonorsBodySizeCap(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("a", 4096)))
	}))
	defer server.Close()

	c, err := New(Options{
		Timeout:     5 * time.Second,
		UserAgent:   "crawlee-test/1.0",
		MaxBodySize: 1024,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	resp, err := c.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(resp.Body) != 1024 {
		t.Errorf("body length = %d, want 1024", len(resp.Body))
	}
}
