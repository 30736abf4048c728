package inventree

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/epccs/parts-epccs/internal/config"
)

func newTestClient(url string, retries int) *Client {
	return NewClient(
		config.InvenTreeConfig{URL: url, Token: "test-token", Timeout: 5 * time.Second},
		config.SyncConfig{RetryAttempts: retries, RetryBackoff: time.Millisecond},
	)
}

func TestListFollowsPagination(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		page := map[string]interface{}{
			"results": []map[string]interface{}{{"pk": offset + 1}},
		}
		if offset < 2 {
			page["next"] = fmt.Sprintf("http://%s/api/part/?offset=%d", r.Host, offset+1)
		}
		json.NewEncoder(w).Encode(page)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, 0)
	items, err := client.List(context.Background(), PathParts, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 3 {
		t.Errorf("expected 3 items across 3 pages, got %d", len(items))
	}
	if gotAuth != "Token test-token" {
		t.Errorf("Authorization header = %q", gotAuth)
	}
}

func TestListDecodesBareArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]interface{}{{"pk": 1}, {"pk": 2}})
	}))
	defer srv.Close()

	items, err := newTestClient(srv.URL, 0).List(context.Background(), PathParts, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Errorf("expected 2 items from bare array, got %d", len(items))
	}
}

func TestListDetectsPaginationLoop(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// next always points back at the URL just fetched
		self := "http://" + r.Host + r.URL.Path
		if r.URL.RawQuery != "" {
			self += "?" + r.URL.RawQuery
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"results": []map[string]interface{}{{"pk": 1}},
			"next":    self,
		})
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 0).List(context.Background(), PathParts, nil)
	if err == nil {
		t.Fatal("expected pagination loop error")
	}
}

func TestRetryOnTransientErrors(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"results": []interface{}{}})
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 3).List(context.Background(), PathParts, nil)
	if err != nil {
		t.Fatalf("expected success after transient failures, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls (2 failures + 1 success), got %d", calls)
	}
}

func TestRetryExhaustion(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 2).List(context.Background(), PathParts, nil)
	if err == nil {
		t.Fatal("expected error after retry exhaustion")
	}
	if calls != 3 {
		t.Errorf("expected 3 calls (initial + 2 retries), got %d", calls)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected APIError 429, got %v", err)
	}
}

func TestNoRetryOnClientErrors(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"quantity": ["duplicate"]}`)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 5).List(context.Background(), PathParts, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("4xx must never be retried, got %d calls", calls)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.Transient() {
		t.Error("400 must not be transient")
	}
}

func TestNotFoundSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 0).GetPart(context.Background(), 99)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("404 must map to ErrNotFound, got %v", err)
	}
}

func TestContextCancellationStopsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient(
		config.InvenTreeConfig{URL: srv.URL, Token: "t", Timeout: time.Second},
		config.SyncConfig{RetryAttempts: 5, RetryBackoff: time.Hour},
	)
	start := time.Now()
	_, err := client.List(ctx, PathParts, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if time.Since(start) > time.Second {
		t.Error("cancelled context must not wait out the backoff")
	}
}
