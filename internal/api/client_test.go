package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/codepulse/codepulse/internal/model"
)

func TestSendHeartbeatPostsWithBearer(t *testing.T) {
	var gotPath, gotAuth, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotMethod = r.Method
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := New(srv.URL, "secret-key")
	if err := c.SendHeartbeat(context.Background(), model.Heartbeat{ID: "hb-1", Timestamp: 1000}); err != nil {
		t.Fatalf("send heartbeat: %v", err)
	}
	if gotMethod != http.MethodPost || gotPath != "/heartbeat" {
		t.Fatalf("expected POST /heartbeat, got %s %s", gotMethod, gotPath)
	}
	if gotAuth != "Bearer secret-key" {
		t.Fatalf("unexpected auth header: %q", gotAuth)
	}
}

func TestSendBatchEmptyIsNoop(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	c := New(srv.URL, "k")
	if err := c.SendBatch(context.Background(), nil); err != nil {
		t.Fatalf("empty batch: %v", err)
	}
	if called {
		t.Fatalf("empty batch must not hit the server")
	}
}

func TestUnauthorizedClassification(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(srv.URL, "bad")
	err := c.SendHeartbeat(context.Background(), model.Heartbeat{ID: "hb-1"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !IsAuthError(err) {
		t.Fatalf("expected auth error, got %v", err)
	}
	var reqErr *RequestError
	if !errors.As(err, &reqErr) || reqErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected RequestError 401, got %v", err)
	}
}

func TestServerErrorIsNotAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, "k")
	err := c.SendHeartbeat(context.Background(), model.Heartbeat{ID: "hb-1"})
	if err == nil || IsAuthError(err) {
		t.Fatalf("expected non-auth error, got %v", err)
	}
}

func TestConnectionRefusedIsPlainError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := New(srv.URL, "k")
	err := c.SendHeartbeat(context.Background(), model.Heartbeat{ID: "hb-1"})
	if err == nil {
		t.Fatalf("expected error")
	}
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		t.Fatalf("transport failure must not be a RequestError: %v", err)
	}
}

func TestFetchDailySummary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/stats" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("timeRange") != "today" {
			t.Errorf("missing timeRange=today")
		}
		if r.URL.Query().Get("midnightOffsetSeconds") != "3600" {
			t.Errorf("unexpected offset %q", r.URL.Query().Get("midnightOffsetSeconds"))
		}
		w.Write([]byte(`{"days":[{"date":"2026-08-29","totalSeconds":5400}]}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := New(srv.URL, "k")
	summary, err := c.FetchDailySummary(context.Background(), 3600)
	if err != nil {
		t.Fatalf("fetch summary: %v", err)
	}
	if summary.TotalSeconds != 5400 {
		t.Fatalf("expected 5400 seconds, got %d", summary.TotalSeconds)
	}
}

func TestFetchDailySummaryMalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>gateway error</html>`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := New(srv.URL, "k")
	if _, err := c.FetchDailySummary(context.Background(), 0); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestFetchUserSettings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/user" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"inactivityTimeoutMinutes":10}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := New(srv.URL, "k")
	settings, err := c.FetchUserSettings(context.Background())
	if err != nil {
		t.Fatalf("fetch settings: %v", err)
	}
	if settings.InactivityTimeoutMinutes != 10 {
		t.Fatalf("expected 10 minutes, got %d", settings.InactivityTimeoutMinutes)
	}
}

func TestUnaryTimeoutBoundsHungRequests(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	c := New(srv.URL, "k").WithUnaryTimeout(50 * time.Millisecond)
	start := time.Now()
	err := c.SendHeartbeat(context.Background(), model.Heartbeat{ID: "hb-1"})
	if err == nil {
		t.Fatalf("expected timeout error")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("timeout did not bound the call: %v", elapsed)
	}
}
