package endpoint

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hwbot/internal/failure"
	"hwbot/pkg/logx"
)

func TestFetchSendsCursorAndAuth(t *testing.T) {
	var gotAuth, gotFrom string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotFrom = r.URL.Query().Get("from_date")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"homeworks": [], "current_date": 1700000000}`))
	}))
	defer srv.Close()

	c := New(Config{URL: srv.URL, Token: "secret"}, logx.Nop())
	v, err := c.Fetch(context.Background(), 1699990000)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if gotAuth != "OAuth secret" {
		t.Fatalf("Authorization = %q", gotAuth)
	}
	if gotFrom != "1699990000" {
		t.Fatalf("from_date = %q", gotFrom)
	}
	m, ok := v.(map[string]any)
	if !ok {
		t.Fatalf("decoded value is %T, want map", v)
	}
	if _, ok := m["homeworks"]; !ok {
		t.Fatalf("homeworks missing from %v", m)
	}
}

func TestFetchNonOKIsUnreachable(t *testing.T) {
	for _, code := range []int{http.StatusUnauthorized, http.StatusInternalServerError, http.StatusNoContent} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(code)
		}))
		_, err := New(Config{URL: srv.URL, Token: "t"}, logx.Nop()).Fetch(context.Background(), 0)
		srv.Close()
		if !failure.Is(err, failure.EndpointUnreachable) {
			t.Fatalf("status %d: kind = %v, want EndpointUnreachable", code, failure.KindOf(err))
		}
	}
}

func TestFetchTransportErrorIsUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := New(Config{URL: url, Token: "t", Timeout: time.Second}, logx.Nop()).Fetch(context.Background(), 0)
	if !failure.Is(err, failure.EndpointUnreachable) {
		t.Fatalf("kind = %v, want EndpointUnreachable", failure.KindOf(err))
	}
}

func TestFetchGarbageBodyIsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>maintenance</html>"))
	}))
	defer srv.Close()

	_, err := New(Config{URL: srv.URL, Token: "t"}, logx.Nop()).Fetch(context.Background(), 0)
	if !failure.Is(err, failure.MalformedResponse) {
		t.Fatalf("kind = %v, want MalformedResponse", failure.KindOf(err))
	}
}

func TestNewDefaults(t *testing.T) {
	c := New(Config{}, logx.Logger{})
	if c.cfg.URL != DefaultURL || c.cfg.AuthScheme != DefaultAuthScheme || c.cfg.Timeout != DefaultTimeout {
		t.Fatalf("defaults not applied: %+v", c.cfg)
	}
}
