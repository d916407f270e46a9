package robots

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowedFailsOpenOn404(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.Client(), "docvector-bot", time.Minute)
	assert.True(t, c.Allowed(context.Background(), srv.URL+"/docs/guide"))
}

func TestAllowedFailsOpenOnUnreachable(t *testing.T) {
	c := New(nil, "docvector-bot", time.Minute)
	assert.True(t, c.Allowed(context.Background(), "http://127.0.0.1:1/docs"))
}

func TestAllowedRespectsDisallow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.Write([]byte("User-agent: *\nDisallow: /private\n"))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.Client(), "docvector-bot", time.Minute)
	assert.False(t, c.Allowed(context.Background(), srv.URL+"/private/page"))
	assert.True(t, c.Allowed(context.Background(), srv.URL+"/docs/guide"))
}

func TestAllowedLongerAllowOverridesDisallow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.Write([]byte("User-agent: *\nDisallow: /docs\nAllow: /docs/public\n"))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.Client(), "docvector-bot", time.Minute)
	assert.True(t, c.Allowed(context.Background(), srv.URL+"/docs/public/page"))
	assert.False(t, c.Allowed(context.Background(), srv.URL+"/docs/private"))
}

func TestCacheReusesEntryWithinTTL(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte("User-agent: *\nDisallow: /x\n"))
	}))
	defer srv.Close()

	c := New(srv.Client(), "docvector-bot", time.Minute)
	c.Allowed(context.Background(), srv.URL+"/a")
	c.Allowed(context.Background(), srv.URL+"/b")
	assert.Equal(t, 1, hits)
}
