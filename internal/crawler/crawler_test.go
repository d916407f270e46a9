package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docvector/internal/crawler/robots"
)

func TestCrawlSitemapCapsAtMaxPages(t *testing.T) {
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.Write([]byte(`<?xml version="1.0"?><urlset>
			<url><loc>` + srv.URL + `/a</loc></url>
			<url><loc>` + srv.URL + `/b</loc></url>
			<url><loc>` + srv.URL + `/c</loc></url>
		</urlset>`))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><body>hi</body></html>"))
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	fetcher := NewFetcher("docvector-bot", 5*time.Second, 5, 1<<20)
	c := New(fetcher, robots.New(srv.Client(), "docvector-bot", time.Minute))

	pages, err := c.Crawl(context.Background(), Config{
		StartURL:           srv.URL,
		MaxDepth:           2,
		MaxPages:           2,
		ConcurrentRequests: 2,
		RespectRobotsTxt:   false,
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(pages), 2)
}

func TestCrawlBFSFollowsLinksWithinDepth(t *testing.T) {
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body><a href="/child">child</a></body></html>`))
	})
	mux.HandleFunc("/child", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body>leaf</body></html>`))
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	fetcher := NewFetcher("docvector-bot", 5*time.Second, 5, 1<<20)
	c := New(fetcher, robots.New(srv.Client(), "docvector-bot", time.Minute))

	pages, err := c.Crawl(context.Background(), Config{
		StartURL:           srv.URL,
		MaxDepth:           1,
		MaxPages:           10,
		ConcurrentRequests: 2,
		RespectRobotsTxt:   false,
	})
	require.NoError(t, err)
	assert.Len(t, pages, 2)
}

func TestCrawlBFSRespectsRobotsDisallow(t *testing.T) {
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("User-agent: *\nDisallow: /secret\n"))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body><a href="/secret">nope</a></body></html>`))
	})
	mux.HandleFunc("/secret", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("should not be fetched"))
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	fetcher := NewFetcher("docvector-bot", 5*time.Second, 5, 1<<20)
	c := New(fetcher, robots.New(srv.Client(), "docvector-bot", time.Minute))

	pages, err := c.Crawl(context.Background(), Config{
		StartURL:           srv.URL,
		MaxDepth:           2,
		MaxPages:           10,
		ConcurrentRequests: 2,
		RespectRobotsTxt:   true,
	})
	require.NoError(t, err)
	for _, p := range pages {
		assert.NotContains(t, p.URL, "/secret")
	}
}

func TestCrawlSitemapFiltersByPattern(t *testing.T) {
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.Write([]byte(`<?xml version="1.0"?><urlset>
			<url><loc>` + srv.URL + `/docs/a</loc></url>
			<url><loc>` + srv.URL + `/blog/b</loc></url>
			<url><loc>` + srv.URL + `/docs/c</loc></url>
		</urlset>`))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><body>hi</body></html>"))
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	fetcher := NewFetcher("docvector-bot", 5*time.Second, 5, 1<<20)
	c := New(fetcher, robots.New(srv.Client(), "docvector-bot", time.Minute))

	pages, err := c.Crawl(context.Background(), Config{
		StartURL:           srv.URL,
		MaxDepth:           2,
		MaxPages:           10,
		ConcurrentRequests: 2,
		RespectRobotsTxt:   false,
		Pattern:            "*/docs/*",
	})
	require.NoError(t, err)
	assert.Len(t, pages, 2)
	for _, p := range pages {
		assert.Contains(t, p.URL, "/docs/")
	}
}

func TestCrawlBFSFiltersLinksByPattern(t *testing.T) {
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body><a href="/docs/child">docs</a><a href="/blog/child">blog</a></body></html>`))
	})
	mux.HandleFunc("/docs/child", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body>leaf</body></html>`))
	})
	mux.HandleFunc("/blog/child", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body>leaf</body></html>`))
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	fetcher := NewFetcher("docvector-bot", 5*time.Second, 5, 1<<20)
	c := New(fetcher, robots.New(srv.Client(), "docvector-bot", time.Minute))

	pages, err := c.Crawl(context.Background(), Config{
		StartURL:           srv.URL,
		MaxDepth:           1,
		MaxPages:           10,
		ConcurrentRequests: 2,
		RespectRobotsTxt:   false,
		Pattern:            "*/docs/*",
	})
	require.NoError(t, err)
	for _, p := range pages {
		assert.NotContains(t, p.URL, "/blog/")
	}
}
