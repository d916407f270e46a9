// Package crawler implements C2: sitemap-first discovery with a BFS fallback,
// fetching pages over a hardened HTTP client (spec §4.2).
package crawler

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// FetchResult is one successfully retrieved page, ready for the parser.
type FetchResult struct {
	URL         string
	FinalURL    string
	StatusCode  int
	ContentType string
	Body        []byte
	FetchedAt   time.Time
}

// userAgents is a small pool of realistic browser strings rotated through
// only when no bot UA is configured, matching internal/tools/web/fetch.go's
// rotation.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15",
}

// Fetcher retrieves pages over HTTP with bounded redirects, timeouts, and a
// response-size cap.
type Fetcher struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
}

// NewFetcher builds a Fetcher with a hardened transport: tuned dial/idle
// timeouts and capped redirects. Grounded
// on internal/tools/web/fetch.go's NewFetcher.
func NewFetcher(userAgent string, timeout time.Duration, maxRedirects int, maxBytes int64) *Fetcher {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
		TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}

	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}

	return &Fetcher{client: client, userAgent: userAgent, maxBytes: maxBytes}
}

// Fetch retrieves rawURL, enforcing the http/https scheme and the configured
// byte cap.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("crawler: parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("crawler: unsupported scheme %q", u.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("crawler: build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgentFor(rawURL))
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/markdown,text/plain;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("crawler: fetch %q: %w", rawURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("crawler: read body of %q: %w", rawURL, err)
	}

	return &FetchResult{
		URL:         rawURL,
		FinalURL:    resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
		FetchedAt:   time.Now(),
	}, nil
}

func (f *Fetcher) userAgentFor(rawURL string) string {
	if f.userAgent != "" {
		return f.userAgent
	}
	idx := int(time.Now().UnixNano()/int64(time.Millisecond)) % len(userAgents)
	if idx < 0 {
		idx = -idx
	}
	return userAgents[idx%len(userAgents)]
}

// looksLikeHTML reports whether contentType indicates an HTML document.
func looksLikeHTML(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "html")
}
