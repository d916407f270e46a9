// Package robots implements the crawler's robots.txt fail-open policy cache
// (spec §4.1, component C1). A fetch failure or non-200 status is treated as
// "crawling allowed" rather than blocking ingestion on a flaky origin,
// matching the teacher's internal/web/web.go checkRobotsTxt.
package robots

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// ruleSet is the parsed disallow/allow rules for one user-agent group.
type ruleSet struct {
	disallow []string
	allow    []string
}

// Cache fetches and caches robots.txt per host, fail-open on any error.
type Cache struct {
	client    *http.Client
	userAgent string
	ttl       time.Duration

	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	rules     ruleSet
	fetchedAt time.Time
	failed    bool
}

// New constructs a Cache. client may be nil, in which case a fresh
// http.Client with a 10-second timeout is used.
func New(client *http.Client, userAgent string, ttl time.Duration) *Cache {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{
		client:    client,
		userAgent: userAgent,
		ttl:       ttl,
		entries:   make(map[string]cacheEntry),
	}
}

// Allowed reports whether userAgent may fetch rawURL, per the cached
// robots.txt of its host. Any failure to fetch or parse robots.txt fails
// open (returns true) rather than blocking the crawl.
func (c *Cache) Allowed(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return true
	}
	origin := u.Scheme + "://" + u.Host

	c.mu.Lock()
	entry, ok := c.entries[origin]
	stale := !ok || time.Since(entry.fetchedAt) > c.ttl
	c.mu.Unlock()

	if stale {
		entry = c.fetch(ctx, origin)
		c.mu.Lock()
		c.entries[origin] = entry
		c.mu.Unlock()
	}

	if entry.failed {
		return true
	}
	return isAllowed(entry.rules, u.Path)
}

func (c *Cache) fetch(ctx context.Context, origin string) cacheEntry {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return cacheEntry{failed: true, fetchedAt: time.Now()}
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return cacheEntry{failed: true, fetchedAt: time.Now()}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return cacheEntry{failed: true, fetchedAt: time.Now()}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return cacheEntry{failed: true, fetchedAt: time.Now()}
	}
	return cacheEntry{rules: parse(string(body), c.userAgent), fetchedAt: time.Now()}
}

// parse extracts the Disallow/Allow rules applying to ua (or "*" if no
// group names ua). A group matches when its lower-cased name occurs anywhere
// in the lower-cased ua, the same loose matching real crawlers use.
func parse(body, ua string) ruleSet {
	groups := make(map[string]*ruleSet)
	var current []*ruleSet
	lastWasUA := false

	addRule := func(disallow bool, value string) {
		for _, rs := range current {
			if disallow {
				rs.disallow = append(rs.disallow, value)
			} else {
				rs.allow = append(rs.allow, value)
			}
		}
	}

	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		val = strings.TrimSpace(val)

		switch key {
		case "user-agent":
			name := strings.ToLower(val)
			rs, ok := groups[name]
			if !ok {
				rs = &ruleSet{}
				groups[name] = rs
			}
			// Consecutive User-agent lines belong to the same group.
			if !lastWasUA {
				current = nil
			}
			current = append(current, rs)
			lastWasUA = true
			continue
		case "disallow":
			addRule(true, val)
		case "allow":
			addRule(false, val)
		}
		lastWasUA = false
	}

	lowerUA := strings.ToLower(ua)
	for name, rs := range groups {
		if name != "*" && strings.Contains(lowerUA, name) {
			return *rs
		}
	}
	if rs, ok := groups["*"]; ok {
		return *rs
	}
	return ruleSet{}
}

func isAllowed(rules ruleSet, path string) bool {
	if path == "" {
		path = "/"
	}
	// Longest matching rule wins; Allow beats Disallow of equal length.
	bestLen := -1
	allowed := true
	for _, d := range rules.disallow {
		if d == "" {
			continue
		}
		if strings.HasPrefix(path, d) && len(d) > bestLen {
			bestLen = len(d)
			allowed = false
		}
	}
	for _, a := range rules.allow {
		if a == "" {
			continue
		}
		if strings.HasPrefix(path, a) && len(a) >= bestLen {
			bestLen = len(a)
			allowed = true
		}
	}
	return allowed
}
