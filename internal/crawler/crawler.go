package crawler

import (
	"context"
	"encoding/xml"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/sync/semaphore"

	"docvector/internal/crawler/robots"
	"docvector/internal/crawler/urlnorm"
)

// Config bounds one crawl run (spec §4.2).
type Config struct {
	StartURL           string
	MaxDepth           int
	MaxPages           int
	ConcurrentRequests int
	RespectRobotsTxt   bool
	UserAgent          string
	AllowedHosts       []string // empty means "same host as StartURL only"

	// Pattern is a shell-glob-style filter ("*" wildcard, fnmatch semantics
	// per original_source/ingestion/crawl4ai_crawler.py's url_pattern) applied
	// to every candidate URL in both sitemap and BFS mode; "" or "*" admits
	// everything.
	Pattern string
}

// Page is one discovered, fetched page handed to the parser.
type Page struct {
	URL        string
	Depth      int
	StatusCode int
	Body       []byte
}

// Crawler discovers and fetches pages for one source, sitemap-first with a
// BFS fallback, grounded on original_source/ingestion/web_crawler.py.
type Crawler struct {
	fetcher *Fetcher
	robots  *robots.Cache
}

func New(fetcher *Fetcher, robotsCache *robots.Cache) *Crawler {
	return &Crawler{fetcher: fetcher, robots: robotsCache}
}

// Crawl runs the sitemap-first, BFS-fallback discovery policy. It never
// returns a partial error: fetch failures for individual pages are dropped
// (logged by the caller via the yielded Page's absence), matching the
// original crawler's _fetch_urls per-URL exception isolation.
func (c *Crawler) Crawl(ctx context.Context, cfg Config) ([]Page, error) {
	start, err := urlnorm.Normalize(cfg.StartURL)
	if err != nil {
		return nil, fmt.Errorf("crawler: %w", err)
	}

	if pages, ok := c.crawlSitemap(ctx, cfg, start); ok {
		return pages, nil
	}
	return c.crawlBFS(ctx, cfg, start)
}

// compilePattern translates a shell-glob pattern ("*" matches any run of
// characters, including path separators, matching Python fnmatch semantics)
// into an anchored regexp. A nil return means "admit everything".
func compilePattern(pattern string) *regexp.Regexp {
	if pattern == "" || pattern == "*" {
		return nil
	}
	quoted := regexp.QuoteMeta(pattern)
	quoted = strings.ReplaceAll(quoted, `\*`, `.*`)
	return regexp.MustCompile("^" + quoted + "$")
}

func matchesPattern(pat *regexp.Regexp, url string) bool {
	return pat == nil || pat.MatchString(url)
}

type sitemapURLSet struct {
	XMLName xml.Name      `xml:"urlset"`
	URLs    []sitemapURL  `xml:"url"`
}

type sitemapURL struct {
	Loc string `xml:"loc"`
}

// crawlSitemap attempts GET {scheme}://{host}/sitemap.xml first; returns
// ok=false if the sitemap doesn't exist or fails to parse, signalling the
// caller to fall back to BFS.
func (c *Crawler) crawlSitemap(ctx context.Context, cfg Config, start string) ([]Page, bool) {
	sitemapURL, err := urlnorm.Resolve(start, "/sitemap.xml")
	if err != nil {
		return nil, false
	}

	res, err := c.fetcher.Fetch(ctx, sitemapURL)
	if err != nil || res.StatusCode != 200 {
		return nil, false
	}

	var set sitemapURLSet
	if err := xml.Unmarshal(res.Body, &set); err != nil || len(set.URLs) == 0 {
		return nil, false
	}

	pat := compilePattern(cfg.Pattern)
	locs := make([]string, 0, len(set.URLs))
	for _, u := range set.URLs {
		loc := strings.TrimSpace(u.Loc)
		if loc == "" || !matchesPattern(pat, loc) {
			continue
		}
		if cfg.MaxPages > 0 && len(locs) >= cfg.MaxPages {
			break
		}
		locs = append(locs, loc)
	}
	if len(locs) == 0 {
		return nil, false
	}

	return c.fetchAll(ctx, cfg, locs, 0), true
}

type queueItem struct {
	url   string
	depth int
}

// crawlBFS performs a breadth-first traversal following in-document <a>
// links, bounded by MaxDepth/MaxPages, grounded on the original's
// _crawl_recursive. Pages are fetched one at a time; ConcurrentRequests is
// not consulted in BFS mode (only the sitemap path's fetchAll uses it).
func (c *Crawler) crawlBFS(ctx context.Context, cfg Config, start string) ([]Page, error) {
	visited := map[string]bool{start: true}
	queue := []queueItem{{url: start, depth: 0}}
	var pages []Page

	pat := compilePattern(cfg.Pattern)
	allowedHosts := cfg.AllowedHosts
	if len(allowedHosts) == 0 {
		allowedHosts = []string{hostOf(start)}
	}

	for len(queue) > 0 && (cfg.MaxPages <= 0 || len(pages) < cfg.MaxPages) {
		item := queue[0]
		queue = queue[1:]

		if item.depth > cfg.MaxDepth {
			continue
		}
		if cfg.RespectRobotsTxt && c.robots != nil && !c.robots.Allowed(ctx, item.url) {
			continue
		}

		res, err := c.fetcher.Fetch(ctx, item.url)
		if err != nil || res.StatusCode >= 400 {
			continue
		}
		pages = append(pages, Page{URL: item.url, Depth: item.depth, StatusCode: res.StatusCode, Body: res.Body})

		if item.depth >= cfg.MaxDepth || !looksLikeHTML(res.ContentType) {
			continue
		}

		for _, href := range extractLinks(res.Body) {
			abs, err := urlnorm.Resolve(item.url, href)
			if err != nil {
				continue
			}
			norm, err := urlnorm.Normalize(abs)
			if err != nil || urlnorm.IsBinary(norm) {
				continue
			}
			if !shouldCrawl(norm, allowedHosts) || visited[norm] || !matchesPattern(pat, norm) {
				continue
			}
			visited[norm] = true
			if cfg.MaxPages > 0 && len(visited) > cfg.MaxPages {
				continue
			}
			queue = append(queue, queueItem{url: norm, depth: item.depth + 1})
		}
	}

	return pages, nil
}

// fetchAll fetches urls concurrently, bounded by cfg.ConcurrentRequests,
// isolating per-URL failures.
func (c *Crawler) fetchAll(ctx context.Context, cfg Config, urls []string, depth int) []Page {
	limit := int64(cfg.ConcurrentRequests)
	if limit <= 0 {
		limit = 1
	}
	sem := semaphore.NewWeighted(limit)

	var mu sync.Mutex
	var pages []Page
	var wg sync.WaitGroup

	for _, u := range urls {
		u := u
		if cfg.RespectRobotsTxt && c.robots != nil && !c.robots.Allowed(ctx, u) {
			continue
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			res, err := c.fetcher.Fetch(ctx, u)
			if err != nil || res.StatusCode >= 400 {
				return
			}
			mu.Lock()
			pages = append(pages, Page{URL: u, Depth: depth, StatusCode: res.StatusCode, Body: res.Body})
			mu.Unlock()
		}()
	}
	wg.Wait()
	return pages
}

func shouldCrawl(target string, allowedHosts []string) bool {
	th := hostOf(target)
	for _, h := range allowedHosts {
		if strings.EqualFold(th, h) || strings.HasSuffix(strings.ToLower(th), "."+strings.ToLower(h)) {
			return true
		}
	}
	return false
}

func hostOf(rawURL string) string {
	norm, err := urlnorm.Normalize(rawURL)
	if err != nil {
		return ""
	}
	withoutScheme := strings.SplitN(norm, "://", 2)
	if len(withoutScheme) != 2 {
		return ""
	}
	hostAndPath := withoutScheme[1]
	return strings.SplitN(hostAndPath, "/", 2)[0]
}

// extractLinks walks the parsed HTML tree collecting every <a href> target,
// grounded on internal/web/web.go's golang.org/x/net/html traversal idiom.
func extractLinks(body []byte) []string {
	doc, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return nil
	}
	var links []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key == "href" && attr.Val != "" && !strings.HasPrefix(attr.Val, "#") {
					links = append(links, attr.Val)
					break
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return links
}
