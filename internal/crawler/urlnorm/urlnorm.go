// Package urlnorm implements URL canonicalisation and the binary-extension
// reject filter used by the crawler before a URL is queued or deduplicated
// (spec §4.1, component C1).
package urlnorm

import (
	"fmt"
	"net/url"
	"path"
	"sort"
	"strings"
)

// binaryExtensions are rejected outright: the crawler only follows documents
// it can parse as HTML or Markdown.
var binaryExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".svg": true,
	".webp": true, ".ico": true, ".bmp": true, ".tiff": true,
	".pdf": true, ".zip": true, ".tar": true, ".gz": true, ".bz2": true, ".7z": true,
	".mp3": true, ".mp4": true, ".mov": true, ".avi": true, ".webm": true,
	".woff": true, ".woff2": true, ".ttf": true, ".eot": true,
	".exe": true, ".dmg": true, ".pkg": true, ".deb": true, ".rpm": true,
	".css": true, ".js": true, ".json": true, ".xml": true, ".csv": true,
}

// Normalize canonicalises raw into a stable form: lowercases scheme and host,
// strips the fragment, strips a trailing slash (except for the root path),
// and sorts query parameters for stable ordering. It never changes the
// semantic target of the URL.
//
// Normalize is idempotent: Normalize(Normalize(u)) == Normalize(u).
func Normalize(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("urlnorm: parse %q: %w", raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("urlnorm: %q is not an absolute URL", raw)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	if u.Path == "" {
		u.Path = "/"
	} else if u.Path != "/" && strings.HasSuffix(u.Path, "/") {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}
	u.Path = path.Clean(u.Path)
	if u.Path == "." {
		u.Path = "/"
	}

	if u.RawQuery != "" {
		q := u.Query()
		keys := make([]string, 0, len(q))
		for k := range q {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var b strings.Builder
		for i, k := range keys {
			vals := q[k]
			sort.Strings(vals)
			for j, v := range vals {
				if i > 0 || j > 0 {
					b.WriteByte('&')
				}
				b.WriteString(url.QueryEscape(k))
				b.WriteByte('=')
				b.WriteString(url.QueryEscape(v))
			}
		}
		u.RawQuery = b.String()
	}

	return u.String(), nil
}

// IsBinary reports whether u's path extension is a known non-document type
// that the parser cannot handle, per spec §4.1's reject filter.
func IsBinary(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	ext := strings.ToLower(path.Ext(u.Path))
	return binaryExtensions[ext]
}

// Resolve joins ref against base, returning an absolute URL. Used when the
// crawler follows a relative href discovered in a fetched page.
func Resolve(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("urlnorm: parse base %q: %w", base, err)
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("urlnorm: parse ref %q: %w", ref, err)
	}
	return b.ResolveReference(r).String(), nil
}

// SameHost reports whether a and b share a host, ignoring scheme and case.
// Hosts must be equal; a subdomain of the other host does not match.
func SameHost(a, b string) bool {
	ua, err1 := url.Parse(a)
	ub, err2 := url.Parse(b)
	if err1 != nil || err2 != nil {
		return false
	}
	return strings.EqualFold(ua.Host, ub.Host)
}
