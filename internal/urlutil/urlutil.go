// Package urlutil implements the crawler's URL model: parsing restricted
// to http/https, the canonical normalized form used for dedup keys,
// relative reference resolution, and scope checks.
package urlutil

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrMalformedURL is returned when a string cannot be parsed as an
// http or https URL.
var ErrMalformedURL = errors.New("malformed URL")

// Components holds the parsed parts of an http(s) URL.
// Scheme and Host are always lowercase; Port is 0 when absent.
type Components struct {
	Scheme   string
	Host     string
	Port     int
	Path     string
	Query    string
	Fragment string
}

// IsDefaultPort reports whether the port is absent or the scheme default.
func (c Components) IsDefaultPort() bool {
	switch {
	case c.Port == 0:
		return true
	case c.Scheme == "https" && c.Port == 443:
		return true
	case c.Scheme == "http" && c.Port == 80:
		return true
	}
	return false
}

// String renders the components back to a URL. The default port is
// elided and the fragment included only when requested.
func (c Components) String(includeFragment bool) string {
	var b strings.Builder
	b.WriteString(c.Scheme)
	b.WriteString("://")
	b.WriteString(c.Host)
	if c.Port > 0 && !c.IsDefaultPort() {
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(c.Port))
	}
	if c.Path == "" {
		b.WriteByte('/')
	} else {
		b.WriteString(c.Path)
	}
	if c.Query != "" {
		b.WriteByte('?')
		b.WriteString(c.Query)
	}
	if includeFragment && c.Fragment != "" {
		b.WriteByte('#')
		b.WriteString(c.Fragment)
	}
	return b.String()
}

// Parse splits an http(s) URL into its components. Schemes other than
// http and https fail with ErrMalformedURL. Scheme and host are
// lowercased; the path defaults to "/".
//
// Design decision: We parse by hand rather than through net/url because
// the canonical form the store keys depend on (strict scheme whitelist,
// explicit port handling, raw query preserved for our own sorting) is
// easier to guarantee on a structure we fully control.
func Parse(raw string) (Components, error) {
	if raw == "" {
		return Components{}, fmt.Errorf("%w: empty string", ErrMalformedURL)
	}

	rest := raw
	var c Components

	// Scheme
	idx := strings.Index(rest, "://")
	if idx < 0 {
		return Components{}, fmt.Errorf("%w: %q has no scheme", ErrMalformedURL, raw)
	}
	c.Scheme = strings.ToLower(rest[:idx])
	if c.Scheme != "http" && c.Scheme != "https" {
		return Components{}, fmt.Errorf("%w: unsupported scheme %q", ErrMalformedURL, c.Scheme)
	}
	rest = rest[idx+3:]

	// Fragment
	if i := strings.IndexByte(rest, '#'); i >= 0 {
		c.Fragment = rest[i+1:]
		rest = rest[:i]
	}

	// Query
	if i := strings.IndexByte(rest, '?'); i >= 0 {
		c.Query = rest[i+1:]
		rest = rest[:i]
	}

	// Path
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		c.Path = rest[i:]
		rest = rest[:i]
	} else {
		c.Path = "/"
	}

	// Host and optional port
	host := rest
	if i := strings.LastIndexByte(host, ':'); i >= 0 {
		port, err := strconv.Atoi(host[i+1:])
		if err != nil || port <= 0 || port > 65535 {
			return Components{}, fmt.Errorf("%w: bad port in %q", ErrMalformedURL, raw)
		}
		c.Port = port
		host = host[:i]
	}
	if host == "" {
		return Components{}, fmt.Errorf("%w: %q has no host", ErrMalformedURL, raw)
	}
	c.Host = strings.ToLower(host)

	return c, nil
}

// IsValidHTTPURL reports whether the string parses as an http(s) URL.
func IsValidHTTPURL(raw string) bool {
	_, err := Parse(raw)
	return err == nil
}

// sortQuery rewrites a raw query string with parameters sorted
// lexicographically by key. Duplicate keys collapse to the last value
// seen, and empty values render as a bare key.
func sortQuery(query string) string {
	if query == "" {
		return ""
	}

	params := make(map[string]string)
	for _, pair := range strings.Split(query, "&") {
		if pair == "" {
			continue
		}
		if i := strings.IndexByte(pair, '='); i >= 0 {
			params[pair[:i]] = pair[i+1:]
		} else {
			params[pair] = ""
		}
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		if v := params[k]; v != "" {
			b.WriteByte('=')
			b.WriteString(v)
		}
	}
	return b.String()
}

// collapsePath removes ".", "..", and empty segments from a path.
// The removal is purely syntactic per RFC 3986 dot-segment removal.
// The root path is preserved as "/"; trailing slashes on non-root paths
// are stripped so "/docs/" and "/docs" share one canonical form.
func collapsePath(path string) string {
	if path == "" {
		return "/"
	}

	segments := make([]string, 0, 8)
	for _, seg := range strings.Split(path, "/") {
		switch seg {
		case "", ".":
			continue
		case "..":
			if len(segments) > 0 {
				segments = segments[:len(segments)-1]
			}
		default:
			segments = append(segments, seg)
		}
	}

	if len(segments) == 0 {
		return "/"
	}
	return "/" + strings.Join(segments, "/")
}

// Normalize returns the canonical form of the URL: lowercase scheme and
// host, sorted query, collapsed path, default port elided, and the
// fragment stripped unless keepFragment is set. Normalize is idempotent.
// Unparseable input is returned unchanged.
func Normalize(raw string, keepFragment bool) string {
	c, err := Parse(raw)
	if err != nil {
		return raw
	}

	c.Path = collapsePath(c.Path)
	c.Query = sortQuery(c.Query)
	if c.IsDefaultPort() {
		c.Port = 0
	}
	if !keepFragment {
		c.Fragment = ""
	}

	return c.String(keepFragment)
}

// Resolve resolves a link target against the page it was found on and
// returns the normalized absolute URL. Supported targets: absolute
// URLs, protocol-relative (//host/...), root-relative (/...),
// query-only (?...), fragment-only (#...), and dotted relative paths
// resolved against the base's directory.
func Resolve(base, rel string) (string, error) {
	if rel == "" {
		return Normalize(base, false), nil
	}

	// Absolute target.
	if strings.Contains(rel, "://") {
		c, err := Parse(rel)
		if err != nil {
			return "", err
		}
		return Normalize(c.String(true), false), nil
	}

	// Non-hierarchical schemes (mailto:, javascript:, tel:, data:) are
	// not resolvable link targets.
	if i := strings.IndexByte(rel, ':'); i > 0 {
		if j := strings.IndexAny(rel, "/?#"); j < 0 || i < j {
			return "", fmt.Errorf("%w: non-hierarchical reference %q", ErrMalformedURL, rel)
		}
	}

	b, err := Parse(base)
	if err != nil {
		return "", err
	}

	switch {
	case strings.HasPrefix(rel, "//"):
		// Protocol-relative: adopt the base scheme.
		return Resolve(base, b.Scheme+":"+rel)

	case strings.HasPrefix(rel, "/"):
		// Root-relative: replace path (and query).
		b.Path, b.Query = splitPathQuery(rel)
		b.Fragment = ""

	case strings.HasPrefix(rel, "?"):
		// Query-only: keep base path, replace query.
		b.Query = rel[1:]
		b.Fragment = ""

	case strings.HasPrefix(rel, "#"):
		// Fragment-only: keep base path and query.
		b.Fragment = rel[1:]

	default:
		// Dotted or plain relative path against the base directory.
		dir := b.Path
		if i := strings.LastIndexByte(dir, '/'); i >= 0 {
			dir = dir[:i+1]
		} else {
			dir = "/"
		}
		path, query := splitPathQuery(rel)
		b.Path = dir + path
		b.Query = query
		b.Fragment = ""
	}

	return Normalize(b.String(true), false), nil
}

// splitPathQuery splits "path?query" into its halves.
func splitPathQuery(s string) (path, query string) {
	if i := strings.IndexByte(s, '?'); i >= 0 {
		return s[:i], s[i+1:]
	}
	return s, ""
}

// InScope reports whether the URL belongs to the crawl scope: the host
// must equal allowedDomain or be a subdomain of it, and, when
// allowedPathPrefix is non-empty, the normalized path must carry it as
// a prefix.
func InScope(raw, allowedDomain, allowedPathPrefix string) bool {
	c, err := Parse(raw)
	if err != nil {
		return false
	}

	domain := strings.ToLower(allowedDomain)
	if c.Host != domain && !strings.HasSuffix(c.Host, "."+domain) {
		return false
	}

	if allowedPathPrefix != "" {
		path := collapsePath(c.Path)
		if !strings.HasPrefix(path, allowedPathPrefix) {
			return false
		}
	}

	return true
}

// ExtractDomain returns the lowercase host of the URL, or "" when the
// URL does not parse.
func ExtractDomain(raw string) string {
	c, err := Parse(raw)
	if err != nil {
		return ""
	}
	return c.Host
}

// ExtractPath returns the path of the URL ("/" when absent), or "" when
// the URL does not parse.
func ExtractPath(raw string) string {
	c, err := Parse(raw)
	if err != nil {
		return ""
	}
	if c.Path == "" {
		return "/"
	}
	return c.Path
}

// Origin returns "scheme://host[:port]" for the URL, the unit the rate
// limiter and robots cache key on.
func Origin(raw string) (string, error) {
	c, err := Parse(raw)
	if err != nil {
		return "", err
	}
	c.Path = ""
	c.Query = ""
	c.Fragment = ""
	s := c.String(false)
	return strings.TrimSuffix(s, "/"), nil
}
