// Package proxy fetches third-party pages server-side and rewrites them so
// they can be framed same-origin.
package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Path is where the proxy endpoint is mounted.
const Path = "/api/proxy"

var (
	ErrMissingURL       = errors.New("URL parameter is required")
	ErrInvalidURL       = errors.New("invalid URL")
	ErrDomainNotAllowed = errors.New("domain not allowed")
)

// UpstreamError is a non-2xx answer from the proxied site.
type UpstreamError struct {
	StatusCode int
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("HTTP error! status: %d", e.StatusCode)
}

// Kind is the branch a response took.
type Kind string

const (
	KindHTML Kind = "html"
	KindJSON Kind = "json"
	KindRaw  Kind = "raw"
)

// DefaultUserAgent is a current desktop Chrome.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// browserHeaders are sent with every upstream request to look like a
// desktop browser navigation.
var browserHeaders = map[string]string{
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
	"Accept-Language":           "en-US,en;q=0.9,ar;q=0.8",
	"Cache-Control":             "no-cache",
	"Pragma":                    "no-cache",
	"Upgrade-Insecure-Requests": "1",
}

// Response is a proxied upstream answer ready to send.
type Response struct {
	Kind        Kind
	ContentType string
	Header      http.Header
	Body        []byte
}

// Options configure a Proxy.
type Options struct {
	UserAgent      string
	Rules          RuleSet
	AllowedDomains []string
	Timeout        time.Duration
	Rewriter       Rewriter
	Client         *http.Client
	LogURLs        bool
}

// Proxy fetches and rewrites upstream content. It performs one upstream
// request per call and never retries.
type Proxy struct {
	userAgent      string
	rules          RuleSet
	allowedDomains []string
	rewriter       Rewriter
	client         *http.Client
	logURLs        bool
}

// New returns a Proxy. Zero options get the desktop user agent, the regex
// rewriter and a 15 second timeout.
func New(opts Options) *Proxy {
	p := &Proxy{
		userAgent: opts.UserAgent,
		rules:     opts.Rules,
		rewriter:  opts.Rewriter,
		client:    opts.Client,
		logURLs:   opts.LogURLs,
	}
	if p.userAgent == "" {
		p.userAgent = DefaultUserAgent
	}
	if p.rewriter == nil {
		p.rewriter = RegexRewriter{}
	}
	if p.client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		p.client = &http.Client{Timeout: timeout}
	}
	for _, d := range opts.AllowedDomains {
		if d = strings.TrimSpace(d); d != "" {
			p.allowedDomains = append(p.allowedDomains, d)
		}
	}
	return p
}

// ParseTarget validates an absolute http(s) URL.
func ParseTarget(target string) (*url.URL, error) {
	if strings.TrimSpace(target) == "" {
		return nil, ErrMissingURL
	}
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if !u.IsAbs() || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("%w: %q is not an absolute http(s) URL", ErrInvalidURL, target)
	}
	return u, nil
}

func (p *Proxy) allowed(host string) bool {
	if len(p.allowedDomains) == 0 {
		return true
	}
	hostname := host
	if h, _, ok := strings.Cut(host, ":"); ok {
		hostname = h
	}
	for _, d := range p.allowedDomains {
		if domainMatches(hostname, d) {
			return true
		}
	}
	return false
}

// Fetch retrieves target and prepares it for same-origin framing. ownOrigin
// is scheme://host of this server; proxied sub-resources point at
// ownOrigin+Path.
func (p *Proxy) Fetch(ctx context.Context, target, ownOrigin string) (*Response, error) {
	u, err := ParseTarget(target)
	if err != nil {
		return nil, err
	}
	if !p.allowed(u.Host) {
		return nil, fmt.Errorf("%w: %s", ErrDomainNotAllowed, u.Host)
	}
	if p.logURLs {
		log.Info("proxy", "url", u.String())
	}

	rule, hasRule := p.rules.Match(u.Hostname(), u.Path)
	fetchURL := u
	if hasRule {
		fetchURL = modifyURL(u, rule)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create upstream request: %w", err)
	}
	for k, v := range browserHeaders {
		req.Header.Set(k, v)
	}
	req.Header.Set("User-Agent", p.userAgent)
	if rule.Headers.UserAgent != "" {
		req.Header.Set("User-Agent", rule.Headers.UserAgent)
	}
	if rule.Headers.Referer != "" && rule.Headers.Referer != "none" {
		req.Header.Set("Referer", rule.Headers.Referer)
	}
	if rule.Headers.Cookie != "" {
		req.Header.Set("Cookie", rule.Headers.Cookie)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", fetchURL.Redacted(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read upstream body: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	out := &Response{Header: make(http.Header)}

	switch {
	case strings.Contains(contentType, "text/html"):
		html := p.rewriter.RewriteHTML(string(body), u, strings.TrimRight(ownOrigin, "/")+Path)
		if rule.hasBodyRules() {
			html = applyRules(html, rule)
		}
		out.Kind = KindHTML
		out.ContentType = "text/html; charset=utf-8"
		out.Body = []byte(html)
		if rule.Headers.CSP != "" {
			out.Header.Set("Content-Security-Policy", rule.Headers.CSP)
		}
	case strings.Contains(contentType, "application/json"):
		var buf bytes.Buffer
		if err := json.Compact(&buf, body); err != nil {
			return nil, fmt.Errorf("parse upstream json: %w", err)
		}
		out.Kind = KindJSON
		out.ContentType = "application/json"
		out.Body = buf.Bytes()
	default:
		out.Kind = KindRaw
		out.ContentType = contentType
		if out.ContentType == "" {
			out.ContentType = "application/octet-stream"
		}
		out.Body = body
	}
	return out, nil
}
