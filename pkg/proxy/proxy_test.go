package proxy

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ownOrigin = "https://awn.example"

func upstream(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchHTML(t *testing.T) {
	var gotUA, gotAccept string
	srv := upstream(t, func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><head><title>x</title><link rel="stylesheet" href="https://cdn.example/a.css"></head>` +
			`<body><img src="https://img.example/p.png?w=1&amp;h=2"><img src="/local.png"><script src="https://cdn.example/app.js"></script></body></html>`))
	})

	p := New(Options{})
	res, err := p.Fetch(context.Background(), srv.URL+"/jobs/42?ref=x", ownOrigin)
	require.NoError(t, err)

	assert.Equal(t, KindHTML, res.Kind)
	assert.Equal(t, "text/html; charset=utf-8", res.ContentType)
	assert.Equal(t, DefaultUserAgent, gotUA)
	assert.Contains(t, gotAccept, "text/html")

	body := string(res.Body)
	assert.Contains(t, body, `<head><base href="`+srv.URL+`/jobs/42">`)
	assert.Contains(t, body, `href="`+ownOrigin+`/api/proxy?url=`+url.QueryEscape("https://cdn.example/a.css")+`"`)
	assert.Contains(t, body, `src="`+ownOrigin+`/api/proxy?url=`+url.QueryEscape("https://cdn.example/app.js")+`"`)
	assert.Contains(t, body, `src="`+ownOrigin+`/api/proxy?url=`+url.QueryEscape("https://img.example/p.png?w=1&h=2")+`"`)
	assert.Contains(t, body, `<img src="/local.png">`)
	assert.Contains(t, body, ResponsiveCSS+"</head>")
}

func TestFetchJSON(t *testing.T) {
	srv := upstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"z": 1, "a": [true, null, "x"]}`))
	})

	res, err := New(Options{}).Fetch(context.Background(), srv.URL, ownOrigin)
	require.NoError(t, err)
	assert.Equal(t, KindJSON, res.Kind)
	assert.Equal(t, "application/json", res.ContentType)
	assert.JSONEq(t, `{"z": 1, "a": [true, null, "x"]}`, string(res.Body))
	assert.Equal(t, `{"z":1,"a":[true,null,"x"]}`, string(res.Body))
}

func TestFetchInvalidJSON(t *testing.T) {
	srv := upstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{nope`))
	})

	_, err := New(Options{}).Fetch(context.Background(), srv.URL, ownOrigin)
	assert.Error(t, err)
}

func TestFetchRawPassthrough(t *testing.T) {
	payload := []byte{0x25, 0x50, 0x44, 0x46, 0x00, 0xff, 0x10}
	srv := upstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write(payload)
	})

	res, err := New(Options{}).Fetch(context.Background(), srv.URL+"/doc.pdf", ownOrigin)
	require.NoError(t, err)
	assert.Equal(t, KindRaw, res.Kind)
	assert.Equal(t, "application/pdf", res.ContentType)
	assert.Equal(t, payload, res.Body)
}

func TestFetchUpstreamError(t *testing.T) {
	srv := upstream(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	})

	_, err := New(Options{}).Fetch(context.Background(), srv.URL, ownOrigin)
	var upErr *UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, http.StatusNotFound, upErr.StatusCode)
	assert.Equal(t, "HTTP error! status: 404", err.Error())
}

func TestParseTarget(t *testing.T) {
	_, err := ParseTarget("")
	assert.ErrorIs(t, err, ErrMissingURL)

	for _, bad := range []string{"not a url", "/relative/path", "ftp://files.example/x", "http://", "://x"} {
		_, err := ParseTarget(bad)
		assert.ErrorIs(t, err, ErrInvalidURL, bad)
	}

	u, err := ParseTarget("https://jobs.example/a?b=c")
	require.NoError(t, err)
	assert.Equal(t, "jobs.example", u.Host)
}

func TestAllowedDomains(t *testing.T) {
	p := New(Options{AllowedDomains: []string{"", " example.org "}})
	assert.True(t, p.allowed("example.org"))
	assert.True(t, p.allowed("www.example.org:8443"))
	assert.False(t, p.allowed("example.org.evil.com"))

	_, err := p.Fetch(context.Background(), "https://evil.example/x", ownOrigin)
	assert.True(t, errors.Is(err, ErrDomainNotAllowed))

	assert.True(t, New(Options{AllowedDomains: []string{""}}).allowed("anything.example"))
}

func TestFetchAppliesRule(t *testing.T) {
	var gotUA, gotCookie, gotQuery string
	srv := upstream(t, func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotCookie = r.Header.Get("Cookie")
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head></head><body><div class="paywall">pay</div><p>text</p></body></html>`))
	})
	host := strings.TrimPrefix(srv.URL, "http://")
	hostname := strings.Split(host, ":")[0]

	var rule Rule
	rule.Domain = hostname
	rule.Headers.UserAgent = "AwnBot/1.0"
	rule.Headers.Cookie = "consent=yes"
	rule.Headers.CSP = "default-src 'self'"
	rule.URLMods.Query = []KV{{Key: "amp", Value: "1"}, {Key: "utm", Value: ""}}
	rule.RegexRules = []Regex{{Match: `pay</div>`, Replace: `free</div>`}}
	rule.Injections = []Injection{{Position: ".paywall", Replace: `<div class="open">open</div>`}}

	p := New(Options{Rules: RuleSet{rule}})
	res, err := p.Fetch(context.Background(), srv.URL+"/story?utm=x", ownOrigin)
	require.NoError(t, err)

	assert.Equal(t, "AwnBot/1.0", gotUA)
	assert.Equal(t, "consent=yes", gotCookie)
	assert.Equal(t, "amp=1", gotQuery)
	assert.Equal(t, "default-src 'self'", res.Header.Get("Content-Security-Policy"))
	assert.Contains(t, string(res.Body), `<div class="open">open</div>`)
	assert.NotContains(t, string(res.Body), "paywall")
}
