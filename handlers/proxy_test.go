package handlers

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/awn-app/awn/pkg/proxy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func site(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/page":
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(`<html><head><title>Bursary</title></head><body>` +
				`<script src="https://cdn.example/app.js"></script><img src="/logo.png"></body></html>`))
		case "/data":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte("{\n  \"b\": 1,\n  \"a\": [1, 2]\n}"))
		case "/logo.png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write([]byte{0x89, 'P', 'N', 'G'})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func proxyRequest(method, target string) *http.Request {
	u := "http://awn.test" + proxy.Path
	if target != "" {
		u += "?url=" + url.QueryEscape(target)
	}
	return httptest.NewRequest(method, u, nil)
}

func assertCORS(t *testing.T, resp *http.Response) {
	t.Helper()
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, OPTIONS", resp.Header.Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type", resp.Header.Get("Access-Control-Allow-Headers"))
}

func TestProxyMissingURL(t *testing.T) {
	s := newTestServer(t, &fakeAPI{})
	resp := s.do(t, proxyRequest(http.MethodGet, ""))

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "URL parameter is required", decode(t, resp)["error"])
}

func TestProxyHTML(t *testing.T) {
	up := site(t)
	s := newTestServer(t, &fakeAPI{})
	resp := s.do(t, proxyRequest(http.MethodGet, up.URL+"/page"))

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Equal(t, "SAMEORIGIN", resp.Header.Get("X-Frame-Options"))
	assertCORS(t, resp)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	html := string(body)
	assert.Contains(t, html, `<script src="http://awn.test/api/proxy?url=`+url.QueryEscape("https://cdn.example/app.js")+`">`)
	assert.Contains(t, html, `<img src="/logo.png">`, "relative URLs resolve through the base tag")
	assert.Contains(t, html, `<head><base href="`+up.URL+`/page">`)
	assert.Less(t, strings.Index(html, "<style>"), strings.Index(html, "</head>"))
}

func TestProxyPublicOrigin(t *testing.T) {
	up := site(t)
	s := newTestServer(t, &fakeAPI{}, func(o *Options) { o.PublicOrigin = "https://awn.org" })
	resp := s.do(t, proxyRequest(http.MethodGet, up.URL+"/page"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `src="https://awn.org/api/proxy?url=`)
}

func TestProxyJSON(t *testing.T) {
	up := site(t)
	s := newTestServer(t, &fakeAPI{})
	resp := s.do(t, proxyRequest(http.MethodGet, up.URL+"/data"))

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Empty(t, resp.Header.Get("X-Frame-Options"))
	assertCORS(t, resp)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, `{"b":1,"a":[1,2]}`, string(body))
}

func TestProxyRaw(t *testing.T) {
	up := site(t)
	s := newTestServer(t, &fakeAPI{})
	resp := s.do(t, proxyRequest(http.MethodGet, up.URL+"/logo.png"))

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assertCORS(t, resp)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, body)
}

func TestProxyUpstreamError(t *testing.T) {
	up := site(t)
	s := newTestServer(t, &fakeAPI{})
	resp := s.do(t, proxyRequest(http.MethodGet, up.URL+"/missing"))

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	out := decode(t, resp)
	assert.Equal(t, "Failed to fetch content", out["error"])
	assert.Contains(t, out["details"], "404")
}

func TestProxyInvalidURL(t *testing.T) {
	s := newTestServer(t, &fakeAPI{})
	resp := s.do(t, proxyRequest(http.MethodGet, "not a url"))

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Failed to fetch content", decode(t, resp)["error"])
}

func TestProxyDisallowedDomain(t *testing.T) {
	s := newTestServer(t, &fakeAPI{}, func(o *Options) {
		o.Proxy = proxy.New(proxy.Options{AllowedDomains: []string{"jobs.example"}, Timeout: time.Second})
	})
	resp := s.do(t, proxyRequest(http.MethodGet, "https://elsewhere.example/"))

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestProxyPreflight(t *testing.T) {
	s := newTestServer(t, &fakeAPI{})
	resp := s.do(t, proxyRequest(http.MethodOptions, ""))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assertCORS(t, resp)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Empty(t, body)
}

func TestProxyRateLimit(t *testing.T) {
	up := site(t)
	s := newTestServer(t, &fakeAPI{}, func(o *Options) { o.ProxyRateLimit = 1 })

	first := s.do(t, proxyRequest(http.MethodGet, up.URL+"/data"))
	assert.Equal(t, http.StatusOK, first.StatusCode)
	second := s.do(t, proxyRequest(http.MethodGet, up.URL+"/data"))
	assert.Equal(t, http.StatusTooManyRequests, second.StatusCode)
}
