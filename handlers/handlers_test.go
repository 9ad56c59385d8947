package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/awn-app/awn/pkg/awn"
	"github.com/awn-app/awn/pkg/backend"
	"github.com/awn-app/awn/pkg/proxy"
	"github.com/awn-app/awn/pkg/query"
	"github.com/awn-app/awn/pkg/ratelimit"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

// fakeAPI answers backend calls from a path table. Requests without a
// bearer token to paths in private get a 401.
type fakeAPI struct {
	routes  map[string]string
	private map[string]bool
	status  map[string]int
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + r.URL.Path
	if f.private[key] && r.Header.Get("Authorization") == "" {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"Authentication credentials were not provided."}`))
		return
	}
	body, ok := f.routes[key]
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if code, ok := f.status[key]; ok {
		w.WriteHeader(code)
	}
	_, _ = w.Write([]byte(body))
}

type testServer struct {
	app *fiber.App
	svc *awn.Service
}

func newTestServer(t *testing.T, api http.Handler, mutate ...func(*Options)) *testServer {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	svc := awn.NewService(backend.NewClient(srv.URL, srv.Client()), query.New(256, time.Minute))
	opts := Options{
		Service: svc,
		Proxy:   proxy.New(proxy.Options{Timeout: 5 * time.Second}),
		Limiter: ratelimit.NewMemory(),
	}
	for _, m := range mutate {
		m(&opts)
	}
	return &testServer{app: New(opts), svc: svc}
}

func (s *testServer) do(t *testing.T, req *http.Request) *http.Response {
	t.Helper()
	resp, err := s.app.Test(req, 10000)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func withTokens(req *http.Request, access, refresh string) *http.Request {
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "7f8c3f2e-8d1a-4c57-9a5e-0c2f4b7e1d11"})
	if access != "" {
		req.AddCookie(&http.Cookie{Name: AccessCookie, Value: access})
	}
	if refresh != "" {
		req.AddCookie(&http.Cookie{Name: RefreshCookie, Value: refresh})
	}
	return req
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	require.NoError(t, json.Unmarshal(body, &out), string(body))
	return out
}

func cookies(resp *http.Response) map[string]*http.Cookie {
	out := map[string]*http.Cookie{}
	for _, c := range resp.Cookies() {
		out[c.Name] = c
	}
	return out
}
