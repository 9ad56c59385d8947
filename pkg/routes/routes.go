// Package routes is the single route table shared by the edge guard and the
// session guard. Both layers must classify paths through this package.
package routes

import (
	"net/url"
	"strings"
)

// Kind classifies a page path.
type Kind int

const (
	Unclassified Kind = iota
	Public
	Protected
	GuestOnly
)

func (k Kind) String() string {
	switch k {
	case Public:
		return "public"
	case Protected:
		return "protected"
	case GuestOnly:
		return "guest-only"
	}
	return "unclassified"
}

// LoginPath is where unauthenticated visitors of protected pages are sent.
const LoginPath = "/login"

// HomePath is where authenticated visitors of guest-only pages are sent.
const HomePath = "/"

// A segment written as [id] matches any single non-empty path segment.
var (
	ProtectedRoutes = []string{
		"/profile",
		"/favorites",
		"/tracker",
		"/notifications",
		"/dashboard",
		"/admin",
		"/announcements/[id]",
		"/organizations/[id]",
	}
	GuestOnlyRoutes = []string{
		"/login",
		"/register",
		"/forgot-password",
		"/reset-password",
		"/verify-otp",
	}
	PublicRoutes = []string{
		"/",
		"/about",
		"/announcements",
		"/organizations",
		"/api/proxy",
	}
)

// Classify returns the kind of path. Protected wins over guest-only, which
// wins over public.
func Classify(path string) Kind {
	p := normalize(path)
	switch {
	case matchAny(p, ProtectedRoutes):
		return Protected
	case matchAny(p, GuestOnlyRoutes):
		return GuestOnly
	case matchAny(p, PublicRoutes):
		return Public
	}
	return Unclassified
}

func IsProtectedRoute(path string) bool { return Classify(path) == Protected }

func IsGuestOnlyRoute(path string) bool { return Classify(path) == GuestOnly }

func IsPublicRoute(path string) bool { return Classify(path) == Public }

// Decide returns the redirect target for path given the authentication
// signal, and false when the request may proceed.
func Decide(path string, authenticated bool) (string, bool) {
	switch Classify(path) {
	case Protected:
		if !authenticated {
			return LoginPath + "?redirect=" + url.QueryEscape(normalize(path)), true
		}
	case GuestOnly:
		if authenticated {
			return HomePath, true
		}
	}
	return "", false
}

func normalize(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			return "/"
		}
	}
	return path
}

func matchAny(path string, patterns []string) bool {
	for _, pattern := range patterns {
		if match(path, pattern) {
			return true
		}
	}
	return false
}

func match(path, pattern string) bool {
	if pattern == "/" {
		return path == "/"
	}
	if !strings.Contains(pattern, "[") {
		return path == pattern || strings.HasPrefix(path, pattern+"/")
	}

	want := strings.Split(strings.Trim(pattern, "/"), "/")
	got := strings.Split(strings.Trim(path, "/"), "/")
	if len(want) != len(got) {
		return false
	}
	for i, seg := range want {
		if strings.HasPrefix(seg, "[") && strings.HasSuffix(seg, "]") {
			if got[i] == "" {
				return false
			}
			continue
		}
		if seg != got[i] {
			return false
		}
	}
	return true
}
