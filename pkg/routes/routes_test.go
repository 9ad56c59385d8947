package routes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProtectedRoutes(t *testing.T) {
	for _, p := range []string{
		"/profile",
		"/profile/edit",
		"/favorites",
		"/tracker",
		"/notifications",
		"/dashboard/announcements",
		"/admin",
		"/announcements/42",
		"/announcements/42/",
		"/organizations/7",
	} {
		assert.True(t, IsProtectedRoute(p), p)
		assert.False(t, IsGuestOnlyRoute(p), p)
	}
}

func TestGuestOnlyRoutes(t *testing.T) {
	for _, p := range []string{"/login", "/register", "/forgot-password", "/reset-password?token=x", "/verify-otp"} {
		assert.True(t, IsGuestOnlyRoute(p), p)
		assert.False(t, IsProtectedRoute(p), p)
	}
}

func TestRootMatchesNeither(t *testing.T) {
	for _, p := range []string{"/", "", "/?tab=1"} {
		assert.False(t, IsProtectedRoute(p), p)
		assert.False(t, IsGuestOnlyRoute(p), p)
		assert.True(t, IsPublicRoute(p), p)
	}
}

func TestDynamicSegment(t *testing.T) {
	assert.Equal(t, Public, Classify("/announcements"))
	assert.Equal(t, Protected, Classify("/announcements/abc"))
	assert.Equal(t, Public, Classify("/organizations"))
	assert.Equal(t, Unclassified, Classify("/profiles"))
	assert.Equal(t, Unclassified, Classify("/loginx"))
}

func TestDecide(t *testing.T) {
	tests := []struct {
		path          string
		authenticated bool
		redirect      string
		ok            bool
	}{
		{"/profile", false, "/login?redirect=%2Fprofile", true},
		{"/profile", true, "", false},
		{"/announcements/42", false, "/login?redirect=%2Fannouncements%2F42", true},
		{"/login", true, "/", true},
		{"/login", false, "", false},
		{"/", false, "", false},
		{"/", true, "", false},
		{"/announcements", false, "", false},
	}
	for _, tt := range tests {
		redirect, ok := Decide(tt.path, tt.authenticated)
		assert.Equal(t, tt.ok, ok, tt.path)
		assert.Equal(t, tt.redirect, redirect, tt.path)
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "protected", Protected.String())
	assert.Equal(t, "guest-only", GuestOnly.String())
	assert.Equal(t, "public", Public.String())
	assert.Equal(t, "unclassified", Unclassified.String())
}
