package backend

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultAccessTTL is assumed when an access token carries no readable exp.
const DefaultAccessTTL = time.Hour

// RefreshTTL is the lifetime of the refresh cookie.
const RefreshTTL = 7 * 24 * time.Hour

// TokenStore holds the bearer tokens of one session.
type TokenStore interface {
	AccessToken() string
	RefreshToken() string
	SetTokens(access, refresh string)
	Clear()
}

// MemoryTokens is a TokenStore held in memory.
type MemoryTokens struct {
	mu      sync.Mutex
	access  string
	refresh string
}

// NewMemoryTokens returns a store seeded with the given tokens.
func NewMemoryTokens(access, refresh string) *MemoryTokens {
	return &MemoryTokens{access: access, refresh: refresh}
}

func (m *MemoryTokens) AccessToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.access
}

func (m *MemoryTokens) RefreshToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refresh
}

// SetTokens replaces the access token, and the refresh token when non-empty.
func (m *MemoryTokens) SetTokens(access, refresh string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.access = access
	if refresh != "" {
		m.refresh = refresh
	}
}

func (m *MemoryTokens) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.access, m.refresh = "", ""
}

// AccessExpiry reads the exp claim of an access token without verifying
// its signature. The backend stays the authority on validity; this only
// sizes cookie lifetimes.
func AccessExpiry(token string, now time.Time) time.Time {
	fallback := now.Add(DefaultAccessTTL)
	if token == "" {
		return fallback
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return fallback
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil || !exp.After(now) {
		return fallback
	}
	return exp.Time
}
