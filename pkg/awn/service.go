// Package awn is the data layer of the web server: cached reads and
// invalidating writes against the backend, one method per resource action.
package awn

import (
	"context"
	"errors"
	"time"

	"github.com/awn-app/awn/pkg/backend"
	"github.com/awn-app/awn/pkg/models"
	"github.com/awn-app/awn/pkg/query"
	"github.com/charmbracelet/log"
)

// Session is one browser session: a cache scope and its tokens.
type Session struct {
	ID     string
	Tokens backend.TokenStore
}

// HasTokens reports whether either token is present. This is the coarse
// signal the edge guard also uses.
func (s Session) HasTokens() bool {
	return s.Tokens != nil && (s.Tokens.AccessToken() != "" || s.Tokens.RefreshToken() != "")
}

// tokens returns the store for calls that may run anonymously.
func (s Session) tokens() backend.TokenStore {
	if s.HasTokens() {
		return s.Tokens
	}
	return nil
}

// AuthState is the backend's view of a session.
type AuthState struct {
	Authenticated bool         `json:"authenticated"`
	User          *models.User `json:"user,omitempty"`
}

// Service serves page data and actions.
type Service struct {
	client *backend.Client
	cache  *query.Cache
	now    func() time.Time
}

// NewService wires a backend client to a cache.
func NewService(client *backend.Client, cache *query.Cache) *Service {
	return &Service{client: client, cache: cache, now: time.Now}
}

// Cache returns the service's query cache.
func (s *Service) Cache() *query.Cache { return s.cache }

// Now returns the service clock.
func (s *Service) Now() time.Time { return s.now() }

func requireAuth(sess Session) error {
	if !sess.HasTokens() {
		return backend.ErrSessionExpired
	}
	return nil
}

// AuthState asks the backend whether the session is authenticated and who
// the user is. A session without tokens is unauthenticated without a call.
func (s *Service) AuthState(ctx context.Context, sess Session) (AuthState, error) {
	if !sess.HasTokens() {
		return AuthState{}, nil
	}
	state, err := query.Fetch(ctx, s.cache, query.NewKey(sess.ID, query.Session), func(ctx context.Context) (AuthState, error) {
		ok, err := s.client.IsAuthenticated(ctx, sess.Tokens)
		if err != nil || !ok {
			return AuthState{}, err
		}
		u, err := s.client.CurrentUser(ctx, sess.Tokens)
		if err != nil {
			return AuthState{}, err
		}
		return AuthState{Authenticated: true, User: u}, nil
	})
	if errors.Is(err, backend.ErrSessionExpired) {
		return AuthState{}, nil
	}
	return state, err
}

// Login exchanges credentials for tokens and stores them in the session.
func (s *Service) Login(ctx context.Context, sess Session, creds models.Credentials) (models.Tokens, error) {
	var tokens models.Tokens
	err := s.cache.Mutate(ctx, sess.ID, query.Login, func(ctx context.Context) error {
		var err error
		tokens, err = s.client.Login(ctx, creds)
		if err != nil {
			return err
		}
		s.signIn(sess, tokens)
		return nil
	})
	return tokens, err
}

// Register creates an account, logging in when the backend returns tokens.
func (s *Service) Register(ctx context.Context, sess Session, reg models.Registration) (models.Tokens, error) {
	var tokens models.Tokens
	err := s.cache.Mutate(ctx, sess.ID, query.Login, func(ctx context.Context) error {
		var err error
		tokens, err = s.client.Register(ctx, reg)
		if err != nil {
			return err
		}
		if tokens.Access != "" {
			s.signIn(sess, tokens)
		}
		return nil
	})
	return tokens, err
}

// signIn stores the new tokens and forgets whatever the session cached for
// its previous user.
func (s *Service) signIn(sess Session, tokens models.Tokens) {
	s.cache.DropScope(sess.ID)
	sess.Tokens.SetTokens(tokens.Access, tokens.Refresh)
}

// Logout revokes the refresh token on a best-effort basis, then clears the
// session's tokens and cache.
func (s *Service) Logout(ctx context.Context, sess Session) {
	if sess.Tokens != nil && sess.Tokens.RefreshToken() != "" {
		if err := s.client.Logout(ctx, sess.Tokens); err != nil {
			log.Warn("backend logout failed", "err", err)
		}
	}
	if sess.Tokens != nil {
		sess.Tokens.Clear()
	}
	s.cache.DropScope(sess.ID)
}

func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	return s.client.ForgotPassword(ctx, email)
}

func (s *Service) ResetPassword(ctx context.Context, token, password string) error {
	return s.client.ResetPassword(ctx, token, password)
}

func (s *Service) VerifyOTP(ctx context.Context, email, otp string) error {
	return s.client.VerifyOTP(ctx, email, otp)
}
