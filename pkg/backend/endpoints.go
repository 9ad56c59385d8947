package backend

import (
	"context"
	"fmt"
	"net/http"

	"github.com/awn-app/awn/pkg/models"
)

// AnnouncementQuery is the server-side filter of the announcements list.
type AnnouncementQuery struct {
	Search         string `url:"search,omitempty"`
	Category       string `url:"category,omitempty"`
	Status         string `url:"status,omitempty"`
	OrganizationID int    `url:"organization_id,omitempty"`
	Mine           bool   `url:"mine,omitempty"`
}

// Auth

func (c *Client) Login(ctx context.Context, creds models.Credentials) (models.Tokens, error) {
	var tokens models.Tokens
	err := c.Do(ctx, nil, Request{Method: http.MethodPost, Path: "/auth/login", Body: creds}, &tokens)
	return tokens, err
}

// Register creates an account. Backends that log the user in immediately
// return a token pair; otherwise the pair is empty.
func (c *Client) Register(ctx context.Context, reg models.Registration) (models.Tokens, error) {
	var tokens models.Tokens
	err := c.Do(ctx, nil, Request{Method: http.MethodPost, Path: "/auth/register", Body: reg}, &tokens)
	return tokens, err
}

func (c *Client) Logout(ctx context.Context, tokens TokenStore) error {
	body := refreshRequest{Refresh: tokens.RefreshToken()}
	return c.Do(ctx, nil, Request{Method: http.MethodPost, Path: "/auth/logout", Body: body}, nil)
}

// IsAuthenticated asks the backend whether the session is valid.
func (c *Client) IsAuthenticated(ctx context.Context, tokens TokenStore) (bool, error) {
	var resp struct {
		Authenticated bool `json:"authenticated"`
	}
	if err := c.Do(ctx, tokens, Request{Method: http.MethodGet, Path: "/auth/status"}, &resp); err != nil {
		return false, err
	}
	return resp.Authenticated, nil
}

func (c *Client) CurrentUser(ctx context.Context, tokens TokenStore) (*models.User, error) {
	var u models.User
	if err := c.Do(ctx, tokens, Request{Method: http.MethodGet, Path: "/auth/me"}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	body := map[string]string{"email": email}
	return c.Do(ctx, nil, Request{Method: http.MethodPost, Path: "/auth/forgot-password", Body: body}, nil)
}

func (c *Client) ResetPassword(ctx context.Context, token, password string) error {
	body := map[string]string{"token": token, "password": password}
	return c.Do(ctx, nil, Request{Method: http.MethodPost, Path: "/auth/reset-password", Body: body}, nil)
}

func (c *Client) VerifyOTP(ctx context.Context, email, otp string) error {
	body := map[string]string{"email": email, "otp": otp}
	return c.Do(ctx, nil, Request{Method: http.MethodPost, Path: "/auth/verify-otp", Body: body}, nil)
}

// Announcements

func (c *Client) Announcements(ctx context.Context, tokens TokenStore, q AnnouncementQuery) ([]models.Announcement, error) {
	var out []models.Announcement
	err := c.Do(ctx, tokens, Request{Method: http.MethodGet, Path: "/announcements", Query: q}, &out)
	return out, err
}

func (c *Client) Announcement(ctx context.Context, tokens TokenStore, id int) (*models.Announcement, error) {
	var a models.Announcement
	if err := c.Do(ctx, tokens, Request{Method: http.MethodGet, Path: fmt.Sprintf("/announcements/%d", id)}, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *Client) CreateAnnouncement(ctx context.Context, tokens TokenStore, in models.AnnouncementInput) (*models.Announcement, error) {
	var a models.Announcement
	if err := c.Do(ctx, tokens, Request{Method: http.MethodPost, Path: "/announcements", Body: in}, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *Client) UpdateAnnouncement(ctx context.Context, tokens TokenStore, id int, in models.AnnouncementInput) (*models.Announcement, error) {
	var a models.Announcement
	if err := c.Do(ctx, tokens, Request{Method: http.MethodPut, Path: fmt.Sprintf("/announcements/%d", id), Body: in}, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *Client) DeleteAnnouncement(ctx context.Context, tokens TokenStore, id int) error {
	return c.Do(ctx, tokens, Request{Method: http.MethodDelete, Path: fmt.Sprintf("/announcements/%d", id)}, nil)
}

// ReviewAnnouncement records an admin status decision.
func (c *Client) ReviewAnnouncement(ctx context.Context, tokens TokenStore, id int, r models.Review) error {
	return c.Do(ctx, tokens, Request{Method: http.MethodPatch, Path: fmt.Sprintf("/admin/announcements/%d/status", id), Body: r}, nil)
}

// Organizations

func (c *Client) Organizations(ctx context.Context, tokens TokenStore) ([]models.Organization, error) {
	var out []models.Organization
	err := c.Do(ctx, tokens, Request{Method: http.MethodGet, Path: "/organizations"}, &out)
	return out, err
}

func (c *Client) Organization(ctx context.Context, tokens TokenStore, id int) (*models.Organization, error) {
	var o models.Organization
	if err := c.Do(ctx, tokens, Request{Method: http.MethodGet, Path: fmt.Sprintf("/organizations/%d", id)}, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (c *Client) UpdateOrganization(ctx context.Context, tokens TokenStore, id int, o models.Organization) (*models.Organization, error) {
	var out models.Organization
	if err := c.Do(ctx, tokens, Request{Method: http.MethodPut, Path: fmt.Sprintf("/organizations/%d", id), Body: o}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetOrganizationFlags changes verified and/or is_active.
func (c *Client) SetOrganizationFlags(ctx context.Context, tokens TokenStore, id int, f models.OrganizationFlags) error {
	return c.Do(ctx, tokens, Request{Method: http.MethodPatch, Path: fmt.Sprintf("/admin/organizations/%d", id), Body: f}, nil)
}

// Favorites

func (c *Client) Favorites(ctx context.Context, tokens TokenStore) ([]models.Favorite, error) {
	var out []models.Favorite
	err := c.Do(ctx, tokens, Request{Method: http.MethodGet, Path: "/favorites"}, &out)
	return out, err
}

func (c *Client) AddFavorite(ctx context.Context, tokens TokenStore, announcementID int) error {
	body := map[string]int{"announcement_id": announcementID}
	return c.Do(ctx, tokens, Request{Method: http.MethodPost, Path: "/favorites", Body: body}, nil)
}

func (c *Client) RemoveFavorite(ctx context.Context, tokens TokenStore, announcementID int) error {
	return c.Do(ctx, tokens, Request{Method: http.MethodDelete, Path: fmt.Sprintf("/favorites/%d", announcementID)}, nil)
}

// Notifications

func (c *Client) Notifications(ctx context.Context, tokens TokenStore) ([]models.Notification, error) {
	var out []models.Notification
	err := c.Do(ctx, tokens, Request{Method: http.MethodGet, Path: "/notifications"}, &out)
	return out, err
}

func (c *Client) DeleteNotification(ctx context.Context, tokens TokenStore, id int) error {
	return c.Do(ctx, tokens, Request{Method: http.MethodDelete, Path: fmt.Sprintf("/notifications/%d", id)}, nil)
}

// Application trackers

func (c *Client) Trackers(ctx context.Context, tokens TokenStore) ([]models.ApplicationTracker, error) {
	var out []models.ApplicationTracker
	err := c.Do(ctx, tokens, Request{Method: http.MethodGet, Path: "/trackers"}, &out)
	return out, err
}

// UpsertTracker creates or replaces the tracker of (user, announcement).
func (c *Client) UpsertTracker(ctx context.Context, tokens TokenStore, in models.TrackerInput) (*models.ApplicationTracker, error) {
	var out models.ApplicationTracker
	path := fmt.Sprintf("/trackers/%d", in.AnnouncementID)
	if err := c.Do(ctx, tokens, Request{Method: http.MethodPut, Path: path, Body: in}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteTracker(ctx context.Context, tokens TokenStore, announcementID int) error {
	return c.Do(ctx, tokens, Request{Method: http.MethodDelete, Path: fmt.Sprintf("/trackers/%d", announcementID)}, nil)
}

// Reports

func (c *Client) Reports(ctx context.Context, tokens TokenStore) ([]models.Report, error) {
	var out []models.Report
	err := c.Do(ctx, tokens, Request{Method: http.MethodGet, Path: "/reports"}, &out)
	return out, err
}

func (c *Client) CreateReport(ctx context.Context, tokens TokenStore, r models.Report) error {
	return c.Do(ctx, tokens, Request{Method: http.MethodPost, Path: "/reports", Body: r}, nil)
}
