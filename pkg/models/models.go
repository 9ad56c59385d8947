// Package models holds the client-side projections of backend-owned entities.
package models

import "time"

// AnnouncementStatus is the moderation state of an announcement.
type AnnouncementStatus string

const (
	StatusPending  AnnouncementStatus = "pending"
	StatusApproved AnnouncementStatus = "approved"
	StatusRejected AnnouncementStatus = "rejected"
)

// TrackerStatus is the self-reported application state.
type TrackerStatus string

const (
	TrackerApplied    TrackerStatus = "applied"
	TrackerNotApplied TrackerStatus = "not applied"
)

// Announcement is a time-bound post by an organization.
type Announcement struct {
	ID               int                `json:"id"`
	Title            string             `json:"title"`
	Description      string             `json:"description"`
	StartDate        string             `json:"start_date"`
	EndDate          string             `json:"end_date"`
	CategoryName     string             `json:"category_name"`
	OrganizationID   int                `json:"organization_id,omitempty"`
	OrganizationName string             `json:"organization_name"`
	Status           AnnouncementStatus `json:"status"`
	URL              string             `json:"url"`
	AdminNotes       string             `json:"admin_notes,omitempty"`
	CreatedAt        time.Time          `json:"created_at,omitempty"`
}

// AnnouncementInput is the body of announcement create and update calls.
type AnnouncementInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	CategoryID  int    `json:"category_id,omitempty"`
	URL         string `json:"url"`
}

// Review is an admin decision on an announcement.
type Review struct {
	Status     AnnouncementStatus `json:"status"`
	AdminNotes string             `json:"admin_notes,omitempty"`
}

// Organization is a verified poster of announcements.
type Organization struct {
	ID               int    `json:"id"`
	OrganizationName string `json:"organization_name"`
	Verified         bool   `json:"verified"`
	IsActive         bool   `json:"is_active"`
	ProfileImage     string `json:"profile_image,omitempty"`
	Email            string `json:"email,omitempty"`
	Phone            string `json:"phone,omitempty"`
	Website          string `json:"website,omitempty"`
	Address          string `json:"address,omitempty"`
	Description      string `json:"description,omitempty"`
}

// OrganizationFlags carries the backend-controlled booleans an admin may change.
type OrganizationFlags struct {
	Verified *bool `json:"verified,omitempty"`
	IsActive *bool `json:"is_active,omitempty"`
}

// User is the authenticated account. Role is free-form.
type User struct {
	ID           int    `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	Role         string `json:"role"`
	ProfileImage string `json:"profile_image,omitempty"`
}

// IsAdmin reports whether the user carries the admin role.
func (u *User) IsAdmin() bool { return u != nil && u.Role == "admin" }

// IsOrganization reports whether the user acts for an organization.
func (u *User) IsOrganization() bool { return u != nil && u.Role == "organization" }

// ApplicationTracker is one user's record for one announcement.
type ApplicationTracker struct {
	ID           int           `json:"id,omitempty"`
	Announcement Announcement  `json:"announcement"`
	Status       TrackerStatus `json:"status"`
	Notes        string        `json:"notes,omitempty"`
	ReminderDate string        `json:"reminder_date,omitempty"`
}

// TrackerInput is the upsert body for a tracker.
type TrackerInput struct {
	AnnouncementID int           `json:"announcement_id"`
	Status         TrackerStatus `json:"status"`
	Notes          string        `json:"notes,omitempty"`
	ReminderDate   string        `json:"reminder_date,omitempty"`
}

// Favorite is the wire shape of a favorites row. Callers use Announcement.
type Favorite struct {
	ID           int          `json:"id"`
	Announcement Announcement `json:"announcement"`
}

// Unwrap flattens favorites to their announcements.
func Unwrap(favs []Favorite) []Announcement {
	out := make([]Announcement, 0, len(favs))
	for _, f := range favs {
		out = append(out, f.Announcement)
	}
	return out
}

// Notification is an ephemeral user-scoped message.
type Notification struct {
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Report flags an announcement for admin attention.
type Report struct {
	ID             int       `json:"id,omitempty"`
	AnnouncementID int       `json:"announcement_id"`
	Reason         string    `json:"reason"`
	Status         string    `json:"status,omitempty"`
	CreatedAt      time.Time `json:"created_at,omitempty"`
}

// Credentials is the login body.
type Credentials struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// Registration is the register body.
type Registration struct {
	Name     string `json:"name" form:"name"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	Role     string `json:"role,omitempty" form:"role"`
}

// Tokens is the pair issued by the backend.
type Tokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}
