package awn

import (
	"context"

	"github.com/awn-app/awn/pkg/backend"
	"github.com/awn-app/awn/pkg/listing"
	"github.com/awn-app/awn/pkg/models"
	"github.com/awn-app/awn/pkg/query"
)

// AnnouncementView decorates an announcement with deadline data.
type AnnouncementView struct {
	models.Announcement
	DaysLeft      *int   `json:"days_left,omitempty"`
	DeadlineLabel string `json:"deadline_label,omitempty"`
	Favorite      bool   `json:"favorite"`
}

// Announcements lists announcements matching q.
func (s *Service) Announcements(ctx context.Context, sess Session, q backend.AnnouncementQuery) ([]models.Announcement, error) {
	key := query.NewKey(sess.ID, query.Announcements, q.Search, q.Category, q.Status, q.OrganizationID, q.Mine)
	return query.Fetch(ctx, s.cache, key, func(ctx context.Context) ([]models.Announcement, error) {
		return s.client.Announcements(ctx, sess.tokens(), q)
	})
}

// BrowseAnnouncements fetches approved announcements and applies the
// listing filter, sort and page.
func (s *Service) BrowseAnnouncements(ctx context.Context, sess Session, f listing.Filter) (listing.Page[AnnouncementView], error) {
	items, err := s.Announcements(ctx, sess, backend.AnnouncementQuery{Status: string(models.StatusApproved)})
	if err != nil {
		return listing.Page[AnnouncementView]{}, err
	}
	page := listing.Apply(items, f, s.now())

	favs := map[int]bool{}
	if sess.HasTokens() {
		// Favorites only decorate the listing; a failure here must not hide it.
		if list, err := s.Favorites(ctx, sess); err == nil {
			for _, a := range list {
				favs[a.ID] = true
			}
		}
	}

	views := make([]AnnouncementView, 0, len(page.Items))
	for _, a := range page.Items {
		v := s.view(a)
		v.Favorite = favs[a.ID]
		views = append(views, v)
	}
	return listing.Page[AnnouncementView]{
		Items:      views,
		Page:       page.Page,
		PageSize:   page.PageSize,
		Total:      page.Total,
		TotalPages: page.TotalPages,
	}, nil
}

func (s *Service) view(a models.Announcement) AnnouncementView {
	v := AnnouncementView{Announcement: a}
	if days, err := listing.DaysLeft(a.EndDate, s.now()); err == nil {
		v.DaysLeft = &days
		v.DeadlineLabel = listing.DeadlineLabel(days)
	}
	return v
}

// Announcement returns one announcement. Requires a session.
func (s *Service) Announcement(ctx context.Context, sess Session, id int) (AnnouncementView, error) {
	if err := requireAuth(sess); err != nil {
		return AnnouncementView{}, err
	}
	a, err := query.Fetch(ctx, s.cache, query.NewKey(sess.ID, query.Announcement, id), func(ctx context.Context) (*models.Announcement, error) {
		return s.client.Announcement(ctx, sess.Tokens, id)
	})
	if err != nil {
		return AnnouncementView{}, err
	}
	v := s.view(*a)
	v.Favorite, _ = s.IsFavorite(ctx, sess, id)
	return v, nil
}

// MyAnnouncements lists the announcements of the organization user.
func (s *Service) MyAnnouncements(ctx context.Context, sess Session) ([]models.Announcement, error) {
	if err := requireAuth(sess); err != nil {
		return nil, err
	}
	return s.Announcements(ctx, sess, backend.AnnouncementQuery{Mine: true})
}

func (s *Service) CreateAnnouncement(ctx context.Context, sess Session, in models.AnnouncementInput) (*models.Announcement, error) {
	var out *models.Announcement
	err := s.cache.Mutate(ctx, sess.ID, query.CreateAnnouncement, func(ctx context.Context) error {
		var err error
		out, err = s.client.CreateAnnouncement(ctx, sess.Tokens, in)
		return err
	})
	return out, err
}

func (s *Service) UpdateAnnouncement(ctx context.Context, sess Session, id int, in models.AnnouncementInput) (*models.Announcement, error) {
	var out *models.Announcement
	err := s.cache.Mutate(ctx, sess.ID, query.UpdateAnnouncement, func(ctx context.Context) error {
		var err error
		out, err = s.client.UpdateAnnouncement(ctx, sess.Tokens, id, in)
		return err
	})
	return out, err
}

func (s *Service) DeleteAnnouncement(ctx context.Context, sess Session, id int) error {
	return s.cache.Mutate(ctx, sess.ID, query.DeleteAnnouncement, func(ctx context.Context) error {
		return s.client.DeleteAnnouncement(ctx, sess.Tokens, id)
	})
}

// ReviewAnnouncement records an admin decision. The backend owns the
// transition rules.
func (s *Service) ReviewAnnouncement(ctx context.Context, sess Session, id int, r models.Review) error {
	return s.cache.Mutate(ctx, sess.ID, query.ReviewAnnouncement, func(ctx context.Context) error {
		return s.client.ReviewAnnouncement(ctx, sess.Tokens, id, r)
	})
}

// Organizations

func (s *Service) Organizations(ctx context.Context, sess Session) ([]models.Organization, error) {
	return query.Fetch(ctx, s.cache, query.NewKey(sess.ID, query.Organizations), func(ctx context.Context) ([]models.Organization, error) {
		return s.client.Organizations(ctx, sess.tokens())
	})
}

// OrganizationPage is an organization with its approved announcements.
type OrganizationPage struct {
	Organization  *models.Organization `json:"organization"`
	Announcements []AnnouncementView   `json:"announcements"`
}

// Organization returns one organization and its announcements. Requires a
// session.
func (s *Service) Organization(ctx context.Context, sess Session, id int) (OrganizationPage, error) {
	if err := requireAuth(sess); err != nil {
		return OrganizationPage{}, err
	}
	org, err := query.Fetch(ctx, s.cache, query.NewKey(sess.ID, query.Organization, id), func(ctx context.Context) (*models.Organization, error) {
		return s.client.Organization(ctx, sess.Tokens, id)
	})
	if err != nil {
		return OrganizationPage{}, err
	}
	items, err := s.Announcements(ctx, sess, backend.AnnouncementQuery{OrganizationID: id, Status: string(models.StatusApproved)})
	if err != nil {
		return OrganizationPage{}, err
	}
	views := make([]AnnouncementView, 0, len(items))
	for _, a := range items {
		views = append(views, s.view(a))
	}
	return OrganizationPage{Organization: org, Announcements: views}, nil
}

func (s *Service) UpdateOrganization(ctx context.Context, sess Session, id int, o models.Organization) (*models.Organization, error) {
	var out *models.Organization
	err := s.cache.Mutate(ctx, sess.ID, query.UpdateOrganization, func(ctx context.Context) error {
		var err error
		out, err = s.client.UpdateOrganization(ctx, sess.Tokens, id, o)
		return err
	})
	return out, err
}

// SetOrganizationFlags changes verified/is_active as an admin.
func (s *Service) SetOrganizationFlags(ctx context.Context, sess Session, id int, f models.OrganizationFlags) error {
	return s.cache.Mutate(ctx, sess.ID, query.FlagOrganization, func(ctx context.Context) error {
		return s.client.SetOrganizationFlags(ctx, sess.Tokens, id, f)
	})
}
