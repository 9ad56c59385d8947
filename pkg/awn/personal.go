package awn

import (
	"context"

	"github.com/awn-app/awn/pkg/models"
	"github.com/awn-app/awn/pkg/query"
)

func (s *Service) favoritesKey(sess Session) query.Key {
	return query.NewKey(sess.ID, query.Favorites)
}

// Favorites returns the session user's favorite announcements.
func (s *Service) Favorites(ctx context.Context, sess Session) ([]models.Announcement, error) {
	if err := requireAuth(sess); err != nil {
		return nil, err
	}
	return query.Fetch(ctx, s.cache, s.favoritesKey(sess), func(ctx context.Context) ([]models.Announcement, error) {
		favs, err := s.client.Favorites(ctx, sess.Tokens)
		if err != nil {
			return nil, err
		}
		return models.Unwrap(favs), nil
	})
}

// IsFavorite reports whether id is among the user's favorites.
func (s *Service) IsFavorite(ctx context.Context, sess Session, id int) (bool, error) {
	favs, err := s.Favorites(ctx, sess)
	if err != nil {
		return false, err
	}
	for _, a := range favs {
		if a.ID == id {
			return true, nil
		}
	}
	return false, nil
}

// AddFavorite adds id to the cached favorites before the backend confirms
// and rolls back if it refuses.
func (s *Service) AddFavorite(ctx context.Context, sess Session, id int) error {
	if err := requireAuth(sess); err != nil {
		return err
	}
	item := models.Announcement{ID: id}
	if a, ok := query.Get[*models.Announcement](s.cache, query.NewKey(sess.ID, query.Announcement, id)); ok && a != nil {
		item = *a
	}
	return query.Optimistic(ctx, s.cache, s.favoritesKey(sess), query.AddFavorite,
		func(current []models.Announcement) []models.Announcement {
			for _, a := range current {
				if a.ID == id {
					return current
				}
			}
			next := make([]models.Announcement, 0, len(current)+1)
			next = append(next, current...)
			return append(next, item)
		},
		func(ctx context.Context) error {
			return s.client.AddFavorite(ctx, sess.Tokens, id)
		})
}

// RemoveFavorite drops id from the cached favorites before the backend
// confirms and rolls back if it refuses.
func (s *Service) RemoveFavorite(ctx context.Context, sess Session, id int) error {
	if err := requireAuth(sess); err != nil {
		return err
	}
	return query.Optimistic(ctx, s.cache, s.favoritesKey(sess), query.RemoveFavorite,
		func(current []models.Announcement) []models.Announcement {
			next := make([]models.Announcement, 0, len(current))
			for _, a := range current {
				if a.ID != id {
					next = append(next, a)
				}
			}
			return next
		},
		func(ctx context.Context) error {
			return s.client.RemoveFavorite(ctx, sess.Tokens, id)
		})
}

// Notifications

func (s *Service) Notifications(ctx context.Context, sess Session) ([]models.Notification, error) {
	if err := requireAuth(sess); err != nil {
		return nil, err
	}
	return query.Fetch(ctx, s.cache, query.NewKey(sess.ID, query.Notifications), func(ctx context.Context) ([]models.Notification, error) {
		return s.client.Notifications(ctx, sess.Tokens)
	})
}

func (s *Service) DeleteNotification(ctx context.Context, sess Session, id int) error {
	return s.cache.Mutate(ctx, sess.ID, query.DeleteNotification, func(ctx context.Context) error {
		return s.client.DeleteNotification(ctx, sess.Tokens, id)
	})
}

// Application trackers

func (s *Service) Trackers(ctx context.Context, sess Session) ([]models.ApplicationTracker, error) {
	if err := requireAuth(sess); err != nil {
		return nil, err
	}
	return query.Fetch(ctx, s.cache, query.NewKey(sess.ID, query.Trackers), func(ctx context.Context) ([]models.ApplicationTracker, error) {
		return s.client.Trackers(ctx, sess.Tokens)
	})
}

// Tracker returns the tracker for an announcement, if any.
func (s *Service) Tracker(ctx context.Context, sess Session, announcementID int) (*models.ApplicationTracker, error) {
	list, err := s.Trackers(ctx, sess)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].Announcement.ID == announcementID {
			return &list[i], nil
		}
	}
	return nil, nil
}

func (s *Service) UpsertTracker(ctx context.Context, sess Session, in models.TrackerInput) (*models.ApplicationTracker, error) {
	var out *models.ApplicationTracker
	err := s.cache.Mutate(ctx, sess.ID, query.UpsertTracker, func(ctx context.Context) error {
		var err error
		out, err = s.client.UpsertTracker(ctx, sess.Tokens, in)
		return err
	})
	return out, err
}

func (s *Service) DeleteTracker(ctx context.Context, sess Session, announcementID int) error {
	return s.cache.Mutate(ctx, sess.ID, query.DeleteTracker, func(ctx context.Context) error {
		return s.client.DeleteTracker(ctx, sess.Tokens, announcementID)
	})
}

// Reports

func (s *Service) Reports(ctx context.Context, sess Session) ([]models.Report, error) {
	if err := requireAuth(sess); err != nil {
		return nil, err
	}
	return query.Fetch(ctx, s.cache, query.NewKey(sess.ID, query.Reports), func(ctx context.Context) ([]models.Report, error) {
		return s.client.Reports(ctx, sess.Tokens)
	})
}

func (s *Service) CreateReport(ctx context.Context, sess Session, r models.Report) error {
	return s.cache.Mutate(ctx, sess.ID, query.CreateReport, func(ctx context.Context) error {
		return s.client.CreateReport(ctx, sess.Tokens, r)
	})
}
