// Package listing filters, sorts and paginates already-fetched announcements.
package listing

import (
	"sort"
	"strings"
	"time"

	"github.com/awn-app/awn/pkg/models"
)

// DefaultPageSize is used when a page size is missing or out of range.
const DefaultPageSize = 9

// MaxPageSize caps page sizes requested by callers.
const MaxPageSize = 100

// Sort orders.
const (
	SortNewest   = "newest"
	SortDeadline = "deadline"
	SortTitle    = "title"
)

// Filter selects announcements. Zero fields match everything.
type Filter struct {
	Search       string `query:"search"`
	Category     string `query:"category"`
	Organization string `query:"organization"`
	Status       string `query:"status"`
	OpenOnly     bool   `query:"open"`
	Sort         string `query:"sort"`
	Page         int    `query:"page"`
	PageSize     int    `query:"page_size"`
}

// Page is one slice of a listing.
type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// Apply filters, sorts and paginates items relative to today.
func Apply(items []models.Announcement, f Filter, today time.Time) Page[models.Announcement] {
	filtered := FilterAnnouncements(items, f, today)
	SortAnnouncements(filtered, f.Sort)
	return Paginate(filtered, f.Page, f.PageSize)
}

// FilterAnnouncements returns the items matching f. The input is not modified.
func FilterAnnouncements(items []models.Announcement, f Filter, today time.Time) []models.Announcement {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]models.Announcement, 0, len(items))
	for _, a := range items {
		if search != "" && !containsFold(search, a.Title, a.Description, a.OrganizationName) {
			continue
		}
		if f.Category != "" && !strings.EqualFold(a.CategoryName, f.Category) {
			continue
		}
		if f.Organization != "" && !strings.EqualFold(a.OrganizationName, f.Organization) {
			continue
		}
		if f.Status != "" && !strings.EqualFold(string(a.Status), f.Status) {
			continue
		}
		if f.OpenOnly {
			days, err := DaysLeft(a.EndDate, today)
			if err != nil || days < 0 {
				continue
			}
		}
		out = append(out, a)
	}
	return out
}

func containsFold(needle string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

// SortAnnouncements sorts items in place. Unknown orders fall back to newest.
// Undated items sort last for deadline order.
func SortAnnouncements(items []models.Announcement, order string) {
	switch order {
	case SortTitle:
		sort.SliceStable(items, func(i, j int) bool {
			return strings.ToLower(items[i].Title) < strings.ToLower(items[j].Title)
		})
	case SortDeadline:
		sort.SliceStable(items, func(i, j int) bool {
			a, errA := ParseDate(items[i].EndDate, time.UTC)
			b, errB := ParseDate(items[j].EndDate, time.UTC)
			switch {
			case errA != nil:
				return false
			case errB != nil:
				return true
			}
			return a.Before(b)
		})
	default:
		sort.SliceStable(items, func(i, j int) bool {
			if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
				return items[i].CreatedAt.After(items[j].CreatedAt)
			}
			return items[i].ID > items[j].ID
		})
	}
}

// Paginate returns the 1-based page of items. Pages past the end clamp to
// the last page.
func Paginate[T any](items []T, page, size int) Page[T] {
	if size <= 0 || size > MaxPageSize {
		size = DefaultPageSize
	}
	total := len(items)
	pages := (total + size - 1) / size
	if pages == 0 {
		pages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}
	start := (page - 1) * size
	end := start + size
	if end > total {
		end = total
	}
	return Page[T]{
		Items:      append([]T(nil), items[start:end]...),
		Page:       page,
		PageSize:   size,
		Total:      total,
		TotalPages: pages,
	}
}
