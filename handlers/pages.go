package handlers

import (
	"github.com/awn-app/awn/pkg/awn"
	"github.com/awn-app/awn/pkg/backend"
	"github.com/awn-app/awn/pkg/listing"
	"github.com/awn-app/awn/pkg/models"
	"github.com/gofiber/fiber/v2"
)

// homeSize is how many announcements the home page features.
const homeSize = 6

// Pages serves the data behind each page as JSON.
type Pages struct {
	svc *awn.Service
}

func NewPages(svc *awn.Service) *Pages {
	return &Pages{svc: svc}
}

func (p *Pages) Home(c *fiber.Ctx) error {
	latest, err := p.svc.BrowseAnnouncements(c.UserContext(), session(c), listing.Filter{
		Sort:     listing.SortNewest,
		OpenOnly: true,
		PageSize: homeSize,
	})
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{
		"auth":   authState(c),
		"latest": latest.Items,
	})
}

func (p *Pages) About(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"auth": authState(c)})
}

func (p *Pages) Announcements(c *fiber.Ctx) error {
	var f listing.Filter
	if err := c.QueryParser(&f); err != nil {
		return badRequest(c, "Invalid filter")
	}
	page, err := p.svc.BrowseAnnouncements(c.UserContext(), session(c), f)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{
		"auth":          authState(c),
		"filter":        f,
		"announcements": page,
	})
}

func (p *Pages) Announcement(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return fiber.ErrNotFound
	}
	sess := session(c)
	a, err := p.svc.Announcement(c.UserContext(), sess, id)
	if err != nil {
		return respond(c, err)
	}
	data := fiber.Map{"auth": authState(c), "announcement": a}
	if t, err := p.svc.Tracker(c.UserContext(), sess, id); err == nil && t != nil {
		data["tracker"] = t
	}
	return c.JSON(data)
}

func (p *Pages) Organizations(c *fiber.Ctx) error {
	orgs, err := p.svc.Organizations(c.UserContext(), session(c))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"auth": authState(c), "organizations": orgs})
}

func (p *Pages) Organization(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return fiber.ErrNotFound
	}
	page, err := p.svc.Organization(c.UserContext(), session(c), id)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"auth": authState(c), "organization": page})
}

func (p *Pages) Profile(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"auth": authState(c)})
}

func (p *Pages) Favorites(c *fiber.Ctx) error {
	favs, err := p.svc.Favorites(c.UserContext(), session(c))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"auth": authState(c), "favorites": favs})
}

func (p *Pages) Tracker(c *fiber.Ctx) error {
	trackers, err := p.svc.Trackers(c.UserContext(), session(c))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"auth": authState(c), "trackers": trackers})
}

func (p *Pages) Notifications(c *fiber.Ctx) error {
	list, err := p.svc.Notifications(c.UserContext(), session(c))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"auth": authState(c), "notifications": list})
}

// Dashboard shows an organization its own announcements and everyone else
// their saved items.
func (p *Pages) Dashboard(c *fiber.Ctx) error {
	ctx, sess, state := c.UserContext(), session(c), authState(c)
	if state.User != nil && state.User.IsOrganization() {
		mine, err := p.svc.MyAnnouncements(ctx, sess)
		if err != nil {
			return respond(c, err)
		}
		return c.JSON(fiber.Map{"auth": state, "announcements": mine})
	}
	favs, err := p.svc.Favorites(ctx, sess)
	if err != nil {
		return respond(c, err)
	}
	trackers, err := p.svc.Trackers(ctx, sess)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"auth": state, "favorites": favs, "trackers": trackers})
}

// Admin lists what awaits moderation. Admins only.
func (p *Pages) Admin(c *fiber.Ctx) error {
	state := authState(c)
	if state.User == nil || !state.User.IsAdmin() {
		return forbidden(c)
	}
	ctx, sess := c.UserContext(), session(c)
	pending, err := p.svc.Announcements(ctx, sess, backend.AnnouncementQuery{Status: string(models.StatusPending)})
	if err != nil {
		return respond(c, err)
	}
	orgs, err := p.svc.Organizations(ctx, sess)
	if err != nil {
		return respond(c, err)
	}
	reports, err := p.svc.Reports(ctx, sess)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{
		"auth":          state,
		"pending":       pending,
		"organizations": orgs,
		"reports":       reports,
	})
}

// Guest renders one of the signed-out pages.
func (p *Pages) Guest(name string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"page":     name,
			"redirect": c.Query("redirect"),
			"email":    c.Query("email"),
			"token":    c.Query("token"),
		})
	}
}
