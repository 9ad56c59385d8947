package handlers

import (
	"strings"

	"github.com/awn-app/awn/pkg/awn"
	"github.com/awn-app/awn/pkg/models"
	"github.com/gofiber/fiber/v2"
)

// Actions serves the JSON mutations behind page buttons and forms.
type Actions struct {
	svc *awn.Service
}

func NewActions(svc *awn.Service) *Actions {
	return &Actions{svc: svc}
}

func idParam(c *fiber.Ctx) (int, bool) {
	id, err := c.ParamsInt("id")
	return id, err == nil && id > 0
}

func ok(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"ok": true})
}

// Favorites

func (a *Actions) AddFavorite(c *fiber.Ctx) error {
	id, valid := idParam(c)
	if !valid {
		return badRequest(c, "Invalid announcement id")
	}
	if err := a.svc.AddFavorite(c.UserContext(), session(c), id); err != nil {
		return respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"ok": true, "favorite": true})
}

func (a *Actions) RemoveFavorite(c *fiber.Ctx) error {
	id, valid := idParam(c)
	if !valid {
		return badRequest(c, "Invalid announcement id")
	}
	if err := a.svc.RemoveFavorite(c.UserContext(), session(c), id); err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"ok": true, "favorite": false})
}

// Application trackers

func (a *Actions) UpsertTracker(c *fiber.Ctx) error {
	id, valid := idParam(c)
	if !valid {
		return badRequest(c, "Invalid announcement id")
	}
	var in models.TrackerInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "Invalid request body")
	}
	in.AnnouncementID = id
	switch in.Status {
	case models.TrackerApplied, models.TrackerNotApplied:
	case "":
		in.Status = models.TrackerNotApplied
	default:
		return badRequest(c, "Unknown tracker status")
	}
	t, err := a.svc.UpsertTracker(c.UserContext(), session(c), in)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(t)
}

func (a *Actions) DeleteTracker(c *fiber.Ctx) error {
	id, valid := idParam(c)
	if !valid {
		return badRequest(c, "Invalid announcement id")
	}
	if err := a.svc.DeleteTracker(c.UserContext(), session(c), id); err != nil {
		return respond(c, err)
	}
	return ok(c)
}

// Notifications

func (a *Actions) DeleteNotification(c *fiber.Ctx) error {
	id, valid := idParam(c)
	if !valid {
		return badRequest(c, "Invalid notification id")
	}
	if err := a.svc.DeleteNotification(c.UserContext(), session(c), id); err != nil {
		return respond(c, err)
	}
	return ok(c)
}

// Reports

func (a *Actions) CreateReport(c *fiber.Ctx) error {
	var r models.Report
	if err := c.BodyParser(&r); err != nil {
		return badRequest(c, "Invalid request body")
	}
	r.Reason = strings.TrimSpace(r.Reason)
	if r.AnnouncementID <= 0 || r.Reason == "" {
		return badRequest(c, "Announcement and reason are required")
	}
	if err := a.svc.CreateReport(c.UserContext(), session(c), r); err != nil {
		return respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"ok": true})
}

// Organization announcements

func announcementInput(c *fiber.Ctx) (models.AnnouncementInput, string) {
	var in models.AnnouncementInput
	if err := c.BodyParser(&in); err != nil {
		return in, "Invalid request body"
	}
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" || in.EndDate == "" {
		return in, "Title and end date are required"
	}
	return in, ""
}

func (a *Actions) CreateAnnouncement(c *fiber.Ctx) error {
	in, msg := announcementInput(c)
	if msg != "" {
		return badRequest(c, msg)
	}
	out, err := a.svc.CreateAnnouncement(c.UserContext(), session(c), in)
	if err != nil {
		return respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

func (a *Actions) UpdateAnnouncement(c *fiber.Ctx) error {
	id, valid := idParam(c)
	if !valid {
		return badRequest(c, "Invalid announcement id")
	}
	in, msg := announcementInput(c)
	if msg != "" {
		return badRequest(c, msg)
	}
	out, err := a.svc.UpdateAnnouncement(c.UserContext(), session(c), id, in)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(out)
}

func (a *Actions) DeleteAnnouncement(c *fiber.Ctx) error {
	id, valid := idParam(c)
	if !valid {
		return badRequest(c, "Invalid announcement id")
	}
	if err := a.svc.DeleteAnnouncement(c.UserContext(), session(c), id); err != nil {
		return respond(c, err)
	}
	return ok(c)
}

func (a *Actions) UpdateOrganization(c *fiber.Ctx) error {
	id, valid := idParam(c)
	if !valid {
		return badRequest(c, "Invalid organization id")
	}
	var o models.Organization
	if err := c.BodyParser(&o); err != nil {
		return badRequest(c, "Invalid request body")
	}
	o.ID = id
	out, err := a.svc.UpdateOrganization(c.UserContext(), session(c), id, o)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(out)
}

// Admin moderation

func (a *Actions) ReviewAnnouncement(c *fiber.Ctx) error {
	id, valid := idParam(c)
	if !valid {
		return badRequest(c, "Invalid announcement id")
	}
	var r models.Review
	if err := c.BodyParser(&r); err != nil {
		return badRequest(c, "Invalid request body")
	}
	switch r.Status {
	case models.StatusApproved, models.StatusRejected, models.StatusPending:
	default:
		return badRequest(c, "Unknown announcement status")
	}
	if err := a.svc.ReviewAnnouncement(c.UserContext(), session(c), id, r); err != nil {
		return respond(c, err)
	}
	return ok(c)
}

func (a *Actions) SetOrganizationFlags(c *fiber.Ctx) error {
	id, valid := idParam(c)
	if !valid {
		return badRequest(c, "Invalid organization id")
	}
	var f models.OrganizationFlags
	if err := c.BodyParser(&f); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if f.Verified == nil && f.IsActive == nil {
		return badRequest(c, "Nothing to change")
	}
	if err := a.svc.SetOrganizationFlags(c.UserContext(), session(c), id, f); err != nil {
		return respond(c, err)
	}
	return ok(c)
}
