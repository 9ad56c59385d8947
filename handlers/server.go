// Package handlers is the HTTP surface of the server: the resource proxy,
// session endpoints, page data and actions.
package handlers

import (
	"github.com/awn-app/awn/pkg/awn"
	"github.com/awn-app/awn/pkg/proxy"
	"github.com/awn-app/awn/pkg/ratelimit"
	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Options wire the server.
type Options struct {
	Service *awn.Service
	Proxy   *proxy.Proxy
	Logger  *log.Logger

	// PublicOrigin replaces the request origin in proxied URLs when set.
	PublicOrigin string
	// Production makes cookies Secure and SameSite=Strict.
	Production bool

	Limiter        ratelimit.Limiter
	ProxyRateLimit int
}

// New builds the fiber app with every route mounted.
func New(opts Options) *fiber.App {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	app := fiber.New(fiber.Config{
		AppName:               "awn",
		DisableStartupMessage: true,
		ErrorHandler:          ErrorHandler,
	})
	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(Logging(logger))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Options(proxy.Path, ProxyPreflight)
	app.Get(proxy.Path, RateLimit(opts.Limiter, opts.ProxyRateLimit), ProxySite(opts.Proxy, opts.PublicOrigin))

	app.Use(Sessions(opts.Service.Cache(), opts.Production))
	app.Use(EdgeGuard())

	auth := NewAuth(opts.Service)
	app.Post("/login", auth.Login)
	app.Post("/register", auth.Register)
	app.Post("/logout", auth.Logout)
	app.Post("/forgot-password", auth.ForgotPassword)
	app.Post("/reset-password", auth.ResetPassword)
	app.Post("/verify-otp", auth.VerifyOTP)

	actions := NewActions(opts.Service)
	api := app.Group("/api")
	api.Post("/favorites/:id", actions.AddFavorite)
	api.Delete("/favorites/:id", actions.RemoveFavorite)
	api.Put("/trackers/:id", actions.UpsertTracker)
	api.Delete("/trackers/:id", actions.DeleteTracker)
	api.Delete("/notifications/:id", actions.DeleteNotification)
	api.Post("/reports", actions.CreateReport)
	api.Post("/announcements", actions.CreateAnnouncement)
	api.Put("/announcements/:id", actions.UpdateAnnouncement)
	api.Delete("/announcements/:id", actions.DeleteAnnouncement)
	api.Put("/organizations/:id", actions.UpdateOrganization)
	api.Patch("/admin/announcements/:id", actions.ReviewAnnouncement)
	api.Patch("/admin/organizations/:id", actions.SetOrganizationFlags)

	pages := NewPages(opts.Service)
	guard := SessionGuard(opts.Service)
	app.Get("/", guard, pages.Home)
	app.Get("/about", guard, pages.About)
	app.Get("/announcements", guard, pages.Announcements)
	app.Get("/announcements/:id", guard, pages.Announcement)
	app.Get("/organizations", guard, pages.Organizations)
	app.Get("/organizations/:id", guard, pages.Organization)
	app.Get("/profile", guard, pages.Profile)
	app.Get("/favorites", guard, pages.Favorites)
	app.Get("/tracker", guard, pages.Tracker)
	app.Get("/notifications", guard, pages.Notifications)
	app.Get("/dashboard", guard, pages.Dashboard)
	app.Get("/admin", guard, pages.Admin)
	for _, name := range []string{"login", "register", "forgot-password", "reset-password", "verify-otp"} {
		app.Get("/"+name, guard, pages.Guest(name))
	}

	return app
}
