package handlers

import (
	"net/url"
	"strings"

	"github.com/awn-app/awn/pkg/awn"
	"github.com/awn-app/awn/pkg/models"
	"github.com/awn-app/awn/pkg/routes"
	"github.com/gofiber/fiber/v2"
)

// Auth serves the session endpoints.
type Auth struct {
	svc *awn.Service
}

func NewAuth(svc *awn.Service) *Auth {
	return &Auth{svc: svc}
}

// safeRedirect keeps post-login redirects on this site.
func safeRedirect(to string) string {
	if !strings.HasPrefix(to, "/") || strings.HasPrefix(to, "//") || strings.HasPrefix(to, "/\\") {
		return routes.HomePath
	}
	return to
}

func (a *Auth) Login(c *fiber.Ctx) error {
	var creds models.Credentials
	if err := c.BodyParser(&creds); err != nil {
		return badRequest(c, "Invalid request body")
	}
	creds.Email = strings.TrimSpace(creds.Email)
	if creds.Email == "" || creds.Password == "" {
		return badRequest(c, "Email and password are required")
	}
	if _, err := a.svc.Login(c.UserContext(), session(c), creds); err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{
		"authenticated": true,
		"redirect":      safeRedirect(c.Query("redirect")),
	})
}

func (a *Auth) Register(c *fiber.Ctx) error {
	var reg models.Registration
	if err := c.BodyParser(&reg); err != nil {
		return badRequest(c, "Invalid request body")
	}
	reg.Email = strings.TrimSpace(reg.Email)
	if reg.Email == "" || reg.Password == "" || strings.TrimSpace(reg.Name) == "" {
		return badRequest(c, "Name, email and password are required")
	}
	tokens, err := a.svc.Register(c.UserContext(), session(c), reg)
	if err != nil {
		return respond(c, err)
	}
	if tokens.Access == "" {
		// Account needs verification before the first login.
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"authenticated": false,
			"redirect":      "/verify-otp?email=" + url.QueryEscape(reg.Email),
		})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"authenticated": true,
		"redirect":      routes.HomePath,
	})
}

func (a *Auth) Logout(c *fiber.Ctx) error {
	a.svc.Logout(c.UserContext(), session(c))
	return c.JSON(fiber.Map{
		"authenticated": false,
		"redirect":      routes.LoginPath,
	})
}

func (a *Auth) ForgotPassword(c *fiber.Ctx) error {
	var body struct {
		Email string `json:"email" form:"email"`
	}
	if err := c.BodyParser(&body); err != nil || strings.TrimSpace(body.Email) == "" {
		return badRequest(c, "Email is required")
	}
	if err := a.svc.ForgotPassword(c.UserContext(), strings.TrimSpace(body.Email)); err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "If the address exists, a reset link has been sent"})
}

func (a *Auth) ResetPassword(c *fiber.Ctx) error {
	var body struct {
		Token    string `json:"token" form:"token"`
		Password string `json:"password" form:"password"`
	}
	if err := c.BodyParser(&body); err != nil || body.Token == "" || body.Password == "" {
		return badRequest(c, "Token and password are required")
	}
	if err := a.svc.ResetPassword(c.UserContext(), body.Token, body.Password); err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"redirect": routes.LoginPath})
}

func (a *Auth) VerifyOTP(c *fiber.Ctx) error {
	var body struct {
		Email string `json:"email" form:"email"`
		OTP   string `json:"otp" form:"otp"`
	}
	if err := c.BodyParser(&body); err != nil || body.Email == "" || body.OTP == "" {
		return badRequest(c, "Email and code are required")
	}
	if err := a.svc.VerifyOTP(c.UserContext(), body.Email, body.OTP); err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"redirect": routes.LoginPath})
}
