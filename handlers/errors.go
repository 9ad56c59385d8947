package handlers

import (
	"errors"

	"github.com/awn-app/awn/pkg/backend"
	"github.com/awn-app/awn/pkg/routes"
	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v2"
)

// respond writes err as {error, status}. An expired session also loses its
// cookies and is pointed at the login page.
func respond(c *fiber.Ctx, err error) error {
	if errors.Is(err, backend.ErrSessionExpired) {
		sess := session(c)
		if sess.Tokens != nil {
			sess.Tokens.Clear()
		}
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":    backend.Message(err),
			"status":   fiber.StatusUnauthorized,
			"redirect": routes.LoginPath,
		})
	}

	status := backend.Status(err)
	if status >= fiber.StatusInternalServerError {
		log.Error("backend call failed", "path", c.Path(), "err", err)
	}
	return c.Status(status).JSON(fiber.Map{
		"error":  backend.Message(err),
		"status": status,
	})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error":  msg,
		"status": fiber.StatusBadRequest,
	})
}

func forbidden(c *fiber.Ctx) error {
	return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
		"error":  "You do not have access to this page",
		"status": fiber.StatusForbidden,
	})
}

// ErrorHandler renders errors escaping handlers, fiber's own included, in
// the same shape as respond.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{
			"error":  fe.Message,
			"status": fe.Code,
		})
	}
	return respond(c, err)
}
