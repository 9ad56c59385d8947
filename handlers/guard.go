package handlers

import (
	"github.com/awn-app/awn/pkg/awn"
	"github.com/awn-app/awn/pkg/routes"
	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v2"
)

const authLocal = "awn.auth"

func navigation(c *fiber.Ctx) bool {
	return c.Method() == fiber.MethodGet || c.Method() == fiber.MethodHead
}

// EdgeGuard redirects page navigations by token presence alone. Either
// cookie being non-empty counts as authenticated; the backend decides
// whether the token is actually valid.
func EdgeGuard() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !navigation(c) {
			return c.Next()
		}
		authenticated := c.Cookies(AccessCookie) != "" || c.Cookies(RefreshCookie) != ""
		if to, ok := routes.Decide(c.Path(), authenticated); ok {
			return c.Redirect(to, fiber.StatusFound)
		}
		return c.Next()
	}
}

// SessionGuard asks the backend who the session belongs to and applies the
// same redirect rules as EdgeGuard. An unreachable backend counts as
// unauthenticated.
func SessionGuard(svc *awn.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		state, err := svc.AuthState(c.UserContext(), session(c))
		if err != nil {
			log.Warn("auth state unavailable", "err", err)
			state = awn.AuthState{}
		}
		c.Locals(authLocal, state)
		if to, ok := routes.Decide(c.Path(), state.Authenticated); ok {
			return c.Redirect(to, fiber.StatusFound)
		}
		return c.Next()
	}
}

// authState returns what SessionGuard found for the request.
func authState(c *fiber.Ctx) awn.AuthState {
	if s, ok := c.Locals(authLocal).(awn.AuthState); ok {
		return s
	}
	return awn.AuthState{}
}
