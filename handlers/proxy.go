package handlers

import (
	"errors"
	"time"

	"github.com/awn-app/awn/pkg/metrics"
	"github.com/awn-app/awn/pkg/proxy"
	"github.com/awn-app/awn/pkg/ratelimit"
	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v2"
)

func setCORS(c *fiber.Ctx) {
	c.Set(fiber.HeaderAccessControlAllowOrigin, "*")
	c.Set(fiber.HeaderAccessControlAllowMethods, "GET, OPTIONS")
	c.Set(fiber.HeaderAccessControlAllowHeaders, "Content-Type")
}

// ProxySite fetches the page named by the url query parameter and returns
// it ready to be framed same-origin. publicOrigin, when set, replaces the
// request's own origin in rewritten URLs.
func ProxySite(p *proxy.Proxy, publicOrigin string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		setCORS(c)

		target := c.Query("url")
		if target == "" {
			metrics.ProxyRequests.WithLabelValues("error").Inc()
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": proxy.ErrMissingURL.Error()})
		}

		origin := publicOrigin
		if origin == "" {
			origin = c.BaseURL()
		}

		resp, err := p.Fetch(c.UserContext(), target, origin)
		if err != nil {
			metrics.ProxyRequests.WithLabelValues("error").Inc()
			status := fiber.StatusInternalServerError
			if errors.Is(err, proxy.ErrDomainNotAllowed) {
				status = fiber.StatusForbidden
			}
			log.Warn("proxy fetch failed", "url", target, "err", err)
			return c.Status(status).JSON(fiber.Map{
				"error":   "Failed to fetch content",
				"details": err.Error(),
			})
		}
		metrics.ProxyRequests.WithLabelValues(string(resp.Kind)).Inc()

		for k, vs := range resp.Header {
			for _, v := range vs {
				c.Set(k, v)
			}
		}
		c.Set(fiber.HeaderContentType, resp.ContentType)
		if resp.Kind == proxy.KindHTML {
			c.Set(fiber.HeaderXFrameOptions, "SAMEORIGIN")
		}
		return c.Status(fiber.StatusOK).Send(resp.Body)
	}
}

// ProxyPreflight answers CORS preflight requests for the proxy.
func ProxyPreflight(c *fiber.Ctx) error {
	setCORS(c)
	c.Status(fiber.StatusOK)
	return nil
}

// RateLimit allows perMinute requests per client address. Zero disables it.
func RateLimit(l ratelimit.Limiter, perMinute int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if perMinute <= 0 || l == nil {
			return c.Next()
		}
		if !l.Allow(c.IP(), perMinute, time.Minute) {
			metrics.ProxyRequests.WithLabelValues("limited").Inc()
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "Too many requests"})
		}
		return c.Next()
	}
}
