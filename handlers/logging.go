package handlers

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/gofiber/fiber/v2"
)

// Logging logs every request once it has been answered.
func Logging(logger *log.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		logger.Debug("request",
			"method", c.Method(),
			"path", c.Path(),
			"addr", c.IP())
		err := c.Next()
		if err != nil {
			// Render now so the logged status is the one sent.
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}
		elapsed := time.Since(start)
		logger.Info("response",
			"status", c.Response().StatusCode(),
			"method", c.Method(),
			"path", c.Path(),
			"request_id", c.GetRespHeader(fiber.HeaderXRequestID),
			"bytes", humanize.Bytes(uint64(len(c.Response().Body()))),
			"duration", elapsed)
		return nil
	}
}
