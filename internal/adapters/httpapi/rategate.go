package httpapi

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// RatePolicy is one fixed-window admission policy keyed by source IP.
type RatePolicy struct {
	Window time.Duration
	Max    int
}

// RateGate builds a fixed-window limiter middleware for one policy.
// Two instances compose at the router: a loose global policy over all
// traffic and a tighter one over the report/verify endpoints.
// Exceeding either yields a uniform 429 with a retry hint.
func RateGate(policy RatePolicy) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        policy.Max,
		Expiration: policy.Window,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":               "too many requests",
				"retry_after_seconds": int(policy.Window.Seconds()),
			})
		},
	})
}
