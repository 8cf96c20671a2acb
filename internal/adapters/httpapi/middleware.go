package httpapi

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"crowguard/internal/core/domain"
	"crowguard/internal/core/services"
)

const userIDKey = "crowguard_user_id"

// PerimeterGuard rejects obvious automation and cross-origin traffic
// before any handler runs. Every rejection lands in the event log.
func PerimeterGuard(svc *services.Verification, allowedOrigins []string, baseLogger *zerolog.Logger) fiber.Handler {
	log := baseLogger.With().Str("component", "perimeter_guard").Logger()

	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		userAgent := strings.ToLower(string(c.Request().Header.UserAgent()))
		if userAgent == "" || strings.Contains(userAgent, "bot") || strings.Contains(userAgent, "crawler") {
			log.Warn().Str("user_agent", userAgent).Str("ip", c.IP()).Msg("Blocked bot user agent")
			svc.RecordEvent(c.Context(), "blocked_bot", "blocked bot user agent",
				map[string]any{"user_agent": userAgent}, c.IP())
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "access denied"})
		}

		if origin := c.Get(fiber.HeaderOrigin); origin != "" {
			if _, ok := origins[origin]; !ok {
				log.Warn().Str("origin", origin).Str("ip", c.IP()).Msg("Blocked disallowed origin")
				svc.RecordEvent(c.Context(), "invalid_origin", "blocked disallowed origin",
					map[string]any{"origin": origin}, c.IP())
				return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "origin not allowed"})
			}
		}

		if c.Method() == fiber.MethodPost || c.Method() == fiber.MethodPut {
			contentType := c.Get(fiber.HeaderContentType)
			if !strings.Contains(contentType, fiber.MIMEApplicationJSON) {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "content-type must be application/json"})
			}
		}

		return c.Next()
	}
}

// RequireUser extracts the external user id from the X-User-Id header
// (or the userId body field as a fallback) and validates its format.
func RequireUser(svc *services.Verification) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Get("X-User-Id")
		if userID == "" {
			var body struct {
				UserID string `json:"userId"`
			}
			// Body may be absent on GET; ignore parse errors here.
			_ = c.BodyParser(&body)
			userID = body.UserID
		}
		if userID == "" {
			userID = c.Params("userId")
		}

		if userID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "user not identified"})
		}
		if !domain.ValidUserID(userID) {
			svc.RecordEvent(c.Context(), "invalid_user_id", "malformed user id",
				map[string]any{"user_id": userID}, c.IP())
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid user id"})
		}

		c.Locals(userIDKey, userID)
		return c.Next()
	}
}

// RejectBlocked turns away write-actions from accounts whose block
// deadline is still ahead. The stale is_blocked flag alone is never
// trusted; the deadline decides.
func RejectBlocked(svc *services.Verification) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _ := c.Locals(userIDKey).(string)
		if userID == "" {
			return c.Next()
		}
		blocked, err := svc.BlockedNow(c.Context(), userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
		}
		if blocked {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "account blocked"})
		}
		return c.Next()
	}
}

// RequireAdmin gates maintenance endpoints behind the shared admin
// secret. Compared in constant time.
func RequireAdmin(svc *services.Verification, secret string, baseLogger *zerolog.Logger) fiber.Handler {
	log := baseLogger.With().Str("component", "admin_guard").Logger()

	return func(c *fiber.Ctx) error {
		token := c.Get("X-Admin-Token")
		if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			log.Warn().Str("ip", c.IP()).Msg("Unauthorized cleanup attempt")
			svc.RecordEvent(c.Context(), "unauthorized_cleanup", "bad or missing admin token", nil, c.IP())
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "unauthorized"})
		}
		return c.Next()
	}
}
