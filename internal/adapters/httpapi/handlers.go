package httpapi

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"crowguard/internal/core/domain"
	"crowguard/internal/core/services"
)

// SecurityHandler exposes the verification service over HTTP.
type SecurityHandler struct {
	svc *services.Verification
	log zerolog.Logger
}

// NewSecurityHandler creates the handler set.
func NewSecurityHandler(svc *services.Verification, baseLogger *zerolog.Logger) *SecurityHandler {
	return &SecurityHandler{
		svc: svc,
		log: baseLogger.With().Str("component", "security_handler").Logger(),
	}
}

type reportInput struct {
	Type    string         `json:"type"`
	Details map[string]any `json:"details"`
}

// Report handles POST /security/report.
func (h *SecurityHandler) Report(c *fiber.Ctx) error {
	var input reportInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid input"})
	}
	if input.Type == "" || input.Details == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing required fields"})
	}

	userID, _ := c.Locals(userIDKey).(string)

	action, err := h.svc.ReportActivity(c.Context(), userID, domain.ActivityKind(input.Type), input.Details, c.IP())
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidActivityKind):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid activity type"})
		case errors.Is(err, services.ErrInvalidUserID):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid user id"})
		case errors.Is(err, services.ErrPayloadTooLarge):
			return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{"error": "details too large"})
		default:
			h.log.Error().Err(err).Str("user_id", userID).Msg("Report handling failed")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
		}
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success":      true,
		"message":      "report received",
		"action_taken": string(action),
	})
}

type integrityInput struct {
	Checksum string `json:"checksum"`
	Version  string `json:"version"`
	Data     string `json:"data"`
}

// IntegrityCheck handles POST /security/integrity-check.
func (h *SecurityHandler) IntegrityCheck(c *fiber.Ctx) error {
	var input integrityInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid input"})
	}
	if input.Checksum == "" || input.Version == "" || input.Data == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing required fields"})
	}

	userID, _ := c.Locals(userIDKey).(string)

	verifiedAt, err := h.svc.VerifyIntegrity(c.Context(), userID, input.Checksum, input.Version, input.Data)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrOutdatedVersion):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":           "game version outdated",
				"requires_update": true,
			})
		case errors.Is(err, services.ErrIntegrityCompromised):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":           "game integrity compromised",
				"requires_update": true,
			})
		case errors.Is(err, services.ErrCheckTooFrequent):
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "checks too frequent"})
		case errors.Is(err, services.ErrUnknownUser):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown user"})
		case errors.Is(err, services.ErrInvalidUserID):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid user id"})
		case errors.Is(err, services.ErrPayloadTooLarge):
			return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{"error": "payload too large"})
		default:
			h.log.Error().Err(err).Str("user_id", userID).Msg("Integrity check failed")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
		}
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success":   true,
		"verified":  true,
		"timestamp": verifiedAt.UTC().Format(time.RFC3339),
	})
}

// Rules handles GET /security/rules.
func (h *SecurityHandler) Rules(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(h.svc.Policy().RulesDoc())
}

// UserStatus handles GET /security/user-status/:userId.
func (h *SecurityHandler) UserStatus(c *fiber.Ctx) error {
	userID, _ := c.Locals(userIDKey).(string)

	status, err := h.svc.UserStatus(c.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUnknownUser):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown user"})
		case errors.Is(err, services.ErrInvalidUserID):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid user id"})
		default:
			h.log.Error().Err(err).Str("user_id", userID).Msg("Status lookup failed")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
		}
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"user_id":                    status.UserID,
		"is_blocked":                 status.IsBlocked,
		"block_info":                 status.BlockInfo,
		"recent_suspicious_activity": status.RecentActivity,
		"security_stats":             status.EventStats,
		"integrity_checks_passed":    status.ChecksPassed,
		"integrity_checks_failed":    status.ChecksFailed,
		"last_integrity_check":       status.LastCheckAt,
		"generated_at":               status.GeneratedAt.UTC().Format(time.RFC3339),
	})
}

// Cleanup handles POST /security/cleanup.
func (h *SecurityHandler) Cleanup(c *fiber.Ctx) error {
	summary, err := h.svc.Cleanup(c.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Cleanup sweep failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "cleanup failed"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "security cleanup completed",
		"cleaned": fiber.Map{
			"old_activity":   summary.ActivityRemoved,
			"old_logs":       summary.EventsRemoved,
			"expired_blocks": summary.BlocksClosed,
		},
	})
}
