package httpapi

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/rs/zerolog"

	"crowguard/internal/core/services"
)

// RouterConfig carries what the route table needs beyond the service.
type RouterConfig struct {
	AllowedOrigins []string
	AdminSecret    string
	GlobalRate     RatePolicy
	SensitiveRate  RatePolicy
}

// RegisterRoutes wires the security endpoints. The global RateGate
// covers everything; the tighter sensitive policy stacks on top of
// the report/verify pair.
func RegisterRoutes(app *fiber.App, h *SecurityHandler, svc *services.Verification, cfg RouterConfig, baseLogger *zerolog.Logger) {
	app.Use(cors.New(cors.Config{
		AllowOrigins: joinOrigins(cfg.AllowedOrigins),
		AllowMethods: "GET,POST",
		AllowHeaders: "Content-Type,X-User-Id,X-Admin-Token",
	}))
	app.Use(RateGate(cfg.GlobalRate))
	app.Use(PerimeterGuard(svc, cfg.AllowedOrigins, baseLogger))

	security := app.Group("/security")
	sensitive := RateGate(cfg.SensitiveRate)

	security.Post("/report", sensitive, RequireUser(svc), RejectBlocked(svc), h.Report)
	security.Post("/integrity-check", sensitive, RequireUser(svc), RejectBlocked(svc), h.IntegrityCheck)
	security.Get("/rules", h.Rules)
	security.Get("/user-status/:userId", RequireUser(svc), h.UserStatus)
	security.Post("/cleanup", RequireAdmin(svc, cfg.AdminSecret, baseLogger), h.Cleanup)
}

func joinOrigins(origins []string) string {
	return strings.Join(origins, ",")
}
