package routes

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

func registerHealthRoutes(app *fiber.App, d Deps) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		status := http.StatusOK
		checks := fiber.Map{}

		if d.DB != nil {
			if err := d.DB.Ping(c.UserContext()); err != nil {
				checks["postgres"] = err.Error()
				status = http.StatusServiceUnavailable
			} else {
				checks["postgres"] = "ok"
			}
		} else {
			checks["postgres"] = "disabled"
		}

		if d.Cache != nil {
			if err := d.Cache.Ping(c.UserContext()).Err(); err != nil {
				checks["redis"] = err.Error()
				status = http.StatusServiceUnavailable
			} else {
				checks["redis"] = "ok"
			}
		} else {
			checks["redis"] = "disabled"
		}

		return c.Status(status).JSON(fiber.Map{
			"app":    d.Cfg.AppName,
			"env":    d.Cfg.AppEnv,
			"checks": checks,
		})
	})
}
