package controllers

import (
	"time"

	"repre_go/database"

	"github.com/gofiber/fiber/v2"
)

// HealthController exposes liveness and dependency checks.
type HealthController struct{}

// GetHealthStatus reports the API, database and Redis state.
func (hc *HealthController) GetHealthStatus(c *fiber.Ctx) error {
	status := fiber.StatusOK
	dbStatus := "ok"
	if sqlDB, err := database.DB.DB(); err != nil || sqlDB.Ping() != nil {
		dbStatus = "down"
		status = fiber.StatusServiceUnavailable
	}

	redisStatus := "disabled"
	if rc := database.GetRedisClient(); rc != nil {
		redisStatus = "ok"
		if err := rc.Ping(c.Context()).Err(); err != nil {
			redisStatus = "down"
		}
	}

	return c.Status(status).JSON(fiber.Map{
		"status":    "ok",
		"database":  dbStatus,
		"redis":     redisStatus,
		"timestamp": time.Now().UTC(),
	})
}
