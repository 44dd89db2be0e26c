package api

import (
	"github.com/echonet/echonet/pkg/internal/models"
	"github.com/gofiber/fiber/v2"
)

func listAudit(c *fiber.Ctx) error {
	take := c.QueryInt("take", 50)
	offset := c.QueryInt("offset", 0)

	if deps.Audit == nil {
		return c.JSON([]models.AuditEntry{})
	}

	entries, err := deps.Audit.List(take, offset)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	return c.JSON(entries)
}

func runSweep(c *fiber.Ctx) error {
	report := deps.Sweeper.RunSweepOnce(c.Context())
	return c.JSON(report)
}
