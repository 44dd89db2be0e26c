package api

import (
	"github.com/echonet/echonet/pkg/internal/server/exts"
	"github.com/gofiber/fiber/v2"
)

func requestJoin(c *fiber.Ctx) error {
	var data struct {
		RequesterID string `json:"requester_id" validate:"required"`
	}

	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	if err := deps.Engine.RequestJoin(c.Context(), data.RequesterID, c.Params("channelId")); err != nil {
		return asHTTPError(err)
	}

	return c.SendStatus(fiber.StatusOK)
}

func approveRequest(c *fiber.Ctx) error {
	var data struct {
		ActorID string `json:"actor_id" validate:"required"`
	}

	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	if err := deps.Engine.ApproveRequest(c.Context(), data.ActorID, c.Params("channelId"), c.Params("userId")); err != nil {
		return asHTTPError(err)
	}

	return c.SendStatus(fiber.StatusOK)
}

func denyRequest(c *fiber.Ctx) error {
	var data struct {
		ActorID string `json:"actor_id" validate:"required"`
	}

	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	if err := deps.Engine.DenyRequest(c.Context(), data.ActorID, c.Params("channelId"), c.Params("userId")); err != nil {
		return asHTTPError(err)
	}

	return c.SendStatus(fiber.StatusOK)
}
