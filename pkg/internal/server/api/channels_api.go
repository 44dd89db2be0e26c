package api

import (
	"time"

	"github.com/echonet/echonet/pkg/internal/models"
	"github.com/echonet/echonet/pkg/internal/server/exts"
	"github.com/gofiber/fiber/v2"
)

func listChannel(c *fiber.Ctx) error {
	channels, err := deps.Engine.ListChannels()
	if err != nil {
		return asHTTPError(err)
	}

	return c.JSON(channels)
}

func getChannel(c *fiber.Ctx) error {
	channel, err := deps.Engine.GetChannel(c.Params("channelId"))
	if err != nil {
		return asHTTPError(err)
	}

	return c.JSON(channel)
}

func createChannel(c *fiber.Ctx) error {
	var data struct {
		GuildID      string `json:"guild_id" validate:"required"`
		OwnerID      string `json:"owner_id" validate:"required"`
		Name         string `json:"name" validate:"required,max=100"`
		DurationDays int    `json:"duration_days" validate:"required,min=1,max=60"`
		RequestOnly  bool   `json:"request_only"`
	}

	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	mode := models.AccessOpen
	if data.RequestOnly {
		mode = models.AccessRequestOnly
	}

	channel, err := deps.Engine.CreateChannel(c.Context(), data.GuildID, data.OwnerID, data.Name, data.DurationDays, mode)
	if err != nil {
		return asHTTPError(err)
	}

	return c.JSON(channel)
}

func deleteChannel(c *fiber.Ctx) error {
	actor := c.Query("actor")
	if actor == "" {
		return fiber.NewError(fiber.StatusBadRequest, "actor is required")
	}
	reason := c.Query("reason", "Deleted by owner")

	if err := deps.Engine.DeleteChannel(c.Context(), actor, c.Params("channelId"), reason); err != nil {
		return asHTTPError(err)
	}

	return c.SendStatus(fiber.StatusOK)
}

func toggleAccessMode(c *fiber.Ctx) error {
	var data struct {
		ActorID string `json:"actor_id" validate:"required"`
	}

	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	mode, err := deps.Engine.ToggleAccessMode(c.Context(), data.ActorID, c.Params("channelId"))
	if err != nil {
		return asHTTPError(err)
	}

	return c.JSON(fiber.Map{"access_mode": mode})
}

func extendDuration(c *fiber.Ctx) error {
	var data struct {
		ActorID string `json:"actor_id" validate:"required"`
		Days    int    `json:"days" validate:"min=0"`
		Hours   int    `json:"hours" validate:"min=0"`
	}

	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	delta := time.Duration(data.Days)*24*time.Hour + time.Duration(data.Hours)*time.Hour
	expiresAt, err := deps.Engine.ExtendDuration(c.Context(), data.ActorID, c.Params("channelId"), delta)
	if err != nil {
		return asHTTPError(err)
	}

	return c.JSON(fiber.Map{"expires_at": expiresAt})
}

func setUserLimit(c *fiber.Ctx) error {
	var data struct {
		ActorID string `json:"actor_id" validate:"required"`
		Limit   int    `json:"limit" validate:"min=0,max=99"`
	}

	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	if err := deps.Engine.SetUserLimit(c.Context(), data.ActorID, c.Params("channelId"), data.Limit); err != nil {
		return asHTTPError(err)
	}

	return c.SendStatus(fiber.StatusOK)
}

func renameChannel(c *fiber.Ctx) error {
	var data struct {
		ActorID string `json:"actor_id" validate:"required"`
		Name    string `json:"name" validate:"required,max=100"`
	}

	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	if err := deps.Engine.RenameChannel(c.Context(), data.ActorID, c.Params("channelId"), data.Name); err != nil {
		return asHTTPError(err)
	}

	return c.SendStatus(fiber.StatusOK)
}

func transferOwnership(c *fiber.Ctx) error {
	var data struct {
		ActorID    string `json:"actor_id" validate:"required"`
		NewOwnerID string `json:"new_owner_id" validate:"required"`
	}

	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	if err := deps.Engine.TransferOwnership(c.Context(), data.ActorID, c.Params("channelId"), data.NewOwnerID); err != nil {
		return asHTTPError(err)
	}

	return c.SendStatus(fiber.StatusOK)
}

func blockUser(c *fiber.Ctx) error {
	var data struct {
		ActorID  string `json:"actor_id" validate:"required"`
		TargetID string `json:"target_id" validate:"required"`
	}

	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	outcome, err := deps.Engine.BlockUser(c.Context(), data.ActorID, c.Params("channelId"), data.TargetID)
	if err != nil {
		return asHTTPError(err)
	}

	return c.JSON(outcome)
}

func unblockUser(c *fiber.Ctx) error {
	actor := c.Query("actor")
	if actor == "" {
		return fiber.NewError(fiber.StatusBadRequest, "actor is required")
	}

	if err := deps.Engine.UnblockUser(c.Context(), actor, c.Params("channelId"), c.Params("userId")); err != nil {
		return asHTTPError(err)
	}

	return c.SendStatus(fiber.StatusOK)
}

func inviteUser(c *fiber.Ctx) error {
	var data struct {
		ActorID  string `json:"actor_id" validate:"required"`
		TargetID string `json:"target_id" validate:"required"`
	}

	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	if err := deps.Engine.InviteUser(c.Context(), data.ActorID, c.Params("channelId"), data.TargetID); err != nil {
		return asHTTPError(err)
	}

	return c.SendStatus(fiber.StatusOK)
}

func kickUser(c *fiber.Ctx) error {
	var data struct {
		ActorID  string `json:"actor_id" validate:"required"`
		TargetID string `json:"target_id" validate:"required"`
	}

	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	if err := deps.Engine.KickUser(c.Context(), data.ActorID, c.Params("channelId"), data.TargetID); err != nil {
		return asHTTPError(err)
	}

	return c.SendStatus(fiber.StatusOK)
}
