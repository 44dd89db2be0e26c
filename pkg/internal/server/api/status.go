package api

import (
	"errors"

	"github.com/echonet/echonet/pkg/internal/registry"
	"github.com/echonet/echonet/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
)

// asHTTPError maps the engine's error taxonomy onto response statuses.
func asHTTPError(err error) error {
	if err == nil {
		return nil
	}

	var validation *services.ValidationError
	var capability *services.InsufficientCapabilityError
	var missing *services.NotFoundError
	var platformErr *services.PlatformError
	var corrupt *registry.CorruptStoreError

	switch {
	case errors.As(err, &validation), errors.As(err, &capability):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.As(err, &missing):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.As(err, &platformErr):
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	case errors.As(err, &corrupt):
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	case errors.Is(err, services.ErrNotOwner):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrAlreadyBlocked),
		errors.Is(err, services.ErrNotBlocked),
		errors.Is(err, services.ErrAlreadyPending),
		errors.Is(err, services.ErrNotPending),
		errors.Is(err, services.ErrUserBlocked):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, services.ErrDurationLimitExceeded),
		errors.Is(err, services.ErrGuildNotConfigured):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	return fiber.NewError(fiber.StatusInternalServerError, err.Error())
}
