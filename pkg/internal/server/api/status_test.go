package api

import (
	"errors"
	"testing"

	"github.com/echonet/echonet/pkg/internal/registry"
	"github.com/echonet/echonet/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
)

func TestAsHTTPError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil error", nil, 0},
		{"validation", &services.ValidationError{Field: "name", Reason: "too long"}, fiber.StatusBadRequest},
		{"insufficient capability", &services.InsufficientCapabilityError{Where: "category"}, fiber.StatusBadRequest},
		{"not found", &services.NotFoundError{Kind: "channel", ID: "chan-1"}, fiber.StatusNotFound},
		{"platform failure", &services.PlatformError{Op: "edit channel", Cause: errors.New("down")}, fiber.StatusBadGateway},
		{"corrupt store", &registry.CorruptStoreError{Path: "channels.json", Cause: errors.New("bad json")}, fiber.StatusInternalServerError},
		{"not owner", services.ErrNotOwner, fiber.StatusForbidden},
		{"already blocked", services.ErrAlreadyBlocked, fiber.StatusConflict},
		{"not pending", services.ErrNotPending, fiber.StatusConflict},
		{"duration limit", services.ErrDurationLimitExceeded, fiber.StatusBadRequest},
		{"unconfigured guild", services.ErrGuildNotConfigured, fiber.StatusBadRequest},
		{"anything else", errors.New("boom"), fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := asHTTPError(tt.err)
			if tt.want == 0 {
				if got != nil {
					t.Fatalf("expected nil, got %v", got)
				}
				return
			}

			var fiberErr *fiber.Error
			if !errors.As(got, &fiberErr) {
				t.Fatalf("expected a fiber error, got %v", got)
			}
			if fiberErr.Code != tt.want {
				t.Fatalf("expected status %d, got %d", tt.want, fiberErr.Code)
			}
		})
	}
}
