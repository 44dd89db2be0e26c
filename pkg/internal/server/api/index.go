package api

import (
	"github.com/echonet/echonet/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
)

// Deps are the collaborators the handlers act on.
type Deps struct {
	Engine  *services.Engine
	Sweeper *services.Sweeper
	Audit   *services.AuditRecorder
}

var deps Deps

func MapAPIs(app *fiber.App, baseURL string, auth fiber.Handler, d Deps) {
	deps = d

	api := app.Group(baseURL).Name("API")
	{
		channels := api.Group("/channels").Name("Channels API")
		{
			channels.Get("/", listChannel)
			channels.Get("/:channelId", getChannel)

			channels.Post("/", auth, createChannel)
			channels.Delete("/:channelId", auth, deleteChannel)

			channels.Post("/:channelId/access", auth, toggleAccessMode)
			channels.Post("/:channelId/extend", auth, extendDuration)
			channels.Post("/:channelId/limit", auth, setUserLimit)
			channels.Post("/:channelId/name", auth, renameChannel)
			channels.Post("/:channelId/owner", auth, transferOwnership)

			channels.Post("/:channelId/blocks", auth, blockUser)
			channels.Delete("/:channelId/blocks/:userId", auth, unblockUser)
			channels.Post("/:channelId/invites", auth, inviteUser)
			channels.Post("/:channelId/kick", auth, kickUser)

			channels.Post("/:channelId/requests", auth, requestJoin)
			channels.Post("/:channelId/requests/:userId/approve", auth, approveRequest)
			channels.Post("/:channelId/requests/:userId/deny", auth, denyRequest)
		}

		api.Get("/audit", auth, listAudit)
		api.Post("/sweep", auth, runSweep)
	}
}
