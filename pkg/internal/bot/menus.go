package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/echonet/echonet/pkg/internal/models"
	"github.com/rs/zerolog/log"
)

// Component custom ids follow "echonet:<action>:<channelId>[:<userId>]" so a
// click keeps meaning the same thing after the process restarts.
const componentPrefix = "echonet"

// PublishManagementMenu posts the channel's menu message into the guild's
// configured menu channel and returns the message reference for cleanup.
func (b *Bot) PublishManagementMenu(_ context.Context, record *models.ChannelRecord) (*models.MenuMessageRef, error) {
	config, err := b.settings.Guild(record.GuildID)
	if err != nil {
		return nil, err
	}
	if config == nil {
		return nil, fmt.Errorf("guild %s has no menu channel configured", record.GuildID)
	}

	mode := "open"
	var buttons []discordgo.MessageComponent
	if record.AccessMode == models.AccessRequestOnly {
		mode = "request-only"
		buttons = append(buttons, discordgo.Button{
			Label:    "Request to join",
			Style:    discordgo.PrimaryButton,
			CustomID: componentId("request", record.ChannelID),
		})
	}
	buttons = append(buttons,
		discordgo.Button{
			Label:    "Toggle access",
			Style:    discordgo.SecondaryButton,
			CustomID: componentId("access", record.ChannelID),
		},
		discordgo.Button{
			Label:    "Delete",
			Style:    discordgo.DangerButton,
			CustomID: componentId("delete", record.ChannelID),
		},
	)

	message, err := b.session.ChannelMessageSendComplex(config.MenuChannelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{
			{
				Title:       record.Name,
				Description: fmt.Sprintf("Temporary voice channel <#%s> owned by <@%s>.", record.ChannelID, record.OwnerID),
				Fields: []*discordgo.MessageEmbedField{
					{Name: "Access", Value: mode, Inline: true},
					{Name: "Expires", Value: fmt.Sprintf("<t:%d:R>", record.ExpiresAt.Unix()), Inline: true},
				},
			},
		},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: buttons},
		},
	})
	if err != nil {
		return nil, err
	}

	return &models.MenuMessageRef{
		MessageID: message.ID,
		ChannelID: message.ChannelID,
	}, nil
}

// NotifyJoinRequest delivers the approval affordance to the owner's inbox.
// The buttons carry channel and requester ids, nothing session-bound.
func (b *Bot) NotifyJoinRequest(_ context.Context, record *models.ChannelRecord, requesterId string) error {
	dm, err := b.session.UserChannelCreate(record.OwnerID)
	if err != nil {
		return err
	}

	_, err = b.session.ChannelMessageSendComplex(dm.ID, &discordgo.MessageSend{
		Content: fmt.Sprintf("<@%s> wants to join your voice channel **%s**.", requesterId, record.Name),
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label:    "Approve",
						Style:    discordgo.SuccessButton,
						CustomID: componentId("approve", record.ChannelID, requesterId),
					},
					discordgo.Button{
						Label:    "Deny",
						Style:    discordgo.DangerButton,
						CustomID: componentId("deny", record.ChannelID, requesterId),
					},
				},
			},
		},
	})
	return err
}

func componentId(parts ...string) string {
	return strings.Join(append([]string{componentPrefix}, parts...), ":")
}

func (b *Bot) handleComponent(event *discordgo.InteractionCreate) {
	parts := strings.Split(event.MessageComponentData().CustomID, ":")
	if len(parts) < 3 || parts[0] != componentPrefix {
		return
	}

	action, channelId := parts[1], parts[2]
	actor := interactionUser(event)
	ctx := context.Background()

	switch action {
	case "request":
		if err := b.engine.RequestJoin(ctx, actor, channelId); err != nil {
			b.reply(event, fmt.Sprintf("Unable to request access: %v", err))
			return
		}
		b.reply(event, "Request sent! The owner will be notified.")
	case "access":
		mode, err := b.engine.ToggleAccessMode(ctx, actor, channelId)
		if err != nil {
			b.reply(event, fmt.Sprintf("Unable to toggle the access mode: %v", err))
			return
		}
		if mode == models.AccessRequestOnly {
			b.reply(event, "The channel is now request-only.")
		} else {
			b.reply(event, "The channel is now open to everyone.")
		}
	case "delete":
		if err := b.engine.DeleteChannel(ctx, actor, channelId, "Deleted via the management menu"); err != nil {
			b.reply(event, fmt.Sprintf("Unable to delete the channel: %v", err))
			return
		}
		b.reply(event, "The channel has been deleted.")
	case "approve":
		if len(parts) < 4 {
			return
		}
		if err := b.engine.ApproveRequest(ctx, actor, channelId, parts[3]); err != nil {
			b.reply(event, fmt.Sprintf("Unable to approve the request: %v", err))
			return
		}
		b.reply(event, fmt.Sprintf("Approved! <@%s> can join now.", parts[3]))
	case "deny":
		if len(parts) < 4 {
			return
		}
		if err := b.engine.DenyRequest(ctx, actor, channelId, parts[3]); err != nil {
			b.reply(event, fmt.Sprintf("Unable to deny the request: %v", err))
			return
		}
		b.reply(event, "The request has been denied.")
	default:
		log.Debug().Str("action", action).Msg("Ignored an unknown component action.")
	}
}

// interactionUser copes with both surfaces: Member is set in guilds, User in
// direct messages.
func interactionUser(event *discordgo.InteractionCreate) string {
	if event.Member != nil {
		return event.Member.User.ID
	}
	if event.User != nil {
		return event.User.ID
	}
	return ""
}
