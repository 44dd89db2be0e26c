package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/echonet/echonet/pkg/internal/models"
	"github.com/samber/lo"
)

var commands = []*discordgo.ApplicationCommand{
	{
		Name:        "voice",
		Description: "Manage your temporary voice channels",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "create",
				Description: "Create a temporary voice channel",
				Options: []*discordgo.ApplicationCommandOption{
					{Type: discordgo.ApplicationCommandOptionString, Name: "name", Description: "Channel name", Required: true},
					{Type: discordgo.ApplicationCommandOptionInteger, Name: "days", Description: "How many days it should last (1-60)", Required: true},
					{Type: discordgo.ApplicationCommandOptionBoolean, Name: "request_only", Description: "Only approved members can join"},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "delete",
				Description: "Delete your voice channel",
				Options:     channelOption(),
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "extend",
				Description: "Extend the channel duration",
				Options: append(channelOption(),
					&discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionInteger, Name: "days", Description: "Days to add"},
					&discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionInteger, Name: "hours", Description: "Hours to add"},
				),
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "limit",
				Description: "Set the user limit (0 lifts it)",
				Options: append(channelOption(),
					&discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionInteger, Name: "limit", Description: "Number of users (0-99)", Required: true},
				),
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "rename",
				Description: "Rename your voice channel",
				Options: append(channelOption(),
					&discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionString, Name: "name", Description: "New channel name", Required: true},
				),
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "transfer",
				Description: "Transfer ownership of your channel",
				Options:     append(channelOption(), userOption("New owner")),
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "block",
				Description: "Block a user from your channel",
				Options:     append(channelOption(), userOption("User to block")),
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "unblock",
				Description: "Unblock a user",
				Options:     append(channelOption(), userOption("User to unblock")),
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "invite",
				Description: "Invite a user to your channel",
				Options:     append(channelOption(), userOption("User to invite")),
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "kick",
				Description: "Disconnect a user from your channel",
				Options:     append(channelOption(), userOption("User to kick")),
			},
		},
	},
	{
		Name:        "voice-setup",
		Description: "Pick where temporary channels and the menu live (admin only)",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:         discordgo.ApplicationCommandOptionChannel,
				Name:         "category",
				Description:  "Category for new voice channels",
				ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildCategory},
				Required:     true,
			},
			{
				Type:         discordgo.ApplicationCommandOptionChannel,
				Name:         "menu_channel",
				Description:  "Text channel for the management menu",
				ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
				Required:     true,
			},
		},
		DefaultMemberPermissions: lo.ToPtr(int64(discordgo.PermissionManageChannels)),
	},
}

func channelOption() []*discordgo.ApplicationCommandOption {
	return []*discordgo.ApplicationCommandOption{
		{
			Type:         discordgo.ApplicationCommandOptionChannel,
			Name:         "channel",
			Description:  "The temporary voice channel",
			ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildVoice},
			Required:     true,
		},
	}
}

func userOption(description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        "user",
		Description: description,
		Required:    true,
	}
}

func (b *Bot) handleCommand(event *discordgo.InteractionCreate) {
	data := event.ApplicationCommandData()
	switch data.Name {
	case "voice":
		b.handleVoiceCommand(event, data)
	case "voice-setup":
		b.handleSetupCommand(event, data)
	}
}

func (b *Bot) handleVoiceCommand(event *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	if len(data.Options) == 0 {
		return
	}

	sub := data.Options[0]
	opts := commandOptions(sub.Options)
	actor := event.Member.User.ID
	ctx := context.Background()

	var channelId string
	if option, ok := opts["channel"]; ok {
		channelId = option.Value.(string)
	}

	switch sub.Name {
	case "create":
		mode := models.AccessOpen
		if option, ok := opts["request_only"]; ok && option.BoolValue() {
			mode = models.AccessRequestOnly
		}
		record, err := b.engine.CreateChannel(ctx, event.GuildID, actor, opts["name"].StringValue(), int(opts["days"].IntValue()), mode)
		if err != nil {
			b.reply(event, fmt.Sprintf("Unable to create the channel: %v", err))
			return
		}
		b.reply(event, fmt.Sprintf("Your voice channel <#%s> has been created! It expires <t:%d:R>.", record.ChannelID, record.ExpiresAt.Unix()))
	case "delete":
		if err := b.engine.DeleteChannel(ctx, actor, channelId, "Deleted by owner"); err != nil {
			b.reply(event, fmt.Sprintf("Unable to delete the channel: %v", err))
			return
		}
		b.reply(event, "Your voice channel has been deleted.")
	case "extend":
		var delta time.Duration
		if option, ok := opts["days"]; ok {
			delta += time.Duration(option.IntValue()) * 24 * time.Hour
		}
		if option, ok := opts["hours"]; ok {
			delta += time.Duration(option.IntValue()) * time.Hour
		}
		expiresAt, err := b.engine.ExtendDuration(ctx, actor, channelId, delta)
		if err != nil {
			b.reply(event, fmt.Sprintf("Unable to extend the channel: %v", err))
			return
		}
		b.reply(event, fmt.Sprintf("Duration extended. New expiration: <t:%d:R>.", expiresAt.Unix()))
	case "limit":
		if err := b.engine.SetUserLimit(ctx, actor, channelId, int(opts["limit"].IntValue())); err != nil {
			b.reply(event, fmt.Sprintf("Unable to set the user limit: %v", err))
			return
		}
		b.reply(event, "User limit updated.")
	case "rename":
		if err := b.engine.RenameChannel(ctx, actor, channelId, opts["name"].StringValue()); err != nil {
			b.reply(event, fmt.Sprintf("Unable to rename the channel: %v", err))
			return
		}
		b.reply(event, "Channel renamed.")
	case "transfer":
		if err := b.engine.TransferOwnership(ctx, actor, channelId, opts["user"].Value.(string)); err != nil {
			b.reply(event, fmt.Sprintf("Unable to transfer ownership: %v", err))
			return
		}
		b.reply(event, "Ownership transferred.")
	case "block":
		outcome, err := b.engine.BlockUser(ctx, actor, channelId, opts["user"].Value.(string))
		if err != nil {
			b.reply(event, fmt.Sprintf("Unable to block the user: %v", err))
			return
		}
		if outcome.DisconnectNote != "" {
			b.reply(event, fmt.Sprintf("User blocked, but %s.", outcome.DisconnectNote))
			return
		}
		b.reply(event, "User blocked.")
	case "unblock":
		if err := b.engine.UnblockUser(ctx, actor, channelId, opts["user"].Value.(string)); err != nil {
			b.reply(event, fmt.Sprintf("Unable to unblock the user: %v", err))
			return
		}
		b.reply(event, "User unblocked.")
	case "invite":
		if err := b.engine.InviteUser(ctx, actor, channelId, opts["user"].Value.(string)); err != nil {
			b.reply(event, fmt.Sprintf("Unable to invite the user: %v", err))
			return
		}
		b.reply(event, "User invited.")
	case "kick":
		if err := b.engine.KickUser(ctx, actor, channelId, opts["user"].Value.(string)); err != nil {
			b.reply(event, fmt.Sprintf("Unable to kick the user: %v", err))
			return
		}
		b.reply(event, "User disconnected.")
	}
}

func (b *Bot) handleSetupCommand(event *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	opts := commandOptions(data.Options)

	config := &models.GuildConfig{
		GuildID:         event.GuildID,
		VoiceCategoryID: opts["category"].Value.(string),
		MenuChannelID:   opts["menu_channel"].Value.(string),
	}

	if err := b.settings.SetGuild(config); err != nil {
		b.reply(event, fmt.Sprintf("Unable to save the setup: %v", err))
		return
	}

	b.reply(event, fmt.Sprintf("Setup complete! New voice channels go to <#%s>, the menu lives in <#%s>.", config.VoiceCategoryID, config.MenuChannelID))
}

func commandOptions(options []*discordgo.ApplicationCommandInteractionDataOption) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	out := map[string]*discordgo.ApplicationCommandInteractionDataOption{}
	for _, option := range options {
		out[option.Name] = option
	}
	return out
}
