package bot

import (
	"github.com/bwmarrin/discordgo"
	"github.com/echonet/echonet/pkg/internal/registry"
	"github.com/echonet/echonet/pkg/internal/services"
	"github.com/rs/zerolog/log"
)

// Bot is the presentation layer over the gateway: slash commands and message
// components that resolve into lifecycle engine operations. All decisions the
// engine needs are carried as durable custom ids, never live object state.
type Bot struct {
	session  *discordgo.Session
	engine   *services.Engine
	settings *registry.SettingsStore
}

func New(session *discordgo.Session, engine *services.Engine, settings *registry.SettingsStore) *Bot {
	bot := &Bot{
		session:  session,
		engine:   engine,
		settings: settings,
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsGuildMembers

	session.AddHandler(bot.onReady)
	session.AddHandler(bot.onInteraction)

	return bot
}

func (b *Bot) onReady(s *discordgo.Session, _ *discordgo.Ready) {
	log.Info().Str("user", s.State.User.Username).Msg("Gateway session is ready.")

	for _, command := range commands {
		if _, err := s.ApplicationCommandCreate(s.State.User.ID, "", command); err != nil {
			log.Error().Err(err).Str("command", command.Name).Msg("An error occurred when registering a command.")
		}
	}
}

func (b *Bot) onInteraction(s *discordgo.Session, event *discordgo.InteractionCreate) {
	switch event.Type {
	case discordgo.InteractionApplicationCommand:
		b.handleCommand(event)
	case discordgo.InteractionMessageComponent:
		b.handleComponent(event)
	}
}

// reply sends an ephemeral response so management chatter stays private.
func (b *Bot) reply(event *discordgo.InteractionCreate, content string) {
	err := b.session.InteractionRespond(event.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.Warn().Err(err).Msg("Unable to respond to an interaction...")
	}
}
