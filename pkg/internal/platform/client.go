package platform

import (
	"context"
	"errors"
)

// ErrNotFound reports that the external entity is gone (or never existed),
// as opposed to a transport failure. Callers use it to reconcile stale
// registry records instead of propagating the miss.
var ErrNotFound = errors.New("platform entity not found")

// Client is the chat platform collaborator. Every call is a fallible,
// possibly slow remote call; none of them are retried here.
type Client interface {
	BotUserID() string

	CreateVoiceChannel(ctx context.Context, guildId, categoryId, name string, overwrites []Overwrite) (string, error)
	EditChannel(ctx context.Context, channelId string, edit ChannelEdit) error
	DeleteChannel(ctx context.Context, channelId, reason string) error

	ChannelOverwrites(ctx context.Context, channelId string) ([]Overwrite, error)
	SetOverwrite(ctx context.Context, channelId string, overwrite Overwrite) error
	DeleteOverwrite(ctx context.Context, channelId, targetId string) error

	SendMessage(ctx context.Context, channelId, content string) (string, error)
	DeleteMessage(ctx context.Context, channelId, messageId string) error
	SendDirectMessage(ctx context.Context, userId, content string) error

	FetchMember(ctx context.Context, guildId, userId string) (*Member, error)
	MemberVoiceChannel(ctx context.Context, guildId, userId string) (string, error)
	DisconnectMember(ctx context.Context, guildId, userId string) error

	Capabilities(ctx context.Context, channelId string) (CapabilitySet, error)
}
